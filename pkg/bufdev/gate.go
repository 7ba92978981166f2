package bufdev

// admission decides whether a new session may bind to an instance.
//
// Every successful acquire is matched by exactly one release, performed by
// Session.Close. Calling release without a matching acquire is a caller
// error and is not defended against.
type admission interface {
	acquire(inst *Instance) error
	release(inst *Instance)
	exclusive() bool
}

// openGate admits any number of concurrent sessions.
type openGate struct{}

func (openGate) acquire(*Instance) error { return nil }
func (openGate) release(*Instance)       {}
func (openGate) exclusive() bool         { return false }

// singleOpenGate admits at most one session per instance.
//
// The per-instance counter starts at 1 (available). Acquire is a
// test-and-set from 1 to 0, so a losing contender never drives the counter
// below zero and there is nothing to restore on failure.
type singleOpenGate struct{}

func (singleOpenGate) acquire(inst *Instance) error {
	if !inst.avail.CompareAndSwap(1, 0) {
		return ErrBusy
	}

	return nil
}

func (singleOpenGate) release(inst *Instance) {
	inst.avail.Store(1)
}

func (singleOpenGate) exclusive() bool { return true }
