package bufdev

// Op identifies the operation an [Event] reports.
type Op uint8

const (
	OpOpen Op = iota + 1
	OpClose
	OpRead
	OpWrite
	OpSeek
	OpControl
)

func (o Op) String() string {
	switch o {
	case OpOpen:
		return "open"
	case OpClose:
		return "close"
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpSeek:
		return "seek"
	case OpControl:
		return "control"
	default:
		return "unknown"
	}
}

// Event describes one completed operation.
//
// N is the byte count for reads and writes and the new cursor for seeks.
// Err is nil on success.
type Event struct {
	Op  Op
	ID  int
	N   int64
	Err error
}

// Observer receives an [Event] after every session operation.
//
// Observe runs synchronously on the calling goroutine and must not call
// back into the session that produced the event.
type Observer interface {
	Observe(ev Event)
}

// ObserverFunc adapts a function to [Observer].
type ObserverFunc func(ev Event)

// Observe calls f(ev).
func (f ObserverFunc) Observe(ev Event) { f(ev) }

type nopObserver struct{}

func (nopObserver) Observe(Event) {}
