// Package bufdev provides in-memory bounded-buffer devices with
// cursor-addressed sessions.
//
// A [Registry] owns a fixed table of instances. Each instance is a
// fixed-capacity byte store with a high-water mark of valid bytes. Callers
// open a [Session] against an instance identifier and then read, write,
// seek and issue control commands through it, the same way a process would
// drive a character device through a file descriptor.
//
// # Basic Usage
//
//	reg, err := bufdev.New(bufdev.Options{
//	    Count:      2,
//	    Capacity:   1024,
//	    SingleOpen: true,
//	})
//	if err != nil {
//	    // ErrInvalidInput: bad count/capacity/base
//	}
//
//	s, err := reg.Open(0, bufdev.ReadWrite)
//	if errors.Is(err, bufdev.ErrBusy) {
//	    // someone else holds instance 0
//	}
//	defer s.Close()
//
//	n, err := s.Write([]byte("hello"))
//	_, _ = s.Seek(0, io.SeekStart)
//	n, err = s.Read(buf)
//
// # Partial completion
//
// Transfers complete as far as they fit. A write larger than the room left
// at the cursor stores what fits; only a write with zero room is reported as
// [ErrNoSpace]. A read past the high-water mark returns zero bytes.
// [Session.ReadTo] and [Session.WriteFrom] expose these device semantics
// directly. [Session.Read] and [Session.Write] adapt them to the io.Reader
// and io.Writer contracts (io.EOF at end of data, a short write reports
// [ErrNoSpace]).
//
// # Concurrency
//
//   - Operations on one [Session] must be serialized by the caller.
//   - Sessions on different instances share no state.
//   - With [Options.SingleOpen], at most one session per instance exists at a
//     time; a second [Registry.Open] returns [ErrBusy] until the first closes.
//   - Without it, sessions on the same instance interleave with no ordering
//     guarantee. Instance state is still mutex-guarded, so there are no data
//     races.
//
// # Error Handling
//
// All failures are sentinel errors tested with [errors.Is]. No operation
// retries internally, and no failed operation leaves the cursor or the
// high-water mark partially updated.
package bufdev
