package bufdev

import (
	"io"
	"sync"

	"go.uber.org/zap"
)

// Session is one open handle bound to exactly one instance, with its own
// cursor.
//
// Calls on one Session must be serialized by the caller. After Close, every
// method except Close returns [ErrClosed].
type Session interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer

	// ReadTo copies up to n valid bytes at the cursor into dst and advances
	// the cursor by the number copied. At or past the high-water mark it
	// returns (0, nil).
	ReadTo(dst Destination, n int) (int, error)

	// WriteFrom copies up to n bytes from src into the buffer at the cursor,
	// as many as fit before capacity, and advances the cursor. It returns
	// [ErrNoSpace] when nothing fits.
	WriteFrom(src Source, n int) (int, error)

	// Control executes an out-of-band command. arg is the in/out argument
	// buffer; it must be at least cmd.Size() bytes.
	Control(cmd Command, arg []byte) error

	// Cursor returns the current position.
	Cursor() int64

	// Mode returns the access mode the session was opened with.
	Mode() Mode

	// Instance returns the instance the session is bound to.
	Instance() *Instance
}

// session is the concrete implementation of Session.
type session struct {
	reg  *Registry
	inst *Instance
	mode Mode

	// mu protects cursor and isClosed. Lock ordering: session.mu → Instance.mu.
	mu       sync.Mutex
	cursor   int64
	isClosed bool
}

// Close releases the admission slot. Subsequent calls are no-ops.
func (s *session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isClosed {
		return nil
	}

	s.isClosed = true
	s.inst.open.Add(-1)
	s.reg.gate.release(s.inst)

	s.reg.observer.Observe(Event{Op: OpClose, ID: s.inst.id})
	s.reg.log.Debug("device closed", zap.Int("id", s.inst.id), zap.Int64("cursor", s.cursor))

	return nil
}

func (s *session) Cursor() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cursor
}

func (s *session) Mode() Mode { return s.mode }

func (s *session) Instance() *Instance { return s.inst }

// Read implements io.Reader on top of ReadTo. When no valid bytes remain it
// returns io.EOF, as a read(2) of zero bytes on a device file does through
// os.File.
func (s *session) Read(p []byte) (int, error) {
	if len(p) == 0 {
		s.mu.Lock()
		closed := s.isClosed
		s.mu.Unlock()

		if closed {
			return 0, ErrClosed
		}

		return 0, nil
	}

	n, err := s.ReadTo(UserBuffer(p), len(p))
	if err != nil {
		return n, err
	}

	if n == 0 {
		return 0, io.EOF
	}

	return n, nil
}

// Write implements io.Writer on top of WriteFrom. Like os.File.Write it
// keeps writing until p is consumed or an error occurs, so a write that
// only partly fits returns the stored count together with [ErrNoSpace].
func (s *session) Write(p []byte) (int, error) {
	if len(p) == 0 {
		s.mu.Lock()
		closed := s.isClosed
		s.mu.Unlock()

		if closed {
			return 0, ErrClosed
		}

		return 0, nil
	}

	total := 0

	for total < len(p) {
		n, err := s.WriteFrom(UserBuffer(p[total:]), len(p)-total)
		total += n

		if err != nil {
			return total, err
		}
	}

	return total, nil
}
