package bufdev

import (
	"errors"
	"fmt"

	"github.com/calvinalkan/bufdev/internal/bounds"
	"go.uber.org/zap"
)

func (s *session) ReadTo(dst Destination, n int) (int, error) {
	got, err := s.readTo(dst, n)

	s.reg.observer.Observe(Event{Op: OpRead, ID: s.inst.id, N: int64(got), Err: err})

	return got, err
}

func (s *session) readTo(dst Destination, n int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isClosed {
		return 0, ErrClosed
	}

	if !s.mode.CanRead() {
		return 0, fmt.Errorf("read instance %d opened %s: %w", s.inst.id, s.mode, ErrPermission)
	}

	if n < 0 {
		return 0, fmt.Errorf("read length %d: %w", n, ErrInvalidInput)
	}

	// Snapshot under the instance lock; the copy across the boundary runs
	// without it so caller code never executes while instance state is held.
	s.inst.mu.Lock()

	actual := bounds.Room(s.cursor, int64(s.inst.validLen), n)
	if actual == 0 {
		s.inst.mu.Unlock()
		s.reg.log.Debug("no more data to read", zap.Int("id", s.inst.id), zap.Int64("cursor", s.cursor))

		return 0, nil
	}

	chunk := make([]byte, actual)
	copy(chunk, s.inst.data[s.cursor:])
	s.inst.mu.Unlock()

	if dst == nil {
		return 0, fmt.Errorf("read instance %d: nil destination: %w", s.inst.id, ErrFault)
	}

	err := dst.CopyOut(chunk)
	if err != nil {
		s.reg.log.Debug("copy out failed", zap.Int("id", s.inst.id), zap.Int("n", actual), zap.Error(err))

		return 0, fmt.Errorf("read instance %d: %w", s.inst.id, asFault(err))
	}

	s.cursor += int64(actual)

	s.reg.log.Debug("read",
		zap.Int("id", s.inst.id),
		zap.Int("n", actual),
		zap.Int64("cursor", s.cursor),
	)

	return actual, nil
}

func (s *session) WriteFrom(src Source, n int) (int, error) {
	got, err := s.writeFrom(src, n)

	s.reg.observer.Observe(Event{Op: OpWrite, ID: s.inst.id, N: int64(got), Err: err})

	return got, err
}

func (s *session) writeFrom(src Source, n int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isClosed {
		return 0, ErrClosed
	}

	if !s.mode.CanWrite() {
		return 0, fmt.Errorf("write instance %d opened %s: %w", s.inst.id, s.mode, ErrPermission)
	}

	if n < 0 {
		return 0, fmt.Errorf("write length %d: %w", n, ErrInvalidInput)
	}

	capacity := int64(len(s.inst.data))
	if s.cursor >= capacity {
		return 0, fmt.Errorf("write instance %d at offset %d: %w", s.inst.id, s.cursor, ErrNoSpace)
	}

	actual := bounds.Room(s.cursor, capacity, n)
	if actual == 0 {
		return 0, fmt.Errorf("write instance %d at offset %d: %w", s.inst.id, s.cursor, ErrNoSpace)
	}

	if src == nil {
		return 0, fmt.Errorf("write instance %d: nil source: %w", s.inst.id, ErrFault)
	}

	// Stage first so a failed copy never leaves a half-written buffer.
	staged := make([]byte, actual)

	err := src.CopyIn(staged)
	if err != nil {
		s.reg.log.Debug("copy in failed", zap.Int("id", s.inst.id), zap.Int("n", actual), zap.Error(err))

		return 0, fmt.Errorf("write instance %d: %w", s.inst.id, asFault(err))
	}

	s.inst.mu.Lock()
	copy(s.inst.data[s.cursor:], staged)
	s.cursor += int64(actual)

	if s.cursor > int64(s.inst.validLen) {
		s.inst.validLen = int(s.cursor)
	}

	validLen := s.inst.validLen
	s.inst.mu.Unlock()

	s.reg.log.Debug("write",
		zap.Int("id", s.inst.id),
		zap.Int("n", actual),
		zap.Int64("cursor", s.cursor),
		zap.Int("valid_len", validLen),
	)

	return actual, nil
}

// asFault makes sure a boundary copy error matches ErrFault while keeping
// the original cause in the chain.
func asFault(err error) error {
	if errors.Is(err, ErrFault) {
		return err
	}

	return fmt.Errorf("%w: %w", ErrFault, err)
}
