package bufdev

import (
	"fmt"
	"io"

	"github.com/calvinalkan/bufdev/internal/bounds"
	"go.uber.org/zap"
)

// Seek sets the cursor relative to the start, the current position, or the
// high-water mark (io.SeekEnd is relative to the valid length, not the
// capacity). Positions past capacity are clamped to capacity so a later
// write lands exactly at the end. Negative positions and unknown whence
// values fail with ErrInvalidInput and leave the cursor unchanged.
func (s *session) Seek(offset int64, whence int) (int64, error) {
	pos, err := s.seek(offset, whence)

	s.reg.observer.Observe(Event{Op: OpSeek, ID: s.inst.id, N: pos, Err: err})

	return pos, err
}

func (s *session) seek(offset int64, whence int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isClosed {
		return 0, ErrClosed
	}

	var origin int64

	switch whence {
	case io.SeekStart:
		origin = 0
	case io.SeekCurrent:
		origin = s.cursor
	case io.SeekEnd:
		origin = int64(s.inst.ValidLen())
	default:
		return 0, fmt.Errorf("whence %d: %w", whence, ErrInvalidInput)
	}

	next, ok := bounds.AddInt64(origin, offset)
	if !ok {
		return 0, fmt.Errorf("seek %d from %d overflows: %w", offset, origin, ErrInvalidInput)
	}

	if next < 0 {
		s.reg.log.Debug("seek to negative position", zap.Int("id", s.inst.id), zap.Int64("pos", next))

		return 0, fmt.Errorf("seek to negative position %d: %w", next, ErrInvalidInput)
	}

	capacity := int64(len(s.inst.data))
	if next > capacity {
		s.reg.log.Debug("clamping seek to capacity",
			zap.Int("id", s.inst.id),
			zap.Int64("pos", next),
			zap.Int64("capacity", capacity),
		)

		next = capacity
	}

	s.cursor = next

	return next, nil
}
