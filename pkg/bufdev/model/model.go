// Package model provides a deliberately simple, in-memory state model of
// bufdev's publicly observable behavior.
//
// The model is intentionally easy to audit: it favors clarity over
// performance and keeps no locks. Property tests drive it and a real
// registry with the same operations and compare results.
package model

import (
	"io"

	"github.com/calvinalkan/bufdev/pkg/bufdev"
)

// Instance mirrors one bounded buffer.
type Instance struct {
	Data     []byte
	ValidLen int
	Perm     bufdev.Mode
	Held     bool
}

// Device mirrors a registry.
type Device struct {
	Base       int
	SingleOpen bool
	Instances  []*Instance
}

// Session mirrors an open handle.
type Session struct {
	Inst     *Instance
	Mode     bufdev.Mode
	Cursor   int64
	IsClosed bool
	gated    bool
}

// New returns a device with count instances of the given capacity, all
// readable and writable.
func New(count, capacity, base int, singleOpen bool) *Device {
	dev := &Device{Base: base, SingleOpen: singleOpen}
	for range count {
		dev.Instances = append(dev.Instances, &Instance{
			Data: make([]byte, capacity),
			Perm: bufdev.ReadWrite,
		})
	}

	return dev
}

// Open mirrors Registry.Open.
func (d *Device) Open(id int, mode bufdev.Mode) (*Session, error) {
	idx := id - d.Base
	if idx < 0 || idx >= len(d.Instances) {
		return nil, bufdev.ErrNotFound
	}

	inst := d.Instances[idx]

	if mode != bufdev.ReadOnly && mode != bufdev.WriteOnly && mode != bufdev.ReadWrite {
		return nil, bufdev.ErrInvalidInput
	}

	if mode&^inst.Perm != 0 {
		return nil, bufdev.ErrPermission
	}

	if d.SingleOpen {
		if inst.Held {
			return nil, bufdev.ErrBusy
		}

		inst.Held = true
	}

	return &Session{Inst: inst, Mode: mode, gated: d.SingleOpen}, nil
}

// Close mirrors Session.Close.
func (s *Session) Close() {
	if s.IsClosed {
		return
	}

	s.IsClosed = true
	if s.gated {
		s.Inst.Held = false
	}
}

// Read mirrors Session.ReadTo with an always-accessible destination and
// returns the bytes read.
func (s *Session) Read(n int) ([]byte, error) {
	switch {
	case s.IsClosed:
		return nil, bufdev.ErrClosed
	case !s.Mode.CanRead():
		return nil, bufdev.ErrPermission
	case n < 0:
		return nil, bufdev.ErrInvalidInput
	}

	if s.Cursor >= int64(s.Inst.ValidLen) {
		return nil, nil
	}

	avail := int(int64(s.Inst.ValidLen) - s.Cursor)
	actual := min(n, avail)

	out := make([]byte, actual)
	copy(out, s.Inst.Data[s.Cursor:s.Cursor+int64(actual)])
	s.Cursor += int64(actual)

	return out, nil
}

// Write mirrors Session.WriteFrom with an always-accessible source.
func (s *Session) Write(p []byte) (int, error) {
	switch {
	case s.IsClosed:
		return 0, bufdev.ErrClosed
	case !s.Mode.CanWrite():
		return 0, bufdev.ErrPermission
	}

	capacity := int64(len(s.Inst.Data))
	if s.Cursor >= capacity {
		return 0, bufdev.ErrNoSpace
	}

	actual := min(int64(len(p)), capacity-s.Cursor)
	if actual == 0 {
		return 0, bufdev.ErrNoSpace
	}

	copy(s.Inst.Data[s.Cursor:], p[:actual])
	s.Cursor += actual

	if s.Cursor > int64(s.Inst.ValidLen) {
		s.Inst.ValidLen = int(s.Cursor)
	}

	return int(actual), nil
}

// Seek mirrors Session.Seek.
func (s *Session) Seek(offset int64, whence int) (int64, error) {
	if s.IsClosed {
		return 0, bufdev.ErrClosed
	}

	var next int64

	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = s.Cursor + offset
	case io.SeekEnd:
		next = int64(s.Inst.ValidLen) + offset
	default:
		return 0, bufdev.ErrInvalidInput
	}

	if next < 0 {
		return 0, bufdev.ErrInvalidInput
	}

	next = min(next, int64(len(s.Inst.Data)))
	s.Cursor = next

	return next, nil
}

// Clear mirrors CmdClearBuffer.
func (s *Session) Clear() error {
	if err := s.mutable(); err != nil {
		return err
	}

	clear(s.Inst.Data)
	s.Inst.ValidLen = 0

	return nil
}

// Fill mirrors CmdFillBuffer.
func (s *Session) Fill(b byte) error {
	if err := s.mutable(); err != nil {
		return err
	}

	for i := range s.Inst.Data {
		s.Inst.Data[i] = b
	}

	s.Inst.ValidLen = len(s.Inst.Data)

	return nil
}

func (s *Session) mutable() error {
	if s.IsClosed {
		return bufdev.ErrClosed
	}

	if !s.Mode.CanWrite() {
		return bufdev.ErrPermission
	}

	return nil
}

// Contents returns the valid bytes of inst.
func (inst *Instance) Contents() []byte {
	out := make([]byte, inst.ValidLen)
	copy(out, inst.Data[:inst.ValidLen])

	return out
}
