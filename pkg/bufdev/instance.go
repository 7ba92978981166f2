package bufdev

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// Mode is an access mode. It is used both as the permission an instance
// grants and as the mode a session is opened with.
//
// The bit values match the permission codes of the pseudo character device
// platform data: read 0x01, write 0x10.
type Mode uint8

const (
	ReadOnly  Mode = 0x01
	WriteOnly Mode = 0x10
	ReadWrite Mode = ReadOnly | WriteOnly
)

// CanRead reports whether m includes read access.
func (m Mode) CanRead() bool { return m&ReadOnly != 0 }

// CanWrite reports whether m includes write access.
func (m Mode) CanWrite() bool { return m&WriteOnly != 0 }

func (m Mode) valid() bool {
	return m == ReadOnly || m == WriteOnly || m == ReadWrite
}

// allows reports whether every access bit in want is granted by m.
func (m Mode) allows(want Mode) bool {
	return want&^m == 0
}

func (m Mode) String() string {
	switch m {
	case ReadOnly:
		return "ro"
	case WriteOnly:
		return "wo"
	case ReadWrite:
		return "rw"
	default:
		return fmt.Sprintf("Mode(%#x)", uint8(m))
	}
}

// ParseMode parses "ro", "wo" or "rw" (case-insensitive). The long forms
// "rdonly", "wronly" and "rdwr" are accepted as well.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ro", "r", "rdonly":
		return ReadOnly, nil
	case "wo", "w", "wronly":
		return WriteOnly, nil
	case "rw", "rdwr":
		return ReadWrite, nil
	default:
		return 0, fmt.Errorf("mode %q: %w", s, ErrInvalidInput)
	}
}

// Instance is one independently addressable bounded byte store.
//
// Instances are created by [New] and owned by their [Registry]. The zero
// value is not usable.
type Instance struct {
	_ [0]func() // prevent external construction

	id     int
	serial string
	perm   Mode

	// avail is the single-open admission counter: 1 when free, 0 when held.
	// Only touched by singleOpenGate.
	avail atomic.Int32

	// open counts live sessions, gated or not.
	open atomic.Int32

	// mu guards data and validLen.
	mu       sync.Mutex
	data     []byte
	validLen int
}

func newInstance(id, capacity int, perm Mode, serial string) *Instance {
	inst := &Instance{
		id:     id,
		serial: serial,
		perm:   perm,
		data:   make([]byte, capacity),
	}
	inst.avail.Store(1)

	return inst
}

// ID returns the identifier the registry assigned to the instance.
func (i *Instance) ID() int { return i.id }

// Capacity returns the fixed size of the backing buffer.
func (i *Instance) Capacity() int { return len(i.data) }

// Permission returns the access modes the instance grants.
func (i *Instance) Permission() Mode { return i.perm }

// Serial returns the instance serial number.
func (i *Instance) Serial() string { return i.serial }

// ValidLen returns the current high-water mark.
func (i *Instance) ValidLen() int {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.validLen
}

// Contents returns a copy of the valid bytes.
func (i *Instance) Contents() []byte {
	i.mu.Lock()
	defer i.mu.Unlock()

	out := make([]byte, i.validLen)
	copy(out, i.data[:i.validLen])

	return out
}

// OpenSessions returns the number of sessions currently open on the instance.
func (i *Instance) OpenSessions() int { return int(i.open.Load()) }

// clear zero-fills the buffer and resets validLen.
func (i *Instance) clear() {
	i.mu.Lock()
	defer i.mu.Unlock()

	clear(i.data)
	i.validLen = 0
}

// fill sets every byte to b and marks the whole buffer valid.
func (i *Instance) fill(b byte) {
	i.mu.Lock()
	defer i.mu.Unlock()

	for idx := range i.data {
		i.data[idx] = b
	}

	i.validLen = len(i.data)
}

// InstanceInfo is a point-in-time snapshot of an instance.
type InstanceInfo struct {
	ID           int
	Capacity     int
	ValidLen     int
	Permission   Mode
	Serial       string
	OpenSessions int
}

func (i *Instance) info() InstanceInfo {
	return InstanceInfo{
		ID:           i.id,
		Capacity:     len(i.data),
		ValidLen:     i.ValidLen(),
		Permission:   i.perm,
		Serial:       i.serial,
		OpenSessions: i.OpenSessions(),
	}
}
