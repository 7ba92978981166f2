package bufdev

import (
	"encoding/binary"
	"fmt"

	"go.uber.org/zap"
)

// Command is a control opcode. The 32-bit layout follows the Linux _IOC
// convention:
//
//	bits 31-30  direction (none, write, read)
//	bits 29-16  argument size in bytes
//	bits 15-8   family (the driver's magic number)
//	bits 7-0    ordinal within the family
type Command uint32

// Direction says which way a command's argument travels.
type Direction uint8

const (
	DirNone  Direction = 0 // no argument
	DirWrite Direction = 1 // caller → instance
	DirRead  Direction = 2 // instance → caller
)

const (
	ordinalBits = 8
	familyBits  = 8
	sizeBits    = 14

	familyShift = ordinalBits
	sizeShift   = familyShift + familyBits
	dirShift    = sizeShift + sizeBits

	ordinalMask = 1<<ordinalBits - 1
	familyMask  = 1<<familyBits - 1
	sizeMask    = 1<<sizeBits - 1
	dirMask     = 1<<2 - 1
)

// Magic is the command family recognized by bufdev.
const Magic uint8 = 'b'

// maxCommandOrdinal is the highest ordinal in the family. Ordinals up to it
// pass family validation even when no handler exists for them.
const maxCommandOrdinal = 5

// Recognized commands.
//
// Ordinal 4 belonged to a command that returned the address of the backing
// buffer. It is intentionally not implemented and returns ErrNotSupported.
var (
	// CmdGetCapacity writes the capacity as a little-endian uint64 into arg.
	CmdGetCapacity = NewCommand(DirRead, Magic, 1, 8)

	// CmdClearBuffer zero-fills the buffer and resets the valid length.
	CmdClearBuffer = NewCommand(DirNone, Magic, 2, 0)

	// CmdFillBuffer fills the whole buffer with arg[0] and marks it valid.
	CmdFillBuffer = NewCommand(DirWrite, Magic, 3, 1)

	// CmdGetValidLength writes the valid length as a little-endian uint64
	// into arg.
	CmdGetValidLength = NewCommand(DirRead, Magic, 5, 8)
)

// NewCommand encodes a command. size is truncated to 14 bits.
func NewCommand(dir Direction, family, ordinal uint8, size int) Command {
	return Command(uint32(dir&dirMask)<<dirShift |
		uint32(size&sizeMask)<<sizeShift |
		uint32(family)<<familyShift |
		uint32(ordinal))
}

// Direction returns the argument direction.
func (c Command) Direction() Direction { return Direction(c >> dirShift & dirMask) }

// Size returns the argument size in bytes.
func (c Command) Size() int { return int(c >> sizeShift & sizeMask) }

// Family returns the command family.
func (c Command) Family() uint8 { return uint8(c >> familyShift & familyMask) }

// Ordinal returns the command number within its family.
func (c Command) Ordinal() uint8 { return uint8(c & ordinalMask) }

func (c Command) String() string {
	switch c {
	case CmdGetCapacity:
		return "get-capacity"
	case CmdClearBuffer:
		return "clear"
	case CmdFillBuffer:
		return "fill"
	case CmdGetValidLength:
		return "get-length"
	default:
		return fmt.Sprintf("cmd(%#08x)", uint32(c))
	}
}

// Control validates cmd and dispatches it. Commands outside the family, or
// with an ordinal past the family's range, fail with ErrNotSupported
// before arg is looked at. An arg shorter than cmd.Size() fails with
// ErrFault.
func (s *session) Control(cmd Command, arg []byte) error {
	err := s.control(cmd, arg)

	s.reg.observer.Observe(Event{Op: OpControl, ID: s.inst.id, Err: err})

	if err != nil {
		s.reg.log.Debug("control failed", zap.Int("id", s.inst.id), zap.Stringer("cmd", cmd), zap.Error(err))
	} else {
		s.reg.log.Debug("control", zap.Int("id", s.inst.id), zap.Stringer("cmd", cmd))
	}

	return err
}

func (s *session) control(cmd Command, arg []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isClosed {
		return ErrClosed
	}

	if cmd.Family() != Magic || cmd.Ordinal() > maxCommandOrdinal {
		return fmt.Errorf("%s: %w", cmd, ErrNotSupported)
	}

	if len(arg) < cmd.Size() {
		return fmt.Errorf("%s: argument needs %d bytes, got %d: %w", cmd, cmd.Size(), len(arg), ErrFault)
	}

	switch cmd {
	case CmdGetCapacity:
		binary.LittleEndian.PutUint64(arg, uint64(len(s.inst.data)))
	case CmdGetValidLength:
		binary.LittleEndian.PutUint64(arg, uint64(s.inst.ValidLen()))
	case CmdClearBuffer:
		if !s.mode.CanWrite() {
			return fmt.Errorf("%s on session opened %s: %w", cmd, s.mode, ErrPermission)
		}

		s.inst.clear()
	case CmdFillBuffer:
		if !s.mode.CanWrite() {
			return fmt.Errorf("%s on session opened %s: %w", cmd, s.mode, ErrPermission)
		}

		s.inst.fill(arg[0])
	default:
		return fmt.Errorf("%s: %w", cmd, ErrNotSupported)
	}

	return nil
}
