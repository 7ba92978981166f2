//go:build unix

package bufdev

import (
	"errors"

	"golang.org/x/sys/unix"
)

// Errno translates a bufdev error into the errno a character device driver
// would return for it. nil maps to 0 and unknown errors map to EIO.
func Errno(err error) unix.Errno {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrNotFound):
		return unix.ENODEV
	case errors.Is(err, ErrBusy):
		return unix.EBUSY
	case errors.Is(err, ErrNoSpace):
		return unix.ENOSPC
	case errors.Is(err, ErrFault):
		return unix.EFAULT
	case errors.Is(err, ErrInvalidInput):
		return unix.EINVAL
	case errors.Is(err, ErrNotSupported):
		return unix.ENOTTY
	case errors.Is(err, ErrPermission):
		return unix.EACCES
	case errors.Is(err, ErrClosed):
		return unix.EBADF
	default:
		return unix.EIO
	}
}
