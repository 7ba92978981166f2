//go:build unix

package cli

import (
	"golang.org/x/sys/unix"

	"github.com/calvinalkan/bufdev/pkg/bufdev"
)

// errnoName returns the errno a driver would report for err, e.g. "EBUSY".
// Errors that are not bufdev errors (usage mistakes) have no name.
func errnoName(err error) string {
	errno := bufdev.Errno(err)
	if errno == 0 || errno == unix.EIO {
		return ""
	}

	return unix.ErrnoName(errno)
}
