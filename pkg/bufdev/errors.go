package bufdev

import "errors"

// Sentinel errors returned by bufdev operations.
//
// Callers should use [errors.Is] to check error types:
//
//	if errors.Is(err, bufdev.ErrBusy) {
//	    // retry later
//	}
var (
	// ErrNotFound indicates the identifier does not resolve to an instance.
	//
	// This is a configuration or programming error upstream.
	ErrNotFound = errors.New("bufdev: no such instance")

	// ErrBusy indicates the instance is single-open and already held by
	// another session.
	//
	// Recovery: retry after the other session closes.
	ErrBusy = errors.New("bufdev: busy")

	// ErrNoSpace indicates a write found zero room at the cursor.
	//
	// The cursor is unchanged. Seek backwards or clear the buffer.
	ErrNoSpace = errors.New("bufdev: no space left")

	// ErrFault indicates the copy across the trust boundary failed, or a
	// control argument buffer is too small for its command.
	//
	// No state was changed.
	ErrFault = errors.New("bufdev: bad address")

	// ErrInvalidInput indicates invalid arguments: a seek to a negative
	// position, an unknown whence, a negative length, or options rejected
	// by [New].
	//
	// This is a programming error.
	ErrInvalidInput = errors.New("bufdev: invalid argument")

	// ErrNotSupported indicates a control command outside the recognized
	// family or ordinal range.
	ErrNotSupported = errors.New("bufdev: command not supported")

	// ErrPermission indicates the access mode does not allow the operation:
	// opening an instance in a mode its permission forbids, reading a
	// write-only session, or writing a read-only one.
	ErrPermission = errors.New("bufdev: permission denied")

	// ErrClosed indicates the [Session] has already been closed.
	//
	// This is a programming error.
	ErrClosed = errors.New("bufdev: session closed")
)
