package bufdev

// Destination is caller memory that receives bytes read from an instance.
//
// CopyOut must copy all of src or fail. A failure is reported to the caller
// as [ErrFault] and the read does not advance the cursor.
type Destination interface {
	CopyOut(src []byte) error
}

// Source is caller memory that provides bytes written to an instance.
//
// CopyIn must fill all of dst or fail. A failure is reported to the caller
// as [ErrFault] and the write leaves the instance untouched.
type Source interface {
	CopyIn(dst []byte) error
}

// UserBuffer adapts a byte slice to [Destination] and [Source].
//
// A copy that does not fit in the slice fails, the way copy_to_user fails on
// a destination that is not accessible for the full length.
type UserBuffer []byte

// CopyOut copies src into the start of b.
func (b UserBuffer) CopyOut(src []byte) error {
	if len(b) < len(src) {
		return ErrFault
	}

	copy(b, src)

	return nil
}

// CopyIn fills dst from the start of b.
func (b UserBuffer) CopyIn(dst []byte) error {
	if len(b) < len(dst) {
		return ErrFault
	}

	copy(dst, b)

	return nil
}
