package bufdev_test

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/bufdev/pkg/bufdev"
)

var errUnmapped = errors.New("page not mapped")

// faultyBuffer fails every copy across the boundary.
type faultyBuffer struct{ calls int }

func (f *faultyBuffer) CopyOut([]byte) error {
	f.calls++

	return errUnmapped
}

func (f *faultyBuffer) CopyIn(dst []byte) error {
	f.calls++

	// Scribble before failing; none of it may reach the instance.
	for i := range dst {
		dst[i] = 0xEE
	}

	return errUnmapped
}

func Test_ReadTo_Returns_ErrFault_And_Keeps_Cursor_When_Destination_Fails(t *testing.T) {
	t.Parallel()

	reg, err := bufdev.New(bufdev.Options{Count: 1, Capacity: 32})
	require.NoError(t, err)

	s, err := reg.Open(0, bufdev.ReadWrite)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.Write([]byte("abcdef"))
	require.NoError(t, err)
	_, err = s.Seek(1, io.SeekStart)
	require.NoError(t, err)

	dst := &faultyBuffer{}

	n, err := s.ReadTo(dst, 4)
	require.ErrorIs(t, err, bufdev.ErrFault)
	require.ErrorIs(t, err, errUnmapped)
	require.Zero(t, n)
	require.Equal(t, 1, dst.calls)
	require.Equal(t, int64(1), s.Cursor())

	// A short user slice behaves like an inaccessible destination.
	_, err = s.ReadTo(bufdev.UserBuffer(make([]byte, 2)), 4)
	require.ErrorIs(t, err, bufdev.ErrFault)
	require.Equal(t, int64(1), s.Cursor())

	_, err = s.ReadTo(nil, 4)
	require.ErrorIs(t, err, bufdev.ErrFault)
}

func Test_WriteFrom_Returns_ErrFault_And_Leaves_Instance_When_Source_Fails(t *testing.T) {
	t.Parallel()

	reg, err := bufdev.New(bufdev.Options{Count: 1, Capacity: 32})
	require.NoError(t, err)

	s, err := reg.Open(0, bufdev.ReadWrite)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.Write([]byte("keep"))
	require.NoError(t, err)
	_, err = s.Seek(2, io.SeekStart)
	require.NoError(t, err)

	n, err := s.WriteFrom(&faultyBuffer{}, 10)
	require.ErrorIs(t, err, bufdev.ErrFault)
	require.Zero(t, n)
	require.Equal(t, int64(2), s.Cursor())
	require.Equal(t, []byte("keep"), s.Instance().Contents())

	_, err = s.WriteFrom(bufdev.UserBuffer([]byte("x")), 5)
	require.ErrorIs(t, err, bufdev.ErrFault)
	require.Equal(t, 4, s.Instance().ValidLen())

	_, err = s.WriteFrom(nil, 1)
	require.ErrorIs(t, err, bufdev.ErrFault)
}

func Test_WriteFrom_Reports_ErrNoSpace_Before_Touching_Source_When_Full(t *testing.T) {
	t.Parallel()

	reg, err := bufdev.New(bufdev.Options{Count: 1, Capacity: 4})
	require.NoError(t, err)

	s, err := reg.Open(0, bufdev.ReadWrite)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.Seek(4, io.SeekStart)
	require.NoError(t, err)

	src := &faultyBuffer{}

	_, err = s.WriteFrom(src, 1)
	require.ErrorIs(t, err, bufdev.ErrNoSpace)
	require.Zero(t, src.calls)
}
