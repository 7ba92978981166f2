package model_test

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/bufdev/pkg/bufdev"
	"github.com/calvinalkan/bufdev/pkg/bufdev/model"
)

func Test_Model_Stores_What_Fits_When_Write_Exceeds_Capacity(t *testing.T) {
	t.Parallel()

	dev := model.New(1, 1024, 0, false)

	s, err := dev.Open(0, bufdev.ReadWrite)
	require.NoError(t, err)

	n, err := s.Write(make([]byte, 1200))
	require.NoError(t, err)
	require.Equal(t, 1024, n)
	require.Equal(t, 1024, dev.Instances[0].ValidLen)

	_, err = s.Write([]byte{1})
	require.ErrorIs(t, err, bufdev.ErrNoSpace)
}

func Test_Model_Returns_ErrBusy_When_Single_Open_Instance_Held(t *testing.T) {
	t.Parallel()

	dev := model.New(2, 8, 3, true)

	s, err := dev.Open(3, bufdev.ReadWrite)
	require.NoError(t, err)

	_, err = dev.Open(3, bufdev.ReadOnly)
	require.ErrorIs(t, err, bufdev.ErrBusy)

	_, err = dev.Open(5, bufdev.ReadOnly)
	require.ErrorIs(t, err, bufdev.ErrNotFound)

	s.Close()
	s.Close()

	_, err = dev.Open(3, bufdev.ReadOnly)
	require.NoError(t, err)
}

func Test_Model_Seek_Clamps_And_Rejects(t *testing.T) {
	t.Parallel()

	dev := model.New(1, 16, 0, false)

	s, err := dev.Open(0, bufdev.ReadWrite)
	require.NoError(t, err)

	pos, err := s.Seek(40, io.SeekStart)
	require.NoError(t, err)
	require.Equal(t, int64(16), pos)

	_, err = s.Seek(-17, io.SeekCurrent)
	require.ErrorIs(t, err, bufdev.ErrInvalidInput)
	require.Equal(t, int64(16), s.Cursor)

	got, err := s.Read(4)
	require.NoError(t, err)
	require.Empty(t, got)
}

func Test_Model_Fill_Marks_Whole_Buffer_Valid(t *testing.T) {
	t.Parallel()

	dev := model.New(1, 4, 0, false)

	s, err := dev.Open(0, bufdev.ReadWrite)
	require.NoError(t, err)

	require.NoError(t, s.Fill('q'))
	require.Equal(t, []byte("qqqq"), dev.Instances[0].Contents())

	require.NoError(t, s.Clear())
	require.Empty(t, dev.Instances[0].Contents())

	r, err := dev.Open(0, bufdev.ReadOnly)
	require.NoError(t, err)
	require.ErrorIs(t, r.Fill(0), bufdev.ErrPermission)
}
