package bufdev_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/bufdev/pkg/bufdev"
)

func Test_New_Rejects_Options_When_Out_Of_Range(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts bufdev.Options
	}{
		{"zero_count", bufdev.Options{Count: 0}},
		{"negative_count", bufdev.Options{Count: -3}},
		{"count_over_default_max", bufdev.Options{Count: bufdev.DefaultMaxInstances + 1}},
		{"count_over_explicit_max", bufdev.Options{Count: 3, MaxInstances: 2}},
		{"negative_max", bufdev.Options{Count: 1, MaxInstances: -1}},
		{"max_over_limit", bufdev.Options{Count: 1, MaxInstances: 1 << 20}},
		{"negative_base", bufdev.Options{Count: 1, Base: -1}},
		{"base_overflow", bufdev.Options{Count: 2, Base: int(^uint(0) >> 1)}},
		{"negative_capacity", bufdev.Options{Count: 1, Capacity: -1}},
		{"huge_capacity", bufdev.Options{Count: 1, Capacity: 1 << 40}},
		{"override_count_mismatch", bufdev.Options{Count: 2, Instances: []bufdev.InstanceOptions{{}}}},
		{"override_bad_capacity", bufdev.Options{Count: 1, Instances: []bufdev.InstanceOptions{{Capacity: -5}}}},
		{"override_bad_permission", bufdev.Options{Count: 1, Instances: []bufdev.InstanceOptions{{Permission: 0x42}}}},
		{"override_long_serial", bufdev.Options{Count: 1, Instances: []bufdev.InstanceOptions{{Serial: string(make([]byte, 65))}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			reg, err := bufdev.New(tt.opts)
			require.ErrorIs(t, err, bufdev.ErrInvalidInput)
			require.Nil(t, reg)
		})
	}
}

func Test_New_Creates_Empty_Instances_When_Options_Are_Valid(t *testing.T) {
	t.Parallel()

	reg, err := bufdev.New(bufdev.Options{Count: 3, Capacity: 16, Base: 10})
	require.NoError(t, err)

	require.Equal(t, 3, reg.Len())
	require.Equal(t, 10, reg.Base())
	require.False(t, reg.SingleOpen())

	if diff := cmp.Diff([]int{10, 11, 12}, reg.IDs()); diff != "" {
		t.Fatalf("IDs mismatch (-want +got):\n%s", diff)
	}

	for _, id := range reg.IDs() {
		info, err := reg.Info(id)
		require.NoError(t, err)

		require.Equal(t, id, info.ID)
		require.Equal(t, 16, info.Capacity)
		require.Zero(t, info.ValidLen)
		require.Equal(t, bufdev.ReadWrite, info.Permission)
		require.Zero(t, info.OpenSessions)

		_, err = uuid.Parse(info.Serial)
		require.NoError(t, err, "default serial should be a uuid")
	}
}

func Test_New_Uses_Default_Capacity_When_Capacity_Is_Zero(t *testing.T) {
	t.Parallel()

	reg, err := bufdev.New(bufdev.Options{Count: 1})
	require.NoError(t, err)

	inst, err := reg.Resolve(0)
	require.NoError(t, err)
	require.Equal(t, bufdev.DefaultCapacity, inst.Capacity())
}

func Test_New_Accepts_Count_Equal_To_Max(t *testing.T) {
	t.Parallel()

	reg, err := bufdev.New(bufdev.Options{Count: bufdev.DefaultMaxInstances})
	require.NoError(t, err)
	require.Equal(t, bufdev.DefaultMaxInstances, reg.Len())

	reg, err = bufdev.New(bufdev.Options{Count: 8, MaxInstances: 8})
	require.NoError(t, err)
	require.Equal(t, 8, reg.Len())
}

func Test_New_Applies_Instance_Overrides_When_Given(t *testing.T) {
	t.Parallel()

	reg, err := bufdev.New(bufdev.Options{
		Count:    3,
		Capacity: 32,
		Base:     1,
		Instances: []bufdev.InstanceOptions{
			{Capacity: 8, Permission: bufdev.ReadOnly, Serial: "A-1"},
			{},
			{Permission: bufdev.WriteOnly, Serial: "C-3"},
		},
	})
	require.NoError(t, err)

	got := make([]bufdev.InstanceInfo, 0, reg.Len())

	for _, id := range reg.IDs() {
		info, err := reg.Info(id)
		require.NoError(t, err)

		// The generated serial is random; blank it for comparison.
		if id == 2 {
			require.NotEmpty(t, info.Serial)
			info.Serial = ""
		}

		got = append(got, info)
	}

	want := []bufdev.InstanceInfo{
		{ID: 1, Capacity: 8, Permission: bufdev.ReadOnly, Serial: "A-1"},
		{ID: 2, Capacity: 32, Permission: bufdev.ReadWrite},
		{ID: 3, Capacity: 32, Permission: bufdev.WriteOnly, Serial: "C-3"},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("instance info mismatch (-want +got):\n%s", diff)
	}
}

func Test_Resolve_Returns_ErrNotFound_When_Identifier_Outside_Range(t *testing.T) {
	t.Parallel()

	reg, err := bufdev.New(bufdev.Options{Count: 2, Base: 5, Capacity: 4})
	require.NoError(t, err)

	for _, id := range []int{-1, 0, 4, 7, 1 << 30} {
		_, err := reg.Resolve(id)
		require.ErrorIs(t, err, bufdev.ErrNotFound, "id %d", id)

		_, err = reg.Open(id, bufdev.ReadWrite)
		require.ErrorIs(t, err, bufdev.ErrNotFound, "open id %d", id)

		_, err = reg.Info(id)
		require.ErrorIs(t, err, bufdev.ErrNotFound, "info id %d", id)
	}

	for _, id := range []int{5, 6} {
		inst, err := reg.Resolve(id)
		require.NoError(t, err)
		require.Equal(t, id, inst.ID())
	}
}

func Test_Open_Rejects_Mode_When_Invalid_Or_Not_Permitted(t *testing.T) {
	t.Parallel()

	reg, err := bufdev.New(bufdev.Options{
		Count:     2,
		Capacity:  4,
		Instances: []bufdev.InstanceOptions{{Permission: bufdev.ReadOnly}, {Permission: bufdev.WriteOnly}},
	})
	require.NoError(t, err)

	_, err = reg.Open(0, 0)
	require.ErrorIs(t, err, bufdev.ErrInvalidInput)

	_, err = reg.Open(0, bufdev.Mode(0x07))
	require.ErrorIs(t, err, bufdev.ErrInvalidInput)

	_, err = reg.Open(0, bufdev.ReadWrite)
	require.ErrorIs(t, err, bufdev.ErrPermission)

	_, err = reg.Open(0, bufdev.WriteOnly)
	require.ErrorIs(t, err, bufdev.ErrPermission)

	_, err = reg.Open(1, bufdev.ReadOnly)
	require.ErrorIs(t, err, bufdev.ErrPermission)

	s, err := reg.Open(0, bufdev.ReadOnly)
	require.NoError(t, err)
	require.Equal(t, bufdev.ReadOnly, s.Mode())
	require.Zero(t, s.Cursor())
	require.NoError(t, s.Close())
}

func Test_Instances_Are_Isolated_When_Writing_One(t *testing.T) {
	t.Parallel()

	reg, err := bufdev.New(bufdev.Options{Count: 2, Capacity: 8})
	require.NoError(t, err)

	s, err := reg.Open(0, bufdev.ReadWrite)
	require.NoError(t, err)

	_, err = s.Write([]byte("abc"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	other, err := reg.Resolve(1)
	require.NoError(t, err)
	require.Zero(t, other.ValidLen())
	require.Empty(t, other.Contents())
}

func Test_ParseMode_Accepts_Aliases(t *testing.T) {
	t.Parallel()

	cases := map[string]bufdev.Mode{
		"ro": bufdev.ReadOnly, "r": bufdev.ReadOnly, "rdonly": bufdev.ReadOnly,
		"wo": bufdev.WriteOnly, "w": bufdev.WriteOnly, "wronly": bufdev.WriteOnly,
		"rw": bufdev.ReadWrite, "rdwr": bufdev.ReadWrite,
	}

	for in, want := range cases {
		got, err := bufdev.ParseMode(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	_, err := bufdev.ParseMode("append")
	require.True(t, errors.Is(err, bufdev.ErrInvalidInput))

	require.Equal(t, "rw", bufdev.ReadWrite.String())
	require.Equal(t, "Mode(0x7)", bufdev.Mode(7).String())
}
