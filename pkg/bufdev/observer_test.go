package bufdev_test

import (
	"io"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/calvinalkan/bufdev/pkg/bufdev"
)

type recorder struct {
	mu     sync.Mutex
	events []bufdev.Event
}

func (r *recorder) Observe(ev bufdev.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, ev)
}

func Test_Observer_Receives_Event_When_Each_Operation_Completes(t *testing.T) {
	t.Parallel()

	rec := &recorder{}

	reg, err := bufdev.New(bufdev.Options{Count: 1, Capacity: 4, SingleOpen: true, Observer: rec})
	require.NoError(t, err)

	s, err := reg.Open(0, bufdev.ReadWrite)
	require.NoError(t, err)

	_, err = reg.Open(0, bufdev.ReadWrite)
	require.ErrorIs(t, err, bufdev.ErrBusy)

	_, err = s.WriteFrom(bufdev.UserBuffer([]byte("abcdef")), 6)
	require.NoError(t, err)

	_, err = s.Seek(1, io.SeekStart)
	require.NoError(t, err)

	_, err = s.ReadTo(bufdev.UserBuffer(make([]byte, 2)), 2)
	require.NoError(t, err)

	require.NoError(t, s.Control(bufdev.CmdClearBuffer, nil))
	require.NoError(t, s.Close())

	want := []bufdev.Event{
		{Op: bufdev.OpOpen, ID: 0},
		{Op: bufdev.OpOpen, ID: 0, Err: bufdev.ErrBusy},
		{Op: bufdev.OpWrite, ID: 0, N: 4},
		{Op: bufdev.OpSeek, ID: 0, N: 1},
		{Op: bufdev.OpRead, ID: 0, N: 2},
		{Op: bufdev.OpControl, ID: 0},
		{Op: bufdev.OpClose, ID: 0},
	}

	if diff := cmp.Diff(want, rec.events, cmpopts.EquateErrors()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func Test_Observer_Func_Adapts_Plain_Function(t *testing.T) {
	t.Parallel()

	var got []bufdev.Op

	obs := bufdev.ObserverFunc(func(ev bufdev.Event) { got = append(got, ev.Op) })

	reg, err := bufdev.New(bufdev.Options{Count: 1, Capacity: 4, Observer: obs})
	require.NoError(t, err)

	s, err := reg.Open(0, bufdev.ReadOnly)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	require.Equal(t, []bufdev.Op{bufdev.OpOpen, bufdev.OpClose}, got)
	require.Equal(t, "control", bufdev.OpControl.String())
}

func Test_Seek_Logs_Clamp_When_Target_Past_Capacity(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)

	reg, err := bufdev.New(bufdev.Options{Count: 1, Capacity: 8, Logger: zap.New(core)})
	require.NoError(t, err)

	s, err := reg.Open(0, bufdev.ReadWrite)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.Seek(100, io.SeekStart)
	require.NoError(t, err)

	clamped := logs.FilterMessage("clamping seek to capacity").All()
	require.Len(t, clamped, 1)
	require.Equal(t, int64(100), clamped[0].ContextMap()["pos"])
	require.Equal(t, int64(8), clamped[0].ContextMap()["capacity"])

	require.Equal(t, 1, logs.FilterMessage("registry created").Len())
}

func Test_New_Logs_Warning_When_Options_Rejected(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)

	_, err := bufdev.New(bufdev.Options{Count: 0, Logger: zap.New(core)})
	require.ErrorIs(t, err, bufdev.ErrInvalidInput)

	require.Equal(t, 1, logs.FilterMessage("rejecting registry options").Len())
}
