package recorder_test

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"codeberg.org/mutker/capturectl/internal/errors"
	"codeberg.org/mutker/capturectl/internal/recorder"
	"codeberg.org/mutker/capturectl/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	name     string
	availErr error
	startErr error

	dir        string
	startedAt  time.Time
	started    atomic.Bool
	wantStop   atomic.Bool
	stopped    atomic.Bool
	stopCalls  atomic.Int32
	joinCalls  atomic.Int32
	joinReport *telemetry.Report
}

func (r *fakeRecorder) Name() string             { return r.name }
func (r *fakeRecorder) CheckAvailability() error { return r.availErr }
func (r *fakeRecorder) SetOutputDir(dir string)  { r.dir = dir }

func (r *fakeRecorder) Start() error {
	if r.startErr != nil {
		return r.startErr
	}
	r.startedAt = time.Now()
	r.started.Store(true)
	return nil
}

func (r *fakeRecorder) ShouldStop() bool { return r.wantStop.Load() }

func (r *fakeRecorder) Stop() {
	r.stopCalls.Add(1)
	r.stopped.Store(true)
}

func (r *fakeRecorder) Join() (*telemetry.Report, error) {
	r.joinCalls.Add(1)
	if !r.stopped.Load() {
		return nil, errors.New().New(recorder.ErrInvalidOperation)
	}
	return r.joinReport, nil
}

func TestSessionExcludesUnavailable(t *testing.T) {
	root := t.TempDir()
	usable := &fakeRecorder{name: "screen"}
	broken := &fakeRecorder{name: "gamepad", availErr: errors.New().New(recorder.ErrUnavailable)}

	session, err := recorder.NewSession(root, []recorder.Recorder{usable, broken})
	require.NoError(t, err)

	assert.Equal(t, []string{"screen"}, session.Recorders())
	assert.NotEmpty(t, session.ID())

	// The session directory is a timestamp-named child of the root.
	info, err := os.Stat(session.Dir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, root, filepath.Dir(session.Dir()))
	assert.Equal(t, session.Dir(), usable.dir, "output dir propagates to kept recorders")
}

func TestSessionNoUsableRecorders(t *testing.T) {
	unavailable := errors.New().New(recorder.ErrUnavailable)
	_, err := recorder.NewSession(t.TempDir(), []recorder.Recorder{
		&fakeRecorder{name: "keyboard", availErr: unavailable},
		&fakeRecorder{name: "mouse", availErr: unavailable},
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrNoRecorders))
}

func TestSessionJoinBeforeStop(t *testing.T) {
	session, err := recorder.NewSession(t.TempDir(), []recorder.Recorder{&fakeRecorder{name: "screen"}})
	require.NoError(t, err)
	require.NoError(t, session.Start())

	_, err = session.Join()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidOperation))

	session.Stop()
	_, err = session.Join()
	assert.NoError(t, err)
}

func TestSessionStopIdempotent(t *testing.T) {
	rec := &fakeRecorder{name: "screen"}
	session, err := recorder.NewSession(t.TempDir(), []recorder.Recorder{rec})
	require.NoError(t, err)
	require.NoError(t, session.Start())

	session.Stop()
	session.Stop()
	assert.Equal(t, int32(1), rec.stopCalls.Load(), "recorders see exactly one stop")
}

func TestSessionStartFailureStopsStarted(t *testing.T) {
	first := &fakeRecorder{name: "screen"}
	second := &fakeRecorder{name: "keyboard", startErr: errors.New().New(recorder.ErrStartFailed)}

	session, err := recorder.NewSession(t.TempDir(), []recorder.Recorder{first, second})
	require.NoError(t, err)

	require.Error(t, session.Start())
	assert.Equal(t, int32(1), first.stopCalls.Load(), "recorders started before the failure are stopped")
}

func TestRunUntilStopRecorderRequest(t *testing.T) {
	rec := &fakeRecorder{name: "hotkey"}
	session, err := recorder.NewSession(t.TempDir(), []recorder.Recorder{rec})
	require.NoError(t, err)
	require.NoError(t, session.Start())

	go func() {
		time.Sleep(150 * time.Millisecond)
		rec.wantStop.Store(true)
	}()

	done := make(chan struct{})
	go func() {
		session.RunUntilStop(0)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("poll loop did not observe the stop request")
	}
	assert.True(t, rec.stopped.Load())
}

func TestRunUntilStopTimeout(t *testing.T) {
	rec := &fakeRecorder{name: "screen"}
	session, err := recorder.NewSession(t.TempDir(), []recorder.Recorder{rec})
	require.NoError(t, err)
	require.NoError(t, session.Start())

	start := time.Now()
	session.RunUntilStop(200 * time.Millisecond)

	assert.Less(t, time.Since(start), 3*time.Second)
	assert.True(t, rec.stopped.Load(), "timeout stops the session on its own")
}

func TestRunUntilStopExternalStop(t *testing.T) {
	rec := &fakeRecorder{name: "screen"}
	session, err := recorder.NewSession(t.TempDir(), []recorder.Recorder{rec})
	require.NoError(t, err)
	require.NoError(t, session.Start())

	go func() {
		time.Sleep(100 * time.Millisecond)
		session.Stop() // what the signal handler does
	}()

	done := make(chan struct{})
	go func() {
		session.RunUntilStop(0)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("poll loop did not observe the external stop")
	}
}

func TestRunSleepsDelayBeforeStart(t *testing.T) {
	rec := &fakeRecorder{name: "screen"}
	rec.wantStop.Store(true)

	session, err := recorder.NewSession(t.TempDir(), []recorder.Recorder{rec})
	require.NoError(t, err)

	begin := time.Now()
	_, err = session.Run(300*time.Millisecond, 0)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, rec.startedAt.Sub(begin), 300*time.Millisecond,
		"no recorder may start, and so nothing may be captured, before the delay elapses")
}

func TestSessionRunReturnsPipelineReport(t *testing.T) {
	report := &telemetry.Report{SessionID: "r"}
	screen := &fakeRecorder{name: "screen", joinReport: report}
	screen.wantStop.Store(true)
	keyboard := &fakeRecorder{name: "keyboard"}

	session, err := recorder.NewSession(t.TempDir(), []recorder.Recorder{screen, keyboard})
	require.NoError(t, err)

	got, err := session.Run(0, 0)
	require.NoError(t, err)
	assert.Same(t, report, got)
	assert.Equal(t, int32(1), keyboard.joinCalls.Load())
}
