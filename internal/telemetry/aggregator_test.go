package telemetry_test

import (
	"testing"
	"time"

	"codeberg.org/mutker/capturectl/internal/errors"
	"codeberg.org/mutker/capturectl/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectAll(t *testing.T) {
	ch := make(chan telemetry.Record, 3)
	ch <- telemetry.GrabRecord{Frames: 10, FPS: 9.5}
	ch <- telemetry.SaveRecord{WorkerID: 0, Frames: 5}
	ch <- telemetry.SaveRecord{WorkerID: 1, Frames: 5}

	records, missing := telemetry.Collect(ch, 3, time.Second)
	assert.Len(t, records, 3)
	assert.Zero(t, missing)
}

func TestCollectPartial(t *testing.T) {
	ch := make(chan telemetry.Record, 3)
	ch <- telemetry.SaveRecord{WorkerID: 0, Frames: 5}

	start := time.Now()
	records, missing := telemetry.Collect(ch, 3, 50*time.Millisecond)
	assert.Len(t, records, 1)
	assert.Equal(t, 2, missing)
	assert.Less(t, time.Since(start), time.Second, "Collect must not wait past its bound")
}

func TestAssemble(t *testing.T) {
	base := time.Now()
	timestamps := make([]time.Time, 11)
	for i := range timestamps {
		timestamps[i] = base.Add(time.Duration(i) * 100 * time.Millisecond)
	}

	records := []telemetry.Record{
		telemetry.SaveRecord{WorkerID: 1, Frames: 5, FPS: 5},
		telemetry.GrabRecord{Frames: 11, FPS: 10, MaxStableFPS: 9.8, Elapsed: time.Second, Timestamps: timestamps},
		telemetry.SaveRecord{WorkerID: 0, Frames: 6, FPS: 6},
	}

	report, err := telemetry.Assemble("session-1", base, "/tmp/out", records, 2)
	require.NoError(t, err)

	require.NotNil(t, report.Grab)
	assert.Equal(t, 11, report.Frames())
	assert.Zero(t, report.MissingRecords)
	require.Len(t, report.Saves, 2)
	assert.Equal(t, 0, report.Saves[0].WorkerID, "saves must be ordered by worker id")
	assert.Equal(t, 1, report.Saves[1].WorkerID)

	// Evenly spaced captures: every percentile sits at the interval
	assert.InDelta(t, 100*time.Millisecond, report.IntervalP50, float64(5*time.Millisecond))
	assert.InDelta(t, 100*time.Millisecond, report.IntervalP99, float64(5*time.Millisecond))
}

func TestAssembleMissingRecords(t *testing.T) {
	records := []telemetry.Record{
		telemetry.SaveRecord{WorkerID: 0, Frames: 6},
	}

	report, err := telemetry.Assemble("session-2", time.Now(), "", records, 3)
	require.NoError(t, err)

	assert.Nil(t, report.Grab)
	assert.Equal(t, 3, report.MissingRecords, "two saves plus the grab record are missing")
	assert.Equal(t, 6, report.Frames(), "frame count falls back to sink totals")
}

func TestAssembleDuplicateGrab(t *testing.T) {
	records := []telemetry.Record{
		telemetry.GrabRecord{Frames: 1},
		telemetry.GrabRecord{Frames: 2},
	}

	_, err := telemetry.Assemble("session-3", time.Now(), "", records, 0)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, telemetry.ErrDuplicateGrab))
}
