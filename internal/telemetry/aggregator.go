package telemetry

import (
	"sort"
	"time"

	"codeberg.org/mutker/capturectl/internal/errors"
	"codeberg.org/mutker/capturectl/internal/logger"
	"github.com/influxdata/tdigest"
)

// DefaultRecordWait bounds how long Collect waits for each record. A
// worker that produced nothing within the window is treated as lost.
const DefaultRecordWait = 60 * time.Second

// Collect drains up to expected records from ch, waiting at most wait
// per record. It returns the records received and the number missing.
// A timeout is reported as a warning, never an error: the session
// completes with partial telemetry instead of hanging.
func Collect(ch <-chan Record, expected int, wait time.Duration) ([]Record, int) {
	records := make([]Record, 0, expected)
	for len(records) < expected {
		select {
		case rec := <-ch:
			records = append(records, rec)
		case <-time.After(wait):
			missing := expected - len(records)
			logger.Warn().
				Str("error_code", string(ErrCollectTimeout)).
				Int("received", len(records)).
				Int("expected", expected).
				Dur("wait", wait).
				Msg("Timed out waiting for worker telemetry; one worker may still be running or have failed")
			return records, missing
		}
	}

	return records, 0
}

// Assemble merges worker records into a session report. Exactly one
// grab record is permitted; a second one means two producers were
// running against the same session, which is a structural failure.
func Assemble(sessionID string, startedAt time.Time, outputDir string, records []Record, expectedSaves int) (*Report, error) {
	errFactory := errors.New()

	var grab *GrabRecord
	saves := make([]SaveRecord, 0, expectedSaves)
	for _, rec := range records {
		switch r := rec.(type) {
		case GrabRecord:
			if grab != nil {
				return nil, errFactory.New(ErrDuplicateGrab)
			}
			g := r
			grab = &g
		case SaveRecord:
			saves = append(saves, r)
		default:
			return nil, errFactory.WithData(ErrUnknownRecord, rec.RecordKind())
		}
	}

	sort.Slice(saves, func(i, j int) bool { return saves[i].WorkerID < saves[j].WorkerID })

	missing := expectedSaves - len(saves)
	if grab == nil {
		missing++
	}

	report := &Report{
		SessionID:      sessionID,
		StartedAt:      startedAt,
		OutputDir:      outputDir,
		Grab:           grab,
		Saves:          saves,
		MissingRecords: missing,
	}

	if grab != nil {
		report.IntervalP50, report.IntervalP95, report.IntervalP99 = intervalPercentiles(grab.Timestamps)
	}

	return report, nil
}

// intervalPercentiles digests the gaps between consecutive capture
// timestamps. ~100 centroids keeps the digest around 10KB regardless
// of session length.
func intervalPercentiles(timestamps []time.Time) (p50, p95, p99 time.Duration) {
	if len(timestamps) < 2 {
		return 0, 0, 0
	}

	td := tdigest.NewWithCompression(100)
	for i := 1; i < len(timestamps); i++ {
		td.Add(timestamps[i].Sub(timestamps[i-1]).Seconds(), 1)
	}

	p50 = time.Duration(td.Quantile(0.50) * float64(time.Second))
	p95 = time.Duration(td.Quantile(0.95) * float64(time.Second))
	p99 = time.Duration(td.Quantile(0.99) * float64(time.Second))

	return p50, p95, p99
}
