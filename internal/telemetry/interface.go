package telemetry

import (
	"context"
	"time"
)

// Collector persists session reports for operator diagnostics
type Collector interface {
	Record(ctx context.Context, report *Report) error
	Close() error
}

// Kind discriminates worker telemetry records
type Kind string

const (
	KindGrab Kind = "grab"
	KindSave Kind = "save"
)

// Record is emitted exactly once by each terminated pipeline worker
type Record interface {
	RecordKind() Kind
}

// GrabRecord summarizes the frame producer: one per session
type GrabRecord struct {
	Frames       int
	FPS          float64
	MaxStableFPS float64
	Elapsed      time.Duration
	Timestamps   []time.Time
}

func (GrabRecord) RecordKind() Kind { return KindGrab }

// SaveRecord summarizes one persistence worker: one per sink
type SaveRecord struct {
	WorkerID int
	Frames   int
	FPS      float64
	Elapsed  time.Duration
}

func (SaveRecord) RecordKind() Kind { return KindSave }

// Report is the session-level aggregate assembled after join
type Report struct {
	SessionID string
	StartedAt time.Time
	OutputDir string

	// Grab is nil when the producer record went missing (partial failure)
	Grab  *GrabRecord
	Saves []SaveRecord

	// MissingRecords counts expected records that never arrived
	MissingRecords int

	// Inter-frame interval percentiles from the capture timestamps
	IntervalP50 time.Duration
	IntervalP95 time.Duration
	IntervalP99 time.Duration
}

// Frames returns the number of frames the producer captured, or the
// sum persisted by the sinks when the producer record is missing.
func (r *Report) Frames() int {
	if r.Grab != nil {
		return r.Grab.Frames
	}

	total := 0
	for i := range r.Saves {
		total += r.Saves[i].Frames
	}

	return total
}
