package recorder

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/capturectl/internal/capture"
	"codeberg.org/mutker/capturectl/internal/errors"
	"codeberg.org/mutker/capturectl/internal/input"
	"codeberg.org/mutker/capturectl/internal/logger"
	"codeberg.org/mutker/capturectl/internal/metrics"
	"codeberg.org/mutker/capturectl/internal/telemetry"
)

// ScreenConfig carries the pipeline shape for one screen recorder.
type ScreenConfig struct {
	Workers     int
	FPS         int
	FrameLimit  int
	QueueSize   int
	Format      string
	Compression int
}

// Screen records the display through a paced producer fanning frames
// out to Workers persistence sinks.
type Screen struct {
	grabber capture.Grabber
	cfg     ScreenConfig
	persist capture.PersistFunc
	dir     string

	sessionID string
	startedAt time.Time

	stop         *capture.StopFlag
	stopped      atomic.Bool
	producerDone atomic.Bool
	guardOnce    sync.Once
	channels     []chan *capture.Frame
	out          chan telemetry.Record
	recordWait   time.Duration
}

func NewScreen(grabber capture.Grabber, cfg ScreenConfig) (*Screen, error) {
	persist, err := capture.NewEncoder(cfg.Format, cfg.Compression)
	if err != nil {
		return nil, err
	}

	return &Screen{
		grabber:    grabber,
		cfg:        cfg,
		persist:    persist,
		stop:       &capture.StopFlag{},
		recordWait: telemetry.DefaultRecordWait,
	}, nil
}

func (r *Screen) Name() string {
	return "screen"
}

func (r *Screen) CheckAvailability() error {
	if _, err := r.grabber.Bounds(); err != nil {
		return errors.New().Wrap(ErrUnavailable, err)
	}

	return nil
}

func (r *Screen) SetOutputDir(dir string) {
	r.dir = dir
}

// SetSessionID tags the assembled report with the session identity.
func (r *Screen) SetSessionID(id string) {
	r.sessionID = id
}

// SetRecordWait overrides the per-record telemetry wait used in Join.
func (r *Screen) SetRecordWait(d time.Duration) {
	r.recordWait = d
}

// SetPersistFunc replaces the encoder built from the config with an
// arbitrary persistence capability.
func (r *Screen) SetPersistFunc(fn capture.PersistFunc) {
	r.persist = fn
}

// Start launches the producer and one sink goroutine per worker.
func (r *Screen) Start() error {
	region, err := r.grabber.Bounds()
	if err != nil {
		return errors.New().Wrap(ErrStartFailed, err)
	}

	r.startedAt = time.Now()
	r.out = make(chan telemetry.Record, r.cfg.Workers+1)
	r.channels = make([]chan *capture.Frame, r.cfg.Workers)
	for i := 0; i < r.cfg.Workers; i++ {
		r.channels[i] = make(chan *capture.Frame, r.cfg.QueueSize)
		sink := capture.NewSink(i, r.cfg.Workers, r.dir, r.cfg.Format, r.persist)
		go sink.Run(r.channels[i], r.out)
	}

	producer := capture.NewProducer(r.grabber, region, r.cfg.FPS, r.cfg.FrameLimit, r.stop)
	go func() {
		producer.Run(r.channels, r.out)
		r.producerDone.Store(true)
	}()

	logger.Info().
		Int("workers", r.cfg.Workers).
		Int("fps", r.cfg.FPS).
		Int("width", region.Width).
		Int("height", region.Height).
		Msg("Screen recording started")

	return nil
}

// ShouldStop reports a finished producer or a saturated sink channel.
// Saturation means persistence cannot keep up with capture, so the
// session is asked to stop before memory or disk lag grows further.
func (r *Screen) ShouldStop() bool {
	if r.producerDone.Load() {
		return true
	}

	for i, ch := range r.channels {
		metrics.SetSinkQueueDepth(i, len(ch))
		if len(ch) == cap(ch) {
			r.guardOnce.Do(func() {
				metrics.BackpressureStop()
				logger.Warn().
					Str("error_code", string(capture.ErrQueueSaturated)).
					Int("worker", i).
					Int("queue_size", r.cfg.QueueSize).
					Int("workers", r.cfg.Workers).
					Int("fps", r.cfg.FPS).
					Msg("Frame queue saturated. Lower fps or raise workers or queue_size")
			})

			return true
		}
	}

	return false
}

func (r *Screen) Stop() {
	r.stop.Set()
	r.stopped.Store(true)
}

// Join waits for the producer and every sink to report, assembles the
// session telemetry and writes the capture timestamp artifact. Partial
// telemetry is acceptable; a missing worker record is counted, not
// fatal.
func (r *Screen) Join() (*telemetry.Report, error) {
	if !r.stopped.Load() {
		return nil, errors.New().WithMessage(ErrInvalidOperation, "screen recorder joined before stop")
	}

	records, missing := telemetry.Collect(r.out, r.cfg.Workers+1, r.recordWait)
	if missing > 0 {
		logger.Warn().Int("missing", missing).Msg("Screen telemetry incomplete after join")
	}

	report, err := telemetry.Assemble(r.sessionID, r.startedAt, r.dir, records, r.cfg.Workers)
	if err != nil {
		return nil, err
	}

	if report.Grab != nil {
		if err := r.writeTimestamps(report.Grab.Timestamps); err != nil {
			return report, err
		}
	}

	return report, nil
}

// writeTimestamps persists capture instants as newline-separated epoch
// seconds with microsecond precision and no trailing newline.
func (r *Screen) writeTimestamps(timestamps []time.Time) error {
	var b strings.Builder
	for i, ts := range timestamps {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%.6f", input.Stamp(ts))
	}

	path := filepath.Join(r.dir, "timestamps.txt")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return errors.New().Wrap(ErrWriteArtifact, err)
	}

	return nil
}
