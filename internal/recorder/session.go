package recorder

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"codeberg.org/mutker/capturectl/internal/errors"
	"codeberg.org/mutker/capturectl/internal/logger"
	"codeberg.org/mutker/capturectl/internal/metrics"
	"codeberg.org/mutker/capturectl/internal/telemetry"
)

const (
	sessionPollInterval = 100 * time.Millisecond
	dirTimestampLayout  = "2006-01-02_15-04-05"
)

// Session drives a set of recorders through one recording run. Every
// session gets its own timestamp-named directory under the output root
// and a unique identifier for telemetry and logs.
type Session struct {
	id        string
	dir       string
	recorders []Recorder
	startedAt time.Time
	stopped   atomic.Bool
}

// NewSession probes every candidate recorder and keeps the usable
// ones. An unavailable recorder is excluded with a warning; a session
// with no usable recorders is refused.
func NewSession(outputRoot string, candidates []Recorder) (*Session, error) {
	errFactory := errors.New()

	recorders := make([]Recorder, 0, len(candidates))
	for _, r := range candidates {
		if err := r.CheckAvailability(); err != nil {
			logger.Warn().Err(err).Str("recorder", r.Name()).Msg("Recorder unavailable, excluding from session")
			continue
		}
		recorders = append(recorders, r)
	}
	if len(recorders) == 0 {
		return nil, errFactory.New(errors.ErrNoRecorders)
	}

	dir := filepath.Join(outputRoot, time.Now().Format(dirTimestampLayout))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errFactory.Wrap(errors.ErrOutputDir, err)
	}

	s := &Session{
		id:        uuid.NewString(),
		dir:       dir,
		recorders: recorders,
	}
	for _, r := range s.recorders {
		r.SetOutputDir(dir)
		if tagged, ok := r.(interface{ SetSessionID(string) }); ok {
			tagged.SetSessionID(s.id)
		}
	}

	return s, nil
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Dir() string {
	return s.dir
}

func (s *Session) StartedAt() time.Time {
	return s.startedAt
}

// Recorders returns the names of the recorders kept after probing.
func (s *Session) Recorders() []string {
	names := make([]string, 0, len(s.recorders))
	for _, r := range s.recorders {
		names = append(names, r.Name())
	}

	return names
}

// Start launches every recorder. A start failure stops the recorders
// already running and fails the session.
func (s *Session) Start() error {
	s.startedAt = time.Now()

	for i, r := range s.recorders {
		if err := r.Start(); err != nil {
			logger.Error().Err(err).Str("recorder", r.Name()).Msg("Recorder failed to start, aborting session")
			for _, started := range s.recorders[:i] {
				started.Stop()
			}
			s.stopped.Store(true)

			return errors.New().Wrap(errors.ErrSessionFailed, err)
		}
		logger.Info().Str("recorder", r.Name()).Str("session", s.id).Msg("Recorder started")
	}
	metrics.SetActiveRecorders(len(s.recorders))

	return nil
}

// ShouldStop reports whether any recorder wants the session stopped.
func (s *Session) ShouldStop() bool {
	for _, r := range s.recorders {
		if r.ShouldStop() {
			logger.Info().Str("recorder", r.Name()).Msg("Recorder requested session stop")
			return true
		}
	}

	return false
}

// Stop stops every recorder. Only the first call acts; later calls,
// from a signal handler or the poll loop, are no-ops.
func (s *Session) Stop() {
	if !s.stopped.CompareAndSwap(false, true) {
		return
	}

	for _, r := range s.recorders {
		r.Stop()
	}
	metrics.SetActiveRecorders(0)
	logger.Info().Str("session", s.id).Msg("Session stopped")
}

// Join waits for every recorder and returns the screen pipeline report
// when there is one. Joining a session that was never stopped is a
// protocol error.
func (s *Session) Join() (*telemetry.Report, error) {
	if !s.stopped.Load() {
		return nil, errors.New().WithMessage(errors.ErrInvalidOperation, "session joined before stop")
	}

	var report *telemetry.Report
	for _, r := range s.recorders {
		rep, err := r.Join()
		if err != nil {
			logger.Error().Err(err).Str("recorder", r.Name()).Msg("Recorder join failed")
			continue
		}
		if rep != nil && report == nil {
			report = rep
		}
	}

	return report, nil
}

// RunUntilStop polls the recorders until one requests a stop, the
// timeout elapses, or an external Stop arrives, then stops the
// session. A zero timeout means no bound.
func (s *Session) RunUntilStop(timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for !s.stopped.Load() {
		if timeout > 0 && !time.Now().Before(deadline) {
			logger.Info().Dur("timeout", timeout).Msg("Session timeout reached, stopping")
			break
		}
		if s.ShouldStop() {
			break
		}
		time.Sleep(sessionPollInterval)
	}

	s.Stop()
}

// Run is the whole session lifecycle in one call. The start delay is
// slept before any recorder starts, so nothing is captured during it.
func (s *Session) Run(startDelay, timeout time.Duration) (*telemetry.Report, error) {
	if startDelay > 0 {
		logger.Info().Dur("delay", startDelay).Msg("Recording begins after start delay")
		time.Sleep(startDelay)
	}

	if err := s.Start(); err != nil {
		return nil, err
	}
	s.RunUntilStop(timeout)

	return s.Join()
}
