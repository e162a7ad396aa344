package capture

import (
	"fmt"
	"path/filepath"
	"time"

	"codeberg.org/mutker/capturectl/internal/logger"
	"codeberg.org/mutker/capturectl/internal/metrics"
	"codeberg.org/mutker/capturectl/internal/telemetry"
)

// DefaultRecvTimeout bounds how long a sink waits for the next frame or
// the end-of-stream close. Waiting past it means the producer died
// without closing the channel, which is a protocol violation.
const DefaultRecvTimeout = 60 * time.Second

// Sink is one persistence worker. It owns a single input channel and
// names its artifacts so that global capture order is recoverable:
// artifact index = sequence*workers + id.
type Sink struct {
	id          int
	workers     int
	dir         string
	ext         string
	persist     PersistFunc
	recvTimeout time.Duration
}

func NewSink(id, workers int, dir, format string, persist PersistFunc) *Sink {
	return &Sink{
		id:          id,
		workers:     workers,
		dir:         dir,
		ext:         Ext(format),
		persist:     persist,
		recvTimeout: DefaultRecvTimeout,
	}
}

// SetRecvTimeout overrides the bounded receive wait.
func (s *Sink) SetRecvTimeout(d time.Duration) {
	s.recvTimeout = d
}

// Run persists every frame received on ch until the channel is closed,
// then emits one save record on out. A persistence failure stops this
// sink only; siblings and the producer are unaffected beyond the
// backpressure that follows.
func (s *Sink) Run(ch <-chan *Frame, out chan<- telemetry.Record) {
	start := time.Now()
	saved := 0

loop:
	for {
		select {
		case frame, ok := <-ch:
			if !ok {
				break loop
			}

			name := fmt.Sprintf("file_%d.%s", saved*s.workers+s.id, s.ext)
			if err := s.persist(frame, filepath.Join(s.dir, name)); err != nil {
				logger.Error().Err(err).Int("worker", s.id).Msg("Frame persistence failed, stopping worker")
				break loop
			}
			saved++
			metrics.FramePersisted(s.id)
		case <-time.After(s.recvTimeout):
			logger.Warn().
				Str("error_code", string(ErrProtocolViolation)).
				Int("worker", s.id).
				Dur("wait", s.recvTimeout).
				Msg("Worker received no frame or end-of-stream. Did the producer stop?")
			break loop
		}
	}

	elapsed := time.Since(start)
	fps := 0.0
	if elapsed > 0 {
		fps = float64(saved) / elapsed.Seconds()
	}

	out <- telemetry.SaveRecord{
		WorkerID: s.id,
		Frames:   saved,
		FPS:      fps,
		Elapsed:  elapsed,
	}
}
