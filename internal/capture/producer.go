package capture

import (
	"math"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/capturectl/internal/logger"
	"codeberg.org/mutker/capturectl/internal/metrics"
	"codeberg.org/mutker/capturectl/internal/telemetry"
)

// stopPollInterval is how often a blocked push rechecks the stop flag.
const stopPollInterval = 100 * time.Millisecond

// StopFlag is the single boolean shared between the producer and the
// session controller. The only allowed transition is false to true;
// it is never reset for the life of the session.
type StopFlag struct {
	flag atomic.Bool
}

// Set marks the flag. Safe to call more than once.
func (s *StopFlag) Set() {
	s.flag.Store(true)
}

// IsSet reports whether the flag has been set.
func (s *StopFlag) IsSet() bool {
	return s.flag.Load()
}

// Producer owns the capture loop: it paces itself to the target rate
// and round-robins frames across the sink channels.
type Producer struct {
	grabber    Grabber
	region     Region
	targetFPS  int
	frameLimit int
	stop       *StopFlag
}

func NewProducer(grabber Grabber, region Region, targetFPS, frameLimit int, stop *StopFlag) *Producer {
	return &Producer{
		grabber:    grabber,
		region:     region,
		targetFPS:  targetFPS,
		frameLimit: frameLimit,
		stop:       stop,
	}
}

// Run captures frames until the stop flag is set, the frame limit is
// reached, or a capture fails. Frame i goes to sinks[i mod N], so each
// sink sees a contiguous, deterministic subset in capture order. On the
// way out every sink channel is closed exactly once (the end-of-stream
// marker) and one grab record is emitted on out.
//
// Pacing is local: the sleep is computed from the previous capture
// instant only, with no resynchronization to a fixed epoch.
func (p *Producer) Run(sinks []chan *Frame, out chan<- telemetry.Record) {
	start := time.Now()
	interval := time.Duration(float64(time.Second) / float64(p.targetFPS))
	timestamps := make([]time.Time, 0, min(p.frameLimit, 4096))
	maxStableFPS := math.MaxFloat64

	last := time.Now()
	for i := 0; i < p.frameLimit; i++ {
		if p.stop.IsSet() {
			break
		}

		frame, err := p.grabber.Grab(p.region)
		if err != nil {
			logger.Error().Err(err).Msg("Frame capture failed, stopping producer")
			break
		}

		if !p.push(sinks[i%len(sinks)], frame) {
			break
		}
		timestamps = append(timestamps, frame.Timestamp)
		metrics.FrameProduced()

		if sleep := interval - time.Since(last); sleep > 0 {
			time.Sleep(sleep)
		}
		if gap := time.Since(last); gap > 0 {
			if fps := float64(time.Second) / float64(gap); fps < maxStableFPS {
				maxStableFPS = fps
			}
		}
		last = time.Now()
	}

	logger.Debug().Msg("Producer stopping, closing sink channels")
	for _, ch := range sinks {
		close(ch)
	}

	elapsed := time.Since(start)
	fps := 0.0
	if elapsed > 0 {
		fps = float64(len(timestamps)) / elapsed.Seconds()
	}
	if len(timestamps) == 0 {
		maxStableFPS = 0
	}

	out <- telemetry.GrabRecord{
		Frames:       len(timestamps),
		FPS:          fps,
		MaxStableFPS: maxStableFPS,
		Elapsed:      elapsed,
		Timestamps:   timestamps,
	}
}

// push blocks while the channel is full: that blocking is the natural
// backpressure that slows capture down. The stop flag is still checked
// periodically so a saturated pipeline cannot wedge shutdown; a frame
// abandoned that way is not counted as produced.
func (p *Producer) push(ch chan *Frame, frame *Frame) bool {
	for {
		select {
		case ch <- frame:
			return true
		case <-time.After(stopPollInterval):
			if p.stop.IsSet() {
				return false
			}
		}
	}
}
