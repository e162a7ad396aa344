// Package tune probes worker/fps combinations with short recording
// runs and suggests the best configuration the host can sustain.
package tune

import (
	"math"
	"time"

	"codeberg.org/mutker/capturectl/internal/errors"
	"codeberg.org/mutker/capturectl/internal/logger"
	"codeberg.org/mutker/capturectl/internal/telemetry"
)

const ErrNoSafeConfig = errors.ErrorCode("tune_no_safe_config")

// minProbeFPS is the floor of the step-down search.
const minProbeFPS = 10

// Probe runs one bounded screen-only recording at the given shape and
// returns its telemetry.
type Probe func(workers, fps int) (*telemetry.Report, error)

// Options bound the search space.
type Options struct {
	MaxWorkers int
	MaxFPS     int
}

// Result is one safe configuration found by the search.
type Result struct {
	Workers      int
	AimedFPS     int
	MeanFPS      float64
	MaxStableFPS float64
}

// Unsafe reports whether a probe run shows the configuration cannot be
// sustained: the producer fell more than 10% short of the aimed rate,
// or a sink needed over a second longer than the capture itself.
func Unsafe(report *telemetry.Report, aimedFPS int) bool {
	if report.Grab == nil {
		return true
	}

	if report.Grab.FPS < 0.9*float64(aimedFPS) {
		return true
	}

	for _, save := range report.Saves {
		if save.Elapsed > report.Grab.Elapsed+time.Second {
			return true
		}
	}

	return false
}

// Suggest searches worker counts 1..MaxWorkers, stepping the aimed
// rate down from MaxFPS until a safe configuration is found for each,
// and returns the safe configuration with the highest stable-rate
// ceiling.
func Suggest(opts Options, probe Probe) (*Result, error) {
	var results []Result

	for workers := 1; workers <= opts.MaxWorkers; workers++ {
		aimed := opts.MaxFPS
		for aimed >= minProbeFPS {
			logger.Debug().Int("workers", workers).Int("fps", aimed).Msg("Probing configuration")

			report, err := probe(workers, aimed)
			if err != nil {
				return nil, err
			}

			if !Unsafe(report, aimed) {
				result := Result{
					Workers:      workers,
					AimedFPS:     aimed,
					MeanFPS:      report.Grab.FPS,
					MaxStableFPS: report.Grab.MaxStableFPS,
				}
				results = append(results, result)
				logger.Info().
					Int("workers", workers).
					Int("fps", aimed).
					Float64("mean_fps", result.MeanFPS).
					Float64("max_stable_fps", result.MaxStableFPS).
					Msg("Found safe configuration")

				break
			}

			// Drop to the rate actually achieved, rounded to tens, or
			// one step down, whichever is lower.
			mean := 0.0
			if report.Grab != nil {
				mean = report.Grab.FPS
			}
			next := aimed - 10
			if rounded := int(math.Round(mean/10)) * 10; rounded < next {
				next = rounded
			}
			aimed = next
		}
	}

	if len(results) == 0 {
		return nil, errors.New().New(ErrNoSafeConfig)
	}

	best := results[0]
	for _, r := range results[1:] {
		if r.MaxStableFPS > best.MaxStableFPS {
			best = r
		}
	}

	return &best, nil
}
