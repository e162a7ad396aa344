package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"codeberg.org/mutker/capturectl/internal/capture"
	"codeberg.org/mutker/capturectl/internal/config"
	"codeberg.org/mutker/capturectl/internal/hook"
	"codeberg.org/mutker/capturectl/internal/logger"
	"codeberg.org/mutker/capturectl/internal/metrics"
	"codeberg.org/mutker/capturectl/internal/pid"
	"codeberg.org/mutker/capturectl/internal/recorder"
	"codeberg.org/mutker/capturectl/internal/telemetry"
	"codeberg.org/mutker/capturectl/internal/tune"
)

const shutdownTimeout = 5 * time.Second

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Debug, cfg.Verbose, logger.IsService())
	logger.Debug().Msg("Config loaded")
}

func main() {
	if err := pid.Write(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to acquire PID file")
	}
	defer cleanup()

	grabber := capture.NewDisplayGrabber(cfg.Display)

	if cfg.Tune {
		runTune(grabber)
		return
	}

	if cfg.MetricsAddr != "" {
		srv := metrics.NewServer(cfg.MetricsAddr)
		srv.Start()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Error().Err(err).Msg("Metrics server shutdown failed")
			}
		}()
	}

	session, err := buildSession(grabber)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create recording session")
		return
	}
	logger.Info().
		Str("session", session.ID()).
		Str("output", session.Dir()).
		Strs("recorders", session.Recorders()).
		Msg("Session created")

	go handleSignals(session)

	startDelay := time.Duration(cfg.StartDelay * float64(time.Second))
	timeout := time.Duration(cfg.Timeout * float64(time.Second))

	report, err := session.Run(startDelay, timeout)
	if err != nil {
		logger.Error().Err(err).Msg("Recording session failed")
		return
	}

	logResults(report)
	storeTelemetry(report)
}

// buildSession assembles the recorder set the config asks for. The
// hotkey stop recorder is always included; everything else can be
// disabled individually.
func buildSession(grabber capture.Grabber) (*recorder.Session, error) {
	tap := hook.Shared()

	hotkeySource, err := hook.NewHotkeySource(tap, cfg.Hotkey)
	if err != nil {
		return nil, err
	}
	candidates := []recorder.Recorder{recorder.NewHotkeyStop(hotkeySource)}

	if !cfg.NoScreen {
		screen, err := recorder.NewScreen(grabber, recorder.ScreenConfig{
			Workers:     cfg.Workers,
			FPS:         cfg.FPS,
			FrameLimit:  cfg.MaxFrames,
			QueueSize:   cfg.QueueSize,
			Format:      cfg.Format,
			Compression: cfg.Compression,
		})
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, screen)
	}
	if !cfg.NoKeyboard {
		candidates = append(candidates, recorder.NewKeyboard(hook.NewKeyboardSource(tap)))
	}
	if !cfg.NoMouse {
		candidates = append(candidates, recorder.NewMouse(hook.NewMouseSource(tap)))
	}
	if !cfg.NoGamepad {
		candidates = append(candidates, recorder.NewGamepad(hook.NewGamepadSource(0)))
	}

	return recorder.NewSession(cfg.Output, candidates)
}

func handleSignals(session *recorder.Session) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal, stopping session")
	session.Stop()
}

func runTune(grabber capture.Grabber) {
	scratch := filepath.Join(cfg.Output, "tune")
	probe := tune.ScreenProbe(grabber, scratch, cfg.TuneFrames)

	best, err := tune.Suggest(tune.Options{
		MaxWorkers: cfg.TuneMaxWorkers,
		MaxFPS:     cfg.TuneMaxFPS,
	}, probe)
	if err != nil {
		logger.Error().Err(err).Msg("Tuning found no safe configuration")
		return
	}

	logger.Info().
		Int("workers", best.Workers).
		Int("fps", best.AimedFPS).
		Float64("mean_fps", best.MeanFPS).
		Float64("max_stable_fps", best.MaxStableFPS).
		Msg("Suggested configuration")
}

func logResults(report *telemetry.Report) {
	if report == nil {
		logger.Info().Msg("Session finished without a screen pipeline report")
		return
	}

	event := logger.Info().
		Str("session", report.SessionID).
		Str("output", report.OutputDir).
		Int("frames", report.Frames()).
		Int("missing_records", report.MissingRecords)
	if report.Grab != nil {
		event = event.
			Float64("fps", report.Grab.FPS).
			Float64("max_stable_fps", report.Grab.MaxStableFPS).
			Dur("elapsed", report.Grab.Elapsed).
			Dur("interval_p50", report.IntervalP50).
			Dur("interval_p95", report.IntervalP95).
			Dur("interval_p99", report.IntervalP99)
	}
	event.Msg("Recording session finished")

	for _, save := range report.Saves {
		logger.Info().
			Int("worker", save.WorkerID).
			Int("frames", save.Frames).
			Float64("fps", save.FPS).
			Dur("elapsed", save.Elapsed).
			Msg("Persistence worker summary")
	}
}

func storeTelemetry(report *telemetry.Report) {
	if !cfg.Telemetry || report == nil {
		return
	}

	tcfg := telemetry.DefaultConfig()
	if cfg.TelemetryDB != "" {
		tcfg.DBPath = cfg.TelemetryDB
	}

	collector, err := telemetry.NewService(tcfg)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open telemetry store")
		return
	}
	defer func() {
		if err := collector.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close telemetry store")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := collector.Record(ctx, report); err != nil {
		logger.Error().Err(err).Msg("Failed to persist session telemetry")
		return
	}
	logger.Debug().Str("session", report.SessionID).Msg("Session telemetry persisted")
}

func cleanup() {
	if err := pid.Remove(); err != nil {
		logger.Error().Err(err).Msg("Failed to remove PID file")
	}
	logger.Info().Msg("Exiting")
}
