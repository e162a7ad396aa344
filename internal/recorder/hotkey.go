package recorder

import (
	"sync/atomic"

	"codeberg.org/mutker/capturectl/internal/errors"
	"codeberg.org/mutker/capturectl/internal/input"
	"codeberg.org/mutker/capturectl/internal/logger"
	"codeberg.org/mutker/capturectl/internal/telemetry"
)

// HotkeyStop stops the session when the operator presses the
// configured key combination. It records nothing itself.
type HotkeyStop struct {
	source  input.HotkeySource
	pressed atomic.Bool
	stopped atomic.Bool
}

func NewHotkeyStop(source input.HotkeySource) *HotkeyStop {
	return &HotkeyStop{source: source}
}

func (r *HotkeyStop) Name() string {
	return "hotkey"
}

func (r *HotkeyStop) CheckAvailability() error {
	if err := r.source.Available(); err != nil {
		return errors.New().Wrap(ErrUnavailable, err)
	}

	return nil
}

func (r *HotkeyStop) SetOutputDir(string) {}

func (r *HotkeyStop) Start() error {
	err := r.source.Start(func() {
		logger.Info().Msg("Stop hotkey pressed")
		r.pressed.Store(true)
	})
	if err != nil {
		return errors.New().Wrap(ErrStartFailed, err)
	}

	return nil
}

func (r *HotkeyStop) ShouldStop() bool {
	return r.pressed.Load()
}

func (r *HotkeyStop) Stop() {
	r.source.Stop()
	r.stopped.Store(true)
}

func (r *HotkeyStop) Join() (*telemetry.Report, error) {
	if !r.stopped.Load() {
		return nil, errors.New().WithMessage(ErrInvalidOperation, "hotkey recorder joined before stop")
	}

	return nil, nil
}
