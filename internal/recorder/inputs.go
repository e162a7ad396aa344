package recorder

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"codeberg.org/mutker/capturectl/internal/errors"
	"codeberg.org/mutker/capturectl/internal/input"
	"codeberg.org/mutker/capturectl/internal/telemetry"
)

// writeEventLog serializes buffered events as a JSON array artifact.
func writeEventLog(dir, name string, events any) error {
	raw, err := json.Marshal(events)
	if err != nil {
		return errors.New().Wrap(ErrWriteArtifact, err)
	}

	if err := os.WriteFile(filepath.Join(dir, name), raw, 0o644); err != nil {
		return errors.New().Wrap(ErrWriteArtifact, err)
	}

	return nil
}

// Keyboard buffers key events and writes keyboard_logs.json on join.
type Keyboard struct {
	source  input.KeySource
	dir     string
	started atomic.Bool
	stopped atomic.Bool

	mu     sync.Mutex
	events []input.KeyEvent
}

func NewKeyboard(source input.KeySource) *Keyboard {
	return &Keyboard{
		source: source,
		events: []input.KeyEvent{},
	}
}

func (r *Keyboard) Name() string {
	return "keyboard"
}

func (r *Keyboard) CheckAvailability() error {
	if err := r.source.Available(); err != nil {
		return errors.New().Wrap(ErrUnavailable, err)
	}

	return nil
}

func (r *Keyboard) SetOutputDir(dir string) {
	r.dir = dir
}

func (r *Keyboard) Start() error {
	err := r.source.Start(func(ev input.KeyEvent) {
		r.mu.Lock()
		r.events = append(r.events, ev)
		r.mu.Unlock()
	})
	if err != nil {
		return errors.New().Wrap(ErrStartFailed, err)
	}
	r.started.Store(true)

	return nil
}

func (r *Keyboard) ShouldStop() bool {
	return r.started.Load() && !r.source.Running()
}

func (r *Keyboard) Stop() {
	r.source.Stop()
	r.stopped.Store(true)
}

func (r *Keyboard) Join() (*telemetry.Report, error) {
	if !r.stopped.Load() {
		return nil, errors.New().WithMessage(ErrInvalidOperation, "keyboard recorder joined before stop")
	}

	r.mu.Lock()
	events := r.events
	r.mu.Unlock()

	return nil, writeEventLog(r.dir, "keyboard_logs.json", events)
}

// Mouse buffers pointer events and writes mouse_logs.json on join.
type Mouse struct {
	source  input.PointerSource
	dir     string
	started atomic.Bool
	stopped atomic.Bool

	mu     sync.Mutex
	events []input.PointerEvent
}

func NewMouse(source input.PointerSource) *Mouse {
	return &Mouse{
		source: source,
		events: []input.PointerEvent{},
	}
}

func (r *Mouse) Name() string {
	return "mouse"
}

func (r *Mouse) CheckAvailability() error {
	if err := r.source.Available(); err != nil {
		return errors.New().Wrap(ErrUnavailable, err)
	}

	return nil
}

func (r *Mouse) SetOutputDir(dir string) {
	r.dir = dir
}

func (r *Mouse) Start() error {
	err := r.source.Start(func(ev input.PointerEvent) {
		r.mu.Lock()
		r.events = append(r.events, ev)
		r.mu.Unlock()
	})
	if err != nil {
		return errors.New().Wrap(ErrStartFailed, err)
	}
	r.started.Store(true)

	return nil
}

func (r *Mouse) ShouldStop() bool {
	return r.started.Load() && !r.source.Running()
}

func (r *Mouse) Stop() {
	r.source.Stop()
	r.stopped.Store(true)
}

func (r *Mouse) Join() (*telemetry.Report, error) {
	if !r.stopped.Load() {
		return nil, errors.New().WithMessage(ErrInvalidOperation, "mouse recorder joined before stop")
	}

	r.mu.Lock()
	events := r.events
	r.mu.Unlock()

	return nil, writeEventLog(r.dir, "mouse_logs.json", events)
}

// Gamepad buffers pad events and writes gamepad_logs.json on join.
type Gamepad struct {
	source  input.PadSource
	dir     string
	started atomic.Bool
	stopped atomic.Bool

	mu     sync.Mutex
	events []input.PadEvent
}

func NewGamepad(source input.PadSource) *Gamepad {
	return &Gamepad{
		source: source,
		events: []input.PadEvent{},
	}
}

func (r *Gamepad) Name() string {
	return "gamepad"
}

func (r *Gamepad) CheckAvailability() error {
	if err := r.source.Available(); err != nil {
		return errors.New().Wrap(ErrUnavailable, err)
	}

	return nil
}

func (r *Gamepad) SetOutputDir(dir string) {
	r.dir = dir
}

func (r *Gamepad) Start() error {
	err := r.source.Start(func(ev input.PadEvent) {
		r.mu.Lock()
		r.events = append(r.events, ev)
		r.mu.Unlock()
	})
	if err != nil {
		return errors.New().Wrap(ErrStartFailed, err)
	}
	r.started.Store(true)

	return nil
}

func (r *Gamepad) ShouldStop() bool {
	return r.started.Load() && !r.source.Running()
}

func (r *Gamepad) Stop() {
	r.source.Stop()
	r.stopped.Store(true)
}

func (r *Gamepad) Join() (*telemetry.Report, error) {
	if !r.stopped.Load() {
		return nil, errors.New().WithMessage(ErrInvalidOperation, "gamepad recorder joined before stop")
	}

	r.mu.Lock()
	events := r.events
	r.mu.Unlock()

	return nil, writeEventLog(r.dir, "gamepad_logs.json", events)
}
