package hook

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/0xcafed00d/joystick"

	"codeberg.org/mutker/capturectl/internal/errors"
	"codeberg.org/mutker/capturectl/internal/input"
	"codeberg.org/mutker/capturectl/internal/logger"
)

const gamepadPollInterval = 10 * time.Millisecond

// GamepadSource polls a joystick device and emits one pad event per
// button transition or axis change between consecutive reads.
type GamepadSource struct {
	id       int
	interval time.Duration
	open     func(int) (joystick.Joystick, error)

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	running  atomic.Bool
}

func NewGamepadSource(id int) *GamepadSource {
	return &GamepadSource{
		id:       id,
		interval: gamepadPollInterval,
		open:     joystick.Open,
	}
}

func (s *GamepadSource) Available() error {
	js, err := s.open(s.id)
	if err != nil {
		return errors.New().Wrap(ErrNoGamepad, err)
	}
	js.Close()

	return nil
}

func (s *GamepadSource) Start(handler func(input.PadEvent)) error {
	js, err := s.open(s.id)
	if err != nil {
		return errors.New().Wrap(ErrNoGamepad, err)
	}

	s.stop = make(chan struct{})
	s.stopOnce = sync.Once{}
	s.done = make(chan struct{})
	s.running.Store(true)
	go s.poll(js, handler)

	return nil
}

func (s *GamepadSource) poll(js joystick.Joystick, handler func(input.PadEvent)) {
	defer close(s.done)
	defer s.running.Store(false)
	defer js.Close()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var last joystick.State
	first := true
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}

		state, err := js.Read()
		if err != nil {
			logger.Warn().Err(err).Msg("Gamepad read failed, stopping gamepad capture")
			return
		}

		// The first read only establishes the baseline.
		if first {
			last = state
			first = false
			continue
		}

		now := input.Stamp(time.Now())
		for i := 0; i < js.ButtonCount(); i++ {
			mask := uint32(1) << uint(i)
			was := last.Buttons&mask != 0
			is := state.Buttons&mask != 0
			if was == is {
				continue
			}
			kind := input.PadReleased
			if is {
				kind = input.PadPressed
			}
			handler(input.PadEvent{
				Timestamp: now,
				Type:      kind,
				Key:       fmt.Sprintf("BTN_%d", i),
			})
		}
		for i := 0; i < len(state.AxisData); i++ {
			if i < len(last.AxisData) && last.AxisData[i] == state.AxisData[i] {
				continue
			}
			value := state.AxisData[i]
			handler(input.PadEvent{
				Timestamp: now,
				Type:      input.PadAbsolute,
				Axis:      fmt.Sprintf("ABS_%d", i),
				Value:     &value,
			})
		}
		last = state
	}
}

func (s *GamepadSource) Stop() {
	if s.stop == nil {
		return
	}
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

func (s *GamepadSource) Running() bool {
	return s.running.Load()
}
