package hook

import (
	"sync/atomic"
	"time"

	gohook "github.com/robotn/gohook"

	"codeberg.org/mutker/capturectl/internal/input"
)

// KeyboardSource adapts the tap's key events to the keyboard stream.
type KeyboardSource struct {
	tap     *Tap
	cancel  func()
	running atomic.Bool
}

func NewKeyboardSource(tap *Tap) *KeyboardSource {
	return &KeyboardSource{tap: tap}
}

func (s *KeyboardSource) Available() error {
	return Available()
}

func (s *KeyboardSource) Start(handler func(input.KeyEvent)) error {
	s.cancel = s.tap.Subscribe(func(ev gohook.Event) {
		switch ev.Kind {
		case gohook.KeyDown, gohook.KeyHold:
			handler(input.KeyEvent{
				Timestamp: input.Stamp(time.Now()),
				Type:      input.KeyPressed,
				Key:       keyName(ev),
			})
		case gohook.KeyUp:
			handler(input.KeyEvent{
				Timestamp: input.Stamp(time.Now()),
				Type:      input.KeyReleased,
				Key:       keyName(ev),
			})
		}
	})
	s.running.Store(true)

	return nil
}

func (s *KeyboardSource) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.running.Store(false)
}

func (s *KeyboardSource) Running() bool {
	return s.running.Load()
}
