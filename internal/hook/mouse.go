package hook

import (
	"fmt"
	"sync/atomic"
	"time"

	gohook "github.com/robotn/gohook"

	"codeberg.org/mutker/capturectl/internal/input"
)

const wheelHorizontal = 4

var buttonNames = map[uint16]string{
	1: "left",
	2: "right",
	3: "middle",
}

func buttonName(button uint16) string {
	if name, ok := buttonNames[button]; ok {
		return name
	}

	return fmt.Sprintf("button%d", button)
}

// MouseSource adapts the tap's pointer events to the mouse stream.
type MouseSource struct {
	tap     *Tap
	cancel  func()
	running atomic.Bool
}

func NewMouseSource(tap *Tap) *MouseSource {
	return &MouseSource{tap: tap}
}

func (s *MouseSource) Available() error {
	return Available()
}

func (s *MouseSource) Start(handler func(input.PointerEvent)) error {
	s.cancel = s.tap.Subscribe(func(ev gohook.Event) {
		now := input.Stamp(time.Now())

		switch ev.Kind {
		case gohook.MouseMove, gohook.MouseDrag:
			handler(input.PointerEvent{
				Timestamp: now,
				Type:      input.PointerMove,
				X:         int(ev.X),
				Y:         int(ev.Y),
			})
		case gohook.MouseDown, gohook.MouseUp:
			pressed := ev.Kind == gohook.MouseDown
			handler(input.PointerEvent{
				Timestamp: now,
				Type:      input.PointerClick,
				X:         int(ev.X),
				Y:         int(ev.Y),
				Button:    buttonName(ev.Button),
				Pressed:   &pressed,
			})
		case gohook.MouseWheel:
			dx, dy := 0, 0
			if ev.Direction == wheelHorizontal {
				dx = int(ev.Rotation)
			} else {
				dy = int(ev.Rotation)
			}
			handler(input.PointerEvent{
				Timestamp: now,
				Type:      input.PointerScroll,
				X:         int(ev.X),
				Y:         int(ev.Y),
				DX:        &dx,
				DY:        &dy,
			})
		}
	})
	s.running.Store(true)

	return nil
}

func (s *MouseSource) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.running.Store(false)
}

func (s *MouseSource) Running() bool {
	return s.running.Load()
}
