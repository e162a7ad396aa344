package hook

import (
	"strings"
	"sync"
	"sync/atomic"

	gohook "github.com/robotn/gohook"

	"codeberg.org/mutker/capturectl/internal/errors"
)

// aliases fold the names the OS hook reports onto the tokens users
// write in a hotkey string.
var aliases = map[string]string{
	"control": "ctrl",
	"ctl":     "ctrl",
	"del":     "delete",
	"esc":     "escape",
	"cmd":     "command",
}

func normalizeKey(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.TrimPrefix(name, "left ")
	name = strings.TrimPrefix(name, "right ")
	if alias, ok := aliases[name]; ok {
		return alias
	}

	return name
}

func parseCombo(combo string) []string {
	var tokens []string
	for _, part := range strings.Split(combo, "+") {
		if key := normalizeKey(part); key != "" {
			tokens = append(tokens, key)
		}
	}

	return tokens
}

// HotkeySource watches the tap for a key combination like
// "ctrl+shift+delete" and fires its trigger the first time every token
// is held down at once. The trigger never fires a second time.
type HotkeySource struct {
	tap     *Tap
	combo   []string
	cancel  func()
	running atomic.Bool

	mu      sync.Mutex
	pressed map[string]bool
	fired   bool
}

func NewHotkeySource(tap *Tap, combo string) (*HotkeySource, error) {
	tokens := parseCombo(combo)
	if len(tokens) == 0 {
		return nil, errors.New().WithData(ErrEmptyHotkey, combo)
	}

	return &HotkeySource{
		tap:     tap,
		combo:   tokens,
		pressed: map[string]bool{},
	}, nil
}

func (s *HotkeySource) Available() error {
	return Available()
}

func (s *HotkeySource) Start(trigger func()) error {
	s.cancel = s.tap.Subscribe(func(ev gohook.Event) {
		switch ev.Kind {
		case gohook.KeyDown, gohook.KeyHold:
			s.press(normalizeKey(keyName(ev)), trigger)
		case gohook.KeyUp:
			s.release(normalizeKey(keyName(ev)))
		}
	})
	s.running.Store(true)

	return nil
}

func (s *HotkeySource) press(key string, trigger func()) {
	s.mu.Lock()
	s.pressed[key] = true
	fire := !s.fired && s.comboDown()
	if fire {
		s.fired = true
	}
	s.mu.Unlock()

	if fire {
		trigger()
	}
}

func (s *HotkeySource) release(key string) {
	s.mu.Lock()
	delete(s.pressed, key)
	s.mu.Unlock()
}

// comboDown is called with the mutex held.
func (s *HotkeySource) comboDown() bool {
	for _, key := range s.combo {
		if !s.pressed[key] {
			return false
		}
	}

	return true
}

func (s *HotkeySource) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.running.Store(false)
}

func (s *HotkeySource) Running() bool {
	return s.running.Load()
}
