package hook

import (
	"os"
	"runtime"
	"sync"

	gohook "github.com/robotn/gohook"

	"codeberg.org/mutker/capturectl/internal/errors"
)

// The process may install at most one OS-level input hook, so every
// keyboard, mouse and hotkey consumer shares a Tap that fans the single
// event stream out to its subscribers.
type Tap struct {
	mu   sync.Mutex
	subs map[int]func(gohook.Event)
	next int
	done chan struct{}

	start func() chan gohook.Event
	end   func()
}

var shared = NewTap()

// Shared returns the process-wide tap.
func Shared() *Tap {
	return shared
}

func NewTap() *Tap {
	return &Tap{
		subs:  map[int]func(gohook.Event){},
		start: gohook.Start,
		end:   gohook.End,
	}
}

// Available reports whether an OS input hook can be installed.
func Available() error {
	if runtime.GOOS == "linux" && os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
		return errors.New().WithMessage(ErrNoInputHook, "no display session for the input hook")
	}

	return nil
}

// Subscribe registers fn for every hook event and returns its cancel
// function. The OS hook is installed with the first subscriber and torn
// down with the last.
func (t *Tap) Subscribe(fn func(gohook.Event)) func() {
	t.mu.Lock()
	id := t.next
	t.next++
	t.subs[id] = fn
	if len(t.subs) == 1 {
		done := make(chan struct{})
		t.done = done
		go t.dispatch(t.start(), done)
	}
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { t.unsubscribe(id) })
	}
}

func (t *Tap) dispatch(events chan gohook.Event, done chan struct{}) {
	defer close(done)

	for ev := range events {
		t.mu.Lock()
		handlers := make([]func(gohook.Event), 0, len(t.subs))
		for _, fn := range t.subs {
			handlers = append(handlers, fn)
		}
		t.mu.Unlock()

		for _, fn := range handlers {
			fn(ev)
		}
	}
}

func (t *Tap) unsubscribe(id int) {
	t.mu.Lock()
	delete(t.subs, id)
	last := len(t.subs) == 0
	done := t.done
	t.mu.Unlock()

	if last {
		t.end()
		<-done
	}
}

// keyName prefers the translated character and falls back to the raw
// keycode lookup for keys that have none.
func keyName(ev gohook.Event) string {
	if ev.Keychar != 0 && ev.Keychar != 65535 {
		return string(ev.Keychar)
	}

	return gohook.RawcodetoKeychar(ev.Rawcode)
}
