package hook

import (
	"sync"
	"testing"
	"time"

	gohook "github.com/robotn/gohook"
	"github.com/0xcafed00d/joystick"

	"codeberg.org/mutker/capturectl/internal/input"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyboardSourceTranslation(t *testing.T) {
	tap, events, _ := testTap()

	var mu sync.Mutex
	var got []input.KeyEvent
	source := NewKeyboardSource(tap)
	require.NoError(t, source.Start(func(ev input.KeyEvent) {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
	}))

	events <- keyEvent(gohook.KeyHold, 'x')
	events <- keyEvent(gohook.KeyUp, 'x')
	events <- gohook.Event{Kind: gohook.MouseMove, X: 1, Y: 2} // not a key event

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, input.KeyPressed, got[0].Type)
	assert.Equal(t, "x", got[0].Key)
	assert.Positive(t, got[0].Timestamp)
	assert.Equal(t, input.KeyReleased, got[1].Type)

	source.Stop()
	assert.False(t, source.Running())
}

func TestMouseSourceTranslation(t *testing.T) {
	tap, events, _ := testTap()

	var mu sync.Mutex
	var got []input.PointerEvent
	source := NewMouseSource(tap)
	require.NoError(t, source.Start(func(ev input.PointerEvent) {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
	}))

	events <- gohook.Event{Kind: gohook.MouseMove, X: 10, Y: 20}
	events <- gohook.Event{Kind: gohook.MouseDown, X: 10, Y: 20, Button: 1}
	events <- gohook.Event{Kind: gohook.MouseWheel, X: 10, Y: 20, Rotation: -1}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, input.PointerMove, got[0].Type)
	assert.Equal(t, 10, got[0].X)
	assert.Nil(t, got[0].Pressed)

	assert.Equal(t, input.PointerClick, got[1].Type)
	assert.Equal(t, "left", got[1].Button)
	require.NotNil(t, got[1].Pressed)
	assert.True(t, *got[1].Pressed)

	assert.Equal(t, input.PointerScroll, got[2].Type)
	require.NotNil(t, got[2].DX)
	require.NotNil(t, got[2].DY)
	assert.Equal(t, 0, *got[2].DX)
	assert.Equal(t, -1, *got[2].DY)

	source.Stop()
}

type fakeJoystick struct {
	mu     sync.Mutex
	states []joystick.State
	closed bool
}

func (j *fakeJoystick) AxisCount() int   { return 2 }
func (j *fakeJoystick) ButtonCount() int { return 2 }
func (j *fakeJoystick) Name() string     { return "fake pad" }

func (j *fakeJoystick) Read() (joystick.State, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	state := j.states[0]
	if len(j.states) > 1 {
		j.states = j.states[1:]
	}
	return state, nil
}

func (j *fakeJoystick) Close() {
	j.mu.Lock()
	j.closed = true
	j.mu.Unlock()
}

func TestGamepadSourceDiffing(t *testing.T) {
	pad := &fakeJoystick{states: []joystick.State{
		{Buttons: 0, AxisData: []int{0, 0}},
		{Buttons: 1, AxisData: []int{5, 0}},
		{Buttons: 0, AxisData: []int{5, 0}},
	}}

	source := &GamepadSource{
		id:       0,
		interval: time.Millisecond,
		open:     func(int) (joystick.Joystick, error) { return pad, nil },
	}

	var mu sync.Mutex
	var got []input.PadEvent
	require.NoError(t, source.Start(func(ev input.PadEvent) {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
	}))
	assert.True(t, source.Running())

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) >= 3
	}, 2*time.Second, 5*time.Millisecond)

	source.Stop()
	assert.False(t, source.Running())

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, input.PadPressed, got[0].Type)
	assert.Equal(t, "BTN_0", got[0].Key)

	assert.Equal(t, input.PadAbsolute, got[1].Type)
	assert.Equal(t, "ABS_0", got[1].Axis)
	require.NotNil(t, got[1].Value)
	assert.Equal(t, 5, *got[1].Value)

	assert.Equal(t, input.PadReleased, got[2].Type)
	assert.Equal(t, "BTN_0", got[2].Key)
	assert.True(t, pad.closed)
}

func TestGamepadSourceOpenFailure(t *testing.T) {
	source := NewGamepadSource(0)
	source.open = func(int) (joystick.Joystick, error) { return nil, assert.AnError }

	require.Error(t, source.Available())
	require.Error(t, source.Start(func(input.PadEvent) {}))
	assert.False(t, source.Running())
}
