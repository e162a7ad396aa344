package input

import "time"

// Event type tags as they appear in the persisted JSON artifacts.
// Keyboard releases are tagged "release" while gamepad releases are
// tagged "released"; both spellings are part of the artifact format.
const (
	KeyPressed  = "pressed"
	KeyReleased = "release"

	PointerMove   = "move"
	PointerClick  = "click"
	PointerScroll = "scroll"

	PadPressed  = "pressed"
	PadReleased = "released"
	PadAbsolute = "absolute"
)

// Stamp converts a capture instant to epoch seconds, the timestamp
// representation used in every event artifact. Seconds and the
// fractional part are converted separately: a single UnixNano division
// loses microsecond digits at epoch magnitude.
func Stamp(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/float64(time.Second)
}

// KeyEvent is one keyboard press or release.
type KeyEvent struct {
	Timestamp float64 `json:"timestamp"`
	Type      string  `json:"type"`
	Key       string  `json:"key"`
}

// PointerEvent is one mouse move, click or scroll. Click and scroll
// fields are pointers so a genuine zero survives serialization while
// the fields stay absent from the other event types.
type PointerEvent struct {
	Timestamp float64 `json:"timestamp"`
	Type      string  `json:"type"`
	X         int     `json:"x"`
	Y         int     `json:"y"`
	Button    string  `json:"button,omitempty"`
	Pressed   *bool   `json:"is_pressed,omitempty"`
	DX        *int    `json:"dx,omitempty"`
	DY        *int    `json:"dy,omitempty"`
}

// PadEvent is one gamepad button transition or axis movement.
type PadEvent struct {
	Timestamp float64 `json:"timestamp"`
	Type      string  `json:"type"`
	Key       string  `json:"key,omitempty"`
	Axis      string  `json:"axis,omitempty"`
	Value     *int    `json:"value,omitempty"`
}
