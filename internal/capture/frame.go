package capture

import "time"

// Region describes the screen rectangle being captured.
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Frame is one captured screenshot. It is immutable after creation:
// the producer owns it until the moment it lands on a sink channel,
// after which exactly one sink owns it until persistence.
type Frame struct {
	Timestamp time.Time
	Region    Region
	Pixels    []byte // RGBA, 4 bytes per pixel, row-major
}
