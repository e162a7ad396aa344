package capture

import (
	"image"
	"time"

	"codeberg.org/mutker/capturectl/internal/errors"
	"github.com/kbinani/screenshot"
)

// Grabber is the raw screen capture capability.
type Grabber interface {
	// Bounds reports the display geometry. It doubles as the
	// availability probe: an error means there is nothing to capture.
	Bounds() (Region, error)

	// Grab captures one frame of the given region. A failure here is
	// fatal to the producer.
	Grab(region Region) (*Frame, error)
}

type displayGrabber struct {
	display int
}

// NewDisplayGrabber returns a Grabber for the given display index.
func NewDisplayGrabber(display int) Grabber {
	return &displayGrabber{display: display}
}

func (g *displayGrabber) Bounds() (Region, error) {
	errFactory := errors.New()

	if g.display < 0 || g.display >= screenshot.NumActiveDisplays() {
		return Region{}, errFactory.WithData(ErrNoDisplay, g.display)
	}

	bounds := screenshot.GetDisplayBounds(g.display)

	return Region{
		X:      bounds.Min.X,
		Y:      bounds.Min.Y,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

func (g *displayGrabber) Grab(region Region) (*Frame, error) {
	errFactory := errors.New()

	if region.Width <= 0 || region.Height <= 0 {
		return nil, errFactory.WithData(ErrInvalidRegion, region)
	}

	img, err := screenshot.CaptureRect(image.Rect(region.X, region.Y, region.X+region.Width, region.Y+region.Height))
	if err != nil {
		return nil, errFactory.Wrap(ErrGrabFailed, err)
	}

	return &Frame{
		Timestamp: time.Now(),
		Region:    region,
		Pixels:    img.Pix,
	}, nil
}
