package capture

import (
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"strings"

	"codeberg.org/mutker/capturectl/internal/errors"
)

const jpegQuality = 90

// PersistFunc is the frame persistence capability: it serializes one
// frame to the given path. Errors propagate as the sink's fatal error.
type PersistFunc func(frame *Frame, path string) error

// NewEncoder returns a PersistFunc for the given image format. The
// compression parameter only applies to PNG (0 = none, 9 = max).
func NewEncoder(format string, compression int) (PersistFunc, error) {
	errFactory := errors.New()

	switch strings.ToLower(format) {
	case "png":
		return pngEncoder(compression), nil
	case "jpg", "jpeg":
		return jpegEncoder(), nil
	default:
		return nil, errFactory.WithData(ErrInvalidFormat, format)
	}
}

// Ext returns the file extension used for the given format.
func Ext(format string) string {
	if strings.EqualFold(format, "jpeg") {
		return "jpg"
	}
	return strings.ToLower(format)
}

func frameImage(frame *Frame) *image.RGBA {
	return &image.RGBA{
		Pix:    frame.Pixels,
		Stride: 4 * frame.Region.Width,
		Rect:   image.Rect(0, 0, frame.Region.Width, frame.Region.Height),
	}
}

// pngLevel maps the 0-9 knob onto the stdlib's coarser levels.
func pngLevel(compression int) png.CompressionLevel {
	switch {
	case compression <= 0:
		return png.NoCompression
	case compression <= 3:
		return png.BestSpeed
	case compression <= 6:
		return png.DefaultCompression
	default:
		return png.BestCompression
	}
}

func pngEncoder(compression int) PersistFunc {
	errFactory := errors.New()
	enc := &png.Encoder{CompressionLevel: pngLevel(compression)}

	return func(frame *Frame, path string) error {
		f, err := os.Create(path)
		if err != nil {
			return errFactory.Wrap(ErrPersistFailed, err)
		}

		if err := enc.Encode(f, frameImage(frame)); err != nil {
			f.Close()
			return errFactory.Wrap(ErrEncodeFailed, err)
		}

		if err := f.Close(); err != nil {
			return errFactory.Wrap(ErrPersistFailed, err)
		}

		return nil
	}
}

func jpegEncoder() PersistFunc {
	errFactory := errors.New()
	opts := &jpeg.Options{Quality: jpegQuality}

	return func(frame *Frame, path string) error {
		f, err := os.Create(path)
		if err != nil {
			return errFactory.Wrap(ErrPersistFailed, err)
		}

		if err := jpeg.Encode(f, frameImage(frame), opts); err != nil {
			f.Close()
			return errFactory.Wrap(ErrEncodeFailed, err)
		}

		if err := f.Close(); err != nil {
			return errFactory.Wrap(ErrPersistFailed, err)
		}

		return nil
	}
}
