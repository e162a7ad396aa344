package tune

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"codeberg.org/mutker/capturectl/internal/capture"
	"codeberg.org/mutker/capturectl/internal/recorder"
	"codeberg.org/mutker/capturectl/internal/telemetry"
)

const (
	probeQueueSize   = 100
	probeCompression = 6
	probePollEvery   = 50 * time.Millisecond
)

// ScreenProbe builds a Probe that runs a real screen-only recording of
// the given length into a scratch directory per configuration.
func ScreenProbe(grabber capture.Grabber, scratch string, frames int) Probe {
	return func(workers, fps int) (*telemetry.Report, error) {
		dir := filepath.Join(scratch, fmt.Sprintf("probe_%dw_%dfps", workers, fps))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}

		screen, err := recorder.NewScreen(grabber, recorder.ScreenConfig{
			Workers:     workers,
			FPS:         fps,
			FrameLimit:  frames,
			QueueSize:   probeQueueSize,
			Format:      "png",
			Compression: probeCompression,
		})
		if err != nil {
			return nil, err
		}
		screen.SetOutputDir(dir)
		screen.SetSessionID(fmt.Sprintf("tune-%dw-%dfps", workers, fps))

		if err := screen.Start(); err != nil {
			return nil, err
		}
		for !screen.ShouldStop() {
			time.Sleep(probePollEvery)
		}
		screen.Stop()

		return screen.Join()
	}
}
