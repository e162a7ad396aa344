package capture_test

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/capturectl/internal/capture"
	"codeberg.org/mutker/capturectl/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGrabber struct {
	region capture.Region
	fail   bool
}

func (g *fakeGrabber) Bounds() (capture.Region, error) {
	return g.region, nil
}

func (g *fakeGrabber) Grab(region capture.Region) (*capture.Frame, error) {
	if g.fail {
		return nil, fmt.Errorf("grab failed")
	}
	return &capture.Frame{
		Timestamp: time.Now(),
		Region:    region,
		Pixels:    make([]byte, 4*region.Width*region.Height),
	}, nil
}

// pathRecorder is a persist capability that only remembers where each
// frame would have gone.
type pathRecorder struct {
	mu    sync.Mutex
	paths []string
	stall chan struct{} // non-nil blocks every persist call
}

func (r *pathRecorder) persist(_ *capture.Frame, path string) error {
	if r.stall != nil {
		<-r.stall
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, filepath.Base(path))
	return nil
}

func runPipeline(t *testing.T, workers, targetFPS, frameLimit, queueSize int) (telemetry.GrabRecord, []telemetry.SaveRecord, []*pathRecorder) {
	t.Helper()

	grabber := &fakeGrabber{region: capture.Region{Width: 4, Height: 4}}
	stop := &capture.StopFlag{}
	out := make(chan telemetry.Record, workers+1)

	channels := make([]chan *capture.Frame, workers)
	recorders := make([]*pathRecorder, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		channels[i] = make(chan *capture.Frame, queueSize)
		recorders[i] = &pathRecorder{}
		sink := capture.NewSink(i, workers, t.TempDir(), "png", recorders[i].persist)
		wg.Add(1)
		go func(s *capture.Sink, ch chan *capture.Frame) {
			defer wg.Done()
			s.Run(ch, out)
		}(sink, channels[i])
	}

	producer := capture.NewProducer(grabber, grabber.region, targetFPS, frameLimit, stop)
	wg.Add(1)
	go func() {
		defer wg.Done()
		producer.Run(channels, out)
	}()
	wg.Wait()

	var grab telemetry.GrabRecord
	var saves []telemetry.SaveRecord
	for i := 0; i < workers+1; i++ {
		switch rec := (<-out).(type) {
		case telemetry.GrabRecord:
			grab = rec
		case telemetry.SaveRecord:
			saves = append(saves, rec)
		}
	}
	sort.Slice(saves, func(i, j int) bool { return saves[i].WorkerID < saves[j].WorkerID })

	return grab, saves, recorders
}

// The reference scenario: 10 fps, 20 frames, two sinks, capacity 100.
func TestPipelineScenario(t *testing.T) {
	grab, saves, recorders := runPipeline(t, 2, 10, 20, 100)

	assert.Equal(t, 20, grab.Frames)
	assert.Len(t, grab.Timestamps, 20)
	assert.Greater(t, grab.MaxStableFPS, 0.0)
	require.Len(t, saves, 2, "exactly one save record per sink")

	// Round-robin: sink 0 gets even frame indices, sink 1 odd ones.
	// Artifact index = sequence*2 + worker, so the two sets interleave.
	var want0, want1 []string
	for seq := 0; seq < 10; seq++ {
		want0 = append(want0, fmt.Sprintf("file_%d.png", seq*2))
		want1 = append(want1, fmt.Sprintf("file_%d.png", seq*2+1))
	}
	assert.Equal(t, want0, recorders[0].paths)
	assert.Equal(t, want1, recorders[1].paths)

	assert.Equal(t, 10, saves[0].Frames)
	assert.Equal(t, 10, saves[1].Frames)
}

func TestFrameConservation(t *testing.T) {
	grab, saves, _ := runPipeline(t, 3, 100, 17, 10)

	total := 0
	for _, save := range saves {
		total += save.Frames
	}
	assert.Equal(t, grab.Frames, total, "no frame lost or duplicated")
	assert.Equal(t, 17, total)
}

func TestArtifactNamesInjective(t *testing.T) {
	_, _, recorders := runPipeline(t, 3, 100, 25, 100)

	seen := map[string]bool{}
	for _, rec := range recorders {
		for _, path := range rec.paths {
			assert.False(t, seen[path], "artifact name %s collided", path)
			seen[path] = true
		}
	}
	assert.Len(t, seen, 25)
}

// One closed channel per sink, delivered after all frames.
func TestTerminationMarkerPerSink(t *testing.T) {
	grabber := &fakeGrabber{region: capture.Region{Width: 2, Height: 2}}
	stop := &capture.StopFlag{}
	out := make(chan telemetry.Record, 1)

	channels := []chan *capture.Frame{
		make(chan *capture.Frame, 10),
		make(chan *capture.Frame, 10),
	}

	producer := capture.NewProducer(grabber, grabber.region, 1000, 4, stop)
	go producer.Run(channels, out)
	<-out

	for _, ch := range channels {
		frames := 0
		for range ch {
			frames++
		}
		assert.Equal(t, 2, frames, "each sink sees its contiguous subset before close")

		_, ok := <-ch
		assert.False(t, ok, "nothing arrives after the end-of-stream close")
	}
}

// With zero persistence throughput the producer must block at the
// channel bound instead of growing memory, and still shut down cleanly
// once stopped.
func TestBackpressureBlocksProducer(t *testing.T) {
	grabber := &fakeGrabber{region: capture.Region{Width: 2, Height: 2}}
	stop := &capture.StopFlag{}
	out := make(chan telemetry.Record, 1)
	ch := make(chan *capture.Frame, 3)

	producer := capture.NewProducer(grabber, grabber.region, 1000, 100, stop)
	go producer.Run([]chan *capture.Frame{ch}, out)

	require.Eventually(t, func() bool { return len(ch) == cap(ch) }, 2*time.Second, 10*time.Millisecond,
		"channel must fill to capacity")

	select {
	case <-out:
		t.Fatal("producer finished despite a saturated channel")
	case <-time.After(300 * time.Millisecond):
	}

	stop.Set()

	var grab telemetry.GrabRecord
	select {
	case rec := <-out:
		grab = rec.(telemetry.GrabRecord)
	case <-time.After(2 * time.Second):
		t.Fatal("producer did not stop after the flag was set")
	}
	assert.Equal(t, cap(ch), grab.Frames, "only delivered frames count as produced")

	drained := 0
	for range ch {
		drained++
	}
	assert.Equal(t, cap(ch), drained, "enqueued frames stay available for draining")
}

func TestProducerGrabFailure(t *testing.T) {
	grabber := &fakeGrabber{region: capture.Region{Width: 2, Height: 2}, fail: true}
	stop := &capture.StopFlag{}
	out := make(chan telemetry.Record, 1)
	ch := make(chan *capture.Frame, 10)

	producer := capture.NewProducer(grabber, grabber.region, 10, 5, stop)
	go producer.Run([]chan *capture.Frame{ch}, out)

	grab := (<-out).(telemetry.GrabRecord)
	assert.Zero(t, grab.Frames)
	assert.Zero(t, grab.MaxStableFPS)

	_, ok := <-ch
	assert.False(t, ok, "channels are closed even on capture failure")
}

// A sink whose producer died without closing the channel must bail out
// after its bounded wait instead of hanging.
func TestSinkBoundedWait(t *testing.T) {
	out := make(chan telemetry.Record, 1)
	ch := make(chan *capture.Frame, 1)

	sink := capture.NewSink(0, 1, t.TempDir(), "png", (&pathRecorder{}).persist)
	sink.SetRecvTimeout(50 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		sink.Run(ch, out)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sink did not stop after its bounded wait")
	}

	save := (<-out).(telemetry.SaveRecord)
	assert.Zero(t, save.Frames)
}

func TestStopFlagWriteOnce(t *testing.T) {
	stop := &capture.StopFlag{}
	assert.False(t, stop.IsSet())

	stop.Set()
	stop.Set() // second set has no further effect
	assert.True(t, stop.IsSet())
}
