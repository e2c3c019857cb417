package process_test

import (
	"sync"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/posedaemon/posed/pkg/pipeline"
	"github.com/posedaemon/posed/pkg/pose"
	"github.com/posedaemon/posed/pkg/posed/process"
	"github.com/posedaemon/posed/pkg/video"
)

type testFrame struct {
	seq int

	mu     sync.Mutex
	closed bool
}

func (f *testFrame) DataRef() interface{} { return f.seq }

func (f *testFrame) Dimensions() video.Dimensions { return video.Dimensions{W: 320, H: 240} }

func (f *testFrame) Timestamp() int64 { return int64(f.seq) }

func (f *testFrame) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

// finiteSource serves a fixed number of frames then signals end of
// stream, like a recording that runs out.
type finiteSource struct {
	mu       sync.Mutex
	remained int
	served   int
}

func (s *finiteSource) Acquire() (video.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.remained == 0 {
		return nil, pipeline.ErrEndOfStream
	}
	s.remained--
	s.served++
	return &testFrame{seq: s.served}, nil
}

type seqEstimator struct{}

func (e seqEstimator) EstimatePose(frame video.Frame) ([]pose.Person, error) {
	seq := frame.(*testFrame).seq
	return []pose.Person{
		{Keypoints: []pose.Keypoint{{Part: 0, X: float64(seq), Score: 0.9}}},
	}, nil
}

func (e seqEstimator) Close() error { return nil }

type collectingSink struct {
	mu sync.Mutex
	xs []float64
}

func (s *collectingSink) Name() string { return "collector" }

func (s *collectingSink) Consume(result *pose.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.xs = append(s.xs, result.People[0].Keypoints[0].X)
	return nil
}

func (s *collectingSink) collected() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]float64{}, s.xs...)
}

func waitForState(t *testing.T, controller *pipeline.Controller, want pipeline.State) {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for controller.State() != want {
		select {
		case <-timeout:
			t.Fatalf("timed out waiting for pipeline state %s, still %s", want, controller.State())
		default:
			time.Sleep(2 * time.Millisecond)
		}
	}
}

func TestPipelineProcessRunsStreamToCompletion(t *testing.T) {
	is := is.New(t)

	source := &finiteSource{remained: 5}
	engine := pose.NewEngine(pose.EngineSettings{QueueSize: 4, Estimator: seqEstimator{}})
	sink := &collectingSink{}
	controller := pipeline.NewController(source, engine, pipeline.NewRouter(sink))

	proc := process.NewPipelineProcess("FakeStream", controller, 2*time.Millisecond)
	proc.Setup().Start()

	waitForState(t, controller, pipeline.Stopped)
	proc.Stop()
	proc.Wait()

	stats := controller.Stats()
	is.Equal(stats.State, "stopped")
	is.Equal(stats.SubmittedFrames, uint64(5))
	is.Equal(stats.RoutedResults, uint64(5))
	is.Equal(stats.SinkFailures, uint64(0))
	is.Equal(sink.collected(), []float64{1, 2, 3, 4, 5})
}

func TestPipelineProcessStopsOnDemand(t *testing.T) {
	is := is.New(t)

	// effectively endless stream, only a stop request ends it
	source := &finiteSource{remained: 1 << 30}
	engine := pose.NewEngine(pose.EngineSettings{QueueSize: 4, Estimator: seqEstimator{}})
	sink := &collectingSink{}
	controller := pipeline.NewController(source, engine, pipeline.NewRouter(sink))

	proc := process.NewPipelineProcess("FakeStream", controller, 2*time.Millisecond)
	proc.Setup().Start()

	waitForState(t, controller, pipeline.Running)
	proc.Stop()
	proc.Wait()

	stats := controller.Stats()
	is.Equal(stats.State, "stopped")
	// every result computed before the stop still reached the sink
	is.Equal(stats.RoutedResults, uint64(len(sink.collected())))
}
