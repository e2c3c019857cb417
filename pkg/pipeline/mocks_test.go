package pipeline_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/posedaemon/posed/pkg/pipeline"
	"github.com/posedaemon/posed/pkg/pose"
	"github.com/posedaemon/posed/pkg/video"
)

type mockFrame struct {
	seq     int
	width   int
	height  int
	closed  bool
	onClose func()
}

func (m *mockFrame) DataRef() interface{} {
	return m.seq
}

func (m *mockFrame) Dimensions() video.Dimensions {
	return video.Dimensions{W: m.width, H: m.height}
}

func (m *mockFrame) Timestamp() int64 {
	return int64(m.seq)
}

func (m *mockFrame) Close() {
	m.closed = true
	if m.onClose != nil {
		m.onClose()
	}
}

type mockSource struct {
	acquired int
	frames   []*mockFrame
	failAt   int
	failErr  error
}

func (s *mockSource) Acquire() (video.Frame, error) {
	s.acquired++
	if s.failAt > 0 && s.acquired == s.failAt {
		return nil, s.failErr
	}
	if len(s.frames) == 0 {
		return nil, pipeline.ErrEndOfStream
	}
	frame := s.frames[0]
	s.frames = s.frames[1:]
	return frame, nil
}

// mockEngine resolves every accepted frame into a result immediately,
// optionally holding results back until more than lag of them are
// pending to imitate estimation latency.
type mockEngine struct {
	mu        sync.Mutex
	startErr  error
	started   bool
	stopped   bool
	onStop    func()
	accept    func(video.Frame) bool
	lag       int
	submitted []video.Frame
	pending   []*pose.Result
	fatal     error
}

func (e *mockEngine) Start() error {
	if e.startErr != nil {
		return e.startErr
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.started = true
	return nil
}

func (e *mockEngine) Stop() {
	e.mu.Lock()
	e.stopped = true
	e.mu.Unlock()
	if e.onStop != nil {
		e.onStop()
	}
}

func (e *mockEngine) TrySubmit(frame video.Frame) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.accept != nil && !e.accept(frame) {
		return false
	}
	e.submitted = append(e.submitted, frame)
	e.pending = append(e.pending, &pose.Result{
		ID:    fmt.Sprintf("result-%d", frame.(*mockFrame).seq),
		Frame: frame,
		People: []pose.Person{
			{Keypoints: []pose.Keypoint{{Part: 0, X: float64(frame.(*mockFrame).seq), Score: 0.9}}},
		},
	})
	return true
}

func (e *mockEngine) TryRetrieve() *pose.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.pending) == 0 {
		return nil
	}
	if !e.stopped && len(e.pending) <= e.lag {
		return nil
	}
	result := e.pending[0]
	e.pending = e.pending[1:]
	return result
}

func (e *mockEngine) Drained() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopped && len(e.pending) == 0
}

func (e *mockEngine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fatal
}

func (e *mockEngine) setFatal(err error) {
	e.mu.Lock()
	e.fatal = err
	e.mu.Unlock()
}

func (e *mockEngine) submitCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.submitted)
}

type recordingSink struct {
	name string
	ids  []string
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Consume(result *pose.Result) error {
	s.ids = append(s.ids, result.ID)
	return nil
}

type failingSink struct {
	name string
	err  error
}

func (s *failingSink) Name() string { return s.name }

func (s *failingSink) Consume(result *pose.Result) error {
	return s.err
}

type mockStreamWriter struct {
	writes   int
	last     video.Frame
	writeErr error
	closed   bool
}

func (w *mockStreamWriter) Write(frame video.Frame) error {
	if w.writeErr != nil {
		return w.writeErr
	}
	w.writes++
	w.last = frame
	return nil
}

func (w *mockStreamWriter) Close() error {
	w.closed = true
	return nil
}

type readStep struct {
	err    error
	width  int
	height int
}

type mockVideoConn struct {
	reads int
	steps []readStep
}

func (c *mockVideoConn) UUID() string { return "mock-video-conn" }

func (c *mockVideoConn) Read(frame video.Frame) error {
	c.reads++
	if len(c.steps) == 0 {
		return fmt.Errorf("no frames left to read")
	}
	step := c.steps[0]
	c.steps = c.steps[1:]
	if step.err != nil {
		return step.err
	}
	mf := frame.(*mockFrame)
	mf.width = step.width
	mf.height = step.height
	return nil
}

func (c *mockVideoConn) IsOpen() bool { return true }

func (c *mockVideoConn) Close() error { return nil }

type mockVideoBackend struct {
	conn      *mockVideoConn
	madeCount int
	lastFrame *mockFrame
}

func (b *mockVideoBackend) Connect(_ context.Context, _ string) (video.Connection, error) {
	return b.conn, nil
}

func (b *mockVideoBackend) NewFrame() video.Frame {
	b.madeCount++
	b.lastFrame = &mockFrame{seq: b.madeCount}
	return b.lastFrame
}

func (b *mockVideoBackend) NewWriter(target string, fps int) video.StreamWriter {
	return &mockStreamWriter{}
}
