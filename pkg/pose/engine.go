package pose

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/posedaemon/posed/pkg/log"
	"github.com/posedaemon/posed/pkg/video"
	"github.com/tauraamui/xerror"
)

// Engine is the asynchronous pose estimation boundary. Frames go in
// through TrySubmit, results come back out through TryRetrieve in the
// exact order their frames were accepted. Neither operation blocks.
//
// Stop contract: results already computed, and results for frames
// accepted before Stop, remain retrievable after Stop until Drained
// reports true. A fatal estimator error drops any queued frames.
type Engine interface {
	Start() error
	Stop()
	TrySubmit(video.Frame) bool
	TryRetrieve() *Result
	Drained() bool
	Err() error
}

type EngineSettings struct {
	QueueSize int
	Estimator Estimator
	Renderer  Renderer
}

func NewEngine(settings EngineSettings) Engine {
	queueSize := settings.QueueSize
	if queueSize < 1 {
		queueSize = 1
	}
	return &asyncEngine{
		est:  settings.Estimator,
		rend: settings.Renderer,
		in:   make(chan video.Frame, queueSize),
		out:  make(chan *Result, queueSize),
	}
}

// asyncEngine runs a single worker goroutine over a bounded input
// queue. One worker is what guarantees FIFO retrieval order.
type asyncEngine struct {
	est  Estimator
	rend Renderer

	in  chan video.Frame
	out chan *Result

	mu      sync.Mutex
	started bool
	closed  bool
	fatal   error

	drained int32
}

func (e *asyncEngine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return xerror.New("engine already started")
	}
	if e.closed {
		return xerror.New("engine already stopped")
	}
	e.started = true
	go e.run()
	return nil
}

func (e *asyncEngine) run() {
	defer close(e.out)
	for frame := range e.in {
		if e.Err() != nil {
			frame.Close()
			continue
		}

		people, err := e.est.EstimatePose(frame)
		if err != nil {
			e.setErr(err)
			frame.Close()
			continue
		}

		result := &Result{ID: uuid.NewString(), Frame: frame, People: people}
		if e.rend != nil {
			annotated, err := e.rend.Render(frame, people)
			if err != nil {
				log.Error("unable to render annotated frame: %s", err.Error())
			} else {
				result.Annotated = annotated
			}
		}

		e.out <- result
	}
}

// TrySubmit hands a frame to the worker. Returns false when the input
// queue is full or the engine has been stopped; the caller keeps
// ownership of refused frames.
func (e *asyncEngine) TrySubmit(frame video.Frame) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started || e.closed {
		return false
	}
	select {
	case e.in <- frame:
		return true
	default:
		return false
	}
}

// TryRetrieve pops the next completed result, or returns nil when no
// result is ready yet.
func (e *asyncEngine) TryRetrieve() *Result {
	select {
	case result, ok := <-e.out:
		if !ok {
			atomic.StoreInt32(&e.drained, 1)
			return nil
		}
		return result
	default:
		return nil
	}
}

// Stop closes the input queue. The worker finishes whatever was
// accepted before returning; call TryRetrieve until Drained to collect
// the remainder.
func (e *asyncEngine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	if !e.started {
		// no worker ever ran, nothing will arrive
		atomic.StoreInt32(&e.drained, 1)
		return
	}
	close(e.in)
}

func (e *asyncEngine) Drained() bool {
	return atomic.LoadInt32(&e.drained) == 1
}

func (e *asyncEngine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fatal
}

func (e *asyncEngine) setErr(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fatal == nil {
		e.fatal = err
	}
}
