package pipeline

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/posedaemon/posed/pkg/log"
	"github.com/posedaemon/posed/pkg/pose"
)

type State int32

const (
	Idle State = iota
	Running
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

type Stats struct {
	State           string
	SubmittedFrames uint64
	DroppedFrames   uint64
	RoutedResults   uint64
	SinkFailures    uint64
}

// Controller drives the acquire/submit/retrieve/route cycle. All state
// transitions happen on the ticking goroutine except RequestStop, which
// any goroutine may call; the new state is observed at the next tick
// boundary.
type Controller struct {
	source FrameSource
	engine pose.Engine
	router *Router

	state         int32
	stopRequested int32
	submitted     uint64
	dropped       uint64
	routed        uint64
}

func NewController(source FrameSource, engine pose.Engine, router *Router) *Controller {
	return &Controller{source: source, engine: engine, router: router}
}

func (c *Controller) Start() error {
	if !atomic.CompareAndSwapInt32(&c.state, int32(Idle), int32(Running)) {
		return errors.New("pipeline controller already started")
	}
	if err := c.engine.Start(); err != nil {
		atomic.StoreInt32(&c.state, int32(Stopped))
		return err
	}
	if atomic.LoadInt32(&c.stopRequested) == 1 {
		c.transition(Running, Stopping)
	}
	return nil
}

// Tick runs one acquire/submit/retrieve/route cycle and reports whether
// the caller should keep ticking.
//
// Exactly one submission is attempted per tick; a refused frame is
// dropped and counted, never queued for retry. One retrieval is
// attempted per tick regardless of whether this tick's submission was
// accepted -- retrieving only after accepted submissions could livelock
// against a full engine, and results may lag submissions by any number
// of ticks anyway. Remaining in-flight results are collected by
// Finalize during shutdown.
func (c *Controller) Tick() bool {
	if c.State() != Running {
		return false
	}

	if err := c.engine.Err(); err != nil {
		log.Error("pose engine cannot continue: %s", err.Error())
		c.transition(Running, Stopping)
		return false
	}

	frame, err := c.source.Acquire()
	if err != nil {
		if errors.Is(err, ErrEndOfStream) {
			c.transition(Running, Stopping)
			return false
		}
		log.Error("unable to acquire frame: %s", err.Error())
		return true
	}

	if c.engine.TrySubmit(frame) {
		atomic.AddUint64(&c.submitted, 1)
	} else {
		frame.Close()
		atomic.AddUint64(&c.dropped, 1)
		log.Warn("pose engine queue full, dropping frame")
	}

	if result := c.engine.TryRetrieve(); result != nil {
		c.route(result)
	}

	return c.State() == Running
}

// RequestStop asks the controller to stop at the next tick boundary.
// Safe to call from any goroutine, idempotent. A stop requested before
// Start is remembered and takes effect as soon as the pipeline starts.
func (c *Controller) RequestStop() {
	atomic.StoreInt32(&c.stopRequested, 1)
	c.transition(Running, Stopping)
}

const drainInterval = 5 * time.Millisecond

// Finalize stops the engine and routes every result that was still in
// flight, then marks the pipeline stopped. Results already computed
// when the stop was requested are never dropped.
func (c *Controller) Finalize() {
	c.transition(Running, Stopping)

	c.engine.Stop()
	for !c.engine.Drained() {
		result := c.engine.TryRetrieve()
		if result == nil {
			time.Sleep(drainInterval)
			continue
		}
		c.route(result)
	}

	atomic.StoreInt32(&c.state, int32(Stopped))
}

func (c *Controller) route(result *pose.Result) {
	c.router.Route(result)
	result.Close()
	atomic.AddUint64(&c.routed, 1)
}

func (c *Controller) State() State {
	return State(atomic.LoadInt32(&c.state))
}

func (c *Controller) transition(from, to State) {
	atomic.CompareAndSwapInt32(&c.state, int32(from), int32(to))
}

func (c *Controller) Stats() Stats {
	return Stats{
		State:           c.State().String(),
		SubmittedFrames: atomic.LoadUint64(&c.submitted),
		DroppedFrames:   atomic.LoadUint64(&c.dropped),
		RoutedResults:   atomic.LoadUint64(&c.routed),
		SinkFailures:    c.router.SinkFailures(),
	}
}
