package pipeline

import (
	"sync/atomic"

	"github.com/posedaemon/posed/pkg/log"
	"github.com/posedaemon/posed/pkg/pose"
)

// Sink consumes a routed result and produces an external side effect.
// The result is borrowed: it is only valid for the duration of the
// Consume call and must not be retained.
type Sink interface {
	Name() string
	Consume(*pose.Result) error
}

// Router fans one result out to every registered sink. A failing sink
// is logged and counted but never prevents the remaining sinks from
// seeing the same result.
type Router struct {
	sinks        []Sink
	sinkFailures uint64
}

func NewRouter(sinks ...Sink) *Router {
	return &Router{sinks: sinks}
}

func (r *Router) Route(result *pose.Result) {
	for _, sink := range r.sinks {
		if err := sink.Consume(result); err != nil {
			atomic.AddUint64(&r.sinkFailures, 1)
			log.Error("sink [%s] failed to consume result %s: %s", sink.Name(), result.ID, err.Error())
		}
	}
}

func (r *Router) SinkFailures() uint64 {
	return atomic.LoadUint64(&r.sinkFailures)
}
