package process

import (
	"context"
	"fmt"
	"time"

	"github.com/posedaemon/posed/pkg/log"
	"github.com/posedaemon/posed/pkg/pipeline"
)

// NewPipelineProcess wraps a pipeline controller in a ticking loop. One
// tick runs the full acquire/submit/retrieve/route cycle; the period
// paces the pipeline without busy-spinning since frame acquisition
// itself blocks on the stream's delivery rate.
func NewPipelineProcess(streamTitle string, controller *pipeline.Controller, tickPeriod time.Duration) Process {
	return New(Settings{
		WaitForShutdownMsg: fmt.Sprintf("Stopping pose pipeline for [%s] stream...", streamTitle),
		Process:            PipelineTickProcess(controller, tickPeriod),
	})
}

func PipelineTickProcess(controller *pipeline.Controller, tickPeriod time.Duration) func(context.Context) []chan interface{} {
	return func(ctx context.Context) []chan interface{} {
		stopping := make(chan interface{})
		go func() {
			defer close(stopping)
			defer controller.Finalize()

			if err := controller.Start(); err != nil {
				log.Error("Unable to start pose pipeline: %v", err)
				return
			}

			ticker := time.NewTicker(tickPeriod)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					controller.RequestStop()
					return
				case <-ticker.C:
					if !controller.Tick() {
						return
					}
				}
			}
		}()
		return []chan interface{}{stopping}
	}
}
