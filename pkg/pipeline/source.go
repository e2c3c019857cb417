package pipeline

import (
	"errors"

	"github.com/posedaemon/posed/pkg/log"
	"github.com/posedaemon/posed/pkg/video"
)

// ErrEndOfStream is the sole end-of-stream signal: the ingress stream
// yielded an empty frame or the transport closed underneath us.
var ErrEndOfStream = errors.New("end of stream")

// FrameSource acquires one frame per call, blocking until the external
// stream delivers one. Once ErrEndOfStream has been returned every
// subsequent call returns it again.
type FrameSource interface {
	Acquire() (video.Frame, error)
}

func NewFrameSource(title string, backend video.Backend, conn video.Connection) FrameSource {
	return &streamSource{title: title, backend: backend, conn: conn}
}

type streamSource struct {
	title   string
	backend video.Backend
	conn    video.Connection
	ended   bool
}

func (s *streamSource) Acquire() (video.Frame, error) {
	if s.ended {
		return nil, ErrEndOfStream
	}

	frame := s.backend.NewFrame()
	if err := s.conn.Read(frame); err != nil {
		frame.Close()
		s.markEnded()
		return nil, ErrEndOfStream
	}

	dimensions := frame.Dimensions()
	if dimensions.W == 0 || dimensions.H == 0 {
		frame.Close()
		s.markEnded()
		return nil, ErrEndOfStream
	}

	return frame, nil
}

func (s *streamSource) markEnded() {
	s.ended = true
	log.Info("Empty frame detected on [%s] stream, treating as end of stream", s.title)
}
