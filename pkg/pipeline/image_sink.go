package pipeline

import (
	"github.com/posedaemon/posed/pkg/pose"
	"github.com/posedaemon/posed/pkg/video"
)

// ImageSink republishes annotated frames to the outbound image stream.
// Results without an annotated frame (rendering disabled) are skipped
// silently.
type ImageSink struct {
	writer video.StreamWriter
}

func NewImageSink(writer video.StreamWriter) *ImageSink {
	return &ImageSink{writer: writer}
}

func (s *ImageSink) Name() string { return "annotated-images" }

func (s *ImageSink) Consume(result *pose.Result) error {
	if result.Annotated == nil {
		return nil
	}
	return s.writer.Write(result.Annotated)
}

func (s *ImageSink) Close() error {
	return s.writer.Close()
}
