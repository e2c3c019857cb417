package video

import (
	"context"

	"github.com/spf13/afero"
)

var fs = afero.NewOsFs()

type Connection interface {
	UUID() string
	Read(Frame) error
	IsOpen() bool
	Close() error
}

// StreamWriter publishes frames to an outbound image stream. Writers
// open lazily on the first written frame so the stream dimensions can
// be taken from the frame itself.
type StreamWriter interface {
	Write(Frame) error
	Close() error
}

type Backend interface {
	Connect(context.Context, string) (Connection, error)
	NewFrame() Frame
	NewWriter(target string, fps int) StreamWriter
}

func Default() Backend {
	return OpenCV()
}

func OpenCV() Backend {
	return &openCVBackend{}
}

func Mock() Backend {
	return &mockVideoBackend{}
}

func Resolve(t string) Backend {
	switch t {
	case "mock":
		return Mock()
	default:
		return Default()
	}
}

func Connect(addr string, backend Backend) (Connection, error) {
	return backend.Connect(context.Background(), addr)
}

func ConnectWithCancel(cancel context.Context, addr string, backend Backend) (Connection, error) {
	return backend.Connect(cancel, addr)
}
