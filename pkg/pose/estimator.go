package pose

import (
	"math"

	"github.com/posedaemon/posed/pkg/configdef"
	"github.com/posedaemon/posed/pkg/video"
)

// Estimator computes the people visible in a single frame. The frame
// is read-only for the duration of the call.
type Estimator interface {
	EstimatePose(video.Frame) ([]Person, error)
	Close() error
}

// Renderer draws estimated keypoints back onto a copy of the source
// frame. Implementations must never modify the source frame.
type Renderer interface {
	Render(video.Frame, []Person) (video.Frame, error)
}

// ResolveEstimator picks the estimator implementation by name, mostly
// useful for running the daemon without model weights present.
func ResolveEstimator(t string, cfg configdef.Pose) (Estimator, error) {
	switch t {
	case "mock":
		return NewMockEstimator(), nil
	default:
		return NewDNNEstimator(cfg)
	}
}

// MockEstimator emits one synthetic person swaying around the frame
// centre. Deterministic enough for development, varied enough to light
// up every downstream sink.
type MockEstimator struct {
	tick int
}

func NewMockEstimator() *MockEstimator {
	return &MockEstimator{}
}

func (e *MockEstimator) EstimatePose(frame video.Frame) ([]Person, error) {
	dimensions := frame.Dimensions()
	if dimensions.W == 0 || dimensions.H == 0 {
		return nil, nil
	}

	e.tick++
	sway := math.Sin(float64(e.tick) / 10)

	cx, cy := float64(dimensions.W)/2, float64(dimensions.H)/2
	person := Person{Keypoints: make([]Keypoint, 0, NumBodyParts)}
	for part := 0; part < NumBodyParts; part++ {
		angle := (2 * math.Pi / NumBodyParts) * float64(part)
		person.Keypoints = append(person.Keypoints, Keypoint{
			Part:  part,
			X:     cx + (cx/3)*math.Cos(angle) + sway*10,
			Y:     cy + (cy/3)*math.Sin(angle),
			Score: 0.75,
		})
	}

	return []Person{person}, nil
}

func (e *MockEstimator) Close() error { return nil }
