package pose

import (
	"github.com/posedaemon/posed/pkg/video"
)

type Keypoint struct {
	Part  int
	X     float64
	Y     float64
	Score float64
}

type Person struct {
	Keypoints []Keypoint
}

// KeypointAt returns the keypoint for the given body part index, or a
// zero-confidence placeholder when the estimator produced nothing for
// that part. Sinks rely on this to emit a full fixed-order part list.
func (p Person) KeypointAt(part int) Keypoint {
	for _, kp := range p.Keypoints {
		if kp.Part == part {
			return kp
		}
	}
	return Keypoint{Part: part}
}

// Result is the output of one frame's pose estimation. The pipeline
// controller owns the result until it has been routed; sinks borrow it
// for the duration of a single consume call and must not retain it.
type Result struct {
	ID        string
	Frame     video.Frame
	Annotated video.Frame
	People    []Person
}

func (r *Result) Close() {
	if r.Frame != nil {
		r.Frame.Close()
	}
	if r.Annotated != nil {
		r.Annotated.Close()
	}
}
