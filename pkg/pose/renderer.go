package pose

import (
	"image"
	"image/color"

	"github.com/posedaemon/posed/pkg/configdef"
	"github.com/posedaemon/posed/pkg/video"
	"github.com/tauraamui/xerror"
	"gocv.io/x/gocv"
)

// limbPairs are the COCO skeleton connections drawn between keypoints.
var limbPairs = [][2]int{
	{1, 2}, {1, 5}, {2, 3}, {3, 4}, {5, 6}, {6, 7},
	{1, 8}, {8, 9}, {9, 10}, {1, 11}, {11, 12}, {12, 13},
	{1, 0}, {0, 14}, {14, 15}, {0, 16}, {16, 17},
}

const renderScoreThreshold = 0.05

type openCVRenderer struct {
	backend         video.Backend
	alpha           float64
	disableBlending bool
}

// NewRenderer builds the annotated-frame renderer, or returns nil when
// rendering is disabled in config so the engine skips the work
// entirely and results carry no annotated frame.
func NewRenderer(backend video.Backend, cfg configdef.Pose) Renderer {
	if cfg.NoRenderOutput {
		return nil
	}
	return &openCVRenderer{
		backend:         backend,
		alpha:           cfg.AlphaPose,
		disableBlending: cfg.DisableBlending,
	}
}

func (r *openCVRenderer) Render(frame video.Frame, people []Person) (video.Frame, error) {
	src, ok := frame.DataRef().(*gocv.Mat)
	if !ok {
		return nil, xerror.New("must pass OpenCV frame to OpenCV renderer")
	}

	out := r.backend.NewFrame()
	dst, ok := out.DataRef().(*gocv.Mat)
	if !ok {
		out.Close()
		return nil, xerror.New("render target frame is not an OpenCV frame")
	}
	src.CopyTo(dst)

	canvas := src.Clone()
	defer canvas.Close()

	for _, person := range people {
		drawPerson(&canvas, person)
	}

	if r.disableBlending {
		canvas.CopyTo(dst)
		return out, nil
	}

	gocv.AddWeighted(canvas, r.alpha, *src, 1-r.alpha, 0, dst)
	return out, nil
}

func drawPerson(canvas *gocv.Mat, person Person) {
	keypointColor := color.RGBA{R: 0, G: 215, B: 255, A: 0}
	limbColor := color.RGBA{R: 255, G: 48, B: 48, A: 0}

	for _, pair := range limbPairs {
		from := person.KeypointAt(pair[0])
		to := person.KeypointAt(pair[1])
		if from.Score < renderScoreThreshold || to.Score < renderScoreThreshold {
			continue
		}
		gocv.Line(canvas,
			image.Pt(int(from.X), int(from.Y)),
			image.Pt(int(to.X), int(to.Y)),
			limbColor, 2,
		)
	}

	for _, kp := range person.Keypoints {
		if kp.Score < renderScoreThreshold {
			continue
		}
		gocv.Circle(canvas, image.Pt(int(kp.X), int(kp.Y)), 3, keypointColor, -1)
	}
}
