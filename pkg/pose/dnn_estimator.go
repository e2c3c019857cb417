package pose

import (
	"image"
	"path/filepath"
	"sync"

	"github.com/posedaemon/posed/pkg/configdef"
	"github.com/posedaemon/posed/pkg/video"
	"github.com/tauraamui/xerror"
	"gocv.io/x/gocv"
)

// Scaling of the (x,y) coordinates in emitted keypoints.
const (
	ScaleInputResolution  = 0
	ScaleNetOutResolution = 1
	ScaleOutResolution    = 2
	ScaleZeroToOne        = 3
	ScalePlusMinusOne     = 4
)

type modelFiles struct {
	proto   string
	weights string
}

var poseModels = map[string]modelFiles{
	"COCO": {
		proto:   "pose/coco/pose_deploy_linevec.prototxt",
		weights: "pose/coco/pose_iter_440000.caffemodel",
	},
	"MPI": {
		proto:   "pose/mpi/pose_deploy_linevec.prototxt",
		weights: "pose/mpi/pose_iter_160000.caffemodel",
	},
	"MPI_4_layers": {
		proto:   "pose/mpi/pose_deploy_linevec_faster_4_stages.prototxt",
		weights: "pose/mpi/pose_iter_160000.caffemodel",
	},
}

// DNNEstimator runs an OpenPose Caffe model through the OpenCV DNN
// module. It extracts the single strongest peak per part heatmap, so
// it reports at most one person per frame; multi-person part grouping
// needs the PAF decoding stage which this estimator does not carry.
type DNNEstimator struct {
	mu        sync.Mutex
	net       gocv.Net
	netW      int
	netH      int
	outW      int
	outH      int
	scaleMode int
}

func NewDNNEstimator(cfg configdef.Pose) (*DNNEstimator, error) {
	files, ok := poseModels[cfg.ModelName]
	if !ok {
		return nil, xerror.Errorf("no such pose model: %s", cfg.ModelName)
	}

	netW, netH, err := configdef.ParseResolution(cfg.NetResolution)
	if err != nil {
		return nil, err
	}
	outW, outH, err := configdef.ParseResolution(cfg.ImgResolution)
	if err != nil {
		return nil, err
	}

	net := readNetFromCaffe(
		filepath.Join(cfg.ModelFolder, files.proto),
		filepath.Join(cfg.ModelFolder, files.weights),
	)
	if net.Empty() {
		return nil, xerror.Errorf("unable to load pose model %s from %s", cfg.ModelName, cfg.ModelFolder)
	}

	return &DNNEstimator{
		net:       net,
		netW:      netW,
		netH:      netH,
		outW:      outW,
		outH:      outH,
		scaleMode: cfg.ScaleMode,
	}, nil
}

var readNetFromCaffe = func(proto, weights string) gocv.Net {
	return gocv.ReadNetFromCaffe(proto, weights)
}

func (e *DNNEstimator) EstimatePose(frame video.Frame) ([]Person, error) {
	mat, ok := frame.DataRef().(*gocv.Mat)
	if !ok {
		return nil, xerror.New("must pass OpenCV frame to DNN estimator")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	blob := gocv.BlobFromImage(*mat, 1.0/255.0, image.Pt(e.netW, e.netH), gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	e.net.SetInput(blob, "")
	heatmaps := e.net.Forward("")
	defer heatmaps.Close()

	sizes := heatmaps.Size()
	if len(sizes) != 4 {
		return nil, xerror.New("pose net output does not have heatmap shape")
	}
	channels, mapH, mapW := sizes[1], sizes[2], sizes[3]

	person := Person{Keypoints: make([]Keypoint, 0, NumBodyParts)}
	for part := 0; part < NumBodyParts; part++ {
		kp := Keypoint{Part: part}
		if part < channels {
			heatmap := gocv.GetBlobChannel(heatmaps, 0, part)
			_, maxVal, _, maxLoc := gocv.MinMaxLoc(heatmap)
			heatmap.Close()

			x, y := e.scaleCoords(maxLoc, mapW, mapH, frame.Dimensions())
			kp.X, kp.Y, kp.Score = x, y, float64(maxVal)
		}
		person.Keypoints = append(person.Keypoints, kp)
	}

	if !personDetected(person) {
		return nil, nil
	}

	return []Person{person}, nil
}

// personDetected filters frames where no part rose meaningfully above
// heatmap noise.
func personDetected(person Person) bool {
	for _, kp := range person.Keypoints {
		if kp.Part == NumBodyParts-1 {
			// background channel peaks on empty frames
			continue
		}
		if kp.Score >= renderScoreThreshold {
			return true
		}
	}
	return false
}

func (e *DNNEstimator) scaleCoords(peak image.Point, mapW, mapH int, frameDims video.Dimensions) (float64, float64) {
	px, py := float64(peak.X), float64(peak.Y)
	switch e.scaleMode {
	case ScaleNetOutResolution:
		return px, py
	case ScaleOutResolution:
		return px * float64(e.outW) / float64(mapW), py * float64(e.outH) / float64(mapH)
	case ScaleZeroToOne:
		return px / float64(mapW), py / float64(mapH)
	case ScalePlusMinusOne:
		return (px/float64(mapW))*2 - 1, (py/float64(mapH))*2 - 1
	default: // ScaleInputResolution
		return px * float64(frameDims.W) / float64(mapW), py * float64(frameDims.H) / float64(mapH)
	}
}

func (e *DNNEstimator) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.net.Close()
}
