package configdef

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	validate "gopkg.in/dealancer/validate.v2"
)

// Pose holds every parameter handed to the pose estimation engine at
// construction time. None of these values are read again after startup.
type Pose struct {
	ModelName         string  `json:"model_name" validate:"one_of=COCO,MPI,MPI_4_layers"`
	ModelFolder       string  `json:"model_folder" validate:"empty=false"`
	NetResolution     string  `json:"net_resolution"`
	ImgResolution     string  `json:"img_resolution"`
	NumScales         int     `json:"num_scales" validate:"gte=1"`
	ScaleGap          float64 `json:"scale_gap"`
	ScaleMode         int     `json:"scale_mode" validate:"gte=0 & lte=4"`
	HeatmapsAddParts  bool    `json:"heatmaps_add_parts"`
	HeatmapsAddBkg    bool    `json:"heatmaps_add_bkg"`
	HeatmapsAddPAFs   bool    `json:"heatmaps_add_pafs"`
	HeatmapsScaleMode int     `json:"heatmaps_scale_mode" validate:"gte=0 & lte=2"`
	NoRenderOutput    bool    `json:"no_render_output"`
	PartToShow        int     `json:"part_to_show" validate:"gte=0"`
	DisableBlending   bool    `json:"disable_blending"`
	AlphaPose         float64 `json:"alpha_pose" validate:"gte=0 & lte=1"`
	AlphaHeatmap      float64 `json:"alpha_heatmap" validate:"gte=0 & lte=1"`
}

type Stream struct {
	Title        string `json:"title" validate:"empty=false"`
	Address      string `json:"address"`
	PersistLoc   string `json:"persist_location" validate:"empty=false"`
	FPS          int    `json:"fps" validate:"gte=1 & lte=60"`
	MockCapturer bool   `json:"mock_capturer"`
	MockWriter   bool   `json:"mock_writer"`
}

type Values struct {
	Debug           bool   `json:"debug"`
	Secret          string `json:"secret"`
	TickPeriodMS    int    `json:"tick_period_ms" validate:"gte=10 & lte=5000"`
	EngineQueueSize int    `json:"engine_queue_size" validate:"gte=1 & lte=64"`
	RPCListenPort   string `json:"rpc_listen_port"`
	PersistEvents   bool   `json:"persist_events"`
	Stream          Stream `json:"stream"`
	Pose            Pose   `json:"pose"`
}

func (v Values) RunValidate() error {
	if err := validate.Validate(&v); err != nil {
		return err
	}
	return v.Validate()
}

// Validate covers the cross-field rules the tag validators cannot
// express: the WIDTHxHEIGHT resolution string formats.
func (v Values) Validate() error {
	const validationErrorHeader = "validation failed: %w"
	if _, _, err := ParseResolution(v.Pose.NetResolution); err != nil {
		return fmt.Errorf(validationErrorHeader, err)
	}
	if _, _, err := ParseResolution(v.Pose.ImgResolution); err != nil {
		return fmt.Errorf(validationErrorHeader, err)
	}
	return nil
}

// ParseResolution reads a WIDTHxHEIGHT string such as "656x368". The
// whole input must be consumed, anything beyond the two dimensions is
// rejected.
func ParseResolution(res string) (int, int, error) {
	dims := strings.Split(res, "x")
	if len(dims) != 2 {
		return 0, 0, fmt.Errorf("resolution format (%s) invalid, should be e.g. 656x368", res)
	}

	width, werr := strconv.Atoi(dims[0])
	height, herr := strconv.Atoi(dims[1])
	if werr != nil || herr != nil {
		return 0, 0, fmt.Errorf("resolution format (%s) invalid, should be e.g. 656x368", res)
	}

	if width <= 0 || height <= 0 {
		return 0, 0, errors.New("resolution dimensions must both be positive")
	}
	return width, height, nil
}
