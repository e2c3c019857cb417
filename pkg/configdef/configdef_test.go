package configdef_test

import (
	"testing"

	"github.com/matryer/is"
	"github.com/posedaemon/posed/pkg/configdef"
)

func validValues() configdef.Values {
	return configdef.Values{
		TickPeriodMS:    100,
		EngineQueueSize: 8,
		Stream: configdef.Stream{
			Title:      "FakeStream",
			Address:    "rtsp://fake.stream/1",
			PersistLoc: "/srv/posed",
			FPS:        30,
		},
		Pose: configdef.Pose{
			ModelName:     "COCO",
			ModelFolder:   "/models",
			NetResolution: "656x368",
			ImgResolution: "320x240",
			NumScales:     1,
			ScaleGap:      0.3,
			AlphaPose:     0.6,
			AlphaHeatmap:  0.7,
		},
	}
}

func TestValidConfigPassesValidation(t *testing.T) {
	is := is.New(t)
	is.NoErr(validValues().RunValidate())
}

func TestValidationRejectsBadFieldValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*configdef.Values)
	}{
		{"tick period too small", func(v *configdef.Values) { v.TickPeriodMS = 5 }},
		{"tick period too large", func(v *configdef.Values) { v.TickPeriodMS = 10000 }},
		{"queue size zero", func(v *configdef.Values) { v.EngineQueueSize = 0 }},
		{"queue size too large", func(v *configdef.Values) { v.EngineQueueSize = 500 }},
		{"missing stream title", func(v *configdef.Values) { v.Stream.Title = "" }},
		{"missing persist location", func(v *configdef.Values) { v.Stream.PersistLoc = "" }},
		{"fps zero", func(v *configdef.Values) { v.Stream.FPS = 0 }},
		{"fps too high", func(v *configdef.Values) { v.Stream.FPS = 120 }},
		{"unknown model name", func(v *configdef.Values) { v.Pose.ModelName = "BODY_25" }},
		{"missing model folder", func(v *configdef.Values) { v.Pose.ModelFolder = "" }},
		{"zero scales", func(v *configdef.Values) { v.Pose.NumScales = 0 }},
		{"scale mode out of range", func(v *configdef.Values) { v.Pose.ScaleMode = 5 }},
		{"heatmaps scale mode out of range", func(v *configdef.Values) { v.Pose.HeatmapsScaleMode = 3 }},
		{"negative part to show", func(v *configdef.Values) { v.Pose.PartToShow = -1 }},
		{"alpha pose above one", func(v *configdef.Values) { v.Pose.AlphaPose = 1.3 }},
		{"alpha heatmap below zero", func(v *configdef.Values) { v.Pose.AlphaHeatmap = -0.1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			values := validValues()
			tt.mutate(&values)
			is.True(values.RunValidate() != nil)
		})
	}
}

func TestValidationRejectsMalformedResolutions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*configdef.Values)
	}{
		{"net resolution not WIDTHxHEIGHT", func(v *configdef.Values) { v.Pose.NetResolution = "banana" }},
		{"img resolution missing height", func(v *configdef.Values) { v.Pose.ImgResolution = "320x" }},
		{"net resolution zero width", func(v *configdef.Values) { v.Pose.NetResolution = "0x368" }},
		{"img resolution negative height", func(v *configdef.Values) { v.Pose.ImgResolution = "320x-240" }},
		{"net resolution trailing garbage", func(v *configdef.Values) { v.Pose.NetResolution = "656x368abc" }},
		{"net resolution three dimensions", func(v *configdef.Values) { v.Pose.NetResolution = "656x368x99" }},
		{"img resolution leading whitespace", func(v *configdef.Values) { v.Pose.ImgResolution = " 320x240" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			values := validValues()
			tt.mutate(&values)
			is.True(values.RunValidate() != nil)
		})
	}
}

func TestParseResolution(t *testing.T) {
	is := is.New(t)

	w, h, err := configdef.ParseResolution("656x368")
	is.NoErr(err)
	is.Equal(w, 656)
	is.Equal(h, 368)

	_, _, err = configdef.ParseResolution("656")
	is.True(err != nil)

	_, _, err = configdef.ParseResolution("")
	is.True(err != nil)
}

func TestParseResolutionConsumesWholeInput(t *testing.T) {
	tests := []string{"656x368abc", "656x368x99", "656 x368", "656x 368", "0x10x10"}

	for _, res := range tests {
		t.Run(res, func(t *testing.T) {
			is := is.New(t)
			_, _, err := configdef.ParseResolution(res)
			is.True(err != nil) // malformed resolution must be rejected
		})
	}
}
