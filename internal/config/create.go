package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/posedaemon/posed/pkg/configdef"
	"github.com/posedaemon/posed/pkg/log"
	"github.com/tauraamui/xerror"
)

func create() error {
	data, err := loadRawDefaultConfig()
	if err != nil {
		log.Fatal("unable to init default config into memory: %v", err)
	}

	path, err := resolveConfigPath()
	if err != nil {
		return err
	}

	if err := ensureParentDirExists(path); err != nil {
		return err
	}

	err = writeConfigToDisk(data, path, false)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return configdef.ErrConfigAlreadyExists
		}
		return err
	}

	return nil
}

func writeConfigToDisk(data []byte, path string, overwrite bool) error {
	flags := os.O_RDWR | os.O_CREATE
	if !overwrite {
		flags |= os.O_EXCL
	}

	file, err := fs.OpenFile(path, flags, 0666)
	if err != nil {
		if os.IsExist(err) {
			return os.ErrExist
		}
		return xerror.Errorf("unable to create/open file: %w", err)
	}
	defer file.Close()

	bc, err := file.Write(data)
	if err != nil {
		return xerror.Errorf("unable to write config to file: %s: %w", path, err)
	}

	if bc != len(data) {
		return xerror.Errorf("unable to write full config data to file: %s", path)
	}

	return nil
}

func ensureParentDirExists(path string) error {
	return fs.MkdirAll(filepath.Dir(path), os.ModePerm|os.ModeDir)
}

func loadRawDefaultConfig() ([]byte, error) {
	return json.MarshalIndent(defaultValues(), "", "    ")
}

func defaultValues() configdef.Values {
	return configdef.Values{
		TickPeriodMS:    defaultSettings[TICKPERIODMS].(int),
		EngineQueueSize: defaultSettings[ENGINEQUEUESIZE].(int),
		RPCListenPort:   defaultSettings[RPCLISTENPORT].(string),
		Stream: configdef.Stream{
			Title:      "default",
			PersistLoc: ".",
			FPS:        30,
		},
		Pose: configdef.Pose{
			ModelName:     defaultSettings[MODELNAME].(string),
			ModelFolder:   defaultSettings[MODELFOLDER].(string),
			NetResolution: defaultSettings[NETRESOLUTION].(string),
			ImgResolution: defaultSettings[IMGRESOLUTION].(string),
			NumScales:     1,
			ScaleGap:      0.3,
			AlphaPose:     0.6,
			AlphaHeatmap:  0.7,
		},
	}
}
