package config

type defaultSettingKey uint

const (
	TICKPERIODMS    defaultSettingKey = 0x0
	ENGINEQUEUESIZE defaultSettingKey = 0x1
	RPCLISTENPORT   defaultSettingKey = 0x2
	MODELNAME       defaultSettingKey = 0x3
	MODELFOLDER     defaultSettingKey = 0x4
	NETRESOLUTION   defaultSettingKey = 0x5
	IMGRESOLUTION   defaultSettingKey = 0x6
)

var defaultSettings = map[defaultSettingKey]interface{}{
	TICKPERIODMS:    100,
	ENGINEQUEUESIZE: 8,
	RPCLISTENPORT:   ":3122",
	MODELNAME:       "COCO",
	MODELFOLDER:     "/models",
	NETRESOLUTION:   "656x368",
	IMGRESOLUTION:   "320x240",
}
