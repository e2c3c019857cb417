package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func init() {
	registerForAutomigration(&PoseEvent{})
}

// PoseEvent is the durable record of one routed pose result: which
// frame it came from, how many people were detected and the serialized
// keypoint message for later analysis.
type PoseEvent struct {
	gorm.Model
	UUID        string
	FrameUUID   string
	StreamTitle string
	PeopleCount int
	Keypoints   string
}

func (e *PoseEvent) BeforeCreate(tx *gorm.DB) error {
	e.UUID = uuid.NewString()
	return nil
}
