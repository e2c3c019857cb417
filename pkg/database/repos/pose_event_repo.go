package repos

import (
	"github.com/posedaemon/posed/pkg/database/models"
	"gorm.io/gorm"
)

type PoseEventRepository struct {
	DB *gorm.DB
}

func (r *PoseEventRepository) Create(event *models.PoseEvent) error {
	return r.DB.Create(event).Error
}

func (r *PoseEventRepository) FindByFrameUUID(frameUUID string) (models.PoseEvent, error) {
	event := models.PoseEvent{}
	err := r.DB.Where("frame_uuid = ?", frameUUID).First(&event).Error
	return event, err
}

func (r *PoseEventRepository) CountForStream(title string) (int64, error) {
	var count int64
	err := r.DB.Model(&models.PoseEvent{}).Where("stream_title = ?", title).Count(&count).Error
	return count, err
}
