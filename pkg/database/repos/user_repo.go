package repos

import (
	"github.com/posedaemon/posed/pkg/database/models"
	"github.com/tauraamui/xerror"
	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func (r *UserRepository) Create(user *models.User) error {
	return r.DB.Create(user).Error
}

func (r *UserRepository) FindByName(username string) (models.User, error) {
	user := models.User{}
	if err := r.DB.Where("name = ?", username).First(&user).Error; err != nil {
		return user, xerror.Errorf("user of name %s not found", username)
	}

	return user, nil
}

func (r *UserRepository) Authenticate(username, password string) error {
	user, err := r.FindByName(username)
	if err != nil {
		return err
	}
	return user.ComparePassword(password)
}
