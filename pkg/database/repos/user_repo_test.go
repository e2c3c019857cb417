package repos_test

import (
	"testing"

	"github.com/posedaemon/posed/pkg/database/models"
	"github.com/posedaemon/posed/pkg/database/repos"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type UserRepoTestSuite struct {
	suite.Suite
	repo *repos.UserRepository
}

func (suite *UserRepoTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), models.AutoMigrate(db))

	suite.repo = &repos.UserRepository{DB: db}
}

func (suite *UserRepoTestSuite) TestCreateAndFindByName() {
	require.NoError(suite.T(), suite.repo.Create(
		&models.User{Name: "testuser", AuthHash: "testpassword"},
	))

	user, err := suite.repo.FindByName("testuser")
	require.NoError(suite.T(), err)
	suite.NotEmpty(user.UUID)
	suite.Equal("testuser", user.Name)
	// hash replaced the plaintext before the row was written
	suite.NotEqual("testpassword", user.AuthHash)
}

func (suite *UserRepoTestSuite) TestFindByNameMissingUser() {
	_, err := suite.repo.FindByName("nobody")
	require.Error(suite.T(), err)
	suite.Contains(err.Error(), "user of name nobody not found")
}

func (suite *UserRepoTestSuite) TestAuthenticate() {
	require.NoError(suite.T(), suite.repo.Create(
		&models.User{Name: "testuser", AuthHash: "testpassword"},
	))

	suite.NoError(suite.repo.Authenticate("testuser", "testpassword"))
	suite.Error(suite.repo.Authenticate("testuser", "wrongpassword"))
	suite.Error(suite.repo.Authenticate("nobody", "testpassword"))
}

func TestUserRepoTestSuite(t *testing.T) {
	suite.Run(t, &UserRepoTestSuite{})
}
