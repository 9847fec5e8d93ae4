package repos

import (
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/convictionlabs/conviction/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// One pooled connection keeps every caller on the same in-memory database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	err = db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Thesis{},
		&models.Reaction{},
		&models.Block{},
		&models.Rationale{},
		&models.Event{},
		&models.Notification{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestRegistry(t *testing.T) Registry {
	t.Helper()
	return New(newTestDB(t))
}

func seedUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, PasswordHash: "x"}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return user
}

func seedThesis(t *testing.T, db *gorm.DB, user *models.User, asset string, sentiment models.Sentiment) *models.Thesis {
	t.Helper()
	thesis := &models.Thesis{
		UserID:      user.ID,
		Username:    user.Username,
		Title:       asset + " view",
		Content:     "body",
		AssetSymbol: asset,
		Sentiment:   sentiment,
	}
	if err := db.Create(thesis).Error; err != nil {
		t.Fatalf("seed thesis: %v", err)
	}
	return thesis
}

func seedPost(t *testing.T, db *gorm.DB, user *models.User, content string) *models.Post {
	t.Helper()
	post := &models.Post{
		UserID:   user.ID,
		Username: user.Username,
		Content:  content,
	}
	if err := db.Create(post).Error; err != nil {
		t.Fatalf("seed post: %v", err)
	}
	return post
}
