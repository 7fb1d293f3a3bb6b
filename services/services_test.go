package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"hydrapair-backend/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_fk=1", name, time.Now().UnixNano())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite memory: %v", err)
	}
	if err := db.AutoMigrate(&models.Profile{}, &models.WaterReminder{}, &models.DeliveryLog{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func createProfile(t *testing.T, db *gorm.DB, name, email string) models.Profile {
	t.Helper()

	profile := models.Profile{
		Name:     name,
		Email:    email,
		Password: "password123",
	}
	if err := db.Create(&profile).Error; err != nil {
		t.Fatalf("create profile %s: %v", email, err)
	}
	return profile
}

func createReminder(t *testing.T, db *gorm.DB, sender, receiver uuid.UUID, message string, sentAt time.Time) models.WaterReminder {
	t.Helper()

	reminder := models.WaterReminder{
		SenderID:   sender,
		ReceiverID: receiver,
		Message:    message,
		SentAt:     sentAt,
	}
	if err := db.Create(&reminder).Error; err != nil {
		t.Fatalf("create reminder: %v", err)
	}
	return reminder
}

// eventually polls until the condition holds or the deadline passes. Feed
// events are applied by a background goroutine, so assertions on feed state
// need a little patience.
func eventually(t *testing.T, check func() bool, message string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if check() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(message)
}
