package services

import (
	"testing"
	"time"

	"hydrapair-backend/config"
	"hydrapair-backend/models"

	"gorm.io/gorm"
)

func newTestNudgeService(t *testing.T, db *gorm.DB, sms func(to, body string) error) *NudgeService {
	t.Helper()

	return &NudgeService{
		db:      db,
		push:    NewPushService(db, config.PushConfig{}), // unconfigured: push skips
		maxAge:  30 * time.Minute,
		sendSMS: sms,
	}
}

func TestSendDueNudgesTargetsOnlyStaleUnacknowledged(t *testing.T) {
	db := newTestDB(t)
	alice := createProfile(t, db, "Alice", "alice@example.com")
	bob := createProfile(t, db, "Bob", "bob@example.com")
	if err := db.Model(&models.Profile{}).Where("id = ?", bob.ID).
		Update("phone", "+15551234567").Error; err != nil {
		t.Fatalf("set phone: %v", err)
	}

	stale := createReminder(t, db, alice.ID, bob.ID, "stale", time.Now().Add(-time.Hour))
	createReminder(t, db, alice.ID, bob.ID, "fresh", time.Now())

	now := time.Now()
	acked := createReminder(t, db, alice.ID, bob.ID, "acked", time.Now().Add(-2*time.Hour))
	if err := db.Model(&acked).Updates(map[string]interface{}{
		"acknowledged": true, "acknowledged_at": now,
	}).Error; err != nil {
		t.Fatalf("acknowledge: %v", err)
	}

	var sent []string
	svc := newTestNudgeService(t, db, func(to, body string) error {
		sent = append(sent, body)
		return nil
	})

	svc.SendDueNudges()

	if len(sent) != 1 {
		t.Fatalf("got %d SMS nudges, want 1: %v", len(sent), sent)
	}
	if sent[0] != "Still thirsty? stale" {
		t.Fatalf("nudge body = %q", sent[0])
	}

	var count int64
	if err := db.Model(&models.DeliveryLog{}).
		Where("reminder_id = ? AND kind = ?", stale.ID, "nudge").
		Count(&count).Error; err != nil {
		t.Fatalf("count logs: %v", err)
	}
	if count == 0 {
		t.Fatal("nudge was not logged")
	}
}

func TestSendDueNudgesRunsAtMostOncePerReminder(t *testing.T) {
	db := newTestDB(t)
	alice := createProfile(t, db, "Alice", "alice@example.com")
	bob := createProfile(t, db, "Bob", "bob@example.com")
	if err := db.Model(&models.Profile{}).Where("id = ?", bob.ID).
		Update("phone", "+15551234567").Error; err != nil {
		t.Fatalf("set phone: %v", err)
	}

	createReminder(t, db, alice.ID, bob.ID, "stale", time.Now().Add(-time.Hour))

	calls := 0
	svc := newTestNudgeService(t, db, func(to, body string) error {
		calls++
		return nil
	})

	svc.SendDueNudges()
	svc.SendDueNudges()

	if calls != 1 {
		t.Fatalf("got %d SMS nudges across two runs, want 1", calls)
	}
}

func TestSendDueNudgesMarksMissingReceiverAsHandled(t *testing.T) {
	db := newTestDB(t)
	alice := createProfile(t, db, "Alice", "alice@example.com")
	bob := createProfile(t, db, "Bob", "bob@example.com")

	stale := createReminder(t, db, alice.ID, bob.ID, "stale", time.Now().Add(-time.Hour))
	if err := db.Delete(&models.Profile{}, "id = ?", bob.ID).Error; err != nil {
		t.Fatalf("delete receiver: %v", err)
	}

	svc := newTestNudgeService(t, db, func(to, body string) error {
		t.Fatal("SMS must not be sent to a missing receiver")
		return nil
	})

	svc.SendDueNudges()
	svc.SendDueNudges()

	var count int64
	if err := db.Model(&models.DeliveryLog{}).
		Where("reminder_id = ? AND kind = ?", stale.ID, "nudge").
		Count(&count).Error; err != nil {
		t.Fatalf("count logs: %v", err)
	}
	if count != 1 {
		t.Fatalf("got %d nudge rows across two runs, want exactly 1", count)
	}

	var entry models.DeliveryLog
	if err := db.First(&entry, "reminder_id = ?", stale.ID).Error; err != nil {
		t.Fatalf("load log: %v", err)
	}
	if entry.Status != "skipped" {
		t.Fatalf("got status %q, want skipped", entry.Status)
	}
}

func TestSendDueNudgesSkipsSMSWithoutPhone(t *testing.T) {
	db := newTestDB(t)
	alice := createProfile(t, db, "Alice", "alice@example.com")
	bob := createProfile(t, db, "Bob", "bob@example.com")

	createReminder(t, db, alice.ID, bob.ID, "stale", time.Now().Add(-time.Hour))

	svc := newTestNudgeService(t, db, func(to, body string) error {
		t.Fatal("SMS must not be sent without a phone number")
		return nil
	})

	svc.SendDueNudges()
}
