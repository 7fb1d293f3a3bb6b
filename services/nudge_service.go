// services/nudge_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"hydrapair-backend/models"

	"github.com/robfig/cron/v3"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"gorm.io/gorm"
)

// NudgeService follows up on reminders that sat unacknowledged for too long:
// one push re-send, plus an SMS when the receiver has a phone number and
// Twilio credentials are configured. Each reminder is nudged at most once,
// tracked through the delivery log.
type NudgeService struct {
	db     *gorm.DB
	push   *PushService
	client *twilio.RestClient
	cron   *cron.Cron

	maxAge time.Duration

	// sendSMS is swappable in tests.
	sendSMS func(to, body string) error
}

func NewNudgeService(db *gorm.DB, push *PushService) *NudgeService {
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")

	s := &NudgeService{
		db:     db,
		push:   push,
		maxAge: nudgeMaxAge(),
	}
	if accountSid != "" && authToken != "" {
		s.client = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSid,
			Password: authToken,
		})
		s.sendSMS = s.twilioSMS
	}
	return s
}

func nudgeMaxAge() time.Duration {
	minutes := 30
	if env := os.Getenv("NUDGE_MAX_AGE_MINUTES"); env != "" {
		if m, err := strconv.Atoi(env); err == nil && m > 0 {
			minutes = m
		}
	}
	return time.Duration(minutes) * time.Minute
}

func (s *NudgeService) StartScheduler() {
	c := cron.New()

	spec := os.Getenv("NUDGE_CRON")
	if spec == "" {
		spec = "*/15 * * * *"
	}
	if _, err := c.AddFunc(spec, s.SendDueNudges); err != nil {
		log.Printf("Invalid NUDGE_CRON %q: %v", spec, err)
		return
	}

	c.Start()
	s.cron = c
	log.Println("Nudge scheduler started")
}

func (s *NudgeService) StopScheduler() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// SendDueNudges processes every reminder past the age threshold that has not
// been nudged before.
func (s *NudgeService) SendDueNudges() {
	cutoff := time.Now().Add(-s.maxAge)

	var reminders []models.WaterReminder
	nudged := s.db.Model(&models.DeliveryLog{}).
		Select("reminder_id").
		Where("kind = ?", "nudge")
	err := s.db.
		Where("acknowledged = ? AND sent_at < ?", false, cutoff).
		Where("id NOT IN (?)", nudged).
		Find(&reminders).Error
	if err != nil {
		log.Printf("Failed to fetch due nudges: %v", err)
		return
	}

	for _, reminder := range reminders {
		s.nudge(reminder)
	}
}

func (s *NudgeService) nudge(reminder models.WaterReminder) {
	body := fmt.Sprintf("Still thirsty? %s", reminder.Message)

	if err := s.push.Notify(reminder.ID, reminder.ReceiverID, body, "nudge"); err != nil {
		if errors.Is(err, ErrReceiverNotFound) {
			// Mark the reminder as handled anyway, or it would be reselected
			// on every run.
			s.logSkippedNudge(reminder, "push", "receiver not found")
			return
		}
		log.Printf("Failed to nudge reminder %s via push: %v", reminder.ID, err)
	}

	if s.sendSMS == nil {
		return
	}

	var receiver models.Profile
	if err := s.db.First(&receiver, "id = ?", reminder.ReceiverID).Error; err != nil {
		log.Printf("Failed to load receiver %s for SMS nudge: %v", reminder.ReceiverID, err)
		s.logSkippedNudge(reminder, "sms", "receiver not found")
		return
	}
	if receiver.Phone == "" {
		return
	}

	status := "sent"
	errorMsg := ""
	if err := s.sendSMS(receiver.Phone, body); err != nil {
		log.Printf("Failed to send SMS nudge to %s: %v", receiver.Phone, err)
		status = "failed"
		errorMsg = err.Error()
	}

	entry := models.DeliveryLog{
		ReminderID:   reminder.ID,
		ReceiverID:   reminder.ReceiverID,
		Channel:      "sms",
		Kind:         "nudge",
		Status:       status,
		ErrorMessage: errorMsg,
		SentAt:       time.Now(),
	}
	if err := s.db.Create(&entry).Error; err != nil {
		log.Printf("Failed to log SMS nudge for reminder %s: %v", reminder.ID, err)
	}
}

func (s *NudgeService) logSkippedNudge(reminder models.WaterReminder, channel, reason string) {
	entry := models.DeliveryLog{
		ReminderID:   reminder.ID,
		ReceiverID:   reminder.ReceiverID,
		Channel:      channel,
		Kind:         "nudge",
		Status:       "skipped",
		ErrorMessage: reason,
		SentAt:       time.Now(),
	}
	if err := s.db.Create(&entry).Error; err != nil {
		log.Printf("Failed to log skipped nudge for reminder %s: %v", reminder.ID, err)
	}
}

func (s *NudgeService) twilioSMS(to, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetBody(body)
	params.SetFrom(os.Getenv("TWILIO_PHONE_NUMBER"))

	resp, err := s.client.Api.CreateMessage(params)
	if err != nil {
		return err
	}
	if resp.Sid != nil {
		log.Printf("SMS nudge sent to %s, SID: %s", to, *resp.Sid)
	} else {
		log.Printf("SMS nudge sent to %s, but no SID returned", to)
	}
	return nil
}
