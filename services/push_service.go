// services/push_service.go
package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"hydrapair-backend/config"
	"hydrapair-backend/models"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrReceiverNotFound = errors.New("receiver not found")

// PushService delivers web push notifications using a profile's stored
// subscription. It is stateless per call; retrying a failed call resends.
type PushService struct {
	db  *gorm.DB
	cfg config.PushConfig

	// send is swappable in tests.
	send func(message []byte, s *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

func NewPushService(db *gorm.DB, cfg config.PushConfig) *PushService {
	return &PushService{
		db:   db,
		cfg:  cfg,
		send: webpush.SendNotification,
	}
}

func (s *PushService) VAPIDPublicKey() string {
	return s.cfg.VAPIDPublicKey
}

// Notify looks up the receiver's stored subscription and forwards the message
// to the push service. A profile without a subscription is a successful no-op.
// kind distinguishes first sends from scheduler follow-ups in the delivery log;
// reminderID may be uuid.Nil when the caller has no row reference.
func (s *PushService) Notify(reminderID, receiverID uuid.UUID, message, kind string) error {
	var receiver models.Profile
	if err := s.db.First(&receiver, "id = ?", receiverID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReceiverNotFound
		}
		return err
	}

	if !receiver.HasPushSubscription() {
		s.logDelivery(reminderID, receiverID, kind, "skipped", "no push subscription")
		return nil
	}

	if !s.cfg.Configured() {
		log.Println("[Push] VAPID keys not configured, skipping push")
		s.logDelivery(reminderID, receiverID, kind, "skipped", "VAPID keys not configured")
		return nil
	}

	sub, err := subscriptionFromBlob(receiver.PushSubscription)
	if err != nil {
		s.logDelivery(reminderID, receiverID, kind, "failed", err.Error())
		return err
	}

	payload, err := json.Marshal(map[string]interface{}{
		"title": "Water Reminder 💕",
		"body":  message,
		"icon":  "/icon-192x192.png",
		"badge": "/badge-72x72.png",
		"tag":   "water-reminder",
		"data":  map[string]interface{}{"url": "/"},
	})
	if err != nil {
		return err
	}

	resp, err := s.send(payload, sub, &webpush.Options{
		Subscriber:      s.cfg.Subscriber,
		VAPIDPublicKey:  s.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: s.cfg.VAPIDPrivateKey,
		TTL:             60 * 60 * 24,
	})
	if err != nil {
		log.Printf("[Push] Failed to send to profile %s: %v", receiverID, err)
		s.logDelivery(reminderID, receiverID, kind, "failed", err.Error())
		return err
	}
	defer resp.Body.Close()

	// The push service reports a dead subscription with 404/410; drop the
	// stored blob so future sends become no-ops instead of repeat failures.
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		log.Printf("[Push] Removing invalid subscription for profile %s: %d", receiverID, resp.StatusCode)
		if err := s.db.Model(&models.Profile{}).Where("id = ?", receiverID).
			Update("push_subscription", nil).Error; err != nil {
			log.Printf("[Push] Failed to remove subscription: %v", err)
		}
		s.logDelivery(reminderID, receiverID, kind, "failed", "subscription expired")
		return nil
	}

	// Anything else outside 2xx is a rejected delivery (bad VAPID key,
	// oversized payload, malformed request), not a success.
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		err := fmt.Errorf("push service returned status %d", resp.StatusCode)
		log.Printf("[Push] Unexpected status %d for profile %s", resp.StatusCode, receiverID)
		s.logDelivery(reminderID, receiverID, kind, "failed", err.Error())
		return err
	}

	s.logDelivery(reminderID, receiverID, kind, "sent", "")
	return nil
}

func subscriptionFromBlob(blob models.JSONB) (*webpush.Subscription, error) {
	raw, err := json.Marshal(blob)
	if err != nil {
		return nil, err
	}
	var sub webpush.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, err
	}
	if sub.Endpoint == "" {
		return nil, errors.New("push subscription has no endpoint")
	}
	return &sub, nil
}

func (s *PushService) logDelivery(reminderID, receiverID uuid.UUID, kind, status, errorMsg string) {
	entry := models.DeliveryLog{
		ReminderID:   reminderID,
		ReceiverID:   receiverID,
		Channel:      "push",
		Kind:         kind,
		Status:       status,
		ErrorMessage: errorMsg,
		SentAt:       time.Now(),
	}
	if err := s.db.Create(&entry).Error; err != nil {
		log.Printf("[Push] Failed to log delivery for profile %s: %v", receiverID, err)
	}
}
