// controllers/reminder.go
package controllers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"hydrapair-backend/models"
	"hydrapair-backend/services"
	"hydrapair-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SendReminderInput defines the expected JSON structure for sending a reminder.
// Both fields are optional: the receiver defaults to the caller's partner and
// the message defaults to the standard template.
type SendReminderInput struct {
	ReceiverID string `json:"receiverId"`
	Message    string `json:"message"`
}

type ReminderController struct {
	DB     *gorm.DB
	Push   *services.PushService
	Broker *services.Broker
}

// Send creates a reminder row, publishes the insert to live feeds, and
// triggers a best-effort push. Push failure never fails the request; the row
// is already durable.
func (rc *ReminderController) Send(c *gin.Context) {
	callerID, ok := currentProfileID(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "Profile ID not found in context")
		return
	}

	var input SendReminderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var sender models.Profile
	if err := rc.DB.First(&sender, "id = ?", callerID).Error; err != nil {
		utils.RespondWithError(c, http.StatusUnauthorized, "Profile not found")
		return
	}

	receiverID, err := resolveReceiver(&sender, input.ReceiverID)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	message := input.Message
	if message == "" {
		name := sender.Name
		if name == "" {
			name = "Your partner"
		}
		message = fmt.Sprintf("%s reminds you to drink water! 💕", name)
	}

	reminder := models.WaterReminder{
		SenderID:   sender.ID,
		ReceiverID: receiverID,
		Message:    message,
		SentAt:     time.Now(),
	}

	if err := rc.DB.Create(&reminder).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create reminder")
		return
	}

	rc.Broker.Publish(receiverID, services.ReminderEvent{
		Type:     services.EventInsert,
		Reminder: reminder,
	})

	// Best effort only: the reminder row stands even if push delivery fails.
	if err := rc.Push.Notify(reminder.ID, receiverID, message, "send"); err != nil {
		log.Printf("Failed to send push notification: %v", err)
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Reminder Sent! 💕",
		"reminder": reminder,
	})
}

func resolveReceiver(sender *models.Profile, raw string) (uuid.UUID, error) {
	if raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, errors.New("Invalid receiver id")
		}
		return id, nil
	}
	if sender.PartnerID == nil {
		return uuid.Nil, errors.New("No receiver given and no partner paired")
	}
	return *sender.PartnerID, nil
}

// List returns the most recent 50 reminders where the caller is sender or
// receiver, newest first, with sender/receiver name and email attached.
func (rc *ReminderController) List(c *gin.Context) {
	callerID, ok := currentProfileID(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "Profile ID not found in context")
		return
	}

	reminders, err := services.FetchRecent(rc.DB, callerID)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to fetch reminders")
		return
	}

	c.JSON(http.StatusOK, gin.H{"reminders": reminders})
}

// Acknowledge marks a reminder as seen. Only the receiver may acknowledge,
// and a repeated call leaves the first acknowledged_at untouched.
func (rc *ReminderController) Acknowledge(c *gin.Context) {
	callerID, ok := currentProfileID(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "Profile ID not found in context")
		return
	}

	reminderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid reminder id")
		return
	}

	var reminder models.WaterReminder
	if err := rc.DB.First(&reminder, "id = ? AND receiver_id = ?", reminderID, callerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Reminder not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if !reminder.Acknowledged {
		now := time.Now()
		res := rc.DB.Model(&reminder).
			Where("acknowledged = ?", false).
			Updates(map[string]interface{}{
				"acknowledged":    true,
				"acknowledged_at": now,
			})
		if res.Error != nil {
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to acknowledge reminder")
			return
		}
		if res.RowsAffected > 0 {
			reminder.Acknowledged = true
			reminder.AcknowledgedAt = &now

			rc.Broker.Publish(reminder.ReceiverID, services.ReminderEvent{
				Type:     services.EventUpdate,
				Reminder: reminder,
			})
		}
	}

	c.JSON(http.StatusOK, gin.H{"reminder": reminder})
}
