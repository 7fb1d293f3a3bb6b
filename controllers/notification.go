// controllers/notification.go
package controllers

import (
	"errors"
	"net/http"

	"hydrapair-backend/models"
	"hydrapair-backend/services"
	"hydrapair-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SendNotificationInput is the wire contract of the push relay endpoint.
type SendNotificationInput struct {
	ReceiverID string `json:"receiverId" binding:"required"`
	Message    string `json:"message" binding:"required"`
}

type NotificationController struct {
	DB   *gorm.DB
	Push *services.PushService
}

// Send is the push relay: it forwards a message to the receiver's stored push
// subscription. A receiver without a subscription is success, an unknown
// receiver is 404, and a delivery failure is 500. Safe to retry.
func (nc *NotificationController) Send(c *gin.Context) {
	var input SendNotificationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	receiverID, err := uuid.Parse(input.ReceiverID)
	if err != nil {
		utils.RespondWithError(c, http.StatusNotFound, "Receiver not found")
		return
	}

	if err := nc.Push.Notify(uuid.Nil, receiverID, input.Message, "send"); err != nil {
		if errors.Is(err, services.ErrReceiverNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Receiver not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to send notification")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Subscribe stores the caller's browser push subscription as an opaque blob.
func (nc *NotificationController) Subscribe(c *gin.Context) {
	callerID, ok := currentProfileID(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "Profile ID not found in context")
		return
	}

	var subscription models.JSONB
	if err := c.ShouldBindJSON(&subscription); err != nil || len(subscription) == 0 {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid subscription payload")
		return
	}

	if err := nc.DB.Model(&models.Profile{}).Where("id = ?", callerID).
		Update("push_subscription", subscription).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to save subscription")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Push subscription saved"})
}

// Unsubscribe clears the caller's stored push subscription.
func (nc *NotificationController) Unsubscribe(c *gin.Context) {
	callerID, ok := currentProfileID(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "Profile ID not found in context")
		return
	}

	if err := nc.DB.Model(&models.Profile{}).Where("id = ?", callerID).
		Update("push_subscription", nil).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to remove subscription")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Push subscription removed"})
}

// VAPIDPublicKey returns the public key clients need to register with the
// browser push service.
func (nc *NotificationController) VAPIDPublicKey(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"publicKey": nc.Push.VAPIDPublicKey()})
}
