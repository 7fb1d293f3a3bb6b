package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"hydrapair-backend/models"
	"hydrapair-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// PairInput defines the expected JSON structure for pairing
type PairInput struct {
	PartnerEmail string `json:"partnerEmail" binding:"required,email"`
}

type PairingController struct {
	DB *gorm.DB
}

var errPartnerTaken = errors.New("partner already paired")

// Pair links the caller and the profile behind partnerEmail to each other.
// Both sides are written in one transaction with a guard on the target's
// partner_id, so a crash or a concurrent pairing can never leave the link
// half-written.
func (pc *PairingController) Pair(c *gin.Context) {
	callerID, ok := currentProfileID(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "Profile ID not found in context")
		return
	}

	var input PairInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var caller models.Profile
	if err := pc.DB.First(&caller, "id = ?", callerID).Error; err != nil {
		utils.RespondWithError(c, http.StatusUnauthorized, "Profile not found")
		return
	}

	// Find partner by normalized email
	var partner models.Profile
	err := pc.DB.Where("email = ?", utils.NormalizeEmail(input.PartnerEmail)).First(&partner).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound,
				"Partner not found. Make sure they have created an account.")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if partner.ID == caller.ID {
		utils.RespondWithError(c, http.StatusBadRequest, "You cannot pair with yourself")
		return
	}

	if partner.PartnerID != nil {
		utils.RespondWithError(c, http.StatusConflict, "This person is already paired with someone else")
		return
	}

	err = pc.DB.Transaction(func(tx *gorm.DB) error {
		// Claim the target first. Zero rows means someone else paired with
		// them between our lookup and now.
		res := tx.Model(&models.Profile{}).
			Where("id = ? AND partner_id IS NULL", partner.ID).
			Update("partner_id", caller.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errPartnerTaken
		}

		return tx.Model(&models.Profile{}).
			Where("id = ?", caller.ID).
			Update("partner_id", partner.ID).Error
	})
	if err != nil {
		if errors.Is(err, errPartnerTaken) {
			utils.RespondWithError(c, http.StatusConflict, "This person is already paired with someone else")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to pair profiles")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    fmt.Sprintf("You're now connected with %s", partner.Name),
		"partner_id": partner.ID,
		"partner": gin.H{
			"id":    partner.ID,
			"name":  partner.Name,
			"email": partner.Email,
		},
	})
}
