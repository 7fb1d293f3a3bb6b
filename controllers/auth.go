package controllers

import (
	"errors"
	"net/http"
	"time"

	"hydrapair-backend/models"
	"hydrapair-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RegisterInput struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Phone    string `json:"phone"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthController struct {
	DB *gorm.DB
}

// currentProfileID extracts the authenticated profile id placed in the context
// by the auth middleware.
func currentProfileID(c *gin.Context) (uuid.UUID, bool) {
	userID, exists := c.Get("userId")
	if !exists {
		return uuid.Nil, false
	}
	raw, ok := userID.(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (ac *AuthController) Register(c *gin.Context) {
	var input RegisterInput

	// Bind and validate input
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	email := utils.NormalizeEmail(input.Email)

	if input.Phone != "" && !utils.ValidatePhone(input.Phone) {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid phone number format")
		return
	}

	// Check if email already exists
	var existing models.Profile
	result := ac.DB.Where("email = ?", email).First(&existing)
	if result.Error == nil {
		utils.RespondWithError(c, http.StatusConflict, "Email already registered")
		return
	} else if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}

	profile := models.Profile{
		Name:     input.Name,
		Email:    email,
		Password: input.Password, // Will be hashed in BeforeCreate hook
		Phone:    input.Phone,
	}

	if err := ac.DB.Create(&profile).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create profile")
		return
	}

	token, err := utils.GenerateToken(profile.ID.String())
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful",
		"token":   token,
		"profile": gin.H{
			"id":    profile.ID,
			"name":  profile.Name,
			"email": profile.Email,
		},
	})
}

func (ac *AuthController) Login(c *gin.Context) {
	var input LoginInput

	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input")
		return
	}

	var profile models.Profile
	result := ac.DB.Where("email = ?", utils.NormalizeEmail(input.Email)).First(&profile)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if !utils.CheckPasswordHash(input.Password, profile.Password) {
		utils.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := utils.GenerateToken(profile.ID.String())
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	// Update last login
	now := time.Now()
	ac.DB.Model(&profile).Update("last_login", &now)

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"profile": gin.H{
			"id":         profile.ID,
			"name":       profile.Name,
			"email":      profile.Email,
			"partner_id": profile.PartnerID,
		},
	})
}

func (ac *AuthController) Me(c *gin.Context) {
	profileID, ok := currentProfileID(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "Profile ID not found in context")
		return
	}

	var profile models.Profile
	if err := ac.DB.First(&profile, "id = ?", profileID).Error; err != nil {
		utils.RespondWithError(c, http.StatusUnauthorized, "Profile not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"profile": gin.H{
			"id":         profile.ID,
			"name":       profile.Name,
			"email":      profile.Email,
			"phone":      profile.Phone,
			"partner_id": profile.PartnerID,
			"has_push":   profile.HasPushSubscription(),
		},
	})
}
