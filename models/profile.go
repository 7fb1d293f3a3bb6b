package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"hydrapair-backend/utils"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Profile struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name     string    `gorm:"not null" json:"name"`
	Email    string    `gorm:"uniqueIndex;not null" json:"email"`
	Password string    `gorm:"not null" json:"-"`
	Phone    string    `json:"phone,omitempty"`

	// Self-referential pairing link. At most one partner; null when unpaired.
	PartnerID *uuid.UUID `gorm:"type:uuid;index" json:"partner_id"`

	// Opaque browser push subscription blob. Only the push relay interprets it.
	PushSubscription JSONB `gorm:"type:jsonb" json:"push_subscription,omitempty"`

	LastLogin *time.Time `json:"-"`

	gorm.Model `json:"-"`
}

// Initialize UUID and hash the password before creating
func (p *Profile) BeforeCreate(tx *gorm.DB) (err error) {
	p.ID = uuid.New()
	hashed, err := utils.HashPassword(p.Password)
	if err != nil {
		return err
	}
	p.Password = hashed
	return
}

// HasPushSubscription reports whether a usable subscription blob is stored.
func (p *Profile) HasPushSubscription() bool {
	return len(p.PushSubscription) > 0
}

// Custom JSONB type for the push subscription payload
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return errors.New("unsupported type for JSONB scan")
	}
}
