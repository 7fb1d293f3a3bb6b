package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WaterReminder is a single reminder event between paired partners.
// Rows are immutable after insert except for the acknowledged pair of fields.
type WaterReminder struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	SenderID   uuid.UUID `gorm:"type:uuid;index;not null" json:"sender_id"`
	ReceiverID uuid.UUID `gorm:"type:uuid;index;not null" json:"receiver_id"`
	Message    string    `gorm:"type:text;not null" json:"message"`
	SentAt     time.Time `gorm:"index;not null" json:"sent_at"`

	Acknowledged   bool       `gorm:"default:false" json:"acknowledged"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`

	Sender   *Profile `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Receiver *Profile `gorm:"foreignKey:ReceiverID" json:"receiver,omitempty"`
}

func (WaterReminder) TableName() string {
	return "water_reminders"
}

func (r *WaterReminder) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}
