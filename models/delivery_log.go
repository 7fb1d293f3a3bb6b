// models/delivery_log.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DeliveryLog struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key"`
	ReminderID   uuid.UUID `gorm:"type:uuid;index;not null"`
	ReceiverID   uuid.UUID `gorm:"type:uuid;index;not null"`
	Channel      string    `gorm:"type:varchar(20)"` // push, sms
	Kind         string    `gorm:"type:varchar(20)"` // send, nudge
	Status       string    `gorm:"type:varchar(20)"` // sent, failed, skipped
	ErrorMessage string    `gorm:"type:text"`
	SentAt       time.Time
	gorm.Model
}

func (d *DeliveryLog) BeforeCreate(tx *gorm.DB) (err error) {
	d.ID = uuid.New()
	return
}
