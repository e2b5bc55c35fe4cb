package model

import "time"

// PushSubscription holds the information for a browser push subscription
// that receives PLC request events.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	UID       string    `gorm:"size:128;index"`
	CreatedAt time.Time `gorm:"not null"`
}
