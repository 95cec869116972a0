package models

import "time"

const NotificationTable = "lib_notifications"

const (
	NotifLoan    = "loan"
	NotifReturn  = "return"
	NotifRenewal = "renewal"
	NotifOverdue = "overdue"
	NotifSystem  = "system"
)

type Notification struct {
	ID      string `gorm:"type:uuid;primaryKey" json:"id"`
	UserID  string `gorm:"type:uuid;index;not null" json:"user_id"`
	Type    string `gorm:"size:20;not null" json:"type"`
	Message string `gorm:"size:500;not null" json:"message"`
	Read    bool   `gorm:"not null;default:false;index" json:"read"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Notification) TableName() string { return NotificationTable }
