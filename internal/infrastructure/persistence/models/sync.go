package models

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/google/uuid"
)

// CursorModel is a named scheduler cursor.
type CursorModel struct {
	Name      string    `gorm:"type:varchar(64);primaryKey"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CursorModel) TableName() string {
	return "sync_cursors"
}

// NotificationModel is an operator notice shown in the admin inbox.
type NotificationModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Severity  string    `gorm:"type:varchar(16);not null;index"`
	Title     string    `gorm:"type:varchar(255);not null"`
	Message   string    `gorm:"type:text;not null"`
	IsRead    bool      `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (NotificationModel) TableName() string {
	return "admin_notifications"
}

// ToDomain converts the persistence model to a domain Notification.
func (m *NotificationModel) ToDomain() fulfillment.Notification {
	return fulfillment.Notification{
		ID:        m.ID,
		Severity:  fulfillment.Severity(m.Severity),
		Title:     m.Title,
		Message:   m.Message,
		CreatedAt: m.CreatedAt,
	}
}

// StoreScopeModel records whether remote fulfillment is enabled for a store.
type StoreScopeModel struct {
	StoreID                  int64  `gorm:"primaryKey;autoIncrement:false"`
	Code                     string `gorm:"type:varchar(32);not null;uniqueIndex"`
	Active                   bool   `gorm:"not null"`
	RemoteFulfillmentEnabled bool   `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StoreScopeModel) TableName() string {
	return "store_scopes"
}
