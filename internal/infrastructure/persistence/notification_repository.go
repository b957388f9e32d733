package persistence

import (
	"context"
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormNotificationRepository stores operator notices in the admin inbox and
// implements fulfillment.Notifier.
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewGormNotificationRepository creates a new GormNotificationRepository
func NewGormNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

// Notify inserts the notice as unread
func (r *GormNotificationRepository) Notify(ctx context.Context, n fulfillment.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(&models.NotificationModel{
		ID:        n.ID,
		Severity:  string(n.Severity),
		Title:     n.Title,
		Message:   n.Message,
		CreatedAt: n.CreatedAt,
	}).Error
}

// FindUnread returns unread notices, newest first
func (r *GormNotificationRepository) FindUnread(ctx context.Context, limit int) ([]fulfillment.Notification, error) {
	var rows []models.NotificationModel
	query := r.db.WithContext(ctx).Where("is_read = ?", false).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	notes := make([]fulfillment.Notification, len(rows))
	for i := range rows {
		notes[i] = rows[i].ToDomain()
	}
	return notes, nil
}

// MarkRead marks notices as read
func (r *GormNotificationRepository) MarkRead(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.NotificationModel{}).
		Where("id IN ?", ids).
		Update("is_read", true).Error
}

var _ fulfillment.Notifier = (*GormNotificationRepository)(nil)
