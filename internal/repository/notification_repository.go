package repository

import (
	"time"

	"socialhub_backend/internal/model"

	"gorm.io/gorm"
)

type NotificationRepository struct {
	DB *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{DB: db}
}

func (r *NotificationRepository) Create(n *model.Notification) error {
	return r.DB.Create(n).Error
}

func (r *NotificationRepository) ListForUser(userID uint, unreadOnly bool, limit, offset int) ([]model.Notification, int64, error) {
	var items []model.Notification
	var total int64

	db := r.DB.Model(&model.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		db = db.Where("read_at IS NULL")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Preload("Actor").
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&items).Error
	return items, total, err
}

func (r *NotificationRepository) CountUnread(userID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Count(&count).Error
	return count, err
}

// MarkRead 只改属于 userID 的行，返回行数用于所有权判断
func (r *NotificationRepository) MarkRead(id, userID uint, at time.Time) (int64, error) {
	res := r.DB.Model(&model.Notification{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", id, userID).
		Update("read_at", at)
	return res.RowsAffected, res.Error
}

func (r *NotificationRepository) MarkAllRead(userID uint, at time.Time) error {
	return r.DB.Model(&model.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", at).Error
}

func (r *NotificationRepository) Delete(id, userID uint) (int64, error) {
	res := r.DB.Where("id = ? AND user_id = ?", id, userID).
		Delete(&model.Notification{})
	return res.RowsAffected, res.Error
}

func (r *NotificationRepository) ClearAll(userID uint) error {
	return r.DB.Where("user_id = ?", userID).Delete(&model.Notification{}).Error
}

// Exists 通知是否存在（区分 404 与 403 场景）
func (r *NotificationRepository) Exists(id uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.Notification{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *NotificationRepository) IsOwnedBy(id, userID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Count(&count).Error
	return count > 0, err
}
