package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"socialhub_backend/internal/model"
	"socialhub_backend/internal/util"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

const unreadCacheTTL = 24 * time.Hour

// MessageRepository 消息与附件的数据访问 + 未读数缓存
type MessageRepository struct {
	DB    *gorm.DB
	Redis *redis.Client
	ctx   context.Context
}

func NewMessageRepository(db *gorm.DB, rdb *redis.Client) *MessageRepository {
	return &MessageRepository{
		DB:    db,
		Redis: rdb,
		ctx:   context.Background(),
	}
}

func unreadCacheKey(userID uint, convID string) string {
	return fmt.Sprintf("social:unread:%d:%s", userID, convID)
}

func (r *MessageRepository) GetByID(id string) (*model.Message, error) {
	var msg model.Message
	err := r.DB.Preload("Attachments").Preload("Sender").First(&msg, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNotFound
		}
		return nil, err
	}
	return &msg, nil
}

// ListByConversation 历史消息，before 为翻页游标（零值取最新一页）
func (r *MessageRepository) ListByConversation(convID string, limit int, before time.Time) ([]model.Message, error) {
	var msgs []model.Message
	db := r.DB.Preload("Sender").Preload("Attachments").
		Where("conversation_id = ?", convID)

	if !before.IsZero() {
		db = db.Where("created_at < ?", before)
	}

	err := db.Order("created_at DESC").
		Limit(limit).
		Find(&msgs).Error
	return msgs, err
}

// CountUnread 已读游标之后、他人发出的消息数
// SQL 的 sender_id != ? 天然排除发送者为 NULL 的系统消息
func (r *MessageRepository) CountUnread(convID string, userID uint, after *time.Time) (int64, error) {
	var count int64
	db := r.DB.Model(&model.Message{}).
		Where("conversation_id = ?", convID).
		Where("sender_id != ?", userID)

	if after != nil {
		db = db.Where("created_at > ?", *after)
	}

	err := db.Count(&count).Error
	return count, err
}

// CachedUnread 返回 (-1, nil) 表示缓存未命中
func (r *MessageRepository) CachedUnread(userID uint, convID string) (int64, error) {
	if r.Redis == nil {
		return -1, nil
	}
	count, err := r.Redis.Get(r.ctx, unreadCacheKey(userID, convID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return -1, nil
		}
		return -1, err
	}
	return count, nil
}

func (r *MessageRepository) SetCachedUnread(userID uint, convID string, count int64) {
	if r.Redis == nil {
		return
	}
	r.Redis.Set(r.ctx, unreadCacheKey(userID, convID), count, unreadCacheTTL)
}

// InvalidateUnread 新消息、已读标记后失效相关成员的缓存
func (r *MessageRepository) InvalidateUnread(convID string, userIDs ...uint) {
	if r.Redis == nil {
		return
	}
	for _, id := range userIDs {
		r.Redis.Del(r.ctx, unreadCacheKey(id, convID))
	}
}

// DeleteWithAttachments 物理删除消息及附件行，单事务
func (r *MessageRepository) DeleteWithAttachments(msgID string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id = ?", msgID).Delete(&model.MessageAttachment{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", msgID).Delete(&model.Message{}).Error
	})
}
