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

// ConversationRepository 会话与成员行的数据访问
// 成员ID集合走 Redis 缓存，供消息推送和通知扇出使用
type ConversationRepository struct {
	DB    *gorm.DB
	Redis *redis.Client
	ctx   context.Context
}

func NewConversationRepository(db *gorm.DB, rdb *redis.Client) *ConversationRepository {
	return &ConversationRepository{
		DB:    db,
		Redis: rdb,
		ctx:   context.Background(),
	}
}

func participantsCacheKey(convID string) string {
	return fmt.Sprintf("social:conv:participants:%s", convID)
}

// InvalidateParticipants 成员集变化时调用（创建、邀请、退出）
func (r *ConversationRepository) InvalidateParticipants(convID string) {
	if r.Redis == nil {
		return
	}
	r.Redis.Del(r.ctx, participantsCacheKey(convID))
}

func (r *ConversationRepository) GetByID(id string) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.DB.Preload("Participants.User").First(&conv, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNotFound
		}
		return nil, err
	}
	return &conv, nil
}

func (r *ConversationRepository) FindByDirectKey(key string) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.DB.Preload("Participants.User").First(&conv, "direct_key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNotFound
		}
		return nil, err
	}
	return &conv, nil
}

// GetParticipant 成员行，含已退出的
func (r *ConversationRepository) GetParticipant(convID string, userID uint) (*model.ConversationParticipant, error) {
	return r.getParticipant(r.DB, convID, userID)
}

// GetParticipantTx 事务内的成员行读取，存在性判定和后续写入走同一个事务连接
func (r *ConversationRepository) GetParticipantTx(tx *gorm.DB, convID string, userID uint) (*model.ConversationParticipant, error) {
	return r.getParticipant(tx, convID, userID)
}

func (r *ConversationRepository) getParticipant(db *gorm.DB, convID string, userID uint) (*model.ConversationParticipant, error) {
	var p model.ConversationParticipant
	err := db.Where("conversation_id = ? AND user_id = ?", convID, userID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// GetActiveParticipant 读写操作的授权前置：必须是未退出成员
func (r *ConversationRepository) GetActiveParticipant(convID string, userID uint) (*model.ConversationParticipant, error) {
	var p model.ConversationParticipant
	err := r.DB.Where("conversation_id = ? AND user_id = ? AND left_at IS NULL", convID, userID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUnauthorized
		}
		return nil, err
	}
	return &p, nil
}

// ActiveParticipantIDs 未退出成员ID（带缓存），exclude 用于排除触发者自己
func (r *ConversationRepository) ActiveParticipantIDs(convID string, exclude uint) ([]uint, error) {
	ids, err := r.activeParticipantIDsCached(convID)
	if err != nil {
		return nil, err
	}
	out := ids[:0]
	for _, id := range ids {
		if id != exclude {
			out = append(out, id)
		}
	}
	return out, nil
}

func (r *ConversationRepository) activeParticipantIDsCached(convID string) ([]uint, error) {
	if r.Redis == nil {
		return r.activeParticipantIDs(convID)
	}

	key := participantsCacheKey(convID)
	cached, err := r.Redis.SMembers(r.ctx, key).Result()
	if err == nil && len(cached) > 0 {
		var ids []uint
		for _, s := range cached {
			var id uint
			fmt.Sscanf(s, "%d", &id)
			if id > 0 {
				ids = append(ids, id)
			}
		}
		return ids, nil
	}

	ids, err := r.activeParticipantIDs(convID)
	if err == nil && len(ids) > 0 {
		pipe := r.Redis.Pipeline()
		for _, id := range ids {
			pipe.SAdd(r.ctx, key, id)
		}
		pipe.Expire(r.ctx, key, relationCacheTTL)
		pipe.Exec(r.ctx)
	}
	return ids, err
}

func (r *ConversationRepository) activeParticipantIDs(convID string) ([]uint, error) {
	var ids []uint
	err := r.DB.Table("conversation_participants").
		Where("conversation_id = ? AND left_at IS NULL", convID).
		Pluck("user_id", &ids).Error
	return ids, err
}

// ListForUser 用户的会话列表，按最近消息倒序
func (r *ConversationRepository) ListForUser(userID uint, limit, offset int) ([]model.Conversation, int64, error) {
	var convs []model.Conversation
	var total int64

	db := r.DB.Model(&model.Conversation{}).
		Joins("JOIN conversation_participants ON conversation_participants.conversation_id = conversations.id").
		Where("conversation_participants.user_id = ?", userID).
		Where("conversation_participants.left_at IS NULL")

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Preload("Participants.User").
		Order("conversations.last_message_at DESC").
		Limit(limit).Offset(offset).
		Find(&convs).Error

	return convs, total, err
}

// SetParticipantLeft 置退出时间，历史消息不回收
func (r *ConversationRepository) SetParticipantLeft(tx *gorm.DB, convID string, userID uint, at time.Time) error {
	return tx.Model(&model.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ? AND left_at IS NULL", convID, userID).
		Update("left_at", at).Error
}

// AdvanceReadCursor 已读游标只前进不后退
func (r *ConversationRepository) AdvanceReadCursor(convID string, userID uint, at time.Time) error {
	return r.DB.Model(&model.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ? AND left_at IS NULL", convID, userID).
		Where("last_read_at IS NULL OR last_read_at < ?", at).
		Update("last_read_at", at).Error
}

func (r *ConversationRepository) SetParticipantMuted(convID string, userID uint, muted bool) error {
	return r.DB.Model(&model.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", convID, userID).
		Update("is_muted", muted).Error
}

// TouchLastMessage 只允许时间前移，乱序提交时保持最大值
func (r *ConversationRepository) TouchLastMessage(tx *gorm.DB, convID string, at time.Time) error {
	return tx.Model(&model.Conversation{}).
		Where("id = ?", convID).
		Where("last_message_at IS NULL OR last_message_at < ?", at).
		Update("last_message_at", at).Error
}
