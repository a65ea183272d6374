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
	"gorm.io/gorm/clause"
)

const relationCacheTTL = 24 * time.Hour

// RelationshipRepository 关注/拉黑/免打扰三类边的数据访问
// 关注ID集合走 Redis 缓存，写路径负责失效
type RelationshipRepository struct {
	DB    *gorm.DB
	Redis *redis.Client
	ctx   context.Context
}

func NewRelationshipRepository(db *gorm.DB, rdb *redis.Client) *RelationshipRepository {
	return &RelationshipRepository{
		DB:    db,
		Redis: rdb,
		ctx:   context.Background(),
	}
}

func followingCacheKey(userID uint) string {
	return fmt.Sprintf("social:relation:following:%d", userID)
}

func (r *RelationshipRepository) invalidateFollowing(userIDs ...uint) {
	if r.Redis == nil {
		return
	}
	for _, id := range userIDs {
		r.Redis.Del(r.ctx, followingCacheKey(id))
	}
}

func (r *RelationshipRepository) CreateFollow(f *model.Follow) error {
	err := r.DB.Create(f).Error
	if err == nil {
		r.invalidateFollowing(f.FollowerID)
	}
	return err
}

func (r *RelationshipRepository) GetFollow(followerID, followingID uint) (*model.Follow, error) {
	var f model.Follow
	err := r.DB.Where("follower_id = ? AND following_id = ?", followerID, followingID).First(&f).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

func (r *RelationshipRepository) UpdateFollowStatus(followerID, followingID uint, status model.FollowStatus) error {
	err := r.DB.Model(&model.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Update("status", status).Error
	if err == nil {
		r.invalidateFollowing(followerID)
	}
	return err
}

// DeleteFollow 返回删除行数，调用方据此区分"本来就没有关注"
func (r *RelationshipRepository) DeleteFollow(followerID, followingID uint) (int64, error) {
	res := r.DB.Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&model.Follow{})
	if res.Error == nil && res.RowsAffected > 0 {
		r.invalidateFollowing(followerID)
	}
	return res.RowsAffected, res.Error
}

func (r *RelationshipRepository) IsFollowing(followerID, followingID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.Follow{}).
		Where("follower_id = ? AND following_id = ? AND status = ?", followerID, followingID, model.FollowAccepted).
		Count(&count).Error
	return count > 0, err
}

// FollowingIDsCached 已接受的关注对象ID列表（带缓存）
func (r *RelationshipRepository) FollowingIDsCached(userID uint) ([]uint, error) {
	if r.Redis == nil {
		return r.followingIDs(userID)
	}

	key := followingCacheKey(userID)
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

	// 缓存失效，回源数据库
	ids, err := r.followingIDs(userID)
	if err == nil && len(ids) > 0 {
		pipe := r.Redis.Pipeline()
		for _, id := range ids {
			pipe.SAdd(r.ctx, key, id)
		}
		pipe.Expire(r.ctx, key, relationCacheTTL)
		pipe.Exec(r.ctx)
	} else if err == nil {
		// 防止缓存穿透
		r.Redis.SAdd(r.ctx, key, 0)
		r.Redis.Expire(r.ctx, key, 5*time.Minute)
	}
	return ids, err
}

func (r *RelationshipRepository) followingIDs(userID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.Table("follows").
		Where("follower_id = ? AND status = ?", userID, model.FollowAccepted).
		Pluck("following_id", &ids).Error
	return ids, err
}

func (r *RelationshipRepository) Followers(userID uint) ([]model.User, error) {
	var users []model.User
	err := r.DB.Joins("JOIN follows ON follows.follower_id = users.id").
		Where("follows.following_id = ? AND follows.status = ?", userID, model.FollowAccepted).
		Find(&users).Error
	return users, err
}

func (r *RelationshipRepository) Following(userID uint) ([]model.User, error) {
	var users []model.User
	err := r.DB.Joins("JOIN follows ON follows.following_id = users.id").
		Where("follows.follower_id = ? AND follows.status = ?", userID, model.FollowAccepted).
		Find(&users).Error
	return users, err
}

// PendingRequests 收到的待处理关注申请
func (r *RelationshipRepository) PendingRequests(userID uint) ([]model.Follow, error) {
	var reqs []model.Follow
	err := r.DB.Preload("Follower").
		Where("following_id = ? AND status = ?", userID, model.FollowPending).
		Order("created_at DESC").
		Find(&reqs).Error
	return reqs, err
}

// CreateBlockAndSever 拉黑 + 清除双方所有关注边，单事务
func (r *RelationshipRepository) CreateBlockAndSever(b *model.Block) error {
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(b).Error; err != nil {
			return err
		}
		return tx.Where(
			"(follower_id = ? AND following_id = ?) OR (follower_id = ? AND following_id = ?)",
			b.BlockerID, b.BlockedID, b.BlockedID, b.BlockerID,
		).Delete(&model.Follow{}).Error
	})
	if err == nil {
		r.invalidateFollowing(b.BlockerID, b.BlockedID)
	}
	return err
}

func (r *RelationshipRepository) GetBlock(blockerID, blockedID uint) (*model.Block, error) {
	var b model.Block
	err := r.DB.Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).First(&b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *RelationshipRepository) DeleteBlock(blockerID, blockedID uint) (int64, error) {
	res := r.DB.Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&model.Block{})
	return res.RowsAffected, res.Error
}

// IsBlockedBetween 任一方向存在拉黑即为 true
func (r *RelationshipRepository) IsBlockedBetween(userA, userB uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.Block{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)",
			userA, userB, userB, userA).
		Count(&count).Error
	return count > 0, err
}

func (r *RelationshipRepository) BlockedUsers(userID uint) ([]model.User, error) {
	var users []model.User
	err := r.DB.Joins("JOIN blocks ON blocks.blocked_id = users.id").
		Where("blocks.blocker_id = ?", userID).
		Find(&users).Error
	return users, err
}

// UpsertMute 重复静音覆盖过期时间
func (r *RelationshipRepository) UpsertMute(m *model.Mute) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "muter_id"}, {Name: "muted_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"expires_at", "updated_at"}),
	}).Create(m).Error
}

func (r *RelationshipRepository) DeleteMute(muterID, mutedID uint) (int64, error) {
	res := r.DB.Where("muter_id = ? AND muted_id = ?", muterID, mutedID).
		Delete(&model.Mute{})
	return res.RowsAffected, res.Error
}

// IsMutedActive 静音是否生效：无过期时间或过期时间在未来
func (r *RelationshipRepository) IsMutedActive(muterID, mutedID uint, now time.Time) (bool, error) {
	var count int64
	err := r.DB.Model(&model.Mute{}).
		Where("muter_id = ? AND muted_id = ?", muterID, mutedID).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Count(&count).Error
	return count > 0, err
}

func (r *RelationshipRepository) ActiveMutes(muterID uint, now time.Time) ([]model.Mute, error) {
	var mutes []model.Mute
	err := r.DB.Where("muter_id = ?", muterID).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Find(&mutes).Error
	return mutes, err
}
