package model

import (
	"time"
)

type FollowStatus string

const (
	FollowPending  FollowStatus = "pending"
	FollowAccepted FollowStatus = "accepted"
)

// Follow 关注关系（有向边）
// 唯一约束 (follower_id, following_id)，并发重复插入依赖该约束兜底
type Follow struct {
	ID          uint         `gorm:"primaryKey;autoIncrement" json:"id"`
	FollowerID  uint         `gorm:"not null;uniqueIndex:idx_follower_following" json:"followerId"`
	FollowingID uint         `gorm:"not null;uniqueIndex:idx_follower_following;index" json:"followingId"`
	Status      FollowStatus `gorm:"size:16;not null;default:'pending';index" json:"status"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`

	Follower  User `gorm:"foreignKey:FollowerID;constraint:false" json:"follower,omitempty"`
	Following User `gorm:"foreignKey:FollowingID;constraint:false" json:"following,omitempty"`
}

func (Follow) TableName() string {
	return "follows"
}

// Block 拉黑关系（有向边，效果双向）
// 创建时必须在同一事务里删除双方之间的所有关注边
type Block struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	BlockerID uint      `gorm:"not null;uniqueIndex:idx_blocker_blocked" json:"blockerId"`
	BlockedID uint      `gorm:"not null;uniqueIndex:idx_blocker_blocked;index" json:"blockedId"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Block) TableName() string {
	return "blocks"
}

// Mute 免打扰（有向边，只影响通知可见性，不影响关注/拉黑状态）
// ExpiresAt 为 nil 表示永久
type Mute struct {
	ID        uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	MuterID   uint       `gorm:"not null;uniqueIndex:idx_muter_muted" json:"muterId"`
	MutedID   uint       `gorm:"not null;uniqueIndex:idx_muter_muted;index" json:"mutedId"`
	ExpiresAt *time.Time `json:"expiresAt"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func (Mute) TableName() string {
	return "mutes"
}

func (m *Mute) ActiveAt(now time.Time) bool {
	return m.ExpiresAt == nil || m.ExpiresAt.After(now)
}
