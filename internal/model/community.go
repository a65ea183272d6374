package model

import (
	"time"
)

// Post 动态/帖子，通知的主题来源之一
// 信息流渲染、话题/@解析不在本服务内
type Post struct {
	UUIDBase
	AuthorID uint   `gorm:"index;not null" json:"authorId"`
	Author   User   `gorm:"foreignKey:AuthorID;constraint:false" json:"author,omitempty"`
	Content  string `gorm:"type:text;not null" json:"content"`
	ImageURL string `gorm:"size:255" json:"imageUrl"`
}

func (Post) TableName() string {
	return "posts"
}

type Comment struct {
	UUIDBase
	PostID   string  `gorm:"type:varchar(36);index;not null" json:"postId"`
	AuthorID uint    `gorm:"index;not null" json:"authorId"`
	Author   User    `gorm:"foreignKey:AuthorID;constraint:false" json:"author,omitempty"`
	Content  string  `gorm:"type:text;not null" json:"content"`
	ParentID *string `gorm:"type:varchar(36);index" json:"parentId,omitempty"`
}

func (Comment) TableName() string {
	return "comments"
}

type ReactionKind string

const (
	ReactionLike  ReactionKind = "like"
	ReactionLove  ReactionKind = "love"
	ReactionLaugh ReactionKind = "laugh"
)

// Reaction 帖子表态，(user_id, post_id) 唯一，重复表态覆盖种类
type Reaction struct {
	ID        uint         `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint         `gorm:"not null;uniqueIndex:idx_user_post" json:"userId"`
	PostID    string       `gorm:"type:varchar(36);not null;uniqueIndex:idx_user_post;index" json:"postId"`
	Kind      ReactionKind `gorm:"size:16;not null;default:'like'" json:"kind"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

func (Reaction) TableName() string {
	return "reactions"
}
