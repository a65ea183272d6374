package model

import (
	"time"
)

type NotificationType string

const (
	NotifyFollow        NotificationType = "follow"
	NotifyFollowRequest NotificationType = "follow_request"
	NotifyMessage       NotificationType = "message"
	NotifyMention       NotificationType = "mention"
	NotifyComment       NotificationType = "comment"
	NotifyLike          NotificationType = "like"
	NotifyModeration    NotificationType = "moderation"
)

// MuteSuppressible 免打扰只拦截社交来源的通知，平台治理类通知不受影响。
// follow_request 也算社交来源：免打扰表达的是"别让这个人打扰我"，
// 关注请求本身照常落库、照常可列出，只是不提醒
func (t NotificationType) MuteSuppressible() bool {
	switch t {
	case NotifyMessage, NotifyMention, NotifyComment, NotifyLike, NotifyFollow, NotifyFollowRequest:
		return true
	case NotifyModeration:
		return false
	}
	return false
}

type SubjectKind string

const (
	SubjectPost    SubjectKind = "post"
	SubjectMessage SubjectKind = "message"
	SubjectUser    SubjectKind = "user"
)

// NotificationSubject 通知指向的实体，封闭变体：帖子/消息/用户之一
type NotificationSubject struct {
	Kind SubjectKind `json:"kind"`
	ID   string      `json:"id"`
}

func PostSubject(postID string) NotificationSubject {
	return NotificationSubject{Kind: SubjectPost, ID: postID}
}

func MessageSubject(messageID string) NotificationSubject {
	return NotificationSubject{Kind: SubjectMessage, ID: messageID}
}

func UserSubject(userID uint) NotificationSubject {
	return NotificationSubject{Kind: SubjectUser, ID: UintID(userID)}
}

// Notification 通知记录，收件人维度的行，删除为物理删除
type Notification struct {
	ID          uint             `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint             `gorm:"not null;index:idx_user_read" json:"userId"`
	ActorID     uint             `gorm:"index" json:"actorId"`
	Actor       User             `gorm:"foreignKey:ActorID;constraint:false" json:"actor,omitempty"`
	Type        NotificationType `gorm:"size:24;not null;index" json:"type"`
	SubjectKind SubjectKind      `gorm:"size:16;not null" json:"subjectKind"`
	SubjectID   string           `gorm:"size:64;not null" json:"subjectId"`
	Message     string           `gorm:"size:255" json:"message"`
	ReadAt      *time.Time       `gorm:"index:idx_user_read" json:"readAt,omitempty"`
	CreatedAt   time.Time        `gorm:"index" json:"createdAt"`
}

func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) Subject() NotificationSubject {
	return NotificationSubject{Kind: n.SubjectKind, ID: n.SubjectID}
}
