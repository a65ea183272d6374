package model

import (
	"fmt"
	"time"
)

type ConversationType string

const (
	ConversationDirect ConversationType = "direct"
	ConversationGroup  ConversationType = "group"
)

type ParticipantRole string

const (
	RoleAdmin  ParticipantRole = "admin"
	RoleMember ParticipantRole = "member"
)

// Conversation 会话（私聊、群聊）
// DirectKey 是私聊的规范化成员对 "小ID:大ID"，唯一索引保证同一对用户只有一个私聊
type Conversation struct {
	UUIDBase
	Type          ConversationType          `gorm:"size:16;not null;index" json:"type"`
	Name          string                    `gorm:"size:100" json:"name"`
	CreatorID     uint                      `gorm:"index" json:"creatorId"`
	DirectKey     *string                   `gorm:"size:64;uniqueIndex" json:"-"`
	LastMessageAt *time.Time                `gorm:"index" json:"lastMessageAt"`
	Participants  []ConversationParticipant `gorm:"foreignKey:ConversationID" json:"participants,omitempty"`
}

func (Conversation) TableName() string {
	return "conversations"
}

func (c *Conversation) IsGroup() bool {
	return c.Type == ConversationGroup
}

// DirectConversationKey 与参数顺序无关
func DirectConversationKey(userA, userB uint) string {
	if userB < userA {
		userA, userB = userB, userA
	}
	return fmt.Sprintf("%d:%d", userA, userB)
}

// ConversationParticipant 会话成员，独立实体：角色、退出时间、已读游标、免打扰
// LeftAt 非空表示已退出：不再参与写入和未读统计，但历史消息保留
type ConversationParticipant struct {
	ID             uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID string          `gorm:"type:varchar(36);not null;uniqueIndex:idx_conv_user" json:"conversationId"`
	UserID         uint            `gorm:"not null;uniqueIndex:idx_conv_user;index" json:"userId"`
	User           User            `gorm:"foreignKey:UserID;constraint:false" json:"user,omitempty"`
	Role           ParticipantRole `gorm:"size:16;not null;default:'member'" json:"role"`
	JoinedAt       time.Time       `gorm:"autoCreateTime" json:"joinedAt"`
	LeftAt         *time.Time      `gorm:"index" json:"leftAt,omitempty"`
	LastReadAt     *time.Time      `json:"lastReadAt,omitempty"`
	IsMuted        bool            `gorm:"default:false" json:"isMuted"`
}

func (ConversationParticipant) TableName() string {
	return "conversation_participants"
}

func (p *ConversationParticipant) Active() bool {
	return p.LeftAt == nil
}
