package model

import (
	"time"

	"gorm.io/gorm"
)

type MessageType string

const (
	MessageText   MessageType = "text"
	MessageImage  MessageType = "image"
	MessageVideo  MessageType = "video"
	MessageFile   MessageType = "file"
	MessageSystem MessageType = "system"
)

// Message 消息记录
// 系统消息 SenderID 为 nil；编辑为原地覆盖，不保留历史；删除为物理删除
type Message struct {
	ID             string      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ConversationID string      `gorm:"type:varchar(36);not null;index:idx_conv_created" json:"conversationId"`
	CreatedAt      time.Time   `gorm:"index:idx_conv_created" json:"createdAt"`
	SenderID       *uint       `gorm:"index" json:"senderId"`
	Sender         *User       `gorm:"foreignKey:SenderID;constraint:false" json:"sender,omitempty"`
	Type           MessageType `gorm:"size:16;not null;default:'text'" json:"type"`
	Content        string      `gorm:"type:text" json:"content"`
	ReplyToID      *string     `gorm:"type:varchar(36);index" json:"replyToId,omitempty"`
	IsEdited       bool        `gorm:"default:false" json:"isEdited"`
	EditedAt       *time.Time  `json:"editedAt,omitempty"`

	Attachments []MessageAttachment `gorm:"foreignKey:MessageID" json:"attachments,omitempty"`
}

func (Message) TableName() string {
	return "messages"
}

func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = GenerateUUID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	return
}

// MessageAttachment 消息附件，和消息同事务写入/删除
// Path/URL/MimeType/Size 来自存储子系统的返回值
type MessageAttachment struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageID string    `gorm:"type:varchar(36);not null;index" json:"messageId"`
	FilePath  string    `gorm:"size:255;not null" json:"filePath"`
	FileURL   string    `gorm:"size:255;not null" json:"fileUrl"`
	MimeType  string    `gorm:"size:100" json:"mimeType"`
	Size      int64     `gorm:"default:0" json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

func (MessageAttachment) TableName() string {
	return "message_attachments"
}
