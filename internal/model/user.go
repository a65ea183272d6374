package model

import (
	"time"
)

type UserPrivacy string

const (
	PrivacyPublic  UserPrivacy = "public"
	PrivacyPrivate UserPrivacy = "private"
)

// swagger:model User
type User struct {
	BaseModel
	Name     string      `gorm:"size:100;not null" json:"name"`
	Email    string      `gorm:"size:100;unique;not null" json:"email"`
	Privacy  UserPrivacy `gorm:"size:16;default:'public'" json:"privacy"`
	Bio      string      `gorm:"size:255" json:"bio"`
	Avatar   string      `gorm:"size:255" json:"avatar"`
	Disabled bool        `gorm:"default:false" json:"disabled"`
	// autoCreateTime 由应用层赋值，建表语句不依赖方言默认值
	LastSeen time.Time   `gorm:"autoCreateTime" json:"lastSeen"`
}

func (User) TableName() string {
	return "users"
}

// IsPrivate 私密账号的关注需要对方确认
func (u *User) IsPrivate() bool {
	return u.Privacy == PrivacyPrivate
}
