package model

import (
	"time"

	"gorm.io/gorm"
)

// User 用户账户，Email 统一小写存储.
type User struct {
	ID            string    `gorm:"primaryKey;size:26"     json:"id"`
	Email         string    `gorm:"size:320;uniqueIndex"   json:"email"`
	Name          string    `gorm:"size:100"               json:"name"`
	EmailVerified bool      `gorm:"not null;default:false" json:"emailVerified"`
	Image         string    `gorm:"size:1024"              json:"image,omitempty"`
	Plan          string    `gorm:"size:16;not null;default:free" json:"plan"`
	PasswordHash  string    `gorm:"size:255"               json:"-"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = NewID()
	}

	return nil
}

// UserPreferences 用户偏好，目前只记录最近访问的工作区.
type UserPreferences struct {
	ID              string    `gorm:"primaryKey;size:26"          json:"id"`
	UserID          string    `gorm:"size:26;uniqueIndex;not null" json:"userId"`
	LastWorkspaceID *string   `gorm:"size:26"                     json:"lastWorkspaceId"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (UserPreferences) TableName() string {
	return "user_preferences"
}

func (p *UserPreferences) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = NewID()
	}

	return nil
}

// TokenPurpose 一次性令牌用途.
type TokenPurpose string

const (
	PurposeVerifyEmail   TokenPurpose = "verify_email"
	PurposeResetPassword TokenPurpose = "reset_password"
)

// VerificationToken 邮箱验证、重置密码等一次性令牌，仅保存摘要.
type VerificationToken struct {
	ID        string       `gorm:"primaryKey;size:26"`
	UserID    string       `gorm:"size:26;index;not null"`
	Purpose   TokenPurpose `gorm:"size:32;index;not null"`
	TokenHash string       `gorm:"size:64;uniqueIndex;not null"`
	ExpiresAt time.Time    `gorm:"index"`
	UsedAt    *time.Time
	CreatedAt time.Time
}

func (t *VerificationToken) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = NewID()
	}

	return nil
}
