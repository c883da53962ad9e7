package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	ROLE_USER       = "user"
	ROLE_ADMIN      = "admin"
	STATUS_ACTIVE   = "active"
	STATUS_DISABLED = "disabled"
)

// User is a locally known account. Users are created on first OAuth sign-in and
// their email is what billing identity resolution keys on.
type User struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"type:varchar(150)" json:"name" validate:"required,min=1,max=150"`
	Email       string         `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"required,email,max=200"`
	Role        string         `gorm:"type:varchar(50);default:'user'" json:"role" validate:"oneof=user admin"`
	Status      string         `gorm:"type:varchar(50);default:'active'" json:"status" validate:"oneof=active disabled"`
	AvatarURL   string         `gorm:"type:varchar(255);default:null" json:"avatar_url" validate:"max=255"`
	LastLoginAt *time.Time     `gorm:"type:timestamp;default:null" json:"last_login_at"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// NewOAuthUser builds an active user from provider profile data.
func NewOAuthUser(name, email, avatarURL string) (*User, error) {
	u := &User{
		Name:      name,
		Email:     NormalizeEmail(email),
		AvatarURL: avatarURL,
		Role:      ROLE_USER,
		Status:    STATUS_ACTIVE,
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

// IsActive reports whether the user status is active
func (u *User) IsActive() bool {
	return u.Status == STATUS_ACTIVE
}

func (u *User) IsAdmin() bool {
	return u.Role == ROLE_ADMIN
}

// NormalizeEmail lowercases and trims an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
