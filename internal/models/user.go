package models

import (
	"time"

	"gorm.io/datatypes"
)

type User struct {
	BaseModel
	FirstName       string                      `json:"firstName"`
	LastName        string                      `json:"lastName"`
	Username        string                      `gorm:"uniqueIndex;not null" json:"username"`
	Email           string                      `gorm:"uniqueIndex;not null" json:"email"`
	Password        string                      `gorm:"not null" json:"-"` // bcrypt-хеш, никогда не plaintext
	IsEmailVerified bool                        `gorm:"default:false" json:"isEmailVerified"`
	Roles           datatypes.JSONSlice[string] `json:"roles"`

	// Relations
	Otps          []Otp          `gorm:"foreignKey:UserID" json:"-"`
	RefreshTokens []RefreshToken `gorm:"foreignKey:UserID" json:"-"`
}

type RefreshToken struct {
	BaseModel
	UserID    string    `gorm:"not null;index" json:"userId"`
	Token     string    `gorm:"not null;uniqueIndex" json:"token"`
	ExpiresAt time.Time `gorm:"not null" json:"expiresAt"`
}
