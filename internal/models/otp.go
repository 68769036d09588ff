package models

import "time"

// OtpPurpose - назначение одноразового кода
type OtpPurpose string

const (
	OtpPurposeEmailVerification OtpPurpose = "email_verification"
	OtpPurposePasswordReset     OtpPurpose = "password_reset"
)

// Otp - одноразовый код. Хранится только bcrypt-хеш кода.
// "Последний действительный" код: isActive и expiresAt в будущем,
// сортировка по requestedAt по убыванию.
type Otp struct {
	BaseModel
	UserID      string     `gorm:"not null;index" json:"userId"`
	OtpHash     string     `gorm:"not null" json:"-"`
	Purpose     OtpPurpose `gorm:"type:varchar(32);default:'email_verification'" json:"purpose"`
	ExpiresAt   time.Time  `gorm:"not null" json:"expiresAt"`
	Attempts    int        `gorm:"default:0" json:"attempts"`
	RequestedAt time.Time  `gorm:"not null;index" json:"requestedAt"`
	IsActive    bool       `gorm:"default:true" json:"isActive"`
}
