package auth

import (
	"errors"
	"time"

	"mfs_backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// Сроки жизни токенов
const (
	// Неверифицированный пользователь получает короткий access-токен:
	// его хватает ровно на то, чтобы подтвердить email
	AccessTokenTTLVerified   = 24 * time.Hour
	AccessTokenTTLUnverified = 5 * time.Minute
	PasswordResetTokenTTL    = 5 * time.Minute
	RefreshTokenTTL          = 7 * 24 * time.Hour
)

const PurposePasswordReset = "password_reset"

var (
	ErrTokenInvalid = errors.New("invalid or expired token")
)

// AccessClaims - набор утверждений access-токена
type AccessClaims struct {
	ID         string   `json:"id"`
	Email      string   `json:"email"`
	Username   string   `json:"username"`
	Roles      []string `json:"roles"`
	IsVerified bool     `json:"isVerified"`
	jwt.RegisteredClaims
}

// ResetClaims - утверждения токена сброса пароля.
// Отдельный тип: reset-токен не дает доступа к обычным защищенным маршрутам.
type ResetClaims struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// NewAccessClaims собирает утверждения из записи пользователя
func NewAccessClaims(user *models.User) *AccessClaims {
	ttl := AccessTokenTTLUnverified
	if user.IsEmailVerified {
		ttl = AccessTokenTTLVerified
	}

	now := time.Now()
	return &AccessClaims{
		ID:         user.ID,
		Email:      user.Email,
		Username:   user.Username,
		Roles:      []string(user.Roles),
		IsVerified: user.IsEmailVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

// GenerateAccessToken подписывает access-токен HMAC-ключом
func GenerateAccessToken(user *models.User, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, NewAccessClaims(user))
	return token.SignedString([]byte(secret))
}

// GeneratePasswordResetToken подписывает короткоживущий токен,
// пригодный только для смены пароля
func GeneratePasswordResetToken(user *models.User, secret string) (string, error) {
	now := time.Now()
	claims := &ResetClaims{
		ID:      user.ID,
		Email:   user.Email,
		Purpose: PurposePasswordReset,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(PasswordResetTokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseAccessToken проверяет подпись и срок действия access-токена
func ParseAccessToken(tokenStr, secret string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// ParsePasswordResetToken проверяет reset-токен: подпись, срок,
// назначение password_reset и наличие id
func ParsePasswordResetToken(tokenStr, secret string) (*ResetClaims, error) {
	claims := &ResetClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.ID == "" || claims.Purpose != PurposePasswordReset {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
