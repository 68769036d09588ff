package repositories

import (
	"errors"
	"time"

	"mfs_backend/internal/models"

	"gorm.io/gorm"
)

var (
	// ErrOtpNotFound возвращается, когда подходящий код не найден
	ErrOtpNotFound = errors.New("otp not found")
)

// OtpRepository определяет интерфейс для операций с одноразовыми кодами
type OtpRepository interface {
	// Create создает запись кода
	Create(db *gorm.DB, otp *models.Otp) error

	// FindLatestValid находит последний действительный код пользователя:
	// is_active и expires_at не раньше now, свежайший по requested_at
	FindLatestValid(db *gorm.DB, userID string, now time.Time) (*models.Otp, error)

	// FindLatestRequest находит последний запрошенный код пользователя
	// независимо от срока и активности (для кулдауна выдачи)
	FindLatestRequest(db *gorm.DB, userID string) (*models.Otp, error)

	// Deactivate гасит конкретный код
	Deactivate(db *gorm.DB, otpID string) error

	// DeactivateAllForUser гасит все активные коды пользователя
	DeactivateAllForUser(db *gorm.DB, userID string) error
}

type otpRepository struct{}

// NewOtpRepository создает новый экземпляр OtpRepository
func NewOtpRepository() OtpRepository {
	return &otpRepository{}
}

func (r *otpRepository) Create(db *gorm.DB, otp *models.Otp) error {
	return db.Create(otp).Error
}

func (r *otpRepository) FindLatestValid(db *gorm.DB, userID string, now time.Time) (*models.Otp, error) {
	var otp models.Otp
	err := db.Where("user_id = ? AND is_active = ? AND expires_at >= ?", userID, true, now).
		Order("requested_at DESC").
		First(&otp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOtpNotFound
		}
		return nil, err
	}
	return &otp, nil
}

func (r *otpRepository) FindLatestRequest(db *gorm.DB, userID string) (*models.Otp, error) {
	var otp models.Otp
	err := db.Where("user_id = ?", userID).
		Order("requested_at DESC").
		First(&otp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOtpNotFound
		}
		return nil, err
	}
	return &otp, nil
}

func (r *otpRepository) Deactivate(db *gorm.DB, otpID string) error {
	return db.Model(&models.Otp{}).
		Where("id = ?", otpID).
		Update("is_active", false).Error
}

func (r *otpRepository) DeactivateAllForUser(db *gorm.DB, userID string) error {
	return db.Model(&models.Otp{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Update("is_active", false).Error
}
