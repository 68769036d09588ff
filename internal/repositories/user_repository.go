package repositories

import (
	"errors"

	"mfs_backend/internal/models"

	"gorm.io/gorm"
)

var (
	// ErrUserNotFound возвращается, когда пользователь не найден в БД
	ErrUserNotFound = errors.New("user not found")
)

// Поля, по которым разрешена проверка дубликатов
const (
	FieldUsername = "username"
	FieldEmail    = "email"
)

// UserRepository определяет интерфейс для операций с пользователями
type UserRepository interface {
	// Create создает запись пользователя
	Create(db *gorm.DB, user *models.User) error

	// FindByID находит пользователя по id
	FindByID(db *gorm.DB, id string) (*models.User, error)

	// FindByEmail находит пользователя по email
	FindByEmail(db *gorm.DB, email string) (*models.User, error)

	// FindByEmailOrUsername находит первого пользователя, у которого занят
	// email ИЛИ username. Используется при регистрации для различения
	// "занято оба" / "занят email" / "занят username".
	FindByEmailOrUsername(db *gorm.DB, email, username string) (*models.User, error)

	// CountByField считает ДРУГИХ пользователей (не excludeID) с данным
	// значением поля. field должен быть FieldUsername или FieldEmail.
	CountByField(db *gorm.DB, field, value, excludeID string) (int64, error)

	// Update сохраняет измененную запись пользователя
	Update(db *gorm.DB, user *models.User) error

	// MarkEmailVerified выставляет флаг is_email_verified
	MarkEmailVerified(db *gorm.DB, userID string) error

	// UpdatePassword заменяет хеш пароля
	UpdatePassword(db *gorm.DB, userID, passwordHash string) error
}

type userRepository struct{}

// NewUserRepository создает новый экземпляр UserRepository
func NewUserRepository() UserRepository {
	return &userRepository{}
}

func (r *userRepository) Create(db *gorm.DB, user *models.User) error {
	return db.Create(user).Error
}

func (r *userRepository) FindByID(db *gorm.DB, id string) (*models.User, error) {
	var user models.User
	if err := db.Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(db *gorm.DB, email string) (*models.User, error) {
	var user models.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmailOrUsername(db *gorm.DB, email, username string) (*models.User, error) {
	var user models.User
	err := db.Select("id", "email", "username").
		Where("email = ? OR username = ?", email, username).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) CountByField(db *gorm.DB, field, value, excludeID string) (int64, error) {
	if field != FieldUsername && field != FieldEmail {
		return 0, errors.New("unsupported duplicate-check field: " + field)
	}

	var count int64
	err := db.Model(&models.User{}).
		Where(field+" = ?", value).
		Where("id <> ?", excludeID).
		Count(&count).Error
	return count, err
}

func (r *userRepository) Update(db *gorm.DB, user *models.User) error {
	return db.Save(user).Error
}

func (r *userRepository) MarkEmailVerified(db *gorm.DB, userID string) error {
	result := db.Model(&models.User{}).
		Where("id = ?", userID).
		Update("is_email_verified", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepository) UpdatePassword(db *gorm.DB, userID, passwordHash string) error {
	result := db.Model(&models.User{}).
		Where("id = ?", userID).
		Update("password", passwordHash)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
