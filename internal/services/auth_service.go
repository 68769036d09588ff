package services

import (
	"fmt"
	"math/rand"
	"time"

	"mfs_backend/internal/auth"
	"mfs_backend/internal/email"
	"mfs_backend/internal/logger"
	"mfs_backend/internal/models"
	"mfs_backend/internal/repositories"
	"mfs_backend/internal/services/dto"
	"mfs_backend/pkg/apperrors"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Минимальный интервал между выдачами кода одному пользователю
const otpRequestCooldown = 60 * time.Second

// Срок действия одноразового кода
const otpTTL = 10 * time.Minute

// OtpVerificationResult - итог успешной проверки кода
type OtpVerificationResult struct {
	Verified   bool
	ResetToken string // только для purpose=password_reset
}

type AuthService interface {
	Signup(db *gorm.DB, req *dto.SignupRequest) (*dto.AuthResponse, error)
	Login(db *gorm.DB, req *dto.LoginRequest) (*dto.AuthResponse, error)
	VerifyOtp(db *gorm.DB, userID, code string, purpose models.OtpPurpose) (*OtpVerificationResult, error)
	VerifyOtpForPasswordReset(db *gorm.DB, userEmail, code string) (*dto.PasswordResetVerification, error)
	ResendOtp(db *gorm.DB, userID string) error
	RenewTokens(db *gorm.DB, refreshToken string) (*dto.TokenPair, error)
	RequestPasswordResetOtp(db *gorm.DB, userEmail string) error
	ResetPassword(db *gorm.DB, userID, newPassword string) error
	FindUserByID(db *gorm.DB, userID string) (*models.User, error)
}

type AuthServiceImpl struct {
	userRepo         repositories.UserRepository
	otpRepo          repositories.OtpRepository
	refreshTokenRepo repositories.RefreshTokenRepository
	emailProvider    email.Provider
	jwtSecret        string

	// Источник времени, подменяется в тестах (кулдаун, сроки кодов)
	now func() time.Time
}

func NewAuthService(
	userRepo repositories.UserRepository,
	otpRepo repositories.OtpRepository,
	refreshTokenRepo repositories.RefreshTokenRepository,
	emailProvider email.Provider,
	jwtSecret string,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		userRepo:         userRepo,
		otpRepo:          otpRepo,
		refreshTokenRepo: refreshTokenRepo,
		emailProvider:    emailProvider,
		jwtSecret:        jwtSecret,
		now:              time.Now,
	}
}

// WithClock подменяет источник времени. Для тестов.
func (s *AuthServiceImpl) WithClock(now func() time.Time) *AuthServiceImpl {
	s.now = now
	return s
}

// Signup - регистрация нового пользователя.
// Токены возвращаются синхронно; письмо с кодом и запись кода уходят
// в фоне и не задерживают ответ.
func (s *AuthServiceImpl) Signup(db *gorm.DB, req *dto.SignupRequest) (*dto.AuthResponse, error) {
	// Проверка занятости email/username, с различением в сообщении
	existing, err := s.userRepo.FindByEmailOrUsername(db, req.Email, req.Username)
	if err != nil && !apperrors.Is(err, repositories.ErrUserNotFound) {
		return nil, storageError(err)
	}
	if existing != nil {
		switch {
		case existing.Email == req.Email && existing.Username == req.Username:
			return nil, apperrors.NewConflictError("Both email and username already exist")
		case existing.Email == req.Email:
			return nil, apperrors.NewConflictError("Email already exists")
		default:
			return nil, apperrors.NewConflictError("Username already exists")
		}
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	user := &models.User{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  req.Username,
		Email:     req.Email,
		Password:  hashedPassword,
		Roles:     datatypes.JSONSlice[string](req.Roles),
	}

	if err := s.userRepo.Create(db, user); err != nil {
		return nil, storageError(err)
	}

	accessToken, err := auth.GenerateAccessToken(user, s.jwtSecret)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	refreshToken, err := s.createRefreshToken(db, user.ID)
	if err != nil {
		return nil, storageError(err)
	}

	// Письмо и запись кода не блокируют ответ. Код сохраняется только
	// после успешной отправки: пока письмо в пути, проверить его нельзя.
	go s.sendVerificationCode(db, user)

	isVerified := user.IsEmailVerified
	return &dto.AuthResponse{
		User: dto.UserSummary{
			ID:         user.ID,
			Email:      user.Email,
			Username:   user.Username,
			Roles:      []string(user.Roles),
			Isverified: &isVerified,
		},
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Login - аутентификация по email и паролю
func (s *AuthServiceImpl) Login(db *gorm.DB, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.userRepo.FindByEmail(db, req.Email)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, storageError(err)
	}

	if !auth.CheckPasswordHash(req.Password, user.Password) {
		return nil, apperrors.ErrInvalidPassword
	}

	accessToken, err := auth.GenerateAccessToken(user, s.jwtSecret)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	refreshToken, err := s.createRefreshToken(db, user.ID)
	if err != nil {
		return nil, storageError(err)
	}

	// Ответ логина исторически не содержит isverified (в отличие от signup)
	return &dto.AuthResponse{
		User: dto.UserSummary{
			ID:       user.ID,
			Email:    user.Email,
			Username: user.Username,
			Roles:    []string(user.Roles),
		},
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// VerifyOtp - проверка одноразового кода.
// Успешная проверка гасит совпавший код и все прочие активные коды
// пользователя независимо от их назначения.
func (s *AuthServiceImpl) VerifyOtp(db *gorm.DB, userID, code string, purpose models.OtpPurpose) (*OtpVerificationResult, error) {
	otpRecord, err := s.otpRepo.FindLatestValid(db, userID, s.now())
	if err != nil {
		if apperrors.Is(err, repositories.ErrOtpNotFound) {
			return nil, apperrors.ErrNoValidOtp
		}
		return nil, storageError(err)
	}

	if err := s.validateOtp(otpRecord, code); err != nil {
		return nil, err
	}

	// Гасим совпавший код, затем остальные активные.
	// Транзакции нет: упавший процесс между шагами оставит частичное
	// состояние, атомарность — на уровне отдельного запроса.
	if err := s.otpRepo.Deactivate(db, otpRecord.ID); err != nil {
		return nil, storageError(err)
	}
	if err := s.otpRepo.DeactivateAllForUser(db, userID); err != nil {
		return nil, storageError(err)
	}

	switch purpose {
	case models.OtpPurposeEmailVerification:
		if err := s.userRepo.MarkEmailVerified(db, userID); err != nil {
			return nil, storageError(err)
		}
		return &OtpVerificationResult{Verified: true}, nil

	case models.OtpPurposePasswordReset:
		user, err := s.userRepo.FindByID(db, userID)
		if err != nil {
			if apperrors.Is(err, repositories.ErrUserNotFound) {
				return nil, apperrors.ErrUserNotFound
			}
			return nil, storageError(err)
		}
		resetToken, err := auth.GeneratePasswordResetToken(user, s.jwtSecret)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		return &OtpVerificationResult{Verified: true, ResetToken: resetToken}, nil

	default:
		return nil, apperrors.ErrInvalidOtpPurpose
	}
}

// VerifyOtpForPasswordReset - проверка кода по email (без аутентификации)
func (s *AuthServiceImpl) VerifyOtpForPasswordReset(db *gorm.DB, userEmail, code string) (*dto.PasswordResetVerification, error) {
	user, err := s.userRepo.FindByEmail(db, userEmail)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, storageError(err)
	}

	result, err := s.VerifyOtp(db, user.ID, code, models.OtpPurposePasswordReset)
	if err != nil {
		return nil, err
	}

	return &dto.PasswordResetVerification{
		Verified:   result.Verified,
		UserID:     user.ID,
		ResetToken: result.ResetToken,
		Message:    "OTP verified successfully. You can now reset your password.",
	}, nil
}

// ResendOtp - повторная отправка кода подтверждения email
func (s *AuthServiceImpl) ResendOtp(db *gorm.DB, userID string) error {
	user, err := s.userRepo.FindByID(db, userID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return apperrors.ErrUserNotFound
		}
		return storageError(err)
	}

	if user.IsEmailVerified {
		return apperrors.ErrUserAlreadyVerified
	}

	code, err := s.generateAndSaveOtp(db, userID, models.OtpPurposeEmailVerification)
	if err != nil {
		return err
	}

	if err := s.emailProvider.SendVerificationCode(user.Email, code); err != nil {
		logger.Error("Failed to send verification email", "error", err, "user_id", userID)
		return apperrors.Wrap(err, apperrors.CodeExternalServiceError, "email",
			"Failed to send verification email", 500)
	}

	return nil
}

// RenewTokens - ротация refresh-токена: старый гасится, выдается пара
// новых. Каждый refresh-токен можно погасить ровно один раз.
func (s *AuthServiceImpl) RenewTokens(db *gorm.DB, refreshToken string) (*dto.TokenPair, error) {
	token, err := s.refreshTokenRepo.FindByToken(db, refreshToken)
	if err != nil {
		if apperrors.Is(err, repositories.ErrRefreshTokenNotFound) {
			return nil, apperrors.ErrInvalidRefreshToken
		}
		return nil, storageError(err)
	}

	if s.now().After(token.ExpiresAt) {
		// Истекший токен убираем попутно
		if err := s.refreshTokenRepo.DeleteByToken(db, refreshToken); err != nil {
			logger.Warn("Failed to clean up expired refresh token", "error", err)
		}
		return nil, apperrors.ErrRefreshTokenExpired
	}

	user, err := s.userRepo.FindByID(db, token.UserID)
	if err != nil {
		return nil, apperrors.NewUnauthorizedError("User not found")
	}

	accessToken, err := auth.GenerateAccessToken(user, s.jwtSecret)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	if err := s.refreshTokenRepo.DeleteByToken(db, refreshToken); err != nil {
		return nil, storageError(err)
	}

	newRefreshToken, err := s.createRefreshToken(db, user.ID)
	if err != nil {
		return nil, storageError(err)
	}

	return &dto.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
	}, nil
}

// RequestPasswordResetOtp - первая фаза сброса пароля: код на email
func (s *AuthServiceImpl) RequestPasswordResetOtp(db *gorm.DB, userEmail string) error {
	user, err := s.userRepo.FindByEmail(db, userEmail)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return apperrors.ErrUserNotFound
		}
		return storageError(err)
	}

	code, err := s.generateAndSaveOtp(db, user.ID, models.OtpPurposePasswordReset)
	if err != nil {
		return err
	}

	if err := s.emailProvider.SendPasswordResetCode(user.Email, code); err != nil {
		logger.Error("Failed to send password reset email", "error", err, "user_id", user.ID)
		return apperrors.Wrap(err, apperrors.CodeExternalServiceError, "email",
			"Failed to send password reset email", 500)
	}

	return nil
}

// ResetPassword - финальная фаза сброса: новый хеш и отзыв всех
// refresh-токенов пользователя (принудительный релогин везде)
func (s *AuthServiceImpl) ResetPassword(db *gorm.DB, userID, newPassword string) error {
	hashedPassword, err := auth.HashPassword(newPassword)
	if err != nil {
		return apperrors.InternalError(err)
	}

	if err := s.userRepo.UpdatePassword(db, userID, hashedPassword); err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return apperrors.ErrUserNotFound
		}
		return storageError(err)
	}

	if err := s.refreshTokenRepo.DeleteByUserID(db, userID); err != nil {
		return storageError(err)
	}

	return nil
}

// FindUserByID - чтение пользователя для /me и middleware
func (s *AuthServiceImpl) FindUserByID(db *gorm.DB, userID string) (*models.User, error) {
	user, err := s.userRepo.FindByID(db, userID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, storageError(err)
	}
	return user, nil
}

// --- Helper functions ---

// generateAndSaveOtp выдает новый код: генерация, bcrypt-хеш, запись со
// сроком 10 минут. Не чаще раза в минуту на пользователя; проверка
// кулдауна — чтение-потом-запись без блокировки, конкурирующие запросы
// могут проскочить оба.
func (s *AuthServiceImpl) generateAndSaveOtp(db *gorm.DB, userID string, purpose models.OtpPurpose) (string, error) {
	lastRequest, err := s.otpRepo.FindLatestRequest(db, userID)
	if err != nil && !apperrors.Is(err, repositories.ErrOtpNotFound) {
		return "", storageError(err)
	}
	if lastRequest != nil && s.now().Sub(lastRequest.RequestedAt) < otpRequestCooldown {
		return "", apperrors.ErrOtpRateLimited
	}

	code := generateRandomCode()
	otpHash, err := auth.HashPassword(code)
	if err != nil {
		return "", apperrors.InternalError(err)
	}

	otp := &models.Otp{
		UserID:      userID,
		OtpHash:     otpHash,
		Purpose:     purpose,
		ExpiresAt:   s.now().Add(otpTTL),
		RequestedAt: s.now(),
		IsActive:    true,
	}

	if err := s.otpRepo.Create(db, otp); err != nil {
		return "", storageError(err)
	}

	return code, nil
}

// validateOtp сверяет код с хешем записи
func (s *AuthServiceImpl) validateOtp(otpRecord *models.Otp, code string) error {
	// Недостижимо после фильтра is_active в выборке, но дешево и явно
	if !otpRecord.IsActive {
		return apperrors.ErrOtpAlreadyUsed
	}

	if !auth.CheckPasswordHash(code, otpRecord.OtpHash) {
		return apperrors.ErrInvalidOtp
	}

	return nil
}

// createRefreshToken создает и сохраняет refresh-токен
func (s *AuthServiceImpl) createRefreshToken(db *gorm.DB, userID string) (string, error) {
	refreshToken := uuid.NewString()

	refreshTokenModel := &models.RefreshToken{
		UserID:    userID,
		Token:     refreshToken,
		ExpiresAt: s.now().Add(auth.RefreshTokenTTL),
	}

	if err := s.refreshTokenRepo.Create(db, refreshTokenModel); err != nil {
		return "", err
	}

	return refreshToken, nil
}

// sendVerificationCode - фоновая отправка кода при регистрации.
// Ошибки только логируются: ответ клиенту уже ушел.
func (s *AuthServiceImpl) sendVerificationCode(db *gorm.DB, user *models.User) {
	code := generateRandomCode()

	if err := s.emailProvider.SendVerificationCode(user.Email, code); err != nil {
		logger.Error("Failed to send verification email", "error", err, "user_id", user.ID)
		return
	}
	logger.Info("Verification email sent", "user_id", user.ID)

	// Код в письме сгенерирован до записи, поэтому хешируем и сохраняем
	// именно его, не перегенерируя в generateAndSaveOtp
	otpHash, err := auth.HashPassword(code)
	if err != nil {
		logger.Error("Failed to hash OTP", "error", err, "user_id", user.ID)
		return
	}

	otp := &models.Otp{
		UserID:      user.ID,
		OtpHash:     otpHash,
		Purpose:     models.OtpPurposeEmailVerification,
		ExpiresAt:   s.now().Add(otpTTL),
		RequestedAt: s.now(),
		IsActive:    true,
	}
	if err := s.otpRepo.Create(db, otp); err != nil {
		logger.Error("Failed to save OTP", "error", err, "user_id", user.ID)
		return
	}
	logger.Info("OTP generated and saved", "user_id", user.ID)
}

// generateRandomCode генерирует 4-значный код, равномерно 1000-9999
func generateRandomCode() string {
	return fmt.Sprintf("%d", rand.Intn(9000)+1000)
}
