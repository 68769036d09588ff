package services

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"mfs_backend/internal/auth"
	"mfs_backend/internal/models"
	"mfs_backend/internal/repositories"
	"mfs_backend/internal/services/dto"
	"mfs_backend/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// --- Test infrastructure ---

type sentEmail struct {
	To   string
	Code string
}

// fakeEmailProvider запоминает отправленные коды вместо SMTP
type fakeEmailProvider struct {
	mu                sync.Mutex
	verificationSends []sentEmail
	resetSends        []sentEmail
	failSend          bool
}

func (f *fakeEmailProvider) SendVerificationCode(to, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSend {
		return fmt.Errorf("smtp unavailable")
	}
	f.verificationSends = append(f.verificationSends, sentEmail{To: to, Code: code})
	return nil
}

func (f *fakeEmailProvider) SendPasswordResetCode(to, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSend {
		return fmt.Errorf("smtp unavailable")
	}
	f.resetSends = append(f.resetSends, sentEmail{To: to, Code: code})
	return nil
}

func (f *fakeEmailProvider) lastVerificationCode() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.verificationSends) == 0 {
		return "", false
	}
	return f.verificationSends[len(f.verificationSends)-1].Code, true
}

func (f *fakeEmailProvider) lastResetCode() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.resetSends) == 0 {
		return "", false
	}
	return f.resetSends[len(f.resetSends)-1].Code, true
}

// testClock - управляемый источник времени для проверок кулдауна и сроков
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Otp{}, &models.RefreshToken{}))
	return db
}

const testJWTSecret = "test-secret"

func newTestAuthService(t *testing.T) (*AuthServiceImpl, *gorm.DB, *fakeEmailProvider, *testClock) {
	t.Helper()

	db := setupTestDB(t)
	emailProvider := &fakeEmailProvider{}
	clock := newTestClock()

	svc := NewAuthService(
		repositories.NewUserRepository(),
		repositories.NewOtpRepository(),
		repositories.NewRefreshTokenRepository(),
		emailProvider,
		testJWTSecret,
	).WithClock(clock.Now)

	return svc, db, emailProvider, clock
}

func signupRequest(email, username string) *dto.SignupRequest {
	return &dto.SignupRequest{
		FirstName: "Test",
		LastName:  "User",
		Username:  username,
		Email:     email,
		Password:  "Password1",
		Roles:     []string{"freelancer"},
	}
}

func requireAppError(t *testing.T, err error, httpCode int, message string) {
	t.Helper()
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, httpCode, appErr.HTTPCode)
	assert.Equal(t, message, appErr.Message)
}

// issueOtp выдает код напрямую через сервисный помощник, минуя почту
func issueOtp(t *testing.T, svc *AuthServiceImpl, db *gorm.DB, userID string, purpose models.OtpPurpose) string {
	t.Helper()
	code, err := svc.generateAndSaveOtp(db, userID, purpose)
	require.NoError(t, err)
	return code
}

func countActiveOtps(t *testing.T, db *gorm.DB, userID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Otp{}).
		Where("user_id = ? AND is_active = ?", userID, true).Count(&n).Error)
	return n
}

// --- Signup ---

func TestSignup_Success(t *testing.T) {
	svc, db, emailProvider, _ := newTestAuthService(t)

	resp, err := svc.Signup(db, signupRequest("new@example.com", "newuser"))
	require.NoError(t, err)

	assert.NotEmpty(t, resp.User.ID)
	assert.Equal(t, "new@example.com", resp.User.Email)
	assert.Equal(t, "newuser", resp.User.Username)
	assert.Equal(t, []string{"freelancer"}, resp.User.Roles)
	require.NotNil(t, resp.User.Isverified)
	assert.False(t, *resp.User.Isverified)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)

	// Пароль в базе захеширован
	var user models.User
	require.NoError(t, db.First(&user, "id = ?", resp.User.ID).Error)
	assert.NotEqual(t, "Password1", user.Password)
	assert.True(t, auth.CheckPasswordHash("Password1", user.Password))
	assert.False(t, user.IsEmailVerified)

	// Refresh-токен сохранен
	var tokenCount int64
	require.NoError(t, db.Model(&models.RefreshToken{}).
		Where("user_id = ?", resp.User.ID).Count(&tokenCount).Error)
	assert.EqualValues(t, 1, tokenCount)

	// Фоновая отправка: письмо уходит, затем код попадает в базу
	require.Eventually(t, func() bool {
		return countActiveOtps(t, db, resp.User.ID) == 1
	}, 2*time.Second, 10*time.Millisecond)

	code, ok := emailProvider.lastVerificationCode()
	require.True(t, ok)
	assert.Len(t, code, 4)
}

func TestSignup_UnverifiedGetsShortLivedAccessToken(t *testing.T) {
	svc, db, _, _ := newTestAuthService(t)

	resp, err := svc.Signup(db, signupRequest("short@example.com", "shortlived"))
	require.NoError(t, err)

	claims, err := auth.ParseAccessToken(resp.AccessToken, testJWTSecret)
	require.NoError(t, err)
	assert.False(t, claims.IsVerified)

	ttl := claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time)
	assert.Equal(t, auth.AccessTokenTTLUnverified, ttl)
}

func TestSignup_DuplicateConflicts(t *testing.T) {
	svc, db, _, _ := newTestAuthService(t)

	_, err := svc.Signup(db, signupRequest("taken@example.com", "takenuser"))
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		username string
		message  string
	}{
		{"both taken", "taken@example.com", "takenuser", "Both email and username already exist"},
		{"email taken", "taken@example.com", "otheruser", "Email already exists"},
		{"username taken", "other@example.com", "takenuser", "Username already exists"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Signup(db, signupRequest(tt.email, tt.username))
			requireAppError(t, err, 409, tt.message)
		})
	}
}

// --- Login ---

func TestLogin(t *testing.T) {
	svc, db, _, _ := newTestAuthService(t)

	_, err := svc.Signup(db, signupRequest("login@example.com", "loginuser"))
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		resp, err := svc.Login(db, &dto.LoginRequest{Email: "login@example.com", Password: "Password1"})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEmpty(t, resp.RefreshToken)
		// В ответе логина нет флага isverified
		assert.Nil(t, resp.User.Isverified)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(db, &dto.LoginRequest{Email: "nobody@example.com", Password: "Password1"})
		requireAppError(t, err, 401, "Invalid credentials")
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(db, &dto.LoginRequest{Email: "login@example.com", Password: "Wrong1234"})
		requireAppError(t, err, 401, "Invalid Password")
	})
}

// --- OTP issuance and cooldown ---

func TestOtpCooldown(t *testing.T) {
	svc, db, _, clock := newTestAuthService(t)

	resp, err := svc.Signup(db, signupRequest("cool@example.com", "cooluser"))
	require.NoError(t, err)
	userID := resp.User.ID

	_ = issueOtp(t, svc, db, userID, models.OtpPurposeEmailVerification)

	// Повторный запрос раньше минуты отклоняется
	clock.Advance(30 * time.Second)
	_, err = svc.generateAndSaveOtp(db, userID, models.OtpPurposeEmailVerification)
	requireAppError(t, err, 429, "You can only request a new OTP once per minute")

	// Кулдаун общий для всех назначений
	_, err = svc.generateAndSaveOtp(db, userID, models.OtpPurposePasswordReset)
	requireAppError(t, err, 429, "You can only request a new OTP once per minute")

	// Спустя минуту снова можно
	clock.Advance(31 * time.Second)
	_, err = svc.generateAndSaveOtp(db, userID, models.OtpPurposeEmailVerification)
	require.NoError(t, err)
}

func TestOtpCodeFormat(t *testing.T) {
	for i := 0; i < 100; i++ {
		code := generateRandomCode()
		require.Len(t, code, 4)
		require.GreaterOrEqual(t, code, "1000")
		require.LessOrEqual(t, code, "9999")
	}
}

// --- OTP verification ---

func TestVerifyOtp_EmailVerification(t *testing.T) {
	svc, db, _, _ := newTestAuthService(t)

	resp, err := svc.Signup(db, signupRequest("verify@example.com", "verifyuser"))
	require.NoError(t, err)
	userID := resp.User.ID

	code := issueOtp(t, svc, db, userID, models.OtpPurposeEmailVerification)

	result, err := svc.VerifyOtp(db, userID, code, models.OtpPurposeEmailVerification)
	require.NoError(t, err)
	assert.True(t, result.Verified)

	var user models.User
	require.NoError(t, db.First(&user, "id = ?", userID).Error)
	assert.True(t, user.IsEmailVerified)
}

func TestVerifyOtp_WrongCode(t *testing.T) {
	svc, db, _, _ := newTestAuthService(t)

	resp, err := svc.Signup(db, signupRequest("wrong@example.com", "wrongcode"))
	require.NoError(t, err)

	code := issueOtp(t, svc, db, resp.User.ID, models.OtpPurposeEmailVerification)
	badCode := "1000"
	if code == badCode {
		badCode = "1001"
	}

	_, err = svc.VerifyOtp(db, resp.User.ID, badCode, models.OtpPurposeEmailVerification)
	requireAppError(t, err, 400, "Invalid OTP")

	// Неудачная попытка не гасит код
	assert.EqualValues(t, 1, countActiveOtps(t, db, resp.User.ID))
}

func TestVerifyOtp_NoValidOtp(t *testing.T) {
	svc, db, _, _ := newTestAuthService(t)

	resp, err := svc.Signup(db, signupRequest("none@example.com", "nootp"))
	require.NoError(t, err)

	_, err = svc.VerifyOtp(db, resp.User.ID, "1234", models.OtpPurposeEmailVerification)
	requireAppError(t, err, 400, "No valid OTP found")
}

func TestVerifyOtp_ExpiredCode(t *testing.T) {
	svc, db, _, clock := newTestAuthService(t)

	resp, err := svc.Signup(db, signupRequest("expired@example.com", "expireduser"))
	require.NoError(t, err)

	code := issueOtp(t, svc, db, resp.User.ID, models.OtpPurposeEmailVerification)

	clock.Advance(11 * time.Minute)
	_, err = svc.VerifyOtp(db, resp.User.ID, code, models.OtpPurposeEmailVerification)
	requireAppError(t, err, 400, "No valid OTP found")
}

func TestVerifyOtp_SingleUseAndSiblingInvalidation(t *testing.T) {
	svc, db, _, clock := newTestAuthService(t)

	resp, err := svc.Signup(db, signupRequest("single@example.com", "singleuse"))
	require.NoError(t, err)
	userID := resp.User.ID

	// Два активных кода с разными назначениями
	_ = issueOtp(t, svc, db, userID, models.OtpPurposePasswordReset)
	clock.Advance(61 * time.Second)
	code := issueOtp(t, svc, db, userID, models.OtpPurposeEmailVerification)
	require.EqualValues(t, 2, countActiveOtps(t, db, userID))

	_, err = svc.VerifyOtp(db, userID, code, models.OtpPurposeEmailVerification)
	require.NoError(t, err)

	// Успешная проверка гасит все активные коды пользователя
	assert.EqualValues(t, 0, countActiveOtps(t, db, userID))

	// Повторное использование невозможно
	_, err = svc.VerifyOtp(db, userID, code, models.OtpPurposeEmailVerification)
	requireAppError(t, err, 400, "No valid OTP found")
}

func TestVerifyOtpForPasswordReset_UnknownEmail(t *testing.T) {
	svc, db, _, _ := newTestAuthService(t)

	_, err := svc.VerifyOtpForPasswordReset(db, "ghost@example.com", "1234")
	requireAppError(t, err, 404, "User not found")
}

// --- Resend ---

func TestResendOtp(t *testing.T) {
	svc, db, emailProvider, clock := newTestAuthService(t)

	resp, err := svc.Signup(db, signupRequest("resend@example.com", "resenduser"))
	require.NoError(t, err)
	userID := resp.User.ID

	// Ждем фоновый код от signup, чтобы кулдаун был детерминированным
	require.Eventually(t, func() bool {
		return countActiveOtps(t, db, userID) == 1
	}, 2*time.Second, 10*time.Millisecond)

	clock.Advance(61 * time.Second)
	require.NoError(t, svc.ResendOtp(db, userID))

	code, ok := emailProvider.lastVerificationCode()
	require.True(t, ok)

	_, err = svc.VerifyOtp(db, userID, code, models.OtpPurposeEmailVerification)
	require.NoError(t, err)

	// Подтвержденному пользователю код не выдается
	err = svc.ResendOtp(db, userID)
	requireAppError(t, err, 400, "User is already verified")
}

// --- Refresh rotation ---

func TestRenewTokens_Rotation(t *testing.T) {
	svc, db, _, _ := newTestAuthService(t)

	resp, err := svc.Signup(db, signupRequest("renew@example.com", "renewuser"))
	require.NoError(t, err)

	pair, err := svc.RenewTokens(db, resp.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, resp.RefreshToken, pair.RefreshToken)

	// Предъявленный токен погашен, повторная ротация отклоняется
	_, err = svc.RenewTokens(db, resp.RefreshToken)
	requireAppError(t, err, 401, "Invalid refresh token")

	// Новый токен рабочий
	_, err = svc.RenewTokens(db, pair.RefreshToken)
	require.NoError(t, err)
}

func TestRenewTokens_Expired(t *testing.T) {
	svc, db, _, clock := newTestAuthService(t)

	resp, err := svc.Signup(db, signupRequest("stale@example.com", "staleuser"))
	require.NoError(t, err)

	clock.Advance(auth.RefreshTokenTTL + time.Hour)

	_, err = svc.RenewTokens(db, resp.RefreshToken)
	requireAppError(t, err, 401, "Refresh token expired")

	// Истекший токен удален попутно
	var count int64
	require.NoError(t, db.Model(&models.RefreshToken{}).
		Where("token = ?", resp.RefreshToken).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestRenewTokens_Unknown(t *testing.T) {
	svc, db, _, _ := newTestAuthService(t)

	_, err := svc.RenewTokens(db, uuid.NewString())
	requireAppError(t, err, 401, "Invalid refresh token")
}

// --- Password reset ---

func TestPasswordResetFlow(t *testing.T) {
	svc, db, emailProvider, clock := newTestAuthService(t)

	resp, err := svc.Signup(db, signupRequest("reset@example.com", "resetuser"))
	require.NoError(t, err)
	userID := resp.User.ID

	require.Eventually(t, func() bool {
		return countActiveOtps(t, db, userID) == 1
	}, 2*time.Second, 10*time.Millisecond)
	clock.Advance(61 * time.Second)

	require.NoError(t, svc.RequestPasswordResetOtp(db, "reset@example.com"))
	code, ok := emailProvider.lastResetCode()
	require.True(t, ok)

	verification, err := svc.VerifyOtpForPasswordReset(db, "reset@example.com", code)
	require.NoError(t, err)
	assert.True(t, verification.Verified)
	assert.Equal(t, userID, verification.UserID)
	require.NotEmpty(t, verification.ResetToken)

	claims, err := auth.ParsePasswordResetToken(verification.ResetToken, testJWTSecret)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.ID)

	require.NoError(t, svc.ResetPassword(db, claims.ID, "NewPassword1"))

	// Старый пароль больше не подходит, новый работает
	_, err = svc.Login(db, &dto.LoginRequest{Email: "reset@example.com", Password: "Password1"})
	requireAppError(t, err, 401, "Invalid Password")
	_, err = svc.Login(db, &dto.LoginRequest{Email: "reset@example.com", Password: "NewPassword1"})
	require.NoError(t, err)
}

func TestResetPassword_RevokesAllRefreshTokens(t *testing.T) {
	svc, db, _, _ := newTestAuthService(t)

	resp, err := svc.Signup(db, signupRequest("revoke@example.com", "revokeuser"))
	require.NoError(t, err)
	userID := resp.User.ID

	// Несколько сессий
	_, err = svc.Login(db, &dto.LoginRequest{Email: "revoke@example.com", Password: "Password1"})
	require.NoError(t, err)

	var before int64
	require.NoError(t, db.Model(&models.RefreshToken{}).
		Where("user_id = ?", userID).Count(&before).Error)
	require.EqualValues(t, 2, before)

	require.NoError(t, svc.ResetPassword(db, userID, "NewPassword1"))

	var after int64
	require.NoError(t, db.Model(&models.RefreshToken{}).
		Where("user_id = ?", userID).Count(&after).Error)
	assert.EqualValues(t, 0, after)

	_, err = svc.RenewTokens(db, resp.RefreshToken)
	requireAppError(t, err, 401, "Invalid refresh token")
}

// --- Storage error taxonomy ---

func TestLogin_DatabaseUnreachable(t *testing.T) {
	svc, db, _, _ := newTestAuthService(t)

	_, err := svc.Signup(db, signupRequest("db@example.com", "dbuser"))
	require.NoError(t, err)

	// Потеря таблицы моделирует отказ хранилища
	require.NoError(t, db.Migrator().DropTable(&models.User{}))

	_, err = svc.Login(db, &dto.LoginRequest{Email: "db@example.com", Password: "Password1"})
	requireAppError(t, err, 500, "Unable to reach the database server")
}

func TestStorageError_DuplicateKey(t *testing.T) {
	_, db, _, _ := newTestAuthService(t)

	first := &models.User{
		FirstName: "Test", LastName: "User",
		Username: "race1", Email: "race@example.com", Password: "x",
	}
	require.NoError(t, db.Create(first).Error)

	// Вставка в обход проверки занятости: так выглядит проигранная
	// гонка двух одновременных регистраций
	dup := &models.User{
		FirstName: "Test", LastName: "User",
		Username: "race2", Email: "race@example.com", Password: "x",
	}
	err := db.Create(dup).Error
	require.Error(t, err)

	appErr := storageError(err)
	assert.Equal(t, 400, appErr.HTTPCode)
	assert.Contains(t, appErr.Message, "already taken")
}

func TestStorageError_PassesThroughAppErrors(t *testing.T) {
	appErr := storageError(apperrors.ErrUserNotFound)
	assert.Equal(t, apperrors.ErrUserNotFound, appErr)
}

func TestRequestPasswordResetOtp_UnknownEmail(t *testing.T) {
	svc, db, _, _ := newTestAuthService(t)

	err := svc.RequestPasswordResetOtp(db, "ghost@example.com")
	requireAppError(t, err, 404, "User not found")
}
