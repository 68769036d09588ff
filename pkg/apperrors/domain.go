package apperrors

import (
	"net/http"
)

/*
Фабрики и предопределенные переменные для ошибок домена
аутентификации и учетных записей.
*/

// ErrNotFound - фабрика для ошибки "не найдено" (404)
// Используется, когда ошибка репозитория (типа gorm.ErrRecordNotFound)
// должна быть преобразована в AppError.
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

// DatabaseError оборачивает ошибку уровня хранилища.
// Разрыв соединения отражаем как 500 "Unable to reach the database server".
func DatabaseError(err error) *AppError {
	return Wrap(err, CodeDatabaseError, "database", "Unable to reach the database server", http.StatusInternalServerError)
}

// --- Учетные записи ---

// ErrInvalidCredentials - email не найден при логине
var ErrInvalidCredentials = New(
	CodeInvalidCredentials,
	"auth",
	"Invalid credentials",
	http.StatusUnauthorized,
)

// ErrInvalidPassword - пароль не совпал с хешем
var ErrInvalidPassword = New(
	CodeInvalidCredentials,
	"auth",
	"Invalid Password",
	http.StatusUnauthorized,
)

// ErrUserNotFound - пользователь не найден
var ErrUserNotFound = New(
	CodeNotFound,
	"user",
	"User not found",
	http.StatusNotFound,
)

// ErrUserAlreadyVerified - повторный запрос кода для уже верифицированного email
var ErrUserAlreadyVerified = New(
	CodeValidationFailed,
	"user",
	"User is already verified",
	http.StatusBadRequest,
)

// --- Одноразовые коды ---

// ErrNoValidOtp - активного неистекшего кода у пользователя нет
var ErrNoValidOtp = New(
	CodeInvalidOtp,
	"otp",
	"No valid OTP found",
	http.StatusBadRequest,
)

// ErrOtpAlreadyUsed - код уже был погашен
var ErrOtpAlreadyUsed = New(
	CodeInvalidOtp,
	"otp",
	"OTP has already been used",
	http.StatusBadRequest,
)

// ErrInvalidOtp - код не совпал с хешем
var ErrInvalidOtp = New(
	CodeInvalidOtp,
	"otp",
	"Invalid OTP",
	http.StatusBadRequest,
)

// ErrInvalidOtpPurpose - неизвестное назначение кода
var ErrInvalidOtpPurpose = New(
	CodeInvalidOtp,
	"otp",
	"Invalid OTP purpose",
	http.StatusBadRequest,
)

// ErrOtpRateLimited - не чаще одного кода в минуту на пользователя
var ErrOtpRateLimited = New(
	CodeRateLimited,
	"otp",
	"You can only request a new OTP once per minute",
	http.StatusTooManyRequests,
)

// --- Refresh-токены ---

// ErrInvalidRefreshToken - токен не найден в хранилище
var ErrInvalidRefreshToken = New(
	CodeInvalidToken,
	"auth",
	"Invalid refresh token",
	http.StatusUnauthorized,
)

// ErrRefreshTokenExpired - токен найден, но истек (и удален)
var ErrRefreshTokenExpired = New(
	CodeTokenExpired,
	"auth",
	"Refresh token expired",
	http.StatusUnauthorized,
)

// --- Токены сброса пароля ---

// ErrInvalidResetToken - подпись/срок/назначение reset-токена не прошли проверку
var ErrInvalidResetToken = New(
	CodeInvalidToken,
	"auth",
	"Please provide a valid password reset token",
	http.StatusUnauthorized,
)
