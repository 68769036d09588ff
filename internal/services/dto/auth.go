package dto

// SignupRequest - запрос регистрации
type SignupRequest struct {
	FirstName string   `json:"firstName" validate:"required,min=2"`
	LastName  string   `json:"lastName" validate:"required,min=2"`
	Username  string   `json:"username" validate:"required,min=3"`
	Email     string   `json:"email" validate:"required,email"`
	Password  string   `json:"password" validate:"required,password"`
	Roles     []string `json:"roles" validate:"required"`
}

// LoginRequest - запрос входа
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// VerifyOtpRequest - запрос проверки кода подтверждения
type VerifyOtpRequest struct {
	Code string `json:"code" validate:"required,len=4"`
}

// RefreshTokenRequest - запрос ротации refresh-токена.
// Отсутствие токена обрабатывается хендлером (400), не схемой.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// PasswordResetRequestInput - запрос отправки кода сброса пароля
type PasswordResetRequestInput struct {
	Email string `json:"email" validate:"required,email"`
}

// VerifyPasswordResetOtpRequest - проверка кода сброса пароля по email
type VerifyPasswordResetOtpRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=4"`
}

// ResetPasswordRequest - установка нового пароля по reset-токену
type ResetPasswordRequest struct {
	NewPassword     string `json:"newPassword" validate:"required,password"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=NewPassword"`
}

// UserSummary - краткая информация о пользователе в ответах signup/login.
// Isverified — указатель: ответ регистрации содержит поле, ответ логина
// исторически его опускает.
type UserSummary struct {
	ID         string   `json:"id"`
	Email      string   `json:"email"`
	Username   string   `json:"username"`
	Roles      []string `json:"roles"`
	Isverified *bool    `json:"isverified,omitempty"`
}

// AuthResponse - ответ signup/login: пользователь и пара токенов
type AuthResponse struct {
	User         UserSummary `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
}

// TokenPair - ответ ротации refresh-токена
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// PasswordResetVerification - результат проверки кода сброса пароля
type PasswordResetVerification struct {
	Verified   bool   `json:"verified"`
	UserID     string `json:"userId"`
	ResetToken string `json:"resetToken"`
	Message    string `json:"message"`
}
