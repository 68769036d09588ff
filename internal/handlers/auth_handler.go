package handlers

import (
	"net/http"

	"mfs_backend/internal/auth"
	"mfs_backend/internal/middleware"
	"mfs_backend/internal/models"
	"mfs_backend/internal/services"
	"mfs_backend/internal/services/dto"
	"mfs_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// AuthHandler - HTTP-слой аутентификации
type AuthHandler struct {
	BaseHandler
	authService services.AuthService
	jwtSecret   string
}

func NewAuthHandler(authService services.AuthService, jwtSecret string) *AuthHandler {
	return &AuthHandler{
		BaseHandler: NewBaseHandler(),
		authService: authService,
		jwtSecret:   jwtSecret,
	}
}

// RegisterRoutes вешает маршруты /auth на переданную группу
func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	authGroup := rg.Group("/auth")
	{
		authGroup.POST("/signup", h.Signup)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/refresh-token", h.RefreshToken)

		authGroup.POST("/reset-password/request-otp", h.RequestPasswordResetOtp)
		authGroup.POST("/reset-password/verify-otp", h.VerifyPasswordResetOtp)
		authGroup.POST("/reset-password/reset", h.ResetPassword)
	}

	protected := rg.Group("/auth", middleware.AuthMiddleware(h.jwtSecret))
	{
		protected.POST("/verify-otp", h.VerifyOtp)
		protected.GET("/resend-otp", h.ResendOtp)
		protected.GET("/me", h.GetCurrentUser)
	}
}

// Signup - POST /api/auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	result, err := h.authService.Signup(h.GetDB(c), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	h.RespondSuccess(c, http.StatusCreated,
		"User registered successfully. Check your email for verification code.", result)
}

// Login - POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	result, err := h.authService.Login(h.GetDB(c), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	h.RespondOK(c, "Login successful", result)
}

// VerifyOtp - POST /api/auth/verify-otp (требует access-токен)
func (h *AuthHandler) VerifyOtp(c *gin.Context) {
	userID, ok := h.CurrentUserID(c)
	if !ok {
		return
	}

	var req dto.VerifyOtpRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	result, err := h.authService.VerifyOtp(h.GetDB(c), userID, req.Code, models.OtpPurposeEmailVerification)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	// Исторический формат ответа: isVerified на верхнем уровне
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "OTP verified successfully",
		"isVerified": result.Verified,
	})
}

// ResendOtp - GET /api/auth/resend-otp (требует access-токен)
func (h *AuthHandler) ResendOtp(c *gin.Context) {
	userID, ok := h.CurrentUserID(c)
	if !ok {
		return
	}

	if err := h.authService.ResendOtp(h.GetDB(c), userID); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	h.RespondOK(c, "A new verification code has been sent to your email", nil)
}

// RefreshToken - POST /api/auth/refresh-token
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req dto.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		h.HandleServiceError(c, apperrors.NewBadRequestError("Refresh token is required"))
		return
	}

	result, err := h.authService.RenewTokens(h.GetDB(c), req.RefreshToken)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	h.RespondOK(c, "Tokens refreshed successfully", result)
}

// GetCurrentUser - GET /api/auth/me (требует access-токен)
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, ok := h.CurrentUserID(c)
	if !ok {
		return
	}

	user, err := h.authService.FindUserByID(h.GetDB(c), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	// Пароль скрыт json:"-" на модели
	h.RespondSuccess(c, http.StatusOK, "", user)
}

// RequestPasswordResetOtp - POST /api/auth/reset-password/request-otp
func (h *AuthHandler) RequestPasswordResetOtp(c *gin.Context) {
	var req dto.PasswordResetRequestInput
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	if err := h.authService.RequestPasswordResetOtp(h.GetDB(c), req.Email); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	h.RespondOK(c, "Password reset verification code sent to your email", nil)
}

// VerifyPasswordResetOtp - POST /api/auth/reset-password/verify-otp
func (h *AuthHandler) VerifyPasswordResetOtp(c *gin.Context) {
	var req dto.VerifyPasswordResetOtpRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	result, err := h.authService.VerifyOtpForPasswordReset(h.GetDB(c), req.Email, req.Code)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	h.RespondOK(c, "OTP verified successfully", result)
}

// ResetPassword - POST /api/auth/reset-password/reset.
// Авторизуется отдельным reset-токеном из verify-otp, не access-токеном.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	tokenString, ok := middleware.ExtractBearerToken(c)
	if !ok {
		h.HandleServiceError(c, apperrors.NewUnauthorizedError("Authentication token is required"))
		return
	}

	claims, err := auth.ParsePasswordResetToken(tokenString, h.jwtSecret)
	if err != nil {
		h.HandleServiceError(c, apperrors.ErrInvalidResetToken)
		return
	}

	var req dto.ResetPasswordRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	if err := h.authService.ResetPassword(h.GetDB(c), claims.ID, req.NewPassword); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	h.RespondOK(c, "Password reset successfully", nil)
}
