package services

import (
	"mfs_backend/internal/config"
	"mfs_backend/internal/email"
	"mfs_backend/internal/repositories"
)

// ServiceContainer - все сервисы приложения в одном месте
type ServiceContainer struct {
	AuthService AuthService
	UserService UserService
}

// NewServiceContainer собирает сервисы с их зависимостями
func NewServiceContainer(cfg *config.Config, emailProvider email.Provider) *ServiceContainer {
	userRepo := repositories.NewUserRepository()
	otpRepo := repositories.NewOtpRepository()
	refreshTokenRepo := repositories.NewRefreshTokenRepository()

	return &ServiceContainer{
		AuthService: NewAuthService(userRepo, otpRepo, refreshTokenRepo, emailProvider, cfg.JWT.Secret),
		UserService: NewUserService(userRepo, refreshTokenRepo, cfg.JWT.Secret),
	}
}
