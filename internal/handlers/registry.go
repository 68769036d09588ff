package handlers

import (
	"mfs_backend/internal/services"
)

// AppHandlers - все обработчики приложения в одном месте
type AppHandlers struct {
	Auth *AuthHandler
	User *UserHandler
}

func NewAppHandlers(sc *services.ServiceContainer, jwtSecret string) *AppHandlers {
	return &AppHandlers{
		Auth: NewAuthHandler(sc.AuthService, jwtSecret),
		User: NewUserHandler(sc.UserService, jwtSecret),
	}
}
