package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mfs_backend/internal/config"
	"mfs_backend/internal/email"
	"mfs_backend/internal/handlers"
	"mfs_backend/internal/logger"
	"mfs_backend/internal/middleware"
	"mfs_backend/internal/models"
	"mfs_backend/internal/repositories"
	"mfs_backend/internal/routes"
	"mfs_backend/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Run поднимает приложение целиком: конфиг, база, роутер, сервер
func Run() error {
	cfg := config.GetConfig()

	logger.Init(cfg.Server.Env)
	logger.Info("Starting server", "env", cfg.Server.Env, "port", cfg.Server.Port)

	// TranslateError сводит ошибки драйвера к сентинелам gorm
	// (ErrDuplicatedKey и др.), на которые опирается сервисный слой
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{TranslateError: true})
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	emailProvider, err := buildEmailProvider(cfg)
	if err != nil {
		return err
	}

	router := SetupRouter(cfg, db, emailProvider)

	cleanupStop := make(chan struct{})
	defer close(cleanupStop)
	go refreshTokenCleanupLoop(db, cleanupStop)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Info("Shutting down server", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}

// SetupRouter собирает gin-роутер с полным набором middleware и
// маршрутов. Вынесен отдельно, чтобы тесты могли поднять роутер
// без сервера.
func SetupRouter(cfg *config.Config, db *gorm.DB, emailProvider email.Provider) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.DBMiddleware(db))

	serviceContainer := services.NewServiceContainer(cfg, emailProvider)
	appHandlers := handlers.NewAppHandlers(serviceContainer, cfg.JWT.Secret)

	routes.SetupRoutes(r, appHandlers)
	return r
}

// Migrate прогоняет авто-миграции всех моделей
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Otp{},
		&models.RefreshToken{},
	)
}

// refreshTokenCleanupLoop периодически подчищает истекшие
// refresh-токены. Истекшие токены также удаляются лениво при
// предъявлении, цикл добирает те, что больше не предъявляются.
func refreshTokenCleanupLoop(db *gorm.DB, stop <-chan struct{}) {
	repo := repositories.NewRefreshTokenRepository()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := repo.CleanExpiredRefreshTokens(db); err != nil {
				logger.Warn("Failed to clean expired refresh tokens", "error", err)
			}
		case <-stop:
			return
		}
	}
}

// buildEmailProvider выбирает SMTP либо лог-заглушку, когда SMTP не
// настроен (локальная разработка)
func buildEmailProvider(cfg *config.Config) (email.Provider, error) {
	if cfg.Email.SMTPHost == "" {
		logger.Warn("SMTP is not configured, emails will only be logged")
		return email.NewLogProvider(), nil
	}
	return email.NewSMTPProvider(cfg)
}
