package routes

import (
	"net/http"
	"time"

	"mfs_backend/internal/handlers"

	"github.com/gin-gonic/gin"
)

// SetupRoutes собирает весь HTTP-интерфейс приложения
func SetupRoutes(r *gin.Engine, h *handlers.AppHandlers) {
	r.GET("/", healthCheck)

	api := r.Group("/api")
	h.Auth.RegisterRoutes(api)
	h.User.RegisterRoutes(api)
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
