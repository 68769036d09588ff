package handlers

import (
	"net/http"

	"mfs_backend/internal/middleware"
	"mfs_backend/internal/validator"
	"mfs_backend/pkg/apperrors"
	"mfs_backend/pkg/contextkeys"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SuccessResponse - стандартный ответ об успехе
type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// BaseHandler - общая функциональность всех обработчиков
type BaseHandler struct {
	validator *validator.Validator
}

func NewBaseHandler() BaseHandler {
	return BaseHandler{validator: validator.New()}
}

// GetDB достает *gorm.DB, положенный в контекст DBMiddleware
func (h *BaseHandler) GetDB(c *gin.Context) *gorm.DB {
	db, ok := c.Request.Context().Value(contextkeys.DBContextKey).(*gorm.DB)
	if !ok {
		panic("database connection not found in request context")
	}
	return db
}

// BindAndValidate_JSON парсит тело запроса и прогоняет структурную
// валидацию. При ошибке сам пишет 400 и возвращает false.
func (h *BaseHandler) BindAndValidate_JSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Invalid request body"))
		return false
	}

	if err := h.validator.Validate(obj); err != nil {
		var ve *validator.ValidationError
		if apperrors.As(err, &ve) {
			apperrors.HandleError(c, apperrors.ValidationError(ve.First, ve.Errors))
		} else {
			apperrors.HandleError(c, apperrors.InternalError(err))
		}
		return false
	}

	return true
}

// HandleServiceError отдает клиенту ошибку сервисного слоя
func (h *BaseHandler) HandleServiceError(c *gin.Context, err error) {
	apperrors.HandleError(c, err)
}

// CurrentUserID возвращает id пользователя из claims AuthMiddleware.
// При отсутствии сам пишет 401 и возвращает false.
func (h *BaseHandler) CurrentUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		apperrors.HandleError(c, apperrors.NewUnauthorizedError("Unauthorized"))
		return "", false
	}
	id, ok := userID.(string)
	if !ok || id == "" {
		apperrors.HandleError(c, apperrors.NewUnauthorizedError("Unauthorized"))
		return "", false
	}
	return id, true
}

// RespondSuccess пишет единый конверт успешного ответа
func (h *BaseHandler) RespondSuccess(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, SuccessResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// RespondOK - сокращение для 200
func (h *BaseHandler) RespondOK(c *gin.Context, message string, data interface{}) {
	h.RespondSuccess(c, http.StatusOK, message, data)
}
