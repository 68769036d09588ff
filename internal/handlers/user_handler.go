package handlers

import (
	"mfs_backend/internal/middleware"
	"mfs_backend/internal/services"
	"mfs_backend/internal/services/dto"
	"mfs_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// UserHandler - HTTP-слой управления профилем
type UserHandler struct {
	BaseHandler
	userService services.UserService
	jwtSecret   string
}

func NewUserHandler(userService services.UserService, jwtSecret string) *UserHandler {
	return &UserHandler{
		BaseHandler: NewBaseHandler(),
		userService: userService,
		jwtSecret:   jwtSecret,
	}
}

// RegisterRoutes вешает маршруты /user на переданную группу
func (h *UserHandler) RegisterRoutes(rg *gin.RouterGroup) {
	userGroup := rg.Group("/user", middleware.AuthMiddleware(h.jwtSecret))
	{
		userGroup.PATCH("/update", h.UpdateUser)
	}
}

// UpdateUser - PATCH /api/user/update (требует access-токен)
func (h *UserHandler) UpdateUser(c *gin.Context) {
	userID, ok := h.CurrentUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateUserRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	if req.IsEmpty() {
		h.HandleServiceError(c, apperrors.NewBadRequestError("At least one field must be provided"))
		return
	}

	result, err := h.userService.UpdateUser(h.GetDB(c), userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	h.RespondOK(c, "User information updated successfully", result)
}
