package dto

import "mfs_backend/internal/models"

// UpdateUserRequest - частичное обновление пользователя.
// Указатели отличают "поле не передано" от "передано пустым".
type UpdateUserRequest struct {
	FirstName *string  `json:"firstName" validate:"omitempty,min=2"`
	LastName  *string  `json:"lastName" validate:"omitempty,min=2"`
	Username  *string  `json:"username" validate:"omitempty,min=3"`
	Email     *string  `json:"email" validate:"omitempty,email"`
	Password  *string  `json:"password" validate:"omitempty,password"`
	Roles     []string `json:"roles" validate:"omitempty"`
}

// IsEmpty сообщает, что ни одно поле не передано
func (r *UpdateUserRequest) IsEmpty() bool {
	return r.FirstName == nil && r.LastName == nil && r.Username == nil &&
		r.Email == nil && r.Password == nil && r.Roles == nil
}

// UpdateUserResponse - результат обновления. Токены присутствуют только
// когда изменился набор ролей (role-клеймы зашиты в access-токен).
type UpdateUserResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"accessToken,omitempty"`
	RefreshToken string       `json:"refreshToken,omitempty"`
	Message      string       `json:"message,omitempty"`
}
