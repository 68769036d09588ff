package services

import (
	"sort"
	"time"

	"mfs_backend/internal/auth"
	"mfs_backend/internal/models"
	"mfs_backend/internal/repositories"
	"mfs_backend/internal/services/dto"
	"mfs_backend/pkg/apperrors"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type UserService interface {
	UpdateUser(db *gorm.DB, userID string, req *dto.UpdateUserRequest) (*dto.UpdateUserResponse, error)
	GetUserByID(db *gorm.DB, userID string) (*models.User, error)
}

type UserServiceImpl struct {
	userRepo         repositories.UserRepository
	refreshTokenRepo repositories.RefreshTokenRepository
	jwtSecret        string

	now func() time.Time
}

func NewUserService(
	userRepo repositories.UserRepository,
	refreshTokenRepo repositories.RefreshTokenRepository,
	jwtSecret string,
) *UserServiceImpl {
	return &UserServiceImpl{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		jwtSecret:        jwtSecret,
		now:              time.Now,
	}
}

// WithClock подменяет источник времени в тестах
func (s *UserServiceImpl) WithClock(now func() time.Time) *UserServiceImpl {
	s.now = now
	return s
}

// UpdateUser - частичное обновление профиля. Занятость нового email и
// username проверяется параллельно; при отказе любой из проверок
// профиль не меняется. Смена ролей перевыпускает пару токенов, чтобы
// клиент не жил со старыми ролями в access-токене.
func (s *UserServiceImpl) UpdateUser(db *gorm.DB, userID string, req *dto.UpdateUserRequest) (*dto.UpdateUserResponse, error) {
	user, err := s.userRepo.FindByID(db, userID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, storageError(err)
	}

	var g errgroup.Group

	if req.Username != nil && *req.Username != user.Username {
		username := *req.Username
		g.Go(func() error {
			count, err := s.userRepo.CountByField(db, repositories.FieldUsername, username, userID)
			if err != nil {
				return storageError(err)
			}
			if count > 0 {
				return apperrors.NewConflictError("Username already exists")
			}
			return nil
		})
	}

	if req.Email != nil && *req.Email != user.Email {
		userEmail := *req.Email
		g.Go(func() error {
			count, err := s.userRepo.CountByField(db, repositories.FieldEmail, userEmail, userID)
			if err != nil {
				return storageError(err)
			}
			if count > 0 {
				return apperrors.NewConflictError("Email already exists")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	rolesChanged := req.Roles != nil && !equalRoles(req.Roles, []string(user.Roles))

	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Username != nil {
		user.Username = *req.Username
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Roles != nil {
		user.Roles = datatypes.JSONSlice[string](req.Roles)
	}
	if req.Password != nil {
		hashedPassword, err := auth.HashPassword(*req.Password)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		user.Password = hashedPassword
	}

	if err := s.userRepo.Update(db, user); err != nil {
		return nil, storageError(err)
	}

	resp := &dto.UpdateUserResponse{User: user}

	if rolesChanged {
		accessToken, err := auth.GenerateAccessToken(user, s.jwtSecret)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		refreshToken := &models.RefreshToken{
			UserID:    user.ID,
			Token:     uuid.NewString(),
			ExpiresAt: s.now().Add(auth.RefreshTokenTTL),
		}
		if err := s.refreshTokenRepo.Create(db, refreshToken); err != nil {
			return nil, storageError(err)
		}
		resp.AccessToken = accessToken
		resp.RefreshToken = refreshToken.Token
		resp.Message = "User updated successfully. New token generated due to role change."
	}

	return resp, nil
}

// GetUserByID - чтение профиля
func (s *UserServiceImpl) GetUserByID(db *gorm.DB, userID string) (*models.User, error) {
	user, err := s.userRepo.FindByID(db, userID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, storageError(err)
	}
	return user, nil
}

// equalRoles сравнивает наборы ролей без учета порядка
func equalRoles(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
