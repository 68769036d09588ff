package services

import (
	"strings"

	"mfs_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// storageError переводит ошибку уровня хранилища в AppError:
// нарушение уникальности/внешнего ключа — 400 с сообщением по полю,
// насколько его отдает драйвер; остальное — 500 "Unable to reach the
// database server". Требует TranslateError у gorm, иначе ошибки
// драйвера не сводятся к сентинелам.
func storageError(err error) *apperrors.AppError {
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}

	switch {
	case apperrors.Is(err, gorm.ErrDuplicatedKey):
		return apperrors.NewBadRequestError(duplicateKeyMessage(err)).WithError(err)
	case apperrors.Is(err, gorm.ErrForeignKeyViolated):
		return apperrors.NewBadRequestError("The provided id(s) reference a record that does not exist").WithError(err)
	case apperrors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.ErrNotFound(err)
	}

	return apperrors.DatabaseError(err)
}

// duplicateKeyMessage дополняет сообщение именем поля, когда текст
// ошибки драйвера его содержит (sqlite: "UNIQUE constraint failed:
// users.email"; после трансляции gorm поле может быть потеряно).
func duplicateKeyMessage(err error) string {
	const prefix = "The following field(s) is/are already taken"
	const marker = "constraint failed: "

	msg := err.Error()
	if i := strings.LastIndex(msg, marker); i >= 0 {
		return prefix + ": " + msg[i+len(marker):]
	}
	return prefix
}
