package repositories

import (
	"errors"

	"edition-publisher/models"

	"gorm.io/gorm"
)

// translate maps gorm sentinel errors onto domain errors. Other errors pass through.
func translate(err error, resource string, id interface{}) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &models.ErrorNotFound{Resource: resource, ID: id}
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &models.ErrorConflict{Message: resource + " already exists"}
	}
	return err
}
