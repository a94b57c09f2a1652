package persistence

import (
	"errors"
	"strings"

	"github.com/casa/wms/internal/domain/shared"
	"gorm.io/gorm"
)

// isDuplicateKey matches gorm's translated error and the raw driver text,
// since TranslateError is skipped for statements run through Exec.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "SQLSTATE 23505")
}

// translateWriteError maps unique violations to CONFLICT
func translateWriteError(err error, message string) error {
	if err == nil {
		return nil
	}
	if isDuplicateKey(err) {
		return shared.WrapConflict(message, err)
	}
	return err
}

// notFoundOr maps gorm.ErrRecordNotFound to a NOT_FOUND domain error
func notFoundOr(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.NewNotFoundError(message)
	}
	return err
}

// escapeLike escapes LIKE wildcards; queries pair it with ESCAPE '\'
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
