package utils

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrorRecordNotFound = errors.New("record not found")
	ErrorUnauthorized   = errors.New("unauthorized")
	ErrorSlugConflict   = errors.New("slug already taken")
)

// IsDuplicateKeyError reports whether err is a unique-constraint violation.
// gorm translates MySQL error 1062 when TranslateError is on; the message
// check covers raw driver errors that bypass translation.
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "Duplicate entry")
}
