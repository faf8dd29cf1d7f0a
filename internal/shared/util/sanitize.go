package util

import (
	"errors"
	"strings"
	"unicode"
)

// MaxFileNameLen bounds caller-supplied name stems such as reference ids.
const MaxFileNameLen = 128

var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName turns a caller-supplied stem into a safe object name.
// Path separators become underscores; anything else unsafe is rejected.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrInvalidFileName
	}
	s := strings.TrimSpace(name)
	if s == "" || len(s) > MaxFileNameLen {
		return "", ErrInvalidFileName
	}
	if strings.IndexFunc(s, unicode.IsControl) >= 0 {
		return "", ErrInvalidFileName
	}
	return strings.NewReplacer("/", "_", "\\", "_").Replace(s), nil
}
