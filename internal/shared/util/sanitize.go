package util

import (
	"errors"
	"strings"
	"unicode"
)

// maxFileNameLen bounds stored file names; the name is persisted in both
// archive collections and echoed in the upload token.
const maxFileNameLen = 255

var errInvalidFileName = errors.New("invalid file name")

// SanitizeFileName normalizes a client-supplied file name for the archive:
// traversal patterns are rejected, path separators and control characters
// become underscores, and the result is capped at 255 runes.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errInvalidFileName
	}
	s := strings.TrimSpace(name)
	s = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || unicode.IsControl(r) {
			return '_'
		}
		return r
	}, s)
	if s == "" {
		return "", errInvalidFileName
	}
	if runes := []rune(s); len(runes) > maxFileNameLen {
		s = string(runes[:maxFileNameLen])
	}
	return s, nil
}
