package utils

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var controlChars = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)

// SanitizeString removes control characters except tab, newline and carriage
// return, which receipt text relies on for its layout.
func SanitizeString(s string) string {
	return controlChars.ReplaceAllString(s, "")
}

// ValidateTextLength rejects payloads larger than maxBytes.
func ValidateTextLength(s string, maxBytes int) error {
	if maxBytes > 0 && len(s) > maxBytes {
		return fmt.Errorf("text exceeds maximum size of %d bytes", maxBytes)
	}
	return nil
}

// ValidateExtension checks a file name against an allow-list of extensions
// and returns the lower-cased extension.
func ValidateExtension(filename string, allowed ...string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, a := range allowed {
		if ext == a {
			return ext, nil
		}
	}
	return "", fmt.Errorf("unsupported file type: %q", ext)
}
