package security

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	ErrInvalidScheme = errors.New("media URL must be http, https or an inline image")
	ErrEmptyURL      = errors.New("media URL is empty")
	ErrMalformedData = errors.New("malformed data URL")
)

const dataImagePrefix = "data:image/"

// IsDataURL reports whether s is an inline image (data:image/...).
func IsDataURL(s string) bool {
	return len(s) >= len(dataImagePrefix) && strings.EqualFold(s[:len(dataImagePrefix)], dataImagePrefix)
}

// ValidateMediaURL accepts absolute http(s) URLs, backend-relative paths and
// inline images. Anything else (file:, javascript:, data:text/...) is refused.
func ValidateMediaURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ErrEmptyURL
	}

	if IsDataURL(raw) {
		if !strings.Contains(raw, ",") {
			return ErrMalformedData
		}
		return nil
	}

	if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") {
		return nil
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
		if parsed.Host == "" {
			return fmt.Errorf("invalid URL: missing host")
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidScheme, parsed.Scheme)
	}
}
