package sitesetting

import (
	"fmt"
	"strings"
	"time"
)

// Setting is one key/value pair in a tenant's site_settings table. Settings
// live inside the tenant schema, so two tenants can hold the same key with
// different values without ever seeing each other's.
type Setting struct {
	key       string
	value     string
	updatedAt time.Time
}

func New(key, value string) (*Setting, error) {
	normalized, err := NormalizeKey(key)
	if err != nil {
		return nil, err
	}
	return &Setting{
		key:       normalized,
		value:     value,
		updatedAt: time.Now().UTC(),
	}, nil
}

// Hydrate rebuilds a setting from stored values without re-validation.
func Hydrate(key, value string, updatedAt time.Time) *Setting {
	return &Setting{
		key:       key,
		value:     value,
		updatedAt: updatedAt,
	}
}

func (s *Setting) Key() string {
	return s.key
}

func (s *Setting) Value() string {
	return s.value
}

func (s *Setting) UpdatedAt() time.Time {
	return s.updatedAt
}

var ErrInvalidKey = fmt.Errorf("invalid setting key")

// NormalizeKey lowercases and trims the key. Keys are dotted identifiers like
// "site.title"; anything else is rejected before it reaches storage.
func NormalizeKey(raw string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	for _, r := range key {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '.' && r != '_' && r != '-' {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, raw)
		}
	}
	return key, nil
}
