package types

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ProviderValidationConfig contains the rules applied to provider field names.
type ProviderValidationConfig struct {
	ReservedPatterns []string
	MaxLength        int
	AllowWhitespace  bool
}

// DefaultProviderValidationConfig returns a ProviderValidationConfig with default values.
func DefaultProviderValidationConfig() ProviderValidationConfig {
	return ProviderValidationConfig{
		MaxLength:        64,
		AllowWhitespace:  false,
		ReservedPatterns: nil,
	}
}

// ProviderValidator validates the names under which payloads are stored in an entry.
type ProviderValidator struct {
	config ProviderValidationConfig
}

// NewProviderValidator creates a new ProviderValidator with the given configuration.
func NewProviderValidator(config ProviderValidationConfig) *ProviderValidator {
	return &ProviderValidator{config: config}
}

// Validate checks a provider name against the configured rules.
func (v *ProviderValidator) Validate(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidProvider)
	}

	if v.config.MaxLength > 0 && len(name) > v.config.MaxLength {
		return fmt.Errorf("%w: name length %d exceeds maximum %d bytes",
			ErrInvalidProvider, len(name), v.config.MaxLength)
	}

	if !utf8.ValidString(name) {
		return fmt.Errorf("%w: name contains invalid UTF-8", ErrInvalidProvider)
	}

	for i, r := range name {
		if r < 32 || r == 127 {
			return fmt.Errorf("%w: name contains control character at position %d", ErrInvalidProvider, i)
		}
		if !v.config.AllowWhitespace && unicode.IsSpace(r) {
			return fmt.Errorf("%w: name contains whitespace at position %d", ErrInvalidProvider, i)
		}
	}

	for _, pattern := range v.config.ReservedPatterns {
		if strings.Contains(name, pattern) {
			return fmt.Errorf("%w: name contains reserved pattern %q", ErrInvalidProvider, pattern)
		}
	}

	return nil
}

// ValidateProvider validates a provider name using the default validator.
func ValidateProvider(name string) error {
	return DefaultProviderValidator.Validate(name)
}

// DefaultProviderValidator is the default provider validator instance.
var DefaultProviderValidator = NewProviderValidator(DefaultProviderValidationConfig())

// ValidateEntityID rejects ids the upstream catalogs never issue.
func ValidateEntityID(id int) error {
	if id <= 0 {
		return fmt.Errorf("%w: entity id must be positive, got %d", ErrInvalidKey, id)
	}
	return nil
}

// IsInvalidKey returns true if the error indicates an invalid entity id.
func IsInvalidKey(err error) bool {
	return errors.Is(err, ErrInvalidKey)
}
