package types

import (
	"errors"
	"strings"
	"testing"
)

func TestDefaultProviderValidationConfig(t *testing.T) {
	cfg := DefaultProviderValidationConfig()

	if cfg.MaxLength != 64 {
		t.Errorf("MaxLength = %d, want 64", cfg.MaxLength)
	}
	if cfg.AllowWhitespace {
		t.Error("AllowWhitespace = true, want false")
	}
	if cfg.ReservedPatterns != nil {
		t.Error("ReservedPatterns should be nil by default")
	}
}

func TestProviderValidator_Validate(t *testing.T) {
	t.Run("valid names pass validation", func(t *testing.T) {
		v := NewProviderValidator(DefaultProviderValidationConfig())

		for _, name := range []string{"shikimori", "kodik", "provider-a", "provider_b", "p1", strings.Repeat("a", 64)} {
			if err := v.Validate(name); err != nil {
				t.Errorf("Validate(%q) = %v, want nil", name, err)
			}
		}
	})

	t.Run("empty name rejected", func(t *testing.T) {
		v := NewProviderValidator(DefaultProviderValidationConfig())

		err := v.Validate("")
		if !errors.Is(err, ErrInvalidProvider) {
			t.Errorf("Validate(\"\") = %v, want ErrInvalidProvider", err)
		}
	})

	t.Run("name exceeding max length rejected", func(t *testing.T) {
		v := NewProviderValidator(DefaultProviderValidationConfig())

		err := v.Validate(strings.Repeat("a", 65))
		if !errors.Is(err, ErrInvalidProvider) {
			t.Errorf("error should wrap ErrInvalidProvider, got: %v", err)
		}
		if err != nil && !strings.Contains(err.Error(), "exceeds maximum") {
			t.Errorf("error message should mention 'exceeds maximum', got: %v", err)
		}
	})

	t.Run("max length check disabled when zero", func(t *testing.T) {
		cfg := DefaultProviderValidationConfig()
		cfg.MaxLength = 0
		v := NewProviderValidator(cfg)

		if err := v.Validate(strings.Repeat("a", 1000)); err != nil {
			t.Errorf("Validate(long name) = %v, want nil when MaxLength=0", err)
		}
	})

	t.Run("invalid UTF-8 rejected", func(t *testing.T) {
		v := NewProviderValidator(DefaultProviderValidationConfig())

		if err := v.Validate(string([]byte{0xff, 0xfe})); !errors.Is(err, ErrInvalidProvider) {
			t.Errorf("Validate(invalid UTF-8) = %v, want ErrInvalidProvider", err)
		}
	})

	t.Run("control characters rejected", func(t *testing.T) {
		v := NewProviderValidator(DefaultProviderValidationConfig())

		for _, name := range []string{"a\x00b", "a\nb", "a\x1bb", "a\x7fb"} {
			if err := v.Validate(name); err == nil {
				t.Errorf("Validate(%q) = nil, want error for control char", name)
			}
		}
	})

	t.Run("whitespace allowed when configured", func(t *testing.T) {
		cfg := DefaultProviderValidationConfig()
		cfg.AllowWhitespace = true
		v := NewProviderValidator(cfg)

		if err := v.Validate("provider a"); err != nil {
			t.Errorf("Validate(\"provider a\") = %v, want nil", err)
		}
		if err := NewProviderValidator(DefaultProviderValidationConfig()).Validate("provider a"); err == nil {
			t.Error("default validator should reject whitespace")
		}
	})

	t.Run("reserved patterns rejected", func(t *testing.T) {
		cfg := DefaultProviderValidationConfig()
		cfg.ReservedPatterns = []string{"__"}
		v := NewProviderValidator(cfg)

		err := v.Validate("meta__internal")
		if err == nil || !strings.Contains(err.Error(), "reserved pattern") {
			t.Errorf("Validate(reserved) = %v, want reserved pattern error", err)
		}
	})
}

func TestValidateEntityID(t *testing.T) {
	tests := []struct {
		id    int
		valid bool
	}{
		{1, true},
		{52991, true},
		{0, false},
		{-7, false},
	}

	for _, tt := range tests {
		err := ValidateEntityID(tt.id)
		if tt.valid && err != nil {
			t.Errorf("ValidateEntityID(%d) = %v, want nil", tt.id, err)
		}
		if !tt.valid && !IsInvalidKey(err) {
			t.Errorf("ValidateEntityID(%d) = %v, want ErrInvalidKey", tt.id, err)
		}
	}
}
