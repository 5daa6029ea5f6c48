package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

func TestSecretStringRedacts(t *testing.T) {
	s := NewSecretString("hunter2")

	if s.Value() != "hunter2" {
		t.Errorf("Value() = %q, want hunter2", s.Value())
	}
	for _, out := range []string{s.String(), fmt.Sprintf("%v", s), fmt.Sprintf("%#v", s)} {
		if strings.Contains(out, "hunter2") {
			t.Errorf("formatted secret leaked value: %q", out)
		}
	}

	data, err := json.Marshal(struct{ Password SecretString }{s})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"Password":"[REDACTED]"}` {
		t.Errorf("Marshal() = %s", data)
	}
}

func TestSecretStringUnmarshal(t *testing.T) {
	var cfg struct {
		Password SecretString `json:"password"`
	}
	if err := json.Unmarshal([]byte(`{"password":"s3cret"}`), &cfg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if cfg.Password.Value() != "s3cret" {
		t.Errorf("Value() = %q, want s3cret", cfg.Password.Value())
	}
	if NewSecretString("").String() != "" || !NewSecretString("").IsEmpty() {
		t.Error("empty secret should render empty")
	}
}
