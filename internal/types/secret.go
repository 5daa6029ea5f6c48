package types

import "encoding/json"

const redacted = "[REDACTED]"

// SecretString holds a credential (the Redis password) and never prints it.
// String, GoString and JSON encoding all yield a redacted marker.
type SecretString struct {
	value string
}

func NewSecretString(value string) SecretString {
	return SecretString{value: value}
}

func (s SecretString) Value() string {
	return s.value
}

func (s SecretString) IsEmpty() bool {
	return s.value == ""
}

func (s SecretString) String() string {
	if s.IsEmpty() {
		return ""
	}
	return redacted
}

func (s SecretString) GoString() string {
	return "types.SecretString{" + s.String() + "}"
}

func (s SecretString) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *SecretString) UnmarshalJSON(data []byte) error {
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	s.value = value
	return nil
}
