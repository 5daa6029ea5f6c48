package metrics

import "fmt"

// Tag creates a formatted DataDog tag string in "key:value" format.
func Tag(key, value string) string {
	return fmt.Sprintf("%s:%s", key, value)
}

// OperationTag creates an operation tag.
func OperationTag(op string) string {
	return Tag("operation", op)
}

// StatusTag creates a status tag (hit/miss/ok/exhausted).
func StatusTag(status string) string {
	return Tag("status", status)
}

// ProviderTag names the upstream provider a payload came from.
func ProviderTag(provider string) string {
	return Tag("provider", provider)
}

// FetchTag names a retried operation.
func FetchTag(name string) string {
	return Tag("fetch", name)
}

// BackendTag names the storage backend.
func BackendTag(backend string) string {
	return Tag("backend", backend)
}

// CircuitStateTag creates a circuit breaker state tag.
func CircuitStateTag(state string) string {
	return Tag("circuit_state", state)
}
