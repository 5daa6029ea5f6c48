package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestStorageBackendString(t *testing.T) {
	tests := []struct {
		backend  StorageBackend
		expected string
	}{
		{BackendFile, "file"},
		{BackendSQLite, "sqlite"},
		{BackendRedis, "redis"},
		{BackendMemory, "memory"},
		{BackendDisabled, "disabled"},
		{StorageBackend(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.backend.String(); got != tt.expected {
				t.Errorf("StorageBackend.String() = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestParseStorageBackend(t *testing.T) {
	tests := []struct {
		in      string
		want    StorageBackend
		wantErr bool
	}{
		{"file", BackendFile, false},
		{"", BackendFile, false},
		{"SQLite", BackendSQLite, false},
		{" redis ", BackendRedis, false},
		{"memory", BackendMemory, false},
		{"none", BackendDisabled, false},
		{"etcd", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseStorageBackend(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseStorageBackend(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseStorageBackend(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestStorageBackendDurable(t *testing.T) {
	if !BackendSQLite.Durable() || !BackendFile.Durable() || !BackendRedis.Durable() {
		t.Error("file, sqlite and redis backends should be durable")
	}
	if BackendMemory.Durable() || BackendDisabled.Durable() {
		t.Error("memory and disabled backends should not be durable")
	}
}

func TestStorageError(t *testing.T) {
	underlying := errors.New("disk full")

	err := NewStorageError("save", "anime-entries", "file", underlying)
	want := "storage save on file [anime-entries]: disk full"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, underlying) {
		t.Error("StorageError should unwrap to the underlying error")
	}

	noRecord := NewStorageError("close", "", "sqlite", underlying)
	if noRecord.Error() != "storage close on sqlite: disk full" {
		t.Errorf("Error() = %q", noRecord.Error())
	}

	wrapped := fmt.Errorf("put 42: %w", err)
	if !IsStorageError(wrapped) {
		t.Error("IsStorageError should see through wrapping")
	}
	if IsStorageError(underlying) {
		t.Error("IsStorageError(plain error) = true, want false")
	}
}

func TestErrorHelpers(t *testing.T) {
	if !IsNoResult(fmt.Errorf("details: %w", ErrNoResult)) {
		t.Error("IsNoResult should match wrapped ErrNoResult")
	}
	if !IsRecordNotFound(ErrRecordNotFound) {
		t.Error("IsRecordNotFound(ErrRecordNotFound) = false")
	}
	if !IsCircuitOpen(fmt.Errorf("redis: %w", ErrCircuitOpen)) {
		t.Error("IsCircuitOpen should match wrapped ErrCircuitOpen")
	}
	if IsNoResult(nil) {
		t.Error("IsNoResult(nil) = true")
	}
}

func TestHealthStatusString(t *testing.T) {
	tests := map[HealthStatus]string{
		HealthStatusHealthy:   "healthy",
		HealthStatusDegraded:  "degraded",
		HealthStatusUnhealthy: "unhealthy",
		HealthStatus(0):       "unknown",
	}
	for status, want := range tests {
		if got := status.String(); got != want {
			t.Errorf("HealthStatus(%d).String() = %s, want %s", status, got, want)
		}
	}
}

func TestMetricsSnapshotRatios(t *testing.T) {
	s := &MetricsSnapshot{Hits: 3, Misses: 1, FetchCount: 4, FetchSucceeded: 3, FetchAttempts: 9}

	if got := s.HitRatio(); got != 0.75 {
		t.Errorf("HitRatio() = %v, want 0.75", got)
	}
	if got := s.FetchSuccessRatio(); got != 0.75 {
		t.Errorf("FetchSuccessRatio() = %v, want 0.75", got)
	}
	if got := s.Retries(); got != 5 {
		t.Errorf("Retries() = %d, want 5", got)
	}

	empty := &MetricsSnapshot{}
	if empty.HitRatio() != 0 || empty.FetchSuccessRatio() != 0 || empty.Retries() != 0 {
		t.Error("empty snapshot ratios should be zero")
	}
}
