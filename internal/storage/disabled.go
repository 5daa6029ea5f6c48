package storage

import (
	"context"

	"github.com/LavishGent/nekocache/internal/types"
)

// DisabledStore persists nothing. Loads always miss and saves succeed
// without effect, so the entry cache runs purely in memory.
type DisabledStore struct{}

// NewDisabledStore creates a disabled store.
func NewDisabledStore() *DisabledStore {
	return &DisabledStore{}
}

func (s *DisabledStore) Name() string { return "disabled" }

func (s *DisabledStore) Available() bool { return false }

func (s *DisabledStore) Load(context.Context, string) ([]byte, error) {
	return nil, types.ErrRecordNotFound
}

func (s *DisabledStore) Save(context.Context, string, []byte) error { return nil }

func (s *DisabledStore) Delete(context.Context, string) error { return nil }

func (s *DisabledStore) Close() error { return nil }

var _ BlobStore = (*DisabledStore)(nil)
