package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/LavishGent/nekocache/internal/types"
)

// FileStore keeps one JSON file per record under a directory.
// Writes go to a temp file that is renamed over the target.
type FileStore struct {
	fs  afero.Fs
	log zerolog.Logger
	dir string
	mu  sync.Mutex
}

// NewFileStore creates the directory if needed.
func NewFileStore(fs afero.Fs, dir string, log zerolog.Logger) (*FileStore, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, types.NewStorageError("open", "", "file", err)
	}
	return &FileStore{
		fs:  fs,
		dir: dir,
		log: log,
	}, nil
}

func (s *FileStore) Name() string { return "file" }

func (s *FileStore) Available() bool { return true }

func (s *FileStore) path(record string) string {
	return filepath.Join(s.dir, record+".json")
}

func (s *FileStore) Load(ctx context.Context, record string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateRecord(record); err != nil {
		return nil, types.NewStorageError("load", record, s.Name(), err)
	}

	data, err := afero.ReadFile(s.fs, s.path(record))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, types.ErrRecordNotFound
		}
		return nil, types.NewStorageError("load", record, s.Name(), err)
	}
	return data, nil
}

func (s *FileStore) Save(ctx context.Context, record string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateRecord(record); err != nil {
		return types.NewStorageError("save", record, s.Name(), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.path(record)
	tmp := target + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return types.NewStorageError("save", record, s.Name(), err)
	}
	if err := s.fs.Rename(tmp, target); err != nil {
		_ = s.fs.Remove(tmp)
		return types.NewStorageError("save", record, s.Name(), err)
	}

	s.log.Trace().Str("record", record).Int("bytes", len(data)).Msg("Record written")
	return nil
}

func (s *FileStore) Delete(ctx context.Context, record string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateRecord(record); err != nil {
		return types.NewStorageError("delete", record, s.Name(), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.Remove(s.path(record)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return types.NewStorageError("delete", record, s.Name(), err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

var _ BlobStore = (*FileStore)(nil)
