package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/LavishGent/nekocache/internal/config"
	"github.com/LavishGent/nekocache/internal/types"
)

// SQLiteStore keeps records in a single-table sqlite database.
type SQLiteStore struct {
	handler  *sql.DB
	log      zerolog.Logger
	squirrel sq.StatementBuilderType
	path     string
	lock     sync.RWMutex
}

// OpenSQLite opens (creating if needed) the database at cfg.Path and migrates it.
func OpenSQLite(ctx context.Context, cfg config.SQLiteConfig, log zerolog.Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "unable to create database directory")
		}
	}

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = time.Second
	}

	s := &SQLiteStore{
		log:      log.With().Str("module", "database").Logger(),
		squirrel: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		path:     cfg.Path,
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout%%3d%d", cfg.Path, busy.Milliseconds())

	var err error
	s.handler, err = sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open database")
	}

	if _, err = s.handler.ExecContext(ctx, `PRAGMA journal_mode = wal;`); err != nil {
		s.handler.Close()
		return nil, errors.Wrap(err, "unable to enable WAL mode")
	}

	if err := s.migrate(ctx); err != nil {
		s.handler.Close()
		return nil, errors.Wrap(err, "failed to migrate schema")
	}

	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	var version int
	if err := s.handler.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return errors.Wrap(err, "failed to query schema version")
	}

	target := len(recordsMigrations)
	if version == target {
		return nil
	} else if version > target {
		return errors.Errorf("database schema version (%d) is newer than supported (%d)", version, target)
	}

	s.log.Info().Msgf("Upgrading database schema from version %d to %d", version, target)

	tx, err := s.handler.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if version == 0 {
		if _, err := tx.ExecContext(ctx, recordsSchema); err != nil {
			return errors.Wrap(err, "failed to initialize schema")
		}
	} else {
		for i := version; i < target; i++ {
			if recordsMigrations[i] == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx, recordsMigrations[i]); err != nil {
				return errors.Wrapf(err, "failed to execute migration #%d", i)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", target)); err != nil {
		return errors.Wrap(err, "failed to bump schema version")
	}

	return tx.Commit()
}

func (s *SQLiteStore) Name() string { return "sqlite" }

func (s *SQLiteStore) Available() bool {
	return s.handler.Ping() == nil
}

func (s *SQLiteStore) Load(ctx context.Context, record string) ([]byte, error) {
	query, args, err := s.squirrel.
		Select("value").
		From("records").
		Where(sq.Eq{"name": record}).
		ToSql()
	if err != nil {
		return nil, types.NewStorageError("load", record, s.Name(), errors.Wrap(err, "error building query"))
	}

	s.log.Trace().Str("query", query).Interface("args", args).Msg("Load")

	s.lock.RLock()
	defer s.lock.RUnlock()

	var value []byte
	if err := s.handler.QueryRowContext(ctx, query, args...).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrRecordNotFound
		}
		return nil, types.NewStorageError("load", record, s.Name(), errors.Wrap(err, "error executing query"))
	}
	return value, nil
}

func (s *SQLiteStore) Save(ctx context.Context, record string, data []byte) error {
	query, args, err := s.squirrel.
		Replace("records").
		Columns("name", "value", "size", "updated_at").
		Values(record, data, len(data), time.Now().UTC().Format(time.RFC3339)).
		ToSql()
	if err != nil {
		return types.NewStorageError("save", record, s.Name(), errors.Wrap(err, "error building query"))
	}

	s.log.Trace().Str("query", query).Str("record", record).Int("bytes", len(data)).Msg("Save")

	s.lock.Lock()
	defer s.lock.Unlock()

	if _, err := s.handler.ExecContext(ctx, query, args...); err != nil {
		return types.NewStorageError("save", record, s.Name(), errors.Wrap(err, "error executing query"))
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, record string) error {
	query, args, err := s.squirrel.
		Delete("records").
		Where(sq.Eq{"name": record}).
		ToSql()
	if err != nil {
		return types.NewStorageError("delete", record, s.Name(), errors.Wrap(err, "error building query"))
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if _, err := s.handler.ExecContext(ctx, query, args...); err != nil {
		return types.NewStorageError("delete", record, s.Name(), errors.Wrap(err, "error executing query"))
	}
	return nil
}

// Records lists stored record names with their sizes in bytes.
func (s *SQLiteStore) Records(ctx context.Context) (map[string]int, error) {
	query, args, err := s.squirrel.Select("name", "size").From("records").ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "error building query")
	}

	s.lock.RLock()
	defer s.lock.RUnlock()

	rows, err := s.handler.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "error executing query")
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var name string
		var size int
		if err := rows.Scan(&name, &size); err != nil {
			return nil, errors.Wrap(err, "error scanning row")
		}
		out[name] = size
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating rows")
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	if _, err := s.handler.Exec(`PRAGMA optimize;`); err != nil {
		s.log.Debug().Err(err).Msg("Query planner optimization failed")
	}
	return s.handler.Close()
}

var _ BlobStore = (*SQLiteStore)(nil)
