// Package sqlitestore provides a SQLite implementation of ProgressStore.
// Snapshots are stored zstd-compressed next to the columns List needs.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/runoshun/promptbench/internal/domain"
	"github.com/runoshun/promptbench/internal/snapshot"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS progress (
	task_id       TEXT PRIMARY KEY,
	task_title    TEXT NOT NULL DEFAULT '',
	current_step  INTEGER NOT NULL,
	prompt_count  INTEGER NOT NULL,
	saved_at      TEXT NOT NULL,
	snapshot      BLOB NOT NULL
);
`

// Store implements domain.ProgressStore on a SQLite database.
type Store struct {
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Ensure Store implements domain.ProgressStore.
var _ domain.ProgressStore = (*Store)(nil)

// New opens the database at path and runs migrations.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &Store{db: db, enc: enc, dec: dec}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	s.dec.Close()
	return errors.Join(s.enc.Close(), s.db.Close())
}

// SaveProgress creates or replaces the snapshot for a task.
func (s *Store) SaveProgress(ctx context.Context, taskID string, snap *domain.Snapshot) error {
	if taskID == "" {
		return domain.ErrNoCurrentTask
	}

	raw, err := snapshot.Encode(snap)
	if err != nil {
		return err
	}
	blob := s.enc.EncodeAll(raw, nil)

	info := snap.Info(taskID)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO progress (task_id, task_title, current_step, prompt_count, saved_at, snapshot)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(task_id) DO UPDATE SET
			task_title = excluded.task_title,
			current_step = excluded.current_step,
			prompt_count = excluded.prompt_count,
			saved_at = excluded.saved_at,
			snapshot = excluded.snapshot`,
		taskID, info.TaskTitle, int(info.CurrentStep), info.Prompts,
		info.SavedAt.UTC().Format(time.RFC3339Nano), blob,
	)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

// GetProgress retrieves the snapshot for a task.
func (s *Store) GetProgress(ctx context.Context, taskID string) (*domain.Snapshot, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT snapshot FROM progress WHERE task_id = ?`, taskID,
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProgressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}

	raw, err := s.dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot: %w", err)
	}
	snap, err := snapshot.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("progress of %s: %w", taskID, err)
	}
	return snap, nil
}

// ClearProgress removes the snapshot for a task.
func (s *Store) ClearProgress(ctx context.Context, taskID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM progress WHERE task_id = ?`, taskID); err != nil {
		return fmt.Errorf("delete progress: %w", err)
	}
	return nil
}

// List returns summaries of all stored snapshots ordered by task ID.
func (s *Store) List(ctx context.Context) ([]domain.ProgressInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT task_id, task_title, current_step, prompt_count, saved_at
		 FROM progress ORDER BY task_id`)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer rows.Close()

	var infos []domain.ProgressInfo
	for rows.Next() {
		var (
			info    domain.ProgressInfo
			step    int
			savedAt string
		)
		if err := rows.Scan(&info.TaskID, &info.TaskTitle, &step, &info.Prompts, &savedAt); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		info.CurrentStep = domain.Step(step)
		if info.SavedAt, err = time.Parse(time.RFC3339Nano, savedAt); err != nil {
			return nil, fmt.Errorf("parse saved_at of %s: %w", info.TaskID, err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress: %w", err)
	}
	return infos, nil
}
