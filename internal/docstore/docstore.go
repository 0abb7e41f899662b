// Package docstore persists index metadata rows in a SQLite file.
//
// Row numbers are the insertion order of the vector index the rows belong
// to; Read refuses files whose rows are not exactly 0..n-1.
package docstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/rahulmurugan/fact-check/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
    row INTEGER PRIMARY KEY,
    record_id TEXT NOT NULL,
    source_id TEXT NOT NULL,
    type TEXT NOT NULL,
    page INTEGER NOT NULL DEFAULT 0,
    start_word INTEGER NOT NULL,
    end_word INTEGER NOT NULL,
    text TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source_id);
`

func open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open docstore %s: %w", path, err)
	}
	// a single connection keeps the file consistent for one writer
	db.SetMaxOpenConns(1)
	return db, nil
}

// Write stores metas as rows 0..n-1, replacing whatever the file held.
func Write(ctx context.Context, path string, metas []domain.ChunkMeta) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to replace docstore %s: %w", path, err)
	}
	db, err := open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create docstore schema: %w", err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin docstore write: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (row, record_id, source_id, type, page, start_word, end_word, text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare docstore insert: %w", err)
	}
	defer stmt.Close()

	for i, m := range metas {
		if _, err := stmt.ExecContext(ctx, i, m.RecordID, m.SourceID, string(m.Type), m.Page, m.StartWord, m.EndWord, m.Text); err != nil {
			return fmt.Errorf("failed to insert docstore row %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit docstore: %w", err)
	}
	return nil
}

// Read returns all rows in row order.
func Read(ctx context.Context, path string) ([]domain.ChunkMeta, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: docstore %s: %v", domain.ErrCorruptIndex, path, err)
	}
	db, err := open(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `
		SELECT row, record_id, source_id, type, page, start_word, end_word, text
		FROM chunks
		ORDER BY row
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: docstore %s: %v", domain.ErrCorruptIndex, path, err)
	}
	defer rows.Close()

	var metas []domain.ChunkMeta
	for rows.Next() {
		var (
			row int
			typ string
			m   domain.ChunkMeta
		)
		if err := rows.Scan(&row, &m.RecordID, &m.SourceID, &typ, &m.Page, &m.StartWord, &m.EndWord, &m.Text); err != nil {
			return nil, fmt.Errorf("%w: docstore row: %v", domain.ErrCorruptIndex, err)
		}
		if row != len(metas) {
			return nil, fmt.Errorf("%w: docstore row %d found where %d expected", domain.ErrCorruptIndex, row, len(metas))
		}
		m.Type = domain.RecordType(typ)
		metas = append(metas, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: docstore rows: %v", domain.ErrCorruptIndex, err)
	}
	return metas, nil
}

// Count returns the number of rows without loading them.
func Count(ctx context.Context, path string) (int, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, fmt.Errorf("%w: docstore %s: %v", domain.ErrCorruptIndex, path, err)
	}
	db, err := open(path)
	if err != nil {
		return 0, err
	}
	defer db.Close()
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: docstore count: %v", domain.ErrCorruptIndex, err)
	}
	return n, nil
}
