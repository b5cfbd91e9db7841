package repository

import (
	"context"       // context for controlling query lifetime
	"crypto/sha256" // fixed-size lookup key for ids of any length
	"database/sql"  // sql provides DB abstraction
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iliyamo/showdesk/internal/model"
)

// MySQLShowRepo stores each show as a JSON document in show_records. The
// auto-increment seq column preserves insertion order. show_id is a binary
// copy of the string id, so lookups compare bytes exactly (no case or
// accent folding) whatever its length; show_key, the SHA-256 of the id,
// carries the index.
type MySQLShowRepo struct {
	db *sql.DB
}

// NewMySQLShowRepo constructs a MySQLShowRepo with the given DB handle.
func NewMySQLShowRepo(db *sql.DB) *MySQLShowRepo {
	return &MySQLShowRepo{db: db}
}

// EnsureSchema creates show_records if it does not exist.
func (r *MySQLShowRepo) EnsureSchema(ctx context.Context) error {
	const q = `CREATE TABLE IF NOT EXISTS show_records (
        seq      BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
        show_key BINARY(32) NULL,
        show_id  LONGBLOB NULL,
        doc      JSON NOT NULL,
        KEY idx_show_records_show_key (show_key)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`
	if _, err := r.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("create show_records: %w", err)
	}
	return nil
}

func (r *MySQLShowRepo) ListAll(ctx context.Context) ([]model.Show, error) {
	const q = `SELECT doc FROM show_records ORDER BY seq`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query shows: %w", err)
	}
	defer rows.Close()
	shows := []model.Show{}
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan show: %w", err)
		}
		var s model.Show
		if err := json.Unmarshal(doc, &s); err != nil {
			return nil, fmt.Errorf("decode show: %w", err)
		}
		shows = append(shows, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shows: %w", err)
	}
	return shows, nil
}

// AppendMany inserts all shows in one transaction so a failure leaves the
// collection unchanged.
func (r *MySQLShowRepo) AppendMany(ctx context.Context, shows []model.Show) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()
	const q = `INSERT INTO show_records (show_key, show_id, doc) VALUES (?, ?, ?)`
	for _, s := range shows {
		doc, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("encode show: %w", err)
		}
		if _, err := tx.ExecContext(ctx, q, showKey(s.ID), nullableID(s.ID), doc); err != nil {
			return fmt.Errorf("insert show: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	return nil
}

// UpdateField locks the first matching row, rewrites its document and
// commits. Concurrent updates of the same show serialise on the row lock.
func (r *MySQLShowRepo) UpdateField(ctx context.Context, id string, field model.Field, value bool) (model.Show, error) {
	if !field.Valid() {
		return model.Show{}, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	if id == "" {
		return model.Show{}, ErrShowNotFound
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Show{}, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	const sel = `SELECT seq, doc FROM show_records WHERE show_key = ? AND show_id = ? ORDER BY seq LIMIT 1 FOR UPDATE`
	var (
		seq uint64
		doc []byte
	)
	if err := tx.QueryRowContext(ctx, sel, showKey(id), []byte(id)).Scan(&seq, &doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Show{}, ErrShowNotFound
		}
		return model.Show{}, fmt.Errorf("select show: %w", err)
	}
	var s model.Show
	if err := json.Unmarshal(doc, &s); err != nil {
		return model.Show{}, fmt.Errorf("decode show: %w", err)
	}
	s.SetFlag(field, value)
	out, err := json.Marshal(s)
	if err != nil {
		return model.Show{}, fmt.Errorf("encode show: %w", err)
	}
	const upd = `UPDATE show_records SET doc = ? WHERE seq = ?`
	if _, err := tx.ExecContext(ctx, upd, out, seq); err != nil {
		return model.Show{}, fmt.Errorf("update show: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Show{}, fmt.Errorf("commit update: %w", err)
	}
	return s, nil
}

func (r *MySQLShowRepo) ClearAll(ctx context.Context) error {
	const q = `DELETE FROM show_records`
	if _, err := r.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("clear shows: %w", err)
	}
	return nil
}

func (r *MySQLShowRepo) Close() error { return r.db.Close() }

// nullableID stores shows without a string id as NULL so they never match.
func nullableID(id string) any {
	if id == "" {
		return nil
	}
	return []byte(id)
}

func showKey(id string) any {
	if id == "" {
		return nil
	}
	sum := sha256.Sum256([]byte(id))
	return sum[:]
}
