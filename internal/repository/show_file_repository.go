package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/iliyamo/showdesk/internal/model"
)

// FileShowRepo stores the whole collection as one JSON array in a single
// file. Every read-modify-write runs under mu so concurrent updates on
// different fields of one show are never lost; same-field updates are
// applied in arrival order and the last one wins.
type FileShowRepo struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
}

// NewFileShowRepo constructs a FileShowRepo reading and writing path on fs.
func NewFileShowRepo(fs afero.Fs, path string) *FileShowRepo {
	return &FileShowRepo{fs: fs, path: path}
}

// EnsureFile writes an empty array when the file does not exist yet. It is
// meant for startup; ListAll itself never falls back to an empty collection.
func (r *FileShowRepo) EnsureFile() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.fs.Stat(r.path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat shows file: %w", err)
	}
	if dir := filepath.Dir(r.path); dir != "." {
		if err := r.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create shows dir: %w", err)
		}
	}
	return r.write(nil)
}

func (r *FileShowRepo) ListAll(ctx context.Context) ([]model.Show, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read()
}

func (r *FileShowRepo) AppendMany(ctx context.Context, shows []model.Show) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, err := r.read()
	if err != nil {
		return err
	}
	return r.write(append(cur, shows...))
}

func (r *FileShowRepo) UpdateField(ctx context.Context, id string, field model.Field, value bool) (model.Show, error) {
	if err := ctx.Err(); err != nil {
		return model.Show{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, err := r.read()
	if err != nil {
		return model.Show{}, err
	}
	i, err := applyField(cur, id, field, value)
	if err != nil {
		return model.Show{}, err
	}
	if err := r.write(cur); err != nil {
		return model.Show{}, err
	}
	return cur[i], nil
}

func (r *FileShowRepo) ClearAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.write(nil)
}

// Close is a no-op; the file is opened per operation.
func (r *FileShowRepo) Close() error { return nil }

func (r *FileShowRepo) read() ([]model.Show, error) {
	data, err := afero.ReadFile(r.fs, r.path)
	if err != nil {
		return nil, fmt.Errorf("read shows file: %w", err)
	}
	var shows []model.Show
	if err := json.Unmarshal(data, &shows); err != nil {
		return nil, fmt.Errorf("parse shows file: %w", err)
	}
	if shows == nil {
		// a literal null is as corrupt as a truncated file
		return nil, fmt.Errorf("parse shows file: not a JSON array")
	}
	return shows, nil
}

// write replaces the file through a temp file and rename so readers never
// observe a partially written array.
func (r *FileShowRepo) write(shows []model.Show) error {
	if shows == nil {
		shows = []model.Show{}
	}
	data, err := json.MarshalIndent(shows, "", "  ")
	if err != nil {
		return fmt.Errorf("encode shows: %w", err)
	}
	tmp, err := afero.TempFile(r.fs, filepath.Dir(r.path), filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp shows file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = r.fs.Remove(tmp.Name())
		return fmt.Errorf("write shows file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = r.fs.Remove(tmp.Name())
		return fmt.Errorf("close shows file: %w", err)
	}
	if err := r.fs.Rename(tmp.Name(), r.path); err != nil {
		_ = r.fs.Remove(tmp.Name())
		return fmt.Errorf("replace shows file: %w", err)
	}
	return nil
}
