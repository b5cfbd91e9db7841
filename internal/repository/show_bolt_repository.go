package repository

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/iliyamo/showdesk/internal/model"
)

var showsBucket = []byte("shows")

// BoltShowRepo keeps each show as one value in a bbolt bucket, keyed by a
// big-endian sequence number so cursor order equals insertion order. Each
// operation is a single bolt transaction, which gives the same
// no-lost-update behaviour as the file backend.
type BoltShowRepo struct {
	db *bolt.DB
}

// NewBoltShowRepo creates the shows bucket if needed and returns the repo.
func NewBoltShowRepo(db *bolt.DB) (*BoltShowRepo, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(showsBucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create shows bucket: %w", err)
	}
	return &BoltShowRepo{db: db}, nil
}

func (r *BoltShowRepo) ListAll(ctx context.Context) ([]model.Show, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	shows := []model.Show{}
	err := r.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(showsBucket)
		if b == nil {
			return fmt.Errorf("shows bucket missing")
		}
		return b.ForEach(func(k, v []byte) error {
			var s model.Show
			if err := json.Unmarshal(v, &s); err != nil {
				return fmt.Errorf("decode show %d: %w", binary.BigEndian.Uint64(k), err)
			}
			shows = append(shows, s)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list shows: %w", err)
	}
	return shows, nil
}

func (r *BoltShowRepo) AppendMany(ctx context.Context, shows []model.Show) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(showsBucket)
		for _, s := range shows {
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			data, err := json.Marshal(s)
			if err != nil {
				return err
			}
			if err := b.Put(seqKey(seq), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("append shows: %w", err)
	}
	return nil
}

func (r *BoltShowRepo) UpdateField(ctx context.Context, id string, field model.Field, value bool) (model.Show, error) {
	if err := ctx.Err(); err != nil {
		return model.Show{}, err
	}
	if !field.Valid() {
		return model.Show{}, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	if id == "" {
		return model.Show{}, ErrShowNotFound
	}
	var updated model.Show
	err := r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(showsBucket)
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var s model.Show
			if err := json.Unmarshal(v, &s); err != nil {
				return fmt.Errorf("decode show %d: %w", binary.BigEndian.Uint64(k), err)
			}
			if s.ID != id {
				continue
			}
			s.SetFlag(field, value)
			data, err := json.Marshal(s)
			if err != nil {
				return err
			}
			updated = s
			// copy the key: it points into the mmap and Put may remap
			return b.Put(append([]byte(nil), k...), data)
		}
		return ErrShowNotFound
	})
	if err != nil {
		return model.Show{}, err
	}
	return updated, nil
}

func (r *BoltShowRepo) ClearAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := r.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(showsBucket); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		_, err := tx.CreateBucket(showsBucket)
		return err
	})
	if err != nil {
		return fmt.Errorf("clear shows: %w", err)
	}
	return nil
}

func (r *BoltShowRepo) Close() error { return r.db.Close() }

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}
