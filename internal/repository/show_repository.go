package repository

import (
	"context" // context bounds every storage call
	"fmt"     // fmt wraps backend errors

	"github.com/iliyamo/showdesk/internal/model" // model defines Show and Field
)

// ShowRepository persists the ordered collection of shows. Implementations
// must keep insertion order, must not deduplicate ids and must fail ListAll
// when the backing data is missing or corrupt instead of returning an empty
// collection.
type ShowRepository interface {
	// ListAll returns every show in insertion order.
	ListAll(ctx context.Context) ([]model.Show, error)
	// AppendMany appends shows at the end of the collection.
	AppendMany(ctx context.Context, shows []model.Show) error
	// UpdateField sets one flag on the first show whose id equals id and
	// returns the updated record. ErrShowNotFound leaves the store untouched.
	UpdateField(ctx context.Context, id string, field model.Field, value bool) (model.Show, error)
	// ClearAll replaces the collection with an empty one.
	ClearAll(ctx context.Context) error
	// Close releases backend resources.
	Close() error
}

// applyField runs the linear scan shared by every backend. It returns the
// index of the updated show or ErrShowNotFound.
func applyField(shows []model.Show, id string, field model.Field, value bool) (int, error) {
	if !field.Valid() {
		return -1, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	if id == "" {
		// shows without a string id are never addressable
		return -1, ErrShowNotFound
	}
	for i := range shows {
		if shows[i].ID == id {
			shows[i].SetFlag(field, value)
			return i, nil
		}
	}
	return -1, ErrShowNotFound
}
