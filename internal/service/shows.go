// Package service holds the show operations that span storage and
// notification.
package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/showdesk/internal/model"
	"github.com/iliyamo/showdesk/internal/repository"
)

// Notifier receives every successful show change. Implementations must not
// block the caller for long and must not fail the request; delivery is
// best effort.
type Notifier interface {
	Notify(ctx context.Context, ev model.ShowEvent)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev model.ShowEvent)

func (f NotifierFunc) Notify(ctx context.Context, ev model.ShowEvent) { f(ctx, ev) }

// ShowService applies client requests to the show store and announces the
// resulting changes.
type ShowService struct {
	repo      repository.ShowRepository
	notifiers []Notifier
	log       *logrus.Logger
}

// NewShowService constructs a ShowService. Nil notifiers are skipped.
func NewShowService(repo repository.ShowRepository, log *logrus.Logger, notifiers ...Notifier) *ShowService {
	if repo == nil {
		panic("nil repository passed to NewShowService")
	}
	s := &ShowService{repo: repo, log: log}
	for _, n := range notifiers {
		if n != nil {
			s.notifiers = append(s.notifiers, n)
		}
	}
	return s
}

// ListAll returns the whole collection.
func (s *ShowService) ListAll(ctx context.Context) ([]model.Show, error) {
	return s.repo.ListAll(ctx)
}

// AppendMany appends shows in the given order. Nothing is broadcast.
func (s *ShowService) AppendMany(ctx context.Context, shows []model.Show) error {
	if len(shows) == 0 {
		return nil
	}
	return s.repo.AppendMany(ctx, shows)
}

// UpdateField sets one flag and notifies observers. When the show does
// not exist repository.ErrShowNotFound is returned and nothing is sent.
func (s *ShowService) UpdateField(ctx context.Context, id string, field model.Field, value bool) (model.Show, error) {
	show, err := s.repo.UpdateField(ctx, id, field, value)
	if err != nil {
		return model.Show{}, err
	}
	s.emit(ctx, model.NewFieldEvent(id, field, value))
	return show, nil
}

// ClearAll empties the collection and always announces it, whether or not
// anything was stored before.
func (s *ShowService) ClearAll(ctx context.Context) error {
	if err := s.repo.ClearAll(ctx); err != nil {
		return err
	}
	s.emit(ctx, model.NewClearEvent())
	return nil
}

func (s *ShowService) emit(ctx context.Context, ev model.ShowEvent) {
	s.log.WithFields(logrus.Fields{"event": ev.Name, "show_id": ev.ShowID}).Info("show change")
	for _, n := range s.notifiers {
		n.Notify(ctx, ev)
	}
}
