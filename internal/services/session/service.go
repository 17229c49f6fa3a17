// Package session wires a navigation engine to the local catalog, the
// navigation history and the user configuration. Commands open one Service
// per invocation.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"nathanbeddoewebdev/actionmgr/internal/actions"
	"nathanbeddoewebdev/actionmgr/internal/catalog"
	"nathanbeddoewebdev/actionmgr/internal/config"
	"nathanbeddoewebdev/actionmgr/internal/domain"
	"nathanbeddoewebdev/actionmgr/internal/history"
	"nathanbeddoewebdev/actionmgr/internal/retry"
	"nathanbeddoewebdev/actionmgr/internal/swrcache"
)

// maxStale bounds how long a stale descriptor is served while it is being
// revalidated.
const maxStale = time.Hour

// Service owns the stores of one command invocation.
type Service struct {
	cfg     *config.Config
	catalog *catalog.Catalog
	history history.Repository
	logger  logr.Logger
}

// Open opens the catalog and the history in the default database. The
// history is optional: if it cannot be opened, navigation is not recorded.
func Open(cfg *config.Config, logger logr.Logger) (*Service, error) {
	cache := swrcache.WithTTLs(swrcache.DefaultDir(), cfg.CacheTTLDuration(), maxStale)
	cat, err := catalog.Open(
		catalog.WithCache(cache),
		catalog.WithRetry(retry.DefaultConfig().WithAttempts(cfg.Attempts())),
		catalog.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	var repo history.Repository
	if r, err := history.Open(); err != nil {
		logger.Error(err, "history unavailable, navigation will not be recorded")
	} else {
		repo = r
	}
	return NewService(cfg, cat, repo, logger), nil
}

// NewService creates a Service from opened stores. repo may be nil.
func NewService(cfg *config.Config, cat *catalog.Catalog, repo history.Repository, logger logr.Logger) *Service {
	return &Service{cfg: cfg, catalog: cat, history: repo, logger: logger}
}

// Catalog returns the action catalog.
func (s *Service) Catalog() *catalog.Catalog { return s.catalog }

// History returns the history repository, or nil when it is unavailable.
func (s *Service) History() history.Repository { return s.history }

// Close releases both stores.
func (s *Service) Close() error {
	var errs []error
	if s.catalog != nil {
		errs = append(errs, s.catalog.Close())
	}
	if s.history != nil {
		errs = append(errs, s.history.Close())
	}
	return errors.Join(errs...)
}

// NewManager builds a Manager backed by the catalog. configure fills the
// display side (views, clients, surface); it may be nil. Navigation is
// recorded when the history is available; the returned Recorder is nil
// otherwise.
func (s *Service) NewManager(configure func(*actions.Config)) (*actions.Manager, *history.Recorder) {
	cfg := actions.Config{
		Loader:         s.catalog,
		Runner:         s.catalog,
		Buttons:        s.catalog,
		SessionContext: s.cfg.SessionContext(),
		Debug:          s.cfg.Debug,
		Logger:         s.logger,
	}
	if configure != nil {
		configure(&cfg)
	}
	m := actions.New(cfg)

	if s.history == nil {
		return m, nil
	}
	rec := history.NewRecorder(s.history, s.logger)
	rec.Attach(m)
	return m, rec
}

// Entry returns the history entry id, or the latest one when id is 0.
func (s *Service) Entry(id int64) (*history.Entry, error) {
	if s.history == nil {
		return nil, fmt.Errorf("history unavailable: %w", domain.ErrNotFound)
	}
	if id == 0 {
		return s.history.Latest()
	}
	return s.history.Get(id)
}

// Resume restores the navigation state of a history entry in m.
func (s *Service) Resume(ctx context.Context, m *actions.Manager, id int64) (*history.Entry, error) {
	entry, err := s.Entry(id)
	if err != nil {
		return nil, err
	}
	if err := m.LoadState(ctx, entry.State); err != nil {
		return nil, fmt.Errorf("resuming history entry %d: %w", entry.ID, err)
	}
	return entry, nil
}
