package store

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/BarkinBalci/action-event-service/internal/config"
	"github.com/BarkinBalci/action-event-service/internal/repository"
	"github.com/BarkinBalci/action-event-service/internal/repository/clickhouse"
	"github.com/BarkinBalci/action-event-service/internal/repository/memory"
	"github.com/BarkinBalci/action-event-service/internal/repository/postgres"
)

// Store bundles the repositories selected by STORE_DRIVER.
//
// postgres keeps everything in the application database. clickhouse keeps
// events in ClickHouse and still resolves users and action pages from the
// application database. memory keeps everything in process.
type Store struct {
	Events repository.EventRepository
	Users  repository.UserRepository
	Pages  repository.ActionPageRepository

	closers []func() error
}

// Open connects the configured backends and verifies the event schema
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Store, error) {
	loc := cfg.Store.Location()
	s := &Store{}

	switch cfg.Store.Driver {
	case config.DriverMemory:
		repo := memory.NewRepository(loc)
		s.Events, s.Users, s.Pages = repo, repo, repo
		log.Warn("Using the in-memory store, events are lost on exit")

	case config.DriverPostgres:
		client, err := postgres.NewClient(ctx, &cfg.Postgres, log.Named("postgres"))
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, client.Close)
		repo := postgres.NewRepository(client, loc, log.Named("postgres"))
		s.Events, s.Users, s.Pages = repo, repo, repo

	case config.DriverClickHouse:
		pgClient, err := postgres.NewClient(ctx, &cfg.Postgres, log.Named("postgres"))
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, pgClient.Close)
		pgRepo := postgres.NewRepository(pgClient, loc, log.Named("postgres"))
		s.Users, s.Pages = pgRepo, pgRepo

		chClient, err := clickhouse.NewClient(ctx, &cfg.ClickHouse, loc, log.Named("clickhouse"))
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.closers = append(s.closers, chClient.Close)
		s.Events = clickhouse.NewRepository(chClient, log.Named("clickhouse"))

	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}

	if err := s.Events.InitSchema(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Info("Store opened",
		zap.String("driver", cfg.Store.Driver),
		zap.String("time_zone", loc.String()))

	return s, nil
}

// Close releases every backend connection, most recent first
func (s *Store) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
