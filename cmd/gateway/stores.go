package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/oriys/areca-gateway/internal/config"
	"github.com/oriys/areca-gateway/internal/health"
	"github.com/oriys/areca-gateway/internal/kv"
	"github.com/oriys/areca-gateway/internal/objectstore"
)

// stores holds the backends selected by configuration. Nil fields are
// unconfigured.
type stores struct {
	db      *badger.DB
	rate    kv.Store
	objects objectstore.Store
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	st := &stores{}
	if cfg.UsesBadger() {
		db, err := kv.OpenBadger(cfg.Storage.BadgerPath)
		if err != nil {
			return nil, fmt.Errorf("open badger: %w", err)
		}
		st.db = db
	}

	switch cfg.RateLimit.Backend {
	case config.BackendRedis:
		opts := kv.RedisOptions{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.DialTimeout,
		}
		rs, err := kv.NewRedisStore(ctx, opts)
		if err != nil {
			// The limiter fails open, so an unreachable redis is not fatal.
			slog.Warn("redis unreachable at startup, rate limiting fails open until it recovers",
				slog.String("addr", cfg.Redis.Addr),
				slog.String("error", err.Error()),
			)
			rs, err = kv.OpenRedisStore(opts)
			if err != nil {
				st.Close()
				return nil, err
			}
		}
		st.rate = rs
	case config.BackendBadger:
		st.rate = kv.NewBadgerStore(st.db, "kv:")
	case config.BackendMemory:
		ms, err := kv.NewMemoryStore(cfg.RateLimit.MemoryCapacity)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("create memory rate store: %w", err)
		}
		st.rate = ms
	}

	switch cfg.Storage.Backend {
	case config.BackendBadger:
		st.objects = objectstore.NewBadgerStore(st.db)
	case config.BackendMemory:
		st.objects = objectstore.NewMemoryStore()
	}
	return st, nil
}

func (st *stores) registerProbes(checker *health.Checker) {
	if st.rate != nil {
		checker.Register("rate_limit", st.rate.Kind(), st.rate.Ping)
	}
	if st.db != nil {
		db := st.db
		checker.Register("badger", "badger", func(context.Context) error {
			if db.IsClosed() {
				return errors.New("badger is closed")
			}
			return nil
		})
	}
}

// Close releases every store; the shared badger database goes last.
func (st *stores) Close() {
	if st.objects != nil {
		if err := st.objects.Close(); err != nil {
			slog.Warn("close object store", slog.String("error", err.Error()))
		}
	}
	if st.rate != nil {
		if err := st.rate.Close(); err != nil {
			slog.Warn("close rate store", slog.String("error", err.Error()))
		}
	}
	if st.db != nil {
		if err := st.db.Close(); err != nil {
			slog.Warn("close badger", slog.String("error", err.Error()))
		}
	}
}
