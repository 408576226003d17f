package runtime

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tjfontaine/polyglot-connector/internal/core/ports"
	"github.com/tjfontaine/polyglot-connector/internal/pkg/config"
	"github.com/tjfontaine/polyglot-connector/internal/storage/memory"
	"github.com/tjfontaine/polyglot-connector/internal/storage/sqldb"
)

// Option is a functional option for configuring a Runtime.
type Option func(*Runtime) error

// WithConfig uses an already loaded configuration.
func WithConfig(cfg *config.Config) Option {
	return func(r *Runtime) error {
		if cfg == nil {
			return fmt.Errorf("config must not be nil")
		}
		r.cfg = cfg
		return nil
	}
}

// WithConfigFile loads configuration from path with POLY_ env overrides.
func WithConfigFile(path string) Option {
	return func(r *Runtime) error {
		cfg, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		r.cfg = cfg
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) error {
		r.logger = logger
		return nil
	}
}

// WithStore sets a custom interaction store. The caller keeps ownership and
// must close it.
func WithStore(store ports.InteractionStore) Option {
	return func(r *Runtime) error {
		r.store = store
		r.ownsStore = false
		return nil
	}
}

// WithMemoryStore keeps recorded interactions in memory.
func WithMemoryStore() Option {
	return func(r *Runtime) error {
		r.store = memory.New()
		r.ownsStore = true
		return nil
	}
}

// WithSQLite records interactions in a SQLite database at path.
func WithSQLite(path string) Option {
	return func(r *Runtime) error {
		store, err := sqldb.NewSQLite(path)
		if err != nil {
			return fmt.Errorf("create sqlite storage: %w", err)
		}
		r.store = store
		r.ownsStore = true
		return nil
	}
}

// WithPostgres records interactions in PostgreSQL.
func WithPostgres(dsn string) Option {
	return func(r *Runtime) error {
		store, err := sqldb.NewPostgres(dsn)
		if err != nil {
			return fmt.Errorf("create postgres storage: %w", err)
		}
		r.store = store
		r.ownsStore = true
		return nil
	}
}

// WithRegistry collects connector metrics into reg instead of a private
// registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(r *Runtime) error {
		r.registry = reg
		return nil
	}
}

// WithTransport overrides every connector's transport. Intended for tests
// and embedding.
func WithTransport(t ports.Transport) Option {
	return func(r *Runtime) error {
		r.transport = t
		return nil
	}
}
