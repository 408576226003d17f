// Package runtime builds connectors, dispatch groups and their pipelines from
// configuration and manages the optional inspector server.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tjfontaine/polyglot-connector/internal/connector"
	"github.com/tjfontaine/polyglot-connector/internal/core/domain"
	"github.com/tjfontaine/polyglot-connector/internal/core/ports"
	"github.com/tjfontaine/polyglot-connector/internal/dispatch"
	"github.com/tjfontaine/polyglot-connector/internal/inspector"
	"github.com/tjfontaine/polyglot-connector/internal/middleware"
	"github.com/tjfontaine/polyglot-connector/internal/pkg/config"
	"github.com/tjfontaine/polyglot-connector/internal/server"
	"github.com/tjfontaine/polyglot-connector/internal/storage/memory"
	"github.com/tjfontaine/polyglot-connector/internal/storage/sqldb"
	"github.com/tjfontaine/polyglot-connector/internal/transport/fasthttp"
	"github.com/tjfontaine/polyglot-connector/internal/transport/nethttp"
	"github.com/tjfontaine/polyglot-connector/internal/webhook"
)

var (
	// ErrConnectorNotFound is returned for unknown connector names.
	ErrConnectorNotFound = errors.New("connector not found")
	// ErrGroupNotFound is returned for unknown group names.
	ErrGroupNotFound = errors.New("group not found")
)

// Runtime owns every configured connector and its request groups.
type Runtime struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     ports.InteractionStore
	ownsStore bool
	registry  *prometheus.Registry
	transport ports.Transport

	connectors map[string]*connector.Connector
	groups     map[string]map[string]*dispatch.Group

	server   *server.Server
	listener net.Listener
	serveErr chan error
	mu       sync.Mutex
}

// New creates a Runtime. Without WithConfig or WithConfigFile the default
// config path is loaded; without a store option the store is opened from
// the storage section of the config.
func New(opts ...Option) (*Runtime, error) {
	rt := &Runtime{
		logger:     slog.Default(),
		connectors: make(map[string]*connector.Connector),
		groups:     make(map[string]map[string]*dispatch.Group),
	}

	for _, opt := range opts {
		if err := opt(rt); err != nil {
			rt.closeStore()
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	if rt.cfg == nil {
		cfg, err := config.Load("")
		if err != nil {
			rt.closeStore()
			return nil, fmt.Errorf("load config: %w", err)
		}
		rt.cfg = cfg
	}

	if rt.store == nil {
		store, err := openStore(rt.cfg.Storage)
		if err != nil {
			return nil, err
		}
		rt.store = store
		rt.ownsStore = store != nil
	}

	if rt.registry == nil {
		rt.registry = prometheus.NewRegistry()
	}
	metrics, err := middleware.NewMetrics(rt.registry)
	if err != nil {
		rt.closeStore()
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	deps := middleware.Deps{Logger: rt.logger, Metrics: metrics, Store: rt.store}
	for _, cc := range rt.cfg.Connectors {
		if err := rt.build(cc, deps); err != nil {
			rt.closeStore()
			return nil, fmt.Errorf("connector %s: %w", cc.Name, err)
		}
	}

	rt.logger.Info("runtime initialized",
		slog.Int("connectors", len(rt.connectors)),
		slog.String("storage", rt.cfg.Storage.Type))

	return rt, nil
}

func openStore(cfg config.StorageConfig) (ports.InteractionStore, error) {
	switch cfg.Type {
	case "", "memory":
		return memory.New(), nil
	case "sqlite":
		store, err := sqldb.NewSQLite(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("create sqlite storage: %w", err)
		}
		return store, nil
	case "postgres":
		store, err := sqldb.NewPostgres(cfg.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("create postgres storage: %w", err)
		}
		return store, nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported storage type %q", cfg.Type)
	}
}

func (rt *Runtime) build(cc config.ConnectorConfig, deps middleware.Deps) error {
	timeout, err := config.ParseDuration(cc.Timeout, fasthttp.DefaultTimeout)
	if err != nil {
		return err
	}

	transport := rt.transport
	if transport == nil {
		switch cc.Transport {
		case "fasthttp":
			transport = fasthttp.New(fasthttp.WithTimeout(timeout))
		default:
			transport = nethttp.New(nethttp.WithBlockPrivateNetworks(cc.BlockPrivateNetworks))
		}
	}

	mw := middleware.Install(middleware.New(), cc.Middleware, deps)
	stages, err := webhook.NewStagesFromConfig(cc.Stages, rt.logger)
	if err != nil {
		return err
	}
	webhook.Install(mw, stages)

	opts := []connector.Option{
		connector.WithTransport(transport),
		connector.WithTimeout(timeout),
		connector.WithLogger(rt.logger.With(slog.String("connector", cc.Name))),
		connector.WithMiddleware(mw),
	}
	for k, v := range cc.Headers {
		opts = append(opts, connector.WithHeader(k, v))
	}

	conn, err := connector.New(cc.Name, cc.BaseURL, opts...)
	if err != nil {
		return err
	}

	groups := make(map[string]*dispatch.Group, len(cc.Groups))
	for _, gc := range cc.Groups {
		g := dispatch.New(gc.Name, conn)
		for _, rc := range gc.Requests {
			if err := g.Register(rc.Name, connector.TemplateFactory(gc.Name, rc)); err != nil {
				return fmt.Errorf("group %s: %w", gc.Name, err)
			}
		}
		groups[gc.Name] = g
	}

	rt.connectors[cc.Name] = conn
	rt.groups[cc.Name] = groups
	return nil
}

// Config returns the configuration the runtime was built from.
func (rt *Runtime) Config() *config.Config {
	return rt.cfg
}

// Store returns the interaction store, or nil when recording is disabled.
func (rt *Runtime) Store() ports.InteractionStore {
	return rt.store
}

// Registry returns the Prometheus registry holding connector metrics.
func (rt *Runtime) Registry() *prometheus.Registry {
	return rt.registry
}

// Connectors returns the configured connector names, sorted.
func (rt *Runtime) Connectors() []string {
	names := make([]string, 0, len(rt.connectors))
	for name := range rt.connectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Connector returns the named connector.
func (rt *Runtime) Connector(name string) (*connector.Connector, error) {
	conn, ok := rt.connectors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrConnectorNotFound, name)
	}
	return conn, nil
}

// Group returns a request group of the named connector.
func (rt *Runtime) Group(connectorName, groupName string) (*dispatch.Group, error) {
	groups, ok := rt.groups[connectorName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrConnectorNotFound, connectorName)
	}
	g, ok := groups[groupName]
	if !ok {
		return nil, fmt.Errorf("%w: %q on connector %q", ErrGroupNotFound, groupName, connectorName)
	}
	return g, nil
}

// Dispatch builds and sends connector.group.request with args.
func (rt *Runtime) Dispatch(ctx context.Context, connectorName, groupName, requestName string, args ...any) (*domain.Response, error) {
	g, err := rt.Group(connectorName, groupName)
	if err != nil {
		return nil, err
	}
	return g.Dispatch(ctx, requestName, args...)
}

// Start serves the inspector API when it is enabled in config. It returns
// once the listener is bound.
func (rt *Runtime) Start(ctx context.Context) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if !rt.cfg.Inspector.Enabled || rt.server != nil {
		return nil
	}

	srv := server.New(rt.cfg.Inspector.Port, rt.logger)
	inspector.New(rt.store, rt.registry, rt.logger).Mount(srv.Router)

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", fmt.Sprintf(":%d", rt.cfg.Inspector.Port))
	if err != nil {
		return fmt.Errorf("start inspector: %w", err)
	}

	rt.server = srv
	rt.listener = ln
	rt.serveErr = make(chan error, 1)
	go func() {
		rt.serveErr <- srv.Serve(ln)
	}()

	return nil
}

// InspectorAddr returns the bound inspector address, or "" when not serving.
func (rt *Runtime) InspectorAddr() string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.listener == nil {
		return ""
	}
	return rt.listener.Addr().String()
}

// Shutdown stops the inspector and closes the store if the runtime opened it.
func (rt *Runtime) Shutdown(ctx context.Context) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	rt.logger.Info("shutting down runtime")

	var errs []error
	if rt.server != nil {
		if err := rt.server.Shutdown(ctx); err != nil {
			rt.logger.Error("failed to shutdown inspector", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		if err := <-rt.serveErr; err != nil {
			errs = append(errs, err)
		}
		rt.server = nil
		rt.listener = nil
	}

	if err := rt.closeStore(); err != nil {
		rt.logger.Error("failed to close storage", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (rt *Runtime) closeStore() error {
	if !rt.ownsStore || rt.store == nil {
		return nil
	}
	rt.ownsStore = false
	return rt.store.Close()
}
