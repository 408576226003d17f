// Package dispatch resolves symbolic request names to request factories and
// sends the resulting requests through a connector.
//
// A Group is an explicit lookup table owned by one connector:
//
//	users := dispatch.New("users", conn)
//	users.Register("get", func(args ...any) (ports.Request, error) {
//	    return GetUser{ID: args[0].(string)}, nil
//	})
//	resp, err := users.Dispatch(ctx, "get", "42")
//
// Dispatching an unknown name fails with *RequestNotFoundError before any
// factory, pipeline or transport is touched.
package dispatch

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tjfontaine/polyglot-connector/internal/core/domain"
	"github.com/tjfontaine/polyglot-connector/internal/core/ports"
)

// RequestFactory builds a request from dispatch arguments.
type RequestFactory func(args ...any) (ports.Request, error)

// Group is a named table of request factories bound to one sender.
type Group struct {
	name   string
	sender ports.Sender

	mu       sync.RWMutex
	requests map[string]RequestFactory
}

// New creates an empty group that sends through sender.
func New(name string, sender ports.Sender) *Group {
	return &Group{
		name:     name,
		sender:   sender,
		requests: make(map[string]RequestFactory),
	}
}

// Name returns the group name.
func (g *Group) Name() string {
	return g.name
}

// Connector returns the name of the sender the group dispatches through.
func (g *Group) Connector() string {
	if g.sender == nil {
		return ""
	}
	return g.sender.Name()
}

// Register adds a factory under name. Registering a name twice is an error.
func (g *Group) Register(name string, factory RequestFactory) error {
	if name == "" {
		return fmt.Errorf("group %s: request name cannot be empty", g.name)
	}
	if factory == nil {
		return fmt.Errorf("group %s: request %q has no factory", g.name, name)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.requests[name]; exists {
		return fmt.Errorf("group %s: request %q already registered", g.name, name)
	}
	g.requests[name] = factory
	return nil
}

// MustRegister is like Register but panics on error.
func (g *Group) MustRegister(name string, factory RequestFactory) *Group {
	if err := g.Register(name, factory); err != nil {
		panic(err)
	}
	return g
}

// Lookup returns the factory registered under name, if any.
func (g *Group) Lookup(name string) (RequestFactory, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	f, ok := g.requests[name]
	return f, ok
}

// Names returns the registered request names sorted alphabetically.
func (g *Group) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	names := make([]string, 0, len(g.requests))
	for name := range g.requests {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch builds the request registered under name from args and sends it.
func (g *Group) Dispatch(ctx context.Context, name string, args ...any) (*domain.Response, error) {
	factory, ok := g.Lookup(name)
	if !ok {
		return nil, &RequestNotFoundError{
			RequestName: name,
			GroupName:   g.name,
			Connector:   g.Connector(),
		}
	}

	req, err := factory(args...)
	if err != nil {
		return nil, fmt.Errorf("build request %s.%s: %w", g.name, name, err)
	}

	return g.sender.Send(ctx, req)
}
