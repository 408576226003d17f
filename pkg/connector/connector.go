// Package connector provides the public API for embedding API connectors.
// This is the stable API for external consumers.
package connector

import (
	"github.com/tjfontaine/polyglot-connector/internal/connector"
	"github.com/tjfontaine/polyglot-connector/internal/core/domain"
	"github.com/tjfontaine/polyglot-connector/internal/core/ports"
	"github.com/tjfontaine/polyglot-connector/internal/dispatch"
	"github.com/tjfontaine/polyglot-connector/internal/middleware"
	"github.com/tjfontaine/polyglot-connector/internal/pipeline"
	"github.com/tjfontaine/polyglot-connector/internal/runtime"
)

// Runtime builds connectors and groups from configuration.
// See internal/runtime.Runtime for full documentation.
type Runtime = runtime.Runtime

// RuntimeOption is a functional option for configuring a Runtime.
type RuntimeOption = runtime.Option

// NewRuntime creates a Runtime with the given options.
// Example:
//
//	rt, err := connector.NewRuntime(
//	    connector.WithConfigFile("config.yaml"),
//	    connector.WithSQLite("./data/interactions.db"),
//	)
//	resp, err := rt.Dispatch(ctx, "github", "repos", "get", "owner=octocat", "repo=hello-world")
var NewRuntime = runtime.New

// Runtime options
var (
	WithConfig     = runtime.WithConfig
	WithConfigFile = runtime.WithConfigFile
	WithLogger     = runtime.WithLogger

	// Storage
	WithStore       = runtime.WithStore
	WithMemoryStore = runtime.WithMemoryStore
	WithSQLite      = runtime.WithSQLite
	WithPostgres    = runtime.WithPostgres

	// Advanced options
	WithRegistry  = runtime.WithRegistry
	WithTransport = runtime.WithTransport
)

// Programmatic connectors
type (
	Connector = connector.Connector
	Option    = connector.Option

	Request        = ports.Request
	HeaderProvider = ports.HeaderProvider
	QueryProvider  = ports.QueryProvider
	BodyProvider   = ports.BodyProvider
	Named          = ports.Named
	Transport      = ports.Transport
	TransportFunc  = ports.TransportFunc

	PendingRequest = domain.PendingRequest
	Response       = domain.Response
)

var (
	New = connector.New

	WithConnectorTransport = connector.WithTransport
	WithHeaders            = connector.WithHeaders
	WithHeader             = connector.WithHeader
	WithTimeout            = connector.WithTimeout
	WithConnectorLogger    = connector.WithLogger
	WithTracer             = connector.WithTracer
	WithMiddleware         = connector.WithMiddleware
)

// Middleware
type (
	Middleware   = middleware.Pipeline
	RequestPipe  = middleware.RequestPipe
	ResponsePipe = middleware.ResponsePipe
	DeniedError  = pipeline.DeniedError
)

var (
	NewMiddleware = middleware.New
	HighPriority  = middleware.HighPriority
	IsDenied      = pipeline.IsDenied
)

// Dispatch groups
type (
	Group                = dispatch.Group
	RequestFactory       = dispatch.RequestFactory
	RequestNotFoundError = dispatch.RequestNotFoundError
)

var (
	NewGroup          = dispatch.New
	IsRequestNotFound = dispatch.IsRequestNotFound
)
