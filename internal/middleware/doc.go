/*
Package middleware provides the request/response pipe pair used by
connectors, plus the built-in pipes that can be switched on per connector.

# Overview

A Pipeline owns two ordered pipelines: one for outgoing requests and one for
incoming responses. Connectors build one Pipeline at construction time and
merge it with a request's own Pipeline on every send:

	effective := middleware.New().Merge(connector.Middleware()).Merge(request.Middleware())

Pipes registered with HighPriority run before every normal pipe of the same
Pipeline. Merge concatenates; it does not re-sort priorities across the two
sources.

# Built-in Pipes

The built-in pipes are organized into separate files:

## Request ID (requestid.go)

RequestIDPipe assigns a UUID to each request (unless one is already set) and
sends it as the X-Request-ID header. It is registered with high priority so
every later pipe sees the ID.

## Logging (logging.go)

LoggingPipes logs request start (method, url) and completion (status,
duration) with slog.

## Metrics (metrics.go)

MetricsPipe records a request counter and a latency histogram per connector
and method.

## Decompression (decompress.go)

DecompressPipe decodes br, gzip and deflate response bodies in place.

## Recording (record.go)

RecordPipe persists every exchange to an InteractionStore. Storage failures
are logged and never fail the send.

# Install Order

Install registers the enabled built-ins in this order:
 1. RequestIDPipe (request, high priority)
 2. DecompressPipe (response, high priority)
 3. LoggingPipes
 4. MetricsPipe
 5. RecordPipe
*/
package middleware
