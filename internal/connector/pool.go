package connector

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/tjfontaine/polyglot-connector/internal/core/domain"
	"github.com/tjfontaine/polyglot-connector/internal/core/ports"
)

// Pool sends reqs concurrently with at most concurrency in flight (unbounded
// when concurrency <= 0). Responses are returned in input order. The first
// error cancels the context of the remaining sends and is returned; slots
// for requests that did not complete are nil.
func (c *Connector) Pool(ctx context.Context, reqs []ports.Request, concurrency int) ([]*domain.Response, error) {
	responses := make([]*domain.Response, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			resp, err := c.Send(gctx, req)
			if err != nil {
				return err
			}
			responses[i] = resp
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return responses, err
	}
	return responses, nil
}
