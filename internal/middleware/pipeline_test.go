package middleware

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/tjfontaine/polyglot-connector/internal/core/domain"
)

func newRequest() *domain.PendingRequest {
	return domain.NewPendingRequest("test", "GET", "https://api.example.com", "/users")
}

// tagPipe records label in order and returns nil (keep).
func tagPipe(label string, order *[]string) RequestPipe {
	return func(ctx context.Context, req *domain.PendingRequest) (*domain.PendingRequest, error) {
		*order = append(*order, label)
		return nil, nil
	}
}

func TestPipeline_NilReturnKeepsRequest(t *testing.T) {
	p := New()
	p.AddRequestPipe(func(ctx context.Context, req *domain.PendingRequest) (*domain.PendingRequest, error) {
		req.Headers.Set("X-Touched", "yes")
		return nil, nil
	})
	p.AddRequestPipe(func(ctx context.Context, req *domain.PendingRequest) (*domain.PendingRequest, error) {
		return req, nil
	})

	in := newRequest()
	out, err := p.ExecuteRequestPipeline(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != in {
		t.Error("expected the original request to be returned")
	}
	if out.Headers.Get("X-Touched") != "yes" {
		t.Error("expected in-place mutation to be visible")
	}
}

func TestPipeline_ReplaceRequest(t *testing.T) {
	replacement := domain.NewPendingRequest("test", "POST", "https://other.example.com", "/v2/users")
	var seen *domain.PendingRequest

	p := New()
	p.AddRequestPipe(func(ctx context.Context, req *domain.PendingRequest) (*domain.PendingRequest, error) {
		return replacement, nil
	})
	p.AddRequestPipe(func(ctx context.Context, req *domain.PendingRequest) (*domain.PendingRequest, error) {
		seen = req
		return nil, nil
	})

	out, err := p.ExecuteRequestPipeline(context.Background(), newRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen != replacement {
		t.Error("expected later pipe to receive the replacement")
	}
	if out != replacement {
		t.Error("expected replacement to be returned")
	}
}

func TestPipeline_ReplaceResponse(t *testing.T) {
	p := New()
	p.AddResponsePipe(func(ctx context.Context, resp *domain.Response) (*domain.Response, error) {
		return &domain.Response{StatusCode: 299, Request: resp.Request}, nil
	})

	out, err := p.ExecuteResponsePipeline(context.Background(), &domain.Response{StatusCode: 200})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.StatusCode != 299 {
		t.Errorf("expected status 299, got %d", out.StatusCode)
	}
}

func TestPipeline_HighPriority(t *testing.T) {
	var order []string
	p := New()
	p.AddRequestPipe(tagPipe("normal-1", &order))
	p.AddRequestPipe(tagPipe("high-1", &order), HighPriority())
	p.AddRequestPipe(tagPipe("normal-2", &order))
	p.AddRequestPipe(tagPipe("high-2", &order), HighPriority())

	if _, err := p.ExecuteRequestPipeline(context.Background(), newRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"high-1", "high-2", "normal-1", "normal-2"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("expected %v, got %v", want, order)
	}
}

func TestPipeline_ErrorPropagates(t *testing.T) {
	errDenied := errors.New("denied")
	var order []string

	p := New()
	p.AddRequestPipe(tagPipe("first", &order))
	p.AddRequestPipe(func(ctx context.Context, req *domain.PendingRequest) (*domain.PendingRequest, error) {
		return nil, errDenied
	})
	p.AddRequestPipe(tagPipe("never", &order))

	in := newRequest()
	out, err := p.ExecuteRequestPipeline(context.Background(), in)
	if err != errDenied {
		t.Fatalf("expected errDenied unchanged, got %v", err)
	}
	if out != in {
		t.Error("expected request as it stood before the failing pipe")
	}
	if !reflect.DeepEqual(order, []string{"first"}) {
		t.Errorf("expected processing to stop, got %v", order)
	}
}

func TestPipeline_Merge(t *testing.T) {
	var order []string

	a := New()
	a.AddRequestPipe(tagPipe("a1", &order))
	a.AddRequestPipe(tagPipe("a2", &order))

	b := New()
	b.AddRequestPipe(tagPipe("b1", &order))
	b.AddRequestPipe(tagPipe("b2", &order), HighPriority())

	merged := New().Merge(a).Merge(b)

	if _, err := merged.ExecuteRequestPipeline(context.Background(), newRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// b's high-priority pipe leads within b, but is not hoisted above a.
	want := []string{"a1", "a2", "b2", "b1"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("expected %v, got %v", want, order)
	}

	if a.RequestPipeline().Len() != 2 || b.RequestPipeline().Len() != 2 {
		t.Error("expected merge sources to be left unchanged")
	}
}

func TestPipeline_MergeNil(t *testing.T) {
	p := New()
	p.AddResponsePipe(func(ctx context.Context, resp *domain.Response) (*domain.Response, error) {
		return nil, nil
	})

	if p.Merge(nil) != p {
		t.Error("expected Merge(nil) to return the receiver")
	}
	if p.ResponsePipeline().Len() != 1 {
		t.Errorf("expected 1 response pipe, got %d", p.ResponsePipeline().Len())
	}
}

func TestPipeline_NilPipeIgnored(t *testing.T) {
	p := New()
	p.AddRequestPipe(nil)
	p.AddResponsePipe(nil)

	if p.RequestPipeline().Len() != 0 || p.ResponsePipeline().Len() != 0 {
		t.Error("expected nil pipes to be ignored")
	}
}
