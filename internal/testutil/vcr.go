// Package testutil holds go-vcr helpers for recording and replaying HTTP
// exchanges in tests.
package testutil

import (
	"net/http"
	"path/filepath"
	"testing"

	"gopkg.in/dnaeon/go-vcr.v2/cassette"
	"gopkg.in/dnaeon/go-vcr.v2/recorder"
)

// redactedHeaders never reach a cassette file.
var redactedHeaders = []string{"Authorization", "Proxy-Authorization", "Cookie", "X-Api-Key"}

// NewVCRRecorderAt creates a recorder for an explicit cassette path and mode.
// realTransport is used when recording; nil means http.DefaultTransport.
func NewVCRRecorderAt(t *testing.T, cassettePath string, mode recorder.Mode, realTransport http.RoundTripper) (*recorder.Recorder, func()) {
	t.Helper()

	r, err := recorder.NewAsMode(cassettePath, mode, realTransport)
	if err != nil {
		t.Fatalf("Failed to create VCR recorder: %v", err)
	}

	// Don't match on request body for simplicity
	r.SetMatcher(func(r *http.Request, i cassette.Request) bool {
		return r.Method == i.Method && r.URL.String() == i.URL
	})

	r.AddFilter(func(i *cassette.Interaction) error {
		for _, h := range redactedHeaders {
			delete(i.Request.Headers, h)
		}
		return nil
	})

	cleanup := func() {
		if err := r.Stop(); err != nil {
			t.Errorf("Failed to stop VCR recorder: %v", err)
		}
	}

	return r, cleanup
}

// CassettePath returns a cassette path inside a per-test temp directory.
func CassettePath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}

// VCRHTTPClient returns an HTTP client that sends through r.
func VCRHTTPClient(r *recorder.Recorder) *http.Client {
	return &http.Client{
		Transport: r,
	}
}
