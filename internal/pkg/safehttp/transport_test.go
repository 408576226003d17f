package safehttp

import (
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestIsBlocked(t *testing.T) {
	tests := []struct {
		ip   string
		want bool
	}{
		{"127.0.0.1", true},
		{"10.1.2.3", true},
		{"192.168.0.10", true},
		{"169.254.169.254", true},
		{"::1", true},
		{"0.0.0.0", true},
		{"8.8.8.8", false},
		{"2606:4700:4700::1111", false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			if got := IsBlocked(net.ParseIP(tt.ip)); got != tt.want {
				t.Errorf("IsBlocked(%s) = %v, want %v", tt.ip, got, tt.want)
			}
		})
	}
}

func TestNewTransport_RejectsLoopback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := &http.Client{Transport: NewTransport()}
	_, err := client.Get(srv.URL)
	if err == nil {
		t.Fatal("expected loopback connection to be rejected")
	}

	var blocked *BlockedAddressError
	if !errors.As(err, &blocked) {
		t.Fatalf("expected BlockedAddressError, got %v", err)
	}
	if !blocked.IP.IsLoopback() {
		t.Errorf("expected loopback IP, got %s", blocked.IP)
	}
}
