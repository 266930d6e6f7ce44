package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestExternalIPFromEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("203.0.113.7\n"))
	}))
	defer srv.Close()

	r := NewResolver(srv.URL, time.Second, zap.NewNop())
	if got := r.externalIP(context.Background()); got != "203.0.113.7" {
		t.Errorf("externalIP = %q, want 203.0.113.7", got)
	}
}

func TestExternalIPRejectsNonIPBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>blocked</html>"))
	}))
	defer srv.Close()

	r := NewResolver(srv.URL, time.Second, zap.NewNop())
	if got := r.externalIP(context.Background()); got != Unknown {
		t.Errorf("externalIP = %q, want %q", got, Unknown)
	}
}

func TestExternalIPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	r := NewResolver(srv.URL, time.Second, zap.NewNop())
	if got := r.externalIP(context.Background()); got != Unknown {
		t.Errorf("externalIP = %q, want %q", got, Unknown)
	}
}

func TestExternalIPUnreachableEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	r := NewResolver(url, 500*time.Millisecond, zap.NewNop())
	if got := r.externalIP(context.Background()); got != Unknown {
		t.Errorf("externalIP = %q, want %q", got, Unknown)
	}
}

func TestDetectNeverFailsHard(t *testing.T) {
	// Even with an unreachable IP endpoint, Detect returns a usable
	// identity; attributes degrade to Unknown independently.
	r := NewResolver("http://127.0.0.1:1", 200*time.Millisecond, zap.NewNop())
	id := r.Detect(context.Background())

	if id.MACAddress == "" {
		t.Error("MACAddress is empty, want value or Unknown")
	}
	if id.ExternalIP != Unknown {
		t.Errorf("ExternalIP = %q, want %q", id.ExternalIP, Unknown)
	}
}
