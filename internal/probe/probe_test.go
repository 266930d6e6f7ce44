package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestCheckHTTPSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := New(2*time.Second, zap.NewNop())
	if !p.Check(context.Background(), srv.URL) {
		t.Error("Check() = false for healthy HTTP endpoint, want true")
	}
}

func TestCheckHTTPRedirectCountsAsReachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/moved" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Redirect(w, r, "/moved", http.StatusFound)
	}))
	defer srv.Close()

	p := New(2*time.Second, zap.NewNop())
	if !p.Check(context.Background(), srv.URL) {
		t.Error("Check() = false for redirecting endpoint, want true")
	}
}

func TestCheckHTTPServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := New(2*time.Second, zap.NewNop())
	if p.Check(context.Background(), srv.URL) {
		t.Error("Check() = true for 500 response, want false")
	}
}

func TestCheckHTTPConnectionRefused(t *testing.T) {
	// Reserve a port, then close it so nothing listens there.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	p := New(time.Second, zap.NewNop())
	if p.Check(context.Background(), url) {
		t.Error("Check() = true for closed port, want false")
	}
}

func TestCheckHTTPTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	p := New(50*time.Millisecond, zap.NewNop())
	start := time.Now()
	if p.Check(context.Background(), srv.URL) {
		t.Error("Check() = true for slow endpoint, want false")
	}
	if elapsed := time.Since(start); elapsed > 450*time.Millisecond {
		t.Errorf("Check blocked %v, want bounded by timeout", elapsed)
	}
}

func TestCheckMalformedTargetFailsClosed(t *testing.T) {
	p := New(time.Second, zap.NewNop())

	for _, target := range []string{
		"",
		"://nope",
		"ftp://example.com",
	} {
		if p.Check(context.Background(), target) {
			t.Errorf("Check(%q) = true, want false (fail closed)", target)
		}
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"example.com", "http://example.com"},
		{"http://example.com", "http://example.com"},
		{"https://example.com/health", "https://example.com/health"},
	}
	for _, tt := range tests {
		if got := normalizeURL(tt.in); got != tt.want {
			t.Errorf("normalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
