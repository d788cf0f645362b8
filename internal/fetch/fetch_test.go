package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewHTTPClient(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		client, err := NewHTTPClient(ClientConfig{Timeout: 5 * time.Second})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client.Timeout != 5*time.Second {
			t.Errorf("expected timeout 5s, got %v", client.Timeout)
		}
		if client.Jar == nil {
			t.Error("expected cookie jar to be set")
		}
		if _, ok := client.Transport.(*headerInjectingTransport); ok {
			t.Error("expected plain transport without cookie or headers")
		}
	})

	t.Run("with headers", func(t *testing.T) {
		t.Parallel()

		client, err := NewHTTPClient(ClientConfig{
			Timeout: time.Second,
			Cookie:  "session=abc",
			Headers: map[string]string{"X-Test": "1"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := client.Transport.(*headerInjectingTransport); !ok {
			t.Error("expected header injecting transport")
		}
	})

	t.Run("with proxy", func(t *testing.T) {
		t.Parallel()

		client, err := NewHTTPClient(ClientConfig{Timeout: time.Second, ProxyAddress: "127.0.0.1:9050"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tr, ok := client.Transport.(*http.Transport)
		if !ok {
			t.Fatalf("expected *http.Transport, got %T", client.Transport)
		}
		if tr.DialContext == nil {
			t.Error("expected DialContext to be set for SOCKS5 proxy")
		}
		if tr.Proxy != nil {
			t.Error("expected environment proxy to be disabled")
		}
	})

	t.Run("invalid proxy", func(t *testing.T) {
		t.Parallel()

		if _, err := NewHTTPClient(ClientConfig{ProxyAddress: "no-port"}); err == nil {
			t.Error("expected error for proxy address without port")
		}
	})
}

func TestHeaderInjectingTransport(t *testing.T) {
	t.Parallel()

	var (
		mu                   sync.Mutex
		gotCookie, gotHeader string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotCookie = r.Header.Get("Cookie")
		gotHeader = r.Header.Get("Authorization")
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := NewHTTPClient(ClientConfig{
		Timeout: 5 * time.Second,
		Cookie:  "session=abc",
		Headers: map[string]string{"Authorization": "Bearer token"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	mu.Lock()
	defer mu.Unlock()
	if gotCookie != "session=abc" {
		t.Errorf("expected cookie %q, got %q", "session=abc", gotCookie)
	}
	if gotHeader != "Bearer token" {
		t.Errorf("expected header %q, got %q", "Bearer token", gotHeader)
	}
}

func TestRedirectCap(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Redirect(w, r, "/loop", http.StatusFound)
	}))
	defer srv.Close()

	client, err := NewHTTPClient(ClientConfig{Timeout: 5 * time.Second, MaxRedirects: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		t.Errorf("expected last response status 302, got %d", resp.StatusCode)
	}
	if got := hits.Load(); got != 3 {
		t.Errorf("expected 3 requests, got %d", got)
	}
}

func TestHTTPFetcher_Fetch(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "test-agent" {
			http.Error(w, "bad agent", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>hello</body></html>"))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, _ *http.Request) {
		http.NotFound(w, nil)
	})
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ok", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/big", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(strings.Repeat("x", 100)))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	f := NewHTTPFetcher(srv.Client(), WithUserAgent("test-agent"), WithMaxBodySize(10))

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		f := NewHTTPFetcher(srv.Client(), WithUserAgent("test-agent"))
		resp, err := f.Fetch(context.Background(), srv.URL+"/ok")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", resp.StatusCode)
		}
		if !strings.Contains(string(resp.Body), "hello") {
			t.Errorf("expected body to contain hello, got %q", resp.Body)
		}
		if !resp.IsHTML() {
			t.Error("expected HTML response")
		}
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()

		_, err := f.Fetch(context.Background(), srv.URL+"/missing")
		if err == nil {
			t.Fatal("expected error")
		}
		if !errors.Is(err, ErrHTTPStatus) {
			t.Errorf("expected ErrHTTPStatus, got %v", err)
		}
		if KindOf(err) != KindHTTPStatus {
			t.Errorf("expected kind %q, got %q", KindHTTPStatus, KindOf(err))
		}
		if StatusOf(err) != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", StatusOf(err))
		}
		if !strings.Contains(err.Error(), "404") {
			t.Errorf("expected message to contain 404, got %q", err.Error())
		}
	})

	t.Run("redirect final url", func(t *testing.T) {
		t.Parallel()

		f := NewHTTPFetcher(srv.Client(), WithUserAgent("test-agent"))
		resp, err := f.Fetch(context.Background(), srv.URL+"/moved")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.FinalURL != srv.URL+"/ok" {
			t.Errorf("expected final url %q, got %q", srv.URL+"/ok", resp.FinalURL)
		}
		if resp.URL != srv.URL+"/moved" {
			t.Errorf("expected url %q, got %q", srv.URL+"/moved", resp.URL)
		}
	})

	t.Run("body limit", func(t *testing.T) {
		t.Parallel()

		resp, err := f.Fetch(context.Background(), srv.URL+"/big")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(resp.Body) != 10 {
			t.Errorf("expected body truncated to 10 bytes, got %d", len(resp.Body))
		}
		if resp.IsHTML() {
			t.Error("expected text/plain not to be HTML")
		}
	})

	t.Run("connection refused", func(t *testing.T) {
		t.Parallel()

		closed := httptest.NewServer(http.NotFoundHandler())
		addr := closed.URL
		closed.Close()

		_, err := f.Fetch(context.Background(), addr)
		if err == nil {
			t.Fatal("expected error")
		}
		if KindOf(err) != KindNetwork {
			t.Errorf("expected kind %q, got %q", KindNetwork, KindOf(err))
		}
	})
}

func TestHTTPFetcher_Timeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := NewHTTPClient(ClientConfig{Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = NewHTTPFetcher(client).Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if KindOf(err) != KindTimeout {
		t.Errorf("expected kind %q, got %q (%v)", KindTimeout, KindOf(err), err)
	}
}

func TestHTTPFetcher_Cancelled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHTTPFetcher(srv.Client()).Fetch(ctx, srv.URL)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestResponse_IsHTML(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		contentType string
		want        bool
	}{
		{name: "empty", contentType: "", want: true},
		{name: "html", contentType: "text/html", want: true},
		{name: "html charset", contentType: "text/html; charset=iso-8859-1", want: true},
		{name: "xhtml", contentType: "application/xhtml+xml", want: true},
		{name: "json", contentType: "application/json", want: false},
		{name: "pdf", contentType: "application/pdf", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := &Response{ContentType: tt.contentType}
			if got := r.IsHTML(); got != tt.want {
				t.Errorf("IsHTML(%q) = %v, want %v", tt.contentType, got, tt.want)
			}
		})
	}
}
