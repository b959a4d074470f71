package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestProbeMeta_PrefersEtag(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("expected HEAD, got %s", r.Method)
		}
		w.Header().Set("Etag", `"abc123"`)
		w.Header().Set("Last-Modified", "Mon, 02 Jan 2006 15:04:05 GMT")
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	fetcher := NewFetcher(testClient(), testConfig(0), testLogger())
	meta, err := fetcher.ProbeMeta(context.Background(), server.URL, 5)

	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if meta == nil {
		t.Fatal("expected meta")
	}
	if meta.FreshnessToken != `"abc123"` {
		t.Errorf("expected etag token, got %q", meta.FreshnessToken)
	}
	if meta.FileType != "png" {
		t.Errorf("expected png filetype, got %q", meta.FileType)
	}
}

func TestProbeMeta_FallsBackToLastModified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Last-Modified", "Mon, 02 Jan 2006 15:04:05 GMT")
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	fetcher := NewFetcher(testClient(), testConfig(0), testLogger())
	meta, err := fetcher.ProbeMeta(context.Background(), server.URL, 5)

	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if meta.FreshnessToken != "Mon, 02 Jan 2006 15:04:05 GMT" {
		t.Errorf("unexpected token %q", meta.FreshnessToken)
	}
}

func TestProbeMeta_Non2xxYieldsNoMeta(t *testing.T) {
	attempts := &atomic.Int32{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	fetcher := NewFetcher(testClient(), testConfig(0), testLogger())
	meta, err := fetcher.ProbeMeta(context.Background(), server.URL, 5)

	if err != nil {
		t.Fatalf("expected no error for non-2xx, got: %v", err)
	}
	if meta != nil {
		t.Errorf("expected nil meta, got %+v", meta)
	}
	if attempts.Load() != 1 {
		t.Errorf("non-2xx should not be retried, got %d attempts", attempts.Load())
	}
}

func TestProbeMeta_NetworkErrorExhaustsAttempts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	fetcher := NewFetcher(testClient(), testConfig(0), testLogger())
	meta, err := fetcher.ProbeMeta(context.Background(), server.URL, 3)

	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if meta != nil {
		t.Errorf("expected nil meta, got %+v", meta)
	}
}

func TestFileTypeFromContentType(t *testing.T) {
	tests := []struct {
		contentType string
		expected    string
	}{
		{"image/jpeg", "jpeg"},
		{"image/png; charset=binary", "png"},
		{"video/mp4", "mp4"},
		{"application/pdf", "pdf"},
		{"", ""},
		{"garbage;;;", ""},
	}
	for _, tt := range tests {
		if got := fileTypeFromContentType(tt.contentType); got != tt.expected {
			t.Errorf("fileTypeFromContentType(%q) = %q, want %q", tt.contentType, got, tt.expected)
		}
	}
}
