package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRenderRetriesAreBounded(t *testing.T) {
	r := New(Config{Retries: 3, Backoff: time.Millisecond})

	var calls int
	r.renderOnce = func(ctx context.Context, pageURL, path string) error {
		calls++
		return fmt.Errorf("boom %d", calls)
	}

	_, err := r.Render(context.Background(), "https://example.com/", filepath.Join(t.TempDir(), "out.pdf"))
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if calls != 3 {
		t.Fatalf("renderOnce called %d times, want 3", calls)
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Fatalf("error should mention attempt count: %v", err)
	}
}

func TestRenderRemovesPartialFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "partial.pdf")

	r := New(Config{Retries: 2, Backoff: time.Millisecond})
	r.renderOnce = func(ctx context.Context, pageURL, p string) error {
		// Simulate a crash mid-write: file exists but attempt errors.
		os.WriteFile(p, []byte("half a pdf"), 0o644)
		return errors.New("renderer crashed")
	}

	if _, err := r.Render(context.Background(), "https://example.com/", path); err == nil {
		t.Fatal("expected error")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("partial file should be removed, stat err: %v", err)
	}
}

func TestRenderInvalidPDFCountsAsFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.pdf")

	r := New(Config{Retries: 2, Backoff: time.Millisecond})
	var calls int
	r.renderOnce = func(ctx context.Context, pageURL, p string) error {
		calls++
		// Attempt "succeeds" but produces garbage; validation must reject it.
		return os.WriteFile(p, []byte("not a pdf at all"), 0o644)
	}

	_, err := r.Render(context.Background(), "https://example.com/", path)
	if err == nil {
		t.Fatal("expected validation failure")
	}
	if calls != 2 {
		t.Fatalf("renderOnce called %d times, want 2", calls)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Fatal("rejected file should be removed")
	}
}

func TestRenderStopsOnCancelledContext(t *testing.T) {
	r := New(Config{Retries: 5, Backoff: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	r.renderOnce = func(ctx context.Context, pageURL, p string) error {
		cancel()
		return errors.New("transient")
	}

	start := time.Now()
	_, err := r.Render(ctx, "https://example.com/", filepath.Join(t.TempDir(), "out.pdf"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("Render waited through backoff despite cancelled context")
	}
}
