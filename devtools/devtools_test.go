package devtools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"
)

// testClient starts a fake DevTools endpoint and returns a Client bound to
// its port.
func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatal(err)
	}
	return New(port, 2*time.Second, nil)
}

func TestListTabs(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"id":"A","url":"https://example.com/","title":"Example","type":"page"},
			{"id":"B","url":"","title":"","type":"background_page"}
		]`))
	})

	c := testClient(t, mux)
	tabs, err := c.ListTabs(context.Background())
	if err != nil {
		t.Fatalf("ListTabs: %v", err)
	}
	if len(tabs) != 2 {
		t.Fatalf("got %d tabs, want 2", len(tabs))
	}
	if tabs[0].ID != "A" || tabs[0].Title != "Example" {
		t.Fatalf("unexpected first tab: %+v", tabs[0])
	}
}

func TestVersion(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/json/version", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Browser":"Chrome/130.0.0.0","Protocol-Version":"1.3"}`))
	})

	c := testClient(t, mux)
	v, err := c.Version(context.Background())
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if v.Browser != "Chrome/130.0.0.0" {
		t.Fatalf("browser = %q", v.Browser)
	}
}

func TestVersionUnreachable(t *testing.T) {
	// Port 1 is virtually never listening.
	c := New(1, 200*time.Millisecond, nil)
	if _, err := c.Version(context.Background()); err == nil {
		t.Fatal("expected error for unreachable endpoint")
	}
}

func TestCloseTab(t *testing.T) {
	var closedID string
	mux := http.NewServeMux()
	mux.HandleFunc("/json/close/", func(w http.ResponseWriter, r *http.Request) {
		closedID = r.URL.Path[len("/json/close/"):]
		w.Write([]byte("Target is closing"))
	})

	c := testClient(t, mux)
	if err := c.CloseTab(context.Background(), "ABC123"); err != nil {
		t.Fatalf("CloseTab: %v", err)
	}
	if closedID != "ABC123" {
		t.Fatalf("closed id = %q", closedID)
	}
}

func TestCloseTabErrorStatus(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such target", http.StatusNotFound)
	}))
	if err := c.CloseTab(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for 404 close")
	}
}

func TestPageTabs(t *testing.T) {
	tabs := []Tab{
		{ID: "1", URL: "https://example.com/", Type: "page"},
		{ID: "2", URL: "chrome://settings", Type: "page"},
		{ID: "3", URL: "chrome-extension://abc/popup.html", Type: "page"},
		{ID: "4", URL: "edge://flags", Type: "page"},
		{ID: "5", URL: "about:blank", Type: "page"},
		{ID: "6", URL: "devtools://devtools/bundled/inspector.html", Type: "page"},
		{ID: "7", URL: "https://example.org/", Type: "service_worker"},
		{ID: "8", URL: "", Type: "page"},
		{ID: "9", URL: "https://example.net/a", Type: "page"},
	}

	got := PageTabs(tabs)
	if len(got) != 2 {
		t.Fatalf("got %d page tabs, want 2: %+v", len(got), got)
	}
	if got[0].ID != "1" || got[1].ID != "9" {
		t.Fatalf("unexpected selection: %+v", got)
	}
}
