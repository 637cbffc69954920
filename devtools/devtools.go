// Package devtools is a thin client for a browser's remote-debugging HTTP
// endpoint (Chrome, Edge, anything speaking the DevTools JSON protocol).
//
// The endpoint lives on localhost and answers three requests coldtab cares
// about: version info (connectivity preflight), the open-target list, and
// close-target-by-id. Requests use a short timeout and are never retried;
// an unreachable endpoint means the browser is not running with
// --remote-debugging-port and the whole run should stop.
package devtools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Tab is one entry from the /json target list.
type Tab struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

// Version is the response of /json/version.
type Version struct {
	Browser         string `json:"Browser"`
	ProtocolVersion string `json:"Protocol-Version"`
	UserAgent       string `json:"User-Agent"`
}

// Client talks to the remote-debugging endpoint on localhost.
type Client struct {
	base   string
	client *http.Client
	logger *slog.Logger
}

// New creates a Client for the given debug port. A zero timeout defaults
// to 10 seconds.
func New(port int, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		base:   fmt.Sprintf("http://localhost:%d", port),
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Version fetches /json/version. Used as a connectivity preflight before
// any tab is touched.
func (c *Client) Version(ctx context.Context) (*Version, error) {
	var v Version
	if err := c.getJSON(ctx, "/json/version", &v); err != nil {
		return nil, fmt.Errorf("devtools: version: %w", err)
	}
	return &v, nil
}

// ListTabs fetches the full open-target list from /json.
func (c *Client) ListTabs(ctx context.Context) ([]Tab, error) {
	var tabs []Tab
	if err := c.getJSON(ctx, "/json", &tabs); err != nil {
		return nil, fmt.Errorf("devtools: list tabs: %w", err)
	}
	return tabs, nil
}

// CloseTab asks the browser to close the target with the given id.
func (c *Client) CloseTab(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/json/close/"+id, nil)
	if err != nil {
		return fmt.Errorf("devtools: close tab: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("devtools: close tab %s: %w", id, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("devtools: close tab %s: status %d", id, resp.StatusCode)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// internalSchemes are URL prefixes for browser-internal pages that have no
// meaningful snapshot.
var internalSchemes = []string{
	"chrome://",
	"chrome-extension://",
	"edge://",
	"about:",
	"devtools://",
}

// PageTabs filters the target list down to archivable page tabs: targets of
// type "page" with a non-empty, non-internal URL.
func PageTabs(tabs []Tab) []Tab {
	var pages []Tab
	for _, tab := range tabs {
		if tab.Type != "page" || tab.URL == "" {
			continue
		}
		if isInternal(tab.URL) {
			continue
		}
		pages = append(pages, tab)
	}
	return pages
}

func isInternal(url string) bool {
	for _, scheme := range internalSchemes {
		if strings.HasPrefix(url, scheme) {
			return true
		}
	}
	return false
}
