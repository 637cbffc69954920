package archive

import (
	"net"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// Record describes one archived tab. Records are append-only: a record
// exists if and only if its snapshot file was produced.
type Record struct {
	ID         string    `json:"id"`
	RunID      string    `json:"run_id"`
	ArchivedAt time.Time `json:"archived_at"`
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	Domain     string    `json:"domain"`
	Size       int64     `json:"size_bytes"`
	Pages      int       `json:"page_count"`
	// PDFPath is relative to the archive root, so index links survive
	// moving the whole directory.
	PDFPath string `json:"pdf_path"`
}

// Summary is the outcome of one archival run.
type Summary struct {
	PageTabs int  `json:"page_tabs"`
	Eligible int  `json:"eligible"`
	Archived int  `json:"archived"`
	Failed   int  `json:"failed"`
	DryRun   bool `json:"dry_run"`
}

// domainOf extracts the host of a URL for display, "unknown" when the URL
// does not parse.
func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	host := u.Host
	if h, _, splitErr := net.SplitHostPort(host); splitErr == nil {
		host = h
	}
	return host
}

// registrableDomain folds a host down to its eTLD+1 for stats grouping
// (docs.example.co.uk → example.co.uk). Hosts without a public suffix
// (localhost, IPs) group under themselves.
func registrableDomain(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	etld1, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return etld1
}
