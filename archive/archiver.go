// Package archive is the coldtab pipeline: it matches open tabs against
// browser history, renders idle ones to PDF, records them in a browsable
// index, and closes the originals.
package archive

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hazyhaar/coldtab/devtools"
	"github.com/hazyhaar/coldtab/history"
	"github.com/hazyhaar/coldtab/safename"
	"github.com/hazyhaar/coldtab/snapshot"
)

// TabSource lists and closes browser tabs.
type TabSource interface {
	Version(ctx context.Context) (*devtools.Version, error)
	ListTabs(ctx context.Context) ([]devtools.Tab, error)
	CloseTab(ctx context.Context, id string) error
}

// HistorySource answers last-visit lookups for one run.
type HistorySource interface {
	LastVisit(ctx context.Context, url string) (time.Time, bool, error)
	Close() error
}

// Renderer produces a PDF snapshot of a URL.
type Renderer interface {
	Render(ctx context.Context, pageURL, path string) (snapshot.Result, error)
}

// Archiver runs the archival pipeline. Tabs are processed one at a time;
// a failing tab is logged and skipped, never fatal to the batch.
type Archiver struct {
	cfg    Config
	logger *slog.Logger

	tabs        TabSource
	render      Renderer
	openHistory func() (HistorySource, error)
	now         func() time.Time
}

// Option customises an Archiver, mainly for tests.
type Option func(*Archiver)

// WithTabSource replaces the DevTools client.
func WithTabSource(ts TabSource) Option { return func(a *Archiver) { a.tabs = ts } }

// WithRenderer replaces the snapshot renderer.
func WithRenderer(r Renderer) Option { return func(a *Archiver) { a.render = r } }

// WithHistoryOpener replaces how the history snapshot is acquired.
func WithHistoryOpener(open func() (HistorySource, error)) Option {
	return func(a *Archiver) { a.openHistory = open }
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option { return func(a *Archiver) { a.now = now } }

// New creates an Archiver. The zero collaborators default to the real
// DevTools endpoint, history snapshotting, and the rod renderer.
func New(cfg Config, logger *slog.Logger, opts ...Option) *Archiver {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}

	a := &Archiver{
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
	a.tabs = devtools.New(cfg.DebugPort, cfg.ConnTimeout, logger)
	a.render = snapshot.New(snapshot.Config{
		Retries:     cfg.MaxRetries,
		Backoff:     cfg.RetryBackoff,
		NavTimeout:  cfg.NavTimeout,
		SettleDelay: cfg.SettleDelay,
		Logger:      logger,
	})
	a.openHistory = func() (HistorySource, error) {
		return history.Open(cfg.ProfileDir, logger)
	}

	for _, o := range opts {
		o(a)
	}
	return a
}

// Config returns the effective configuration after defaulting.
func (a *Archiver) Config() Config { return a.cfg }

// Run executes one archival pass over the currently open tabs.
//
// An unreachable debugging endpoint aborts with zero tabs processed; a
// failed history copy aborts with every page tab counted as failed.
// Per-tab failures are logged and skipped.
func (a *Archiver) Run(ctx context.Context) (Summary, error) {
	log := a.logger
	sum := Summary{DryRun: a.cfg.DryRun}

	ver, err := a.tabs.Version(ctx)
	if err != nil {
		return sum, fmt.Errorf("archive: debugging endpoint unreachable: %w", err)
	}
	log.Debug("connected to browser", "browser", ver.Browser)

	tabs, err := a.tabs.ListTabs(ctx)
	if err != nil {
		return sum, fmt.Errorf("archive: list tabs: %w", err)
	}
	pages := devtools.PageTabs(tabs)
	sum.PageTabs = len(pages)
	log.Info("found open tabs", "pages", len(pages), "total", len(tabs))
	if len(pages) == 0 {
		return sum, nil
	}

	hist, err := a.openHistory()
	if err != nil {
		sum.Failed = len(pages)
		return sum, fmt.Errorf("archive: history snapshot: %w", err)
	}
	defer hist.Close()

	now := a.now().UTC()
	cutoff := now.AddDate(0, 0, -a.cfg.DaysIdle)
	dayDir := filepath.Join(a.cfg.Root, now.Format("2006-01-02"))
	log.Info("archiving tabs idle since", "cutoff", cutoff.Format("2006-01-02 15:04"))

	if !a.cfg.DryRun {
		if err := os.MkdirAll(dayDir, 0o755); err != nil {
			sum.Failed = len(pages)
			return sum, fmt.Errorf("archive: create day dir: %w", err)
		}
	}

	var out *runOutput
	defer func() { out.close() }()

	runID := uuid.Must(uuid.NewV7()).String()

	for _, tab := range pages {
		if ctx.Err() != nil {
			return sum, fmt.Errorf("archive: %w", ctx.Err())
		}

		lastVisit, ok, err := hist.LastVisit(ctx, tab.URL)
		if err != nil {
			log.Warn("history lookup failed", "url", tab.URL, "error", err)
			continue
		}
		if !ok {
			log.Debug("no history for tab", "title", tab.Title)
			continue
		}
		if !lastVisit.Before(cutoff) {
			log.Debug("tab not idle long enough", "title", tab.Title, "last_visit", lastVisit)
			continue
		}
		sum.Eligible++

		title := strings.TrimSpace(tab.Title)
		if title == "" {
			title = safename.Fallback
		}

		if a.cfg.DryRun {
			log.Info("[dry run] would archive", "title", title, "url", tab.URL)
			sum.Archived++
			continue
		}

		pdfPath := safename.Unique(dayDir, tab.Title, a.cfg.MaxFilenameLen, ".pdf")
		log.Info("archiving", "title", title, "pdf", pdfPath)

		res, err := a.render.Render(ctx, tab.URL, pdfPath)
		if err != nil {
			log.Error("snapshot failed, skipping tab", "title", title, "error", err)
			sum.Failed++
			continue
		}

		// Closing the original is best-effort; the archive is already safe.
		if err := a.tabs.CloseTab(ctx, tab.ID); err != nil {
			log.Warn("failed to close original tab", "id", tab.ID, "error", err)
		}

		rel, err := filepath.Rel(a.cfg.Root, pdfPath)
		if err != nil {
			rel = pdfPath
		}
		rec := Record{
			ID:         uuid.Must(uuid.NewV7()).String(),
			RunID:      runID,
			ArchivedAt: now,
			Title:      title,
			URL:        tab.URL,
			Domain:     domainOf(tab.URL),
			Size:       res.Size,
			Pages:      res.Pages,
			PDFPath:    rel,
		}

		if out == nil {
			out, err = a.openOutputs()
			if err != nil {
				os.Remove(pdfPath)
				sum.Failed++
				log.Error("opening index failed", "error", err)
				continue
			}
		}
		if err := out.commit(ctx, rec, pdfPath); err != nil {
			sum.Failed++
			log.Error("recording archive failed", "title", title, "error", err)
			continue
		}

		sum.Archived++
		log.Info("archived", "title", title, "size", res.Size, "pages", res.Pages)
	}

	return sum, nil
}

// runOutput bundles the two index sinks opened lazily on first success.
type runOutput struct {
	index  *Index
	store  *Store
	logger *slog.Logger
}

func (a *Archiver) openOutputs() (*runOutput, error) {
	store, err := OpenStore(filepath.Join(a.cfg.Root, "archive.db"))
	if err != nil {
		return nil, err
	}
	return &runOutput{
		index:  NewIndex(a.cfg.Root),
		store:  store,
		logger: a.logger,
	}, nil
}

// commit records one archived tab: the durable store row first, the HTML
// row after. A failed insert removes the snapshot so no index ever names a
// file that was not recorded; once the row is inserted the file stays, even
// when the HTML append fails, since the HTML view can be rebuilt from the
// store.
func (o *runOutput) commit(ctx context.Context, rec Record, pdfPath string) error {
	if err := o.store.Insert(ctx, rec); err != nil {
		os.Remove(pdfPath)
		return err
	}
	if err := o.index.Append(rec); err != nil {
		o.logger.Warn("index row not written", "title", rec.Title, "error", err)
	}
	return nil
}

func (o *runOutput) close() {
	if o == nil {
		return
	}
	o.store.Close()
}
