// Package snapshot renders web pages to PDF with an isolated headless
// browser per render.
//
// Every attempt launches its own Chromium via the rod launcher, so a crash
// or wedged renderer for one page cannot leak state into the next. Renders
// are retried a bounded number of times with a fixed backoff. A produced
// file is only accepted after pdfcpu validates it.
package snapshot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// A4 paper size in inches, as the print-to-PDF protocol expects.
const (
	paperWidthIn  = 8.27
	paperHeightIn = 11.69
)

// Config controls rendering behaviour.
type Config struct {
	// Retries is the number of attempts per page. Default: 3.
	Retries int

	// Backoff is the fixed delay between attempts. Default: 1s.
	Backoff time.Duration

	// NavTimeout bounds navigation plus load wait. Default: 15s.
	NavTimeout time.Duration

	// SettleDelay is extra time after load for late layout and lazy
	// content. Default: 3s.
	SettleDelay time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Retries <= 0 {
		c.Retries = 3
	}
	if c.Backoff <= 0 {
		c.Backoff = time.Second
	}
	if c.NavTimeout <= 0 {
		c.NavTimeout = 15 * time.Second
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = 3 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Result describes a successfully written snapshot.
type Result struct {
	Path  string
	Size  int64
	Pages int
}

// Renderer renders pages to PDF files.
type Renderer struct {
	cfg Config

	// renderOnce is swappable in tests.
	renderOnce func(ctx context.Context, pageURL, path string) error
}

// New creates a Renderer.
func New(cfg Config) *Renderer {
	cfg.defaults()
	r := &Renderer{cfg: cfg}
	r.renderOnce = r.renderBrowser
	return r
}

// Render navigates to pageURL and writes an A4 PDF to path, retrying up to
// the configured attempt count. Partial files from failed attempts are
// removed.
func (r *Renderer) Render(ctx context.Context, pageURL, path string) (Result, error) {
	log := r.cfg.Logger

	var lastErr error
	for attempt := 1; attempt <= r.cfg.Retries; attempt++ {
		err := r.renderOnce(ctx, pageURL, path)
		if err == nil {
			res, vErr := r.accept(path)
			if vErr == nil {
				return res, nil
			}
			err = vErr
		}

		lastErr = err
		os.Remove(path)
		log.Warn("snapshot attempt failed",
			"url", pageURL, "attempt", attempt, "of", r.cfg.Retries, "error", err)

		if attempt < r.cfg.Retries {
			select {
			case <-ctx.Done():
				return Result{}, fmt.Errorf("snapshot: %s: %w", pageURL, ctx.Err())
			case <-time.After(r.cfg.Backoff):
			}
		}
	}
	return Result{}, fmt.Errorf("snapshot: %s failed after %d attempts: %w",
		pageURL, r.cfg.Retries, lastErr)
}

// accept validates the written file with pdfcpu and stats it.
func (r *Renderer) accept(path string) (Result, error) {
	conf := model.NewDefaultConfiguration()
	if err := api.ValidateFile(path, conf); err != nil {
		return Result{}, fmt.Errorf("snapshot: validate: %w", err)
	}
	pages, err := api.PageCountFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("snapshot: page count: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return Result{}, fmt.Errorf("snapshot: stat: %w", err)
	}
	return Result{Path: path, Size: info.Size(), Pages: pages}, nil
}

// renderBrowser is one full attempt: launch, navigate, print, write, teardown.
func (r *Renderer) renderBrowser(ctx context.Context, pageURL, path string) error {
	log := r.cfg.Logger

	l := launcher.New().
		Headless(true).
		Set("disable-blink-features", "AutomationControlled")
	wsURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launch: %w", err)
	}

	browser := rod.New().ControlURL(wsURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return fmt.Errorf("connect: %w", err)
	}
	defer func() {
		browser.Close()
		l.Cleanup()
	}()

	page, err := stealth.Page(browser)
	if err != nil {
		return fmt.Errorf("create page: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, r.cfg.NavTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		return fmt.Errorf("navigate: %w", err)
	}

	// Tolerate a load-wait timeout: heavy pages often render fine even
	// when some subresource never finishes.
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		log.Debug("load wait incomplete, printing anyway", "url", pageURL, "error", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(r.cfg.SettleDelay):
	}

	stream, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground: true,
		PaperWidth:      f64(paperWidthIn),
		PaperHeight:     f64(paperHeightIn),
	})
	if err != nil {
		return fmt.Errorf("print: %w", err)
	}
	data, err := io.ReadAll(stream)
	if err != nil {
		return fmt.Errorf("read pdf stream: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func f64(v float64) *float64 { return &v }
