// Package history answers "when was this URL last visited" from a browser
// profile's History database.
//
// The live History file is locked by the running browser, so the package
// copies it to a temporary path and opens the copy read-only. The copy is
// private and removed on Close.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hazyhaar/coldtab/dbopen"
)

// Chromium stores timestamps as microseconds since 1601-01-01 UTC.
// This is the offset between that epoch and the Unix epoch.
const chromeEpochOffsetMicros = 11_644_473_600_000_000

// FromChromeTime converts a Chromium timestamp to a UTC time.Time.
func FromChromeTime(micros int64) time.Time {
	return time.UnixMicro(micros - chromeEpochOffsetMicros).UTC()
}

// ToChromeTime converts a time.Time to a Chromium timestamp.
func ToChromeTime(t time.Time) int64 {
	return t.UnixMicro() + chromeEpochOffsetMicros
}

// Snapshot is a read-only view over a private copy of a History database.
type Snapshot struct {
	db      *sql.DB
	tmpPath string
	logger  *slog.Logger
}

// Open copies <profileDir>/History to the system temp directory and opens
// the copy. The caller must Close the snapshot to release and remove it.
func Open(profileDir string, logger *slog.Logger) (*Snapshot, error) {
	if logger == nil {
		logger = slog.Default()
	}

	src := filepath.Join(profileDir, "History")
	if _, err := os.Stat(src); err != nil {
		return nil, fmt.Errorf("history: database not found at %s: %w", src, err)
	}

	tmp := filepath.Join(os.TempDir(), fmt.Sprintf("coldtab_history_%d", time.Now().UnixNano()))
	if err := copyFile(src, tmp); err != nil {
		return nil, fmt.Errorf("history: copy to %s: %w", tmp, err)
	}

	db, err := dbopen.Open(tmp, dbopen.Immutable())
	if err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("history: open snapshot: %w", err)
	}

	logger.Debug("history snapshot ready", "source", src, "copy", tmp)
	return &Snapshot{db: db, tmpPath: tmp, logger: logger}, nil
}

// LastVisit returns the last recorded visit time for url. The second return
// is false when the URL has no history row.
func (s *Snapshot) LastVisit(ctx context.Context, url string) (time.Time, bool, error) {
	var micros int64
	err := s.db.QueryRowContext(ctx,
		`SELECT last_visit_time FROM urls WHERE url = ? LIMIT 1`, url).Scan(&micros)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("history: query %s: %w", url, err)
	}
	return FromChromeTime(micros), true, nil
}

// Close releases the database handle and removes the temporary copy.
func (s *Snapshot) Close() error {
	err := s.db.Close()
	if rmErr := os.Remove(s.tmpPath); rmErr != nil && err == nil {
		err = rmErr
	}
	return err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
