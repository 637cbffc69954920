package archive

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/hazyhaar/coldtab/dbopen"
)

// Schema for the archive records database.
const Schema = `
CREATE TABLE IF NOT EXISTS archive_records (
	id          TEXT PRIMARY KEY,
	run_id      TEXT NOT NULL,
	archived_at INTEGER NOT NULL,
	title       TEXT NOT NULL,
	url         TEXT NOT NULL,
	domain      TEXT NOT NULL,
	size_bytes  INTEGER NOT NULL,
	page_count  INTEGER NOT NULL,
	pdf_path    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_archive_records_at ON archive_records(archived_at);
CREATE INDEX IF NOT EXISTS idx_archive_records_domain ON archive_records(domain);
`

// Store persists archive records in SQLite. It is append-only: records are
// inserted, never updated or deleted.
type Store struct {
	db *sql.DB
}

// NewStore wraps an existing database handle. Call Init to apply the schema.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Init applies the schema. Idempotent.
func (s *Store) Init() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return fmt.Errorf("archive: store schema: %w", err)
	}
	return nil
}

// OpenStore opens (or creates) the records database at path.
func OpenStore(path string) (*Store, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(Schema))
	if err != nil {
		return nil, fmt.Errorf("archive: open store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Insert appends one record.
func (s *Store) Insert(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO archive_records (
			id, run_id, archived_at, title, url, domain,
			size_bytes, page_count, pdf_path
		) VALUES (?,?,?,?,?,?,?,?,?)`,
		rec.ID, rec.RunID, rec.ArchivedAt.Unix(), rec.Title, rec.URL, rec.Domain,
		rec.Size, rec.Pages, rec.PDFPath)
	if err != nil {
		return fmt.Errorf("archive: insert record: %w", err)
	}
	return nil
}

// List returns the most recent records, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, archived_at, title, url, domain,
		       size_bytes, page_count, pdf_path
		FROM archive_records
		ORDER BY archived_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("archive: list records: %w", err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var rec Record
		var at int64
		if err := rows.Scan(&rec.ID, &rec.RunID, &at, &rec.Title, &rec.URL,
			&rec.Domain, &rec.Size, &rec.Pages, &rec.PDFPath); err != nil {
			return nil, err
		}
		rec.ArchivedAt = time.Unix(at, 0).UTC()
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// DomainStat is one row of the per-domain breakdown.
type DomainStat struct {
	Domain string `json:"domain"`
	Count  int    `json:"count"`
	Bytes  int64  `json:"bytes"`
}

// ArchiveStats summarises the whole archive.
type ArchiveStats struct {
	Records int          `json:"records"`
	Bytes   int64        `json:"bytes"`
	Domains []DomainStat `json:"domains"`
}

// Stats aggregates totals and a per-registrable-domain breakdown
// (sub.example.com and www.example.com fold into example.com).
func (s *Store) Stats(ctx context.Context) (*ArchiveStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT domain, COUNT(*), COALESCE(SUM(size_bytes), 0)
		FROM archive_records
		GROUP BY domain`)
	if err != nil {
		return nil, fmt.Errorf("archive: stats: %w", err)
	}
	defer rows.Close()

	stats := &ArchiveStats{}
	byDomain := map[string]*DomainStat{}
	for rows.Next() {
		var domain string
		var count int
		var bytes int64
		if err := rows.Scan(&domain, &count, &bytes); err != nil {
			return nil, err
		}
		stats.Records += count
		stats.Bytes += bytes

		key := registrableDomain(domain)
		ds, ok := byDomain[key]
		if !ok {
			ds = &DomainStat{Domain: key}
			byDomain[key] = ds
		}
		ds.Count += count
		ds.Bytes += bytes
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, ds := range byDomain {
		stats.Domains = append(stats.Domains, *ds)
	}
	sort.Slice(stats.Domains, func(i, j int) bool {
		if stats.Domains[i].Count != stats.Domains[j].Count {
			return stats.Domains[i].Count > stats.Domains[j].Count
		}
		return stats.Domains[i].Domain < stats.Domains[j].Domain
	})
	return stats, nil
}
