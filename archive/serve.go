package archive

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
)

// NewHandler serves the archive over HTTP: the HTML index and PDF tree as
// static files, plus a small JSON API. When cfg.AuthHash is set every route
// requires Basic Auth against that bcrypt hash.
func NewHandler(root string, store *Store, cfg ServeConfig, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	if cfg.AuthHash != "" {
		r.Use(basicAuth(cfg, logger))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Get("/api/records", func(w http.ResponseWriter, r *http.Request) {
		limit := queryInt(r, "limit", 50)
		recs, err := store.List(r.Context(), limit)
		if err != nil {
			writeError(w, 500, err)
			return
		}
		if recs == nil {
			recs = []Record{}
		}
		writeJSON(w, 200, recs)
	})

	r.Get("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		stats, err := store.Stats(r.Context())
		if err != nil {
			writeError(w, 500, err)
			return
		}
		writeJSON(w, 200, stats)
	})

	// index.html and the per-day PDF folders.
	r.Handle("/*", archiveFiles(root))

	return r
}

// archiveFiles serves the static archive tree but never the record
// database (archive.db and its -wal/-shm siblings).
func archiveFiles(root string) http.Handler {
	fs := http.FileServer(http.Dir(root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		base := path.Base(r.URL.Path)
		if base == "archive.db" || strings.HasPrefix(base, "archive.db-") {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	})
}

func basicAuth(cfg ServeConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok || user != cfg.AuthUser ||
				bcrypt.CompareHashAndPassword([]byte(cfg.AuthHash), []byte(pass)) != nil {
				logger.Debug("rejected index request", "remote", r.RemoteAddr)
				w.Header().Set("WWW-Authenticate", `Basic realm="coldtab"`)
				writeJSON(w, 401, map[string]string{"error": "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
