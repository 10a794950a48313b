package highlight

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/lucidnotes/lucid-search/internal/config"
	"github.com/lucidnotes/lucid-search/internal/pkg/errors"
	"github.com/lucidnotes/lucid-search/internal/pkg/logger"
)

// Store provides highlight persistence backed by Postgres.
//
// Search only ever reads through it: the lexical retrieval leg and the
// per-candidate hydration lookups. Writes happen in the CRUD and
// integration-sync flows, which also feed the vector indexer.
type Store struct {
	db  *sql.DB
	log *logger.Logger
}

// Open connects to Postgres and returns a Store.
func Open(cfg config.PostgresConfig, log *logger.Logger) (*Store, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	return NewStore(db, log), nil
}

// NewStore wraps an existing database handle.
func NewStore(db *sql.DB, log *logger.Logger) *Store {
	return &Store{db: db, log: log}
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// LexicalSearch runs a user-scoped full-text query and returns up to count
// candidates ordered by the native text-relevance rank. An empty match set
// is not an error.
func (s *Store) LexicalSearch(ctx context.Context, text, userID string, count int) ([]RankedCandidate, error) {
	const q = `
		SELECT h.id, ts_rank_cd(h.search_vector, query) AS rank
		FROM highlights h, websearch_to_tsquery('english', $1) query
		WHERE h.user_id = $2
		  AND h.search_vector @@ query
		ORDER BY rank DESC, h.id
		LIMIT $3`

	rows, err := s.db.QueryContext(ctx, q, text, userID, count)
	if err != nil {
		return nil, errors.RetrievalError("lexical search failed", err)
	}
	defer rows.Close()

	var candidates []RankedCandidate
	for rows.Next() {
		var c RankedCandidate
		if err := rows.Scan(&c.ID, &c.NativeScore); err != nil {
			return nil, errors.RetrievalError("scanning lexical result", err)
		}
		c.SourceRank = len(candidates) + 1
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.RetrievalError("reading lexical results", err)
	}

	return candidates, nil
}

// Hydrate expands a candidate id into the full highlight record with its
// categories, tags, and attached note, scoped to the requesting user.
// Returns (nil, nil) when no row matches (id, userID) - a deleted or
// foreign-owned candidate is dropped, not an error.
func (s *Store) Hydrate(ctx context.Context, id, userID string) (*Highlight, error) {
	const q = `
		SELECT h.id, h.book_id, COALESCE(h.source_id, ''), h.text,
		       COALESCE(h.note, ''), COALESCE(h.location, ''),
		       COALESCE(h.location_type, ''), h.highlighted_at,
		       COALESCE(h.source_url, ''), COALESCE(h.color, ''),
		       n.content, h.created_at, h.updated_at
		FROM highlights h
		LEFT JOIN notes n ON n.highlight_id = h.id AND n.user_id = h.user_id
		WHERE h.id = $1 AND h.user_id = $2`

	var h Highlight
	err := s.db.QueryRowContext(ctx, q, id, userID).Scan(
		&h.ID, &h.BookID, &h.SourceID, &h.Text,
		&h.Note, &h.Location, &h.LocationType, &h.HighlightedAt,
		&h.SourceURL, &h.Color, &h.UserNote, &h.CreatedAt, &h.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.RetrievalError("hydrating highlight", err)
	}

	h.Categories, err = s.loadCategories(ctx, id)
	if err != nil {
		return nil, err
	}

	h.Tags, err = s.loadTags(ctx, id)
	if err != nil {
		return nil, err
	}

	return &h, nil
}

func (s *Store) loadCategories(ctx context.Context, highlightID string) ([]Category, error) {
	const q = `
		SELECT c.id, c.name
		FROM categories c
		JOIN highlight_categories hc ON hc.category_id = c.id
		WHERE hc.highlight_id = $1
		ORDER BY c.name`

	rows, err := s.db.QueryContext(ctx, q, highlightID)
	if err != nil {
		return nil, errors.RetrievalError("loading categories", err)
	}
	defer rows.Close()

	categories := make([]Category, 0)
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, errors.RetrievalError("scanning category", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *Store) loadTags(ctx context.Context, highlightID string) ([]Tag, error) {
	const q = `
		SELECT t.id, t.name
		FROM tags t
		JOIN highlight_tags ht ON ht.tag_id = t.id
		WHERE ht.highlight_id = $1
		ORDER BY t.name`

	rows, err := s.db.QueryContext(ctx, q, highlightID)
	if err != nil {
		return nil, errors.RetrievalError("loading tags", err)
	}
	defer rows.Close()

	tags := make([]Tag, 0)
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, errors.RetrievalError("scanning tag", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// ListUnembedded returns highlights that have not yet been written to the
// vector index, oldest first.
func (s *Store) ListUnembedded(ctx context.Context, limit int) ([]Embeddable, error) {
	const q = `
		SELECT id, user_id, book_id, text
		FROM highlights
		WHERE embedded_at IS NULL
		ORDER BY created_at
		LIMIT $1`

	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("listing unembedded highlights: %w", err)
	}
	defer rows.Close()

	var pending []Embeddable
	for rows.Next() {
		var e Embeddable
		if err := rows.Scan(&e.ID, &e.UserID, &e.BookID, &e.Text); err != nil {
			return nil, fmt.Errorf("scanning unembedded highlight: %w", err)
		}
		pending = append(pending, e)
	}
	return pending, rows.Err()
}

// MarkEmbedded records that the given highlights now exist in the vector index.
func (s *Store) MarkEmbedded(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	const q = `UPDATE highlights SET embedded_at = now() WHERE id = ANY($1)`
	if _, err := s.db.ExecContext(ctx, q, pq.Array(ids)); err != nil {
		return fmt.Errorf("marking highlights embedded: %w", err)
	}
	return nil
}

// ListDeleted returns ids of highlights removed since the last purge pass,
// oldest first. Highlight deletion writes a tombstone row so the vector
// point can be removed asynchronously.
func (s *Store) ListDeleted(ctx context.Context, limit int) ([]string, error) {
	const q = `
		SELECT highlight_id
		FROM highlight_tombstones
		ORDER BY deleted_at
		LIMIT $1`

	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("listing deleted highlights: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning tombstone: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ClearDeleted removes tombstones whose points are gone from the vector index.
func (s *Store) ClearDeleted(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	const q = `DELETE FROM highlight_tombstones WHERE highlight_id = ANY($1)`
	if _, err := s.db.ExecContext(ctx, q, pq.Array(ids)); err != nil {
		return fmt.Errorf("clearing tombstones: %w", err)
	}
	return nil
}
