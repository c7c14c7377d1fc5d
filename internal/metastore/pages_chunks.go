package metastore

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/behemotion/docbro/internal/errs"
	"github.com/behemotion/docbro/internal/model"
)

// UpsertPage inserts or updates a page keyed by (box_id, url) (spec §4.A).
// Returns the persisted page's ID (generated on first insert, preserved on
// update) and whether the row was newly created.
func (s *Store) UpsertPage(ctx context.Context, page model.Page) (id string, created bool, err error) {
	err = s.txFunc(ctx, func(tx *sql.Tx) error {
		var existingID string
		scanErr := tx.QueryRowContext(ctx, `SELECT id FROM pages WHERE box_id = ? AND url = ?`, page.BoxID, page.URL).Scan(&existingID)
		switch scanErr {
		case sql.ErrNoRows:
			if page.ID == "" {
				page.ID = uuid.NewString()
			}
			id = page.ID
			created = true
			_, insErr := tx.ExecContext(ctx, `
				INSERT INTO pages (id, box_id, url, fetched_at, status_code, etag, content_hash, title, depth)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				page.ID, page.BoxID, page.URL, page.FetchedAt.UTC().Format(time.RFC3339Nano), page.StatusCode, page.ETag, page.ContentHash, page.Title, page.Depth,
			)
			if insErr != nil {
				return errs.Wrap(errs.Internal, insErr, "metastore: insert page")
			}
			return nil
		case nil:
			id = existingID
			_, updErr := tx.ExecContext(ctx, `
				UPDATE pages SET fetched_at = ?, status_code = ?, etag = ?, content_hash = ?, title = ?, depth = ? WHERE id = ?`,
				page.FetchedAt.UTC().Format(time.RFC3339Nano), page.StatusCode, page.ETag, page.ContentHash, page.Title, page.Depth, existingID,
			)
			if updErr != nil {
				return errs.Wrap(errs.Internal, updErr, "metastore: update page")
			}
			return nil
		default:
			return errs.Wrap(errs.Internal, scanErr, "metastore: lookup page")
		}
	})
	return id, created, err
}

// GetPageByURL fetches a page's row by (box_id, url); returns
// (model.Page{}, false, nil) when absent so callers (the indexer) can
// distinguish "no prior fetch" from a failure.
func (s *Store) GetPageByURL(ctx context.Context, boxID, url string) (model.Page, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, box_id, url, fetched_at, status_code, etag, content_hash, title, depth FROM pages WHERE box_id = ? AND url = ?`, boxID, url)
	var p model.Page
	var fetchedAt string
	err := row.Scan(&p.ID, &p.BoxID, &p.URL, &fetchedAt, &p.StatusCode, &p.ETag, &p.ContentHash, &p.Title, &p.Depth)
	if err == sql.ErrNoRows {
		return model.Page{}, false, nil
	}
	if err != nil {
		return model.Page{}, false, errs.Wrap(errs.Internal, err, "metastore: get page")
	}
	p.FetchedAt = parseTime(fetchedAt)
	return p, true, nil
}

// InsertChunks batch-inserts chunk rows in one transaction. Per spec §4.G,
// callers must only call this after the corresponding vectors have been
// confirmed written, never before.
func (s *Store) InsertChunks(ctx context.Context, chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	return s.txFunc(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (id, page_id, box_id, ordinal, text, header_context, char_start, char_end, embedding_ref, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return errs.Wrap(errs.Internal, err, "metastore: prepare chunk insert")
		}
		defer stmt.Close()
		for _, c := range chunks {
			if c.ID == "" {
				c.ID = uuid.NewString()
			}
			if _, err := stmt.ExecContext(ctx, c.ID, c.PageID, c.BoxID, c.Ordinal, c.Text, c.HeaderContext,
				c.CharSpan.Start, c.CharSpan.End, c.EmbeddingRef, nowRFC3339()); err != nil {
				return errs.Wrap(errs.Internal, err, "metastore: insert chunk")
			}
		}
		return nil
	})
}

// DeleteChunksForPage removes every chunk row belonging to a page, used
// when re-indexing a page whose content_hash changed (spec §4.G).
func (s *Store) DeleteChunksForPage(ctx context.Context, pageID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT embedding_ref FROM chunks WHERE page_id = ?`, pageID)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, err, "metastore: list chunk refs")
	}
	var refs []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			rows.Close()
			return nil, errs.Wrap(errs.Internal, err, "metastore: scan chunk ref")
		}
		refs = append(refs, ref)
	}
	rows.Close()

	_, err = s.db.ExecContext(ctx, `DELETE FROM chunks WHERE page_id = ?`, pageID)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, err, "metastore: delete chunks for page")
	}
	return refs, nil
}

// CountChunksForBox returns the number of chunk rows for a box, used by the
// §8 invariant comparing chunk-row count to vector-point count at
// quiescence.
func (s *Store) CountChunksForBox(ctx context.Context, boxID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE box_id = ?`, boxID).Scan(&n)
	if err != nil {
		return 0, errs.Wrap(errs.Internal, err, "metastore: count chunks")
	}
	return n, nil
}

// CountPagesForBox returns the number of page rows for a box, used by
// Context Engine's status_of content counts (spec §4.I).
func (s *Store) CountPagesForBox(ctx context.Context, boxID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pages WHERE box_id = ?`, boxID).Scan(&n)
	if err != nil {
		return 0, errs.Wrap(errs.Internal, err, "metastore: count pages")
	}
	return n, nil
}

// ChunksForBox returns every chunk for a box, used by Retrieval to hydrate
// candidate text/metadata after a VectorStore search returns IDs.
func (s *Store) ChunksForBox(ctx context.Context, boxID string) ([]model.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, page_id, box_id, ordinal, text, header_context, char_start, char_end, embedding_ref, created_at FROM chunks WHERE box_id = ?`, boxID)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, err, "metastore: list chunks")
	}
	defer rows.Close()
	var out []model.Chunk
	for rows.Next() {
		var c model.Chunk
		var createdAt string
		if err := rows.Scan(&c.ID, &c.PageID, &c.BoxID, &c.Ordinal, &c.Text, &c.HeaderContext, &c.CharSpan.Start, &c.CharSpan.End, &c.EmbeddingRef, &createdAt); err != nil {
			return nil, errs.Wrap(errs.Internal, err, "metastore: scan chunk")
		}
		c.CreatedAt = parseTime(createdAt)
		out = append(out, c)
	}
	return out, rows.Err()
}

// ChunksByIDs hydrates a set of chunk IDs, preserving no particular order;
// callers re-order by the VectorStore's rank.
func (s *Store) ChunksByIDs(ctx context.Context, ids []string) (map[string]model.Chunk, error) {
	out := make(map[string]model.Chunk, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := `SELECT id, page_id, box_id, ordinal, text, header_context, char_start, char_end, embedding_ref, created_at FROM chunks WHERE id IN (` + joinPlaceholders(placeholders) + `)`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, err, "metastore: lookup chunks by id")
	}
	defer rows.Close()
	for rows.Next() {
		var c model.Chunk
		var createdAt string
		if err := rows.Scan(&c.ID, &c.PageID, &c.BoxID, &c.Ordinal, &c.Text, &c.HeaderContext, &c.CharSpan.Start, &c.CharSpan.End, &c.EmbeddingRef, &createdAt); err != nil {
			return nil, errs.Wrap(errs.Internal, err, "metastore: scan chunk")
		}
		c.CreatedAt = parseTime(createdAt)
		out[c.ID] = c
	}
	return out, rows.Err()
}

func joinPlaceholders(ps []string) string {
	out := ""
	for i, p := range ps {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out
}

// PageByID fetches a page by its primary key, used to hydrate page_url and
// title for reranking signals (spec §4.E).
func (s *Store) PageByID(ctx context.Context, id string) (model.Page, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, box_id, url, fetched_at, status_code, etag, content_hash, title, depth FROM pages WHERE id = ?`, id)
	var p model.Page
	var fetchedAt string
	err := row.Scan(&p.ID, &p.BoxID, &p.URL, &fetchedAt, &p.StatusCode, &p.ETag, &p.ContentHash, &p.Title, &p.Depth)
	if err == sql.ErrNoRows {
		return model.Page{}, errs.New(errs.NotFound, "page not found")
	}
	if err != nil {
		return model.Page{}, errs.Wrap(errs.Internal, err, "metastore: get page by id")
	}
	p.FetchedAt = parseTime(fetchedAt)
	return p, nil
}
