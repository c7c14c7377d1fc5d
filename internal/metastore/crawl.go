package metastore

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/behemotion/docbro/internal/errs"
	"github.com/behemotion/docbro/internal/model"
)

// CreateCrawlSession inserts a new crawl session row in "running" status.
func (s *Store) CreateCrawlSession(ctx context.Context, session model.CrawlSession) (model.CrawlSession, error) {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	session.StartedAt = parseTime(nowRFC3339())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO crawl_sessions (id, box_id, started_at, ended_at, status, pages_fetched, pages_failed, pages_skipped, seed_url, depth_limit, rate_limit)
		VALUES (?, ?, ?, NULL, ?, 0, 0, 0, ?, ?, ?)`,
		session.ID, session.BoxID, session.StartedAt.UTC().Format(time.RFC3339Nano), string(session.Status), session.SeedURL, session.DepthLimit, session.RateLimit,
	)
	if err != nil {
		return model.CrawlSession{}, errs.Wrap(errs.Internal, err, "metastore: insert crawl session")
	}
	return session, nil
}

// UpdateCrawlCounters persists the latest fetched/failed/skipped counters
// for an in-progress session.
func (s *Store) UpdateCrawlCounters(ctx context.Context, sessionID string, counters model.CrawlCounters) error {
	_, err := s.db.ExecContext(ctx, `UPDATE crawl_sessions SET pages_fetched = ?, pages_failed = ?, pages_skipped = ? WHERE id = ?`,
		counters.PagesFetched, counters.PagesFailed, counters.PagesSkipped, sessionID)
	if err != nil {
		return errs.Wrap(errs.Internal, err, "metastore: update crawl counters")
	}
	return nil
}

// FinishCrawlSession transitions a session to a terminal status and stamps
// ended_at (spec §4.F state machine).
func (s *Store) FinishCrawlSession(ctx context.Context, sessionID string, status model.CrawlStatus) error {
	_, err := s.db.ExecContext(ctx, `UPDATE crawl_sessions SET status = ?, ended_at = ? WHERE id = ?`,
		string(status), nowRFC3339(), sessionID)
	if err != nil {
		return errs.Wrap(errs.Internal, err, "metastore: finish crawl session")
	}
	return nil
}

// AppendCrawlError appends one ErrorLedger entry for a session.
func (s *Store) AppendCrawlError(ctx context.Context, sessionID string, entry model.ErrorLedgerEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO crawl_errors (session_id, url, kind, message, attempts, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID, entry.URL, string(entry.Kind), entry.Message, entry.Attempts,
		entry.FirstSeen.UTC().Format(time.RFC3339Nano), entry.LastSeen.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return errs.Wrap(errs.Internal, err, "metastore: append crawl error")
	}
	return nil
}

// GetCrawlSession loads a session plus its error ledger.
func (s *Store) GetCrawlSession(ctx context.Context, sessionID string) (model.CrawlSession, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, box_id, started_at, ended_at, status, pages_fetched, pages_failed, pages_skipped, seed_url, depth_limit, rate_limit
		FROM crawl_sessions WHERE id = ?`, sessionID)

	var session model.CrawlSession
	var startedAt string
	var endedAt sql.NullString
	var status string
	err := row.Scan(&session.ID, &session.BoxID, &startedAt, &endedAt, &status,
		&session.Counters.PagesFetched, &session.Counters.PagesFailed, &session.Counters.PagesSkipped,
		&session.SeedURL, &session.DepthLimit, &session.RateLimit)
	if err == sql.ErrNoRows {
		return model.CrawlSession{}, errs.New(errs.NotFound, "crawl session not found")
	}
	if err != nil {
		return model.CrawlSession{}, errs.Wrap(errs.Internal, err, "metastore: get crawl session")
	}
	session.StartedAt = parseTime(startedAt)
	if endedAt.Valid {
		t := parseTime(endedAt.String)
		session.EndedAt = &t
	}
	session.Status = model.CrawlStatus(status)

	rows, err := s.db.QueryContext(ctx, `SELECT url, kind, message, attempts, first_seen, last_seen FROM crawl_errors WHERE session_id = ? ORDER BY id ASC`, sessionID)
	if err != nil {
		return model.CrawlSession{}, errs.Wrap(errs.Internal, err, "metastore: list crawl errors")
	}
	defer rows.Close()
	for rows.Next() {
		var entry model.ErrorLedgerEntry
		var kind, firstSeen, lastSeen string
		if err := rows.Scan(&entry.URL, &kind, &entry.Message, &entry.Attempts, &firstSeen, &lastSeen); err != nil {
			return model.CrawlSession{}, errs.Wrap(errs.Internal, err, "metastore: scan crawl error")
		}
		entry.Kind = model.ErrorKind(kind)
		entry.FirstSeen = parseTime(firstSeen)
		entry.LastSeen = parseTime(lastSeen)
		session.Errors.Append(entry)
	}
	return session, rows.Err()
}

