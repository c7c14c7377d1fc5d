package metastore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/behemotion/docbro/internal/errs"
)

// WizardSession is the persisted row shape for a setup wizard run (spec
// §4.J). Collected is an opaque JSON blob of step answers; internal/wizard
// owns its structure.
type WizardSession struct {
	ID           string
	Kind         string
	Target       string
	CurrentStep  int
	TotalSteps   int
	Collected    json.RawMessage
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Completed    bool
}

// SaveWizardSession upserts a wizard session row by ID.
func (s *Store) SaveWizardSession(ctx context.Context, ws WizardSession) (WizardSession, error) {
	if ws.ID == "" {
		ws.ID = uuid.NewString()
	}
	if ws.Collected == nil {
		ws.Collected = json.RawMessage("{}")
	}
	now := nowRFC3339()
	ws.UpdatedAt = parseTime(now)
	if ws.CreatedAt.IsZero() {
		ws.CreatedAt = ws.UpdatedAt
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wizard_sessions (id, kind, target, current_step, total_steps, collected_json, created_at, updated_at, completed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			current_step = excluded.current_step,
			collected_json = excluded.collected_json,
			updated_at = excluded.updated_at,
			completed = excluded.completed`,
		ws.ID, ws.Kind, ws.Target, ws.CurrentStep, ws.TotalSteps, string(ws.Collected),
		ws.CreatedAt.UTC().Format(time.RFC3339Nano), ws.UpdatedAt.UTC().Format(time.RFC3339Nano), boolInt(ws.Completed),
	)
	if err != nil {
		return WizardSession{}, errs.Wrap(errs.Internal, err, "metastore: save wizard session")
	}
	return ws, nil
}

// GetWizardSession loads a wizard session by ID.
func (s *Store) GetWizardSession(ctx context.Context, id string) (WizardSession, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, target, current_step, total_steps, collected_json, created_at, updated_at, completed
		FROM wizard_sessions WHERE id = ?`, id)

	var ws WizardSession
	var createdAt, updatedAt, collected string
	var completed int
	err := row.Scan(&ws.ID, &ws.Kind, &ws.Target, &ws.CurrentStep, &ws.TotalSteps, &collected, &createdAt, &updatedAt, &completed)
	if err == sql.ErrNoRows {
		return WizardSession{}, errs.New(errs.NotFound, "wizard session not found")
	}
	if err != nil {
		return WizardSession{}, errs.Wrap(errs.Internal, err, "metastore: get wizard session")
	}
	ws.Collected = json.RawMessage(collected)
	ws.CreatedAt = parseTime(createdAt)
	ws.UpdatedAt = parseTime(updatedAt)
	ws.Completed = completed != 0
	return ws, nil
}

// DeleteWizardSession removes a wizard session, used on cancel or completion.
func (s *Store) DeleteWizardSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM wizard_sessions WHERE id = ?`, id)
	if err != nil {
		return errs.Wrap(errs.Internal, err, "metastore: delete wizard session")
	}
	return nil
}

// CountActiveWizardSessions returns the number of non-completed sessions, used
// to enforce the 10 concurrent session cap (spec §4.J).
func (s *Store) CountActiveWizardSessions(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM wizard_sessions WHERE completed = 0`).Scan(&n)
	if err != nil {
		return 0, errs.Wrap(errs.Internal, err, "metastore: count wizard sessions")
	}
	return n, nil
}

// SweepExpiredWizardSessions deletes sessions whose updated_at is older than
// olderThan, returning the number removed. Called by the 30-minute expiry
// sweep (spec §4.J).
func (s *Store) SweepExpiredWizardSessions(ctx context.Context, olderThan time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM wizard_sessions WHERE completed = 0 AND updated_at < ?`,
		olderThan.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, errs.Wrap(errs.Internal, err, "metastore: sweep wizard sessions")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
