package metastore

import (
	"context"
	"database/sql"

	"github.com/behemotion/docbro/internal/errs"
)

// GetSetting reads a single override key written by a previous `docbro
// config set` (spec §4.A). Returns ("", false, nil) when absent.
func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, errs.Wrap(errs.Internal, err, "metastore: get setting")
	}
	return value, true, nil
}

// SetSetting upserts a single override key.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return errs.Wrap(errs.Internal, err, "metastore: set setting")
	}
	return nil
}

// DeleteSetting removes an override key, reverting that key to its
// file/env/default value on next load.
func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key)
	if err != nil {
		return errs.Wrap(errs.Internal, err, "metastore: delete setting")
	}
	return nil
}

// AllSettings returns every override key/value pair, used by `docbro config
// show` to report which keys have been overridden at runtime versus coming
// from file/env/defaults.
func (s *Store) AllSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, err, "metastore: list settings")
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, errs.Wrap(errs.Internal, err, "metastore: scan setting")
		}
		out[k] = v
	}
	return out, rows.Err()
}
