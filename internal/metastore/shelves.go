package metastore

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/behemotion/docbro/internal/errs"
	"github.com/behemotion/docbro/internal/model"
)

// DefaultShelfName is the system-default shelf's name, created once by
// EnsureDefaultShelf (spec §3: "exists at initialization, is protected").
const DefaultShelfName = "default"

// EnsureDefaultShelf creates the protected system-default shelf the first
// time MetaStore opens against an empty database, and promotes it to
// current if no shelf is current yet (spec §3, §8: "exactly one
// is_current = true shelf at any time unless the catalog is empty").
// Idempotent: a no-op once a protected shelf exists.
func (s *Store) EnsureDefaultShelf(ctx context.Context) error {
	return s.txFunc(ctx, func(tx *sql.Tx) error {
		var protectedCount int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM shelves WHERE protected = 1`).Scan(&protectedCount); err != nil {
			return errs.Wrap(errs.Internal, err, "metastore: count protected shelves")
		}
		if protectedCount > 0 {
			return nil
		}
		var currentCount int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM shelves WHERE is_current = 1`).Scan(&currentCount); err != nil {
			return errs.Wrap(errs.Internal, err, "metastore: count current shelves")
		}
		now := nowRFC3339()
		tags, err := json.Marshal([]string{})
		if err != nil {
			return errs.Wrap(errs.Internal, err, "metastore: marshal tags")
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO shelves (id, name, name_ci, description, created_at, updated_at, default_box_type, auto_fill, tags, is_current, protected)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), DefaultShelfName, strings.ToLower(DefaultShelfName), "system default shelf", now, now,
			string(model.BoxTypeDrag), boolInt(false), string(tags), boolInt(currentCount == 0), boolInt(true),
		)
		if err != nil {
			return errs.Wrap(errs.Internal, err, "metastore: insert default shelf")
		}
		return nil
	})
}

// CreateShelf inserts a new shelf row. Name uniqueness is enforced
// case-insensitively via the name_ci UNIQUE column (spec §3).
func (s *Store) CreateShelf(ctx context.Context, shelf model.Shelf) (model.Shelf, error) {
	if shelf.ID == "" {
		shelf.ID = uuid.NewString()
	}
	now := nowRFC3339()
	shelf.CreatedAt = parseTime(now)
	shelf.UpdatedAt = shelf.CreatedAt

	tags, err := json.Marshal(shelf.Tags)
	if err != nil {
		return model.Shelf{}, errs.Wrap(errs.Internal, err, "metastore: marshal tags")
	}

	err = s.txFunc(ctx, func(tx *sql.Tx) error {
		if shelf.IsCurrent {
			if _, err := tx.ExecContext(ctx, `UPDATE shelves SET is_current = 0`); err != nil {
				return errs.Wrap(errs.Internal, err, "metastore: clear current shelf")
			}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO shelves (id, name, name_ci, description, created_at, updated_at, default_box_type, auto_fill, tags, is_current, protected)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			shelf.ID, shelf.Name, strings.ToLower(shelf.Name), shelf.Description, now, now,
			string(shelf.DefaultBoxType), boolInt(shelf.AutoFill), string(tags), boolInt(shelf.IsCurrent), boolInt(shelf.Protected),
		)
		if isUniqueConstraintErr(err) {
			return errs.New(errs.NameTaken, "shelf name already exists: "+shelf.Name)
		}
		if err != nil {
			return errs.Wrap(errs.Internal, err, "metastore: insert shelf")
		}
		return nil
	})
	if err != nil {
		return model.Shelf{}, err
	}
	return shelf, nil
}

// GetShelfByName returns the shelf with the given name (case-insensitive).
func (s *Store) GetShelfByName(ctx context.Context, name string) (model.Shelf, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+shelfCols+` FROM shelves WHERE name_ci = ?`, strings.ToLower(name))
	return scanShelf(row)
}

// ListShelves returns shelves ordered by created_at desc, optionally
// filtered to only the current shelf (spec §4.H shelf.list).
func (s *Store) ListShelves(ctx context.Context, currentOnly bool, limit int) ([]model.Shelf, error) {
	query := `SELECT ` + shelfCols + ` FROM shelves`
	args := []any{}
	if currentOnly {
		query += ` WHERE is_current = 1`
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, err, "metastore: list shelves")
	}
	defer rows.Close()

	var out []model.Shelf
	for rows.Next() {
		shelf, err := scanShelf(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, shelf)
	}
	return out, rows.Err()
}

// RenameShelf updates a shelf's name, enforcing uniqueness and protection.
func (s *Store) RenameShelf(ctx context.Context, oldName, newName string) error {
	return s.txFunc(ctx, func(tx *sql.Tx) error {
		var protected bool
		var id string
		err := tx.QueryRowContext(ctx, `SELECT id, protected FROM shelves WHERE name_ci = ?`, strings.ToLower(oldName)).Scan(&id, &protected)
		if err == sql.ErrNoRows {
			return errs.New(errs.NotFound, "shelf not found: "+oldName)
		}
		if err != nil {
			return errs.Wrap(errs.Internal, err, "metastore: lookup shelf")
		}
		if protected {
			return errs.New(errs.Protected, "shelf is protected: "+oldName)
		}
		res, err := tx.ExecContext(ctx, `UPDATE shelves SET name = ?, name_ci = ?, updated_at = ? WHERE id = ?`,
			newName, strings.ToLower(newName), nowRFC3339(), id)
		if isUniqueConstraintErr(err) {
			return errs.New(errs.NameTaken, "shelf name already exists: "+newName)
		}
		if err != nil {
			return errs.Wrap(errs.Internal, err, "metastore: rename shelf")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errs.New(errs.NotFound, "shelf not found: "+oldName)
		}
		return nil
	})
}

// DeleteShelf removes a shelf and its membership rows (not its boxes, per
// spec §3 "deleting a shelf does not delete its boxes"). Protected shelves
// can never be deleted, and a shelf that still has boxes is deleted only when
// force is set (InvalidInput otherwise). When the deleted shelf was current,
// the caller (internal/catalog) is responsible for promoting the default shelf.
func (s *Store) DeleteShelf(ctx context.Context, name string, force bool) (wasCurrent bool, err error) {
	err = s.txFunc(ctx, func(tx *sql.Tx) error {
		var id string
		var protected, current bool
		e := tx.QueryRowContext(ctx, `SELECT id, protected, is_current FROM shelves WHERE name_ci = ?`, strings.ToLower(name)).Scan(&id, &protected, &current)
		if e == sql.ErrNoRows {
			return errs.New(errs.NotFound, "shelf not found: "+name)
		}
		if e != nil {
			return errs.Wrap(errs.Internal, e, "metastore: lookup shelf")
		}
		if protected {
			return errs.New(errs.Protected, "cannot delete the protected default shelf")
		}
		if !force {
			var boxCount int
			if e := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM memberships WHERE shelf_id = ?`, id).Scan(&boxCount); e != nil {
				return errs.Wrap(errs.Internal, e, "metastore: count shelf boxes")
			}
			if boxCount > 0 {
				return errs.New(errs.InvalidInput, "shelf has boxes, delete it with force: "+name)
			}
		}
		if _, e := tx.ExecContext(ctx, `DELETE FROM memberships WHERE shelf_id = ?`, id); e != nil {
			return errs.Wrap(errs.Internal, e, "metastore: delete memberships")
		}
		if _, e := tx.ExecContext(ctx, `DELETE FROM shelves WHERE id = ?`, id); e != nil {
			return errs.Wrap(errs.Internal, e, "metastore: delete shelf")
		}
		wasCurrent = current
		return nil
	})
	return wasCurrent, err
}

// SetCurrentShelf atomically makes name the sole current shelf.
func (s *Store) SetCurrentShelf(ctx context.Context, name string) error {
	return s.txFunc(ctx, func(tx *sql.Tx) error {
		var id string
		err := tx.QueryRowContext(ctx, `SELECT id FROM shelves WHERE name_ci = ?`, strings.ToLower(name)).Scan(&id)
		if err == sql.ErrNoRows {
			return errs.New(errs.NotFound, "shelf not found: "+name)
		}
		if err != nil {
			return errs.Wrap(errs.Internal, err, "metastore: lookup shelf")
		}
		if _, err := tx.ExecContext(ctx, `UPDATE shelves SET is_current = 0`); err != nil {
			return errs.Wrap(errs.Internal, err, "metastore: clear current shelf")
		}
		if _, err := tx.ExecContext(ctx, `UPDATE shelves SET is_current = 1, updated_at = ? WHERE id = ?`, nowRFC3339(), id); err != nil {
			return errs.Wrap(errs.Internal, err, "metastore: set current shelf")
		}
		return nil
	})
}

const shelfCols = `id, name, description, created_at, updated_at, default_box_type, auto_fill, tags, is_current, protected`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShelf(row rowScanner) (model.Shelf, error) {
	var shelf model.Shelf
	var createdAt, updatedAt, tagsJSON, boxType string
	var autoFill, isCurrent, protected int
	err := row.Scan(&shelf.ID, &shelf.Name, &shelf.Description, &createdAt, &updatedAt, &boxType, &autoFill, &tagsJSON, &isCurrent, &protected)
	if err == sql.ErrNoRows {
		return model.Shelf{}, errs.New(errs.NotFound, "shelf not found")
	}
	if err != nil {
		return model.Shelf{}, errs.Wrap(errs.Internal, err, "metastore: scan shelf")
	}
	shelf.CreatedAt = parseTime(createdAt)
	shelf.UpdatedAt = parseTime(updatedAt)
	shelf.DefaultBoxType = model.BoxType(boxType)
	shelf.AutoFill = autoFill != 0
	shelf.IsCurrent = isCurrent != 0
	shelf.Protected = protected != 0
	_ = json.Unmarshal([]byte(tagsJSON), &shelf.Tags)
	return shelf, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
