package metastore

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"

	"github.com/google/uuid"

	"github.com/behemotion/docbro/internal/errs"
	"github.com/behemotion/docbro/internal/model"
)

// boxConfigJSON is the on-disk shape of model.BoxConfig, tagged by the
// box's own Type column rather than re-encoding the tag in the JSON blob.
type boxConfigJSON struct {
	Drag *model.DragConfig `json:"drag,omitempty"`
	Rag  *ragConfigJSON    `json:"rag,omitempty"`
	Bag  *model.BagConfig  `json:"bag,omitempty"`
}

// ragConfigJSON mirrors model.RagConfig but with Extensions as a sorted
// slice, since Go map iteration order is unspecified and JSON would
// otherwise produce non-deterministic byte output across writes.
type ragConfigJSON struct {
	InitialPath  string   `json:"initial_path"`
	ChunkSize    int      `json:"chunk_size"`
	ChunkOverlap int      `json:"chunk_overlap"`
	Extensions   []string `json:"extensions"`
	Recursive    bool     `json:"recursive"`
}

func encodeBoxConfig(c model.BoxConfig) (string, error) {
	payload := boxConfigJSON{Drag: c.Drag, Bag: c.Bag}
	if c.Rag != nil {
		exts := make([]string, 0, len(c.Rag.Extensions))
		for e := range c.Rag.Extensions {
			exts = append(exts, e)
		}
		sort.Strings(exts)
		payload.Rag = &ragConfigJSON{
			InitialPath:  c.Rag.InitialPath,
			ChunkSize:    c.Rag.ChunkSize,
			ChunkOverlap: c.Rag.ChunkOverlap,
			Extensions:   exts,
			Recursive:    c.Rag.Recursive,
		}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeBoxConfig(s string) (model.BoxConfig, error) {
	var payload boxConfigJSON
	if err := json.Unmarshal([]byte(s), &payload); err != nil {
		return model.BoxConfig{}, err
	}
	out := model.BoxConfig{Drag: payload.Drag, Bag: payload.Bag}
	if payload.Rag != nil {
		exts := make(map[string]struct{}, len(payload.Rag.Extensions))
		for _, e := range payload.Rag.Extensions {
			exts[e] = struct{}{}
		}
		out.Rag = &model.RagConfig{
			InitialPath:  payload.Rag.InitialPath,
			ChunkSize:    payload.Rag.ChunkSize,
			ChunkOverlap: payload.Rag.ChunkOverlap,
			Extensions:   exts,
			Recursive:    payload.Rag.Recursive,
		}
	}
	return out, nil
}

// CreateBox inserts a box row and, unless shelfID is empty, a membership
// row in the same transaction.
func (s *Store) CreateBox(ctx context.Context, box model.Box, shelfID string) (model.Box, error) {
	if box.ID == "" {
		box.ID = uuid.NewString()
	}
	if !box.Type.Valid() {
		return model.Box{}, errs.New(errs.InvalidInput, "invalid box type: "+string(box.Type))
	}
	now := nowRFC3339()
	box.CreatedAt = parseTime(now)
	box.UpdatedAt = box.CreatedAt

	configJSON, err := encodeBoxConfig(box.Config)
	if err != nil {
		return model.Box{}, errs.Wrap(errs.Internal, err, "metastore: marshal box config")
	}

	err = s.txFunc(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO boxes (id, name, type, description, created_at, updated_at, config_json, is_configured, setup_completed_at, has_content, configuration_version)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			box.ID, box.Name, string(box.Type), box.Description, now, now, configJSON,
			boolInt(box.ConfigurationState.IsConfigured), nil, boolInt(box.ConfigurationState.HasContent), box.ConfigurationState.ConfigurationVersion,
		)
		if isUniqueConstraintErr(err) {
			return errs.New(errs.NameTaken, "box name already exists: "+box.Name)
		}
		if err != nil {
			return errs.Wrap(errs.Internal, err, "metastore: insert box")
		}
		if shelfID != "" {
			if _, err := tx.ExecContext(ctx, `INSERT INTO memberships (shelf_id, box_id) VALUES (?, ?)`, shelfID, box.ID); err != nil {
				return errs.Wrap(errs.Internal, err, "metastore: insert membership")
			}
		}
		return nil
	})
	if err != nil {
		return model.Box{}, err
	}
	return box, nil
}

const boxCols = `id, name, type, description, created_at, updated_at, config_json, is_configured, setup_completed_at, has_content, configuration_version`

func scanBox(row rowScanner) (model.Box, error) {
	var box model.Box
	var createdAt, updatedAt, configJSON, boxType string
	var isConfigured, hasContent int
	var setupCompletedAt sql.NullString
	err := row.Scan(&box.ID, &box.Name, &boxType, &box.Description, &createdAt, &updatedAt, &configJSON,
		&isConfigured, &setupCompletedAt, &hasContent, &box.ConfigurationState.ConfigurationVersion)
	if err == sql.ErrNoRows {
		return model.Box{}, errs.New(errs.NotFound, "box not found")
	}
	if err != nil {
		return model.Box{}, errs.Wrap(errs.Internal, err, "metastore: scan box")
	}
	box.Type = model.BoxType(boxType)
	box.CreatedAt = parseTime(createdAt)
	box.UpdatedAt = parseTime(updatedAt)
	box.ConfigurationState.IsConfigured = isConfigured != 0
	box.ConfigurationState.HasContent = hasContent != 0
	if setupCompletedAt.Valid {
		t := parseTime(setupCompletedAt.String)
		box.ConfigurationState.SetupCompletedAt = &t
	}
	cfg, err := decodeBoxConfig(configJSON)
	if err != nil {
		return model.Box{}, errs.Wrap(errs.Internal, err, "metastore: decode box config")
	}
	box.Config = cfg
	return box, nil
}

// GetBoxByName returns a single box by its globally unique name.
func (s *Store) GetBoxByName(ctx context.Context, name string) (model.Box, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+boxCols+` FROM boxes WHERE name = ?`, name)
	return scanBox(row)
}

// GetBoxByID returns a single box by id.
func (s *Store) GetBoxByID(ctx context.Context, id string) (model.Box, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+boxCols+` FROM boxes WHERE id = ?`, id)
	return scanBox(row)
}

// ListBoxes returns boxes optionally filtered by shelf name and/or type.
func (s *Store) ListBoxes(ctx context.Context, shelfName string, boxType model.BoxType) ([]model.Box, error) {
	query := `SELECT b.` + boxColsPrefixed() + ` FROM boxes b`
	args := []any{}
	if shelfName != "" {
		query += ` JOIN memberships m ON m.box_id = b.id JOIN shelves s ON s.id = m.shelf_id WHERE s.name_ci = ?`
		args = append(args, toLowerLocal(shelfName))
		if boxType != "" {
			query += ` AND b.type = ?`
			args = append(args, string(boxType))
		}
	} else if boxType != "" {
		query += ` WHERE b.type = ?`
		args = append(args, string(boxType))
	}
	query += ` ORDER BY b.created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, err, "metastore: list boxes")
	}
	defer rows.Close()

	var out []model.Box
	for rows.Next() {
		box, err := scanBox(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, box)
	}
	return out, rows.Err()
}

func boxColsPrefixed() string {
	return "id, name, type, description, created_at, updated_at, config_json, is_configured, setup_completed_at, has_content, configuration_version"
}

func toLowerLocal(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

// RenameBox updates a box's name, enforcing global uniqueness.
func (s *Store) RenameBox(ctx context.Context, oldName, newName string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE boxes SET name = ?, updated_at = ? WHERE name = ?`, newName, nowRFC3339(), oldName)
	if isUniqueConstraintErr(err) {
		return errs.New(errs.NameTaken, "box name already exists: "+newName)
	}
	if err != nil {
		return errs.Wrap(errs.Internal, err, "metastore: rename box")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.New(errs.NotFound, "box not found: "+oldName)
	}
	return nil
}

// DeleteBox removes a box row, its memberships, its pages, and its chunks.
// It does not touch the VectorStore; callers (internal/catalog) must also
// issue VectorStore.delete_by_filter for the box's collection (spec §3).
func (s *Store) DeleteBox(ctx context.Context, id string) error {
	return s.txFunc(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE box_id = ?`, id); err != nil {
			return errs.Wrap(errs.Internal, err, "metastore: delete chunks")
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM pages WHERE box_id = ?`, id); err != nil {
			return errs.Wrap(errs.Internal, err, "metastore: delete pages")
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM memberships WHERE box_id = ?`, id); err != nil {
			return errs.Wrap(errs.Internal, err, "metastore: delete memberships")
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM boxes WHERE id = ?`, id)
		if err != nil {
			return errs.Wrap(errs.Internal, err, "metastore: delete box")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errs.New(errs.NotFound, "box not found")
		}
		return nil
	})
}

// SetBoxHasContent flips configuration_state.has_content (spec §4.G step 5).
func (s *Store) SetBoxHasContent(ctx context.Context, boxID string, hasContent bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE boxes SET has_content = ?, updated_at = ? WHERE id = ?`, boolInt(hasContent), nowRFC3339(), boxID)
	if err != nil {
		return errs.Wrap(errs.Internal, err, "metastore: set box has_content")
	}
	return nil
}

// AddBoxToShelf inserts a membership row, ignoring duplicates (membership
// is a set, spec §3).
func (s *Store) AddBoxToShelf(ctx context.Context, shelfID, boxID string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO memberships (shelf_id, box_id) VALUES (?, ?)`, shelfID, boxID)
	if err != nil {
		return errs.Wrap(errs.Internal, err, "metastore: add membership")
	}
	return nil
}

// RemoveBoxFromShelf deletes a membership row.
func (s *Store) RemoveBoxFromShelf(ctx context.Context, shelfID, boxID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM memberships WHERE shelf_id = ? AND box_id = ?`, shelfID, boxID)
	if err != nil {
		return errs.Wrap(errs.Internal, err, "metastore: remove membership")
	}
	return nil
}
