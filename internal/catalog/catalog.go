// Package catalog implements shelf/box CRUD with the invariants spec §4.H
// requires on top of internal/metastore: name validation, protected-shelf
// enforcement, current-shelf promotion on delete, box type immutability,
// and global box-name uniqueness. Grounded on the teacher's thin
// service-layer pattern: metastore owns persistence, catalog owns business
// rules and cache invalidation hooks for internal/contextengine.
package catalog

import (
	"context"
	"regexp"

	"github.com/behemotion/docbro/internal/errs"
	"github.com/behemotion/docbro/internal/metastore"
	"github.com/behemotion/docbro/internal/model"
	"github.com/behemotion/docbro/internal/vectorstore"
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

const maxDescriptionLen = 500

// InvalidationHook is called after any Catalog write that could stale
// internal/contextengine's cache. Catalog is hook-agnostic: the engine
// registers itself via Catalog.OnChange.
type InvalidationHook func(kind, name string)

// Catalog is the single-writer business-rule layer over MetaStore.
type Catalog struct {
	Meta    *metastore.Store
	Vectors vectorstore.VectorStore
	onChange InvalidationHook
}

func New(meta *metastore.Store, vectors vectorstore.VectorStore) *Catalog {
	return &Catalog{Meta: meta, Vectors: vectors}
}

// OnChange registers the hook invoked after every shelf/box mutation.
func (c *Catalog) OnChange(hook InvalidationHook) {
	c.onChange = hook
}

func (c *Catalog) notify(kind, name string) {
	if c.onChange != nil {
		c.onChange(kind, name)
	}
}

func validateName(name string) error {
	if !namePattern.MatchString(name) {
		return errs.New(errs.InvalidInput, "invalid name: "+name)
	}
	return nil
}

// ShelfOptions configures shelf.create (spec §4.H).
type ShelfOptions struct {
	Description    string
	SetCurrent     bool
	DefaultBoxType model.BoxType
	AutoFill       bool
	Tags           []string
}

// CreateShelf validates and inserts a new shelf.
func (c *Catalog) CreateShelf(ctx context.Context, name string, opts ShelfOptions) (model.Shelf, error) {
	if err := validateName(name); err != nil {
		return model.Shelf{}, err
	}
	if len(opts.Description) > maxDescriptionLen {
		return model.Shelf{}, errs.New(errs.InvalidInput, "description exceeds 500 characters")
	}
	if opts.DefaultBoxType == "" {
		opts.DefaultBoxType = model.BoxTypeDrag
	}
	if !opts.DefaultBoxType.Valid() {
		return model.Shelf{}, errs.New(errs.InvalidInput, "invalid default box type: "+string(opts.DefaultBoxType))
	}
	shelf, err := c.Meta.CreateShelf(ctx, model.Shelf{
		Name: name, Description: opts.Description, DefaultBoxType: opts.DefaultBoxType,
		AutoFill: opts.AutoFill, Tags: opts.Tags, IsCurrent: opts.SetCurrent,
	})
	if err != nil {
		return model.Shelf{}, err
	}
	c.notify("shelf", name)
	return shelf, nil
}

// ListShelves returns shelves ordered by created_at desc.
func (c *Catalog) ListShelves(ctx context.Context, currentOnly bool, limit int) ([]model.Shelf, error) {
	return c.Meta.ListShelves(ctx, currentOnly, limit)
}

// RenameShelf validates the new name and delegates to MetaStore, which
// rejects protected shelves and name collisions.
func (c *Catalog) RenameShelf(ctx context.Context, oldName, newName string) error {
	if err := validateName(newName); err != nil {
		return err
	}
	if err := c.Meta.RenameShelf(ctx, oldName, newName); err != nil {
		return err
	}
	c.notify("shelf", oldName)
	c.notify("shelf", newName)
	return nil
}

// DeleteShelf removes a shelf, promoting the protected default shelf to
// current when the deleted shelf was current (spec §4.H).
func (c *Catalog) DeleteShelf(ctx context.Context, name string, force bool) error {
	wasCurrent, err := c.Meta.DeleteShelf(ctx, name, force)
	if err != nil {
		return err
	}
	c.notify("shelf", name)
	if wasCurrent {
		def, err := c.defaultShelf(ctx)
		if err != nil {
			return err
		}
		if def.Name != "" {
			if err := c.Meta.SetCurrentShelf(ctx, def.Name); err != nil {
				return err
			}
			c.notify("shelf", def.Name)
		}
	}
	return nil
}

func (c *Catalog) defaultShelf(ctx context.Context) (model.Shelf, error) {
	shelves, err := c.Meta.ListShelves(ctx, false, 0)
	if err != nil {
		return model.Shelf{}, err
	}
	for _, s := range shelves {
		if s.Protected {
			return s, nil
		}
	}
	return model.Shelf{}, nil
}

// SetCurrentShelf atomically promotes name to the current shelf.
func (c *Catalog) SetCurrentShelf(ctx context.Context, name string) error {
	if err := c.Meta.SetCurrentShelf(ctx, name); err != nil {
		return err
	}
	c.notify("shelf", name)
	return nil
}

// BoxOptions configures box.create (spec §4.H).
type BoxOptions struct {
	Shelf       string
	Description string
	Config      model.BoxConfig
}

// CreateBox validates and inserts a new box, attaching it to Shelf (or the
// current shelf when Shelf is empty).
func (c *Catalog) CreateBox(ctx context.Context, name string, boxType model.BoxType, opts BoxOptions) (model.Box, error) {
	if err := validateName(name); err != nil {
		return model.Box{}, err
	}
	if !boxType.Valid() {
		return model.Box{}, errs.New(errs.InvalidInput, "invalid box type: "+string(boxType))
	}
	if err := opts.Config.Validate(boxType); err != nil {
		return model.Box{}, err
	}
	shelfID, err := c.resolveShelfID(ctx, opts.Shelf)
	if err != nil {
		return model.Box{}, err
	}
	box, err := c.Meta.CreateBox(ctx, model.Box{
		Name: name, Type: boxType, Description: opts.Description, Config: opts.Config,
	}, shelfID)
	if err != nil {
		return model.Box{}, err
	}
	c.notify("box", name)
	return box, nil
}

func (c *Catalog) resolveShelfID(ctx context.Context, shelfName string) (string, error) {
	if shelfName == "" {
		shelves, err := c.Meta.ListShelves(ctx, true, 1)
		if err != nil {
			return "", err
		}
		if len(shelves) == 0 {
			return "", nil
		}
		return shelves[0].ID, nil
	}
	shelf, err := c.Meta.GetShelfByName(ctx, shelfName)
	if err != nil {
		return "", err
	}
	return shelf.ID, nil
}

// AddBoxToShelf attaches an existing box to a shelf.
func (c *Catalog) AddBoxToShelf(ctx context.Context, shelfName, boxName string) error {
	shelf, err := c.Meta.GetShelfByName(ctx, shelfName)
	if err != nil {
		return err
	}
	box, err := c.Meta.GetBoxByName(ctx, boxName)
	if err != nil {
		return err
	}
	if err := c.Meta.AddBoxToShelf(ctx, shelf.ID, box.ID); err != nil {
		return err
	}
	c.notify("box", boxName)
	return nil
}

// RemoveBoxFromShelf detaches a box from a shelf without deleting it.
func (c *Catalog) RemoveBoxFromShelf(ctx context.Context, shelfName, boxName string) error {
	shelf, err := c.Meta.GetShelfByName(ctx, shelfName)
	if err != nil {
		return err
	}
	box, err := c.Meta.GetBoxByName(ctx, boxName)
	if err != nil {
		return err
	}
	if err := c.Meta.RemoveBoxFromShelf(ctx, shelf.ID, box.ID); err != nil {
		return err
	}
	c.notify("box", boxName)
	return nil
}

// ListBoxes returns boxes optionally filtered by shelf and/or type.
func (c *Catalog) ListBoxes(ctx context.Context, shelfName string, boxType model.BoxType) ([]model.Box, error) {
	return c.Meta.ListBoxes(ctx, shelfName, boxType)
}

// RenameBox validates the new name; box type is immutable and untouched.
func (c *Catalog) RenameBox(ctx context.Context, oldName, newName string) error {
	if err := validateName(newName); err != nil {
		return err
	}
	if err := c.Meta.RenameBox(ctx, oldName, newName); err != nil {
		return err
	}
	c.notify("box", oldName)
	c.notify("box", newName)
	return nil
}

// DeleteBox removes a box's metadata rows and its vector collection.
func (c *Catalog) DeleteBox(ctx context.Context, name string) error {
	box, err := c.Meta.GetBoxByName(ctx, name)
	if err != nil {
		return err
	}
	if err := c.Meta.DeleteBox(ctx, box.ID); err != nil {
		return err
	}
	if c.Vectors != nil {
		if err := c.Vectors.DeleteCollection(ctx, box.ID); err != nil {
			return err
		}
	}
	c.notify("box", name)
	return nil
}
