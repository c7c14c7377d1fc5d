// Package contextengine answers "what exists and what should I do next"
// queries for shelves and boxes (spec §4.I), cached for 300s and invalidated
// proactively by internal/catalog writes. Grounded on the teacher's small
// TTL-cache-plus-lookup services (internal/project, internal/services).
package contextengine

import (
	"context"
	"sync"
	"time"

	"github.com/behemotion/docbro/internal/errs"
	"github.com/behemotion/docbro/internal/metastore"
	"github.com/behemotion/docbro/internal/model"
)

const cacheTTL = 300 * time.Second

// Context is the answer to check_shelf / check_box / status_of.
type Context struct {
	Exists             bool
	IsEmpty            bool
	ConfigurationState model.ConfigurationState
	Summary            string
	SuggestedActions   []string
	PageCount          int
	ChunkCount         int
}

type cacheKey struct {
	kind  string
	name  string
	shelf string
}

type cacheEntry struct {
	value     Context
	expiresAt time.Time
}

// Engine serves cached context queries over MetaStore.
type Engine struct {
	Meta *metastore.Store

	mu    sync.Mutex
	cache map[cacheKey]cacheEntry
}

func New(meta *metastore.Store) *Engine {
	return &Engine{Meta: meta, cache: map[cacheKey]cacheEntry{}}
}

// Invalidate drops any cached entry for (kind, name); it is registered as a
// catalog.InvalidationHook. A box change also drops every cached shelf entry,
// since box membership decides whether a shelf is empty.
func (e *Engine) Invalidate(kind, name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for k := range e.cache {
		if (k.kind == kind && k.name == name) || (kind == "box" && k.kind == "shelf") {
			delete(e.cache, k)
		}
	}
}

func (e *Engine) lookup(key cacheKey) (Context, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, ok := e.cache[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return Context{}, false
	}
	return entry.value, true
}

func (e *Engine) store(key cacheKey, ctxVal Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache[key] = cacheEntry{value: ctxVal, expiresAt: time.Now().Add(cacheTTL)}
}

// CheckShelf reports whether a shelf exists, its box count, and suggested
// next actions.
func (e *Engine) CheckShelf(ctx context.Context, name string) (Context, error) {
	key := cacheKey{kind: "shelf", name: name}
	if cached, ok := e.lookup(key); ok {
		return cached, nil
	}

	shelf, err := e.Meta.GetShelfByName(ctx, name)
	if isNotFound(err) {
		out := Context{Exists: false, IsEmpty: true, SuggestedActions: []string{"create a shelf named " + name}}
		e.store(key, out)
		return out, nil
	}
	if err != nil {
		return Context{}, err
	}

	boxes, err := e.Meta.ListBoxes(ctx, shelf.Name, "")
	if err != nil {
		return Context{}, err
	}
	out := Context{Exists: true, IsEmpty: len(boxes) == 0, Summary: shelf.Description}
	if len(boxes) == 0 {
		out.SuggestedActions = []string{"create a box", "run setup wizard"}
	}
	e.store(key, out)
	return out, nil
}

// CheckBox reports whether a box exists, its configuration state, and
// suggested next actions.
func (e *Engine) CheckBox(ctx context.Context, name, shelf string) (Context, error) {
	key := cacheKey{kind: "box", name: name, shelf: shelf}
	if cached, ok := e.lookup(key); ok {
		return cached, nil
	}

	box, err := e.Meta.GetBoxByName(ctx, name)
	if isNotFound(err) {
		out := Context{Exists: false, IsEmpty: true, SuggestedActions: []string{"create a box named " + name}}
		e.store(key, out)
		return out, nil
	}
	if err != nil {
		return Context{}, err
	}

	out := Context{
		Exists:             true,
		IsEmpty:            !box.ConfigurationState.HasContent,
		ConfigurationState: box.ConfigurationState,
		Summary:            box.Description,
	}
	out.SuggestedActions = suggestedActions(box)
	e.store(key, out)
	return out, nil
}

// StatusOf returns a box's context including content counts.
func (e *Engine) StatusOf(ctx context.Context, name string) (Context, error) {
	key := cacheKey{kind: "status", name: name}
	if cached, ok := e.lookup(key); ok {
		return cached, nil
	}

	box, err := e.Meta.GetBoxByName(ctx, name)
	if isNotFound(err) {
		out := Context{Exists: false, IsEmpty: true}
		e.store(key, out)
		return out, nil
	}
	if err != nil {
		return Context{}, err
	}

	pages, err := e.Meta.CountPagesForBox(ctx, box.ID)
	if err != nil {
		return Context{}, err
	}
	chunks, err := e.Meta.CountChunksForBox(ctx, box.ID)
	if err != nil {
		return Context{}, err
	}

	out := Context{
		Exists: true, IsEmpty: pages == 0, ConfigurationState: box.ConfigurationState,
		Summary: box.Description, PageCount: pages, ChunkCount: chunks,
		SuggestedActions: suggestedActions(box),
	}
	e.store(key, out)
	return out, nil
}

func suggestedActions(box model.Box) []string {
	if !box.ConfigurationState.IsConfigured {
		return []string{"run setup wizard"}
	}
	if !box.ConfigurationState.HasContent {
		switch box.Type {
		case model.BoxTypeDrag:
			return []string{"provide a source URL", "fill the box"}
		default:
			return []string{"provide a source path", "fill the box"}
		}
	}
	return nil
}

func isNotFound(err error) bool {
	return errs.Is(err, errs.NotFound)
}
