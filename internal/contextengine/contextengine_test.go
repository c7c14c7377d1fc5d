package contextengine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/behemotion/docbro/internal/catalog"
	"github.com/behemotion/docbro/internal/metastore"
	"github.com/behemotion/docbro/internal/model"
)

func newTestEngine(t *testing.T) (*Engine, *catalog.Catalog) {
	t.Helper()
	store, err := metastore.Open(filepath.Join(t.TempDir(), "meta.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	cat := catalog.New(store, nil)
	engine := New(store)
	cat.OnChange(engine.Invalidate)
	return engine, cat
}

func TestCheckShelfMissing(t *testing.T) {
	engine, _ := newTestEngine(t)
	out, err := engine.CheckShelf(context.Background(), "nope")
	require.NoError(t, err)
	require.False(t, out.Exists)
	require.True(t, out.IsEmpty)
}

func TestCheckShelfEmptyVsPopulated(t *testing.T) {
	engine, cat := newTestEngine(t)
	ctx := context.Background()
	_, err := cat.CreateShelf(ctx, "docs", catalog.ShelfOptions{SetCurrent: true})
	require.NoError(t, err)

	out, err := engine.CheckShelf(ctx, "docs")
	require.NoError(t, err)
	require.True(t, out.Exists)
	require.True(t, out.IsEmpty)

	_, err = cat.CreateBox(ctx, "box1", model.BoxTypeDrag, catalog.BoxOptions{Shelf: "docs"})
	require.NoError(t, err)

	out, err = engine.CheckShelf(ctx, "docs")
	require.NoError(t, err)
	require.False(t, out.IsEmpty, "cache must be invalidated by the box-create notify hook")
}

func TestCacheServesRepeatedLookupWithoutChange(t *testing.T) {
	engine, cat := newTestEngine(t)
	ctx := context.Background()
	_, err := cat.CreateShelf(ctx, "docs", catalog.ShelfOptions{SetCurrent: true})
	require.NoError(t, err)

	first, err := engine.CheckShelf(ctx, "docs")
	require.NoError(t, err)
	second, err := engine.CheckShelf(ctx, "docs")
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestInvalidateDropsOnlyMatchingKey(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	_, _ = engine.CheckShelf(ctx, "docs")
	_, _ = engine.CheckShelf(ctx, "other")
	require.Len(t, engine.cache, 2)

	engine.Invalidate("shelf", "docs")
	require.Len(t, engine.cache, 1)
	_, stillCached := engine.lookup(cacheKey{kind: "shelf", name: "other"})
	require.True(t, stillCached)
}

func TestSuggestedActionsForUnconfiguredBox(t *testing.T) {
	actions := suggestedActions(model.Box{Type: model.BoxTypeDrag})
	require.Equal(t, []string{"run setup wizard"}, actions)
}

func TestSuggestedActionsForConfiguredEmptyDragBox(t *testing.T) {
	box := model.Box{
		Type:                model.BoxTypeDrag,
		ConfigurationState: model.ConfigurationState{IsConfigured: true, HasContent: false},
	}
	actions := suggestedActions(box)
	require.Equal(t, []string{"provide a source URL", "fill the box"}, actions)
}

func TestSuggestedActionsForFullyConfiguredBox(t *testing.T) {
	box := model.Box{
		ConfigurationState: model.ConfigurationState{IsConfigured: true, HasContent: true},
	}
	require.Nil(t, suggestedActions(box))
}
