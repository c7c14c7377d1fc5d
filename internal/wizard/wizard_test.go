package wizard

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/behemotion/docbro/internal/catalog"
	"github.com/behemotion/docbro/internal/errs"
	"github.com/behemotion/docbro/internal/metastore"
)

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	store, err := metastore.Open(filepath.Join(t.TempDir(), "meta.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	cat := catalog.New(store, nil)
	return New(store, cat)
}

func TestStartUnknownKind(t *testing.T) {
	o := newTestOrchestrator(t)
	_, err := o.Start(context.Background(), Kind("bogus"), "x")
	kind, ok := errs.As(err)
	require.True(t, ok)
	require.Equal(t, errs.InvalidInput, kind)
}

func TestShelfWizardFullFlowCreatesShelf(t *testing.T) {
	o := newTestOrchestrator(t)
	ctx := context.Background()

	st, err := o.Start(ctx, KindShelf, "docs")
	require.NoError(t, err)
	require.Equal(t, "name", st.NextKey)
	require.False(t, st.Completed)

	st, err = o.SubmitStep(ctx, st.ID, "docs")
	require.NoError(t, err)
	require.Equal(t, "description", st.NextKey)

	st, err = o.SubmitStep(ctx, st.ID, "docs shelf")
	require.NoError(t, err)
	require.Equal(t, "default_box_type", st.NextKey)

	st, err = o.SubmitStep(ctx, st.ID, "drag")
	require.NoError(t, err)
	require.Equal(t, "auto_fill", st.NextKey)

	st, err = o.SubmitStep(ctx, st.ID, "true")
	require.NoError(t, err)
	require.True(t, st.Completed)

	shelves, err := o.Meta.ListShelves(ctx, false, 0)
	require.NoError(t, err)
	require.Len(t, shelves, 2, "the auto-created default shelf plus the new one")
	require.Equal(t, "docs", shelves[0].Name, "created_at DESC puts the newest shelf first")
}

func TestSubmitStepRejectsInvalidValue(t *testing.T) {
	o := newTestOrchestrator(t)
	ctx := context.Background()
	st, err := o.Start(ctx, KindMCP, "server")
	require.NoError(t, err)

	_, err = o.SubmitStep(ctx, st.ID, "not-a-port")
	kind, ok := errs.As(err)
	require.True(t, ok)
	require.Equal(t, errs.WizardInvalid, kind)
}

func TestSubmitStepOnCompletedSessionFails(t *testing.T) {
	o := newTestOrchestrator(t)
	ctx := context.Background()
	st, err := o.Start(ctx, KindMCP, "server")
	require.NoError(t, err)
	st, err = o.SubmitStep(ctx, st.ID, "8080")
	require.NoError(t, err)
	st, err = o.SubmitStep(ctx, st.ID, "8081")
	require.NoError(t, err)
	require.True(t, st.Completed)

	_, err = o.SubmitStep(ctx, st.ID, "8082")
	require.Error(t, err)
}

func TestCancelRemovesSession(t *testing.T) {
	o := newTestOrchestrator(t)
	ctx := context.Background()
	st, err := o.Start(ctx, KindBox, "mybox")
	require.NoError(t, err)

	require.NoError(t, o.Cancel(ctx, st.ID))
	_, err = o.Status(ctx, st.ID)
	require.Error(t, err)
}

func TestStartRejectsBeyondMaxConcurrentSessions(t *testing.T) {
	o := newTestOrchestrator(t)
	ctx := context.Background()
	for i := 0; i < maxConcurrentSessions; i++ {
		_, err := o.Start(ctx, KindBox, "box")
		require.NoError(t, err)
	}
	_, err := o.Start(ctx, KindBox, "one-too-many")
	kind, ok := errs.As(err)
	require.True(t, ok)
	require.Equal(t, errs.WizardInvalid, kind)
}
