package metastore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndGetWizardSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ws, err := s.SaveWizardSession(ctx, WizardSession{Kind: "shelf", Target: "docs", CurrentStep: 0, TotalSteps: 4})
	require.NoError(t, err)
	require.NotEmpty(t, ws.ID)

	got, err := s.GetWizardSession(ctx, ws.ID)
	require.NoError(t, err)
	assert.Equal(t, "shelf", got.Kind)
	assert.Equal(t, "{}", string(got.Collected))
}

func TestSaveWizardSessionUpserts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ws, err := s.SaveWizardSession(ctx, WizardSession{Kind: "shelf", Target: "docs", TotalSteps: 4})
	require.NoError(t, err)

	ws.CurrentStep = 2
	ws.Completed = true
	_, err = s.SaveWizardSession(ctx, ws)
	require.NoError(t, err)

	got, err := s.GetWizardSession(ctx, ws.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentStep)
	assert.True(t, got.Completed)
}

func TestDeleteWizardSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ws, err := s.SaveWizardSession(ctx, WizardSession{Kind: "box", Target: "b1", TotalSteps: 2})
	require.NoError(t, err)

	require.NoError(t, s.DeleteWizardSession(ctx, ws.ID))
	_, err = s.GetWizardSession(ctx, ws.ID)
	assert.Error(t, err)
}

func TestCountActiveWizardSessionsExcludesCompleted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.SaveWizardSession(ctx, WizardSession{Kind: "box", Target: "b1", TotalSteps: 2})
	require.NoError(t, err)
	ws2, err := s.SaveWizardSession(ctx, WizardSession{Kind: "box", Target: "b2", TotalSteps: 2, Completed: true})
	require.NoError(t, err)
	_ = ws2

	n, err := s.CountActiveWizardSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSweepExpiredWizardSessionsRemovesOldIncomplete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.SaveWizardSession(ctx, WizardSession{Kind: "box", Target: "b1", TotalSteps: 2})
	require.NoError(t, err)

	n, err := s.SweepExpiredWizardSessions(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	remaining, err := s.CountActiveWizardSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}

func TestSweepExpiredWizardSessionsKeepsRecent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.SaveWizardSession(ctx, WizardSession{Kind: "box", Target: "b1", TotalSteps: 2})
	require.NoError(t, err)

	n, err := s.SweepExpiredWizardSessions(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSettingsSetGetDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, ok, err := s.GetSetting(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetSetting(ctx, "embed_model", "bge-small"))
	v, ok, err := s.GetSetting(ctx, "embed_model")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "bge-small", v)

	require.NoError(t, s.SetSetting(ctx, "embed_model", "bge-large"))
	v, _, err = s.GetSetting(ctx, "embed_model")
	require.NoError(t, err)
	assert.Equal(t, "bge-large", v)

	all, err := s.AllSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"embed_model": "bge-large"}, all)

	require.NoError(t, s.DeleteSetting(ctx, "embed_model"))
	_, ok, err = s.GetSetting(ctx, "embed_model")
	require.NoError(t, err)
	assert.False(t, ok)
}
