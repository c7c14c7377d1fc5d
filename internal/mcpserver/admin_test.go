package mcpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/behemotion/docbro/internal/catalog"
	"github.com/behemotion/docbro/internal/indexer"
	"github.com/behemotion/docbro/internal/metastore"
	"github.com/behemotion/docbro/internal/wizard"
)

func newTestAdminServer(t *testing.T) *AdminServer {
	t.Helper()
	store, err := metastore.Open(filepath.Join(t.TempDir(), "meta.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	vecs := &fakeVectors{}
	cat := catalog.New(store, vecs)
	wiz := wizard.New(store, cat)
	ix := &indexer.Indexer{Vectors: vecs, Embedder: &fakeEmbedder{dim: 4}, Meta: store, Log: zap.NewNop()}

	return NewAdminServer(cat, store, wiz, ix, zap.NewNop())
}

func adminRequest(method, path, body, remoteAddr string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = remoteAddr
	return req
}

func TestAdminRejectsNonLoopbackRemoteAddr(t *testing.T) {
	s := newTestAdminServer(t)
	req := adminRequest(http.MethodGet, "/health", "", "203.0.113.5:54321")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminAcceptsLoopbackRemoteAddr(t *testing.T) {
	s := newTestAdminServer(t)
	req := adminRequest(http.MethodGet, "/health", "", "127.0.0.1:54321")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminCreateShelf(t *testing.T) {
	s := newTestAdminServer(t)
	req := adminRequest(http.MethodPost, "/mcp/v1/admin/create_shelf", `{"name":"docs"}`, "127.0.0.1:1")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.Success)
}

func TestAdminCreateShelfRequiresName(t *testing.T) {
	s := newTestAdminServer(t)
	req := adminRequest(http.MethodPost, "/mcp/v1/admin/create_shelf", `{}`, "127.0.0.1:1")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminDeniedOpsAlwaysForbidden(t *testing.T) {
	s := newTestAdminServer(t)
	for _, op := range []string{"delete_shelf", "uninstall", "reset", "delete_all_projects"} {
		req := adminRequest(http.MethodPost, "/mcp/v1/admin/"+op, `{}`, "127.0.0.1:1")
		rec := httptest.NewRecorder()
		s.echo.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code, "op %s must be denied", op)
	}
}

func TestAdminWizardStartAndStatus(t *testing.T) {
	s := newTestAdminServer(t)
	req := adminRequest(http.MethodPost, "/mcp/v1/admin/wizard/start", `{"kind":"shelf","target":"docs"}`, "127.0.0.1:1")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.True(t, env.Success)
}

func TestAdminSetCurrentShelfRequiresName(t *testing.T) {
	s := newTestAdminServer(t)
	req := adminRequest(http.MethodPost, "/mcp/v1/admin/set_current_shelf", `{}`, "127.0.0.1:1")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
