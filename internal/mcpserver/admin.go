package mcpserver

import (
	"context"
	"net"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/behemotion/docbro/internal/catalog"
	"github.com/behemotion/docbro/internal/crawler"
	"github.com/behemotion/docbro/internal/indexer"
	"github.com/behemotion/docbro/internal/metastore"
	"github.com/behemotion/docbro/internal/model"
	"github.com/behemotion/docbro/internal/wizard"
)

// deniedOps are always rejected regardless of network origin or auth (spec
// §4.L): these are irreversible or destroy the whole catalog.
var deniedOps = map[string]bool{
	"delete_shelf":        true,
	"uninstall":           true,
	"reset":               true,
	"delete_all_projects": true,
}

// AdminServer exposes catalog mutation and wizard control, bound to
// loopback only and enforced at both the socket and per-request layers
// (spec §4.L).
type AdminServer struct {
	echo *echo.Echo
	log  *zap.Logger

	Catalog *catalog.Catalog
	Meta    *metastore.Store
	Wizard  *wizard.Orchestrator
	Indexer *indexer.Indexer

	leases sync.Map // box name -> struct{}, serializes fill per box (spec §4.L)
}

func NewAdminServer(cat *catalog.Catalog, meta *metastore.Store, wiz *wizard.Orchestrator, ix *indexer.Indexer, log *zap.Logger) *AdminServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(accessLog(log))

	s := &AdminServer{echo: e, log: log, Catalog: cat, Meta: meta, Wizard: wiz, Indexer: ix}
	e.Use(s.loopbackOnly)
	s.routes()
	return s
}

// loopbackOnly rejects any request whose remote address is not loopback,
// the per-request half of spec §4.L's two-layer enforcement (the socket
// bind is the other half, applied by the caller via Start).
func (s *AdminServer) loopbackOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		host, _, err := net.SplitHostPort(c.Request().RemoteAddr)
		if err != nil {
			host = c.Request().RemoteAddr
		}
		ip := net.ParseIP(host)
		if ip == nil || !ip.IsLoopback() {
			return c.JSON(http.StatusForbidden, fail("forbidden_network", "admin server accepts loopback connections only"))
		}
		return next(c)
	}
}

func (s *AdminServer) routes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, ok(map[string]string{"status": "ok"}))
	})
	s.echo.POST("/mcp/v1/admin/create_shelf", s.handleCreateShelf)
	s.echo.POST("/mcp/v1/admin/add_basket", s.handleAddBasket)
	s.echo.POST("/mcp/v1/admin/remove_basket", s.handleRemoveBasket)
	s.echo.POST("/mcp/v1/admin/set_current_shelf", s.handleSetCurrentShelf)
	s.echo.POST("/mcp/v1/admin/wizard/start", s.handleWizardStart)
	s.echo.POST("/mcp/v1/admin/wizard/step", s.handleWizardStep)
	s.echo.POST("/mcp/v1/admin/wizard/status", s.handleWizardStatus)
	s.echo.POST("/mcp/v1/admin/wizard/cancel", s.handleWizardCancel)
	s.echo.POST("/mcp/v1/admin/fill", s.handleFill)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	for op := range deniedOps {
		path := "/mcp/v1/admin/" + op
		s.echo.POST(path, s.handleDenied)
	}
}

// Start binds the listener to host:port (127.0.0.1 only, enforced by
// config.Validate before the server is ever constructed) and serves.
func (s *AdminServer) Start(addr string) error {
	s.log.Info("starting mcp admin server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

func (s *AdminServer) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *AdminServer) handleDenied(c echo.Context) error {
	return c.JSON(http.StatusForbidden, fail("operation_prohibited", "this operation is never permitted"))
}

type createShelfRequest struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	SetCurrent     bool     `json:"set_current"`
	DefaultBoxType string   `json:"default_box_type"`
	AutoFill       bool     `json:"auto_fill"`
	Tags           []string `json:"tags"`
}

func (s *AdminServer) handleCreateShelf(c echo.Context) error {
	var req createShelfRequest
	if err := c.Bind(&req); err != nil || req.Name == "" {
		return c.JSON(http.StatusBadRequest, fail("invalid_input", "name is required"))
	}
	shelf, err := s.Catalog.CreateShelf(c.Request().Context(), req.Name, catalog.ShelfOptions{
		Description: req.Description, SetCurrent: req.SetCurrent,
		DefaultBoxType: model.BoxType(req.DefaultBoxType), AutoFill: req.AutoFill, Tags: req.Tags,
	})
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, ok(shelf))
}

type basketRequest struct {
	Shelf string `json:"shelf"`
	Box   string `json:"box"`
}

func (s *AdminServer) handleAddBasket(c echo.Context) error {
	var req basketRequest
	if err := c.Bind(&req); err != nil || req.Shelf == "" || req.Box == "" {
		return c.JSON(http.StatusBadRequest, fail("invalid_input", "shelf and box are required"))
	}
	if err := s.Catalog.AddBoxToShelf(c.Request().Context(), req.Shelf, req.Box); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, ok(nil))
}

func (s *AdminServer) handleRemoveBasket(c echo.Context) error {
	var req basketRequest
	if err := c.Bind(&req); err != nil || req.Shelf == "" || req.Box == "" {
		return c.JSON(http.StatusBadRequest, fail("invalid_input", "shelf and box are required"))
	}
	if err := s.Catalog.RemoveBoxFromShelf(c.Request().Context(), req.Shelf, req.Box); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, ok(nil))
}

type setCurrentShelfRequest struct {
	Name string `json:"name"`
}

func (s *AdminServer) handleSetCurrentShelf(c echo.Context) error {
	var req setCurrentShelfRequest
	if err := c.Bind(&req); err != nil || req.Name == "" {
		return c.JSON(http.StatusBadRequest, fail("invalid_input", "name is required"))
	}
	if err := s.Catalog.SetCurrentShelf(c.Request().Context(), req.Name); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, ok(nil))
}

type wizardStartRequest struct {
	Kind   string `json:"kind"`
	Target string `json:"target"`
}

func (s *AdminServer) handleWizardStart(c echo.Context) error {
	var req wizardStartRequest
	if err := c.Bind(&req); err != nil || req.Kind == "" {
		return c.JSON(http.StatusBadRequest, fail("invalid_input", "kind is required"))
	}
	status, err := s.Wizard.Start(c.Request().Context(), wizard.Kind(req.Kind), req.Target)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, ok(status))
}

type wizardStepRequest struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

func (s *AdminServer) handleWizardStep(c echo.Context) error {
	var req wizardStepRequest
	if err := c.Bind(&req); err != nil || req.ID == "" {
		return c.JSON(http.StatusBadRequest, fail("invalid_input", "id is required"))
	}
	status, err := s.Wizard.SubmitStep(c.Request().Context(), req.ID, req.Value)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, ok(status))
}

type wizardIDRequest struct {
	ID string `json:"id"`
}

func (s *AdminServer) handleWizardStatus(c echo.Context) error {
	var req wizardIDRequest
	if err := c.Bind(&req); err != nil || req.ID == "" {
		return c.JSON(http.StatusBadRequest, fail("invalid_input", "id is required"))
	}
	status, err := s.Wizard.Status(c.Request().Context(), req.ID)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, ok(status))
}

func (s *AdminServer) handleWizardCancel(c echo.Context) error {
	var req wizardIDRequest
	if err := c.Bind(&req); err != nil || req.ID == "" {
		return c.JSON(http.StatusBadRequest, fail("invalid_input", "id is required"))
	}
	if err := s.Wizard.Cancel(c.Request().Context(), req.ID); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, ok(nil))
}

type fillRequest struct {
	Box    string `json:"box"`
	Source string `json:"source"`
}

// handleFill triggers a box fill (crawl for drag boxes), serialized per box
// via an in-process lease map: a concurrent fill for the same box returns
// 409 busy (spec §4.L).
func (s *AdminServer) handleFill(c echo.Context) error {
	var req fillRequest
	if err := c.Bind(&req); err != nil || req.Box == "" || req.Source == "" {
		return c.JSON(http.StatusBadRequest, fail("invalid_input", "box and source are required"))
	}
	if _, busy := s.leases.LoadOrStore(req.Box, struct{}{}); busy {
		return c.JSON(http.StatusConflict, fail("busy", "a fill is already running for box "+req.Box))
	}
	defer s.leases.Delete(req.Box)

	ctx := c.Request().Context()
	box, err := s.Meta.GetBoxByName(ctx, req.Box)
	if err != nil {
		return writeErr(c, err)
	}

	switch box.Type {
	case model.BoxTypeDrag:
		return s.fillDrag(c, box, req.Source)
	default:
		return c.JSON(http.StatusOK, ok(map[string]string{"status": "unsupported_fill_path"}))
	}
}

func (s *AdminServer) fillDrag(c echo.Context, box model.Box, source string) error {
	maxPages, maxDepth, rateLimit, followExternal := 100, 3, 1.0, false
	if box.Config.Drag != nil {
		maxPages, maxDepth, rateLimit, followExternal = box.Config.Drag.MaxPages, box.Config.Drag.MaxDepth, box.Config.Drag.RateLimit, box.Config.Drag.FollowExternal
	}

	indexedCount := 0
	session := crawler.NewSession(box.ID, source, maxDepth, maxPages, rateLimit, followExternal, s.Meta, s.log, func(pf crawler.PageFetched) {
		n, err := s.Indexer.IndexPage(c.Request().Context(), box, indexer.Document{Page: pf.Page, Body: pf.Body}, "")
		if err != nil {
			s.log.Warn("indexing failed for fetched page", zap.String("url", pf.Page.URL), zap.Error(err))
			return
		}
		indexedCount += n
	})

	record, err := session.Run(c.Request().Context())
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, ok(map[string]any{
		"crawl_session": record.ID, "status": record.Status, "pages_fetched": record.Counters.PagesFetched,
		"chunks_indexed": indexedCount,
	}))
}
