package mcpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/behemotion/docbro/internal/catalog"
	"github.com/behemotion/docbro/internal/contextengine"
	"github.com/behemotion/docbro/internal/metastore"
	"github.com/behemotion/docbro/internal/model"
	"github.com/behemotion/docbro/internal/retrieval"
)

// ReadOnlyServer exposes search and catalog browsing on a configurable,
// non-loopback-safe host/port (spec §4.K). It never mutates the catalog.
type ReadOnlyServer struct {
	echo *echo.Echo
	log  *zap.Logger

	Catalog  *catalog.Catalog
	Context  *contextengine.Engine
	Meta     *metastore.Store
	Retrieve *retrieval.Engine
	Version  string
}

func NewReadOnlyServer(cat *catalog.Catalog, ctxEngine *contextengine.Engine, meta *metastore.Store, retrieve *retrieval.Engine, log *zap.Logger) *ReadOnlyServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(accessLog(log))

	s := &ReadOnlyServer{echo: e, log: log, Catalog: cat, Context: ctxEngine, Meta: meta, Retrieve: retrieve}
	s.routes()
	return s
}

func accessLog(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			log.Info("mcp request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			)
			return err
		}
	}
}

func (s *ReadOnlyServer) routes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.POST("/mcp/v1/list_shelfs", s.handleListShelfs)
	s.echo.POST("/mcp/v1/get_shelf_structure", s.handleGetShelfStructure)
	s.echo.POST("/mcp/v1/get_current_shelf", s.handleGetCurrentShelf)
	s.echo.POST("/mcp/v1/list_boxes", s.handleListBoxes)
	s.echo.POST("/mcp/v1/search", s.handleSearch)
	s.echo.GET("/context/shelf/:name", s.handleContextShelf)
	s.echo.GET("/context/box/:name", s.handleContextBox)
}

func (s *ReadOnlyServer) Start(addr string) error {
	s.log.Info("starting mcp read-only server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

func (s *ReadOnlyServer) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *ReadOnlyServer) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, ok(map[string]string{"status": "ok", "version": s.Version}))
}

func (s *ReadOnlyServer) handleListShelfs(c echo.Context) error {
	shelves, err := s.Catalog.ListShelves(c.Request().Context(), false, 0)
	if err != nil {
		return writeErr(c, err)
	}
	current := ""
	for _, sh := range shelves {
		if sh.IsCurrent {
			current = sh.Name
		}
	}
	return c.JSON(http.StatusOK, okWithMeta(shelves, map[string]any{"total": len(shelves), "current": current}))
}

type shelfStructureRequest struct {
	Name            string `json:"name"`
	IncludeBoxes    bool   `json:"include_boxes"`
	IncludeFileList bool   `json:"include_file_list"`
}

func (s *ReadOnlyServer) handleGetShelfStructure(c echo.Context) error {
	var req shelfStructureRequest
	if err := c.Bind(&req); err != nil || req.Name == "" {
		return c.JSON(http.StatusBadRequest, fail("invalid_input", "name is required"))
	}
	shelf, err := s.Meta.GetShelfByName(c.Request().Context(), req.Name)
	if err != nil {
		return writeErr(c, err)
	}
	data := map[string]any{"shelf": shelf}
	if req.IncludeBoxes {
		boxes, err := s.Catalog.ListBoxes(c.Request().Context(), req.Name, "")
		if err != nil {
			return writeErr(c, err)
		}
		data["boxes"] = boxes
	}
	return c.JSON(http.StatusOK, ok(data))
}

func (s *ReadOnlyServer) handleGetCurrentShelf(c echo.Context) error {
	shelves, err := s.Catalog.ListShelves(c.Request().Context(), true, 1)
	if err != nil {
		return writeErr(c, err)
	}
	if len(shelves) == 0 {
		return c.JSON(http.StatusNotFound, fail("not_found", "no current shelf set"))
	}
	return c.JSON(http.StatusOK, ok(shelves[0]))
}

type listBoxesRequest struct {
	Shelf string        `json:"shelf"`
	Type  model.BoxType `json:"type"`
}

func (s *ReadOnlyServer) handleListBoxes(c echo.Context) error {
	var req listBoxesRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, fail("invalid_input", "malformed request body"))
	}
	boxes, err := s.Catalog.ListBoxes(c.Request().Context(), req.Shelf, req.Type)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, okWithMeta(boxes, map[string]any{"total": len(boxes)}))
}

type searchRequest struct {
	Query          string            `json:"query"`
	Shelf          string            `json:"shelf"`
	Box            string            `json:"box"`
	Strategy       retrieval.Strategy `json:"strategy"`
	Rerank         bool              `json:"rerank"`
	TopK           int               `json:"top_k"`
	TransformQuery bool              `json:"transform_query"`
}

func (s *ReadOnlyServer) handleSearch(c echo.Context) error {
	var req searchRequest
	if err := c.Bind(&req); err != nil || req.Query == "" || req.Box == "" {
		return c.JSON(http.StatusBadRequest, fail("invalid_input", "query and box are required"))
	}
	box, err := s.Meta.GetBoxByName(c.Request().Context(), req.Box)
	if err != nil {
		return writeErr(c, err)
	}
	if req.Strategy == "" {
		req.Strategy = retrieval.StrategySemantic
	}
	results, err := s.Retrieve.Run(c.Request().Context(), retrieval.Query{
		Text: req.Query, BoxID: box.ID, TopK: req.TopK, Strategy: req.Strategy, Rerank: req.Rerank,
	})
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, okWithMeta(results, map[string]any{"total": len(results)}))
}

func (s *ReadOnlyServer) handleContextShelf(c echo.Context) error {
	ctx, err := s.Context.CheckShelf(c.Request().Context(), c.Param("name"))
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, ok(ctx))
}

func (s *ReadOnlyServer) handleContextBox(c echo.Context) error {
	ctx, err := s.Context.CheckBox(c.Request().Context(), c.Param("name"), c.QueryParam("shelf"))
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, ok(ctx))
}
