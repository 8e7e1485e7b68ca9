package frontend

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jo-hoe/takziah/internal/backend"
	"github.com/jo-hoe/takziah/internal/backend/database"
	"github.com/jo-hoe/takziah/internal/backend/objectstore"
	"github.com/jo-hoe/takziah/internal/backend/persistence"
	"github.com/jo-hoe/takziah/internal/common"
	"github.com/jo-hoe/takziah/internal/core"
	"github.com/labstack/echo/v4"
)

const (
	MainPageName = "index.html"
	galleryName  = "gallery"
	resultName   = "result"

	objectContentSecurityPolicy = "default-src 'none'; style-src 'unsafe-inline'; sandbox"
)

type FrontendService struct {
	coreService *core.CoreService
	config      *core.ServiceConfig
	submitLimit []echo.MiddlewareFunc
}

// galleryView is the data of the gallery fragment
type galleryView struct {
	Records []*database.Record
	Query   string
	Stale   bool
	Error   string
	OOB     bool
}

type resultView struct {
	Record  *database.Record
	Gallery galleryView
	Error   string
}

// NewFrontendService creates the htmx frontend. submitLimit is applied to the
// card creation route.
func NewFrontendService(config *core.ServiceConfig, coreService *core.CoreService, submitLimit ...echo.MiddlewareFunc) *FrontendService {
	return &FrontendService{
		coreService: coreService,
		config:      config,
		submitLimit: submitLimit,
	}
}

// rootRedirectHandler redirects root path to index.html
func (service *FrontendService) rootRedirectHandler(ctx echo.Context) error {
	return ctx.Redirect(http.StatusMovedPermanently, "/"+MainPageName)
}

func (service *FrontendService) SetRoutes(e *echo.Echo) {
	e.Renderer = newTemplate()
	if e.Validator == nil {
		e.Validator = &common.GenericEchoValidator{}
	}

	e.GET("/", service.rootRedirectHandler) // Redirect root to index.html
	e.GET("/"+MainPageName, service.indexHandler)
	e.POST("/htmx/cards", service.htmxCreateCardHandler, service.submitLimit...)
	e.GET("/htmx/records", service.htmxRecordsHandler)

	// Objects of local and memory mode; remote objects are served by the bucket
	e.GET("/objects/*", service.objectHandler)

	// Favicon (SVG) route
	e.GET("/icon.svg", service.iconHandler)
}

func (service *FrontendService) indexHandler(ctx echo.Context) error {
	service.setNoCache(ctx)
	return ctx.Render(http.StatusOK, MainPageName, service.gallery(ctx, ""))
}

func (service *FrontendService) htmxCreateCardHandler(ctx echo.Context) error {
	photo, form, err := backend.ReadSubmission(ctx, service.config.Limits.MaxUploadBytes)
	if err != nil {
		return service.renderResultError(ctx, err)
	}

	record, err := service.coreService.CreateCard(ctx.Request().Context(), photo, form)
	if err != nil {
		return service.renderResultError(ctx, err)
	}

	// Refresh the gallery out of band so the new card shows up immediately
	gallery := service.gallery(ctx, "")
	gallery.OOB = true

	service.setNoCache(ctx)
	return ctx.Render(http.StatusOK, resultName, resultView{Record: record, Gallery: gallery})
}

func (service *FrontendService) htmxRecordsHandler(ctx echo.Context) error {
	service.setNoCache(ctx)
	return ctx.Render(http.StatusOK, galleryName, service.gallery(ctx, ctx.QueryParam("q")))
}

// gallery lists all public cards, or the matching ones when query is set.
// Failures are shown inside the fragment rather than failing the page.
func (service *FrontendService) gallery(ctx echo.Context, query string) galleryView {
	query = strings.TrimSpace(query)
	view := galleryView{Query: query}

	if query != "" {
		records, err := service.coreService.SearchCards(ctx.Request().Context(), query)
		if err != nil {
			slog.Error("frontend: failed to search cards", "query", query, "error", err)
			_, view.Error = backend.StatusForError(err)
			return view
		}
		view.Records = records
		return view
	}

	gallery, err := service.coreService.ListCards(ctx.Request().Context())
	if err != nil {
		slog.Error("frontend: failed to list cards", "error", err)
		_, view.Error = backend.StatusForError(err)
		return view
	}
	view.Records = gallery.Records
	view.Stale = gallery.Stale
	return view
}

func (service *FrontendService) renderResultError(ctx echo.Context, err error) error {
	status, message := backend.StatusForError(err)
	if status >= http.StatusInternalServerError {
		slog.Error("frontend: card creation failed", "status", status, "error", err)
	} else {
		slog.Warn("frontend: card creation rejected", "status", status, "error", err)
	}
	return ctx.Render(status, resultName, resultView{Error: message})
}

func (service *FrontendService) objectHandler(ctx echo.Context) error {
	key := ctx.Param("*")
	data, contentType, err := service.coreService.ReadObject(key)
	if errors.Is(err, objectstore.ErrObjectNotFound) || errors.Is(err, objectstore.ErrInvalidKey) ||
		errors.Is(err, persistence.ErrNotServedLocally) {
		return ctx.String(http.StatusNotFound, "Object not found")
	}
	if err != nil {
		slog.Error("frontend: failed to read object", "key", key, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to read object")
	}
	header := ctx.Response().Header()
	// Uploaded objects are user content: never sniffed, never run as a document
	header.Set(echo.HeaderXContentTypeOptions, "nosniff")
	header.Set(echo.HeaderContentSecurityPolicy, objectContentSecurityPolicy)
	// Keys carry a timestamp and are never rewritten
	header.Set("Cache-Control", "public, max-age=31536000, immutable")
	return ctx.Blob(http.StatusOK, contentType, data)
}

func (service *FrontendService) setNoCache(ctx echo.Context) {
	ctx.Response().Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	ctx.Response().Header().Set("Pragma", "no-cache")
	ctx.Response().Header().Set("Expires", "0")
}

func (service *FrontendService) iconHandler(ctx echo.Context) error {
	data, err := assetsFS.ReadFile("views/icon.svg")
	if err != nil {
		slog.Error("frontend: failed to read icon.svg", "status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to load icon")
	}
	// Cache for 7 days
	ctx.Response().Header().Set("Cache-Control", "public, max-age=604800, immutable")
	return ctx.Blob(http.StatusOK, "image/svg+xml", data)
}
