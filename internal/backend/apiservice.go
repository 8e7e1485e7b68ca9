package backend

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/jo-hoe/takziah/internal/backend/card"
	"github.com/jo-hoe/takziah/internal/backend/database"
	"github.com/jo-hoe/takziah/internal/backend/persistence"
	"github.com/jo-hoe/takziah/internal/common"
	"github.com/jo-hoe/takziah/internal/core"

	"github.com/labstack/echo/v4"
)

const (
	mimePNG          = "image/png"
	photoField       = "photo"
	staleHeader      = "X-Gallery-Stale"
	headerHXRequest  = "HX-Request"
	errTooManyWrites = "Too many submissions. Please wait a moment before trying again."
)

type APIService struct {
	config      *core.ServiceConfig
	coreService *core.CoreService
	limiter     *submissionLimiter
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func NewAPIService(config *core.ServiceConfig, coreService *core.CoreService) *APIService {
	return &APIService{
		config:      config,
		coreService: coreService,
		limiter:     newSubmissionLimiter(config.Limits.SubmissionsPerMinute, config.Limits.SubmissionBurst),
	}
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	if e.Validator == nil {
		e.Validator = &common.GenericEchoValidator{}
	}

	// Set probe route
	e.GET("/probe", func(c echo.Context) error {
		return c.String(http.StatusOK, "API Service is running")
	})

	api := e.Group("/api")
	api.POST("/cards/render", s.renderCardHandler, s.limitSubmissions)
	api.POST("/records", s.createRecordHandler, s.limitSubmissions)
	api.GET("/records", s.listRecordsHandler)
	api.GET("/records/search", s.searchRecordsHandler)
	api.GET("/records/:id", s.getRecordHandler)
	api.GET("/health", s.healthHandler)
}

// SubmissionLimit returns the middleware throttling card submissions. The
// frontend shares it so both surfaces draw from the same per-client budget.
func (s *APIService) SubmissionLimit() echo.MiddlewareFunc {
	return s.limitSubmissions
}

// limitSubmissions rejects rapid repeated submissions from the same client
func (s *APIService) limitSubmissions(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if !s.limiter.Allow(ctx.RealIP()) {
			slog.Warn("api: submission rate limited", "remote_ip", ctx.RealIP(), "path", ctx.Path())
			if ctx.Request().Header.Get(headerHXRequest) == "true" {
				return ctx.HTML(http.StatusTooManyRequests, `<p role="alert">`+errTooManyWrites+`</p>`)
			}
			return ctx.JSON(http.StatusTooManyRequests, ErrorResponse{Error: errTooManyWrites})
		}
		return next(ctx)
	}
}

func (s *APIService) renderCardHandler(ctx echo.Context) error {
	photo, form, err := s.readSubmission(ctx)
	if err != nil {
		return s.writeError(ctx, err)
	}

	out, parsed, err := s.coreService.RenderCard(photo, form)
	if err != nil {
		return s.writeError(ctx, err)
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", card.DownloadName(parsed.FullName)))
	return ctx.Blob(http.StatusOK, mimePNG, out)
}

func (s *APIService) createRecordHandler(ctx echo.Context) error {
	photo, form, err := s.readSubmission(ctx)
	if err != nil {
		return s.writeError(ctx, err)
	}

	record, err := s.coreService.CreateCard(ctx.Request().Context(), photo, form)
	if err != nil {
		return s.writeError(ctx, err)
	}
	return ctx.JSON(http.StatusCreated, record)
}

func (s *APIService) listRecordsHandler(ctx echo.Context) error {
	gallery, err := s.coreService.ListCards(ctx.Request().Context())
	if err != nil {
		return s.writeError(ctx, err)
	}
	if gallery.Stale {
		ctx.Response().Header().Set(staleHeader, "true")
	}
	return ctx.JSON(http.StatusOK, gallery.Records)
}

func (s *APIService) searchRecordsHandler(ctx echo.Context) error {
	records, err := s.coreService.SearchCards(ctx.Request().Context(), ctx.QueryParam("q"))
	if err != nil {
		return s.writeError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, records)
}

func (s *APIService) getRecordHandler(ctx echo.Context) error {
	record, err := s.coreService.GetCard(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return s.writeError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, record)
}

func (s *APIService) healthHandler(ctx echo.Context) error {
	report := s.coreService.Health(ctx.Request().Context())
	status := http.StatusOK
	if !report.OK() {
		status = http.StatusServiceUnavailable
	}
	return ctx.JSON(status, report)
}

func (s *APIService) readSubmission(ctx echo.Context) ([]byte, card.RawForm, error) {
	return ReadSubmission(ctx, s.config.Limits.MaxUploadBytes)
}

// ReadSubmission reads the multipart photo and the form fields of a card request
func ReadSubmission(ctx echo.Context, maxUploadBytes int64) ([]byte, card.RawForm, error) {
	var form card.RawForm
	if err := ctx.Bind(&form); err != nil {
		return nil, form, &card.RenderError{Reason: card.ReasonMissingInput, Err: err}
	}
	if err := ctx.Validate(&form); err != nil {
		return nil, form, &card.RenderError{Reason: card.ReasonMissingInput, Err: errors.New("full name is required")}
	}

	file, err := ctx.FormFile(photoField)
	if err != nil {
		return nil, form, &card.RenderError{Reason: card.ReasonMissingInput, Err: errors.New("photo is required")}
	}
	photo, err := readUpload(file, maxUploadBytes)
	if err != nil {
		return nil, form, err
	}
	return photo, form, nil
}

var errUploadTooLarge = errors.New("uploaded photo is too large")

func readUpload(file *multipart.FileHeader, limit int64) ([]byte, error) {
	if file.Size > limit {
		return nil, errUploadTooLarge
	}
	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			slog.Error("api: failed to close uploaded file reader", "error", cerr, "filename", file.Filename)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(src, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, errUploadTooLarge
	}
	return data, nil
}

func (s *APIService) writeError(ctx echo.Context, err error) error {
	status, message := StatusForError(err)
	if status >= http.StatusInternalServerError {
		slog.Error("api: request failed", "path", ctx.Path(), "status", status, "error", err)
	} else {
		slog.Warn("api: request rejected", "path", ctx.Path(), "status", status, "error", err)
	}
	return ctx.JSON(status, ErrorResponse{Error: message})
}

// StatusForError maps domain errors to an HTTP status and a plain message
func StatusForError(err error) (int, string) {
	var persistErr *persistence.PersistenceError
	switch {
	case errors.Is(err, errUploadTooLarge):
		return http.StatusRequestEntityTooLarge, "The photo is too large."
	case errors.Is(err, card.ErrMissingInput):
		return http.StatusBadRequest, capitalize(unwrapMessage(err))
	case errors.Is(err, card.ErrDecodeFailure):
		return http.StatusUnprocessableEntity, "The photo could not be read. Please upload a JPEG, PNG, GIF, WebP or SVG image."
	case errors.Is(err, card.ErrDrawFailure):
		return http.StatusUnprocessableEntity, "The card could not be drawn. Please try again."
	case errors.Is(err, database.ErrRecordNotFound):
		return http.StatusNotFound, "Record not found."
	case errors.Is(err, persistence.ErrConnectivityFailure):
		return http.StatusServiceUnavailable, "The storage service is unreachable. Please try again later."
	case errors.As(err, &persistErr):
		return http.StatusBadGateway, fmt.Sprintf("Saving failed: %v", persistErr.Err)
	default:
		return http.StatusInternalServerError, "Unexpected error."
	}
}

func unwrapMessage(err error) string {
	var renderErr *card.RenderError
	if errors.As(err, &renderErr) && renderErr.Err != nil {
		return renderErr.Err.Error()
	}
	return err.Error()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
