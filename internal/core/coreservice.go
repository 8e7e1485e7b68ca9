package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jo-hoe/takziah/internal/backend/card"
	"github.com/jo-hoe/takziah/internal/backend/database"
	"github.com/jo-hoe/takziah/internal/backend/persistence"
)

type CoreService struct {
	config   *ServiceConfig
	renderer *card.Renderer
	backend  *persistence.Backend
}

func NewCoreService(ctx context.Context, config *ServiceConfig) (*CoreService, error) {
	fonts, err := card.LoadFontSet(config.Render.ArabicFontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load fonts: %w", err)
	}

	backend, err := persistence.Open(ctx, config.PersistenceConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize persistence: %w", err)
	}
	slog.Info("core: persistence initialized successfully", "mode", config.Persistence.Mode)

	return &CoreService{
		config:   config,
		renderer: card.NewRenderer(fonts, config.Render.SVGFallbackWidth, config.Render.SVGFallbackHeight),
		backend:  backend,
	}, nil
}

// RenderCard validates the form and renders the card without storing anything
func (service *CoreService) RenderCard(photo []byte, raw card.RawForm) ([]byte, card.FormInput, error) {
	form, err := card.ParseFormInput(raw)
	if err != nil {
		return nil, card.FormInput{}, err
	}
	png, err := service.renderer.Render(photo, form)
	if err != nil {
		slog.Error("core: render failed", "full_name", form.FullName, "error", err)
		return nil, form, err
	}
	return png, form, nil
}

// CreateCard renders the card and persists photo, card and record together
func (service *CoreService) CreateCard(ctx context.Context, photo []byte, raw card.RawForm) (*database.Record, error) {
	png, form, err := service.RenderCard(photo, raw)
	if err != nil {
		return nil, err
	}
	ext, err := photoExtension(photo)
	if err != nil {
		return nil, err
	}

	record, err := service.backend.CreateCompleteRecord(ctx, persistence.Submission{
		Form:     form,
		Photo:    photo,
		PhotoExt: ext,
		Rendered: png,
	})
	if err != nil {
		return nil, err
	}
	slog.Info("core: card created", "record_id", record.ID, "output_size_bytes", len(png))
	return record, nil
}

func (service *CoreService) ListCards(ctx context.Context) (*persistence.Gallery, error) {
	return service.backend.ListPublicRecords(ctx)
}

func (service *CoreService) SearchCards(ctx context.Context, term string) ([]*database.Record, error) {
	return service.backend.Search(ctx, term)
}

func (service *CoreService) GetCard(ctx context.Context, id string) (*database.Record, error) {
	return service.backend.GetRecord(ctx, id)
}

func (service *CoreService) Health(ctx context.Context) *persistence.ConnectionReport {
	return service.backend.TestConnection(ctx)
}

// ReadObject returns an object stored by this process in local or memory mode
func (service *CoreService) ReadObject(key string) ([]byte, string, error) {
	return service.backend.ReadObject(key)
}

func (service *CoreService) Config() *ServiceConfig {
	return service.config
}

func (service *CoreService) Close() error {
	return service.backend.Close()
}

// photoExtension derives the stored extension from the decoded image format.
// The client file name is never trusted for it.
func photoExtension(photo []byte) (string, error) {
	format, err := card.DetectFormat(photo)
	if err != nil {
		return "", &card.RenderError{Reason: card.ReasonDecodeFailure, Err: err}
	}
	if format == "jpeg" {
		return "jpg", nil
	}
	return format, nil
}
