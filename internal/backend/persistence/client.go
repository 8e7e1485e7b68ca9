package persistence

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jo-hoe/takziah/internal/backend/card"
	"github.com/jo-hoe/takziah/internal/backend/database"
	"github.com/jo-hoe/takziah/internal/backend/objectstore"
)

const renderedExt = "png"

// Client stores condolence cards: the uploaded photo and the rendered card
// go to the object store, the record row to the record store.
type Client struct {
	objects objectstore.Store
	records database.RecordStore
	cache   GalleryCache
	now     func() time.Time
}

// Submission is everything needed to persist one card
type Submission struct {
	Form     card.FormInput
	Photo    []byte
	PhotoExt string
	Rendered []byte
}

// Gallery is a public listing. Stale is set when the backend was unreachable
// and the listing comes from the cache.
type Gallery struct {
	Records []*database.Record `json:"records"`
	Stale   bool               `json:"stale"`
}

type upload struct {
	key string
	url string
}

func NewClient(objects objectstore.Store, records database.RecordStore, cache GalleryCache) *Client {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Client{
		objects: objects,
		records: records,
		cache:   cache,
		now:     time.Now,
	}
}

// UploadOriginal stores the uploaded photo under original/ and returns its public URL
func (c *Client) UploadOriginal(ctx context.Context, photo []byte, ext, label string) (string, error) {
	up, err := c.upload(ctx, "uploadOriginal", objectstore.FolderOriginal, photo, ext, label)
	if err != nil {
		return "", err
	}
	return up.url, nil
}

// UploadRendered stores a rendered card under condolence/ and returns its public URL
func (c *Client) UploadRendered(ctx context.Context, png []byte, label string) (string, error) {
	up, err := c.upload(ctx, "uploadRendered", objectstore.FolderCondolence, png, renderedExt, label)
	if err != nil {
		return "", err
	}
	return up.url, nil
}

func (c *Client) upload(ctx context.Context, op, folder string, data []byte, ext, label string) (upload, error) {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	key := objectstore.ObjectKey(folder, card.SanitizeLabel(label), ext, c.now())
	url, err := c.objects.Put(ctx, key, data, objectstore.ContentTypeForExt(ext))
	if err != nil {
		slog.Error("persistence: upload failed", "op", op, "key", key, "error", err)
		return upload{}, newError(KindStorage, op, err)
	}
	slog.Info("persistence: uploaded object", "op", op, "key", key, "size_bytes", len(data))
	return upload{key: key, url: url}, nil
}

// InsertRecord stores the record row for form referencing both uploaded objects
func (c *Client) InsertRecord(ctx context.Context, form card.FormInput, originalURL, renderedURL string) (*database.Record, error) {
	record, err := c.records.InsertRecord(ctx, database.NewRecord{
		FullName:           form.FullName,
		DateOfBirth:        form.DateOfBirth,
		DateOfDeath:        form.DateOfDeath,
		Age:                form.Age,
		PlaceOfDeath:       form.PlaceOfDeath,
		OriginalPhotoURL:   originalURL,
		CondolenceImageURL: renderedURL,
		CustomMessage:      form.CustomMessage,
		IsPublic:           true,
	})
	if err != nil {
		slog.Error("persistence: failed to insert record", "full_name", form.FullName, "error", err)
		return nil, newError(KindDatabase, "insertRecord", err)
	}
	slog.Info("persistence: record saved", "record_id", record.ID)
	return record, nil
}

// CreateCompleteRecord uploads the photo and the rendered card and inserts the
// record. When a later step fails the objects uploaded so far are deleted.
func (c *Client) CreateCompleteRecord(ctx context.Context, sub Submission) (*database.Record, error) {
	label := sub.Form.FullName

	original, err := c.upload(ctx, "uploadOriginal", objectstore.FolderOriginal, sub.Photo, sub.PhotoExt, label)
	if err != nil {
		return nil, err
	}

	rendered, err := c.upload(ctx, "uploadRendered", objectstore.FolderCondolence, sub.Rendered, renderedExt, label)
	if err != nil {
		c.discard(ctx, original)
		return nil, err
	}

	record, err := c.InsertRecord(ctx, sub.Form, original.url, rendered.url)
	if err != nil {
		c.discard(ctx, original, rendered)
		return nil, err
	}
	return record, nil
}

// discard deletes uploads of a failed submission, even when ctx is already cancelled
func (c *Client) discard(ctx context.Context, uploads ...upload) {
	ctx = context.WithoutCancel(ctx)
	for _, up := range uploads {
		if err := c.objects.Delete(ctx, up.key); err != nil {
			slog.Error("persistence: failed to delete orphaned object", "key", up.key, "error", err)
			continue
		}
		slog.Info("persistence: deleted orphaned object", "key", up.key)
	}
}

// ListPublicRecords returns public records, newest first. If the record store
// fails the last successful listing is returned with Stale set.
func (c *Client) ListPublicRecords(ctx context.Context) (*Gallery, error) {
	records, err := c.records.ListPublicRecords(ctx)
	if err == nil {
		if cacheErr := c.cache.Save(ctx, records); cacheErr != nil {
			slog.Error("persistence: failed to update gallery cache", "error", cacheErr)
		}
		slog.Debug("persistence: loaded gallery", "count", len(records))
		return &Gallery{Records: records}, nil
	}

	slog.Error("persistence: failed to load gallery", "error", err)
	cached, ok, cacheErr := c.cache.Load(ctx)
	if cacheErr != nil {
		slog.Error("persistence: failed to read gallery cache", "error", cacheErr)
	}
	if ok {
		slog.Info("persistence: serving cached gallery", "count", len(cached))
		return &Gallery{Records: cached, Stale: true}, nil
	}
	return nil, newError(KindDatabase, "listPublicRecords", err)
}

// Search matches term against name, message and place of public records
func (c *Client) Search(ctx context.Context, term string) ([]*database.Record, error) {
	records, err := c.records.SearchRecords(ctx, strings.TrimSpace(term))
	if err != nil {
		slog.Error("persistence: search failed", "term", term, "error", err)
		return nil, newError(KindDatabase, "search", err)
	}
	return records, nil
}

func (c *Client) GetRecord(ctx context.Context, id string) (*database.Record, error) {
	record, err := c.records.GetRecordByID(ctx, id)
	if errors.Is(err, database.ErrRecordNotFound) {
		return nil, err
	}
	if err != nil {
		slog.Error("persistence: failed to load record", "record_id", id, "error", err)
		return nil, newError(KindDatabase, "getRecord", err)
	}
	return record, nil
}
