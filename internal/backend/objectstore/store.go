package objectstore

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
)

const (
	FolderOriginal   = "original"
	FolderCondolence = "condolence"
)

var (
	// ErrInvalidKey is returned for keys that would escape the store root
	ErrInvalidKey     = errors.New("invalid object key")
	ErrObjectNotFound = errors.New("object not found")
)

// Store keeps uploaded photos and rendered cards. Put overwrites an existing
// key and returns a URL under which the object is publicly readable.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// Reader is implemented by stores whose objects are served by this process
type Reader interface {
	Get(key string) ([]byte, string, error)
}

var keyLabelReplacer = strings.NewReplacer("/", "_", `\`, "_")

// ObjectKey names an object as {folder}/{unixMillis}_{label}.{ext}.
// Path separators in label are replaced so the object stays inside folder.
func ObjectKey(folder, label, ext string, now time.Time) string {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "" {
		ext = "jpg"
	}
	return fmt.Sprintf("%s/%d_%s.%s", folder, now.UnixMilli(), keyLabelReplacer.Replace(label), ext)
}

func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}

// imageContentTypes are the only media types objects are stored and served with
var imageContentTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"webp": "image/webp",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
	"svg":  "image/svg+xml",
}

// ContentTypeForExt maps an image extension to its media type. Anything else,
// markup included, is typed as opaque bytes.
func ContentTypeForExt(ext string) string {
	if t, ok := imageContentTypes[strings.TrimPrefix(strings.ToLower(ext), ".")]; ok {
		return t
	}
	return "application/octet-stream"
}

func contentTypeForKey(key string) string {
	return ContentTypeForExt(path.Ext(key))
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
