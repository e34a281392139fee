// Package storage persists uploaded figure files.
//
// Stored paths are relative, use forward slashes and start with "uploads/",
// whichever backend holds the bytes.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/helixir/paper-assistant-service/internal/domain"
)

// Prefix is prepended to every stored path.
const Prefix = "uploads/"

// Backend names.
const (
	BackendLocal = "local"
	BackendS3    = "s3"
)

// FileStore saves uploaded files and reads them back by stored path.
type FileStore interface {
	// Save stores the content under name and returns the relative stored path.
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	// Open returns the bytes stored at relPath. Missing files yield a
	// domain.NotFoundError.
	Open(ctx context.Context, relPath string) ([]byte, error)
}

// UploadName returns the stored file name for an upload: the upload time in
// Unix milliseconds, a dash, then the sanitized original name.
func UploadName(now time.Time, original string) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), SanitizeName(original))
}

// SanitizeName strips directories and characters that are unsafe in object
// keys and file names.
func SanitizeName(name string) string {
	name = path.Base(domain.NormalizeFilePath(strings.TrimSpace(name)))
	name = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == 0x7f:
			return -1
		case strings.ContainsRune(`/\:*?"<>|`, r):
			return '_'
		}
		return r
	}, name)
	if name == "." || name == ".." || name == "" {
		return "file"
	}
	return name
}

// keyFor converts a stored path into a key relative to the backend root.
func keyFor(relPath string) (string, error) {
	rel := strings.TrimPrefix(domain.NormalizeFilePath(relPath), "/")
	rel = strings.TrimPrefix(rel, Prefix)
	clean := path.Clean(rel)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", domain.NewValidationError("file_path", "invalid stored path "+relPath)
	}
	return clean, nil
}
