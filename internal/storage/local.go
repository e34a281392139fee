package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-assistant-service/internal/domain"
)

// LocalStore keeps uploads in a directory on disk.
type LocalStore struct {
	root   string
	logger zerolog.Logger
}

// NewLocalStore creates the uploads root if needed and verifies it is writable.
func NewLocalStore(root string, logger zerolog.Logger) (*LocalStore, error) {
	if root == "" {
		return nil, errors.New("uploads root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create uploads root: %w", err)
	}

	probe, err := os.CreateTemp(root, ".permissions-test-*")
	if err != nil {
		return nil, fmt.Errorf("uploads root is not writable: %w", err)
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)

	logger = logger.With().Str("component", "local_store").Logger()
	logger.Info().Str("root", root).Msg("uploads directory ready")

	return &LocalStore{root: root, logger: logger}, nil
}

// Root returns the uploads directory.
func (s *LocalStore) Root() string {
	return s.root
}

// Save writes the content to root/name.
func (s *LocalStore) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name = SanitizeName(name)
	dst := filepath.Join(s.root, name)

	f, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create upload %s: %w", name, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(dst)
		return "", fmt.Errorf("failed to write upload %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("failed to close upload %s: %w", name, err)
	}

	s.logger.Debug().Str("file", dst).Msg("upload saved")
	return Prefix + name, nil
}

// Open reads a stored upload.
func (s *LocalStore) Open(ctx context.Context, relPath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, err := keyFor(relPath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(key)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.NewNotFoundError("file", relPath)
		}
		return nil, fmt.Errorf("failed to read upload %s: %w", relPath, err)
	}
	return data, nil
}
