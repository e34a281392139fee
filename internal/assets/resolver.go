// Package assets locates uploaded figure bytes for inlining into composed
// documents.
//
// Stored figure paths drift: they may have been written on another OS (with
// backslashes), relative to a different working directory, or with an
// "uploads/" prefix that no longer matches the configured uploads root. The
// Resolver tries an ordered list of candidate locations and returns the
// first that exists.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-assistant-service/internal/domain"
)

// ErrNotFound is returned when no candidate location holds the asset.
var ErrNotFound = domain.ErrAssetNotFound

// Strategy names one way of turning a stored path into a candidate location.
type Strategy string

const (
	// StrategyAsGiven uses the stored path unchanged.
	StrategyAsGiven Strategy = "as_given"
	// StrategyWorkingDir joins the stored path onto the working directory.
	StrategyWorkingDir Strategy = "working_dir"
	// StrategyUploadsStripped joins the path, minus a leading "uploads/", onto the uploads root.
	StrategyUploadsStripped Strategy = "uploads_stripped"
	// StrategyUploadsBasename joins only the file name onto the uploads root.
	StrategyUploadsBasename Strategy = "uploads_basename"
	// StrategyStore reads the stored path from the configured object store.
	StrategyStore Strategy = "store"
)

// DefaultStrategies is the filesystem resolution order.
var DefaultStrategies = []Strategy{
	StrategyAsGiven,
	StrategyWorkingDir,
	StrategyUploadsStripped,
	StrategyUploadsBasename,
}

const uploadsPrefix = "uploads/"

// Asset is a located figure.
type Asset struct {
	Path        string
	Data        []byte
	MIMEType    string
	Strategy    Strategy
	Placeholder bool
}

// Candidate is one location to probe.
type Candidate struct {
	Strategy Strategy
	Path     string
}

// FileSystem is the filesystem view the resolver probes.
type FileSystem interface {
	Exists(name string) bool
	ReadFile(name string) ([]byte, error)
}

// ObjectReader reads assets from a non-filesystem store.
type ObjectReader interface {
	Open(ctx context.Context, relPath string) ([]byte, error)
}

// OSFileSystem probes the local disk.
type OSFileSystem struct{}

// Exists reports whether name is an existing regular file.
func (OSFileSystem) Exists(name string) bool {
	info, err := os.Stat(name)
	return err == nil && !info.IsDir()
}

// ReadFile reads the named file.
func (OSFileSystem) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

// FSFileSystem adapts an io/fs.FS (e.g. fstest.MapFS) to FileSystem.
// Paths are made relative to the FS root by stripping a leading slash.
type FSFileSystem struct {
	FS fs.FS
}

// Exists reports whether name exists as a regular file in the FS.
func (f FSFileSystem) Exists(name string) bool {
	info, err := fs.Stat(f.FS, fsName(name))
	return err == nil && !info.IsDir()
}

// ReadFile reads the named file from the FS.
func (f FSFileSystem) ReadFile(name string) ([]byte, error) {
	return fs.ReadFile(f.FS, fsName(name))
}

func fsName(name string) string {
	name = strings.TrimPrefix(filepath.ToSlash(name), "/")
	if name == "" {
		return "."
	}
	return path.Clean(name)
}

// Config configures a Resolver.
type Config struct {
	// UploadsRoot is the directory uploads are stored in.
	UploadsRoot string
	// WorkingDir overrides the process working directory. Empty uses os.Getwd.
	WorkingDir string
	// Strategies overrides DefaultStrategies.
	Strategies []Strategy
}

// Resolver finds figure bytes from stored relative paths.
// It is safe for concurrent use.
type Resolver struct {
	cfg    Config
	fs     FileSystem
	store  ObjectReader
	logger zerolog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithFileSystem replaces the filesystem the resolver probes.
func WithFileSystem(fsys FileSystem) Option {
	return func(r *Resolver) { r.fs = fsys }
}

// WithObjectStore enables StrategyStore as a final fallback.
func WithObjectStore(store ObjectReader) Option {
	return func(r *Resolver) { r.store = store }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Resolver) { r.logger = logger.With().Str("component", "asset_resolver").Logger() }
}

// NewResolver creates a Resolver.
func NewResolver(cfg Config, opts ...Option) *Resolver {
	if len(cfg.Strategies) == 0 {
		cfg.Strategies = DefaultStrategies
	}
	if cfg.WorkingDir == "" {
		if wd, err := os.Getwd(); err == nil {
			cfg.WorkingDir = wd
		}
	}
	r := &Resolver{
		cfg:    cfg,
		fs:     OSFileSystem{},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Candidates lists the locations to probe for a stored path, in priority order.
func Candidates(storedPath, workingDir, uploadsRoot string, strategies []Strategy) []Candidate {
	rel := domain.NormalizeFilePath(storedPath)
	out := make([]Candidate, 0, len(strategies))
	for _, s := range strategies {
		var p string
		switch s {
		case StrategyAsGiven:
			p = rel
		case StrategyWorkingDir:
			if workingDir == "" {
				continue
			}
			p = filepath.Join(workingDir, filepath.FromSlash(rel))
		case StrategyUploadsStripped:
			if uploadsRoot == "" {
				continue
			}
			p = filepath.Join(uploadsRoot, filepath.FromSlash(strings.TrimPrefix(rel, uploadsPrefix)))
		case StrategyUploadsBasename:
			if uploadsRoot == "" {
				continue
			}
			p = filepath.Join(uploadsRoot, path.Base(rel))
		default:
			continue
		}
		out = append(out, Candidate{Strategy: s, Path: p})
	}
	return out
}

// FirstExisting returns the first candidate for which exists reports true.
func FirstExisting(candidates []Candidate, exists func(string) bool) (Candidate, bool) {
	for _, c := range candidates {
		if exists(c.Path) {
			return c, true
		}
	}
	return Candidate{}, false
}

// Resolve returns the bytes of the first candidate location that exists.
// It returns ErrNotFound when none does.
func (r *Resolver) Resolve(ctx context.Context, storedPath string) (*Asset, error) {
	if strings.TrimSpace(storedPath) == "" {
		return nil, fmt.Errorf("%w: empty path", ErrNotFound)
	}

	candidates := Candidates(storedPath, r.cfg.WorkingDir, r.cfg.UploadsRoot, r.cfg.Strategies)
	if c, ok := FirstExisting(candidates, r.fs.Exists); ok {
		data, err := r.fs.ReadFile(c.Path)
		if err == nil {
			r.logger.Debug().
				Str("path", storedPath).
				Str("resolved", c.Path).
				Str("strategy", string(c.Strategy)).
				Msg("asset resolved")
			return &Asset{Path: c.Path, Data: data, MIMEType: MIMEType(c.Path), Strategy: c.Strategy}, nil
		}
		r.logger.Warn().Err(err).Str("resolved", c.Path).Msg("failed to read resolved asset")
	}

	if r.store != nil {
		rel := domain.NormalizeFilePath(storedPath)
		data, err := r.store.Open(ctx, rel)
		if err == nil {
			return &Asset{Path: rel, Data: data, MIMEType: MIMEType(rel), Strategy: StrategyStore}, nil
		}
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, domain.ErrNotFound) {
			r.logger.Warn().Err(err).Str("path", rel).Msg("object store read failed")
		}
	}

	r.logger.Warn().
		Str("path", storedPath).
		Int("candidates", len(candidates)).
		Msg("asset not found at any candidate location")
	return nil, fmt.Errorf("%w: %s", ErrNotFound, storedPath)
}
