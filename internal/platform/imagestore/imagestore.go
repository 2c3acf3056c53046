// Package imagestore stores uploaded radiograph images on local disk.
// It validates extension and size, sanitizes file names, and uniquifies
// them so concurrent uploads of "xray.png" never collide.
package imagestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

var (
	ErrImageNotFound     = errors.New("image not found")
	ErrImageTooLarge     = errors.New("image exceeds maximum allowed size")
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrMissingFileName   = errors.New("file name is required")
)

// DefaultMaxSize is the upload size cap applied when none is configured (16 MB).
const DefaultMaxSize = 16 * 1024 * 1024

// DefaultExtensions are the image extensions accepted when none are configured.
var DefaultExtensions = []string{"png", "jpg", "jpeg"}

// StoredImage describes an image persisted by the store.
type StoredImage struct {
	FileName string    `json:"file_name"`
	Size     int64     `json:"size"`
	SavedAt  time.Time `json:"saved_at"`
}

// Store is the contract for radiograph image persistence.
type Store interface {
	Save(ctx context.Context, fileName string, content io.Reader) (*StoredImage, error)
	Open(ctx context.Context, fileName string) (io.ReadCloser, error)
	Remove(ctx context.Context, fileName string) error
	Path(fileName string) string
}

// DiskStore persists images under a single directory.
type DiskStore struct {
	dir     string
	maxSize int64
	allowed map[string]bool
}

// NewDiskStore creates the storage directory if needed and returns a store
// that accepts the given extensions (without dots) up to maxSize bytes.
func NewDiskStore(dir string, maxSize int64, extensions []string) (*DiskStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}

	return &DiskStore{dir: dir, maxSize: maxSize, allowed: allowed}, nil
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// sanitizeName strips any path components and replaces characters that are
// unsafe in file names. The result carries no directory information.
func sanitizeName(name string) string {
	name = filepath.Base(name)
	name = unsafeNameChars.ReplaceAllString(name, "_")
	return strings.Trim(name, "._")
}

// uniquify prepends a short random prefix so repeated uploads of the same
// file name never overwrite each other.
func uniquify(name string) string {
	return uuid.New().String()[:8] + "_" + name
}

func (s *DiskStore) extension(name string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" || !s.allowed[ext] {
		return "", ErrUnsupportedFormat
	}
	return ext, nil
}

// Save validates and writes the image, returning the stored (uniquified)
// file name. A partial file left by a failed write is removed.
func (s *DiskStore) Save(_ context.Context, fileName string, content io.Reader) (*StoredImage, error) {
	clean := sanitizeName(fileName)
	if clean == "" {
		return nil, ErrMissingFileName
	}
	if _, err := s.extension(clean); err != nil {
		return nil, err
	}

	stored := uniquify(clean)
	dest := filepath.Join(s.dir, stored)

	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating image file: %w", err)
	}

	n, err := io.Copy(f, io.LimitReader(content, s.maxSize+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(dest)
		return nil, fmt.Errorf("writing image file: %w", err)
	}
	if n > s.maxSize {
		os.Remove(dest)
		return nil, ErrImageTooLarge
	}

	return &StoredImage{
		FileName: stored,
		Size:     n,
		SavedAt:  time.Now().UTC(),
	}, nil
}

// Open returns a reader over a stored image. The file name is sanitized
// again so a traversal attempt resolves to nothing outside the directory.
func (s *DiskStore) Open(_ context.Context, fileName string) (io.ReadCloser, error) {
	clean := sanitizeName(fileName)
	if clean == "" {
		return nil, ErrImageNotFound
	}

	f, err := os.Open(filepath.Join(s.dir, clean))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("opening image file: %w", err)
	}
	return f, nil
}

// Remove deletes a stored image.
func (s *DiskStore) Remove(_ context.Context, fileName string) error {
	clean := sanitizeName(fileName)
	if clean == "" {
		return ErrImageNotFound
	}

	if err := os.Remove(filepath.Join(s.dir, clean)); err != nil {
		if os.IsNotExist(err) {
			return ErrImageNotFound
		}
		return fmt.Errorf("removing image file: %w", err)
	}
	return nil
}

// Path returns the on-disk path for a stored file name.
func (s *DiskStore) Path(fileName string) string {
	return filepath.Join(s.dir, sanitizeName(fileName))
}

// Handler serves stored images over HTTP.
type Handler struct {
	store Store
}

// NewHandler creates an image-serving handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes mounts the image download route on the supplied group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/uploads/:filename", h.handleServe)
}

func (h *Handler) handleServe(c echo.Context) error {
	name := c.Param("filename")

	rc, err := h.store.Open(c.Request().Context(), name)
	if err != nil {
		if errors.Is(err, ErrImageNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "image not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to read image"})
	}
	defer rc.Close()

	return c.Stream(http.StatusOK, contentTypeFor(name), rc)
}

func contentTypeFor(name string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")) {
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}
