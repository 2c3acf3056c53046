package imagestore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestStore(t *testing.T) *DiskStore {
	t.Helper()
	store, err := NewDiskStore(t.TempDir(), 1024, []string{"png", "jpg", "jpeg"})
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	return store
}

func TestDiskStore_SaveAndOpen(t *testing.T) {
	store := newTestStore(t)
	content := "fake-png-bytes"

	stored, err := store.Save(context.Background(), "xray.png", strings.NewReader(content))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.FileName == "xray.png" {
		t.Error("expected stored name to be uniquified")
	}
	if !strings.HasSuffix(stored.FileName, "_xray.png") {
		t.Errorf("expected stored name to keep original suffix, got %s", stored.FileName)
	}
	if stored.Size != int64(len(content)) {
		t.Errorf("expected size=%d, got %d", len(content), stored.Size)
	}

	rc, err := store.Open(context.Background(), stored.FileName)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("reading image: %v", err)
	}
	if string(data) != content {
		t.Errorf("expected content=%q, got %q", content, string(data))
	}
}

func TestDiskStore_Save_UnsupportedFormat(t *testing.T) {
	store := newTestStore(t)

	for _, name := range []string{"report.pdf", "script.sh", "noext"} {
		if _, err := store.Save(context.Background(), name, strings.NewReader("x")); err != ErrUnsupportedFormat {
			t.Errorf("%s: expected ErrUnsupportedFormat, got %v", name, err)
		}
	}
}

func TestDiskStore_Save_TooLarge(t *testing.T) {
	store := newTestStore(t)

	big := strings.Repeat("a", 1025)
	if _, err := store.Save(context.Background(), "big.png", strings.NewReader(big)); err != ErrImageTooLarge {
		t.Errorf("expected ErrImageTooLarge, got %v", err)
	}
}

func TestDiskStore_Save_SanitizesTraversal(t *testing.T) {
	store := newTestStore(t)

	stored, err := store.Save(context.Background(), "../../etc/passwd.png", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(stored.FileName, "/") || strings.Contains(stored.FileName, "..") {
		t.Errorf("expected path components stripped, got %s", stored.FileName)
	}
}

func TestDiskStore_Save_NoCollision(t *testing.T) {
	store := newTestStore(t)

	a, err := store.Save(context.Background(), "same.png", strings.NewReader("first"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := store.Save(context.Background(), "same.png", strings.NewReader("second"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.FileName == b.FileName {
		t.Errorf("expected distinct stored names, both got %s", a.FileName)
	}
}

func TestDiskStore_OpenNotFound(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Open(context.Background(), "missing.png"); err != ErrImageNotFound {
		t.Errorf("expected ErrImageNotFound, got %v", err)
	}
}

func TestDiskStore_Remove(t *testing.T) {
	store := newTestStore(t)

	stored, err := store.Save(context.Background(), "gone.png", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := store.Remove(context.Background(), stored.FileName); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Open(context.Background(), stored.FileName); err != ErrImageNotFound {
		t.Errorf("expected ErrImageNotFound after remove, got %v", err)
	}
	if err := store.Remove(context.Background(), stored.FileName); err != ErrImageNotFound {
		t.Errorf("expected ErrImageNotFound for second remove, got %v", err)
	}
}

func TestHandler_Serve(t *testing.T) {
	store := newTestStore(t)
	stored, err := store.Save(context.Background(), "serve.png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	e := echo.New()
	NewHandler(store).RegisterRoutes(e.Group(""))

	req := httptest.NewRequest(http.MethodGet, "/uploads/"+stored.FileName, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("expected Content-Type image/png, got %s", ct)
	}
	if rec.Body.String() != "png-bytes" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestHandler_ServeNotFound(t *testing.T) {
	store := newTestStore(t)

	e := echo.New()
	NewHandler(store).RegisterRoutes(e.Group(""))

	req := httptest.NewRequest(http.MethodGet, "/uploads/nope.png", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
