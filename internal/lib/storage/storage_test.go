package storage

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/deppfellow/escuela/internal/config"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)

func fileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("foto", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	if err != nil {
		t.Fatalf("read form: %v", err)
	}
	t.Cleanup(func() { _ = form.RemoveAll() })

	return form.File["foto"][0]
}

func newStore(t *testing.T, maxSize int64) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(config.StorageConfig{
		UploadsDir:    filepath.Join(t.TempDir(), "uploads"),
		PublicPath:    "/uploads/",
		MaxUploadSize: maxSize,
	})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	store.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return store
}

func TestSaveKeepsExtension(t *testing.T) {
	store := newStore(t, 1<<20)

	url, err := store.Save(context.Background(), "foto", fileHeader(t, "Perfil.PNG", pngBytes))
	if err != nil {
		t.Fatalf("save error: %v", err)
	}

	if !regexp.MustCompile(`^/uploads/foto-1700000000000-\d+\.png$`).MatchString(url) {
		t.Fatalf("unexpected url %s", url)
	}

	stored, err := os.ReadFile(filepath.Join(store.Dir(), strings.TrimPrefix(url, "/uploads/")))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if !bytes.Equal(stored, pngBytes) {
		t.Fatalf("stored content differs")
	}
}

func TestSaveNamesDoNotCollide(t *testing.T) {
	store := newStore(t, 1<<20)

	first, err := store.Save(context.Background(), "foto", fileHeader(t, "a.png", pngBytes))
	if err != nil {
		t.Fatalf("save error: %v", err)
	}
	second, err := store.Save(context.Background(), "foto", fileHeader(t, "a.png", pngBytes))
	if err != nil {
		t.Fatalf("save error: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct names within the same millisecond, got %s twice", first)
	}
}

func TestSaveRejectsNonImage(t *testing.T) {
	store := newStore(t, 1<<20)

	_, err := store.Save(context.Background(), "foto", fileHeader(t, "notes.png", []byte("just some text")))
	if !errors.Is(err, ErrNotImage) {
		t.Fatalf("expected ErrNotImage, got %v", err)
	}
}

func TestSaveRejectsLargeFile(t *testing.T) {
	store := newStore(t, 16)

	_, err := store.Save(context.Background(), "foto", fileHeader(t, "big.png", pngBytes))
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	store := newStore(t, 1<<20)

	url, err := store.Save(context.Background(), "foto", fileHeader(t, "a.png", pngBytes))
	if err != nil {
		t.Fatalf("save error: %v", err)
	}

	if err := store.Remove(url); err != nil {
		t.Fatalf("remove error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(store.Dir(), strings.TrimPrefix(url, "/uploads/"))); !os.IsNotExist(err) {
		t.Fatalf("expected file to be gone, stat err: %v", err)
	}

	if err := store.Remove(url); err != nil {
		t.Fatalf("removing a missing photo should succeed, got %v", err)
	}

	for _, foreign := range []string{"/static/a.png", "/uploads/../config.go", "/uploads/"} {
		if err := store.Remove(foreign); !errors.Is(err, ErrForeignURL) {
			t.Fatalf("expected ErrForeignURL for %s, got %v", foreign, err)
		}
	}
}
