// Package storage keeps uploaded profile photos on local disk and hands out
// the relative URLs under which they are served.
package storage

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/deppfellow/escuela/internal/config"
)

var (
	// ErrTooLarge is returned when an upload exceeds the configured size.
	ErrTooLarge = errors.New("file is too large")

	// ErrNotImage is returned when the uploaded content is not an image.
	ErrNotImage = errors.New("file is not an image")

	// ErrForeignURL is returned by Remove for URLs this store did not issue.
	ErrForeignURL = errors.New("url does not belong to the photo store")
)

var extRe = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

// LocalStore writes photos into a single directory.
type LocalStore struct {
	dir        string
	publicPath string
	maxSize    int64
	now        func() time.Time
}

// NewLocalStore creates the uploads directory if needed.
func NewLocalStore(cfg config.StorageConfig) (*LocalStore, error) {
	if err := os.MkdirAll(cfg.UploadsDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating uploads dir %s", cfg.UploadsDir)
	}

	return &LocalStore{
		dir:        cfg.UploadsDir,
		publicPath: strings.TrimSuffix(cfg.PublicPath, "/"),
		maxSize:    cfg.MaxUploadSize,
		now:        time.Now,
	}, nil
}

// Dir is the directory served under PublicPath.
func (s *LocalStore) Dir() string { return s.dir }

// PublicPath is the URL prefix of stored photos, e.g. "/uploads".
func (s *LocalStore) PublicPath() string { return s.publicPath }

// MaxSize is the upload limit in bytes.
func (s *LocalStore) MaxSize() int64 { return s.maxSize }

// fileName is "<field>-<unix millis>-<random><ext>". The original extension
// is kept when it looks like one.
func (s *LocalStore) fileName(field, original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	if !extRe.MatchString(ext) {
		ext = ""
	}
	return fmt.Sprintf("%s-%d-%d%s", field, s.now().UnixMilli(), uuid.New().ID(), ext)
}

// Save stores the uploaded file and returns its public URL.
func (s *LocalStore) Save(ctx context.Context, field string, fh *multipart.FileHeader) (string, error) {
	if fh.Size > s.maxSize {
		return "", ErrTooLarge
	}

	src, err := fh.Open()
	if err != nil {
		return "", errors.Wrap(err, "opening upload")
	}
	defer src.Close()

	mtype, err := mimetype.DetectReader(src)
	if err != nil {
		return "", errors.Wrap(err, "detecting upload type")
	}
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", ErrNotImage
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", errors.Wrap(err, "rewinding upload")
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := s.fileName(field, fh.Filename)
	dst, err := os.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", errors.Wrap(err, "creating photo file")
	}

	// One byte over the limit is enough to tell a lying Content-Length.
	written, err := io.Copy(dst, io.LimitReader(src, s.maxSize+1))
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err == nil && written > s.maxSize {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(filepath.Join(s.dir, name))
		if errors.Is(err, ErrTooLarge) {
			return "", err
		}
		return "", errors.Wrap(err, "writing photo file")
	}

	return s.publicPath + "/" + name, nil
}

// Remove deletes a photo previously returned by Save. Missing files are
// not an error.
func (s *LocalStore) Remove(url string) error {
	prefix := s.publicPath + "/"
	if !strings.HasPrefix(url, prefix) {
		return ErrForeignURL
	}

	name := strings.TrimPrefix(url, prefix)
	if name == "" || name != path.Base(name) || strings.ContainsAny(name, `/\`) || name == ".." {
		return ErrForeignURL
	}

	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "removing photo %s", name)
	}
	return nil
}
