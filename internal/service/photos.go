package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"

	"github.com/rs/zerolog"

	"github.com/deppfellow/escuela/internal/errs"
	"github.com/deppfellow/escuela/internal/lib/storage"
)

// PhotoStore keeps uploaded photos. *storage.LocalStore implements it.
type PhotoStore interface {
	Save(ctx context.Context, field string, fh *multipart.FileHeader) (string, error)
	Remove(url string) error
	MaxSize() int64
}

// PhotoCleaner schedules photo removal in the background.
// *job.JobService implements it.
type PhotoCleaner interface {
	EnqueuePhotoRemoval(ctx context.Context, url string) error
}

// PhotoKeeper saves uploads for the record services and disposes of
// photos whose record is gone.
type PhotoKeeper struct {
	store   PhotoStore
	cleaner PhotoCleaner // nil without Redis
	logger  *zerolog.Logger
}

// save stores fh under field. A nil fh means no photo was sent.
func (p PhotoKeeper) save(ctx context.Context, field string, fh *multipart.FileHeader) (*string, error) {
	if fh == nil {
		return nil, nil
	}

	url, err := p.store.Save(ctx, field, fh)
	switch {
	case errors.Is(err, storage.ErrTooLarge):
		return nil, errs.NewBadRequestError("Validation failed", true, nil, []errs.FieldError{{
			Field: field,
			Error: fmt.Sprintf("must not exceed %d MB", p.store.MaxSize()>>20),
		}}, nil)
	case errors.Is(err, storage.ErrNotImage):
		return nil, errs.NewBadRequestError("Validation failed", true, nil, []errs.FieldError{{
			Field: field,
			Error: "must be an image",
		}}, nil)
	case err != nil:
		return nil, fmt.Errorf("storing %s: %w", field, err)
	}
	return &url, nil
}

// discard removes a photo that no record points to any more. Failures are
// logged only; the record change already happened.
func (p PhotoKeeper) discard(ctx context.Context, url *string) {
	if url == nil || *url == "" {
		return
	}

	if p.cleaner != nil {
		err := p.cleaner.EnqueuePhotoRemoval(ctx, *url)
		if err == nil {
			return
		}
		p.log(ctx).Warn().Err(err).Str("foto_url", *url).Msg("could not enqueue photo removal, removing inline")
	}

	if err := p.store.Remove(*url); err != nil {
		p.log(ctx).Error().Err(err).Str("foto_url", *url).Msg("failed to remove photo")
	}
}

// log prefers the request logger carried by ctx.
func (p PhotoKeeper) log(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return p.logger
}
