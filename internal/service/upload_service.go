package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/coaching-center-api/internal/observability"
)

var (
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the file is not a supported image.
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
	// ErrUploadMissing indicates the request carried no file.
	ErrUploadMissing = errors.New("file is required")
	// ErrUploadUnavailable indicates no storage backend is configured.
	ErrUploadUnavailable = errors.New("file storage is not configured")
)

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// FileStorage abstracts upload destinations.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// UploadedImage describes a stored profile picture.
type UploadedImage struct {
	URL       string
	MimeType  string
	SizeBytes int64
	Checksum  string
}

// ImageUploader validates and stores profile pictures.
type ImageUploader interface {
	Upload(ctx context.Context, file *multipart.FileHeader, owner uint) (UploadedImage, error)
}

type imageUploader struct {
	storage FileStorage
	logger  zerolog.Logger
	maxSize int64
	tracer  trace.Tracer
}

// NewImageUploader constructs an uploader. A nil storage rejects every upload.
func NewImageUploader(storage FileStorage, maxSizeMB int, logger zerolog.Logger) ImageUploader {
	if maxSizeMB <= 0 {
		maxSizeMB = 5
	}
	return &imageUploader{
		storage: storage,
		logger:  logger.With().Str("component", "image_uploader").Logger(),
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		tracer:  otel.Tracer("github.com/noah-isme/coaching-center-api/internal/service/upload"),
	}
}

func (u *imageUploader) Upload(ctx context.Context, file *multipart.FileHeader, owner uint) (UploadedImage, error) {
	ctx, span := u.tracer.Start(ctx, "profile_picture.store")
	defer span.End()

	start := time.Now()
	defer func() {
		observability.UploadLatency().Observe(time.Since(start).Seconds())
	}()

	fail := func(reason string, err error) (UploadedImage, error) {
		observability.UploadRejected().WithLabelValues(reason).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)
		return UploadedImage{}, err
	}

	if u.storage == nil {
		return fail("storage", ErrUploadUnavailable)
	}
	if file == nil {
		return fail("missing", ErrUploadMissing)
	}
	span.SetAttributes(attribute.Int64("upload.request_size", file.Size))
	if file.Size > u.maxSize {
		return fail("size", ErrUploadTooLarge)
	}

	handle, err := file.Open()
	if err != nil {
		return fail("open", err)
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, u.maxSize+1)); err != nil {
		return fail("read", err)
	}
	if int64(buf.Len()) > u.maxSize {
		return fail("size", ErrUploadTooLarge)
	}

	detected := mimetype.Detect(buf.Bytes()).String()
	ext, ok := allowedImageTypes[detected]
	span.SetAttributes(attribute.String("upload.detected_mime", detected))
	if !ok {
		return fail("type", ErrUploadTypeNotAllowed)
	}

	checksum := sha256.Sum256(buf.Bytes())
	name := fmt.Sprintf("user-%d%s", owner, ext)
	if base := sanitizeFileName(file.Filename); base != "" {
		name = fmt.Sprintf("user-%d-%s%s", owner, base, ext)
	}

	url, err := u.storage.Upload(ctx, name, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return fail("storage", err)
	}

	span.SetStatus(codes.Ok, "stored")
	u.logger.Info().Uint("user_id", owner).Str("mime", detected).Msg("profile picture stored")

	return UploadedImage{
		URL:       url,
		MimeType:  detected,
		SizeBytes: int64(buf.Len()),
		Checksum:  hex.EncodeToString(checksum[:]),
	}, nil
}

func sanitizeFileName(name string) string {
	base := strings.ToLower(strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)))
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, base)
	return strings.Trim(base, "-")
}
