package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"strings"
	"time"

	"github.com/ErlanBelekov/store-finder/internal/metrics"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrUnreadableImage = errors.New("uploaded image could not be read")
)

const DefaultWidth = 800

// File is an uploaded photo as received from a multipart form.
type File struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// Storage persists a processed photo under name.
type Storage interface {
	Put(ctx context.Context, name, contentType string, data []byte) error
	Delete(ctx context.Context, name string) error
	Ping(ctx context.Context) error
}

type Processor struct {
	storage Storage
	width   int
	logger  *slog.Logger
}

func NewProcessor(storage Storage, width int, logger *slog.Logger) *Processor {
	if width <= 0 {
		width = DefaultWidth
	}
	return &Processor{
		storage: storage,
		width:   width,
		logger:  logger.With("component", "upload"),
	}
}

// Process validates, resizes and stores f, returning the stored filename.
// A nil file means no photo was submitted and yields an empty name.
func (p *Processor) Process(ctx context.Context, f *File) (string, error) {
	if f == nil {
		return "", nil
	}

	subtype, ok := imageSubtype(f.ContentType)
	if !ok {
		metrics.PhotoUploadsTotal.WithLabelValues("rejected").Inc()
		return "", ErrUnsupportedType
	}

	start := time.Now()
	defer func() { metrics.PhotoResizeDuration.Observe(time.Since(start).Seconds()) }()

	format, err := imaging.FormatFromExtension(subtype)
	if err != nil {
		metrics.PhotoUploadsTotal.WithLabelValues("unreadable").Inc()
		return "", fmt.Errorf("%w: %s", ErrUnreadableImage, f.ContentType)
	}

	img, err := imaging.Decode(f.Body, imaging.AutoOrientation(true))
	if err != nil {
		metrics.PhotoUploadsTotal.WithLabelValues("unreadable").Inc()
		return "", fmt.Errorf("%w: %v", ErrUnreadableImage, err)
	}

	resized := imaging.Resize(img, p.width, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format); err != nil {
		return "", fmt.Errorf("encode photo: %w", err)
	}

	name := uuid.NewString() + "." + subtype
	if err := p.storage.Put(ctx, name, f.ContentType, buf.Bytes()); err != nil {
		metrics.PhotoUploadsTotal.WithLabelValues("failed").Inc()
		return "", fmt.Errorf("store photo: %w", err)
	}

	metrics.PhotoUploadsTotal.WithLabelValues("stored").Inc()
	p.logger.DebugContext(ctx, "photo stored", "name", name, "original", f.Filename,
		"width", resized.Bounds().Dx(), "height", resized.Bounds().Dy())
	return name, nil
}

// Discard removes a stored photo whose record was never saved. Failures are logged only.
func (p *Processor) Discard(ctx context.Context, name string) {
	if name == "" {
		return
	}
	if err := p.storage.Delete(ctx, name); err != nil {
		p.logger.WarnContext(ctx, "discard photo", "name", name, "error", err)
		return
	}
	metrics.PhotoUploadsTotal.WithLabelValues("discarded").Inc()
}

// imageSubtype returns the MIME subtype of an image/* content type.
func imageSubtype(contentType string) (string, bool) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", false
	}
	kind, subtype, ok := strings.Cut(mediaType, "/")
	if !ok || kind != "image" || subtype == "" {
		return "", false
	}
	return subtype, true
}
