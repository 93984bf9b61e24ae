package photos

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
	"gorm.io/gorm"

	dbtypes "github.com/voltlot/voltlot-backend/pkg/db/types"
	"github.com/voltlot/voltlot-backend/pkg/logger"
	"github.com/voltlot/voltlot-backend/pkg/storage/s3"
)

// DerivativeSpec is one generated rendition of a listing photo.
type DerivativeSpec struct {
	Name    string
	MaxSize uint
	Quality int
}

// DerivativeSpecs are produced for every processed photo.
var DerivativeSpecs = []DerivativeSpec{
	{Name: "thumbnail", MaxSize: 320, Quality: 75},
	{Name: "display", MaxSize: 1280, Quality: 85},
}

// Outcome reports what Process did with a photo.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeMissing   Outcome = "missing"
)

// ErrUndecodable marks originals that are not a supported image.
var ErrUndecodable = errors.New("photo original is not a decodable image")

// ObjectStore reads and writes photo objects.
type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key, contentType string, body []byte) error
	PublicURL(key string) string
}

// Processor generates photo derivatives.
type Processor struct {
	repo  Repository
	store ObjectStore
	logg  *logger.Logger
	now   func() time.Time
}

// NewProcessor wires a derivative processor.
func NewProcessor(repo Repository, store ObjectStore, logg *logger.Logger) (*Processor, error) {
	if repo == nil {
		return nil, errors.New("photos repository is required")
	}
	if store == nil {
		return nil, errors.New("photo store is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Processor{
		repo:  repo,
		store: store,
		logg:  logg,
		now:   func() time.Time { return time.Now().UTC() },
	}, nil
}

// Process downloads the original, renders every derivative next to it and
// records dimensions and derivative metadata on the photo row. A photo or
// original that no longer exists yields OutcomeMissing with no error.
func (p *Processor) Process(ctx context.Context, photoID uuid.UUID) (Outcome, error) {
	logCtx := p.logg.WithField(ctx, "photo_id", photoID.String())

	photo, err := p.repo.FindByID(ctx, photoID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		p.logg.Warn(logCtx, "photo.process.missing")
		return OutcomeMissing, nil
	}
	if err != nil {
		return "", fmt.Errorf("load photo: %w", err)
	}

	raw, err := p.store.Get(ctx, photo.ImageKey)
	if errors.Is(err, s3.ErrObjectNotFound) {
		p.logg.Warn(p.logg.WithField(logCtx, "image_key", photo.ImageKey), "photo.process.original_missing")
		return OutcomeMissing, nil
	}
	if err != nil {
		return "", fmt.Errorf("download original: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	bounds := img.Bounds()
	flat := flatten(img)

	derivatives := dbtypes.JSONMap{}
	for _, spec := range DerivativeSpecs {
		out := resize.Thumbnail(spec.MaxSize, spec.MaxSize, flat, resize.Lanczos3)
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: spec.Quality}); err != nil {
			return "", fmt.Errorf("encode %s: %w", spec.Name, err)
		}
		key := DerivativeKey(photo.ImageKey, spec.Name)
		if err := p.store.Put(ctx, key, "image/jpeg", buf.Bytes()); err != nil {
			return "", fmt.Errorf("upload %s: %w", spec.Name, err)
		}
		size := out.Bounds()
		derivatives[spec.Name] = map[string]any{
			"name":   key,
			"width":  size.Dx(),
			"height": size.Dy(),
			"url":    p.store.PublicURL(key),
		}
	}

	if err := p.repo.SaveProcessed(ctx, photo.ID, bounds.Dx(), bounds.Dy(), derivatives, p.now()); err != nil {
		return "", fmt.Errorf("save derivatives: %w", err)
	}
	p.logg.Info(p.logg.WithFields(logCtx, map[string]any{
		"width":  bounds.Dx(),
		"height": bounds.Dy(),
	}), "photo.processed")
	return OutcomeProcessed, nil
}

// DerivativeKey places a derivative beside its original as <base>_<name>.jpg.
func DerivativeKey(originalKey, name string) string {
	base := strings.TrimSuffix(originalKey, path.Ext(originalKey))
	return fmt.Sprintf("%s_%s.jpg", base, name)
}

// flatten composites img over white so transparent areas survive JPEG.
func flatten(img image.Image) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}
