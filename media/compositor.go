package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sort"
	"sync"
	"time"

	"github.com/camden-git/retrocam/metrics"
	"github.com/camden-git/retrocam/models"
	"github.com/disintegration/imaging"
	log "github.com/sirupsen/logrus"
)

// DefaultMaxExportSide refuses surfaces larger than this on either side
const DefaultMaxExportSide = 8192

// Compositor flattens the desk into one PNG.
type Compositor struct {
	resolver ImageResolver
	fonts    *Fonts
	maxSide  int

	// one render at a time: font faces and the shared shadow are not
	// safe for concurrent use, and sequential draws keep output stable
	mu     sync.Mutex
	shadow *image.NRGBA
}

func NewCompositor(resolver ImageResolver, fonts *Fonts, maxSide int) *Compositor {
	if maxSide <= 0 {
		maxSide = DefaultMaxExportSide
	}
	return &Compositor{resolver: resolver, fonts: fonts, maxSide: maxSide}
}

// Render draws records onto a viewport-sized canvas filled with background,
// lowest layer first, and returns the encoded PNG. records is treated as a
// read-only snapshot. a card whose image cannot be resolved is drawn without
// it; only a missing drawing surface fails the render.
func (c *Compositor) Render(ctx context.Context, records []models.PhotoRecord, viewport models.Viewport, background color.Color) ([]byte, error) {
	start := time.Now()
	out, err := c.render(ctx, records, viewport, background)
	metrics.RecordExport(err == nil, time.Since(start))
	return out, err
}

func (c *Compositor) render(ctx context.Context, records []models.PhotoRecord, viewport models.Viewport, background color.Color) ([]byte, error) {
	canvas, err := c.newSurface(viewport)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shadow == nil {
		c.shadow = renderShadow()
	}

	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	ordered := make([]models.PhotoRecord, len(records))
	copy(ordered, records)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Layer < ordered[j].Layer
	})

	for _, rec := range ordered {
		photo, err := c.resolver.Resolve(ctx, rec.Image)
		if err != nil {
			metrics.RecordImageFailure()
			log.WithField("photo_id", rec.ID).Warnf("compositor: skipping image: %v", err)
			photo = nil
		}
		sprite := drawCardSprite(c.shadow, c.fonts, rec, photo)
		compositeCard(canvas, sprite, rec)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode composite: %w", err)
	}
	log.Printf("compositor: Rendered %d card(s) onto %dx%d", len(ordered), viewport.Width, viewport.Height)
	return buf.Bytes(), nil
}

// newSurface allocates the target raster or reports ErrRenderUnavailable
func (c *Compositor) newSurface(viewport models.Viewport) (*image.RGBA, error) {
	if c.fonts == nil || c.fonts.Title == nil || c.fonts.Date == nil {
		return nil, fmt.Errorf("%w: no caption fonts loaded", ErrRenderUnavailable)
	}
	if c.resolver == nil {
		return nil, fmt.Errorf("%w: no image resolver", ErrRenderUnavailable)
	}
	if viewport.Width <= 0 || viewport.Height <= 0 {
		return nil, fmt.Errorf("%w: viewport %dx%d", ErrRenderUnavailable, viewport.Width, viewport.Height)
	}
	if viewport.Width > c.maxSide || viewport.Height > c.maxSide {
		return nil, fmt.Errorf("%w: viewport %dx%d exceeds %d", ErrRenderUnavailable, viewport.Width, viewport.Height, c.maxSide)
	}
	return image.NewRGBA(image.Rect(0, 0, viewport.Width, viewport.Height)), nil
}

// IsRenderUnavailable reports whether err aborted a whole export
func IsRenderUnavailable(err error) bool {
	return errors.Is(err, ErrRenderUnavailable)
}
