package media

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/camden-git/retrocam/models"
	"github.com/camden-git/retrocam/utils"
	"github.com/disintegration/imaging"
	log "github.com/sirupsen/logrus"
)

// MaxUploadBytes caps stills posted by the browser shell
const MaxUploadBytes = 10 << 20

// Processor turns raw stills into the square JPEG carried by a photo record.
type Processor struct {
	size    int
	quality int
}

func NewProcessor(size, quality int) *Processor {
	if size <= 0 {
		size = StillSize
	}
	if quality <= 0 || quality > 100 {
		quality = StillJpegQuality
	}
	return &Processor{size: size, quality: quality}
}

// EncodeStill squares img (centre crop) to the still size and encodes it as
// an inline image reference.
func (p *Processor) EncodeStill(img image.Image) (models.ImageRef, error) {
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return models.ImageRef{}, fmt.Errorf("invalid still dimensions: %dx%d", b.Dx(), b.Dy())
	}

	var square image.Image = img
	if b.Dx() != p.size || b.Dy() != p.size {
		square = imaging.Fill(img, p.size, p.size, imaging.Center, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, square, imaging.JPEG, imaging.JPEGQuality(p.quality)); err != nil {
		return models.ImageRef{}, fmt.Errorf("still encoding failed: %w", err)
	}
	return models.ImageRef{Kind: models.ImageKindInline, Data: buf.Bytes(), MimeType: StillMimeType}, nil
}

// PrepareUpload decodes a still posted by the shell, fixes its orientation
// and re-encodes it like a camera capture.
func (p *Processor) PrepareUpload(r io.Reader) (models.ImageRef, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return models.ImageRef{}, fmt.Errorf("failed to read uploaded still: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return models.ImageRef{}, fmt.Errorf("uploaded still exceeds %d bytes", MaxUploadBytes)
	}

	img, err := decodeOriented(data)
	if err != nil {
		return models.ImageRef{}, fmt.Errorf("failed to decode uploaded still: %w", err)
	}
	log.Printf("processor: Decoded uploaded still %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	return p.EncodeStill(img)
}

// decodeOriented decodes any registered format and applies EXIF orientation
func decodeOriented(data []byte) (image.Image, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if format == "jpeg" {
		img = utils.ApplyOrientation(img, utils.ReadOrientation(data))
	}
	return img, nil
}
