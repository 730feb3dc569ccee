package media

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/camden-git/retrocam/models"
	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
)

// drop shadow under every card: rgba(0,0,0,0.2), blur 15, offset (5,5)
const (
	shadowBlur   = 15
	shadowOffset = 5
	shadowAlpha  = 51
	// room around the card body for the blurred shadow
	cardMargin = 2*shadowBlur + shadowOffset
)

// caption baselines, measured from the card's top edge
const (
	titleBaseline = models.CardImageHeight + 45
	dateBaseline  = models.CardImageHeight + 70
)

var (
	cardWhite  = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	titleColor = color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff}
	dateColor  = color.RGBA{R: 0x66, G: 0x66, B: 0x66, A: 0xff}
)

// spriteBounds is the unrotated card canvas including the shadow margin
func spriteBounds() image.Rectangle {
	return image.Rect(0, 0, models.CardWidth+2*cardMargin, models.CardHeight+2*cardMargin)
}

// renderShadow builds the blurred shadow layer shared by every card.
func renderShadow() *image.NRGBA {
	layer := image.NewNRGBA(spriteBounds())
	body := image.Rect(0, 0, models.CardWidth, models.CardHeight).
		Add(image.Pt(cardMargin+shadowOffset, cardMargin+shadowOffset))
	draw.Draw(layer, body, image.NewUniform(color.NRGBA{A: shadowAlpha}), image.Point{}, draw.Src)
	// canvas shadowBlur maps to a gaussian sigma of half its value
	return imaging.Blur(layer, shadowBlur/2.0)
}

// drawCardSprite paints one unrotated card: shadow, white body, photo and
// captions. photo may be nil when its image could not be resolved.
func drawCardSprite(shadow *image.NRGBA, fonts *Fonts, rec models.PhotoRecord, photo image.Image) *image.RGBA {
	sprite := image.NewRGBA(spriteBounds())
	draw.Draw(sprite, sprite.Bounds(), shadow, image.Point{}, draw.Src)

	origin := image.Pt(cardMargin, cardMargin)
	body := image.Rect(0, 0, models.CardWidth, models.CardHeight).Add(origin)
	draw.Draw(sprite, body, image.NewUniform(cardWhite), image.Point{}, draw.Src)

	if photo != nil {
		slot := image.Rect(
			models.CardImagePadding,
			models.CardImagePadding,
			models.CardWidth-models.CardImagePadding,
			models.CardImagePadding+models.CardImageHeight,
		).Add(origin)
		fitted := imaging.Fill(photo, slot.Dx(), slot.Dy(), imaging.Center, imaging.Lanczos)
		draw.Draw(sprite, slot, fitted, fitted.Bounds().Min, draw.Over)
	}

	centerX := cardMargin + models.CardWidth/2
	drawCentered(sprite, fonts.Title, titleColor, rec.CaptionTitle, centerX, cardMargin+titleBaseline)
	drawCentered(sprite, fonts.Date, dateColor, rec.CaptionDate, centerX, cardMargin+dateBaseline)
	return sprite
}

func drawCentered(dst draw.Image, face font.Face, c color.Color, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(c), Face: face}
	width := d.MeasureString(text)
	d.Dot = fixed.Point26_6{X: fixed.I(centerX) - width/2, Y: fixed.I(baseline)}
	d.DrawString(text)
}

// cardTransform maps sprite pixels to desk pixels: the card is rotated by
// rec.Rotation degrees (clockwise, y pointing down) about its own centre and
// placed with its top-left corner at rec.Position.
func cardTransform(rec models.PhotoRecord) f64.Aff3 {
	theta := rec.Rotation * math.Pi / 180
	sin, cos := math.Sincos(theta)

	// card centre in sprite and desk space
	sx := float64(cardMargin + models.CardWidth/2)
	sy := float64(cardMargin + models.CardHeight/2)
	cx := rec.Position.X + models.CardWidth/2
	cy := rec.Position.Y + models.CardHeight/2

	return f64.Aff3{
		cos, -sin, cx - cos*sx + sin*sy,
		sin, cos, cy - sin*sx - cos*sy,
	}
}

// compositeCard draws the sprite onto the desk with the card's own transform.
// nothing carries over to the next card.
func compositeCard(dst draw.Image, sprite *image.RGBA, rec models.PhotoRecord) {
	xdraw.BiLinear.Transform(dst, cardTransform(rec), sprite, sprite.Bounds(), xdraw.Over, nil)
}
