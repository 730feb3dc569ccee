package models

import "time"

// Phase is the entrance-animation state of a photo card.
type Phase string

const (
	PhaseDeveloping Phase = "developing" // animating from the camera to its resting spot
	PhaseSettled    Phase = "settled"    // static, draggable and editable
)

// Origin records where a photo came from. demo photos are wiped together on
// the first real capture.
type Origin string

const (
	OriginDemo     Origin = "demo"
	OriginCaptured Origin = "captured"
)

// stacking constants shared by the lifecycle service and the shell
const (
	LayerBase       = 10
	LayerDeveloping = 40 // just behind the camera body so the print slides out from under it
	LayerCameraBody = 50
	LayerDragFloor  = 100
)

// card geometry in desk units
const (
	CardWidth        = 240
	CardHeight       = 300
	CardImagePadding = 12
	CardImageHeight  = 200
)

// ImageKind tells a resolver how to interpret an ImageRef.
type ImageKind string

const (
	ImageKindInline ImageKind = "inline" // encoded bytes carried in the record
	ImageKindAsset  ImageKind = "asset"  // path relative to the media store
	ImageKindURL    ImageKind = "url"    // remote http(s) resource
)

// ImageRef points at the pixel content of a photo. it is immutable once the
// record is created; Data is shared between snapshots and never written.
type ImageRef struct {
	Kind     ImageKind `json:"kind"`
	Location string    `json:"location,omitempty"` // asset path or URL
	Data     []byte    `json:"-"`
	MimeType string    `json:"mime_type,omitempty"`
}

// Key identifies the referenced content for caching purposes. inline refs
// have no stable key and return "".
func (r ImageRef) Key() string {
	if r.Kind == ImageKindInline {
		return ""
	}
	return string(r.Kind) + ":" + r.Location
}

// Position is the top-left anchor of a card in desk coordinates.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PhotoRecord is a single instant-print card on the desk.
type PhotoRecord struct {
	ID           string    `json:"id"`
	Image        ImageRef  `json:"image"`
	CaptionTitle string    `json:"caption_title"`
	CaptionDate  string    `json:"caption_date"`
	CreatedAt    time.Time `json:"created_at"`
	Position     Position  `json:"position"`
	Rotation     float64   `json:"rotation"` // degrees, clockwise-positive
	Phase        Phase     `json:"phase"`
	Origin       Origin    `json:"origin"`
	Layer        int       `json:"layer"`
}

// IsDeveloping reports whether the card is still in its entrance animation.
func (p PhotoRecord) IsDeveloping() bool {
	return p.Phase == PhaseDeveloping
}

// Viewport is the size of the desk surface as last reported by the shell.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// CaptionDateLayout formats caption dates as YYYY/MM/DD.
const CaptionDateLayout = "2006/01/02"

// FormatCaptionDate renders t the way fresh cards label themselves.
func FormatCaptionDate(t time.Time) string {
	return t.Format(CaptionDateLayout)
}
