// media/types.go
package media

import "errors"

type AssetType string

const (
	AssetTypeDemo    AssetType = "demo"
	AssetTypeUnknown AssetType = "unknown"
)

var (
	// ErrRenderUnavailable means no drawing surface could be set up at all;
	// the whole export fails.
	ErrRenderUnavailable = errors.New("render surface unavailable")
	// ErrImageResolution means a single card image could not be loaded or
	// decoded. exports skip that image and carry on.
	ErrImageResolution = errors.New("image resolution failed")
)

// still and export settings
const (
	StillSize        = 600
	StillJpegQuality = 90
	StillMimeType    = "image/jpeg"

	ExportFilePrefix    = "retro-memories-"
	ExportFileExtension = ".png"
	ExportMimeType      = "image/png"

	DefaultBackground = "#f3f4f6"
)
