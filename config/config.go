package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/camden-git/retrocam/models"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDemoSubDir      = "demo"
	DefaultBackgroundColor = "#f3f4f6"
)

const (
	defaultPort           = "8080"
	defaultViewportWidth  = 1280
	defaultViewportHeight = 800
	defaultStillSize      = 600
	defaultStillQuality   = 90
	defaultMaxExportSide  = 8192
	defaultExportsPerMin  = 30
	defaultExportBurst    = 3
)

// DefaultDemoImageURLs are used when neither a manifest nor local demo assets exist
var DefaultDemoImageURLs = []string{
	"https://bubbbly.com/assets/retro-camera/cat-cute-3.webp",
	"https://bubbbly.com/assets/retro-camera/cat-cute-2.webp",
	"https://bubbbly.com/assets/retro-camera/cat-cute-1.webp",
}

type Config struct {
	Port string

	// desk size assumed until the shell reports its own
	ViewportWidth  int
	ViewportHeight int

	// export
	BackgroundColor string
	MaxExportSide   int
	FontPath        string // empty uses the bundled Go font
	ExportsPerMin   int
	ExportBurst     int

	// media storage configuration
	MediaStoragePath string
	DemoSubDir       string
	DemoPath         string // full-calculated path for demo assets
	DemoManifestPath string
	DemoImageURLs    []string

	// camera
	CameraEnabled  bool
	CameraDeviceID int
	StillSize      int
	StillQuality   int

	// entrance animation and hint timing
	EntranceDuration time.Duration
	FrameInterval    time.Duration
	HintDelay        time.Duration
	HintDuration     time.Duration

	AllowedOrigins []string
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func getEnvBoolOrDefault(envVar string, defaultVal bool) bool {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("Warning: Invalid %s '%s'. Using default %t. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func getEnvDurationOrDefault(envVar string, defaultVal time.Duration) time.Duration {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := time.ParseDuration(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %s. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func LoadConfig() (Config, error) {
	mediaStorage := getEnvOrDefault("MEDIA_STORAGE_PATH", filepath.Join(".", "media_storage"))
	absMediaStorage, err := filepath.Abs(mediaStorage)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for media storage '%s': %w", mediaStorage, err)
	}

	demoSubDir := getEnvOrDefault("DEMO_SUBDIR", DefaultDemoSubDir)
	if filepath.IsAbs(demoSubDir) || strings.Contains(demoSubDir, "..") {
		return Config{}, fmt.Errorf("DEMO_SUBDIR must be a plain relative directory, got '%s'", demoSubDir)
	}

	// CAMERA_DEVICE_ID may legitimately be 0
	deviceID := 0
	if raw := os.Getenv("CAMERA_DEVICE_ID"); raw != "" {
		deviceID, err = strconv.Atoi(raw)
		if err != nil || deviceID < 0 {
			return Config{}, fmt.Errorf("invalid CAMERA_DEVICE_ID '%s'", raw)
		}
	}

	quality := getEnvIntOrDefault("STILL_JPEG_QUALITY", defaultStillQuality)
	if quality > 100 {
		log.Printf("Warning: STILL_JPEG_QUALITY %d is above 100, clamping", quality)
		quality = 100
	}

	demoURLs := splitList(os.Getenv("DEMO_IMAGE_URLS"))
	if len(demoURLs) == 0 {
		demoURLs = append([]string(nil), DefaultDemoImageURLs...)
	}

	cfg := Config{
		Port:             getEnvOrDefault("PORT", defaultPort),
		ViewportWidth:    getEnvIntOrDefault("VIEWPORT_WIDTH", defaultViewportWidth),
		ViewportHeight:   getEnvIntOrDefault("VIEWPORT_HEIGHT", defaultViewportHeight),
		BackgroundColor:  getEnvOrDefault("BACKGROUND_COLOR", DefaultBackgroundColor),
		MaxExportSide:    getEnvIntOrDefault("MAX_EXPORT_SIDE", defaultMaxExportSide),
		FontPath:         os.Getenv("FONT_PATH"),
		ExportsPerMin:    getEnvIntOrDefault("EXPORTS_PER_MINUTE", defaultExportsPerMin),
		ExportBurst:      getEnvIntOrDefault("EXPORT_BURST", defaultExportBurst),
		MediaStoragePath: absMediaStorage,
		DemoSubDir:       demoSubDir,
		DemoPath:         filepath.Join(absMediaStorage, demoSubDir),
		DemoManifestPath: os.Getenv("DEMO_MANIFEST_PATH"),
		DemoImageURLs:    demoURLs,
		CameraEnabled:    getEnvBoolOrDefault("CAMERA_ENABLED", true),
		CameraDeviceID:   deviceID,
		StillSize:        getEnvIntOrDefault("STILL_SIZE", defaultStillSize),
		StillQuality:     quality,
		EntranceDuration: getEnvDurationOrDefault("ENTRANCE_DURATION", 2*time.Second),
		FrameInterval:    getEnvDurationOrDefault("ANIMATION_TICK", time.Second/30),
		HintDelay:        getEnvDurationOrDefault("HINT_DELAY", 2200*time.Millisecond),
		HintDuration:     getEnvDurationOrDefault("HINT_DURATION", 8*time.Second),
		AllowedOrigins:   splitList(getEnvOrDefault("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),
	}

	return cfg, nil
}

// DemoManifest lists demo images explicitly, in display order
type DemoManifest struct {
	Images []DemoImage `yaml:"images"`
}

// DemoImage is either a media-store asset path or a remote URL
type DemoImage struct {
	Asset string `yaml:"asset,omitempty"`
	URL   string `yaml:"url,omitempty"`
}

// LoadDemoManifest reads the YAML manifest. an empty path yields no images.
func LoadDemoManifest(path string) ([]models.ImageRef, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read demo manifest '%s': %w", path, err)
	}

	var manifest DemoManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse demo manifest '%s': %w", path, err)
	}

	refs := make([]models.ImageRef, 0, len(manifest.Images))
	for i, img := range manifest.Images {
		switch {
		case img.Asset != "" && img.URL != "":
			return nil, fmt.Errorf("demo manifest entry %d sets both asset and url", i)
		case img.Asset != "":
			refs = append(refs, models.ImageRef{Kind: models.ImageKindAsset, Location: filepath.ToSlash(img.Asset)})
		case img.URL != "":
			if !strings.HasPrefix(img.URL, "http://") && !strings.HasPrefix(img.URL, "https://") {
				return nil, fmt.Errorf("demo manifest entry %d has unsupported url '%s'", i, img.URL)
			}
			refs = append(refs, models.ImageRef{Kind: models.ImageKindURL, Location: img.URL})
		default:
			return nil, fmt.Errorf("demo manifest entry %d is empty", i)
		}
	}
	return refs, nil
}

// DemoImages picks the demo image source: the manifest first, then assets
// found in the demo directory, then the configured URLs.
func DemoImages(manifest []models.ImageRef, assetPaths []string, urls []string) []models.ImageRef {
	if len(manifest) > 0 {
		return manifest
	}
	if len(assetPaths) > 0 {
		refs := make([]models.ImageRef, 0, len(assetPaths))
		for _, p := range assetPaths {
			refs = append(refs, models.ImageRef{Kind: models.ImageKindAsset, Location: p})
		}
		return refs
	}
	refs := make([]models.ImageRef, 0, len(urls))
	for _, u := range urls {
		refs = append(refs, models.ImageRef{Kind: models.ImageKindURL, Location: u})
	}
	return refs
}
