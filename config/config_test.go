package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/camden-git/retrocam/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "VIEWPORT_WIDTH", "DEMO_IMAGE_URLS", "CAMERA_DEVICE_ID", "ANIMATION_TICK", "STILL_JPEG_QUALITY"} {
		t.Setenv(key, "")
	}
	t.Setenv("MEDIA_STORAGE_PATH", t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 1280, cfg.ViewportWidth)
	assert.Equal(t, 600, cfg.StillSize)
	assert.Equal(t, 90, cfg.StillQuality)
	assert.Equal(t, DefaultBackgroundColor, cfg.BackgroundColor)
	assert.Equal(t, DefaultDemoImageURLs, cfg.DemoImageURLs)
	assert.Equal(t, 0, cfg.CameraDeviceID)
	assert.Equal(t, 2*time.Second, cfg.EntranceDuration)
	assert.True(t, filepath.IsAbs(cfg.DemoPath))
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("MEDIA_STORAGE_PATH", t.TempDir())
	t.Setenv("VIEWPORT_WIDTH", "-4")
	t.Setenv("CAMERA_DEVICE_ID", "2")
	t.Setenv("ANIMATION_TICK", "10ms")
	t.Setenv("STILL_JPEG_QUALITY", "150")
	t.Setenv("DEMO_IMAGE_URLS", " https://a.test/1.png, ,https://a.test/2.png")
	t.Setenv("CAMERA_ENABLED", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 1280, cfg.ViewportWidth, "invalid values fall back to the default")
	assert.Equal(t, 2, cfg.CameraDeviceID)
	assert.Equal(t, 10*time.Millisecond, cfg.FrameInterval)
	assert.Equal(t, 100, cfg.StillQuality)
	assert.Equal(t, []string{"https://a.test/1.png", "https://a.test/2.png"}, cfg.DemoImageURLs)
	assert.False(t, cfg.CameraEnabled)

	t.Setenv("CAMERA_DEVICE_ID", "front")
	_, err = LoadConfig()
	assert.Error(t, err)

	t.Setenv("CAMERA_DEVICE_ID", "")
	t.Setenv("DEMO_SUBDIR", "../outside")
	_, err = LoadConfig()
	assert.Error(t, err)
}

func TestLoadDemoManifest(t *testing.T) {
	refs, err := LoadDemoManifest("")
	require.NoError(t, err)
	assert.Nil(t, refs)

	path := filepath.Join(t.TempDir(), "demo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`images:
  - asset: demo/cat-1.png
  - url: https://example.test/cat-2.webp
`), 0644))

	refs, err = LoadDemoManifest(path)
	require.NoError(t, err)
	assert.Equal(t, []models.ImageRef{
		{Kind: models.ImageKindAsset, Location: "demo/cat-1.png"},
		{Kind: models.ImageKindURL, Location: "https://example.test/cat-2.webp"},
	}, refs)

	for _, body := range []string{
		"images: [{}]",
		"images: [{asset: a.png, url: 'https://x.test/a.png'}]",
		"images: [{url: 'ftp://x.test/a.png'}]",
		"images: {not: a list",
	} {
		require.NoError(t, os.WriteFile(path, []byte(body), 0644))
		_, err := LoadDemoManifest(path)
		assert.Error(t, err, body)
	}

	_, err = LoadDemoManifest(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDemoImagesPreference(t *testing.T) {
	manifest := []models.ImageRef{{Kind: models.ImageKindAsset, Location: "demo/m.png"}}
	assets := []string{"demo/a.png", "demo/b.png"}
	urls := []string{"https://example.test/u.png"}

	assert.Equal(t, manifest, DemoImages(manifest, assets, urls))
	assert.Equal(t, []models.ImageRef{
		{Kind: models.ImageKindAsset, Location: "demo/a.png"},
		{Kind: models.ImageKindAsset, Location: "demo/b.png"},
	}, DemoImages(nil, assets, urls))
	assert.Equal(t, []models.ImageRef{{Kind: models.ImageKindURL, Location: "https://example.test/u.png"}}, DemoImages(nil, nil, urls))
}
