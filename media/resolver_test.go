package media

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/camden-git/retrocam/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func newDemoStore(t *testing.T) (*LocalStorage, string) {
	t.Helper()
	base := t.TempDir()
	store, err := NewLocalStorage(base, map[AssetType]string{AssetTypeDemo: "demo"})
	require.NoError(t, err)
	dir, err := store.EnsureDir(AssetTypeDemo)
	require.NoError(t, err)
	return store, dir
}

func TestResolveInline(t *testing.T) {
	res := NewResolver(nil, nil)
	img, err := res.Resolve(context.Background(), models.ImageRef{Kind: models.ImageKindInline, Data: pngBytes(t, 3, 2)})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 2), img.Bounds())
}

func TestResolveFailuresWrapSentinel(t *testing.T) {
	res := NewResolver(nil, nil)
	ctx := context.Background()

	_, err := res.Resolve(ctx, models.ImageRef{Kind: models.ImageKindInline})
	assert.ErrorIs(t, err, ErrImageResolution)

	_, err = res.Resolve(ctx, models.ImageRef{Kind: models.ImageKindInline, Data: []byte("not an image")})
	assert.ErrorIs(t, err, ErrImageResolution)

	_, err = res.Resolve(ctx, models.ImageRef{Kind: models.ImageKindAsset, Location: "demo/cat.png"})
	assert.ErrorIs(t, err, ErrImageResolution)

	_, err = res.Resolve(ctx, models.ImageRef{Kind: "carrier-pigeon"})
	assert.ErrorIs(t, err, ErrImageResolution)
}

func TestResolveAsset(t *testing.T) {
	store, dir := newDemoStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cat.png"), pngBytes(t, 5, 5), 0644))

	res := NewResolver(store, nil)
	img, err := res.Resolve(context.Background(), models.ImageRef{Kind: models.ImageKindAsset, Location: "demo/cat.png"})
	require.NoError(t, err)
	assert.Equal(t, 5, img.Bounds().Dx())

	_, err = res.Resolve(context.Background(), models.ImageRef{Kind: models.ImageKindAsset, Location: "../escape.png"})
	assert.ErrorIs(t, err, ErrImageResolution)
}

func TestResolveURLIsCached(t *testing.T) {
	var hits int32
	body := pngBytes(t, 4, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.URL.Path != "/cat.png" {
			http.NotFound(w, r)
			return
		}
		w.Write(body)
	}))
	defer srv.Close()

	res := NewResolver(nil, srv.Client())
	ref := models.ImageRef{Kind: models.ImageKindURL, Location: srv.URL + "/cat.png"}

	first, err := res.Resolve(context.Background(), ref)
	require.NoError(t, err)
	second, err := res.Resolve(context.Background(), ref)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))

	_, err = res.Resolve(context.Background(), models.ImageRef{Kind: models.ImageKindURL, Location: srv.URL + "/dog.png"})
	assert.ErrorIs(t, err, ErrImageResolution)
}

func TestStoreListAndTraversal(t *testing.T) {
	store, dir := newDemoStore(t)
	for _, name := range []string{"cat-10.png", "cat-2.png", "readme.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}

	paths, err := store.List(AssetTypeDemo)
	require.NoError(t, err)
	assert.Equal(t, []string{"demo/cat-2.png", "demo/cat-10.png"}, paths)

	_, err = store.GetFullPath("../../etc/passwd")
	assert.Error(t, err)

	_, err = store.List(AssetTypeUnknown)
	assert.Error(t, err)

	rc, info, err := store.Get("demo/cat-2.png")
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, int64(1), info.Size())
}

func TestProcessorEncodeStill(t *testing.T) {
	p := NewProcessor(0, 0)
	ref, err := p.EncodeStill(image.NewRGBA(image.Rect(0, 0, 1280, 720)))
	require.NoError(t, err)
	assert.Equal(t, models.ImageKindInline, ref.Kind)
	assert.Equal(t, StillMimeType, ref.MimeType)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(ref.Data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, StillSize, cfg.Width)
	assert.Equal(t, StillSize, cfg.Height)

	_, err = p.EncodeStill(image.NewRGBA(image.Rect(0, 0, 0, 0)))
	assert.Error(t, err)
}

func TestProcessorPrepareUpload(t *testing.T) {
	p := NewProcessor(100, 80)
	ref, err := p.PrepareUpload(bytes.NewReader(pngBytes(t, 300, 150)))
	require.NoError(t, err)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(ref.Data))
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 100, cfg.Height)

	_, err = p.PrepareUpload(bytes.NewReader([]byte("garbage")))
	assert.Error(t, err)
}
