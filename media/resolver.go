package media

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/camden-git/retrocam/models"
)

// maxRemoteImageBytes caps how much of a remote demo image we read
const maxRemoteImageBytes = 20 << 20

// ImageResolver loads the pixels behind an image reference.
type ImageResolver interface {
	Resolve(ctx context.Context, ref models.ImageRef) (image.Image, error)
}

// Resolver resolves inline stills, media store assets and remote URLs.
// asset and URL results are cached by reference so repeated exports see the
// same pixels.
type Resolver struct {
	store  Store
	client *http.Client

	mu    sync.Mutex
	cache map[string]image.Image
}

func NewResolver(store Store, client *http.Client) *Resolver {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Resolver{
		store:  store,
		client: client,
		cache:  make(map[string]image.Image),
	}
}

// Resolve returns the decoded image or an error wrapping ErrImageResolution
func (r *Resolver) Resolve(ctx context.Context, ref models.ImageRef) (image.Image, error) {
	key := ref.Key()
	if key != "" {
		r.mu.Lock()
		cached, ok := r.cache[key]
		r.mu.Unlock()
		if ok {
			return cached, nil
		}
	}

	data, err := r.load(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageResolution, err)
	}
	img, err := decodeOriented(data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s image: %v", ErrImageResolution, ref.Kind, err)
	}

	if key != "" {
		r.mu.Lock()
		r.cache[key] = img
		r.mu.Unlock()
	}
	return img, nil
}

// Fetch returns the encoded bytes behind ref without decoding them
func (r *Resolver) Fetch(ctx context.Context, ref models.ImageRef) ([]byte, error) {
	data, err := r.load(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageResolution, err)
	}
	return data, nil
}

func (r *Resolver) load(ctx context.Context, ref models.ImageRef) ([]byte, error) {
	switch ref.Kind {
	case models.ImageKindInline:
		if len(ref.Data) == 0 {
			return nil, fmt.Errorf("inline image has no data")
		}
		return ref.Data, nil
	case models.ImageKindAsset:
		if r.store == nil {
			return nil, fmt.Errorf("no media store configured for asset %s", ref.Location)
		}
		rc, _, err := r.store.Get(ref.Location)
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	case models.ImageKindURL:
		return r.fetchURL(ctx, ref.Location)
	default:
		return nil, fmt.Errorf("unknown image kind %q", ref.Kind)
	}
}

func (r *Resolver) fetchURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid image url %s: %w", url, err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteImageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}
	return data, nil
}
