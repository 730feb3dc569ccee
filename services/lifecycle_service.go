package services

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/camden-git/retrocam/metrics"
	"github.com/camden-git/retrocam/models"
	"github.com/camden-git/retrocam/realtime"
	"github.com/camden-git/retrocam/repository"
	"github.com/camden-git/retrocam/utils"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// placement constants for new cards
const (
	SpawnX = 55
	// the camera body top sits ~280px above the bottom edge and half of the
	// 300px card should peek out above it
	SpawnBottomOffset = 430

	DemoCount        = 3
	demoSpreadX      = 40
	demoSpreadY      = 20
	demoRotationStep = 5
	demoCenterOffset = 100

	DemoCaption    = "May I meet you"
	CaptureCaption = "New Memory"
)

var (
	// ErrCaptureBusy means a capture was dropped because a card is still developing
	ErrCaptureBusy = errors.New("a photo is still developing")
	// ErrPhotoNotFound is returned for mutations of unknown cards
	ErrPhotoNotFound = repository.ErrPhotoNotFound
)

// Shutter gives capture feedback (sound, flash) to the shell
type Shutter interface {
	Click()
}

// EntranceAnimator plays the slide-out animation of a developing card and
// reports back through LifecycleService.OnSettle when it finishes.
type EntranceAnimator interface {
	Begin(photo models.PhotoRecord)
}

// Publisher pushes desk events to connected shells
type Publisher interface {
	Broadcast(event realtime.Event)
}

// Options tune the lifecycle service. zero values pick production defaults.
type Options struct {
	Now        func() time.Time
	Rand       *rand.Rand
	NewID      func() string
	DemoImages []models.ImageRef
	// first-capture hint timing
	HintDelay    time.Duration
	HintDuration time.Duration
}

// LifecycleService owns every write to the desk: card creation, settling,
// layering, reset, plus the drag/caption edits coming from the shell.
type LifecycleService struct {
	repo      repository.PhotoRepositoryInterface
	shutter   Shutter
	animator  EntranceAnimator
	publisher Publisher

	now        func() time.Time
	newID      func() string
	demoImages []models.ImageRef

	randMu sync.Mutex
	rand   *rand.Rand

	hintMu       sync.Mutex
	hintShown    bool
	hintDelay    time.Duration
	hintDuration time.Duration
}

// NewLifecycleService creates the controller. animator and publisher may be nil.
func NewLifecycleService(repo repository.PhotoRepositoryInterface, shutter Shutter, animator EntranceAnimator, publisher Publisher, opts Options) *LifecycleService {
	s := &LifecycleService{
		repo:         repo,
		shutter:      shutter,
		animator:     animator,
		publisher:    publisher,
		now:          opts.Now,
		newID:        opts.NewID,
		demoImages:   opts.DemoImages,
		rand:         opts.Rand,
		hintDelay:    opts.HintDelay,
		hintDuration: opts.HintDuration,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.NewString() }
	}
	if s.rand == nil {
		s.rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if s.hintDelay <= 0 {
		s.hintDelay = 2200 * time.Millisecond
	}
	if s.hintDuration <= 0 {
		s.hintDuration = 8 * time.Second
	}
	return s
}

// SeedDemoContent lays the demo cards out around the middle of the viewport.
// it does nothing once the desk is live.
func (s *LifecycleService) SeedDemoContent() []models.PhotoRecord {
	var seeded []models.PhotoRecord
	created := s.now()

	err := s.repo.Update(func(state *repository.DeskState) error {
		if state.Live || len(state.Photos) > 0 {
			return nil
		}
		centerX := float64(state.Viewport.Width) / 2
		centerY := float64(state.Viewport.Height) / 2

		for i := 0; i < DemoCount; i++ {
			photo := models.PhotoRecord{
				ID:           fmt.Sprintf("demo-%d", i),
				Image:        s.demoImage(i),
				CaptionTitle: DemoCaption,
				CaptionDate:  models.FormatCaptionDate(created),
				CreatedAt:    created,
				Position: models.Position{
					X: centerX - demoCenterOffset + float64(i*demoSpreadX),
					Y: centerY - demoCenterOffset + float64(i*demoSpreadY),
				},
				Rotation: float64(-demoRotationStep + i*demoRotationStep),
				Phase:    models.PhaseSettled,
				Origin:   models.OriginDemo,
				Layer:    models.LayerBase + i,
			}
			state.Photos = append(state.Photos, photo)
			seeded = append(seeded, photo)
		}
		metrics.SetPhotoCount(len(state.Photos))
		return nil
	})
	if err != nil {
		log.Printf("lifecycle: failed to seed demo content: %v", err)
		return nil
	}
	if len(seeded) > 0 {
		log.Printf("lifecycle: seeded %d demo photo(s)", len(seeded))
	}
	return seeded
}

func (s *LifecycleService) demoImage(i int) models.ImageRef {
	if len(s.demoImages) == 0 {
		return models.ImageRef{}
	}
	return s.demoImages[i%len(s.demoImages)]
}

// IsDeveloping reports whether a card is currently in flight
func (s *LifecycleService) IsDeveloping() bool {
	for _, p := range s.repo.Snapshot().Photos {
		if p.IsDeveloping() {
			return true
		}
	}
	return false
}

// Capture turns a still into a new developing card. while another card is
// still developing the call is dropped with ErrCaptureBusy and the desk is
// left as it was, demo content included. the first real capture clears the
// demo cards in the same update that adds the new one.
func (s *LifecycleService) Capture(still models.ImageRef) (models.PhotoRecord, error) {
	var photo models.PhotoRecord
	var ok, clearedDemo bool
	created := s.now()
	rotation := s.randomRotation()

	_ = s.repo.Update(func(state *repository.DeskState) error {
		for _, p := range state.Photos {
			if p.IsDeveloping() {
				return nil
			}
		}

		if !state.Live {
			kept := state.Photos[:0]
			for _, p := range state.Photos {
				if p.Origin != models.OriginDemo {
					kept = append(kept, p)
				}
			}
			clearedDemo = len(kept) != len(state.Photos)
			state.Photos = kept
			state.Live = true
		}

		if s.shutter != nil {
			s.shutter.Click()
		}

		photo = models.PhotoRecord{
			ID:           s.newID(),
			Image:        still,
			CaptionTitle: CaptureCaption,
			CaptionDate:  models.FormatCaptionDate(created),
			CreatedAt:    created,
			Position: models.Position{
				X: SpawnX,
				Y: float64(state.Viewport.Height - SpawnBottomOffset),
			},
			Rotation: rotation,
			Phase:    models.PhaseDeveloping,
			Origin:   models.OriginCaptured,
			Layer:    models.LayerDeveloping,
		}
		state.Photos = append(state.Photos, photo)
		metrics.SetPhotoCount(len(state.Photos))
		ok = true
		return nil
	})

	if !ok {
		metrics.RecordCapture(metrics.CaptureGated)
		log.Printf("lifecycle: capture dropped, a photo is still developing")
		return models.PhotoRecord{}, ErrCaptureBusy
	}
	metrics.RecordCapture(metrics.CaptureCreated)

	if clearedDemo {
		s.publish(realtime.Event{Type: realtime.EventDemoCleared})
	}
	s.publish(realtime.Event{Type: realtime.EventPhotoCreated, PhotoID: photo.ID, Photo: &photo})
	log.WithField("photo_id", photo.ID).Infof("lifecycle: created photo at (%.0f, %.0f)", photo.Position.X, photo.Position.Y)

	if s.animator != nil {
		s.animator.Begin(photo)
	}
	s.scheduleFirstCaptureHint()
	return photo, nil
}

// randomRotation returns a tilt in [-1, 1) degrees
func (s *LifecycleService) randomRotation() float64 {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	return s.rand.Float64()*2 - 1
}

// scheduleFirstCaptureHint shows the drag hint once, after the first card
// has finished sliding out
func (s *LifecycleService) scheduleFirstCaptureHint() {
	s.hintMu.Lock()
	defer s.hintMu.Unlock()
	if s.hintShown || s.publisher == nil {
		return
	}
	s.hintShown = true
	time.AfterFunc(s.hintDelay, func() {
		s.publish(realtime.Event{Type: realtime.EventHintShow})
		time.AfterFunc(s.hintDuration, func() {
			s.publish(realtime.Event{Type: realtime.EventHintHide})
		})
	})
}

// OnSettle marks a developing card as settled. repeated calls and unknown ids
// are no-ops; the return value says whether anything changed.
func (s *LifecycleService) OnSettle(id string) bool {
	var settled models.PhotoRecord
	changed := false

	_ = s.repo.Update(func(state *repository.DeskState) error {
		idx := state.Find(id)
		if idx < 0 || !state.Photos[idx].IsDeveloping() {
			return nil
		}
		state.Photos[idx].Phase = models.PhaseSettled
		settled = state.Photos[idx]
		changed = true
		return nil
	})

	if changed {
		s.publish(realtime.Event{Type: realtime.EventPhotoSettled, PhotoID: id, Photo: &settled})
		log.WithField("photo_id", id).Info("lifecycle: photo settled")
	}
	return changed
}

// BringToFront lifts a card above every other one; called when a drag starts.
func (s *LifecycleService) BringToFront(id string) (models.PhotoRecord, error) {
	var lifted models.PhotoRecord
	err := s.repo.Update(func(state *repository.DeskState) error {
		idx := state.Find(id)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrPhotoNotFound, id)
		}
		top := models.LayerDragFloor
		for _, p := range state.Photos {
			if p.Layer > top {
				top = p.Layer
			}
		}
		state.Photos[idx].Layer = top + 1
		lifted = state.Photos[idx]
		return nil
	})
	if err != nil {
		return models.PhotoRecord{}, err
	}
	s.publish(realtime.Event{Type: realtime.EventPhotoUpdated, PhotoID: id, Photo: &lifted})
	return lifted, nil
}

// Move applies a finished drag, offsetting the stored position
func (s *LifecycleService) Move(id string, dx, dy float64) (models.PhotoRecord, error) {
	return s.modify(id, func(p *models.PhotoRecord) {
		p.Position.X += dx
		p.Position.Y += dy
	})
}

// UpdateCaptions stores edited captions. a nil field is left unchanged.
func (s *LifecycleService) UpdateCaptions(id string, title, date *string) (models.PhotoRecord, error) {
	var cleanTitle, cleanDate string
	if title != nil {
		cleanTitle = utils.SanitizeCaption(*title)
	}
	if date != nil {
		cleanDate = utils.SanitizeCaption(*date)
	}
	return s.modify(id, func(p *models.PhotoRecord) {
		if title != nil {
			p.CaptionTitle = cleanTitle
		}
		if date != nil {
			p.CaptionDate = cleanDate
		}
	})
}

func (s *LifecycleService) modify(id string, fn func(p *models.PhotoRecord)) (models.PhotoRecord, error) {
	var updated models.PhotoRecord
	err := s.repo.Update(func(state *repository.DeskState) error {
		idx := state.Find(id)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrPhotoNotFound, id)
		}
		fn(&state.Photos[idx])
		updated = state.Photos[idx]
		return nil
	})
	if err != nil {
		return models.PhotoRecord{}, err
	}
	s.publish(realtime.Event{Type: realtime.EventPhotoUpdated, PhotoID: id, Photo: &updated})
	return updated, nil
}

// SetViewport records the desk size reported by the shell
func (s *LifecycleService) SetViewport(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid viewport %dx%d", width, height)
	}
	return s.repo.Update(func(state *repository.DeskState) error {
		state.Viewport = models.Viewport{Width: width, Height: height}
		return nil
	})
}

// ResetAll clears the desk for good: demo content is never seeded again.
func (s *LifecycleService) ResetAll() int {
	removed := 0
	_ = s.repo.Update(func(state *repository.DeskState) error {
		removed = len(state.Photos)
		state.Photos = nil
		state.Live = true
		return nil
	})
	metrics.SetPhotoCount(0)
	s.publish(realtime.Event{Type: realtime.EventDeskReset})
	log.Printf("lifecycle: reset desk, removed %d photo(s)", removed)
	return removed
}

func (s *LifecycleService) publish(ev realtime.Event) {
	if s.publisher != nil {
		s.publisher.Broadcast(ev)
	}
}
