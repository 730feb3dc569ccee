package repository

import (
	"fmt"
	"sync"

	"github.com/camden-git/retrocam/models"
)

// PhotoRepository keeps the desk in memory. nothing survives a restart.
type PhotoRepository struct {
	mu    sync.Mutex
	state DeskState
}

// NewPhotoRepository creates an empty, not-yet-live desk of the given size
func NewPhotoRepository(viewport models.Viewport) *PhotoRepository {
	return &PhotoRepository{state: DeskState{Viewport: viewport}}
}

// Snapshot returns a copy of the desk. callers may keep and mutate it freely;
// later writes to the repository never show through.
func (r *PhotoRepository) Snapshot() DeskState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyState(r.state)
}

// GetByID returns a copy of a single record
func (r *PhotoRepository) GetByID(id string) (models.PhotoRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.state.Find(id)
	if idx < 0 {
		return models.PhotoRecord{}, fmt.Errorf("%w: %s", ErrPhotoNotFound, id)
	}
	return r.state.Photos[idx], nil
}

// Update runs fn against a working copy of the desk and commits it only when
// fn returns nil, so a failed mutation leaves the store untouched.
func (r *PhotoRepository) Update(fn func(state *DeskState) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	working := copyState(r.state)
	if err := fn(&working); err != nil {
		return err
	}
	r.state = working
	return nil
}

func copyState(s DeskState) DeskState {
	out := s
	out.Photos = make([]models.PhotoRecord, len(s.Photos))
	copy(out.Photos, s.Photos)
	return out
}
