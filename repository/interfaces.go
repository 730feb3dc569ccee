package repository

import (
	"errors"

	"github.com/camden-git/retrocam/models"
)

// ErrPhotoNotFound is returned when no live record carries the requested id.
var ErrPhotoNotFound = errors.New("photo not found")

// DeskState is the whole mutable desk: the live records plus the flags that
// travel with them.
type DeskState struct {
	Photos   []models.PhotoRecord `json:"photos"`
	Live     bool                 `json:"live"` // demo content can no longer appear
	Viewport models.Viewport      `json:"viewport"`
}

// Find returns the index of the record with the given id, or -1.
func (s *DeskState) Find(id string) int {
	for i := range s.Photos {
		if s.Photos[i].ID == id {
			return i
		}
	}
	return -1
}

// PhotoRepositoryInterface defines the operations on the desk's record store.
// every write goes through Update so writers never interleave mid-change.
type PhotoRepositoryInterface interface {
	Snapshot() DeskState
	GetByID(id string) (models.PhotoRecord, error)
	Update(fn func(state *DeskState) error) error
}
