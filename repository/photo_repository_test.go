package repository

import (
	"errors"
	"testing"

	"github.com/camden-git/retrocam/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(t *testing.T) *PhotoRepository {
	t.Helper()
	repo := NewPhotoRepository(models.Viewport{Width: 800, Height: 600})
	err := repo.Update(func(s *DeskState) error {
		s.Photos = append(s.Photos,
			models.PhotoRecord{ID: "a", Layer: 1, Position: models.Position{X: 1, Y: 2}},
			models.PhotoRecord{ID: "b", Layer: 2},
		)
		return nil
	})
	require.NoError(t, err)
	return repo
}

func TestSnapshotIsDetached(t *testing.T) {
	repo := seeded(t)

	snap := repo.Snapshot()
	snap.Photos[0].Position.X = 999
	snap.Photos = append(snap.Photos, models.PhotoRecord{ID: "c"})

	again := repo.Snapshot()
	assert.Len(t, again.Photos, 2)
	assert.Equal(t, 1.0, again.Photos[0].Position.X)
	assert.Equal(t, 800, again.Viewport.Width)
}

func TestUpdateRollsBackOnError(t *testing.T) {
	repo := seeded(t)
	boom := errors.New("boom")

	err := repo.Update(func(s *DeskState) error {
		s.Photos = nil
		s.Live = true
		return boom
	})
	assert.ErrorIs(t, err, boom)

	snap := repo.Snapshot()
	assert.Len(t, snap.Photos, 2)
	assert.False(t, snap.Live)
}

func TestGetByID(t *testing.T) {
	repo := seeded(t)

	rec, err := repo.GetByID("b")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Layer)

	_, err = repo.GetByID("missing")
	assert.ErrorIs(t, err, ErrPhotoNotFound)
}

func TestFind(t *testing.T) {
	s := DeskState{Photos: []models.PhotoRecord{{ID: "x"}, {ID: "y"}}}
	assert.Equal(t, 1, s.Find("y"))
	assert.Equal(t, -1, s.Find("z"))
}
