package camera

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCenterSquare(t *testing.T) {
	assert.Equal(t, image.Rect(280, 0, 1000, 720), CenterSquare(1280, 720))
	assert.Equal(t, image.Rect(0, 100, 400, 500), CenterSquare(400, 600))
	assert.Equal(t, image.Rect(0, 0, 600, 600), CenterSquare(600, 600))
	assert.True(t, CenterSquare(0, 720).Empty())
}
