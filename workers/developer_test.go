package workers

import (
	"sync"
	"testing"
	"time"

	"github.com/camden-git/retrocam/models"
	"github.com/camden-git/retrocam/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type framePublisher struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (p *framePublisher) Broadcast(ev realtime.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *framePublisher) all() []realtime.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]realtime.Event(nil), p.events...)
}

func developingPhoto(id string, y float64) models.PhotoRecord {
	return models.PhotoRecord{ID: id, Position: models.Position{X: 55, Y: y}, Phase: models.PhaseDeveloping}
}

func TestDeveloperSlidesUpAndSettlesOnce(t *testing.T) {
	pub := &framePublisher{}
	d := NewDeveloper(pub, 2*time.Second, 0)

	calls := map[string]int{}
	d.settle = func(id string) bool {
		calls[id]++
		return true
	}

	d.Begin(developingPhoto("a", 370))
	d.Begin(developingPhoto("a", 370))
	require.Equal(t, 1, d.Active())

	assert.Empty(t, d.Advance(500*time.Millisecond))
	first := pub.all()[0]
	assert.Equal(t, realtime.EventPhotoFrame, first.Type)
	y := first.Extra["y"].(float64)
	assert.Greater(t, y, 370.0)
	assert.Less(t, y, 370.0+EntranceDrop)
	// ease-out covers most of the distance early
	assert.Less(t, first.Extra["offset_y"].(float64), EntranceDrop/2.0)

	assert.Empty(t, d.Advance(time.Second))
	assert.Equal(t, []string{"a"}, d.Advance(time.Second))
	assert.Equal(t, 0, d.Active())

	last := pub.all()[2]
	assert.Equal(t, 370.0, last.Extra["y"])
	assert.Equal(t, 0.0, last.Extra["offset_y"])
	assert.Equal(t, true, last.Extra["done"])

	assert.Empty(t, d.Advance(time.Second))
	assert.Equal(t, 1, calls["a"])
	assert.Len(t, pub.all(), 3)
}

func TestDeveloperFramesAreMonotonic(t *testing.T) {
	pub := &framePublisher{}
	d := NewDeveloper(pub, time.Second, 0)
	d.Begin(developingPhoto("b", 100))

	prev := 100.0 + EntranceDrop
	for i := 0; i < 12; i++ {
		d.Advance(100 * time.Millisecond)
	}
	for _, ev := range pub.all() {
		y := ev.Extra["y"].(float64)
		assert.LessOrEqual(t, y, prev)
		prev = y
	}
	assert.Equal(t, 100.0, prev)
}

func TestDeveloperLoopSettles(t *testing.T) {
	d := NewDeveloper(nil, 30*time.Millisecond, 5*time.Millisecond)
	settled := make(chan string, 1)
	d.Start(func(id string) bool {
		settled <- id
		return true
	})
	defer d.Stop()

	d.Begin(developingPhoto("c", 10))
	select {
	case id := <-settled:
		assert.Equal(t, "c", id)
	case <-time.After(2 * time.Second):
		t.Fatal("card never settled")
	}
}

func TestDeveloperStopIsIdempotent(t *testing.T) {
	d := NewDeveloper(nil, 0, 0)
	d.Start(nil)
	d.Stop()
	d.Stop()
	assert.Equal(t, DefaultEntranceDuration, d.Duration)
}
