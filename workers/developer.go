package workers

import (
	"sort"
	"sync"
	"time"

	"github.com/camden-git/retrocam/models"
	"github.com/camden-git/retrocam/realtime"
	log "github.com/sirupsen/logrus"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// entrance animation defaults
const (
	DefaultEntranceDuration = 2 * time.Second
	DefaultFrameInterval    = time.Second / 30
	// a new card starts this far below its resting position
	EntranceDrop = 160
)

// FramePublisher receives animation progress for connected shells
type FramePublisher interface {
	Broadcast(event realtime.Event)
}

type entrance struct {
	photoID string
	restY   float64
	tween   *gween.Tween
}

// Developer plays the slide-out animation of freshly captured cards and
// reports each one settled exactly once when its tween completes.
type Developer struct {
	Duration  time.Duration
	Interval  time.Duration
	publisher FramePublisher
	settle    func(id string) bool

	Wg       sync.WaitGroup
	StopChan chan struct{}
	Mutex    sync.Mutex
	active   map[string]*entrance
	stopOnce sync.Once
}

func NewDeveloper(publisher FramePublisher, duration, interval time.Duration) *Developer {
	if duration <= 0 {
		duration = DefaultEntranceDuration
	}
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &Developer{
		Duration:  duration,
		Interval:  interval,
		publisher: publisher,
		StopChan:  make(chan struct{}),
		active:    make(map[string]*entrance),
	}
}

// Begin queues the entrance of a developing card. a card already animating
// keeps its running tween.
func (d *Developer) Begin(photo models.PhotoRecord) {
	d.Mutex.Lock()
	defer d.Mutex.Unlock()
	if _, ok := d.active[photo.ID]; ok {
		return
	}
	d.active[photo.ID] = &entrance{
		photoID: photo.ID,
		restY:   photo.Position.Y,
		tween:   gween.New(float32(photo.Position.Y+EntranceDrop), float32(photo.Position.Y), float32(d.Duration.Seconds()), ease.OutCubic),
	}
}

// Active returns how many cards are still sliding out
func (d *Developer) Active() int {
	d.Mutex.Lock()
	defer d.Mutex.Unlock()
	return len(d.active)
}

// Start runs the frame loop until Stop is called. settle is invoked once per
// card when its animation completes.
func (d *Developer) Start(settle func(id string) bool) {
	d.settle = settle
	d.Wg.Add(1)
	go d.loop()
	log.Printf("developer: started, frame interval %s, entrance %s", d.Interval, d.Duration)
}

func (d *Developer) loop() {
	defer d.Wg.Done()
	ticker := time.NewTicker(d.Interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case now := <-ticker.C:
			d.Advance(now.Sub(last))
			last = now
		case <-d.StopChan:
			log.Printf("developer: stopping")
			return
		}
	}
}

// Advance moves every running tween forward by dt, publishes a frame per
// card and settles the ones that finished. it returns the settled ids.
func (d *Developer) Advance(dt time.Duration) []string {
	type frame struct {
		id       string
		y        float64
		offset   float64
		finished bool
	}

	d.Mutex.Lock()
	frames := make([]frame, 0, len(d.active))
	for id, e := range d.active {
		y, finished := e.tween.Update(float32(dt.Seconds()))
		if finished {
			y = float32(e.restY)
			delete(d.active, id)
		}
		frames = append(frames, frame{id: id, y: float64(y), offset: float64(y) - e.restY, finished: finished})
	}
	d.Mutex.Unlock()

	sort.Slice(frames, func(i, j int) bool { return frames[i].id < frames[j].id })

	var settled []string
	for _, f := range frames {
		if d.publisher != nil {
			d.publisher.Broadcast(realtime.Event{
				Type:    realtime.EventPhotoFrame,
				PhotoID: f.id,
				Extra: map[string]interface{}{
					"y":        f.y,
					"offset_y": f.offset,
					"done":     f.finished,
				},
			})
		}
		if !f.finished {
			continue
		}
		if d.settle != nil && d.settle(f.id) {
			settled = append(settled, f.id)
		}
	}
	return settled
}

// Stop ends the frame loop. cards still animating stay developing.
func (d *Developer) Stop() {
	d.stopOnce.Do(func() {
		close(d.StopChan)
	})
	d.Wg.Wait()
}
