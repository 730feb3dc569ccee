package realtime

import "time"

// flash length the shell shows over the lens
const shutterFlash = 150 * time.Millisecond

// Shutter turns a capture into the shell's click sound and lens flash.
type Shutter struct {
	hub *Hub
}

func NewShutter(hub *Hub) *Shutter {
	return &Shutter{hub: hub}
}

// Click publishes the shutter event. the shell plays the sound on receipt.
func (s *Shutter) Click() {
	s.hub.Broadcast(Event{
		Type:  EventShutter,
		Extra: map[string]interface{}{"flash_ms": shutterFlash.Milliseconds()},
	})
}
