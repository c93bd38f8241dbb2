package rotator

import (
	"time"

	"slidewake/internal/core/media"
)

// State represents the current rotation mode.
type State string

const (
	StateEmpty    State = "empty"
	StateSingle   State = "single"
	StateRotating State = "rotating"
	StateStopped  State = "stopped"
)

// EventType defines the type of rotator event.
type EventType string

const (
	EventMounted   EventType = "mounted"
	EventAdvanced  EventType = "advanced"
	EventUnmounted EventType = "unmounted"
)

// Event represents a rotator update for observers.
type Event struct {
	Type     EventType
	State    State
	Index    int
	Previous int
	Entry    string
	Length   int
	Dwell    time.Duration
	At       time.Time
	// Playlist is the mounted playlist; nil on unmount.
	Playlist *media.Playlist
}

// Snapshot is a point-in-time view of the rotator.
type Snapshot struct {
	State        State  `json:"state"`
	Index        int    `json:"index"`
	Length       int    `json:"length"`
	Entry        string `json:"entry,omitempty"`
	Title        string `json:"title,omitempty"`
	TimerPending bool   `json:"timer_pending"`
}
