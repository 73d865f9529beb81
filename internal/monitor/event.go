package monitor

import "github.com/danmuck/mpdctl/internal/mpd"

type EventKind int

const (
	// EventPlayer carries the current song, status and cover after a
	// player change.
	EventPlayer EventKind = iota
	// EventStatus is a polled or options-triggered status snapshot.
	EventStatus
	EventMixer
	EventQueue
	// EventOther reports a subsystem nothing is fetched for.
	EventOther
)

func (k EventKind) String() string {
	switch k {
	case EventPlayer:
		return "player"
	case EventStatus:
		return "status"
	case EventMixer:
		return "mixer"
	case EventQueue:
		return "queue"
	case EventOther:
		return "other"
	default:
		return "unknown"
	}
}

// Event is one snapshot. Only the fields belonging to Kind are set.
type Event struct {
	Kind      EventKind
	Subsystem mpd.Subsystem
	Status    mpd.Status
	Song      *mpd.Song
	Art       *mpd.Picture
	Volume    int
	HasVolume bool
	Queue     []mpd.Song
}
