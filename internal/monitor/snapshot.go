package monitor

import (
	"time"

	"github.com/danmuck/mpdctl/internal/mpd"
)

// Snapshot is the latest known player state assembled from events.
type Snapshot struct {
	Status      mpd.Status `json:"status"`
	Song        *mpd.Song  `json:"song,omitempty"`
	ArtMimeType string     `json:"art_mime_type,omitempty"`
	Volume      int        `json:"volume"`
	QueueLength int        `json:"queue_length"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Snapshot returns a copy of the current state.
func (s *Service) Snapshot() Snapshot {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	out := s.snap
	if out.Song != nil {
		song := *out.Song
		out.Song = &song
	}
	return out
}

func (s *Service) record(ev Event) {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()
	switch ev.Kind {
	case EventPlayer:
		s.snap.Status = ev.Status
		s.snap.Volume = ev.Status.Volume
		s.snap.Song = ev.Song
		s.snap.ArtMimeType = ""
		if ev.Art != nil {
			s.snap.ArtMimeType = ev.Art.MimeType
		}
	case EventStatus:
		s.snap.Status = ev.Status
		s.snap.Volume = ev.Status.Volume
	case EventMixer:
		if ev.HasVolume {
			s.snap.Volume = ev.Volume
		}
	case EventQueue:
		s.snap.QueueLength = len(ev.Queue)
	default:
		return
	}
	s.snap.UpdatedAt = time.Now()
}
