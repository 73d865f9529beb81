package mpd

import (
	"github.com/rs/zerolog/log"
)

// Subsystem names a part of the server reported by "idle".
type Subsystem string

const (
	SubsystemDatabase       Subsystem = "database"
	SubsystemUpdate         Subsystem = "update"
	SubsystemStoredPlaylist Subsystem = "stored_playlist"
	SubsystemPlaylist       Subsystem = "playlist"
	SubsystemPlayer         Subsystem = "player"
	SubsystemMixer          Subsystem = "mixer"
	SubsystemOutput         Subsystem = "output"
	SubsystemOptions        Subsystem = "options"
	SubsystemPartition      Subsystem = "partition"
	SubsystemSticker        Subsystem = "sticker"
	SubsystemSubscription   Subsystem = "subscription"
	SubsystemMessage        Subsystem = "message"
	SubsystemNeighbor       Subsystem = "neighbor"
	SubsystemMount          Subsystem = "mount"
)

var knownSubsystems = map[Subsystem]struct{}{
	SubsystemDatabase:       {},
	SubsystemUpdate:         {},
	SubsystemStoredPlaylist: {},
	SubsystemPlaylist:       {},
	SubsystemPlayer:         {},
	SubsystemMixer:          {},
	SubsystemOutput:         {},
	SubsystemOptions:        {},
	SubsystemPartition:      {},
	SubsystemSticker:        {},
	SubsystemSubscription:   {},
	SubsystemMessage:        {},
	SubsystemNeighbor:       {},
	SubsystemMount:          {},
}

func ParseSubsystem(name string) (Subsystem, bool) {
	s := Subsystem(name)
	_, ok := knownSubsystems[s]
	return s, ok
}

// IdleEvents collects the "changed" lines of an idle reply.
type IdleEvents []Subsystem

func (e *IdleEvents) DecodeLine(key, value string) (bool, error) {
	if key != "changed" {
		return false, nil
	}
	s, ok := ParseSubsystem(value)
	if !ok {
		log.Warn().Str("subsystem", value).Msg("mpd.IdleEvents skipped unknown subsystem")
		return true, nil
	}
	*e = append(*e, s)
	return true, nil
}
