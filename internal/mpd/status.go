package mpd

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

type PlayerState string

const (
	StatePlay  PlayerState = "play"
	StatePause PlayerState = "pause"
	StateStop  PlayerState = "stop"
)

// Toggle is the value of the single and consume options.
type Toggle string

const (
	ToggleOff     Toggle = "0"
	ToggleOn      Toggle = "1"
	ToggleOneshot Toggle = "oneshot"
)

// Status is the reply to "status". Optional positions are nil when the server
// omitted them.
type Status struct {
	State          PlayerState   `json:"state"`
	Volume         int           `json:"volume"`
	Repeat         bool          `json:"repeat"`
	Random         bool          `json:"random"`
	Single         Toggle        `json:"single"`
	Consume        Toggle        `json:"consume"`
	Playlist       uint32        `json:"playlist"`
	PlaylistLength uint32        `json:"playlist_length"`
	Song           *uint32       `json:"song,omitempty"`
	SongID         *uint32       `json:"song_id,omitempty"`
	NextSong       *uint32       `json:"next_song,omitempty"`
	NextSongID     *uint32       `json:"next_song_id,omitempty"`
	Elapsed        time.Duration `json:"elapsed"`
	Duration       time.Duration `json:"duration"`
	Bitrate        uint32        `json:"bitrate,omitempty"`
	Xfade          time.Duration `json:"xfade,omitempty"`
	Audio          string        `json:"audio,omitempty"`
	Error          string        `json:"error,omitempty"`
	UpdatingDB     uint32        `json:"updating_db,omitempty"`
}

func (s *Status) DecodeLine(key, value string) (bool, error) {
	var err error
	switch key {
	case "state":
		s.State, err = parseState(value)
	case "volume":
		s.Volume, err = strconv.Atoi(value)
	case "repeat":
		s.Repeat, err = parseFlag(value)
	case "random":
		s.Random, err = parseFlag(value)
	case "single":
		s.Single, err = parseToggle(value)
	case "consume":
		s.Consume, err = parseToggle(value)
	case "playlist":
		s.Playlist, err = parseUint32(value)
	case "playlistlength":
		s.PlaylistLength, err = parseUint32(value)
	case "song":
		s.Song, err = parseOptUint32(value)
	case "songid":
		s.SongID, err = parseOptUint32(value)
	case "nextsong":
		s.NextSong, err = parseOptUint32(value)
	case "nextsongid":
		s.NextSongID, err = parseOptUint32(value)
	case "elapsed":
		s.Elapsed, err = parseSeconds(value)
	case "duration":
		s.Duration, err = parseSeconds(value)
	case "bitrate":
		s.Bitrate, err = parseUint32(value)
	case "xfade":
		s.Xfade, err = parseSeconds(value)
	case "audio":
		s.Audio = value
	case "error":
		s.Error = value
	case "updating_db":
		s.UpdatingDB, err = parseUint32(value)
	default:
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: status %s=%q: %v", ErrInvalidField, key, value, err)
	}
	return true, nil
}

// Volume is the reply to "getvol".
type Volume int

func (v *Volume) DecodeLine(key, value string) (bool, error) {
	if key != "volume" {
		return false, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return false, fmt.Errorf("%w: volume %q: %v", ErrInvalidField, value, err)
	}
	*v = Volume(n)
	return true, nil
}

func parseState(value string) (PlayerState, error) {
	switch s := PlayerState(value); s {
	case StatePlay, StatePause, StateStop:
		return s, nil
	}
	return "", fmt.Errorf("unknown state")
}

func parseFlag(value string) (bool, error) {
	switch value {
	case "0":
		return false, nil
	case "1":
		return true, nil
	}
	return false, fmt.Errorf("expected 0 or 1")
}

func parseToggle(value string) (Toggle, error) {
	switch t := Toggle(value); t {
	case ToggleOff, ToggleOn, ToggleOneshot:
		return t, nil
	}
	return "", fmt.Errorf("expected 0, 1 or oneshot")
}

func parseUint32(value string) (uint32, error) {
	n, err := strconv.ParseUint(value, 10, 32)
	return uint32(n), err
}

func parseOptUint32(value string) (*uint32, error) {
	n, err := parseUint32(value)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// parseSeconds reads fractional seconds such as "12.345".
func parseSeconds(value string) (time.Duration, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("out of range")
	}
	return time.Duration(math.Round(f * float64(time.Second))), nil
}
