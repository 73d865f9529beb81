package mpd

import (
	"fmt"
	"strings"
	"time"
)

// Song is one entry of "currentsong" or "playlistinfo". Keys without a
// dedicated field land in Tags, keeping repeated values in order.
type Song struct {
	File         string              `json:"file"`
	ID           uint32              `json:"id"`
	Pos          uint32              `json:"pos"`
	Duration     time.Duration       `json:"duration"`
	LastModified time.Time           `json:"last_modified,omitzero"`
	Tags         map[string][]string `json:"tags,omitempty"`
}

// Tag returns the first value of a tag, matched case-insensitively.
func (s Song) Tag(name string) string {
	for k, v := range s.Tags {
		if strings.EqualFold(k, name) && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

func (s *Song) DecodeLine(key, value string) (bool, error) {
	var err error
	switch key {
	case "file":
		s.File = value
	case "Id":
		s.ID, err = parseUint32(value)
	case "Pos":
		s.Pos, err = parseUint32(value)
	case "duration":
		s.Duration, err = parseSeconds(value)
	case "Time":
		// integer seconds, superseded by "duration" when both are sent
		if s.Duration == 0 {
			s.Duration, err = parseSeconds(value)
		}
	case "Last-Modified":
		s.LastModified, err = time.Parse(time.RFC3339, value)
	default:
		if s.Tags == nil {
			s.Tags = make(map[string][]string)
		}
		s.Tags[key] = append(s.Tags[key], value)
	}
	if err != nil {
		return false, fmt.Errorf("%w: song %s=%q: %v", ErrInvalidField, key, value, err)
	}
	return true, nil
}

// Songs is a song list; every "file" key starts a new entry.
type Songs []Song

func (s *Songs) DecodeLine(key, value string) (bool, error) {
	if key == "file" {
		*s = append(*s, Song{})
	}
	if len(*s) == 0 {
		return false, nil
	}
	return (*s)[len(*s)-1].DecodeLine(key, value)
}
