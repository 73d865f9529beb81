package protocol

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

const keyValueSeparator = ": "

// Decoder is implemented by response types that build themselves one
// key/value line at a time. The zero value of the implementing type is its
// empty state.
//
// DecodeLine reports whether the key meant anything to the type. Unknown keys
// are the type's own business: return false to have them logged and skipped,
// or an error to fail the whole response.
type Decoder interface {
	DecodeLine(key, value string) (handled bool, err error)
}

// DecoderPtr lets generic readers allocate a T and decode through *T.
type DecoderPtr[T any] interface {
	*T
	Decoder
}

// SplitLine splits "key: value" at the first separator.
func SplitLine(line string) (string, string, error) {
	key, value, ok := strings.Cut(line, keyValueSeparator)
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	return key, value, nil
}

// Feed hands one value line to d.
func Feed(d Decoder, line string) error {
	key, value, err := SplitLine(line)
	if err != nil {
		return err
	}
	handled, err := d.DecodeLine(key, value)
	if err != nil {
		return err
	}
	if !handled {
		log.Debug().Str("type", fmt.Sprintf("%T", d)).Str("key", key).Msg("protocol.Feed skipped unhandled key")
	}
	return nil
}
