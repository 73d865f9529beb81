package protocol

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

const (
	binaryKeySize   = "size"
	binaryKeyType   = "type"
	binaryKeyBinary = "binary"
)

// BinaryHeader is the preamble in front of one binary slice. MimeType is
// empty when the server did not send a type line.
type BinaryHeader struct {
	BytesRead uint64
	SizeTotal uint32
	MimeType  string
}

// Limits constrains binary assembly memory use.
type Limits struct {
	MaxBinaryBytes uint64
}

func DefaultLimits() Limits {
	return Limits{
		MaxBinaryBytes: 64 * 1024 * 1024,
	}
}

// ReadBinaryHeader consumes preamble lines up to and including "binary".
// It returns ok=false when the server answered with a bare terminator.
func ReadBinaryHeader(r *bufio.Reader) (BinaryHeader, bool, error) {
	var h BinaryHeader
	for {
		line, err := ReadLine(r)
		if err != nil {
			return BinaryHeader{}, false, err
		}
		if line.IsTerminator() {
			return BinaryHeader{}, false, nil
		}
		key, value, err := SplitLine(line.Value)
		if err != nil {
			return BinaryHeader{}, false, err
		}
		switch strings.ToLower(key) {
		case binaryKeySize:
			n, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				return BinaryHeader{}, false, fmt.Errorf("%w: size %q", ErrInvalidBinaryHeader, value)
			}
			h.SizeTotal = uint32(n)
		case binaryKeyType:
			h.MimeType = value
		case binaryKeyBinary:
			n, err := strconv.ParseUint(value, 10, 64)
			if err != nil {
				return BinaryHeader{}, false, fmt.Errorf("%w: binary %q", ErrInvalidBinaryHeader, value)
			}
			h.BytesRead = n
			return h, true, nil
		default:
			return BinaryHeader{}, false, fmt.Errorf("%w: '%s'", ErrUnexpectedBinaryKey, key)
		}
	}
}

// ExpectTerminator reads one line and fails unless it is a terminator.
func ExpectTerminator(r *bufio.Reader) error {
	line, err := ReadLine(r)
	if err != nil {
		return err
	}
	if !line.IsTerminator() {
		return fmt.Errorf("%w: '%s'", ErrUnexpectedValue, line.Value)
	}
	return nil
}
