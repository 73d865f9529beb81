package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// ErrorCode is the numeric failure class carried by an ACK line.
type ErrorCode int

const (
	ErrorNotList       ErrorCode = 1
	ErrorArg           ErrorCode = 2
	ErrorPassword      ErrorCode = 3
	ErrorPermission    ErrorCode = 4
	ErrorUnknown       ErrorCode = 5
	ErrorNoExist       ErrorCode = 50
	ErrorPlaylistMax   ErrorCode = 51
	ErrorSystem        ErrorCode = 52
	ErrorPlaylistLoad  ErrorCode = 53
	ErrorUpdateAlready ErrorCode = 54
	ErrorPlayerSync    ErrorCode = 55
	ErrorExist         ErrorCode = 56
)

var errorCodeNames = map[ErrorCode]string{
	ErrorNotList:       "not list",
	ErrorArg:           "argument",
	ErrorPassword:      "password",
	ErrorPermission:    "permission",
	ErrorUnknown:       "unknown command",
	ErrorNoExist:       "no exist",
	ErrorPlaylistMax:   "playlist max",
	ErrorSystem:        "system",
	ErrorPlaylistLoad:  "playlist load",
	ErrorUpdateAlready: "update already",
	ErrorPlayerSync:    "player sync",
	ErrorExist:         "exist",
}

// ParseErrorCode maps a wire integer onto a known ErrorCode. Unmapped values
// are rejected.
func ParseErrorCode(v int) (ErrorCode, error) {
	code := ErrorCode(v)
	if _, ok := errorCodeNames[code]; !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownErrorCode, v)
	}
	return code, nil
}

func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ErrorCode(%d)", int(c))
}

// FailureResponse is a server-reported command failure:
//
//	ACK [<code>@<index>] {<command>} <message>
type FailureResponse struct {
	Code             ErrorCode
	CommandListIndex int
	Command          string
	Message          string
}

func (f *FailureResponse) Error() string {
	return fmt.Sprintf("protocol: %s error (command=%q index=%d): %s", f.Code, f.Command, f.CommandListIndex, f.Message)
}

// ParseFailure decodes one ACK line.
func ParseFailure(line string) (*FailureResponse, error) {
	line = strings.TrimRight(line, "\r\n")
	rest, ok := strings.CutPrefix(line, failurePrefix)
	if !ok {
		return nil, fmt.Errorf("%w: missing %s prefix: %q", ErrMalformedAck, failurePrefix, line)
	}
	rest = strings.TrimLeft(rest, " ")

	if !strings.HasPrefix(rest, "[") {
		return nil, fmt.Errorf("%w: missing '[': %q", ErrMalformedAck, line)
	}
	end := strings.IndexByte(rest, ']')
	if end < 0 {
		return nil, fmt.Errorf("%w: missing ']': %q", ErrMalformedAck, line)
	}
	rawCode, rawIndex, ok := strings.Cut(rest[1:end], "@")
	if !ok {
		return nil, fmt.Errorf("%w: missing '@': %q", ErrMalformedAck, line)
	}
	n, err := strconv.Atoi(rawCode)
	if err != nil {
		return nil, fmt.Errorf("%w: error code %q: %v", ErrMalformedAck, rawCode, err)
	}
	code, err := ParseErrorCode(n)
	if err != nil {
		return nil, err
	}
	index, err := strconv.Atoi(rawIndex)
	if err != nil {
		return nil, fmt.Errorf("%w: command index %q: %v", ErrMalformedAck, rawIndex, err)
	}

	rest = strings.TrimLeft(rest[end+1:], " ")
	if !strings.HasPrefix(rest, "{") {
		return nil, fmt.Errorf("%w: missing '{': %q", ErrMalformedAck, line)
	}
	end = strings.IndexByte(rest, '}')
	if end < 0 {
		return nil, fmt.Errorf("%w: missing '}': %q", ErrMalformedAck, line)
	}

	return &FailureResponse{
		Code:             code,
		CommandListIndex: index,
		Command:          rest[1:end],
		Message:          strings.TrimPrefix(rest[end+1:], " "),
	}, nil
}
