package comet

import (
	"bytes"
)

// The poll endpoint answers with a JSONP-style script call. The wrapper text
// is owned by the server and carries no version; any change to it breaks
// parsing.
const (
	framePrefix = "CometChannel.scriptCallback("
	frameSuffix = ");"
)

// ParseFrame strips the CometChannel.scriptCallback(...); wrapper and returns
// the payload unparsed. Leading and trailing whitespace around the frame is
// ignored; anything else outside the wrapper is an error.
func ParseFrame(body []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(body)
	if !bytes.HasPrefix(trimmed, []byte(framePrefix)) || !bytes.HasSuffix(trimmed, []byte(frameSuffix)) ||
		len(trimmed) < len(framePrefix)+len(frameSuffix) {
		return nil, &WireFormatError{Body: truncate(string(body))}
	}
	payload := trimmed[len(framePrefix) : len(trimmed)-len(frameSuffix)]
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, &WireFormatError{Body: truncate(string(body))}
	}
	return payload, nil
}

// Frame wraps payload the way the server does.
func Frame(payload []byte) []byte {
	out := make([]byte, 0, len(framePrefix)+len(payload)+len(frameSuffix))
	out = append(out, framePrefix...)
	out = append(out, payload...)
	return append(out, frameSuffix...)
}
