package stream

import "strings"

// FrameKind classifies one line of the event stream.
type FrameKind int

const (
	// FrameIgnored covers blank lines and lines without the data prefix
	// (comments, event:, id: and anything else).
	FrameIgnored FrameKind = iota
	// FrameData carries a payload fragment.
	FrameData
	// FrameDone is the terminal sentinel. It marks the end of content but
	// does not end the stream.
	FrameDone
)

func (k FrameKind) String() string {
	switch k {
	case FrameData:
		return "data"
	case FrameDone:
		return "done"
	default:
		return "ignored"
	}
}

// ParseFrame classifies a frame and returns its payload when it is a data
// frame. Whitespace inside the payload is preserved since a record may be
// split in the middle of a string value.
func ParseFrame(frame string) (FrameKind, string) {
	if strings.TrimSpace(frame) == "" {
		return FrameIgnored, ""
	}

	frame = strings.TrimSuffix(frame, "\r")
	data, ok := strings.CutPrefix(frame, DataPrefix)
	if !ok {
		return FrameIgnored, ""
	}
	if data == DoneSentinel {
		return FrameDone, ""
	}
	return FrameData, data
}
