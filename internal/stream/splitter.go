package stream

import "strings"

// Splitter cuts decoded text into newline-terminated frames. Text after the
// last newline stays pending until a later delivery terminates it.
type Splitter struct {
	pending string
}

// Split appends text to the pending tail and returns every complete frame,
// without its terminator, in order.
func (s *Splitter) Split(text string) []string {
	s.pending += text

	var frames []string
	for {
		idx := strings.IndexByte(s.pending, '\n')
		if idx < 0 {
			return frames
		}
		frames = append(frames, s.pending[:idx])
		s.pending = s.pending[idx+1:]
	}
}

// Pending returns the unterminated tail.
func (s *Splitter) Pending() string {
	return s.pending
}
