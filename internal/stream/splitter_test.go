package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitterKeepsTailAcrossDeliveries(t *testing.T) {
	var s Splitter

	assert.Empty(t, s.Split("data: {\"cont"))
	assert.Equal(t, "data: {\"cont", s.Pending())

	assert.Empty(t, s.Split("ent\": \"Hel"))
	assert.Equal(t, []string{`data: {"content": "Hello"}`}, s.Split("lo\"}\n"))
	assert.Empty(t, s.Pending())
}

func TestSplitterMultipleFramesInOneDelivery(t *testing.T) {
	var s Splitter

	frames := s.Split("a\n\nb\r\nc")
	assert.Equal(t, []string{"a", "", "b\r"}, frames)
	assert.Equal(t, "c", s.Pending())
}
