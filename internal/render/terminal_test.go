package render

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminalPlainText(t *testing.T) {
	var out bytes.Buffer
	term, err := NewTerminal(Options{Out: &out, PlainText: true})
	require.NoError(t, err)

	require.NoError(t, term.Render("Hel"))
	require.NoError(t, term.Render("lo"))
	assert.Equal(t, "Hello", out.String())

	require.NoError(t, term.Done())
	assert.Equal(t, "Hello\n", out.String())
}

func TestTerminalIndicator(t *testing.T) {
	var out, errOut bytes.Buffer
	term, err := NewTerminal(Options{Out: &out, ErrOut: &errOut, PlainText: true, Indicator: true})
	require.NoError(t, err)

	term.ShowIndicator()
	term.ShowIndicator()
	assert.Equal(t, 1, bytes.Count(errOut.Bytes(), []byte(indicatorText)))

	require.NoError(t, term.Render("x"))
	assert.Contains(t, errOut.String(), ansi.EraseEntireLine)

	errOut.Reset()
	require.NoError(t, term.Done())
	assert.Empty(t, errOut.String(), "indicator already removed")
}

func TestTerminalIndicatorDisabled(t *testing.T) {
	var out, errOut bytes.Buffer
	term, err := NewTerminal(Options{Out: &out, ErrOut: &errOut, PlainText: true})
	require.NoError(t, err)

	term.ShowIndicator()
	require.NoError(t, term.Done())
	assert.Empty(t, errOut.String())
}

func TestTerminalMarkdownWaitsForBlockBreak(t *testing.T) {
	var out bytes.Buffer
	term, err := NewTerminal(Options{Out: &out, Theme: "notty", Wrap: 80})
	require.NoError(t, err)

	require.NoError(t, term.Render("First para"))
	assert.Empty(t, out.String())

	require.NoError(t, term.Render("graph.\n\nSecond"))
	assert.Contains(t, out.String(), "First paragraph.")
	assert.NotContains(t, out.String(), "Second")

	require.NoError(t, term.Done())
	assert.Contains(t, out.String(), "Second")
}

func TestTerminalAbortDropsHeldContent(t *testing.T) {
	var out, errOut bytes.Buffer
	term, err := NewTerminal(Options{Out: &out, ErrOut: &errOut, Theme: "notty", Indicator: true})
	require.NoError(t, err)

	term.ShowIndicator()
	require.NoError(t, term.Render("held"))
	term.Abort()
	term.Notice("request failed")

	require.NoError(t, term.Done())
	assert.NotContains(t, out.String(), "held")
	assert.Contains(t, errOut.String(), "request failed")
}

func TestFindMarkdownBreakPoint(t *testing.T) {
	assert.Equal(t, -1, findMarkdownBreakPoint("no break"))
	assert.Equal(t, 3, findMarkdownBreakPoint("a\n\nb"))
	assert.Equal(t, 6, findMarkdownBreakPoint("a\n\nb\n\nc"))
}
