package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/cli/go-gh/v2/pkg/markdown"
)

const indicatorText = "thinking…"

// Options configures a Terminal.
type Options struct {
	Out    io.Writer
	ErrOut io.Writer
	// PlainText writes units verbatim instead of rendering markdown.
	PlainText bool
	Theme     string
	Wrap      int
	// Indicator enables the transient progress line on ErrOut. It should
	// only be set when ErrOut is a terminal.
	Indicator bool
}

// Terminal renders coalesced chat output. In markdown mode units are held
// until a blank line closes a block so glamour always sees whole blocks.
type Terminal struct {
	out        io.Writer
	errOut     io.Writer
	markdown   *glamour.TermRenderer
	plainText  bool
	buffer     strings.Builder
	indicator  bool
	showing    bool
	indicatorS lipgloss.Style
}

func NewTerminal(opts Options) (*Terminal, error) {
	var md *glamour.TermRenderer
	if !opts.PlainText {
		wrap := opts.Wrap
		if wrap <= 0 {
			wrap = 120
		}
		style := glamour.WithAutoStyle()
		if opts.Theme != "" {
			style = markdown.WithTheme(opts.Theme)
		}
		var err error
		md, err = glamour.NewTermRenderer(style, markdown.WithWrap(wrap))
		if err != nil {
			return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
		}
	}

	return &Terminal{
		out:        opts.Out,
		errOut:     opts.ErrOut,
		markdown:   md,
		plainText:  opts.PlainText,
		indicator:  opts.Indicator && opts.ErrOut != nil,
		indicatorS: lipgloss.NewStyle().Faint(true).Italic(true),
	}, nil
}

// ShowIndicator prints the in-progress line for a new exchange.
func (t *Terminal) ShowIndicator() {
	if !t.indicator || t.showing {
		return
	}
	fmt.Fprint(t.errOut, t.indicatorS.Render(indicatorText))
	t.showing = true
}

func (t *Terminal) hideIndicator() {
	if !t.showing {
		return
	}
	fmt.Fprint(t.errOut, "\r"+ansi.EraseEntireLine)
	t.showing = false
}

// Render displays one coalesced unit.
func (t *Terminal) Render(unit string) error {
	t.hideIndicator()

	if t.plainText {
		_, err := fmt.Fprint(t.out, unit)
		return err
	}

	t.buffer.WriteString(unit)
	content := t.buffer.String()

	if idx := findMarkdownBreakPoint(content); idx > 0 {
		if err := t.renderContent(content[:idx]); err != nil {
			return err
		}
		// Reset buffer with remaining content
		remaining := content[idx:]
		t.buffer.Reset()
		t.buffer.WriteString(remaining)
	}
	return nil
}

// Done renders whatever is still held and ends the exchange's output.
func (t *Terminal) Done() error {
	t.hideIndicator()

	// Render any remaining content
	if remaining := t.buffer.String(); remaining != "" {
		t.buffer.Reset()
		if err := t.renderContent(remaining); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(t.out)
	return err
}

// Abort drops held content and removes the indicator without finishing
// the output.
func (t *Terminal) Abort() {
	t.hideIndicator()
	t.buffer.Reset()
}

// Notice prints a message for the user outside the chat output.
func (t *Terminal) Notice(msg string) {
	w := t.errOut
	if w == nil {
		w = t.out
	}
	fmt.Fprintln(w, msg)
}

func (t *Terminal) renderContent(content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}
	if strings.HasPrefix(content, "#") {
		fmt.Fprintln(t.out)
	}

	mdContent, err := t.markdown.Render(content)
	if err != nil {
		return fmt.Errorf("failed to render markdown: %w", err)
	}

	_, err = fmt.Fprintln(t.out, strings.TrimSpace(mdContent))
	return err
}

func findMarkdownBreakPoint(content string) int {
	const marker string = "\n\n"
	lastBreak := -1
	idx := strings.LastIndex(content, marker)
	if idx > lastBreak {
		lastBreak = idx + len(marker)
	}
	return lastBreak
}
