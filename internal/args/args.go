package args

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cli/go-gh/v2/pkg/term"
	"github.com/spf13/cobra"

	"github.com/markis/chatstream/internal/config"
)

// Mode selects what kind of exchange to run.
type Mode int

const (
	ModeAsk Mode = iota
	ModeWelcome
	ModeReplay
)

// Arguments represents the command-line arguments structure.
type Arguments struct {
	Mode         Mode
	Prompts      []string
	Command      string
	ReplayPath   string
	ChunkSize    int
	Endpoint     string
	UsePlainText bool
	MinChunkSize int
	MaxDelay     time.Duration
}

// Prompt joins every collected prompt part into the message sent upstream.
func (a Arguments) Prompt() string {
	return strings.Join(a.Prompts, "\n\n")
}

// ParseArgs parses command-line arguments and, when stdin is piped, reads it
// as part of the prompt. argv excludes the program name.
func ParseArgs(ctx context.Context, cfg config.Config, argv []string, stdin *os.File) (Arguments, error) {
	args := Arguments{Mode: ModeAsk}

	rootCmd := &cobra.Command{
		Use:   "chatstream [command] [flags] [prompt]",
		Short: "Stream chat responses into the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, cmdArgs []string) error {
			// Handle direct prompts (when no command is specified)
			if len(cmdArgs) > 0 {
				args.Prompts = append(args.Prompts, cmdArgs[0])
			}
			return nil
		},
		SilenceErrors: true, // We'll handle error reporting
		SilenceUsage:  true, // We'll handle usage display
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&args.Endpoint, "endpoint", cfg.Endpoint, "Base URL of the chat backend")
	flags.BoolVar(&args.UsePlainText, "plain", shouldUsePlainText(cfg), "Disable markdown rendering")
	flags.IntVar(&args.MinChunkSize, "min-chunk", cfg.Buffer.MinChunkSize, "Characters buffered before output is flushed")
	flags.DurationVar(&args.MaxDelay, "max-delay", cfg.Buffer.MaxDelay, "Longest time buffered output waits before it is flushed")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "welcome",
		Short: "Start a new chat and stream its welcome message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, cmdArgs []string) error {
			args.Mode = ModeWelcome
			return nil
		},
	})

	replayCmd := &cobra.Command{
		Use:   "replay FILE",
		Short: "Render a recorded event stream (use - for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, cmdArgs []string) error {
			args.Mode = ModeReplay
			args.ReplayPath = cmdArgs[0]
			return nil
		},
	}
	replayCmd.Flags().IntVar(&args.ChunkSize, "chunk-size", 0, "Deliver the recording in pieces of at most this many bytes")
	rootCmd.AddCommand(replayCmd)

	// Add predefined commands
	for name, prompt := range cfg.Prompts {
		if name == "welcome" || name == "replay" {
			continue
		}
		cmdPrompt := prompt // Create a local copy for the closure
		cmd := &cobra.Command{
			Use:   name + " [input]",
			Short: summarizePrompt(cmdPrompt),
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, cmdArgs []string) error {
				args.Command = name
				if len(cmdArgs) > 0 {
					args.Prompts = append(args.Prompts, cmdArgs[0])
				}
				args.Prompts = append(args.Prompts, cmdPrompt)
				return nil
			},
		}
		rootCmd.AddCommand(cmd)
	}

	if argv == nil {
		argv = []string{}
	}
	rootCmd.SetArgs(argv)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return Arguments{}, err
	}
	if helpRequested(argv) {
		return Arguments{}, ErrHelp
	}

	if args.Mode != ModeAsk {
		return args, nil
	}

	// Read from stdin if available
	if stdin != nil {
		if stat, err := stdin.Stat(); err == nil && (stat.Mode()&os.ModeCharDevice) == 0 {
			prompt, err := readPrompt(stdin)
			if err != nil {
				return Arguments{}, err
			}
			if prompt != "" {
				args.Prompts = append([]string{prompt}, args.Prompts...)
			}
		}
	}

	// Check if we have any prompts
	if len(args.Prompts) == 0 {
		return Arguments{}, errors.New("no prompt provided")
	}

	return args, nil
}

// ErrHelp reports that usage was printed and there is nothing to run.
var ErrHelp = errors.New("help requested")

func helpRequested(argv []string) bool {
	if len(argv) > 0 && argv[0] == "help" {
		return true
	}
	for _, a := range argv {
		if a == "-h" || a == "--help" {
			return true
		}
	}
	return false
}

func readPrompt(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024) // 1MB max buffer
	var buf strings.Builder
	for scanner.Scan() {
		buf.WriteString(scanner.Text())
		buf.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// shouldUsePlainText determines if plain text output should be used based on environment and terminal settings.
func shouldUsePlainText(cfg config.Config) bool {
	// Check if the rendering format is set to plain
	if cfg.Render.Format == "plain" {
		return true
	}

	// Check if output is being redirected
	if !term.FromEnv().IsTerminalOutput() {
		return true
	}

	// Check for NO_COLOR environment variable
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return true
	}

	// Check for TERM=dumb
	if termEnv := os.Getenv("TERM"); termEnv == "dumb" {
		return true
	}

	return false
}

func summarizePrompt(prompt string) string {
	// Trim and limit the length of the prompt summary
	summary := strings.TrimSpace(prompt)
	if len(summary) > 60 {
		summary = summary[:57] + "..."
	}
	return summary
}
