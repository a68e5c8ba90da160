package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

const (
	configDirName = "chatstream"
	defaultConfig = ".config"
	tokenEnv      = "CHATSTREAM_TOKEN"
)

var configFiles = []string{
	"config.yaml",
	"config.yml",
}

// Config represents the structure of the configuration file used by the application.
type Config struct {
	Endpoint    string            `yaml:"endpoint" default:"http://localhost:5000"`
	ChatPath    string            `yaml:"chat_path" default:"/ui/chat"`
	WelcomePath string            `yaml:"welcome_path" default:"/ui/chat/init"`
	Token       string            `yaml:"token"`
	Timeout     time.Duration     `yaml:"timeout" default:"30s"`
	Buffer      BufferConfig      `yaml:"buffer"`
	Render      RenderConfig      `yaml:"render"`
	Log         LogConfig         `yaml:"log"`
	Prompts     map[string]string `yaml:"prompts"`
}

// BufferConfig holds the output coalescing thresholds.
type BufferConfig struct {
	MinChunkSize int           `yaml:"min_chunk_size" default:"20"`
	MaxDelay     time.Duration `yaml:"max_delay" default:"50ms"`
}

// RenderConfig controls terminal output.
type RenderConfig struct {
	Format string `yaml:"format" default:"markdown"`
	Theme  string `yaml:"theme"`
	Wrap   int    `yaml:"wrap" default:"120"`
}

// LogConfig controls diagnostics written to stderr.
type LogConfig struct {
	Level  string `yaml:"level" default:"warn"`
	Format string `yaml:"format" default:"console"`
}

// configResult is a struct used to return the configuration and any error that occurs during loading.
type configResult struct {
	config *Config
	err    error
}

// newDefaultConfig creates a configuration with every default applied.
func newDefaultConfig() (*Config, error) {
	cfg := &Config{Prompts: map[string]string{}}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply config defaults: %w", err)
	}
	return cfg, nil
}

// getConfigPath retrieves the path to the configuration directory based on the XDG_CONFIG_HOME environment variable.
func getConfigPath() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		configHome = filepath.Join(home, defaultConfig)
	}

	return filepath.Join(configHome, configDirName), nil
}

// tryLoadConfig attempts to load a configuration file from the specified path.
func tryLoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg, err := newDefaultConfig()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	// Sections missing from the file still need their defaults.
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply config defaults: %w", err)
	}

	return cfg, nil
}

// LoadConfig loads the configuration from the user's home directory, with a timeout.
func LoadConfig(ctx context.Context) (*Config, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result := make(chan configResult, 1)

	go func() {
		cfg, err := loadConfigFiles(ctx)
		result <- configResult{config: cfg, err: err}
	}()

	done := ctx.Done()
	select {
	case <-done:
		return nil, ctx.Err()
	case r := <-result:
		if r.err != nil {
			return nil, r.err
		}
		applyEnv(r.config)
		return r.config, nil
	}
}

// loadConfigFiles loads configuration files from the user's home directory.
func loadConfigFiles(ctx context.Context) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error before loading config: %w", err)
	}

	configDir, err := getConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}

	// Return default config early if directory doesn't exist
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return newDefaultConfig()
	}

	for _, filename := range configFiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cfg, err := tryLoadConfig(filepath.Join(configDir, filename))
		if err == nil {
			return cfg, nil
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config from %s: %w", filename, err)
		}
	}

	return newDefaultConfig()
}

func applyEnv(cfg *Config) {
	if token := os.Getenv(tokenEnv); token != "" {
		cfg.Token = token
	}
}
