package config

import (
	"flag"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultSourceURL = "https://github.com/BuilderIO/builder/tree/main/examples"
	DefaultRawURL    = "https://raw.githubusercontent.com/BuilderIO/builder/main/examples"
)

type Config struct {
	Template   string
	TargetDir  string
	APIKey     string
	DepVersion string

	SourceURL     string
	RawURL        string
	BatchSize     int
	MaxConcurrent int
	Timeout       time.Duration
	Retries       int

	LogLevel   string
	LogFormat  string
	Verbose    bool
	Yes        bool
	NoProgress bool

	ListTemplates bool
	ShowVersion   bool
}

// Load parses args (without the program name) on top of the defaults and then
// applies environment overrides. The first positional argument, if any, is
// the target directory.
func Load(args []string, output io.Writer) (*Config, error) {
	config := &Config{
		DepVersion:    "latest",
		SourceURL:     DefaultSourceURL,
		RawURL:        DefaultRawURL,
		BatchSize:     5,
		MaxConcurrent: 0,
		Timeout:       30 * time.Second,
		Retries:       3,
		LogLevel:      "info",
		LogFormat:     "console",
	}

	fs := flag.NewFlagSet("generate-repo", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&config.Template, "template", config.Template, "Template to generate (prompted when empty)")
	fs.StringVar(&config.TargetDir, "dir", config.TargetDir, "Directory to create the project in")
	fs.StringVar(&config.APIKey, "api-key", config.APIKey, "API key written into the generated project")
	fs.StringVar(&config.DepVersion, "dep-version", config.DepVersion, "Version used for workspace-linked dependencies")
	fs.StringVar(&config.SourceURL, "source", config.SourceURL, "Template tree URL (https://, ftp:// or sftp://)")
	fs.StringVar(&config.RawURL, "raw-url", config.RawURL, "Raw file base URL for https sources")
	fs.IntVar(&config.BatchSize, "batch", config.BatchSize, "Files downloaded together per directory")
	fs.IntVar(&config.MaxConcurrent, "max-concurrent", config.MaxConcurrent, "Downloads in flight across all directories (0 = no limit)")
	fs.DurationVar(&config.Timeout, "timeout", config.Timeout, "Timeout for a single request")
	fs.IntVar(&config.Retries, "retries", config.Retries, "Attempts per request")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&config.LogFormat, "log-format", config.LogFormat, "Log format (console, json)")
	fs.BoolVar(&config.Verbose, "v", config.Verbose, "Verbose output (same as -log-level debug)")
	fs.BoolVar(&config.Yes, "yes", config.Yes, "Do not ask before writing into a non-empty directory")
	fs.BoolVar(&config.NoProgress, "no-progress", config.NoProgress, "Do not render download progress")
	fs.BoolVar(&config.ListTemplates, "list", config.ListTemplates, "List available templates and exit")
	fs.BoolVar(&config.ShowVersion, "version", config.ShowVersion, "Show version information")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if config.TargetDir == "" && fs.NArg() > 0 {
		config.TargetDir = fs.Arg(0)
	}

	// Override with environment variables
	if template := os.Getenv("TEMPLATE"); template != "" && config.Template == "" {
		config.Template = template
	}
	if key := os.Getenv("BUILDER_API_KEY"); key != "" && config.APIKey == "" {
		config.APIKey = key
	}
	if version := os.Getenv("DEP_VERSION"); version != "" {
		config.DepVersion = version
	}
	if src := os.Getenv("TEMPLATE_SOURCE"); src != "" {
		config.SourceURL = src
	}
	if raw := os.Getenv("TEMPLATE_RAW_URL"); raw != "" {
		config.RawURL = raw
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.LogLevel = level
	}
	if n := os.Getenv("MAX_CONCURRENT"); n != "" {
		if v, err := strconv.Atoi(n); err == nil {
			config.MaxConcurrent = v
		}
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.SourceURL == "" {
		return errors.New("source URL cannot be empty")
	}
	if c.BatchSize < 1 {
		return errors.New("batch size must be at least 1")
	}
	if c.MaxConcurrent < 0 {
		return errors.New("max concurrent downloads cannot be negative")
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.Retries < 1 {
		return errors.New("retries must be at least 1")
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return errors.Errorf("unknown log format %q", c.LogFormat)
	}
	if c.ListTemplates || c.ShowVersion {
		return nil
	}
	if c.TargetDir == "" {
		return errors.New("target directory cannot be empty")
	}
	return nil
}
