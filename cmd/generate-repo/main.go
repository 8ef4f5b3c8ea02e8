package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/BuilderIO/generate-repo-from-template/internal/config"
	"github.com/BuilderIO/generate-repo-from-template/internal/logging"
	"github.com/BuilderIO/generate-repo-from-template/internal/mirror"
	"github.com/BuilderIO/generate-repo-from-template/internal/retry"
	"github.com/BuilderIO/generate-repo-from-template/internal/scaffold"
	"github.com/BuilderIO/generate-repo-from-template/internal/source"
)

// Build information (set by linker flags during build)
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var errAborted = errors.New("aborted by user")

func main() {
	cfg, err := config.Load(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		os.Exit(2)
	}

	if cfg.ShowVersion {
		fmt.Printf("generate-repo %s", version)
		if commit != "unknown" {
			fmt.Printf(" (%s, built %s)", commit, date)
		}
		fmt.Println()
		return
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration validation failed: %v\n", err)
		os.Exit(2)
	}

	if err := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	if cfg.Verbose {
		logging.SetLevel("debug")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err = run(ctx, cfg, logging.L())
	stop()
	_ = logging.Sync()

	if errors.Is(err, errAborted) {
		fmt.Println("Aborted.")
		os.Exit(1)
	}
	if err != nil {
		logging.L().Error("project generation failed", zap.Error(err))
		if errors.Is(err, mirror.ErrEmptyTemplate) {
			fmt.Fprintf(os.Stderr, "Template %q is empty or does not exist. Use -list to see available templates.\n", cfg.Template)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	var password []byte
	if source.NeedsPassword(cfg.SourceURL) {
		var err error
		password, err = source.AskPassword("Enter password: ")
		if err != nil {
			return err
		}
		// Sources keep their own copy.
		defer source.Wipe(password)
	}

	policy := retry.DefaultConfig()
	policy.MaxAttempts = cfg.Retries

	src, err := source.Open(cfg.SourceURL, source.Options{
		RawURL:   cfg.RawURL,
		Timeout:  cfg.Timeout,
		Retry:    policy,
		Password: password,
		Logger:   log,
	})
	if err != nil {
		return err
	}
	defer src.Close()

	if cfg.ListTemplates {
		templates, err := scaffold.ListTemplates(ctx, src)
		if err != nil {
			return err
		}
		for _, name := range templates {
			fmt.Println(name)
		}
		return nil
	}

	// One reader for every prompt so piped answers are not lost to buffering.
	stdin := bufio.NewReader(os.Stdin)

	if cfg.Template == "" {
		templates, err := scaffold.ListTemplates(ctx, src)
		if err != nil {
			return err
		}
		cfg.Template, err = scaffold.ChooseTemplate(stdin, os.Stdout, templates)
		if err != nil {
			return err
		}
	}

	targetDir, err := filepath.Abs(cfg.TargetDir)
	if err != nil {
		return errors.Wrap(err, "invalid target directory")
	}
	empty, err := scaffold.IsEmptyDir(targetDir)
	if err != nil {
		return err
	}
	if !empty && !cfg.Yes {
		if !scaffold.Confirm(stdin, os.Stdout, fmt.Sprintf("%s is not empty. Continue anyway?", targetDir)) {
			return errAborted
		}
	}

	var progress *mirror.Progress
	if !cfg.NoProgress {
		progress = mirror.NewProgress(os.Stdout, term.IsTerminal(int(os.Stdout.Fd())), 2*time.Second)
	}

	fmt.Printf("Creating %s from template %q...\n", targetDir, cfg.Template)
	start := time.Now()
	result, err := scaffold.Generate(ctx, src, scaffold.Options{
		Template:   cfg.Template,
		TargetDir:  targetDir,
		APIKey:     cfg.APIKey,
		DepVersion: cfg.DepVersion,
		Mirror: mirror.Options{
			BatchSize:     cfg.BatchSize,
			MaxConcurrent: cfg.MaxConcurrent,
			Progress:      progress,
		},
		Logger: log,
	})
	if err != nil {
		return err
	}

	log.Info("project generated",
		zap.Int("files", result.Downloaded),
		zap.Int("renamed", result.Renamed),
		zap.Int("dependencies", result.DepsRewritten),
		zap.Int("api_key_files", result.KeyFiles),
		zap.Duration("elapsed", time.Since(start).Round(time.Millisecond)))

	fmt.Printf("\nDone. %d files written to %s\n", result.Downloaded, targetDir)
	fmt.Printf("Next steps:\n  cd %s\n  npm install\n  npm run dev\n", cfg.TargetDir)
	return nil
}
