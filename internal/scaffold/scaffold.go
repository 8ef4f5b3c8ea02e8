// Package scaffold creates a project from a remote template: it mirrors the
// template tree, decodes escaped file names and applies the project settings
// to the downloaded files.
package scaffold

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/BuilderIO/generate-repo-from-template/internal/mirror"
	"github.com/BuilderIO/generate-repo-from-template/internal/source"
)

type Options struct {
	Template   string
	TargetDir  string
	APIKey     string
	DepVersion string
	Mirror     mirror.Options
	Logger     *zap.Logger
}

// Result summarizes a generated project.
type Result struct {
	Downloaded    int
	Renamed       int
	DepsRewritten int
	KeyFiles      int
}

// Generate mirrors opts.Template from src into opts.TargetDir and
// post-processes the result. Only a failed listing, an empty template or a
// failed post-processing step is an error.
func Generate(ctx context.Context, src source.Source, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Mirror.Logger == nil {
		opts.Mirror.Logger = log
	}

	m := mirror.New(src, opts.Mirror)
	written, err := m.RunFiles(ctx, mirror.Job{RemoteRoot: opts.Template, TargetDir: opts.TargetDir})
	m.Progress().Finish()
	if err != nil {
		return nil, err
	}

	result := &Result{Downloaded: len(written)}

	// Entries that were already in the target directory keep their names.
	result.Renamed, err = mirror.ReconcileFiles(opts.TargetDir, written, log)
	if err != nil {
		log.Warn("some file names could not be decoded", zap.Error(err))
	}

	result.DepsRewritten, err = RewriteDependencies(opts.TargetDir, opts.DepVersion)
	if err != nil {
		return result, errors.Wrap(err, "failed to update dependencies")
	}
	log.Debug("dependencies updated", zap.Int("count", result.DepsRewritten))

	result.KeyFiles, err = ReplaceAPIKey(opts.TargetDir, opts.APIKey)
	if err != nil {
		return result, errors.Wrap(err, "failed to set API key")
	}
	log.Debug("API key set", zap.Int("files", result.KeyFiles))

	return result, nil
}

// IsEmptyDir reports whether dir is missing or has no entries.
func IsEmptyDir(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "failed to read %s", dir)
	}
	return len(entries) == 0, nil
}
