package mirror

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/BuilderIO/generate-repo-from-template/internal/source"
)

// DefaultBatchSize bounds the downloads in flight for one directory.
const DefaultBatchSize = 5

// Options configure a Mirror.
type Options struct {
	// BatchSize is the number of files of one directory fetched together.
	BatchSize int
	// MaxConcurrent caps downloads in flight across all directories. Zero
	// leaves only the per-directory batch bound.
	MaxConcurrent int
	Progress      *Progress
	Logger        *zap.Logger
}

// Mirror copies remote template trees from a source into local directories.
type Mirror struct {
	src       source.Source
	batchSize int
	sem       *semaphore.Weighted
	progress  *Progress
	log       *zap.Logger
}

func New(src source.Source, opts Options) *Mirror {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Progress == nil {
		opts.Progress = NewProgress(nil, false, 0)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	m := &Mirror{
		src:       src,
		batchSize: opts.BatchSize,
		progress:  opts.Progress,
		log:       opts.Logger,
	}
	if opts.MaxConcurrent > 0 {
		m.sem = semaphore.NewWeighted(int64(opts.MaxConcurrent))
	}
	return m
}

// Progress returns the tracker fed by this mirror.
func (m *Mirror) Progress() *Progress { return m.progress }

// Run walks job.RemoteRoot and writes every file below it into job.TargetDir.
// It returns the number of files downloaded. A listing failure aborts the
// walk; a walk that downloads nothing fails with ErrEmptyTemplate.
func (m *Mirror) Run(ctx context.Context, job Job) (int, error) {
	written, err := m.RunFiles(ctx, job)
	return len(written), err
}

// RunFiles is Run, returning the sorted local paths written instead of their
// count.
func (m *Mirror) RunFiles(ctx context.Context, job Job) ([]string, error) {
	if job.TemplateRoot == "" {
		job.TemplateRoot = job.RemoteRoot
	}

	log := m.log.With(zap.String("run_id", uuid.NewString()), zap.String("template", job.TemplateRoot))
	log.Info("mirroring template", zap.String("remote", job.RemoteRoot), zap.String("target", job.TargetDir))

	w := &walk{Mirror: m, job: job, log: log, claimed: make(map[string]struct{})}

	count, err := w.dir(ctx, job.RemoteRoot)
	written := w.writtenFiles()
	if err != nil {
		return written, err
	}
	if count == 0 {
		return nil, errors.Wrapf(ErrEmptyTemplate, "template %q", job.TemplateRoot)
	}

	state := m.progress.State()
	log.Info("mirror complete", zap.Int("downloaded", count), zap.Int("discovered", state.Total))
	return written, nil
}

// walk is the state of one Run.
type walk struct {
	*Mirror
	job Job
	log *zap.Logger

	mu      sync.Mutex
	claimed map[string]struct{}
	written []string
}

// dir mirrors one remote directory and everything below it.
func (w *walk) dir(ctx context.Context, remotePath string) (int, error) {
	listing, err := w.src.List(ctx, remotePath)
	if err != nil {
		if !errors.Is(err, source.ErrNotFound) {
			return 0, errors.Wrapf(ErrListing, "%s: %v", remotePath, err)
		}
		w.log.Debug("directory not found, treating as empty", zap.String("remote", remotePath))
		listing = source.NewListing()
	}

	tasks := w.tasks(remotePath, listing.FileNames())
	w.progress.AddTotal(len(tasks))

	completed := 0
	for start := 0; start < len(tasks); start += w.batchSize {
		end := start + w.batchSize
		if end > len(tasks) {
			end = len(tasks)
		}
		for _, result := range w.batch(ctx, tasks[start:end]) {
			if result.Success {
				completed++
			}
		}
		if err := ctx.Err(); err != nil {
			return completed, err
		}
	}

	var below atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range listing.DirNames() {
		child := joinRemote(remotePath, name)
		g.Go(func() error {
			n, err := w.dir(gctx, child)
			below.Add(int64(n))
			return err
		})
	}
	err = g.Wait()

	return completed + int(below.Load()), err
}

// tasks turns file names into download tasks, skipping local paths that an
// earlier directory already claimed.
func (w *walk) tasks(remotePath string, names []string) []DownloadTask {
	tasks := make([]DownloadTask, 0, len(names))
	for _, name := range names {
		remote := joinRemote(remotePath, name)
		local, err := resolveRelativePath(remote, w.job.TemplateRoot, w.job.TargetDir)
		if err != nil {
			w.log.Warn("skipping file", zap.String("remote", remote), zap.Error(err))
			continue
		}
		if !w.claim(local) {
			w.log.Debug("skipping duplicate", zap.String("remote", remote), zap.String("local", local))
			continue
		}
		tasks = append(tasks, DownloadTask{RemotePath: remote, LocalPath: local})
	}
	return tasks
}

func (w *walk) claim(localPath string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.claimed[localPath]; ok {
		return false
	}
	w.claimed[localPath] = struct{}{}
	return true
}

func (w *walk) wrote(localPath string) {
	w.mu.Lock()
	w.written = append(w.written, localPath)
	w.mu.Unlock()
}

func (w *walk) writtenFiles() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	files := append([]string(nil), w.written...)
	sort.Strings(files)
	return files
}

// batch fetches all tasks concurrently and waits for every one of them.
func (w *walk) batch(ctx context.Context, tasks []DownloadTask) []DownloadResult {
	results := make([]DownloadResult, len(tasks))
	var wg sync.WaitGroup
	for i, task := range tasks {
		i, task := i, task
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = w.fetch(ctx, task)
		}()
	}
	wg.Wait()
	return results
}

func joinRemote(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}
