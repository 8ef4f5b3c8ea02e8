package mirror

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/BuilderIO/generate-repo-from-template/internal/source"
)

// fetch downloads one task and never fails the caller. A missing remote file
// is expected noise (the listing cannot always tell files from directories)
// and is not logged as an error.
func (w *walk) fetch(ctx context.Context, task DownloadTask) DownloadResult {
	result := DownloadResult{RemotePath: task.RemotePath}

	if w.sem != nil {
		if err := w.sem.Acquire(ctx, 1); err != nil {
			result.Err = err
			return result
		}
		defer w.sem.Release(1)
	}

	err := w.download(ctx, task)
	if err != nil {
		result.Err = err
		switch {
		case errors.Is(err, source.ErrNotFound):
			w.log.Debug("remote file not found", zap.String("remote", task.RemotePath))
		case ctx.Err() != nil:
			w.log.Debug("download cancelled", zap.String("remote", task.RemotePath))
		default:
			w.log.Error("failed to download file", zap.String("remote", task.RemotePath), zap.Error(err))
		}
		return result
	}

	w.log.Debug("downloaded", zap.String("remote", task.RemotePath), zap.String("local", task.LocalPath))
	result.Success = true
	w.wrote(task.LocalPath)
	w.progress.Complete()
	return result
}

func (w *walk) download(ctx context.Context, task DownloadTask) error {
	body, err := w.src.Open(ctx, task.RemotePath)
	if err != nil {
		return err
	}
	defer body.Close()

	return saveRemoteFile(task.LocalPath, body)
}
