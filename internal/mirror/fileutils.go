package mirror

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// resolveRelativePath strips basePath from remotePath and joins the remainder
// onto localBasePath.
func resolveRelativePath(remotePath, basePath, localBasePath string) (string, error) {
	relativePath := strings.TrimPrefix(remotePath, basePath)
	relativePath = strings.TrimPrefix(relativePath, "/")

	absoluteBase, err := filepath.Abs(localBasePath)
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve absolute path")
	}
	localPath := filepath.Join(absoluteBase, filepath.FromSlash(relativePath))

	if localPath != absoluteBase && !strings.HasPrefix(localPath, absoluteBase+string(filepath.Separator)) {
		return "", errors.Errorf("remote path %s resolves outside %s", remotePath, absoluteBase)
	}
	return localPath, nil
}

// saveRemoteFile writes the content of reader to localPath, creating parent
// directories first. Content goes to a temporary file that replaces
// localPath only once fully written.
func saveRemoteFile(localPath string, reader io.Reader) error {
	dir := filepath.Dir(localPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "failed to create directory")
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(localPath)+".*.part")
	if err != nil {
		return errors.Wrap(err, "failed to create destination file")
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err := io.Copy(tmp, reader); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "failed to copy file contents")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close destination file")
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return errors.Wrap(err, "failed to set file mode")
	}
	return errors.Wrap(os.Rename(tmp.Name(), localPath), "failed to move file into place")
}
