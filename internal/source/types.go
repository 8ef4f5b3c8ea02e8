package source

import (
	"context"
	"io"
	"net/url"
	"sort"

	"github.com/pkg/errors"
)

// ErrNotFound is returned when the remote path does not exist.
var ErrNotFound = errors.New("remote path not found")

// Listing holds the direct children of one remote directory.
type Listing struct {
	Files map[string]struct{}
	Dirs  map[string]struct{}
}

func NewListing() *Listing {
	return &Listing{
		Files: make(map[string]struct{}),
		Dirs:  make(map[string]struct{}),
	}
}

func (l *Listing) AddFile(name string) { l.Files[name] = struct{}{} }

func (l *Listing) AddDir(name string) { l.Dirs[name] = struct{}{} }

// FileNames returns the file names in lexical order.
func (l *Listing) FileNames() []string { return sortedKeys(l.Files) }

// DirNames returns the directory names in lexical order.
func (l *Listing) DirNames() []string { return sortedKeys(l.Dirs) }

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Source lists and reads a remote template tree. Paths are slash separated and
// relative to the source root.
type Source interface {
	List(ctx context.Context, remotePath string) (*Listing, error)
	Open(ctx context.Context, remotePath string) (io.ReadCloser, error)
	Close() error
}

// Factory creates a Source for the URL schemes it accepts.
type Factory interface {
	Accept(u *url.URL) bool
	Create(u *url.URL, opts Options) (Source, error)
	Name() string
}
