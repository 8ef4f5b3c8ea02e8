package mirror

import "github.com/pkg/errors"

var (
	// ErrListing wraps a failed directory listing. It aborts the whole mirror.
	ErrListing = errors.New("listing failed")

	// ErrEmptyTemplate is returned when a walk completes without a single
	// downloaded file.
	ErrEmptyTemplate = errors.New("template is empty or does not exist")
)
