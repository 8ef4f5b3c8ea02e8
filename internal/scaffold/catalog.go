package scaffold

import (
	"context"

	"github.com/pkg/errors"

	"github.com/BuilderIO/generate-repo-from-template/internal/source"
)

// ListTemplates returns the template names found at the root of src.
func ListTemplates(ctx context.Context, src source.Source) ([]string, error) {
	listing, err := src.List(ctx, "")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list templates")
	}
	return listing.DirNames(), nil
}
