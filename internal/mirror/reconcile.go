package mirror

import (
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Reconcile renames every entry below root whose name is percent-escaped to
// its decoded form, descending into directories through their new names. A
// failed rename is logged and the entry keeps its name; the failures are
// returned together and are not meant to stop the caller.
func Reconcile(root string, log *zap.Logger) (int, error) {
	return ReconcileFiles(root, nil, log)
}

// ReconcileFiles is Reconcile limited to files, and the directories leading to
// them, in the given set of paths below root. Other entries keep their names
// even when escaped. A nil set means the whole tree.
func ReconcileFiles(root string, files []string, log *zap.Logger) (int, error) {
	if log == nil {
		log = zap.NewNop()
	}
	r := &reconciler{log: log}
	if files != nil {
		r.only = make(map[string]struct{})
		for _, f := range files {
			rel, err := filepath.Rel(root, f)
			if err != nil || strings.HasPrefix(rel, "..") {
				continue
			}
			for p := filepath.ToSlash(rel); p != "." && p != "/"; p = path.Dir(p) {
				r.only[p] = struct{}{}
			}
		}
	}
	r.dir(root, "")
	return r.renamed, r.errs.ErrorOrNil()
}

type reconciler struct {
	log     *zap.Logger
	only    map[string]struct{} // relative paths as written, nil for all
	renamed int
	errs    *multierror.Error
}

// dir walks the directory at dir, which was written as rel.
func (r *reconciler) dir(dir, rel string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		r.log.Warn("cannot read directory", zap.String("dir", dir), zap.Error(err))
		r.errs = multierror.Append(r.errs, errors.Wrapf(err, "read %s", dir))
		return
	}

	for _, e := range entries {
		name := e.Name()
		entryRel := path.Join(rel, name)
		if r.only != nil {
			if _, ok := r.only[entryRel]; !ok {
				continue
			}
		}
		if decoded, ok := decodeName(name); ok {
			if err := r.rename(dir, name, decoded); err != nil {
				r.log.Warn("could not decode file name", zap.String("path", filepath.Join(dir, name)), zap.Error(err))
				r.errs = multierror.Append(r.errs, err)
			} else {
				name = decoded
			}
		}
		if e.IsDir() {
			r.dir(filepath.Join(dir, name), entryRel)
		}
	}
}

func (r *reconciler) rename(dir, from, to string) error {
	if to == "." || to == ".." || strings.ContainsAny(to, `/\`) {
		return errors.Errorf("decoded name %q is not a valid file name", to)
	}
	target := filepath.Join(dir, to)
	if _, err := os.Lstat(target); err == nil {
		return errors.Errorf("%s already exists", target)
	}
	if err := os.Rename(filepath.Join(dir, from), target); err != nil {
		return errors.Wrapf(err, "rename %s", from)
	}
	r.renamed++
	return nil
}

// decodeName returns the fully percent-decoded form of name and whether it
// differs. Decoding repeats until the name stops changing, so a name escaped
// more than once ends up plain in a single pass. Invalid escapes stop the
// decoding where they appear.
func decodeName(name string) (string, bool) {
	decoded := name
	for strings.Contains(decoded, "%") {
		next, err := url.PathUnescape(decoded)
		if err != nil || next == decoded || next == "" {
			break
		}
		decoded = next
	}
	return decoded, decoded != name
}
