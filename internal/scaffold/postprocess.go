package scaffold

import (
	"bytes"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

const (
	// ManifestFile holds the project dependencies.
	ManifestFile = "package.json"

	// WorkspaceMarker prefixes dependency versions that link to another
	// package of the template monorepo.
	WorkspaceMarker = "workspace:"

	// DefaultDepVersion replaces workspace links when no version is given.
	DefaultDepVersion = "latest"

	// DefaultAPIKey is the public demo key the templates ship with.
	DefaultAPIKey = "YJIGb4i01jvw0SRdL5Bt"
)

var dependencySections = []string{"dependencies", "devDependencies", "peerDependencies", "optionalDependencies"}

// textExtensions lists the files searched for the default API key.
var textExtensions = map[string]bool{
	".js": true, ".jsx": true, ".mjs": true, ".cjs": true,
	".ts": true, ".tsx": true, ".mts": true, ".cts": true,
	".vue": true, ".svelte": true, ".astro": true,
	".html": true, ".htm": true, ".liquid": true, ".hbs": true,
	".json": true, ".md": true, ".mdx": true, ".txt": true,
	".yml": true, ".yaml": true, ".toml": true, ".env": true,
	".php": true, ".py": true, ".rb": true, ".go": true, ".java": true, ".kt": true, ".swift": true, ".dart": true,
}

var skippedDirs = map[string]bool{"node_modules": true, ".git": true}

// RewriteDependencies replaces every workspace-linked dependency version in
// the manifest at the root of dir with version. The file is edited in place
// so its formatting and key order survive. A missing manifest is not an
// error. It returns the number of rewritten entries.
func RewriteDependencies(dir, version string) (int, error) {
	if version == "" {
		version = DefaultDepVersion
	}

	manifestPath := filepath.Join(dir, ManifestFile)
	data, err := os.ReadFile(manifestPath)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read %s", manifestPath)
	}

	var manifest map[string]json.RawMessage
	if err := json.Unmarshal(data, &manifest); err != nil {
		return 0, errors.Wrapf(err, "failed to parse %s", manifestPath)
	}

	linked := make(map[string]bool)
	for _, section := range dependencySections {
		raw, ok := manifest[section]
		if !ok {
			continue
		}
		var deps map[string]string
		if err := json.Unmarshal(raw, &deps); err != nil {
			return 0, errors.Wrapf(err, "failed to parse %s in %s", section, manifestPath)
		}
		for name, v := range deps {
			if strings.Contains(v, WorkspaceMarker) {
				linked[name] = true
			}
		}
	}
	if len(linked) == 0 {
		return 0, nil
	}

	quotedVersion, _ := json.Marshal(version)
	rewritten := 0
	out := string(data)
	for name := range linked {
		quotedName, _ := json.Marshal(name)
		re := regexp.MustCompile(`(` + regexp.QuoteMeta(string(quotedName)) + `\s*:\s*)"[^"]*` + regexp.QuoteMeta(WorkspaceMarker) + `[^"]*"`)
		rewritten += len(re.FindAllStringIndex(out, -1))
		out = re.ReplaceAllString(out, "${1}"+escapeReplacement(string(quotedVersion)))
	}

	info, err := os.Stat(manifestPath)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to stat %s", manifestPath)
	}
	if err := os.WriteFile(manifestPath, []byte(out), info.Mode().Perm()); err != nil {
		return 0, errors.Wrapf(err, "failed to write %s", manifestPath)
	}
	return rewritten, nil
}

func escapeReplacement(s string) string {
	return strings.ReplaceAll(s, "$", "$$")
}

// ReplaceAPIKey substitutes key for DefaultAPIKey in every text file below dir
// that contains it. It returns the number of files changed.
func ReplaceAPIKey(dir, key string) (int, error) {
	if key == "" || key == DefaultAPIKey {
		return 0, nil
	}

	changed := 0
	oldKey, newKey := []byte(DefaultAPIKey), []byte(key)
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != dir && skippedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !isTextFile(d.Name()) {
			return nil
		}

		data, err := os.ReadFile(p)
		if err != nil {
			return errors.Wrapf(err, "failed to read %s", p)
		}
		if !bytes.Contains(data, oldKey) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return errors.Wrapf(err, "failed to stat %s", p)
		}
		if err := os.WriteFile(p, bytes.ReplaceAll(data, oldKey, newKey), info.Mode().Perm()); err != nil {
			return errors.Wrapf(err, "failed to write %s", p)
		}
		changed++
		return nil
	})
	return changed, err
}

func isTextFile(name string) bool {
	if strings.HasPrefix(name, ".env") {
		return true
	}
	return textExtensions[strings.ToLower(filepath.Ext(name))]
}
