package scaffold

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/BuilderIO/generate-repo-from-template/internal/mirror"
	"github.com/BuilderIO/generate-repo-from-template/internal/retry"
	"github.com/BuilderIO/generate-repo-from-template/internal/source"
)

// fakeHost serves tree pages and raw files for an in-memory repository in
// the layout of a source hosting service.
func fakeHost(t *testing.T, files map[string]string) source.Source {
	t.Helper()
	const (
		treePrefix = "/acme/templates/tree/main/examples"
		blobPrefix = "/acme/templates/blob/main/examples"
		rawPrefix  = "/raw/examples"
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.EscapedPath(), rawPrefix+"/"):
			p := strings.TrimPrefix(r.URL.EscapedPath(), rawPrefix+"/")
			content, ok := files[p]
			if !ok {
				http.NotFound(w, r)
				return
			}
			fmt.Fprint(w, content)
		case strings.HasPrefix(r.URL.EscapedPath(), treePrefix):
			dir := strings.TrimPrefix(strings.TrimPrefix(r.URL.EscapedPath(), treePrefix), "/")
			var b strings.Builder
			b.WriteString("<html><body>")
			for p := range files {
				if dir != "" && !strings.HasPrefix(p, dir+"/") {
					continue
				}
				rest := strings.TrimPrefix(p, dir+"/")
				if dir == "" {
					rest = p
				}
				if i := strings.Index(rest, "/"); i >= 0 {
					fmt.Fprintf(&b, `<a href="%s/%s">dir</a>`, treePrefix, strings.TrimPrefix(dir+"/"+rest[:i], "/"))
				} else {
					fmt.Fprintf(&b, `<a href="%s/%s">file</a>`, blobPrefix, p)
				}
			}
			b.WriteString("</body></html>")
			fmt.Fprint(w, b.String())
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	u, _ := url.Parse(srv.URL + treePrefix)
	src, err := source.NewGitHub(u, source.Options{
		RawURL: srv.URL + rawPrefix,
		Retry:  retry.Config{MaxAttempts: 1},
	})
	if err != nil {
		t.Fatalf("Failed to create source: %v", err)
	}
	return src
}

func TestGenerate(t *testing.T) {
	src := fakeHost(t, map[string]string{
		"starter/package.json":            `{"name":"starter","dependencies":{"@acme/sdk":"workspace:*","react":"^18.0.0"}}`,
		"starter/src/config.ts":           `export const apiKey = '` + DefaultAPIKey + `';`,
		"starter/src/my%20component.tsx":  `export default () => null;`,
		"other/readme.md":                 "other template",
	})
	target := filepath.Join(t.TempDir(), "my-app")

	result, err := Generate(context.Background(), src, Options{
		Template:   "starter",
		TargetDir:  target,
		APIKey:     "my-key",
		DepVersion: "1.2.3",
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	want := &Result{Downloaded: 3, Renamed: 1, DepsRewritten: 1, KeyFiles: 1}
	if !reflect.DeepEqual(result, want) {
		t.Errorf("Expected %+v, got %+v", want, result)
	}

	manifest, _ := os.ReadFile(filepath.Join(target, "package.json"))
	if !strings.Contains(string(manifest), `"@acme/sdk":"1.2.3"`) {
		t.Errorf("Expected workspace link rewritten, got %s", manifest)
	}
	config, _ := os.ReadFile(filepath.Join(target, "src", "config.ts"))
	if !strings.Contains(string(config), "my-key") {
		t.Errorf("Expected API key replaced, got %s", config)
	}
	if _, err := os.Stat(filepath.Join(target, "src", "my component.tsx")); err != nil {
		t.Errorf("Expected decoded file name, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(target, "readme.md")); !os.IsNotExist(err) {
		t.Error("Expected files of other templates to be left out")
	}
}

func TestGenerateKeepsExistingEntries(t *testing.T) {
	src := fakeHost(t, map[string]string{
		"starter/docs/getting%20started.md": "# Start",
	})
	target := t.TempDir()
	for _, p := range []string{"my%20notes.txt", "docs/draft%20v2.md"} {
		full := filepath.Join(target, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatalf("Failed to create dir: %v", err)
		}
		if err := os.WriteFile(full, []byte("mine"), 0644); err != nil {
			t.Fatalf("Failed to write file: %v", err)
		}
	}

	result, err := Generate(context.Background(), src, Options{Template: "starter", TargetDir: target})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.Renamed != 1 {
		t.Errorf("Expected 1 rename, got %d", result.Renamed)
	}
	for _, p := range []string{"my%20notes.txt", "docs/draft%20v2.md", "docs/getting started.md"} {
		if _, err := os.Stat(filepath.Join(target, filepath.FromSlash(p))); err != nil {
			t.Errorf("Expected %s to exist, got %v", p, err)
		}
	}
}

func TestGenerateUnknownTemplate(t *testing.T) {
	src := fakeHost(t, map[string]string{"starter/a.txt": "A"})

	_, err := Generate(context.Background(), src, Options{
		Template:  "missing",
		TargetDir: t.TempDir(),
		Mirror:    mirror.Options{Progress: mirror.NewProgress(nil, false, time.Second)},
	})
	if !errors.Is(err, mirror.ErrEmptyTemplate) {
		t.Errorf("Expected ErrEmptyTemplate, got %v", err)
	}
}

func TestListTemplates(t *testing.T) {
	src := fakeHost(t, map[string]string{
		"vue/a.txt":       "A",
		"react/b.txt":     "B",
		"react/src/c.txt": "C",
	})

	templates, err := ListTemplates(context.Background(), src)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !reflect.DeepEqual(templates, []string{"react", "vue"}) {
		t.Errorf("Expected [react vue], got %v", templates)
	}
}

func TestIsEmptyDir(t *testing.T) {
	dir := t.TempDir()

	if empty, err := IsEmptyDir(filepath.Join(dir, "missing")); err != nil || !empty {
		t.Errorf("Expected missing dir to count as empty, got %v, %v", empty, err)
	}
	if empty, err := IsEmptyDir(dir); err != nil || !empty {
		t.Errorf("Expected empty dir, got %v, %v", empty, err)
	}
	os.WriteFile(filepath.Join(dir, "x"), nil, 0644)
	if empty, err := IsEmptyDir(dir); err != nil || empty {
		t.Errorf("Expected non-empty dir, got %v, %v", empty, err)
	}
}
