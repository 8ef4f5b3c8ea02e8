package scaffold

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRewriteDependencies(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		version  string
		want     string
		count    int
	}{
		{
			name:     "default version",
			manifest: "{\n  \"dependencies\": {\n    \"@builder.io/react\": \"workspace:*\",\n    \"next\": \"14.0.0\"\n  }\n}\n",
			want:     "{\n  \"dependencies\": {\n    \"@builder.io/react\": \"latest\",\n    \"next\": \"14.0.0\"\n  }\n}\n",
			count:    1,
		},
		{
			name:     "custom version across sections",
			manifest: `{"dependencies":{"a":"workspace:^1.0.0"},"devDependencies":{"b":"workspace:*","c":"1.0.0"}}`,
			version:  "2.0.0",
			want:     `{"dependencies":{"a":"2.0.0"},"devDependencies":{"b":"2.0.0","c":"1.0.0"}}`,
			count:    2,
		},
		{
			name:     "no workspace links",
			manifest: `{"name":"workspace:demo","dependencies":{"a":"1.0.0"}}`,
			want:     `{"name":"workspace:demo","dependencies":{"a":"1.0.0"}}`,
			count:    0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, ManifestFile)
			if err := os.WriteFile(path, []byte(tt.manifest), 0644); err != nil {
				t.Fatalf("Failed to write manifest: %v", err)
			}

			count, err := RewriteDependencies(dir, tt.version)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if count != tt.count {
				t.Errorf("Expected %d rewrites, got %d", tt.count, count)
			}
			got, _ := os.ReadFile(path)
			if string(got) != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestRewriteDependenciesWithoutManifest(t *testing.T) {
	count, err := RewriteDependencies(t.TempDir(), "")
	if err != nil || count != 0 {
		t.Errorf("Expected 0, nil for a missing manifest, got %d, %v", count, err)
	}
}

func TestRewriteDependenciesInvalidManifest(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, ManifestFile), []byte("{not json"), 0644)
	if _, err := RewriteDependencies(dir, ""); err == nil {
		t.Error("Expected error for invalid manifest")
	}
}

func TestReplaceAPIKey(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"src/index.js":              "builder.init('" + DefaultAPIKey + "')",
		".env.local":                "BUILDER_KEY=" + DefaultAPIKey,
		"image.png":                 DefaultAPIKey,
		"README.md":                 "no key here",
		"node_modules/pkg/index.js": DefaultAPIKey,
	}
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		os.MkdirAll(filepath.Dir(p), 0755)
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}

	changed, err := ReplaceAPIKey(dir, "abc123")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if changed != 2 {
		t.Errorf("Expected 2 files changed, got %d", changed)
	}

	expect := map[string]string{
		"src/index.js":              "builder.init('abc123')",
		".env.local":                "BUILDER_KEY=abc123",
		"image.png":                 DefaultAPIKey,
		"node_modules/pkg/index.js": DefaultAPIKey,
	}
	for name, want := range expect {
		got, _ := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
		if string(got) != want {
			t.Errorf("%s: expected %q, got %q", name, want, got)
		}
	}
}

func TestReplaceAPIKeyNoop(t *testing.T) {
	for _, key := range []string{"", DefaultAPIKey} {
		changed, err := ReplaceAPIKey(t.TempDir(), key)
		if err != nil || changed != 0 {
			t.Errorf("Expected no-op for key %q, got %d, %v", key, changed, err)
		}
	}
}
