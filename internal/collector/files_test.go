package collector

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"pgregory.net/rapid"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestProjectCollectorManifests(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "go.mod"), `module example.com/tool

go 1.22

require (
	github.com/spf13/cobra v1.10.2
	golang.org/x/sys v0.38.0 // indirect
)
`)
	writeFile(t, filepath.Join(root, "package.json"), `{
  "name": "tool-web",
  "dependencies": {"react": "^18.0.0"},
  "devDependencies": {"vitest": "^1.0.0"},
  "scripts": {"test": "vitest", "build": "vite build"}
}`)
	writeFile(t, filepath.Join(root, "Makefile"), "VERSION := 1\n\nbuild:\n\tgo build ./...\n\nlint: vet\n\tgolangci-lint run\n\n%.o: %.c\n")
	writeFile(t, filepath.Join(root, ".editorconfig"), "root = true\n")
	writeFile(t, filepath.Join(root, "cmd", "main.go"), "package main\n")

	proj, err := (&ProjectCollector{WorkDir: root}).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect returned unexpected error: %v", err)
	}

	if proj.Kind != "mixed" {
		t.Errorf("Kind = %q, want mixed", proj.Kind)
	}
	if proj.Name != "tool-web" {
		t.Errorf("Name = %q, want tool-web (package.json wins)", proj.Name)
	}
	wantDeps := map[string]string{"react": "^18.0.0", "github.com/spf13/cobra": "v1.10.2"}
	if diff := cmp.Diff(wantDeps, proj.Dependencies); diff != "" {
		t.Errorf("Dependencies (-want +got):\n%s", diff)
	}
	wantScripts := map[string]string{"test": "vitest", "build": "vite build", "lint": "make lint"}
	if diff := cmp.Diff(wantScripts, proj.Scripts); diff != "" {
		t.Errorf("Scripts (-want +got):\n%s", diff)
	}
	for _, name := range []string{".editorconfig", "Makefile", "go.mod", "package.json"} {
		if !slices.Contains(proj.ConfigFiles, name) {
			t.Errorf("ConfigFiles missing %s: %v", name, proj.ConfigFiles)
		}
	}
	if !slices.Contains(proj.Directories, "cmd") || !slices.Contains(proj.Files, "cmd/main.go") {
		t.Errorf("inventory incomplete: dirs=%v files=%v", proj.Directories, proj.Files)
	}
	if proj.LastRefresh == nil {
		t.Error("LastRefresh not set")
	}
}

func TestProjectCollectorHonorsIgnoreFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".gitignore"), "# build output\n/dist/\n*.log\n!keep.log\n")
	writeFile(t, filepath.Join(root, ".gitmindignore"), "secrets\n")
	writeFile(t, filepath.Join(root, "dist", "app.js"), "")
	writeFile(t, filepath.Join(root, "secrets", "key.pem"), "")
	writeFile(t, filepath.Join(root, "debug.log"), "")
	writeFile(t, filepath.Join(root, "node_modules", "x", "index.js"), "")
	writeFile(t, filepath.Join(root, "src", "app.ts"), "")

	pc := &ProjectCollector{WorkDir: root, IgnorePatterns: []string{"node_modules"}}
	proj, err := pc.Collect(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range proj.Files {
		switch f {
		case "dist/app.js", "secrets/key.pem", "debug.log", "node_modules/x/index.js":
			t.Errorf("ignored path %q reported", f)
		}
	}
	if !slices.Contains(proj.Files, "src/app.ts") {
		t.Errorf("src/app.ts missing from %v", proj.Files)
	}
	if proj.Name != filepath.Base(root) {
		t.Errorf("Name = %q, want directory name", proj.Name)
	}
}

func TestProjectCollectorMaxEntries(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		writeFile(t, filepath.Join(root, name+".txt"), "")
	}
	proj, err := (&ProjectCollector{WorkDir: root, MaxEntries: 3}).Collect(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := len(proj.Files) + len(proj.Directories); got != 3 {
		t.Errorf("inventory size = %d, want 3", got)
	}
}

func TestProjectCollectorCancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (&ProjectCollector{WorkDir: root}).Collect(ctx); err == nil {
		t.Error("expected an error for a cancelled context")
	}
}

// Feature: gitmind, Property 7: Ignore pattern filtering
func TestIgnorePatternFiltering(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ext := rapid.StringMatching(`[a-z]{2,4}`).Draw(t, "ext")
		otherExt := rapid.StringMatching(`[a-z]{2,4}`).Draw(t, "otherExt")
		if otherExt == ext {
			otherExt += "x"
		}
		stem := rapid.StringMatching(`[a-z]{1,8}`).Draw(t, "stem")
		dir := rapid.StringMatching(`[a-z]{1,8}`).Draw(t, "dir")

		root := "/work"
		patterns := []string{"*." + ext}
		if !matchesAny(root, filepath.Join(root, dir, stem+"."+ext), patterns) {
			t.Fatalf("%s/%s.%s should match *.%s", dir, stem, ext, ext)
		}
		if matchesAny(root, filepath.Join(root, dir, stem+"."+otherExt), patterns) {
			t.Fatalf("%s/%s.%s should not match *.%s", dir, stem, otherExt, ext)
		}
	})
}
