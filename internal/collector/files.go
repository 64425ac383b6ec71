package collector

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"golang.org/x/mod/modfile"

	"github.com/fakeyudi/gitmind/internal/snapshot"
)

const defaultMaxEntries = 5000

// knownConfigFiles are reported in ProjectContext.ConfigFiles when present
// at the project root.
var knownConfigFiles = []string{
	".gitmindconfig",
	".editorconfig",
	".env.example",
	".eslintrc",
	".eslintrc.json",
	".prettierrc",
	".golangci.yml",
	".golangci.yaml",
	".goreleaser.yaml",
	".github/workflows",
	".gitlab-ci.yml",
	"Dockerfile",
	"docker-compose.yml",
	"Makefile",
	"go.mod",
	"package.json",
	"tsconfig.json",
	"jest.config.js",
	"vite.config.ts",
	"pyproject.toml",
	"Cargo.toml",
}

// ProjectCollector collects the working tree inventory and manifests.
type ProjectCollector struct {
	WorkDir        string
	IgnorePatterns []string
	MaxEntries     int // inventory bound, defaults to 5000
}

// Collect walks the working directory, honoring configured, .gitignore and
// .gitmindignore patterns, and reads package.json, go.mod and Makefile.
// Paths in the result are relative to the project root.
func (pc *ProjectCollector) Collect(ctx context.Context) (snapshot.ProjectContext, error) {
	root := pc.WorkDir
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return snapshot.ProjectContext{}, err
	}
	patterns, err := loadIgnorePatterns(abs, pc.IgnorePatterns)
	if err != nil {
		return snapshot.ProjectContext{}, err
	}

	limit := pc.MaxEntries
	if limit <= 0 {
		limit = defaultMaxEntries
	}

	proj := snapshot.ProjectContext{
		Root:        abs,
		Directories: []string{},
		Files:       []string{},
	}
	entries := 0
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			return nil // skip unreadable entries
		}
		if path == abs {
			return nil
		}
		if matchesAny(abs, path, patterns) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entries >= limit {
			return filepath.SkipAll
		}
		entries++
		rel, _ := filepath.Rel(abs, path)
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			proj.Directories = append(proj.Directories, rel)
		} else {
			proj.Files = append(proj.Files, rel)
		}
		return nil
	})
	if err != nil {
		return snapshot.ProjectContext{}, err
	}

	var kinds []string
	if pkg, ok := readPackageJSON(filepath.Join(abs, "package.json")); ok {
		kinds = append(kinds, "node")
		proj.Name = pkg.Name
		proj.Dependencies = mergeInto(proj.Dependencies, pkg.Dependencies)
		proj.DevDependencies = mergeInto(proj.DevDependencies, pkg.DevDependencies)
		proj.Scripts = mergeInto(proj.Scripts, pkg.Scripts)
	}
	if mod, ok := readGoMod(filepath.Join(abs, "go.mod")); ok {
		kinds = append(kinds, "go")
		if proj.Name == "" {
			proj.Name = mod.path
		}
		proj.Dependencies = mergeInto(proj.Dependencies, mod.requires)
	}
	for target, cmd := range readMakeTargets(filepath.Join(abs, "Makefile")) {
		if proj.Scripts == nil {
			proj.Scripts = map[string]string{}
		}
		if _, taken := proj.Scripts[target]; !taken {
			proj.Scripts[target] = cmd
		}
	}
	for _, name := range knownConfigFiles {
		if _, err := os.Stat(filepath.Join(abs, filepath.FromSlash(name))); err == nil {
			proj.ConfigFiles = append(proj.ConfigFiles, name)
		}
	}
	switch {
	case len(kinds) > 1:
		proj.Kind = "mixed"
	case len(kinds) == 1:
		proj.Kind = kinds[0]
	case slices.Contains(proj.ConfigFiles, "pyproject.toml"):
		proj.Kind = "python"
	case slices.Contains(proj.ConfigFiles, "Cargo.toml"):
		proj.Kind = "rust"
	}
	if proj.Name == "" {
		proj.Name = filepath.Base(abs)
	}
	now := time.Now()
	proj.LastRefresh = &now
	return proj, nil
}

type packageJSON struct {
	Name            string            `json:"name"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
	Scripts         map[string]string `json:"scripts"`
}

func readPackageJSON(path string) (packageJSON, bool) {
	var pkg packageJSON
	data, err := os.ReadFile(path)
	if err != nil {
		return pkg, false
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return pkg, false
	}
	return pkg, true
}

type goModule struct {
	path     string
	requires map[string]string
}

// readGoMod returns the module path and its direct requirements.
func readGoMod(path string) (goModule, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return goModule{}, false
	}
	f, err := modfile.ParseLax(path, data, nil)
	if err != nil {
		return goModule{}, false
	}
	mod := goModule{requires: map[string]string{}}
	if f.Module != nil {
		mod.path = f.Module.Mod.Path
	}
	for _, r := range f.Require {
		if !r.Indirect {
			mod.requires[r.Mod.Path] = r.Mod.Version
		}
	}
	return mod, true
}

var makeTarget = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9_./-]*)\s*:([^=]|$)`)

// readMakeTargets returns explicit Makefile targets as "make <target>" scripts.
func readMakeTargets(path string) map[string]string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	targets := map[string]string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m := makeTarget.FindStringSubmatch(scanner.Text())
		if m == nil || strings.Contains(m[1], "%") {
			continue
		}
		targets[m[1]] = "make " + m[1]
	}
	return targets
}

// matchesAny reports whether path matches any of the given glob patterns.
func matchesAny(root, path string, patterns []string) bool {
	rel := path
	if root != "" {
		if r, err := filepath.Rel(root, path); err == nil {
			rel = filepath.ToSlash(r)
		}
	}
	base := filepath.Base(path)

	for _, pattern := range patterns {
		pattern = strings.Trim(pattern, "/")
		if pattern == "" {
			continue
		}
		// Match against the base name.
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
		// Match against the relative path.
		if matched, _ := filepath.Match(pattern, rel); matched {
			return true
		}
		// Match against the full path.
		if matched, _ := filepath.Match(pattern, path); matched {
			return true
		}
	}
	return false
}

// loadIgnorePatterns merges the configured patterns with those from
// .gitignore and .gitmindignore files found in root.
func loadIgnorePatterns(root string, configured []string) ([]string, error) {
	patterns := make([]string, len(configured))
	copy(patterns, configured)

	for _, name := range []string{".gitignore", ".gitmindignore"} {
		extra, err := readPatternFile(filepath.Join(root, name))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return patterns, err
		}
		patterns = append(patterns, extra...)
	}
	return patterns, nil
}

// readPatternFile reads a gitignore-style file and returns non-empty,
// non-comment lines. Negated patterns are not supported and are skipped.
func readPatternFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns, scanner.Err()
}

func mergeInto(dst, src map[string]string) map[string]string {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]string, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
