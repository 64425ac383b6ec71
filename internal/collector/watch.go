package collector

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// gitTriggers are files inside .git whose change means the repository
// state moved (checkout, commit, stage, fetch, merge).
var gitTriggers = map[string]bool{
	"HEAD":        true,
	"index":       true,
	"ORIG_HEAD":   true,
	"FETCH_HEAD":  true,
	"MERGE_HEAD":  true,
	"packed-refs": true,
}

// Watch starts a recursive fsnotify watcher on workDir until ctx is
// cancelled. Changes to repository metadata call onGit; other non-ignored
// changes call onProject and then onGit, since working tree edits move the
// status too.
func Watch(ctx context.Context, workDir string, ignorePatterns []string, onGit, onProject func(path string)) error {
	root, err := filepath.Abs(workDir)
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	patterns, err := loadIgnorePatterns(root, ignorePatterns)
	if err != nil {
		logrus.WithError(err).Warn("collector: failed to read ignore files")
	}
	gitDir := filepath.Join(root, ".git")

	// Walk the directory tree and add a watcher for every subdirectory.
	addTree := func(dir string) error {
		return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil || !d.IsDir() {
				return nil // skip unreadable entries
			}
			if path == gitDir {
				return addGitDir(watcher, gitDir)
			}
			if path != root && matchesAny(root, path, patterns) {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		})
	}
	if err := addTree(root); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			if rel, err := filepath.Rel(gitDir, event.Name); err == nil && !strings.HasPrefix(rel, "..") {
				if isGitTrigger(rel) {
					onGit(event.Name)
				}
				if event.Has(fsnotify.Create) && isDir(event.Name) {
					_ = watcher.Add(event.Name)
				}
				continue
			}
			if matchesAny(root, event.Name, patterns) {
				continue
			}
			// If a new directory was created, watch it too.
			if event.Has(fsnotify.Create) && isDir(event.Name) {
				if err := addTree(event.Name); err != nil {
					logrus.WithError(err).WithField("path", event.Name).Debug("collector: watch add failed")
				}
			}
			onProject(event.Name)
			onGit(event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			// Watcher errors are non-fatal; continue watching.
			logrus.WithError(err).Debug("collector: watcher error")
		}
	}
}

// addGitDir watches .git itself and the refs tree, skipping objects.
func addGitDir(w *fsnotify.Watcher, gitDir string) error {
	if err := w.Add(gitDir); err != nil {
		return err
	}
	_ = filepath.WalkDir(filepath.Join(gitDir, "refs"), func(path string, d fs.DirEntry, err error) error {
		if err == nil && d.IsDir() {
			_ = w.Add(path)
		}
		return nil
	})
	return filepath.SkipDir
}

func isGitTrigger(rel string) bool {
	rel = filepath.ToSlash(rel)
	if strings.HasSuffix(rel, ".lock") {
		return false
	}
	return gitTriggers[rel] || strings.HasPrefix(rel, "refs/")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
