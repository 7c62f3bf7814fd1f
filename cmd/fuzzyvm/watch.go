package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/chazu/fuzzyvm/manifest"
)

// settleDelay lets an editor finish writing before the sources are reread.
const settleDelay = 50 * time.Millisecond

// watchProject rebuilds the controller whenever the manifest, rule source
// or transform source changes, until ctx is done. The directories are
// watched rather than the files because editors save by rename.
func watchProject(ctx context.Context, dir string, rebuilt func(*project, error)) error {
	p, err := openProject(dir)
	if err != nil {
		return err
	}
	// rebuild returns the reloaded project, or nil when the manifest
	// failed to load.
	rebuild := func() *project {
		next, err := openProject(dir)
		if err == nil {
			_, err = next.build()
		}
		rebuilt(next, err)
		return next
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	watched := watchedFiles(p)
	for _, d := range watchedDirs(watched) {
		if err := watcher.Add(d); err != nil {
			return err
		}
	}
	// The first build runs once the watches are in place so no edit is lost.
	rebuild()

	var settle <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !watched[filepath.Clean(event.Name)] {
				continue
			}
			log.Debugf("%s: %s", event.Op, event.Name)
			// Coalesce bursts of events into one rebuild.
			settle = time.After(settleDelay)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warningf("watch: %v", err)

		case <-settle:
			settle = nil
			if next := rebuild(); next != nil {
				// The manifest may point at new sources.
				watched = watchedFiles(next)
				for _, d := range watchedDirs(watched) {
					if err := watcher.Add(d); err != nil {
						log.Warningf("watch %s: %v", d, err)
					}
				}
			}
		}
	}
}

func watchedFiles(p *project) map[string]bool {
	files := map[string]bool{
		filepath.Join(p.manifest.Dir, manifest.FileName): true,
		filepath.Clean(p.manifest.RulesPath()):           true,
	}
	if t := p.manifest.TransformsPath(); t != "" {
		files[filepath.Clean(t)] = true
	}
	return files
}

func watchedDirs(files map[string]bool) []string {
	seen := make(map[string]bool)
	var dirs []string
	for f := range files {
		d := filepath.Dir(f)
		if !seen[d] {
			seen[d] = true
			dirs = append(dirs, d)
		}
	}
	return dirs
}
