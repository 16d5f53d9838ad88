// Package repo implements the SkillRepository capability: an in-memory
// index of parsed Skills kept current by watching a directory of Markdown
// files, replacing the teacher's polling watch loop with event-based
// reparsing.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/skillrun/skillrun/internal/logging"
	"github.com/skillrun/skillrun/pkg/kernel/markdown"
	"github.com/skillrun/skillrun/pkg/kernel/schema"
)

// Repository is a directory-backed, hot-reloading index of Skills. List
// and Get never block on the filesystem; a single mutex guards the index
// the watcher goroutine rebuilds on every write.
type Repository struct {
	dir    string
	log    logging.Logger
	mu     sync.RWMutex
	skills map[string]*schema.Skill // skill id -> skill
	paths  map[string]string        // file path -> skill id, for delete handling

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// New scans dir once synchronously, then returns a Repository ready to
// Watch. A Skill that fails to parse is skipped and logged, not fatal.
func New(dir string, log logging.Logger) (*Repository, error) {
	if log == nil {
		log = logging.Noop{}
	}
	r := &Repository{
		dir:    dir,
		log:    log,
		skills: map[string]*schema.Skill{},
		paths:  map[string]string{},
	}
	if err := r.reloadAll(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Repository) reloadAll() error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("read skills dir %s: %w", r.dir, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.skills = map[string]*schema.Skill{}
	r.paths = map[string]string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		path := filepath.Join(r.dir, e.Name())
		r.loadLocked(path)
	}
	return nil
}

// loadLocked parses one file and indexes it. Caller holds r.mu.
func (r *Repository) loadLocked(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		r.log.Warn("skill reload: read failed", "path", path, "error", err)
		return
	}
	skill, err := markdown.Parse(data)
	if err != nil {
		r.log.Warn("skill reload: parse failed", "path", path, "error", err)
		return
	}
	r.skills[skill.ID] = skill
	r.paths[path] = skill.ID
}

func (r *Repository) removeLocked(path string) {
	if id, ok := r.paths[path]; ok {
		delete(r.skills, id)
		delete(r.paths, path)
	}
}

// Watch starts an fsnotify watcher on the repository directory; it runs
// until ctx-independent Close is called, since the watcher's own goroutine
// owns the lifecycle rather than a passed context.
func (r *Repository) Watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(r.dir); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", r.dir, err)
	}
	r.watcher = w
	r.done = make(chan struct{})

	go r.watchLoop()
	return nil
}

func (r *Repository) watchLoop() {
	for {
		select {
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			r.handleEvent(event)
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.log.Warn("skill watcher error", "error", err)
		case <-r.done:
			return
		}
	}
}

func (r *Repository) handleEvent(event fsnotify.Event) {
	if !strings.HasSuffix(event.Name, ".md") {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		r.removeLocked(event.Name)
	case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
		r.removeLocked(event.Name)
		r.loadLocked(event.Name)
	}
}

// Close stops the watcher goroutine.
func (r *Repository) Close() error {
	if r.watcher == nil {
		return nil
	}
	close(r.done)
	return r.watcher.Close()
}

// List returns every currently-indexed Skill.
func (r *Repository) List() []*schema.Skill {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*schema.Skill, 0, len(r.skills))
	for _, s := range r.skills {
		out = append(out, s)
	}
	return out
}

// Get returns the Skill with the given id, if indexed.
func (r *Repository) Get(id string) (*schema.Skill, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.skills[id]
	return s, ok
}
