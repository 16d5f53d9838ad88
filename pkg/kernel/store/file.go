package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	kctx "github.com/skillrun/skillrun/pkg/kernel/context"
)

// FileStore layers MemoryStore's CAS semantics over one JSON file per
// execution id, so a snapshot survives a process restart. Selected via
// Config.StorePath when non-empty.
type FileStore struct {
	mem *MemoryStore
	dir string
}

// NewFileStore ensures dir exists and rehydrates any snapshots already on
// disk into the in-memory layer.
func NewFileStore(dir string, ttl time.Duration) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	fs := &FileStore{mem: NewMemoryStore(ttl), dir: dir}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read store dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		var snap kctx.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			continue
		}
		fs.mem.Save(snap)
	}
	return fs, nil
}

func (fs *FileStore) TTL() time.Duration { return fs.mem.TTL() }

func (fs *FileStore) path(id string) string {
	return filepath.Join(fs.dir, id+".json")
}

func (fs *FileStore) writeLocked(snap kctx.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return os.WriteFile(fs.path(snap.ExecutionID), data, 0o644)
}

func (fs *FileStore) Save(snap kctx.Snapshot) {
	fs.mem.Save(snap)
	_ = fs.writeLocked(snap)
}

func (fs *FileStore) FindByID(id string) (kctx.Snapshot, bool) {
	return fs.mem.FindByID(id)
}

func (fs *FileStore) UpdateStatus(id string, from, to kctx.SnapshotStatus) bool {
	if !fs.mem.UpdateStatus(id, from, to) {
		return false
	}
	if snap, ok := fs.mem.FindByID(id); ok {
		_ = fs.writeLocked(snap)
	}
	return true
}

func (fs *FileStore) Delete(id string) {
	fs.mem.Delete(id)
	_ = os.Remove(fs.path(id))
}

func (fs *FileStore) SweepExpired(now time.Time) int {
	n := fs.mem.SweepExpired(now)
	if n == 0 {
		return 0
	}
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return n
	}
	for _, e := range entries {
		id := trimJSONExt(e.Name())
		if snap, ok := fs.mem.FindByID(id); ok && snap.Status == kctx.SnapshotExpired {
			_ = fs.writeLocked(snap)
		}
	}
	return n
}

func trimJSONExt(name string) string {
	if len(name) > 5 && name[len(name)-5:] == ".json" {
		return name[:len(name)-5]
	}
	return name
}
