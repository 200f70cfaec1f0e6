package internal

import (
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// BackupSet names and finds the rotated copies of one log file. For
// "app.log" the backups are "app_log_1.log", "app_log_2.log" and so on,
// each optionally followed by ".gz".
type BackupSet struct {
	dir    string
	active string
	prefix string
	ext    string
}

// Backup is one rotated file on disk.
type Backup struct {
	Path    string
	Index   int
	ModTime time.Time
}

func NewBackupSet(path string) BackupSet {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return BackupSet{
		dir:    filepath.Dir(path),
		active: base,
		prefix: strings.TrimSuffix(base, ext) + "_" + strings.TrimPrefix(ext, ".") + "_",
		ext:    ext,
	}
}

// Path returns the uncompressed name of backup index.
func (b BackupSet) Path(index int) string {
	return filepath.Join(b.dir, b.prefix+strconv.Itoa(index)+b.ext)
}

// index parses a directory entry name. Compressed and pending-compression
// backups share the same index space.
func (b BackupSet) index(name string) (int, bool) {
	if name == b.active || !strings.HasPrefix(name, b.prefix) {
		return 0, false
	}
	rest := strings.TrimSuffix(strings.TrimPrefix(name, b.prefix), ".gz")
	rest, ok := strings.CutSuffix(rest, b.ext)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// List returns existing backups ordered by index, oldest first.
func (b BackupSet) List() ([]Backup, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, err
	}

	var out []Backup
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n, ok := b.index(e.Name())
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Backup{
			Path:    filepath.Join(b.dir, e.Name()),
			Index:   n,
			ModTime: info.ModTime(),
		})
	}
	slices.SortFunc(out, func(x, y Backup) int { return x.Index - y.Index })
	return out, nil
}

// NextIndex is one past the highest index on disk.
func (b BackupSet) NextIndex() int {
	list, err := b.List()
	if err != nil || len(list) == 0 {
		return 1
	}
	return list[len(list)-1].Index + 1
}

// Prune removes the oldest backups until at most keep remain. A
// non-positive keep leaves everything in place.
func (b BackupSet) Prune(keep int) error {
	if keep <= 0 {
		return nil
	}
	list, err := b.List()
	if err != nil {
		return err
	}
	if len(list) <= keep {
		return nil
	}
	var firstErr error
	for _, bk := range list[:len(list)-keep] {
		if err := os.Remove(bk.Path); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// PruneOlderThan removes backups last modified before now-maxAge.
func (b BackupSet) PruneOlderThan(maxAge time.Duration, now time.Time) error {
	if maxAge <= 0 {
		return nil
	}
	list, err := b.List()
	if err != nil {
		return err
	}
	cutoff := now.Add(-maxAge)
	var firstErr error
	for _, bk := range list {
		if !bk.ModTime.Before(cutoff) {
			continue
		}
		if err := os.Remove(bk.Path); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
