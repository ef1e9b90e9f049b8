package runtime

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// ScanDirectory returns the files under dir with the given extension, sorted.
func ScanDirectory(dir, ext string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ext {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// SourceID is the id under which a file is compiled: its slash-separated path.
func SourceID(path string) string { return filepath.ToSlash(filepath.Clean(path)) }

// SyncResult counts the changes staged by Sync.
type SyncResult struct {
	Created  int
	Modified int
	Deleted  int
}

func (s SyncResult) Changed() bool { return s.Created+s.Modified+s.Deleted > 0 }

// Sync stages the changes that make the sources under the given
// directories match the files with extension ext. Sources whose ids lie
// outside the directories are left alone.
func (r *Runtime) Sync(dirs []string, ext string) (SyncResult, error) {
	var result SyncResult
	onDisk := make(map[string]bool)
	for _, dir := range dirs {
		files, err := ScanDirectory(dir, ext)
		if err != nil {
			return result, fmt.Errorf("scan %s: %w", dir, err)
		}
		for _, path := range files {
			id := SourceID(path)
			onDisk[id] = true
			changed, err := r.SyncFile(path)
			if err != nil {
				return result, err
			}
			switch changed {
			case ChangeCreate:
				result.Created++
			case ChangeModify:
				result.Modified++
			}
		}
	}
	for _, id := range r.Sources() {
		if onDisk[id] || !within(id, dirs) {
			continue
		}
		if err := r.DeleteSource(id); err != nil {
			return result, err
		}
		result.Deleted++
	}
	return result, nil
}

// SyncFile stages a file as a created or modified source when its content
// differs from the staged content, and returns the change staged, if any.
func (r *Runtime) SyncFile(path string) (ChangeKind, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return ChangeNone, fmt.Errorf("read source: %w", err)
	}
	id := SourceID(path)
	src, ok := r.Source(id)
	switch {
	case !ok:
		return ChangeCreate, r.CreateSource(id, content)
	case !bytes.Equal(src.Content, content):
		return ChangeModify, r.ModifySource(id, content)
	default:
		return ChangeNone, nil
	}
}

func within(id string, dirs []string) bool {
	for _, dir := range dirs {
		prefix := SourceID(dir)
		if prefix == "." || len(id) > len(prefix) && id[:len(prefix)] == prefix && id[len(prefix)] == '/' {
			return true
		}
	}
	return false
}
