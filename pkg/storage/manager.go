package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// FileInfo describes one stored file
type FileInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Manager owns a directory and writes files into it atomically
type Manager struct {
	dir     string
	written map[string]bool
	mu      sync.RWMutex
}

// NewManager creates a storage manager rooted at dir, creating it if needed
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	return &Manager{
		dir:     dir,
		written: make(map[string]bool),
	}, nil
}

// Dir returns the managed directory
func (m *Manager) Dir() string {
	return m.dir
}

// Path returns the absolute location of name inside the managed directory
func (m *Manager) Path(name string) string {
	return filepath.Join(m.dir, name)
}

// WriteFile stores the contents of r under name. The data is written to a
// temporary file in the same directory, synced, and renamed over the target,
// so readers never observe a partially written file.
func (m *Manager) WriteFile(name string, r io.Reader) error {
	target := m.Path(name)

	tmp, err := os.CreateTemp(m.dir, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tempPath := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync %s: %w", name, err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close %s: %w", name, err)
	}

	if err := os.Rename(tempPath, target); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}

	m.mu.Lock()
	m.written[name] = true
	m.mu.Unlock()

	return nil
}

// WriteJSON encodes v and stores it atomically under name
func (m *Manager) WriteJSON(name string, v interface{}, pretty bool) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return m.WriteFile(name, &buf)
}

// ReadJSON decodes name into v. It reports false without error when the
// file does not exist.
func (m *Manager) ReadJSON(name string, v interface{}) (bool, error) {
	file, err := os.Open(m.Path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return true, nil
}

// Exists reports whether name is present
func (m *Manager) Exists(name string) bool {
	_, err := os.Stat(m.Path(name))
	return err == nil
}

// Stat returns file details for name
func (m *Manager) Stat(name string) (FileInfo, bool) {
	info, err := os.Stat(m.Path(name))
	if err != nil {
		return FileInfo{}, false
	}
	return FileInfo{Name: name, Size: info.Size(), ModTime: info.ModTime()}, true
}

// Remove deletes name. A missing file is not an error.
func (m *Manager) Remove(name string) error {
	if err := os.Remove(m.Path(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}

	m.mu.Lock()
	delete(m.written, name)
	m.mu.Unlock()

	return nil
}

// List returns the regular files in the directory whose names end with ext,
// sorted by name. Temporary files are skipped.
func (m *Manager) List(ext string) ([]FileInfo, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var files []FileInfo
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasSuffix(name, ".tmp") || !strings.HasSuffix(name, ext) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{Name: name, Size: info.Size(), ModTime: info.ModTime()})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// WrittenCount returns how many distinct files this manager has written
func (m *Manager) WrittenCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.written)
}
