package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/flock"
	"wikiglossary/pkg/logger"
	"wikiglossary/pkg/storage"
)

// Checkpoint keys. Each maps to "<key>.json" in the cache directory.
const (
	KeyPages          = "pages"
	KeyCategories     = "categories"
	KeyContent        = "content"
	KeyContentPartial = "content_partial"
)

// Keys lists every checkpoint in pipeline order
var Keys = []string{KeyPages, KeyCategories, KeyContent, KeyContentPartial}

const lockFile = ".lock"

// ErrLocked is returned when another process holds the cache directory
var ErrLocked = errors.New("cache directory is locked by another process")

// Entry describes one checkpoint on disk
type Entry struct {
	Key     string    `json:"key"`
	File    string    `json:"file"`
	Exists  bool      `json:"exists"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time,omitempty"`
}

// Store persists stage checkpoints as JSON documents in one directory
type Store struct {
	files  *storage.Manager
	logger logger.Logger
}

// NewStore opens (creating if needed) a checkpoint store at dir
func NewStore(dir string, log logger.Logger) (*Store, error) {
	files, err := storage.NewManager(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache directory: %w", err)
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Store{files: files, logger: log}, nil
}

func fileName(key string) string {
	return key + ".json"
}

// Dir returns the cache directory
func (s *Store) Dir() string {
	return s.files.Dir()
}

// Load decodes the checkpoint for key into v. It reports whether the
// checkpoint existed; a missing checkpoint is not an error.
func (s *Store) Load(key string, v interface{}) (bool, error) {
	found, err := s.files.ReadJSON(fileName(key), v)
	if err != nil {
		return false, fmt.Errorf("failed to load checkpoint %s: %w", key, err)
	}
	if found {
		s.logger.DebugWithFields("Checkpoint loaded", map[string]interface{}{
			"key": key,
		})
	}
	return found, nil
}

// Save writes the checkpoint for key atomically
func (s *Store) Save(key string, v interface{}) error {
	if err := s.files.WriteJSON(fileName(key), v, false); err != nil {
		return fmt.Errorf("failed to save checkpoint %s: %w", key, err)
	}
	s.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"key":  key,
		"path": s.files.Path(fileName(key)),
	})
	return nil
}

// Exists reports whether a checkpoint for key is present
func (s *Store) Exists(key string) bool {
	return s.files.Exists(fileName(key))
}

// Delete removes the checkpoint for key
func (s *Store) Delete(key string) error {
	if err := s.files.Remove(fileName(key)); err != nil {
		return fmt.Errorf("failed to delete checkpoint %s: %w", key, err)
	}
	s.logger.InfoWithFields("Checkpoint deleted", map[string]interface{}{"key": key})
	return nil
}

// Clear removes every known checkpoint
func (s *Store) Clear() error {
	var errs []error
	for _, key := range Keys {
		if err := s.Delete(key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Info describes every known checkpoint, present or not
func (s *Store) Info() []Entry {
	entries := make([]Entry, 0, len(Keys))
	for _, key := range Keys {
		entry := Entry{Key: key, File: s.files.Path(fileName(key))}
		if info, ok := s.files.Stat(fileName(key)); ok {
			entry.Exists = true
			entry.Size = info.Size
			entry.ModTime = info.ModTime
		}
		entries = append(entries, entry)
	}
	return entries
}

// Lock takes the advisory lock on the cache directory, polling until
// timeout. The returned function releases it.
func (s *Store) Lock(ctx context.Context, timeout time.Duration) (func(), error) {
	path := s.files.Path(lockFile)
	l := flock.New(path)
	deadline := time.Now().Add(timeout)

	for {
		locked, err := l.TryLock()
		if err != nil {
			return func() {}, fmt.Errorf("cannot acquire cache lock: %w", err)
		}
		if locked {
			s.logger.DebugWithFields("Cache lock acquired", map[string]interface{}{"path": path})
			return func() { _ = l.Unlock() }, nil
		}
		if time.Now().After(deadline) {
			return func() {}, fmt.Errorf("%w (lock: %s)", ErrLocked, path)
		}

		select {
		case <-ctx.Done():
			return func() {}, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}
