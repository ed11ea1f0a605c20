package db

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// FileStore keeps each collection in <dir>/<name>.json.
type FileStore struct {
	dir    string
	backup bool
}

// NewFileStore creates a FileStore rooted at dir. The directory is created lazily on first Save.
func NewFileStore(dir string, backup bool) *FileStore {
	return &FileStore{dir: dir, backup: backup}
}

// Path returns the file backing the named collection.
func (s *FileStore) Path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

func (s *FileStore) Load(name string, v any) error {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrCollectionNotFound
		}
		return fmt.Errorf("read %s: %w", s.Path(name), err)
	}
	// Validate first so a syntax error never leaves v half-decoded.
	if !json.Valid(data) {
		return fmt.Errorf("parse %s: invalid JSON", s.Path(name))
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", s.Path(name), err)
	}
	return nil
}

// Save writes the collection to a temporary file and renames it over the previous
// version, keeping a .bak copy when backups are enabled.
func (s *FileStore) Save(name string, v any) error {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create data dir %s: %w", s.dir, err)
	}

	target := s.Path(name)
	tempFilePath := target + ".tmp"
	backupFilePath := target + ".bak"

	if err := os.WriteFile(tempFilePath, jsonData, 0644); err != nil {
		return fmt.Errorf("write %s: %w", tempFilePath, err)
	}

	if s.backup {
		if _, err := os.Stat(target); err == nil {
			if err := copyFile(target, backupFilePath); err != nil {
				log.WithField("collection", name).Warnf("Failed to back up '%s': %v. Proceeding with save.", target, err)
			}
		} else if !os.IsNotExist(err) {
			log.WithField("collection", name).Warnf("Error checking '%s' before backup: %v", target, err)
		}
	}

	if err := os.Rename(tempFilePath, target); err != nil {
		_ = os.Remove(tempFilePath)
		return fmt.Errorf("rename %s: %w", tempFilePath, err)
	}

	log.WithField("collection", name).Debugf("Saved %d bytes to %s", len(jsonData), target)
	return nil
}

func (s *FileStore) Close() error { return nil }

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}
