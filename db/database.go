package db

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"classportal/config"
	"classportal/utils"

	log "github.com/sirupsen/logrus"
)

// FileRemover deletes uploaded files by their path relative to the uploads root.
// Removing a file that does not exist must succeed.
type FileRemover interface {
	Remove(rel string) error
}

// Database gives typed access to the portal collections. Every read-mutate-write of
// a collection holds that collection's mutex, so concurrent requests never lose updates.
type Database struct {
	store  Store
	files  FileRemover
	config *config.Config

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	now func() time.Time
}

// NewDatabase wraps store. files receives best-effort deletions of uploaded files.
func NewDatabase(cfg *config.Config, store Store, files FileRemover) *Database {
	return &Database{
		store:  store,
		files:  files,
		config: cfg,
		locks:  make(map[string]*sync.Mutex),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Close releases the underlying store.
func (db *Database) Close() error {
	return db.store.Close()
}

// lock acquires the mutexes of the named collections in a fixed (sorted) order and
// returns the matching unlock function.
func (db *Database) lock(names ...string) func() {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	db.locksMu.Lock()
	mus := make([]*sync.Mutex, 0, len(sorted))
	for i, name := range sorted {
		if i > 0 && sorted[i-1] == name {
			continue
		}
		mu, ok := db.locks[name]
		if !ok {
			mu = &sync.Mutex{}
			db.locks[name] = mu
		}
		mus = append(mus, mu)
	}
	db.locksMu.Unlock()

	for _, mu := range mus {
		mu.Lock()
	}
	return func() {
		for i := len(mus) - 1; i >= 0; i-- {
			mus[i].Unlock()
		}
	}
}

// load decodes collection name into v. On any failure reset is called to put the
// caller's default into v. A missing seeded collection is persisted right away so later
// reads see the same seed; unreadable collections are logged and left untouched on disk.
func (db *Database) load(name string, v any, reset func()) error {
	err := db.store.Load(name, v)
	if err == nil {
		return nil
	}
	reset()
	if !errors.Is(err, ErrCollectionNotFound) {
		log.WithField("collection", name).Warnf("Collection unreadable, using default: %v", err)
		return nil
	}
	if !seededCollections[name] {
		return nil
	}
	log.WithField("collection", name).Info("Collection not found, seeding defaults")
	if err := db.store.Save(name, v); err != nil {
		return utils.IOFailure(err, "seeding %s", name)
	}
	return nil
}

// save persists v unless ctx is already done.
func (db *Database) save(ctx context.Context, name string, v any) error {
	if err := ctx.Err(); err != nil {
		return utils.IOFailure(err, "request cancelled before saving %s", name)
	}
	if err := db.store.Save(name, v); err != nil {
		return utils.IOFailure(err, "saving %s", name)
	}
	return nil
}

// removeFile deletes an uploaded file, logging instead of failing.
func (db *Database) removeFile(rel string) {
	if db.files == nil || rel == "" {
		return
	}
	if err := db.files.Remove(rel); err != nil {
		log.WithField("path", rel).Warnf("Failed to remove uploaded file: %v", err)
	}
}
