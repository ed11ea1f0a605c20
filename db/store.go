package db

import (
	"errors"
	"fmt"

	"classportal/config"
)

// Collection names. Each one is persisted as a single JSON document.
const (
	CollClasses        = "classes"
	CollDocuments      = "documents"
	CollKolles         = "kolles"
	CollChapters       = "chapters"
	CollProgressions   = "progressions"
	CollAnnualPrograms = "annual_programs"
	CollUsers          = "users"
	CollSettings       = "site_settings"
)

// AllCollections lists every collection the portal persists.
var AllCollections = []string{
	CollClasses, CollDocuments, CollKolles, CollChapters,
	CollProgressions, CollAnnualPrograms, CollUsers, CollSettings,
}

// ErrCollectionNotFound is returned by Store.Load when nothing has been saved under the name yet.
var ErrCollectionNotFound = errors.New("collection not found")

// Store persists whole collections. Implementations never merge: Save replaces the
// previous content of the collection entirely.
type Store interface {
	// Load decodes the collection into v. It returns ErrCollectionNotFound when the
	// collection does not exist and a decode error when its content is not valid JSON for v.
	Load(name string, v any) error
	// Save encodes v and replaces the collection with it.
	Save(name string, v any) error
	Close() error
}

// OpenStore returns the Store selected by cfg.StoreDriver.
func OpenStore(cfg *config.Config) (Store, error) {
	switch cfg.StoreDriver {
	case config.DriverFile, "":
		return NewFileStore(cfg.DataDir, cfg.EnableBackup), nil
	case config.DriverSQLite:
		return NewSQLStore(cfg.SQLitePath)
	}
	return nil, fmt.Errorf("unknown store driver '%s'", cfg.StoreDriver)
}
