package db

import (
	"context"
	"encoding/json"
	"strings"

	"classportal/models"
	"classportal/utils"

	"github.com/tidwall/gjson"
)

// GetSettings returns the site settings.
func (db *Database) GetSettings() (models.Settings, error) {
	unlock := db.lock(CollSettings)
	defer unlock()
	return db.loadSettings()
}

// GetSetting reads a single value with a gjson path, e.g. "site_title" or "links.0.url".
func (db *Database) GetSetting(path string) (any, error) {
	path = strings.Trim(path, "/ ")
	if path == "" {
		return nil, utils.BadRequestf("A settings path is required.")
	}
	settings, err := db.GetSettings()
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return nil, utils.IOFailure(err, "encoding settings")
	}
	res := gjson.GetBytes(raw, path)
	if !res.Exists() {
		return nil, utils.NotFoundf("Setting '%s' not found.", path)
	}
	return res.Value(), nil
}

// UpdateSettings merges patch into the stored settings. A null value removes the key.
func (db *Database) UpdateSettings(ctx context.Context, patch models.Settings) (models.Settings, error) {
	if len(patch) == 0 {
		return nil, utils.BadRequestf("No settings supplied.")
	}

	unlock := db.lock(CollSettings)
	defer unlock()

	settings, err := db.loadSettings()
	if err != nil {
		return nil, err
	}
	for k, v := range patch {
		if v == nil {
			delete(settings, k)
			continue
		}
		settings[k] = v
	}
	if err := db.save(ctx, CollSettings, settings); err != nil {
		return nil, err
	}
	return settings, nil
}
