package db

import (
	"context"
	"sort"
	"strings"

	"classportal/models"
	"classportal/utils"

	log "github.com/sirupsen/logrus"
)

// Week bounds of the school year.
const (
	MinWeek = 1
	MaxWeek = 28
)

// KolleUpdate carries the editable fields of a kolle.
type KolleUpdate struct {
	WeekNumber *int    `json:"week_number"`
	WeekDates  *string `json:"week_dates"`
}

func validWeek(w int) bool { return w >= MinWeek && w <= MaxWeek }

// ListKolles returns the kolles of a class (every class when empty) by week ascending.
func (db *Database) ListKolles(class string, q *Filter) ([]models.Kolle, error) {
	unlock := db.lock(CollKolles)
	defer unlock()

	kolles, err := db.loadKolles()
	if err != nil {
		return nil, err
	}
	class = strings.ToLower(class)
	matched := make([]models.Kolle, 0, len(kolles))
	for _, k := range kolles {
		if class == "" || k.Class == class {
			matched = append(matched, k)
		}
	}
	matched = applyFilter(matched, q, func(k models.Kolle) string { return k.ID })
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].WeekNumber != matched[j].WeekNumber {
			return matched[i].WeekNumber < matched[j].WeekNumber
		}
		return matched[i].Class < matched[j].Class
	})
	return matched, nil
}

// CreateKolle stores a kolle. An existing kolle for the same class and week is replaced,
// its file removed.
func (db *Database) CreateKolle(ctx context.Context, k models.Kolle) (models.Kolle, error) {
	k.Class = strings.ToLower(strings.TrimSpace(k.Class))
	k.WeekDates = strings.TrimSpace(k.WeekDates)
	switch {
	case k.Class == "":
		return models.Kolle{}, utils.BadRequestf("A class is required (X-Class-Id header or 'class' parameter).")
	case !validWeek(k.WeekNumber):
		return models.Kolle{}, utils.BadRequestf("Week number must be between %d and %d.", MinWeek, MaxWeek)
	case k.WeekDates == "":
		return models.Kolle{}, utils.BadRequestf("Field 'week_dates' is required.")
	case k.FilePath == "":
		return models.Kolle{}, utils.BadRequestf("A file is required.")
	}

	unlock := db.lock(CollKolles)
	defer unlock()

	kolles, err := db.loadKolles()
	if err != nil {
		return models.Kolle{}, err
	}

	var evicted []string
	kept := kolles[:0]
	for _, old := range kolles {
		if old.Class == k.Class && old.WeekNumber == k.WeekNumber {
			evicted = append(evicted, old.FilePath)
			continue
		}
		kept = append(kept, old)
	}

	if k.ID == "" {
		k.ID = utils.GenerateDashlessUUID()
	}
	k.CreatedAt = db.now()
	k.UpdatedAt = nil
	kept = append(kept, k)
	if err := db.save(ctx, CollKolles, kept); err != nil {
		return models.Kolle{}, err
	}
	for _, f := range evicted {
		if f != k.FilePath {
			db.removeFile(f)
		}
	}
	log.WithFields(log.Fields{"class": k.Class, "week": k.WeekNumber, "replaced": len(evicted)}).Info("Stored kolle")
	return k, nil
}

// UpdateKolle edits the week or its dates. Moving to a week already used in the class is a conflict.
func (db *Database) UpdateKolle(ctx context.Context, id string, upd KolleUpdate) (models.Kolle, error) {
	if upd.WeekNumber == nil && upd.WeekDates == nil {
		return models.Kolle{}, utils.BadRequestf("Nothing to update: supply 'week_number' or 'week_dates'.")
	}
	if upd.WeekNumber != nil && !validWeek(*upd.WeekNumber) {
		return models.Kolle{}, utils.BadRequestf("Week number must be between %d and %d.", MinWeek, MaxWeek)
	}
	if upd.WeekDates != nil && strings.TrimSpace(*upd.WeekDates) == "" {
		return models.Kolle{}, utils.BadRequestf("Field 'week_dates' cannot be empty.")
	}

	unlock := db.lock(CollKolles)
	defer unlock()

	kolles, err := db.loadKolles()
	if err != nil {
		return models.Kolle{}, err
	}
	idx := -1
	for i, k := range kolles {
		if k.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return models.Kolle{}, utils.NotFoundf("Kolle '%s' not found.", id)
	}

	k := &kolles[idx]
	if upd.WeekNumber != nil && *upd.WeekNumber != k.WeekNumber {
		for _, other := range kolles {
			if other.ID != k.ID && other.Class == k.Class && other.WeekNumber == *upd.WeekNumber {
				return models.Kolle{}, utils.Conflictf("Class '%s' already has a kolle for week %d.", k.Class, *upd.WeekNumber)
			}
		}
		k.WeekNumber = *upd.WeekNumber
	}
	if upd.WeekDates != nil {
		k.WeekDates = strings.TrimSpace(*upd.WeekDates)
	}
	now := db.now()
	k.UpdatedAt = &now

	if err := db.save(ctx, CollKolles, kolles); err != nil {
		return models.Kolle{}, err
	}
	return *k, nil
}

// DeleteKolle removes a kolle and its file.
func (db *Database) DeleteKolle(ctx context.Context, id string) error {
	unlock := db.lock(CollKolles)
	defer unlock()

	kolles, err := db.loadKolles()
	if err != nil {
		return err
	}
	for i, k := range kolles {
		if k.ID != id {
			continue
		}
		kolles = append(kolles[:i], kolles[i+1:]...)
		if err := db.save(ctx, CollKolles, kolles); err != nil {
			return err
		}
		db.removeFile(k.FilePath)
		return nil
	}
	return utils.NotFoundf("Kolle '%s' not found.", id)
}
