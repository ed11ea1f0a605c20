package db

import (
	"context"
	"sort"
	"strings"

	"classportal/models"
	"classportal/utils"

	log "github.com/sirupsen/logrus"
)

// ClassUpdate carries the optional fields of a class update.
type ClassUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
	Active      *bool   `json:"active"`
}

func (u ClassUpdate) empty() bool {
	return u.Name == nil && u.Description == nil && u.Color == nil && u.Active == nil
}

// ListClasses returns every class ordered by creation time, then ID.
func (db *Database) ListClasses() ([]models.Class, error) {
	unlock := db.lock(CollClasses)
	defer unlock()

	classes, err := db.loadClasses()
	if err != nil {
		return nil, err
	}
	return sortedClasses(classes), nil
}

func sortedClasses(classes map[string]models.Class) []models.Class {
	list := make([]models.Class, 0, len(classes))
	for _, c := range classes {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
	return list
}

// GetClass returns a single class.
func (db *Database) GetClass(id string) (models.Class, error) {
	unlock := db.lock(CollClasses)
	defer unlock()

	classes, err := db.loadClasses()
	if err != nil {
		return models.Class{}, err
	}
	class, ok := classes[strings.ToLower(id)]
	if !ok {
		return models.Class{}, utils.NotFoundf("Class '%s' not found.", id)
	}
	return class, nil
}

// CreateClass registers a new class. The ID is stored lower-cased.
func (db *Database) CreateClass(ctx context.Context, class models.Class) (models.Class, error) {
	class.ID = strings.ToLower(strings.TrimSpace(class.ID))
	class.Name = strings.TrimSpace(class.Name)
	if class.ID == "" || class.Name == "" {
		return models.Class{}, utils.BadRequestf("Class 'id' and 'name' are required.")
	}

	unlock := db.lock(CollClasses)
	defer unlock()

	classes, err := db.loadClasses()
	if err != nil {
		return models.Class{}, err
	}
	if _, exists := classes[class.ID]; exists {
		return models.Class{}, utils.Conflictf("Class '%s' already exists.", class.ID)
	}

	now := db.now()
	class.Active = true
	class.CreatedAt = now
	class.UpdatedAt = now
	classes[class.ID] = class

	if err := db.save(ctx, CollClasses, classes); err != nil {
		return models.Class{}, err
	}
	log.WithField("class", class.ID).Info("Created class")
	return class, nil
}

// UpdateClass merges the supplied fields into an existing class.
func (db *Database) UpdateClass(ctx context.Context, id string, upd ClassUpdate) (models.Class, error) {
	if upd.empty() {
		return models.Class{}, utils.BadRequestf("Nothing to update: supply 'name', 'description', 'color' or 'active'.")
	}

	unlock := db.lock(CollClasses)
	defer unlock()

	classes, err := db.loadClasses()
	if err != nil {
		return models.Class{}, err
	}
	id = strings.ToLower(id)
	class, ok := classes[id]
	if !ok {
		return models.Class{}, utils.NotFoundf("Class '%s' not found.", id)
	}

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return models.Class{}, utils.BadRequestf("Class 'name' cannot be empty.")
		}
		class.Name = name
	}
	if upd.Description != nil {
		class.Description = *upd.Description
	}
	if upd.Color != nil {
		class.Color = *upd.Color
	}
	if upd.Active != nil {
		class.Active = *upd.Active
	}
	class.UpdatedAt = db.now()
	classes[id] = class

	if err := db.save(ctx, CollClasses, classes); err != nil {
		return models.Class{}, err
	}
	return class, nil
}

// DeleteClass removes a class with its documents, kolles, progression and their files.
// Child collections are written first and the class map last.
func (db *Database) DeleteClass(ctx context.Context, id string) (models.ClassDeletion, error) {
	unlock := db.lock(CollClasses, CollDocuments, CollKolles, CollProgressions)
	defer unlock()

	id = strings.ToLower(id)
	classes, err := db.loadClasses()
	if err != nil {
		return models.ClassDeletion{}, err
	}
	if _, ok := classes[id]; !ok {
		return models.ClassDeletion{}, utils.NotFoundf("Class '%s' not found.", id)
	}
	docs, err := db.loadDocuments()
	if err != nil {
		return models.ClassDeletion{}, err
	}
	kolles, err := db.loadKolles()
	if err != nil {
		return models.ClassDeletion{}, err
	}
	progressions, err := db.loadProgressions()
	if err != nil {
		return models.ClassDeletion{}, err
	}

	var removedFiles []string
	keptDocs := make([]models.Document, 0, len(docs))
	for _, d := range docs {
		if d.Class == id {
			removedFiles = append(removedFiles, d.FilePath)
			continue
		}
		keptDocs = append(keptDocs, d)
	}
	keptKolles := make([]models.Kolle, 0, len(kolles))
	for _, k := range kolles {
		if k.Class == id {
			removedFiles = append(removedFiles, k.FilePath)
			continue
		}
		keptKolles = append(keptKolles, k)
	}
	result := models.ClassDeletion{
		DocumentsDeleted: len(docs) - len(keptDocs),
		KollesDeleted:    len(kolles) - len(keptKolles),
	}
	_, hadProgression := progressions[id]
	delete(progressions, id)
	delete(classes, id)

	plan := newCascadePlan("delete class " + id)
	plan.add("write documents", func() error { return db.save(ctx, CollDocuments, keptDocs) })
	plan.add("write kolles", func() error { return db.save(ctx, CollKolles, keptKolles) })
	if hadProgression {
		plan.add("write progressions", func() error { return db.save(ctx, CollProgressions, progressions) })
	}
	plan.add("remove files", func() error {
		for _, f := range removedFiles {
			db.removeFile(f)
		}
		return nil
	})
	plan.add("write classes", func() error { return db.save(ctx, CollClasses, classes) })

	if err := plan.execute(); err != nil {
		return models.ClassDeletion{}, err
	}
	log.WithFields(log.Fields{
		"class":     id,
		"documents": result.DocumentsDeleted,
		"kolles":    result.KollesDeleted,
	}).Info("Deleted class")
	return result, nil
}

// ClassStats counts the documents of a class by category and type, and its kolles.
func (db *Database) ClassStats(id string) (models.ClassStats, error) {
	unlock := db.lock(CollClasses, CollDocuments, CollKolles)
	defer unlock()

	var stats models.ClassStats
	id = strings.ToLower(id)
	classes, err := db.loadClasses()
	if err != nil {
		return stats, err
	}
	class, ok := classes[id]
	if !ok {
		return stats, utils.NotFoundf("Class '%s' not found.", id)
	}
	docs, err := db.loadDocuments()
	if err != nil {
		return stats, err
	}
	kolles, err := db.loadKolles()
	if err != nil {
		return stats, err
	}

	stats.Class = class
	stats.Documents.ByCategory = map[string]int{}
	stats.Documents.ByType = map[string]int{}
	for _, d := range docs {
		if d.Class != id {
			continue
		}
		stats.Documents.Total++
		stats.Documents.ByCategory[d.Category]++
		stats.Documents.ByType[d.Type]++
	}
	for _, k := range kolles {
		if k.Class == id {
			stats.Kolles.Total++
		}
	}
	return stats, nil
}
