package db

import (
	"context"
	"sort"
	"strings"

	"classportal/models"
	"classportal/utils"

	log "github.com/sirupsen/logrus"
)

// DocumentFilter narrows ListDocuments. Empty fields match everything.
type DocumentFilter struct {
	Class    string
	Category string
	Type     string
	Query    *Filter
}

// DocumentUpdate carries the editable fields of a document.
type DocumentUpdate struct {
	Title    *string `json:"title"`
	Category *string `json:"category"`
	Type     *string `json:"type"`
}

// ListDocuments returns the matching documents, newest first.
func (db *Database) ListDocuments(f DocumentFilter) ([]models.Document, error) {
	unlock := db.lock(CollDocuments)
	defer unlock()

	docs, err := db.loadDocuments()
	if err != nil {
		return nil, err
	}

	class := strings.ToLower(f.Class)
	matched := make([]models.Document, 0, len(docs))
	for _, d := range docs {
		if class != "" && d.Class != class {
			continue
		}
		if f.Category != "" && d.Category != f.Category {
			continue
		}
		if f.Type != "" && d.Type != f.Type {
			continue
		}
		matched = append(matched, d)
	}
	matched = applyFilter(matched, f.Query, func(d models.Document) string { return d.ID })

	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	return matched, nil
}

// GroupByCategory buckets documents by category, keeping their order.
func GroupByCategory(docs []models.Document) map[string][]models.Document {
	groups := make(map[string][]models.Document)
	for _, d := range docs {
		groups[d.Category] = append(groups[d.Category], d)
	}
	return groups
}

// GetDocument returns one document.
func (db *Database) GetDocument(id string) (models.Document, error) {
	unlock := db.lock(CollDocuments)
	defer unlock()

	docs, err := db.loadDocuments()
	if err != nil {
		return models.Document{}, err
	}
	for _, d := range docs {
		if d.ID == id {
			return d, nil
		}
	}
	return models.Document{}, utils.NotFoundf("Document '%s' not found.", id)
}

// CreateDocument stores the metadata of an uploaded document and, when the class has a
// progression, promotes the matching chapter if it was still upcoming.
func (db *Database) CreateDocument(ctx context.Context, doc models.Document) (models.Document, error) {
	doc.Class = strings.ToLower(strings.TrimSpace(doc.Class))
	doc.Title = strings.TrimSpace(doc.Title)
	switch {
	case doc.Class == "":
		return models.Document{}, utils.BadRequestf("A class is required (X-Class-Id header or 'class' parameter).")
	case doc.Title == "" || doc.Category == "" || doc.Type == "":
		return models.Document{}, utils.BadRequestf("Fields 'title', 'category' and 'type' are required.")
	case doc.FilePath == "":
		return models.Document{}, utils.BadRequestf("A file is required.")
	}

	unlock := db.lock(CollDocuments, CollProgressions)
	defer unlock()

	docs, err := db.loadDocuments()
	if err != nil {
		return models.Document{}, err
	}
	if doc.ID == "" {
		doc.ID = utils.GenerateDashlessUUID()
	}
	doc.CreatedAt = db.now()
	doc.UpdatedAt = nil
	docs = append(docs, doc)
	if err := db.save(ctx, CollDocuments, docs); err != nil {
		return models.Document{}, err
	}
	log.WithFields(log.Fields{"id": doc.ID, "class": doc.Class, "category": doc.Category}).Info("Created document")

	progressions, err := db.loadProgressions()
	if err != nil {
		return doc, nil
	}
	if p, ok := progressions[doc.Class]; ok && promoteFromDocuments(&p, docs, doc.Category) {
		p.UpdatedAt = db.now()
		progressions[doc.Class] = p
		if err := db.save(ctx, CollProgressions, progressions); err != nil {
			// The document is stored; a later sync repairs the progression.
			log.WithField("class", doc.Class).Warnf("Failed to promote chapter '%s': %v", doc.Category, err)
		}
	}
	return doc, nil
}

// UpdateDocument edits title, category or type. File fields never change.
func (db *Database) UpdateDocument(ctx context.Context, id string, upd DocumentUpdate) (models.Document, error) {
	if upd.Title == nil && upd.Category == nil && upd.Type == nil {
		return models.Document{}, utils.BadRequestf("Nothing to update: supply 'title', 'category' or 'type'.")
	}

	unlock := db.lock(CollDocuments)
	defer unlock()

	docs, err := db.loadDocuments()
	if err != nil {
		return models.Document{}, err
	}
	for i := range docs {
		if docs[i].ID != id {
			continue
		}
		if upd.Title != nil {
			docs[i].Title = *upd.Title
		}
		if upd.Category != nil {
			docs[i].Category = *upd.Category
		}
		if upd.Type != nil {
			docs[i].Type = *upd.Type
		}
		now := db.now()
		docs[i].UpdatedAt = &now
		if err := db.save(ctx, CollDocuments, docs); err != nil {
			return models.Document{}, err
		}
		return docs[i], nil
	}
	return models.Document{}, utils.NotFoundf("Document '%s' not found.", id)
}

// DeleteDocument removes a document and its file. A file that cannot be removed is only logged.
func (db *Database) DeleteDocument(ctx context.Context, id string) error {
	unlock := db.lock(CollDocuments)
	defer unlock()

	docs, err := db.loadDocuments()
	if err != nil {
		return err
	}
	for i, d := range docs {
		if d.ID != id {
			continue
		}
		docs = append(docs[:i], docs[i+1:]...)
		if err := db.save(ctx, CollDocuments, docs); err != nil {
			return err
		}
		db.removeFile(d.FilePath)
		log.WithField("id", id).Info("Deleted document")
		return nil
	}
	return utils.NotFoundf("Document '%s' not found.", id)
}
