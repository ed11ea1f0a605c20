package db

import (
	"context"
	"strings"

	"classportal/models"
	"classportal/utils"
)

// DefaultChapterIcon is used when a chapter is created without an icon.
const DefaultChapterIcon = "book"

// ChapterUpdate carries the editable fields of a chapter. The id never changes.
type ChapterUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
}

// ListChapters returns the catalog in stored order.
func (db *Database) ListChapters() ([]models.Chapter, error) {
	unlock := db.lock(CollChapters)
	defer unlock()
	return db.loadChapters()
}

// CreateChapter appends a chapter whose id is the slug of its name.
func (db *Database) CreateChapter(ctx context.Context, ch models.Chapter) (models.Chapter, error) {
	ch.Name = strings.TrimSpace(ch.Name)
	if ch.Name == "" {
		return models.Chapter{}, utils.BadRequestf("Field 'name' is required.")
	}
	ch.ID = utils.Slugify(ch.Name)
	if ch.ID == "" {
		return models.Chapter{}, utils.BadRequestf("Chapter name '%s' has no usable characters.", ch.Name)
	}
	if ch.Icon == "" {
		ch.Icon = DefaultChapterIcon
	}

	unlock := db.lock(CollChapters)
	defer unlock()

	chapters, err := db.loadChapters()
	if err != nil {
		return models.Chapter{}, err
	}
	for _, existing := range chapters {
		if existing.ID == ch.ID {
			return models.Chapter{}, utils.Conflictf("Chapter '%s' already exists.", ch.ID)
		}
	}
	chapters = append(chapters, ch)
	if err := db.save(ctx, CollChapters, chapters); err != nil {
		return models.Chapter{}, err
	}
	return ch, nil
}

// UpdateChapter merges the supplied fields.
func (db *Database) UpdateChapter(ctx context.Context, id string, upd ChapterUpdate) (models.Chapter, error) {
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return models.Chapter{}, utils.BadRequestf("Field 'name' cannot be empty.")
	}

	unlock := db.lock(CollChapters)
	defer unlock()

	chapters, err := db.loadChapters()
	if err != nil {
		return models.Chapter{}, err
	}
	for i := range chapters {
		if chapters[i].ID != id {
			continue
		}
		if upd.Name != nil {
			chapters[i].Name = strings.TrimSpace(*upd.Name)
		}
		if upd.Description != nil {
			chapters[i].Description = *upd.Description
		}
		if upd.Icon != nil {
			chapters[i].Icon = *upd.Icon
		}
		if err := db.save(ctx, CollChapters, chapters); err != nil {
			return models.Chapter{}, err
		}
		return chapters[i], nil
	}
	return models.Chapter{}, utils.NotFoundf("Chapter '%s' not found.", id)
}

// DeleteChapter removes a chapter from the catalog. Documents and progressions that
// reference it are left alone.
func (db *Database) DeleteChapter(ctx context.Context, id string) error {
	unlock := db.lock(CollChapters)
	defer unlock()

	chapters, err := db.loadChapters()
	if err != nil {
		return err
	}
	for i := range chapters {
		if chapters[i].ID == id {
			chapters = append(chapters[:i], chapters[i+1:]...)
			return db.save(ctx, CollChapters, chapters)
		}
	}
	return utils.NotFoundf("Chapter '%s' not found.", id)
}
