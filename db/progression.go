package db

import (
	"context"
	"sort"
	"strings"
	"time"

	"classportal/models"
	"classportal/utils"

	mapset "github.com/deckarep/golang-set/v2"
	log "github.com/sirupsen/logrus"
)

// newProgression derives a progression from the catalog: catalog order, everything upcoming.
func newProgression(classID string, catalog []models.Chapter, now time.Time) models.Progression {
	p := models.Progression{
		ClassID:   classID,
		Chapters:  make([]models.ChapterProgress, 0, len(catalog)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i, ch := range catalog {
		p.Chapters = append(p.Chapters, models.ChapterProgress{
			ID:          ch.ID,
			Name:        ch.Name,
			Description: ch.Description,
			Status:      models.StatusUpcoming,
			Order:       i + 1,
		})
	}
	return p
}

// syncWithCatalog appends catalog chapters missing from p with the next order values.
// Entries whose chapter left the catalog are kept. It reports whether p changed.
func syncWithCatalog(p *models.Progression, catalog []models.Chapter) bool {
	present := mapset.NewThreadUnsafeSet[string]()
	maxOrder := 0
	for _, ch := range p.Chapters {
		present.Add(ch.ID)
		if ch.Order > maxOrder {
			maxOrder = ch.Order
		}
	}
	changed := false
	for _, ch := range catalog {
		if present.Contains(ch.ID) {
			continue
		}
		maxOrder++
		p.Chapters = append(p.Chapters, models.ChapterProgress{
			ID:          ch.ID,
			Name:        ch.Name,
			Description: ch.Description,
			Status:      models.StatusUpcoming,
			Order:       maxOrder,
		})
		present.Add(ch.ID)
		changed = true
	}
	return changed
}

// promoteFromDocuments moves upcoming chapters to in-progress when the class has at least
// one document in the chapter's category. An empty category checks every chapter. It never
// demotes and never marks a chapter done.
func promoteFromDocuments(p *models.Progression, docs []models.Document, category string) bool {
	withDocs := mapset.NewThreadUnsafeSet[string]()
	for _, d := range docs {
		if d.Class == p.ClassID {
			withDocs.Add(d.Category)
		}
	}
	changed := false
	for i := range p.Chapters {
		ch := &p.Chapters[i]
		if category != "" && ch.ID != category {
			continue
		}
		if ch.Status == models.StatusUpcoming && withDocs.Contains(ch.ID) {
			ch.Status = models.StatusInProgress
			changed = true
		}
	}
	return changed
}

func sortByOrder(chapters []models.ChapterProgress) {
	sort.SliceStable(chapters, func(i, j int) bool { return chapters[i].Order < chapters[j].Order })
}

// getOrCreate returns the progression of classID, creating and persisting the default one.
// An existing progression is first synced with the catalog and saved if that appended chapters.
// Callers hold the chapters and progressions locks.
func (db *Database) getOrCreate(ctx context.Context, classID string, progressions map[string]models.Progression) (models.Progression, error) {
	catalog, err := db.loadChapters()
	if err != nil {
		return models.Progression{}, err
	}
	if p, ok := progressions[classID]; ok {
		if !syncWithCatalog(&p, catalog) {
			return p, nil
		}
		p.UpdatedAt = db.now()
		progressions[classID] = p
		if err := db.save(ctx, CollProgressions, progressions); err != nil {
			return models.Progression{}, err
		}
		log.WithField("class", classID).Info("Appended new catalog chapters to progression")
		return p, nil
	}
	p := newProgression(classID, catalog, db.now())
	progressions[classID] = p
	if err := db.save(ctx, CollProgressions, progressions); err != nil {
		return models.Progression{}, err
	}
	log.WithField("class", classID).Info("Created default progression")
	return p, nil
}

func normalizeClassID(classID string) (string, error) {
	classID = strings.ToLower(strings.TrimSpace(classID))
	if classID == "" {
		return "", utils.BadRequestf("A class id is required.")
	}
	return classID, nil
}

// GetProgression returns the progression of a class, creating the default one on first access.
func (db *Database) GetProgression(ctx context.Context, classID string) (models.Progression, error) {
	classID, err := normalizeClassID(classID)
	if err != nil {
		return models.Progression{}, err
	}
	unlock := db.lock(CollChapters, CollProgressions)
	defer unlock()

	progressions, err := db.loadProgressions()
	if err != nil {
		return models.Progression{}, err
	}
	p, err := db.getOrCreate(ctx, classID, progressions)
	if err != nil {
		return models.Progression{}, err
	}
	sortByOrder(p.Chapters)
	return p, nil
}

// ReplaceProgression overwrites the chapter list of a class. A nil slice is rejected;
// an empty one clears the list. Ids must be unique; orders are renumbered 1..N following
// the supplied order values, ties keeping their list position.
func (db *Database) ReplaceProgression(ctx context.Context, classID string, chapters []models.ChapterProgress) (models.Progression, error) {
	classID, err := normalizeClassID(classID)
	if err != nil {
		return models.Progression{}, err
	}
	if chapters == nil {
		return models.Progression{}, utils.BadRequestf("Field 'chapters' is required.")
	}
	seen := mapset.NewThreadUnsafeSet[string]()
	for i, ch := range chapters {
		if strings.TrimSpace(ch.ID) == "" {
			return models.Progression{}, utils.BadRequestf("Chapter %d has no id.", i)
		}
		if !models.ValidStatus(ch.Status) {
			return models.Progression{}, utils.BadRequestf("Chapter '%s' has invalid status '%s'.", ch.ID, ch.Status)
		}
		if !seen.Add(ch.ID) {
			return models.Progression{}, utils.BadRequestf("Chapter '%s' appears more than once.", ch.ID)
		}
	}
	chapters = append([]models.ChapterProgress(nil), chapters...)
	sortByOrder(chapters)
	for i := range chapters {
		chapters[i].Order = i + 1
	}

	unlock := db.lock(CollProgressions)
	defer unlock()

	progressions, err := db.loadProgressions()
	if err != nil {
		return models.Progression{}, err
	}
	now := db.now()
	p, ok := progressions[classID]
	if !ok {
		p = models.Progression{ClassID: classID, CreatedAt: now}
	}
	p.Chapters = chapters
	p.UpdatedAt = now
	progressions[classID] = p

	if err := db.save(ctx, CollProgressions, progressions); err != nil {
		return models.Progression{}, err
	}
	return p, nil
}

// SetChapterStatus changes the status of one chapter. Missing catalog chapters are appended
// first, so a chapter added after the progression was created can be targeted.
func (db *Database) SetChapterStatus(ctx context.Context, classID, chapterID, status string) (models.Progression, error) {
	classID, err := normalizeClassID(classID)
	if err != nil {
		return models.Progression{}, err
	}
	if !models.ValidStatus(status) {
		return models.Progression{}, utils.BadRequestf("Invalid status '%s': expected '%s', '%s' or '%s'.",
			status, models.StatusUpcoming, models.StatusInProgress, models.StatusDone)
	}

	unlock := db.lock(CollChapters, CollProgressions)
	defer unlock()

	progressions, err := db.loadProgressions()
	if err != nil {
		return models.Progression{}, err
	}
	p, err := db.getOrCreate(ctx, classID, progressions)
	if err != nil {
		return models.Progression{}, err
	}

	idx := chapterIndex(p.Chapters, chapterID)
	if idx < 0 {
		return models.Progression{}, utils.NotFoundf("Chapter '%s' not found in the progression of '%s'.", chapterID, classID)
	}

	p.Chapters[idx].Status = status
	p.UpdatedAt = db.now()
	progressions[classID] = p
	if err := db.save(ctx, CollProgressions, progressions); err != nil {
		return models.Progression{}, err
	}
	log.WithFields(log.Fields{"class": classID, "chapter": chapterID, "status": status}).Info("Updated chapter status")
	sortByOrder(p.Chapters)
	return p, nil
}

func chapterIndex(chapters []models.ChapterProgress, id string) int {
	for i, ch := range chapters {
		if ch.ID == id {
			return i
		}
	}
	return -1
}

// ReorderProgression renumbers the chapters 1..N in the given order. ids must name every
// chapter of the progression exactly once.
func (db *Database) ReorderProgression(ctx context.Context, classID string, ids []string) (models.Progression, error) {
	classID, err := normalizeClassID(classID)
	if err != nil {
		return models.Progression{}, err
	}
	if ids == nil {
		return models.Progression{}, utils.BadRequestf("Field 'chapterIds' must be a list of chapter ids.")
	}

	unlock := db.lock(CollChapters, CollProgressions)
	defer unlock()

	progressions, err := db.loadProgressions()
	if err != nil {
		return models.Progression{}, err
	}
	p, err := db.getOrCreate(ctx, classID, progressions)
	if err != nil {
		return models.Progression{}, err
	}

	requested := mapset.NewThreadUnsafeSet[string]()
	for _, id := range ids {
		if !requested.Add(id) {
			return models.Progression{}, utils.BadRequestf("Chapter '%s' appears more than once.", id)
		}
	}
	current := mapset.NewThreadUnsafeSet[string]()
	for _, ch := range p.Chapters {
		current.Add(ch.ID)
	}
	if unknown := requested.Difference(current); unknown.Cardinality() > 0 {
		return models.Progression{}, utils.BadRequestf("Unknown chapters: %s.", strings.Join(sortedSlice(unknown), ", "))
	}
	if missing := current.Difference(requested); missing.Cardinality() > 0 {
		return models.Progression{}, utils.BadRequestf("Missing chapters: %s.", strings.Join(sortedSlice(missing), ", "))
	}
	// Same sets but different lengths means the stored list repeats an id.
	if len(ids) != len(p.Chapters) {
		return models.Progression{}, utils.BadRequestf("Expected %d chapter ids, got %d.", len(p.Chapters), len(ids))
	}

	position := make(map[string]int, len(ids))
	for i, id := range ids {
		position[id] = i + 1
	}
	for i := range p.Chapters {
		p.Chapters[i].Order = position[p.Chapters[i].ID]
	}
	sortByOrder(p.Chapters)
	p.UpdatedAt = db.now()
	progressions[classID] = p

	if err := db.save(ctx, CollProgressions, progressions); err != nil {
		return models.Progression{}, err
	}
	return p, nil
}

func sortedSlice(s mapset.Set[string]) []string {
	out := s.ToSlice()
	sort.Strings(out)
	return out
}

// ResetProgression rebuilds the progression of a class from the current catalog.
func (db *Database) ResetProgression(ctx context.Context, classID string) (models.Progression, error) {
	classID, err := normalizeClassID(classID)
	if err != nil {
		return models.Progression{}, err
	}
	unlock := db.lock(CollChapters, CollProgressions)
	defer unlock()

	progressions, err := db.loadProgressions()
	if err != nil {
		return models.Progression{}, err
	}
	catalog, err := db.loadChapters()
	if err != nil {
		return models.Progression{}, err
	}
	p := newProgression(classID, catalog, db.now())
	if old, ok := progressions[classID]; ok {
		p.CreatedAt = old.CreatedAt
	}
	progressions[classID] = p
	if err := db.save(ctx, CollProgressions, progressions); err != nil {
		return models.Progression{}, err
	}
	log.WithField("class", classID).Info("Reset progression")
	return p, nil
}

// DeleteProgression removes the progression of a class.
func (db *Database) DeleteProgression(ctx context.Context, classID string) error {
	classID, err := normalizeClassID(classID)
	if err != nil {
		return err
	}
	unlock := db.lock(CollProgressions)
	defer unlock()

	progressions, err := db.loadProgressions()
	if err != nil {
		return err
	}
	if _, ok := progressions[classID]; !ok {
		return utils.NotFoundf("No progression for class '%s'.", classID)
	}
	delete(progressions, classID)
	return db.save(ctx, CollProgressions, progressions)
}

// SyncProgression appends missing catalog chapters and applies the document rule to every chapter.
func (db *Database) SyncProgression(ctx context.Context, classID string) (models.Progression, error) {
	classID, err := normalizeClassID(classID)
	if err != nil {
		return models.Progression{}, err
	}
	unlock := db.lock(CollChapters, CollDocuments, CollProgressions)
	defer unlock()

	progressions, err := db.loadProgressions()
	if err != nil {
		return models.Progression{}, err
	}
	p, err := db.getOrCreate(ctx, classID, progressions)
	if err != nil {
		return models.Progression{}, err
	}
	catalog, err := db.loadChapters()
	if err != nil {
		return models.Progression{}, err
	}
	docs, err := db.loadDocuments()
	if err != nil {
		return models.Progression{}, err
	}

	added := syncWithCatalog(&p, catalog)
	promoted := promoteFromDocuments(&p, docs, "")
	if added || promoted {
		p.UpdatedAt = db.now()
		progressions[classID] = p
		if err := db.save(ctx, CollProgressions, progressions); err != nil {
			return models.Progression{}, err
		}
	}
	sortByOrder(p.Chapters)
	return p, nil
}
