package db

import (
	"context"
	"testing"

	"classportal/models"
	"classportal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertDenseOrder(t *testing.T, p models.Progression) {
	t.Helper()
	for i, ch := range p.Chapters {
		assert.Equal(t, i+1, ch.Order, "chapter %s", ch.ID)
	}
}

func TestGetProgression_LazyDefault(t *testing.T) {
	db, store, _ := setupTestDB(t)
	ctx := context.Background()

	p, err := db.GetProgression(ctx, "TSI1")
	require.NoError(t, err)
	assert.Equal(t, "tsi1", p.ClassID)
	require.Len(t, p.Chapters, 8)
	assertDenseOrder(t, p)
	for _, ch := range p.Chapters {
		assert.Equal(t, models.StatusUpcoming, ch.Status)
	}

	var stored map[string]models.Progression
	require.NoError(t, store.Load(CollProgressions, &stored))
	assert.Contains(t, stored, "tsi1")

	again, err := db.GetProgression(ctx, "tsi1")
	require.NoError(t, err)
	assert.Equal(t, p.CreatedAt, again.CreatedAt)

	_, err = db.GetProgression(ctx, " ")
	assert.True(t, utils.IsKind(err, utils.KindBadRequest))
}

func TestSetChapterStatus_OnlyStatusChanges(t *testing.T) {
	db, _, _ := setupTestDB(t)
	ctx := context.Background()

	before, err := db.GetProgression(ctx, "tsi1")
	require.NoError(t, err)

	after, err := db.SetChapterStatus(ctx, "tsi1", "geometrie", models.StatusInProgress)
	require.NoError(t, err)
	require.Len(t, after.Chapters, len(before.Chapters))
	for i := range before.Chapters {
		want := before.Chapters[i]
		if want.ID == "geometrie" {
			want.Status = models.StatusInProgress
		}
		assert.Equal(t, want, after.Chapters[i])
	}
	assert.Equal(t, before.CreatedAt, after.CreatedAt)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))

	_, err = db.SetChapterStatus(ctx, "tsi1", "geometrie", "fini")
	assert.True(t, utils.IsKind(err, utils.KindBadRequest))
	_, err = db.SetChapterStatus(ctx, "tsi1", "nope", models.StatusDone)
	assert.True(t, utils.IsKind(err, utils.KindNotFound))
}

func TestSetChapterStatus_SyncsNewCatalogChapter(t *testing.T) {
	db, _, _ := setupTestDB(t)
	ctx := context.Background()

	_, err := db.GetProgression(ctx, "tsi1")
	require.NoError(t, err)
	ch, err := db.CreateChapter(ctx, models.Chapter{Name: "Probabilités"})
	require.NoError(t, err)
	require.Equal(t, "probabilites", ch.ID)

	p, err := db.SetChapterStatus(ctx, "tsi1", "probabilites", models.StatusDone)
	require.NoError(t, err)
	require.Len(t, p.Chapters, 9)
	last := p.Chapters[8]
	assert.Equal(t, "probabilites", last.ID)
	assert.Equal(t, 9, last.Order)
	assert.Equal(t, models.StatusDone, last.Status)
}

func TestSetChapterStatus_SyncsCatalogForExistingChapter(t *testing.T) {
	db, _, _ := setupTestDB(t)
	ctx := context.Background()

	_, err := db.SetChapterStatus(ctx, "tsi1", "derivation", models.StatusDone)
	require.NoError(t, err)
	_, err = db.CreateChapter(ctx, models.Chapter{Name: "Probabilités"})
	require.NoError(t, err)

	p, err := db.SetChapterStatus(ctx, "tsi1", "geometrie", models.StatusInProgress)
	require.NoError(t, err)
	require.Len(t, p.Chapters, 9)
	assertDenseOrder(t, p)
	last := p.Chapters[8]
	assert.Equal(t, "probabilites", last.ID)
	assert.Equal(t, models.StatusUpcoming, last.Status)
	status := map[string]string{}
	for _, ch := range p.Chapters {
		status[ch.ID] = ch.Status
	}
	assert.Equal(t, models.StatusDone, status["derivation"])
	assert.Equal(t, models.StatusInProgress, status["geometrie"])
}

func TestGetProgression_AppendsNewCatalogChapters(t *testing.T) {
	db, store, _ := setupTestDB(t)
	ctx := context.Background()

	_, err := db.GetProgression(ctx, "tsi1")
	require.NoError(t, err)
	_, err = db.CreateChapter(ctx, models.Chapter{Name: "Probabilités"})
	require.NoError(t, err)

	p, err := db.GetProgression(ctx, "tsi1")
	require.NoError(t, err)
	require.Len(t, p.Chapters, 9)
	assert.Equal(t, "probabilites", p.Chapters[8].ID)
	assertDenseOrder(t, p)

	var stored map[string]models.Progression
	require.NoError(t, store.Load(CollProgressions, &stored))
	assert.Len(t, stored["tsi1"].Chapters, 9, "the appended chapter is persisted")
}

func TestReplaceProgression(t *testing.T) {
	db, _, _ := setupTestDB(t)
	ctx := context.Background()

	_, err := db.ReplaceProgression(ctx, "tsi1", nil)
	assert.True(t, utils.IsKind(err, utils.KindBadRequest))

	_, err = db.ReplaceProgression(ctx, "tsi1", []models.ChapterProgress{{ID: "a", Status: "bogus", Order: 1}})
	assert.True(t, utils.IsKind(err, utils.KindBadRequest))

	_, err = db.ReplaceProgression(ctx, "tsi1", []models.ChapterProgress{
		{ID: "geometrie", Status: models.StatusUpcoming, Order: 7},
		{ID: "geometrie", Status: models.StatusUpcoming, Order: 7},
	})
	assert.True(t, utils.IsKind(err, utils.KindBadRequest), "duplicate ids are rejected")

	chapters := []models.ChapterProgress{
		{ID: "derivation", Name: "Dérivation", Status: models.StatusDone, Order: 1},
		{ID: "integration", Name: "Intégration", Status: models.StatusInProgress, Order: 2},
	}
	p, err := db.ReplaceProgression(ctx, "tsi1", chapters)
	require.NoError(t, err)
	assert.Equal(t, chapters, p.Chapters)

	// Reading appends the catalog chapters the replacement left out.
	got, err := db.GetProgression(ctx, "tsi1")
	require.NoError(t, err)
	require.Len(t, got.Chapters, 8)
	assert.Equal(t, chapters, got.Chapters[:2])
	assertDenseOrder(t, got)
}

func TestReplaceProgression_RenumbersOrder(t *testing.T) {
	db, _, _ := setupTestDB(t)
	ctx := context.Background()

	p, err := db.ReplaceProgression(ctx, "tsi1", []models.ChapterProgress{
		{ID: "integration", Status: models.StatusUpcoming, Order: 40},
		{ID: "derivation", Status: models.StatusDone, Order: 7},
		{ID: "geometrie", Status: models.StatusUpcoming, Order: 7},
	})
	require.NoError(t, err)
	require.Len(t, p.Chapters, 3)
	assert.Equal(t, "derivation", p.Chapters[0].ID)
	assert.Equal(t, "geometrie", p.Chapters[1].ID)
	assert.Equal(t, "integration", p.Chapters[2].ID)
	assertDenseOrder(t, p)
}

func TestReorderProgression(t *testing.T) {
	db, _, _ := setupTestDB(t)
	ctx := context.Background()

	p, err := db.GetProgression(ctx, "tsi1")
	require.NoError(t, err)
	ids := make([]string, 0, len(p.Chapters))
	for i := len(p.Chapters) - 1; i >= 0; i-- {
		ids = append(ids, p.Chapters[i].ID)
	}

	reordered, err := db.ReorderProgression(ctx, "tsi1", ids)
	require.NoError(t, err)
	assertDenseOrder(t, reordered)
	for i, ch := range reordered.Chapters {
		assert.Equal(t, ids[i], ch.ID)
	}

	testCases := []struct {
		name string
		ids  []string
	}{
		{"nil", nil},
		{"duplicate", append(append([]string{}, ids[:7]...), ids[0])},
		{"unknown", append(append([]string{}, ids[:7]...), "astrologie")},
		{"missing", ids[:7]},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := db.ReorderProgression(ctx, "tsi1", tc.ids)
			assert.True(t, utils.IsKind(err, utils.KindBadRequest), "got %v", err)
		})
	}

	unchanged, err := db.GetProgression(ctx, "tsi1")
	require.NoError(t, err)
	assert.Equal(t, reordered.Chapters, unchanged.Chapters)
}

func TestReorderProgression_StoredDuplicates(t *testing.T) {
	db, store, _ := setupTestDB(t)
	ctx := context.Background()

	writeCollection(t, store, CollProgressions, `{
		"tsi1": {"classId": "tsi1", "chapters": [
			{"id": "geometrie", "status": "a-venir", "order": 1},
			{"id": "geometrie", "status": "a-venir", "order": 1}
		]}
	}`)
	p, err := db.GetProgression(ctx, "tsi1")
	require.NoError(t, err)
	require.Len(t, p.Chapters, 9)

	ids := make([]string, 0, len(p.Chapters)-1)
	for _, ch := range p.Chapters[1:] {
		ids = append(ids, ch.ID)
	}
	_, err = db.ReorderProgression(ctx, "tsi1", ids)
	assert.True(t, utils.IsKind(err, utils.KindBadRequest), "got %v", err)
}

func TestResetAndDeleteProgression(t *testing.T) {
	db, _, _ := setupTestDB(t)
	ctx := context.Background()

	_, err := db.SetChapterStatus(ctx, "tsi1", "derivation", models.StatusDone)
	require.NoError(t, err)

	p, err := db.ResetProgression(ctx, "tsi1")
	require.NoError(t, err)
	for _, ch := range p.Chapters {
		assert.Equal(t, models.StatusUpcoming, ch.Status)
	}
	assertDenseOrder(t, p)

	require.NoError(t, db.DeleteProgression(ctx, "tsi1"))
	err = db.DeleteProgression(ctx, "tsi1")
	assert.True(t, utils.IsKind(err, utils.KindNotFound))
}

func TestAutoPromotion(t *testing.T) {
	db, _, _ := setupTestDB(t)
	ctx := context.Background()

	_, err := db.GetProgression(ctx, "tsi1")
	require.NoError(t, err)
	_, err = db.SetChapterStatus(ctx, "tsi1", "integration", models.StatusDone)
	require.NoError(t, err)

	upload := func(class, category string) {
		_, err := db.CreateDocument(ctx, models.Document{Class: class, Title: "t", Category: category, Type: "cours", FilePath: "f"})
		require.NoError(t, err)
	}
	upload("tsi1", "geometrie")
	upload("tsi1", "integration")
	upload("tsi2", "derivation")

	p, err := db.GetProgression(ctx, "tsi1")
	require.NoError(t, err)
	status := map[string]string{}
	for _, ch := range p.Chapters {
		status[ch.ID] = ch.Status
	}
	assert.Equal(t, models.StatusInProgress, status["geometrie"], "upcoming chapter with a document is promoted")
	assert.Equal(t, models.StatusDone, status["integration"], "done is never demoted")
	assert.Equal(t, models.StatusUpcoming, status["derivation"], "other classes' documents do not count")
	for id, s := range status {
		if id != "integration" {
			assert.NotEqual(t, models.StatusDone, s, id)
		}
	}
}

func TestSyncProgression(t *testing.T) {
	db, store, _ := setupTestDB(t)
	ctx := context.Background()

	// Documents uploaded before the progression exists.
	writeCollection(t, store, CollDocuments, `[
		{"id": "d1", "class": "tsi1", "title": "t", "category": "suites-numeriques", "type": "cours", "file_path": "f"}
	]`)
	_, err := db.GetProgression(ctx, "tsi1")
	require.NoError(t, err)
	_, err = db.CreateChapter(ctx, models.Chapter{Name: "Séries"})
	require.NoError(t, err)

	p, err := db.SyncProgression(ctx, "tsi1")
	require.NoError(t, err)
	require.Len(t, p.Chapters, 9)
	assertDenseOrder(t, p)
	for _, ch := range p.Chapters {
		switch ch.ID {
		case "suites-numeriques":
			assert.Equal(t, models.StatusInProgress, ch.Status)
		default:
			assert.Equal(t, models.StatusUpcoming, ch.Status, ch.ID)
		}
	}
	assert.Equal(t, "series", p.Chapters[8].ID)
}

func TestPromoteFromDocuments(t *testing.T) {
	p := models.Progression{ClassID: "tsi1", Chapters: []models.ChapterProgress{
		{ID: "a", Status: models.StatusUpcoming, Order: 1},
		{ID: "b", Status: models.StatusInProgress, Order: 2},
		{ID: "c", Status: models.StatusDone, Order: 3},
		{ID: "d", Status: models.StatusUpcoming, Order: 4},
	}}
	docs := []models.Document{
		{Class: "tsi1", Category: "a"}, {Class: "tsi1", Category: "b"},
		{Class: "tsi1", Category: "c"}, {Class: "tsi2", Category: "d"},
	}

	assert.False(t, promoteFromDocuments(&p, docs, "d"))
	assert.True(t, promoteFromDocuments(&p, docs, ""))
	assert.Equal(t, models.StatusInProgress, p.Chapters[0].Status)
	assert.Equal(t, models.StatusInProgress, p.Chapters[1].Status)
	assert.Equal(t, models.StatusDone, p.Chapters[2].Status)
	assert.Equal(t, models.StatusUpcoming, p.Chapters[3].Status)
	assert.False(t, promoteFromDocuments(&p, docs, ""), "second pass is a no-op")
}
