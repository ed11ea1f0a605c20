package db

import (
	"context"
	"testing"

	"classportal/models"
	"classportal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDocument_Validation(t *testing.T) {
	db, _, _ := setupTestDB(t)
	ctx := context.Background()

	valid := models.Document{Class: "tsi1", Title: "Vecteurs", Category: "geometrie", Type: "cours", FilePath: "documents/geometrie/1_v.pdf"}
	testCases := []struct {
		name   string
		mutate func(*models.Document)
	}{
		{"no class", func(d *models.Document) { d.Class = "" }},
		{"no title", func(d *models.Document) { d.Title = " " }},
		{"no category", func(d *models.Document) { d.Category = "" }},
		{"no type", func(d *models.Document) { d.Type = "" }},
		{"no file", func(d *models.Document) { d.FilePath = "" }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := valid
			tc.mutate(&d)
			_, err := db.CreateDocument(ctx, d)
			assert.True(t, utils.IsKind(err, utils.KindBadRequest), "got %v", err)
		})
	}

	doc, err := db.CreateDocument(ctx, valid)
	require.NoError(t, err)
	assert.Len(t, doc.ID, 32)
	assert.Nil(t, doc.UpdatedAt)
}

func TestListDocuments_FiltersAndGrouping(t *testing.T) {
	db, _, _ := setupTestDB(t)
	ctx := context.Background()

	for _, d := range []models.Document{
		{Class: "tsi1", Title: "Vecteurs", Category: "geometrie", Type: "cours", FilePath: "1"},
		{Class: "tsi1", Title: "Plans", Category: "geometrie", Type: "exercices", FilePath: "2"},
		{Class: "tsi1", Title: "DS 1", Category: "derivation", Type: "ds", FilePath: "3", FileSize: 2048},
		{Class: "TSI2", Title: "Autre", Category: "geometrie", Type: "cours", FilePath: "4"},
	} {
		_, err := db.CreateDocument(ctx, d)
		require.NoError(t, err)
	}

	docs, err := db.ListDocuments(DocumentFilter{Class: "tsi1"})
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "DS 1", docs[0].Title, "newest first")

	groups := GroupByCategory(docs)
	require.Len(t, groups["geometrie"], 2)
	assert.Equal(t, "Plans", groups["geometrie"][0].Title)
	assert.Len(t, groups["derivation"], 1)

	docs, err = db.ListDocuments(DocumentFilter{Class: "tsi1", Category: "geometrie", Type: "cours"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Vecteurs", docs[0].Title)

	q, err := ParseFilter([]string{"file_size greaterThan 1000"})
	require.NoError(t, err)
	docs, err = db.ListDocuments(DocumentFilter{Query: q})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "DS 1", docs[0].Title)

	docs, err = db.ListDocuments(DocumentFilter{Class: "tsi2"})
	require.NoError(t, err)
	require.Len(t, docs, 1, "class is stored lower-cased")
}

func TestUpdateDocument(t *testing.T) {
	db, _, _ := setupTestDB(t)
	ctx := context.Background()

	doc, err := db.CreateDocument(ctx, models.Document{Class: "tsi1", Title: "Old", Category: "geometrie", Type: "cours", Filename: "a.pdf", FilePath: "documents/geometrie/a.pdf", FileSize: 5})
	require.NoError(t, err)

	updated, err := db.UpdateDocument(ctx, doc.ID, DocumentUpdate{Title: strPtr("New"), Type: strPtr("exercices")})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Title)
	assert.Equal(t, "exercices", updated.Type)
	assert.Equal(t, doc.Category, updated.Category)
	assert.Equal(t, doc.FilePath, updated.FilePath)
	assert.Equal(t, doc.FileSize, updated.FileSize)
	require.NotNil(t, updated.UpdatedAt)

	_, err = db.UpdateDocument(ctx, doc.ID, DocumentUpdate{})
	assert.True(t, utils.IsKind(err, utils.KindBadRequest))
	_, err = db.UpdateDocument(ctx, "missing", DocumentUpdate{Title: strPtr("x")})
	assert.True(t, utils.IsKind(err, utils.KindNotFound))
}

func TestDeleteDocument(t *testing.T) {
	db, _, files := setupTestDB(t)
	ctx := context.Background()

	doc, err := db.CreateDocument(ctx, models.Document{Class: "tsi1", Title: "T", Category: "geometrie", Type: "cours", FilePath: "documents/geometrie/t.pdf"})
	require.NoError(t, err)

	require.NoError(t, db.DeleteDocument(ctx, doc.ID))
	assert.Equal(t, []string{"documents/geometrie/t.pdf"}, files.paths())
	_, err = db.GetDocument(doc.ID)
	assert.True(t, utils.IsKind(err, utils.KindNotFound))

	err = db.DeleteDocument(ctx, doc.ID)
	assert.True(t, utils.IsKind(err, utils.KindNotFound))
}

func TestCreateKolle_UpsertByWeek(t *testing.T) {
	db, _, files := setupTestDB(t)
	ctx := context.Background()

	first, err := db.CreateKolle(ctx, models.Kolle{Class: "tsi1", WeekNumber: 5, WeekDates: "du 6 au 10", FilePath: "kolles/semaine_5_1.pdf"})
	require.NoError(t, err)
	_, err = db.CreateKolle(ctx, models.Kolle{Class: "tsi2", WeekNumber: 5, WeekDates: "autre classe", FilePath: "kolles/semaine_5_2.pdf"})
	require.NoError(t, err)
	second, err := db.CreateKolle(ctx, models.Kolle{Class: "tsi1", WeekNumber: 5, WeekDates: "du 13 au 17", FilePath: "kolles/semaine_5_3.pdf"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	kolles, err := db.ListKolles("tsi1", nil)
	require.NoError(t, err)
	require.Len(t, kolles, 1)
	assert.Equal(t, "du 13 au 17", kolles[0].WeekDates)
	assert.Equal(t, "kolles/semaine_5_3.pdf", kolles[0].FilePath)
	assert.Equal(t, []string{"kolles/semaine_5_1.pdf"}, files.paths(), "evicted file is removed")

	all, err := db.ListKolles("", nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCreateKolle_Validation(t *testing.T) {
	db, _, _ := setupTestDB(t)
	ctx := context.Background()

	for _, k := range []models.Kolle{
		{Class: "tsi1", WeekNumber: 0, WeekDates: "x", FilePath: "f"},
		{Class: "tsi1", WeekNumber: 29, WeekDates: "x", FilePath: "f"},
		{Class: "tsi1", WeekNumber: 3, WeekDates: " ", FilePath: "f"},
		{Class: "tsi1", WeekNumber: 3, WeekDates: "x"},
		{Class: "", WeekNumber: 3, WeekDates: "x", FilePath: "f"},
	} {
		_, err := db.CreateKolle(ctx, k)
		assert.True(t, utils.IsKind(err, utils.KindBadRequest), "%+v: %v", k, err)
	}
}

func TestListKolles_SortedByWeek(t *testing.T) {
	db, _, _ := setupTestDB(t)
	ctx := context.Background()

	for _, w := range []int{12, 3, 28, 1} {
		_, err := db.CreateKolle(ctx, models.Kolle{Class: "tsi1", WeekNumber: w, WeekDates: "d", FilePath: "f"})
		require.NoError(t, err)
	}
	kolles, err := db.ListKolles("tsi1", nil)
	require.NoError(t, err)
	weeks := make([]int, 0, len(kolles))
	for _, k := range kolles {
		weeks = append(weeks, k.WeekNumber)
	}
	assert.Equal(t, []int{1, 3, 12, 28}, weeks)

	q, err := ParseFilter([]string{"week_number greaterThanOrEquals 12"})
	require.NoError(t, err)
	kolles, err = db.ListKolles("tsi1", q)
	require.NoError(t, err)
	assert.Len(t, kolles, 2)
}

func TestUpdateKolle(t *testing.T) {
	db, _, _ := setupTestDB(t)
	ctx := context.Background()

	k1, err := db.CreateKolle(ctx, models.Kolle{Class: "tsi1", WeekNumber: 1, WeekDates: "a", FilePath: "f1"})
	require.NoError(t, err)
	_, err = db.CreateKolle(ctx, models.Kolle{Class: "tsi1", WeekNumber: 2, WeekDates: "b", FilePath: "f2"})
	require.NoError(t, err)
	_, err = db.CreateKolle(ctx, models.Kolle{Class: "tsi2", WeekNumber: 3, WeekDates: "c", FilePath: "f3"})
	require.NoError(t, err)

	_, err = db.UpdateKolle(ctx, k1.ID, KolleUpdate{WeekNumber: intPtr(2)})
	assert.True(t, utils.IsKind(err, utils.KindConflict))

	moved, err := db.UpdateKolle(ctx, k1.ID, KolleUpdate{WeekNumber: intPtr(3), WeekDates: strPtr("c bis")})
	require.NoError(t, err, "week 3 is only taken in another class")
	assert.Equal(t, 3, moved.WeekNumber)
	assert.Equal(t, "c bis", moved.WeekDates)
	assert.NotNil(t, moved.UpdatedAt)

	_, err = db.UpdateKolle(ctx, k1.ID, KolleUpdate{WeekNumber: intPtr(40)})
	assert.True(t, utils.IsKind(err, utils.KindBadRequest))
	_, err = db.UpdateKolle(ctx, "missing", KolleUpdate{WeekDates: strPtr("x")})
	assert.True(t, utils.IsKind(err, utils.KindNotFound))
}

func TestDeleteKolle(t *testing.T) {
	db, _, files := setupTestDB(t)
	ctx := context.Background()

	k, err := db.CreateKolle(ctx, models.Kolle{Class: "tsi1", WeekNumber: 1, WeekDates: "a", FilePath: "kolles/k.pdf"})
	require.NoError(t, err)
	require.NoError(t, db.DeleteKolle(ctx, k.ID))
	assert.Equal(t, []string{"kolles/k.pdf"}, files.paths())
	assert.True(t, utils.IsKind(db.DeleteKolle(ctx, k.ID), utils.KindNotFound))
}

func TestPrograms_Toggle(t *testing.T) {
	db, _, files := setupTestDB(t)
	ctx := context.Background()

	active, err := db.ActiveProgram()
	require.NoError(t, err)
	assert.Nil(t, active)

	var ids []string
	for _, title := range []string{"2023", "2024", "2025"} {
		p, err := db.CreateProgram(ctx, models.AnnualProgram{Title: title, Year: title, FilePath: "annual_programs/" + title + ".pdf"})
		require.NoError(t, err)
		assert.False(t, p.IsActive)
		ids = append(ids, p.ID)
	}

	for _, id := range []string{ids[0], ids[2], ids[1]} {
		p, err := db.ToggleProgram(ctx, id)
		require.NoError(t, err)
		assert.True(t, p.IsActive)

		programs, err := db.ListPrograms()
		require.NoError(t, err)
		activeCount := 0
		for _, p := range programs {
			if p.IsActive {
				activeCount++
				assert.Equal(t, id, p.ID)
			}
		}
		assert.Equal(t, 1, activeCount)
	}

	active, err = db.ActiveProgram()
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, ids[1], active.ID)

	_, err = db.ToggleProgram(ctx, "missing")
	assert.True(t, utils.IsKind(err, utils.KindNotFound))

	updated, err := db.UpdateProgram(ctx, ids[1], ProgramUpdate{Year: strPtr("2024-2025")})
	require.NoError(t, err)
	assert.Equal(t, "2024-2025", updated.Year)
	assert.True(t, updated.IsActive)

	require.NoError(t, db.DeleteProgram(ctx, ids[1]))
	assert.Equal(t, []string{"annual_programs/2024.pdf"}, files.paths())
	active, err = db.ActiveProgram()
	require.NoError(t, err)
	assert.Nil(t, active)

	_, err = db.CreateProgram(ctx, models.AnnualProgram{Title: "", FilePath: "f"})
	assert.True(t, utils.IsKind(err, utils.KindBadRequest))
}

func TestChapters(t *testing.T) {
	db, _, _ := setupTestDB(t)
	ctx := context.Background()

	ch, err := db.CreateChapter(ctx, models.Chapter{Name: "  Équations & Systèmes  ", Description: "Linéaires"})
	require.NoError(t, err)
	assert.Equal(t, "equations-systemes", ch.ID)
	assert.Equal(t, DefaultChapterIcon, ch.Icon)

	_, err = db.CreateChapter(ctx, models.Chapter{Name: "équations systèmes"})
	assert.True(t, utils.IsKind(err, utils.KindConflict))
	_, err = db.CreateChapter(ctx, models.Chapter{Name: "!!!"})
	assert.True(t, utils.IsKind(err, utils.KindBadRequest))
	_, err = db.CreateChapter(ctx, models.Chapter{Name: ""})
	assert.True(t, utils.IsKind(err, utils.KindBadRequest))

	updated, err := db.UpdateChapter(ctx, ch.ID, ChapterUpdate{Name: strPtr("Systèmes linéaires"), Icon: strPtr("grid")})
	require.NoError(t, err)
	assert.Equal(t, ch.ID, updated.ID, "id never changes")
	assert.Equal(t, "Systèmes linéaires", updated.Name)
	assert.Equal(t, "Linéaires", updated.Description)

	chapters, err := db.ListChapters()
	require.NoError(t, err)
	require.Len(t, chapters, 9)
	assert.Equal(t, ch.ID, chapters[8].ID)

	require.NoError(t, db.DeleteChapter(ctx, ch.ID))
	assert.True(t, utils.IsKind(db.DeleteChapter(ctx, ch.ID), utils.KindNotFound))
	_, err = db.UpdateChapter(ctx, ch.ID, ChapterUpdate{Icon: strPtr("x")})
	assert.True(t, utils.IsKind(err, utils.KindNotFound))
}

func TestDelete_FailedSaveKeepsFile(t *testing.T) {
	db, _, files := setupTestDB(t)
	ctx := context.Background()

	doc, err := db.CreateDocument(ctx, models.Document{Class: "tsi1", Title: "T", Category: "geometrie", Type: "cours", FilePath: "documents/geometrie/t.pdf"})
	require.NoError(t, err)
	k, err := db.CreateKolle(ctx, models.Kolle{Class: "tsi1", WeekNumber: 2, WeekDates: "a", FilePath: "kolles/tsi1/k.pdf"})
	require.NoError(t, err)
	p, err := db.CreateProgram(ctx, models.AnnualProgram{Title: "2025", FilePath: "annual_programs/p.pdf"})
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.Error(t, db.DeleteDocument(cancelled, doc.ID))
	assert.Error(t, db.DeleteKolle(cancelled, k.ID))
	assert.Error(t, db.DeleteProgram(cancelled, p.ID))
	assert.Empty(t, files.paths(), "files stay while their records do")

	_, err = db.GetDocument(doc.ID)
	assert.NoError(t, err)
	kolles, err := db.ListKolles("tsi1", nil)
	require.NoError(t, err)
	assert.Len(t, kolles, 1)
}
