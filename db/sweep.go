package db

import (
	"context"

	"classportal/models"

	mapset "github.com/deckarep/golang-set/v2"
	log "github.com/sirupsen/logrus"
)

// SweepOptions controls Sweep.
type SweepOptions struct {
	DryRun        bool
	PruneChapters bool // Also drop progression entries whose chapter left the catalog
}

// SweepReport counts what Sweep removed, or would remove on a dry run.
type SweepReport struct {
	OrphanDocuments    int `json:"orphan_documents"`
	OrphanKolles       int `json:"orphan_kolles"`
	OrphanProgressions int `json:"orphan_progressions"`
	PrunedChapters     int `json:"pruned_chapters"`
}

// Sweep removes records left behind by interrupted cascades: documents, kolles and
// progressions of classes that no longer exist. Pruned progressions are renumbered 1..N.
func (db *Database) Sweep(ctx context.Context, opts SweepOptions) (SweepReport, error) {
	unlock := db.lock(CollChapters, CollClasses, CollDocuments, CollKolles, CollProgressions)
	defer unlock()

	var report SweepReport
	classes, err := db.loadClasses()
	if err != nil {
		return report, err
	}
	docs, err := db.loadDocuments()
	if err != nil {
		return report, err
	}
	kolles, err := db.loadKolles()
	if err != nil {
		return report, err
	}
	progressions, err := db.loadProgressions()
	if err != nil {
		return report, err
	}
	catalog, err := db.loadChapters()
	if err != nil {
		return report, err
	}

	known := mapset.NewThreadUnsafeSet[string]()
	for id := range classes {
		known.Add(id)
	}
	var files []string

	keptDocs := make([]models.Document, 0, len(docs))
	for _, d := range docs {
		if known.Contains(d.Class) {
			keptDocs = append(keptDocs, d)
			continue
		}
		files = append(files, d.FilePath)
	}
	keptKolles := make([]models.Kolle, 0, len(kolles))
	for _, k := range kolles {
		if known.Contains(k.Class) {
			keptKolles = append(keptKolles, k)
			continue
		}
		files = append(files, k.FilePath)
	}
	for id := range progressions {
		if !known.Contains(id) {
			delete(progressions, id)
			report.OrphanProgressions++
		}
	}
	if opts.PruneChapters {
		inCatalog := mapset.NewThreadUnsafeSet[string]()
		for _, ch := range catalog {
			inCatalog.Add(ch.ID)
		}
		for id, p := range progressions {
			kept := p.Chapters[:0]
			sortByOrder(p.Chapters)
			for _, ch := range p.Chapters {
				if inCatalog.Contains(ch.ID) {
					ch.Order = len(kept) + 1
					kept = append(kept, ch)
				}
			}
			if pruned := len(p.Chapters) - len(kept); pruned > 0 {
				report.PrunedChapters += pruned
				p.Chapters = kept
				p.UpdatedAt = db.now()
			}
			progressions[id] = p
		}
	}
	report.OrphanDocuments = len(docs) - len(keptDocs)
	report.OrphanKolles = len(kolles) - len(keptKolles)

	fields := log.Fields{
		"documents":    report.OrphanDocuments,
		"kolles":       report.OrphanKolles,
		"progressions": report.OrphanProgressions,
		"chapters":     report.PrunedChapters,
	}
	if opts.DryRun {
		log.WithFields(fields).Info("Sweep dry run")
		return report, nil
	}

	plan := newCascadePlan("sweep")
	if report.OrphanDocuments > 0 {
		plan.add("write documents", func() error { return db.save(ctx, CollDocuments, keptDocs) })
	}
	if report.OrphanKolles > 0 {
		plan.add("write kolles", func() error { return db.save(ctx, CollKolles, keptKolles) })
	}
	if report.OrphanProgressions > 0 || report.PrunedChapters > 0 {
		plan.add("write progressions", func() error { return db.save(ctx, CollProgressions, progressions) })
	}
	plan.add("remove files", func() error {
		for _, f := range files {
			db.removeFile(f)
		}
		return nil
	})
	if err := plan.execute(); err != nil {
		return report, err
	}
	log.WithFields(fields).Info("Sweep complete")
	return report, nil
}
