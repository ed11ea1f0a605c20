package db

import (
	"context"
	"sort"
	"strings"

	"classportal/models"
	"classportal/utils"

	log "github.com/sirupsen/logrus"
)

// ProgramUpdate carries the editable fields of an annual program.
type ProgramUpdate struct {
	Title *string `json:"title"`
	Year  *string `json:"year"`
}

// ListPrograms returns every annual program, newest first.
func (db *Database) ListPrograms() ([]models.AnnualProgram, error) {
	unlock := db.lock(CollAnnualPrograms)
	defer unlock()

	programs, err := db.loadPrograms()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(programs, func(i, j int) bool { return programs[i].CreatedAt.After(programs[j].CreatedAt) })
	return programs, nil
}

// ActiveProgram returns the active program or nil.
func (db *Database) ActiveProgram() (*models.AnnualProgram, error) {
	unlock := db.lock(CollAnnualPrograms)
	defer unlock()

	programs, err := db.loadPrograms()
	if err != nil {
		return nil, err
	}
	for _, p := range programs {
		if p.IsActive {
			p := p
			return &p, nil
		}
	}
	return nil, nil
}

// CreateProgram stores a new, inactive annual program.
func (db *Database) CreateProgram(ctx context.Context, p models.AnnualProgram) (models.AnnualProgram, error) {
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		return models.AnnualProgram{}, utils.BadRequestf("Field 'title' is required.")
	}
	if p.FilePath == "" {
		return models.AnnualProgram{}, utils.BadRequestf("A file is required.")
	}

	unlock := db.lock(CollAnnualPrograms)
	defer unlock()

	programs, err := db.loadPrograms()
	if err != nil {
		return models.AnnualProgram{}, err
	}
	if p.ID == "" {
		p.ID = utils.GenerateDashlessUUID()
	}
	p.IsActive = false
	p.CreatedAt = db.now()
	p.UpdatedAt = nil
	programs = append(programs, p)
	if err := db.save(ctx, CollAnnualPrograms, programs); err != nil {
		return models.AnnualProgram{}, err
	}
	return p, nil
}

// UpdateProgram edits title or year.
func (db *Database) UpdateProgram(ctx context.Context, id string, upd ProgramUpdate) (models.AnnualProgram, error) {
	if upd.Title == nil && upd.Year == nil {
		return models.AnnualProgram{}, utils.BadRequestf("Nothing to update: supply 'title' or 'year'.")
	}
	if upd.Title != nil && strings.TrimSpace(*upd.Title) == "" {
		return models.AnnualProgram{}, utils.BadRequestf("Field 'title' cannot be empty.")
	}

	unlock := db.lock(CollAnnualPrograms)
	defer unlock()

	programs, err := db.loadPrograms()
	if err != nil {
		return models.AnnualProgram{}, err
	}
	for i := range programs {
		if programs[i].ID != id {
			continue
		}
		if upd.Title != nil {
			programs[i].Title = strings.TrimSpace(*upd.Title)
		}
		if upd.Year != nil {
			programs[i].Year = *upd.Year
		}
		now := db.now()
		programs[i].UpdatedAt = &now
		if err := db.save(ctx, CollAnnualPrograms, programs); err != nil {
			return models.AnnualProgram{}, err
		}
		return programs[i], nil
	}
	return models.AnnualProgram{}, utils.NotFoundf("Annual program '%s' not found.", id)
}

// ToggleProgram makes id the only active program, in a single write.
func (db *Database) ToggleProgram(ctx context.Context, id string) (models.AnnualProgram, error) {
	unlock := db.lock(CollAnnualPrograms)
	defer unlock()

	programs, err := db.loadPrograms()
	if err != nil {
		return models.AnnualProgram{}, err
	}
	idx := -1
	for i := range programs {
		if programs[i].ID == id {
			idx = i
		}
		programs[i].IsActive = false
	}
	if idx < 0 {
		return models.AnnualProgram{}, utils.NotFoundf("Annual program '%s' not found.", id)
	}
	now := db.now()
	programs[idx].IsActive = true
	programs[idx].UpdatedAt = &now

	if err := db.save(ctx, CollAnnualPrograms, programs); err != nil {
		return models.AnnualProgram{}, err
	}
	log.WithField("id", id).Info("Activated annual program")
	return programs[idx], nil
}

// DeleteProgram removes a program and its file.
func (db *Database) DeleteProgram(ctx context.Context, id string) error {
	unlock := db.lock(CollAnnualPrograms)
	defer unlock()

	programs, err := db.loadPrograms()
	if err != nil {
		return err
	}
	for i, p := range programs {
		if p.ID != id {
			continue
		}
		programs = append(programs[:i], programs[i+1:]...)
		if err := db.save(ctx, CollAnnualPrograms, programs); err != nil {
			return err
		}
		db.removeFile(p.FilePath)
		return nil
	}
	return utils.NotFoundf("Annual program '%s' not found.", id)
}
