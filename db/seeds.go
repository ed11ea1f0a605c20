package db

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"classportal/models"
	"classportal/utils"

	log "github.com/sirupsen/logrus"
)

// seededCollections are written with their default content the first time they are read.
var seededCollections = map[string]bool{
	CollClasses:  true,
	CollChapters: true,
	CollSettings: true,
}

func defaultClasses(now time.Time) map[string]models.Class {
	return map[string]models.Class{
		"tsi1": {ID: "tsi1", Name: "TSI 1", Description: "Première année TSI", Color: "#2563eb", Active: true, CreatedAt: now, UpdatedAt: now},
		"tsi2": {ID: "tsi2", Name: "TSI 2", Description: "Deuxième année TSI", Color: "#16a34a", Active: true, CreatedAt: now, UpdatedAt: now},
	}
}

func defaultChapters() []models.Chapter {
	return []models.Chapter{
		{ID: "nombres-complexes", Name: "Nombres complexes", Description: "Forme algébrique, trigonométrique et exponentielle", Icon: "circle"},
		{ID: "geometrie", Name: "Géométrie", Description: "Vecteurs, droites et plans", Icon: "triangle"},
		{ID: "fonctions-usuelles", Name: "Fonctions usuelles", Description: "Exponentielle, logarithme, fonctions trigonométriques", Icon: "function"},
		{ID: "suites-numeriques", Name: "Suites numériques", Description: "Suites arithmétiques, géométriques et récurrentes", Icon: "list"},
		{ID: "limites-et-continuite", Name: "Limites et continuité", Description: "Limites de fonctions, théorème des valeurs intermédiaires", Icon: "infinity"},
		{ID: "derivation", Name: "Dérivation", Description: "Dérivabilité, accroissements finis", Icon: "trending-up"},
		{ID: "integration", Name: "Intégration", Description: "Primitives, intégrales, intégration par parties", Icon: "sigma"},
		{ID: "equations-differentielles", Name: "Équations différentielles", Description: "Équations linéaires du premier et second ordre", Icon: "activity"},
	}
}

func defaultSettings() models.Settings {
	return models.Settings{
		"site_title":    "Classe prépa",
		"teacher_name":  "",
		"contact_email": "",
	}
}

// --- Typed loaders. Callers must hold the collection lock. ---

func (db *Database) loadClasses() (map[string]models.Class, error) {
	classes := map[string]models.Class{}
	err := db.load(CollClasses, &classes, func() { classes = defaultClasses(db.now()) })
	if classes == nil {
		classes = map[string]models.Class{}
	}
	return classes, err
}

func (db *Database) loadDocuments() ([]models.Document, error) {
	docs := []models.Document{}
	err := db.load(CollDocuments, &docs, func() { docs = []models.Document{} })
	if docs == nil {
		docs = []models.Document{}
	}
	return docs, err
}

func (db *Database) loadKolles() ([]models.Kolle, error) {
	kolles := []models.Kolle{}
	err := db.load(CollKolles, &kolles, func() { kolles = []models.Kolle{} })
	if kolles == nil {
		kolles = []models.Kolle{}
	}
	return kolles, err
}

func (db *Database) loadChapters() ([]models.Chapter, error) {
	chapters := []models.Chapter{}
	err := db.load(CollChapters, &chapters, func() { chapters = defaultChapters() })
	if chapters == nil {
		chapters = []models.Chapter{}
	}
	return chapters, err
}

func (db *Database) loadProgressions() (map[string]models.Progression, error) {
	progressions := map[string]models.Progression{}
	err := db.load(CollProgressions, &progressions, func() { progressions = map[string]models.Progression{} })
	if progressions == nil {
		progressions = map[string]models.Progression{}
	}
	return progressions, err
}

func (db *Database) loadPrograms() ([]models.AnnualProgram, error) {
	programs := []models.AnnualProgram{}
	err := db.load(CollAnnualPrograms, &programs, func() { programs = []models.AnnualProgram{} })
	if programs == nil {
		programs = []models.AnnualProgram{}
	}
	return programs, err
}

func (db *Database) loadUsers() ([]models.User, error) {
	users := []models.User{}
	err := db.load(CollUsers, &users, func() { users = []models.User{} })
	if users == nil {
		users = []models.User{}
	}
	return users, err
}

func (db *Database) loadSettings() (models.Settings, error) {
	settings := models.Settings{}
	err := db.load(CollSettings, &settings, func() { settings = defaultSettings() })
	if settings == nil {
		settings = models.Settings{}
	}
	return settings, err
}

// BootstrapReport lists what Bootstrap created.
type BootstrapReport struct {
	Created      []string `json:"created"`
	AdminCreated bool     `json:"admin_created"`
}

// Bootstrap writes every missing collection (seeded ones with their defaults, the others
// empty) and creates the configured admin account when no user exists. It is idempotent.
func (db *Database) Bootstrap(ctx context.Context) (BootstrapReport, error) {
	unlock := db.lock(AllCollections...)
	defer unlock()

	var report BootstrapReport
	for _, name := range AllCollections {
		var raw json.RawMessage
		err := db.store.Load(name, &raw)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrCollectionNotFound) {
			log.WithField("collection", name).Warnf("Collection unreadable, leaving it untouched: %v", err)
			continue
		}

		var v any
		switch name {
		case CollClasses:
			v, err = db.loadClasses()
		case CollDocuments:
			v, err = db.loadDocuments()
		case CollKolles:
			v, err = db.loadKolles()
		case CollChapters:
			v, err = db.loadChapters()
		case CollProgressions:
			v, err = db.loadProgressions()
		case CollAnnualPrograms:
			v, err = db.loadPrograms()
		case CollUsers:
			v, err = db.loadUsers()
		case CollSettings:
			v, err = db.loadSettings()
		}
		if err != nil {
			return report, err
		}
		if !seededCollections[name] {
			if err := db.save(ctx, name, v); err != nil {
				return report, err
			}
		}
		report.Created = append(report.Created, name)
	}

	users, err := db.loadUsers()
	if err != nil {
		return report, err
	}
	if len(users) == 0 && db.config != nil && db.config.AdminUsername != "" {
		hash, err := utils.HashPassword(db.config.AdminPassword, db.config.BcryptCost)
		if err != nil {
			return report, utils.IOFailure(err, "hashing admin password")
		}
		users = append(users, models.User{
			ID:        db.config.AdminUsername,
			Username:  db.config.AdminUsername,
			Password:  hash,
			Role:      models.RoleAdmin,
			CreatedAt: db.now(),
		})
		if err := db.save(ctx, CollUsers, users); err != nil {
			return report, err
		}
		report.AdminCreated = true
		log.Warnf("Created initial admin account '%s'. Change its password.", db.config.AdminUsername)
	}

	log.WithField("created", report.Created).Info("Bootstrap complete")
	return report, nil
}
