package models

import (
	"time"
)

// Progression statuses for a chapter entry.
const (
	StatusUpcoming   = "a-venir"
	StatusInProgress = "en-cours"
	StatusDone       = "termine"
)

// User roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// ValidStatus reports whether s is one of the three progression statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusUpcoming, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Class represents a school class (e.g. "tsi1"). Stored keyed by ID.
type Class struct {
	ID          string    `json:"id"` // Lower-cased, immutable
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Document is an uploaded course document belonging to a class and a chapter category.
type Document struct {
	ID        string     `json:"id"` // Dashless UUID
	Class     string     `json:"class"`
	Title     string     `json:"title"`
	Filename  string     `json:"filename"` // Original upload name
	Category  string     `json:"category"` // Chapter ID
	Type      string     `json:"type"`     // cours, exercices, ds, dm, ap, interro...
	FilePath  string     `json:"file_path"` // Relative to the uploads root
	FileSize  int64      `json:"file_size"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Kolle is the weekly oral exam program of a class.
type Kolle struct {
	ID         string     `json:"id"`
	Class      string     `json:"class"`
	WeekNumber int        `json:"week_number"` // 1..28, unique per class
	WeekDates  string     `json:"week_dates"`  // Free text, e.g. "du 6 au 10 octobre"
	Filename   string     `json:"filename"`
	FilePath   string     `json:"file_path"`
	FileSize   int64      `json:"file_size"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

// AnnualProgram is the full-year kolle schedule. At most one is active.
type AnnualProgram struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Year      string     `json:"year"`
	Filename  string     `json:"filename"`
	FilePath  string     `json:"file_path"`
	FileSize  int64      `json:"file_size"`
	IsActive  bool       `json:"isActive"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Chapter is a curriculum topic. Its ID doubles as the document category.
type Chapter struct {
	ID          string `json:"id"` // Slug of Name
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// ChapterProgress is one chapter entry inside a class progression.
type ChapterProgress struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Order       int    `json:"order"` // 1-based, dense within the class
}

// Progression tracks how far a class is through the chapter catalog.
type Progression struct {
	ClassID   string            `json:"classId"`
	Chapters  []ChapterProgress `json:"chapters"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// User is an account able to log in. Password holds a bcrypt hash.
type User struct {
	ID        string    `json:"id"` // Equal to Username at creation
	Username  string    `json:"username"`
	Password  string    `json:"password"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// PublicUser is the view of a User returned over the API.
type PublicUser struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Public strips the password hash.
func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username, Role: u.Role, CreatedAt: u.CreatedAt}
}

// Settings holds free-form site settings (title, contact, ...).
type Settings map[string]any

// ClassDeletion reports what a class deletion removed.
type ClassDeletion struct {
	DocumentsDeleted int `json:"documentsDeleted"`
	KollesDeleted    int `json:"kollesDeleted"`
}

// ClassStats aggregates the documents and kolles of one class.
type ClassStats struct {
	Class     Class `json:"class"`
	Documents struct {
		Total      int            `json:"total"`
		ByCategory map[string]int `json:"by_category"`
		ByType     map[string]int `json:"by_type"`
	} `json:"documents"`
	Kolles struct {
		Total int `json:"total"`
	} `json:"kolles"`
}
