// Package storage manages the uploads tree: saving multipart uploads under
// collision-free names, resolving client paths safely and removing files.
package storage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"classportal/utils"

	"github.com/gabriel-vasile/mimetype"
	log "github.com/sirupsen/logrus"
)

// Upload sub-directories.
const (
	DirDocuments      = "documents"
	DirKolles         = "kolles"
	DirAnnualPrograms = "annual_programs"
)

// AllowedExtensions lists the file types teachers may upload.
var AllowedExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".odt": true,
	".ppt": true, ".pptx": true,
	".png": true, ".jpg": true, ".jpeg": true,
}

// StoredFile describes a file written under the uploads root.
type StoredFile struct {
	Path         string // Relative, slash separated, e.g. "kolles/tsi1/semaine_5_1700000000000.pdf"
	OriginalName string
	Size         int64
	MimeType     string
}

// Storage owns the uploads root directory.
type Storage struct {
	root     string
	maxBytes int64
}

// New returns a Storage rooted at root accepting uploads of at most maxMB megabytes.
func New(root string, maxMB int64) *Storage {
	return &Storage{root: filepath.Clean(root), maxBytes: maxMB << 20}
}

// Root returns the absolute uploads root.
func (s *Storage) Root() string { return s.root }

// MaxBytes returns the upload size limit.
func (s *Storage) MaxBytes() int64 { return s.maxBytes }

// DocumentPath builds documents/<category>/<unixmilli>_<originalName>.
func DocumentPath(category, originalName string, now time.Time) string {
	return path.Join(DirDocuments, utils.Slugify(category), fmt.Sprintf("%d_%s", now.UnixMilli(), cleanName(originalName)))
}

// KollePath builds kolles/<class>/semaine_<week>_<unixmilli><ext>.
func KollePath(class string, week int, originalName string, now time.Time) string {
	return path.Join(DirKolles, utils.Slugify(class), fmt.Sprintf("semaine_%d_%d%s", week, now.UnixMilli(), strings.ToLower(filepath.Ext(originalName))))
}

// AnnualProgramPath builds annual_programs/programme_annuel_<unixmilli><ext>.
func AnnualProgramPath(originalName string, now time.Time) string {
	return path.Join(DirAnnualPrograms, fmt.Sprintf("programme_annuel_%d%s", now.UnixMilli(), strings.ToLower(filepath.Ext(originalName))))
}

// cleanName keeps the base name only and replaces characters that are awkward in URLs.
func cleanName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	ext := strings.ToLower(filepath.Ext(name))
	base := utils.Slugify(strings.TrimSuffix(name, filepath.Ext(name)))
	if base == "" {
		base = "fichier"
	}
	return base + ext
}

// Save validates fh and writes it to rel under the root.
func (s *Storage) Save(fh *multipart.FileHeader, rel string) (StoredFile, error) {
	if fh == nil {
		return StoredFile{}, utils.BadRequestf("A file is required.")
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !AllowedExtensions[ext] {
		return StoredFile{}, utils.BadRequestf("File type '%s' is not allowed.", ext)
	}
	if s.maxBytes > 0 && fh.Size > s.maxBytes {
		return StoredFile{}, utils.BadRequestf("File exceeds the %d MB limit.", s.maxBytes>>20)
	}

	src, err := fh.Open()
	if err != nil {
		return StoredFile{}, utils.BadRequestf("Unable to read uploaded file: %v", err)
	}
	defer src.Close()

	mtype, err := mimetype.DetectReader(src)
	if err != nil {
		return StoredFile{}, utils.BadRequestf("Unable to read uploaded file: %v", err)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return StoredFile{}, utils.IOFailure(err, "rewinding upload")
	}

	abs, err := s.Resolve(rel)
	if err != nil {
		return StoredFile{}, err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return StoredFile{}, utils.IOFailure(err, "creating upload directory")
	}
	dst, err := os.Create(abs)
	if err != nil {
		return StoredFile{}, utils.IOFailure(err, "creating upload file")
	}
	size, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(abs)
		return StoredFile{}, utils.IOFailure(err, "writing upload file")
	}

	log.WithFields(log.Fields{"path": rel, "size": size, "mime": mtype.String()}).Info("Stored upload")
	return StoredFile{Path: rel, OriginalName: fh.Filename, Size: size, MimeType: mtype.String()}, nil
}

// Resolve maps a client supplied relative path to an absolute path inside the root.
// Absolute paths and ".." segments are rejected.
func (s *Storage) Resolve(rel string) (string, error) {
	rel = strings.TrimSpace(strings.ReplaceAll(rel, "\\", "/"))
	rel = strings.TrimPrefix(rel, "/uploads/")
	if rel == "" {
		return "", utils.BadRequestf("A file path is required.")
	}
	if path.IsAbs(rel) || filepath.IsAbs(rel) {
		return "", utils.BadRequestf("File path must be relative.")
	}
	for _, seg := range strings.Split(rel, "/") {
		if seg == ".." {
			return "", utils.BadRequestf("File path must not contain '..'.")
		}
	}
	abs := filepath.Join(s.root, filepath.FromSlash(path.Clean(rel)))
	if abs != s.root && !strings.HasPrefix(abs, s.root+string(filepath.Separator)) {
		return "", utils.BadRequestf("File path escapes the uploads directory.")
	}
	return abs, nil
}

// Open resolves rel and opens it for reading. The caller closes the file.
func (s *Storage) Open(rel string) (*os.File, os.FileInfo, error) {
	abs, err := s.Resolve(rel)
	if err != nil {
		return nil, nil, err
	}
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		return nil, nil, utils.NotFoundf("File '%s' not found.", rel)
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, nil, utils.IOFailure(err, "opening %s", rel)
	}
	return f, info, nil
}

// DetectType sniffs the content type of an open file and rewinds it.
func DetectType(f *os.File) string {
	mtype, err := mimetype.DetectReader(f)
	if _, serr := f.Seek(0, io.SeekStart); serr != nil || err != nil {
		return "application/octet-stream"
	}
	return mtype.String()
}

// Remove deletes rel. A file that is already gone is not an error.
func (s *Storage) Remove(rel string) error {
	if rel == "" {
		return nil
	}
	abs, err := s.Resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return utils.IOFailure(err, "removing %s", rel)
	}
	return nil
}
