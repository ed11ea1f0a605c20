package api

import (
	"net/http"
	"time"

	"classportal/storage"
	"classportal/utils"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// multipartSlack covers the form fields and part headers around the file itself.
const multipartSlack = 1 << 20

// bindUpload caps the request body and binds the multipart form fields into form.
// It reports false after writing the error response.
func bindUpload(c *gin.Context, files *storage.Storage, form any) bool {
	if limit := files.MaxBytes(); limit > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartSlack)
	}
	if err := c.ShouldBindWith(form, binding.FormMultipart); err != nil {
		utils.GinBadRequest(c, bindingMessage(err))
		return false
	}
	return true
}

// receiveFile stores the "file" part at the path built by pathFor.
func receiveFile(c *gin.Context, files *storage.Storage, pathFor func(name string, now time.Time) string) (storage.StoredFile, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return storage.StoredFile{}, utils.BadRequestf("A file is required in the 'file' field.")
	}
	return files.Save(fh, pathFor(fh.Filename, time.Now()))
}

// discard removes a stored upload whose record could not be written.
func discard(files *storage.Storage, f storage.StoredFile) {
	_ = files.Remove(f.Path)
}
