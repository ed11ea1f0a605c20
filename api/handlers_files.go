package api

import (
	"fmt"
	"net/http"
	"path/filepath"

	"classportal/storage"
	"classportal/utils"

	"github.com/gin-gonic/gin"
)

// DownloadHandler streams an uploaded file.
// @Summary      Download File
// @Description  `path` is the `file_path` of a document, kolle or program, relative to the uploads directory.
// @Tags         Files
// @Produce      octet-stream
// @Param        path  query  string  true  "Relative file path"
// @Success      200  {file}    file
// @Failure      400  {object}  utils.APIError "Bad Request: absolute path or '..' segment."
// @Failure      404  {object}  utils.APIError
// @Router       /download [get]
func DownloadHandler(c *gin.Context, files *storage.Storage) {
	f, info, err := files.Open(c.Query("path"))
	if err != nil {
		utils.GinFromError(c, err)
		return
	}
	defer f.Close()

	extra := map[string]string{
		"Content-Disposition": fmt.Sprintf("inline; filename=%q", filepath.Base(info.Name())),
	}
	c.DataFromReader(http.StatusOK, info.Size(), storage.DetectType(f), f, extra)
}
