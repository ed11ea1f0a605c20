package api

import (
	"net/http"
	"time"

	"classportal/db"
	"classportal/models"
	"classportal/storage"
	"classportal/utils"

	"github.com/gin-gonic/gin"
)

// DocumentForm holds the multipart fields of POST /api/documents. The file goes in "file".
type DocumentForm struct {
	Title    string `form:"title" binding:"required"`
	Category string `form:"category" binding:"required"`
	Type     string `form:"type" binding:"required"`
}

// ListDocumentsHandler lists documents grouped by category.
// @Summary      List Documents
// @Description  Returns `{category: [documents]}` with the newest document first in each category, or a flat
// @Description  list with `flat=true`. Scope to a class with the `X-Class-Id` header or the `class` parameter.
// @Tags         Documents
// @Produce      json
// @Param        X-Class-Id  header  string    false  "Class scope"
// @Param        class       query   string    false  "Class scope (when no header)"
// @Param        category    query   string    false  "Chapter id"
// @Param        type        query   string    false  "Document type, e.g. cours"
// @Param        flat        query   bool      false  "Return a flat list"
// @Param        q           query   []string  false  "Record filter conditions" collectionFormat(multi)
// @Success      200  {object}  map[string][]models.Document
// @Failure      400  {object}  utils.APIError "Bad Request: invalid filter."
// @Router       /documents [get]
func ListDocumentsHandler(c *gin.Context, database *db.Database) {
	q, err := db.ParseFilter(c.QueryArray("q"))
	if err != nil {
		utils.GinFromError(c, err)
		return
	}
	docs, err := database.ListDocuments(db.DocumentFilter{
		Class:    classFromRequest(c),
		Category: c.Query("category"),
		Type:     c.Query("type"),
		Query:    q,
	})
	if err != nil {
		utils.GinFromError(c, err)
		return
	}
	if c.Query("flat") == "true" {
		c.JSON(http.StatusOK, docs)
		return
	}
	c.JSON(http.StatusOK, db.GroupByCategory(docs))
}

// GetDocumentHandler returns a single document.
// @Summary      Get Document
// @Tags         Documents
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  models.Document
// @Failure      404  {object}  utils.APIError
// @Router       /documents/{id} [get]
func GetDocumentHandler(c *gin.Context, database *db.Database) {
	doc, err := database.GetDocument(c.Param("id"))
	if err != nil {
		utils.GinFromError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// CreateDocumentHandler uploads a document.
// @Summary      Upload Document
// @Description  Multipart upload. The file is stored under `documents/<category>/` and, when the class has a
// @Description  progression, the chapter matching `category` moves from `a-venir` to `en-cours`.
// @Tags         Documents
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        X-Class-Id  header    string  false  "Class scope"
// @Param        class       formData  string  false  "Class scope (when no header)"
// @Param        title       formData  string  true   "Title"
// @Param        category    formData  string  true   "Chapter id"
// @Param        type        formData  string  true   "cours, exercices, ds, dm, ap, interro..."
// @Param        file        formData  file    true   "pdf, doc, docx, odt, ppt, pptx, png, jpg or jpeg"
// @Success      201  {object}  models.Document
// @Failure      400  {object}  utils.APIError
// @Router       /documents [post]
func CreateDocumentHandler(c *gin.Context, database *db.Database, files *storage.Storage) {
	var form DocumentForm
	if !bindUpload(c, files, &form) {
		return
	}
	class := classFromRequest(c)
	if class == "" {
		utils.GinBadRequest(c, "A class is required (X-Class-Id header or 'class' parameter).")
		return
	}

	stored, err := receiveFile(c, files, func(name string, now time.Time) string {
		return storage.DocumentPath(form.Category, name, now)
	})
	if err != nil {
		utils.GinFromError(c, err)
		return
	}

	doc, err := database.CreateDocument(c.Request.Context(), models.Document{
		Class:    class,
		Title:    form.Title,
		Filename: stored.OriginalName,
		Category: form.Category,
		Type:     form.Type,
		FilePath: stored.Path,
		FileSize: stored.Size,
	})
	if err != nil {
		discard(files, stored)
		utils.GinFromError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

// UpdateDocumentHandler edits title, category or type. The file never changes.
// @Summary      Update Document
// @Tags         Documents
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id        path  string             true  "Document ID"
// @Param        document  body  db.DocumentUpdate  true  "Fields to change"
// @Success      200  {object}  models.Document
// @Failure      400  {object}  utils.APIError
// @Failure      404  {object}  utils.APIError
// @Router       /documents/{id} [put]
func UpdateDocumentHandler(c *gin.Context, database *db.Database) {
	var upd db.DocumentUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		utils.GinBadRequest(c, bindingMessage(err))
		return
	}
	doc, err := database.UpdateDocument(c.Request.Context(), c.Param("id"), upd)
	if err != nil {
		utils.GinFromError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// DeleteDocumentHandler deletes a document and its file.
// @Summary      Delete Document
// @Tags         Documents
// @Security     BearerAuth
// @Param        id   path      string  true  "Document ID"
// @Success      204  "No Content"
// @Failure      404  {object}  utils.APIError
// @Router       /documents/{id} [delete]
func DeleteDocumentHandler(c *gin.Context, database *db.Database) {
	if err := database.DeleteDocument(c.Request.Context(), c.Param("id")); err != nil {
		utils.GinFromError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
