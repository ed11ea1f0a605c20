package api

import (
	"net/http"

	"classportal/db"
	"classportal/models"
	"classportal/utils"

	"github.com/gin-gonic/gin"
)

// CreateChapterRequest is the body of POST /api/chapters.
type CreateChapterRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// ListChaptersHandler returns the chapter catalog.
// @Summary      List Chapters
// @Tags         Chapters
// @Produce      json
// @Success      200  {array}  models.Chapter
// @Router       /chapters [get]
func ListChaptersHandler(c *gin.Context, database *db.Database) {
	chapters, err := database.ListChapters()
	if err != nil {
		utils.GinFromError(c, err)
		return
	}
	c.JSON(http.StatusOK, chapters)
}

// CreateChapterHandler adds a chapter to the catalog.
// @Summary      Create Chapter
// @Description  The id is derived from the name: accents stripped, lower-cased, other characters collapsed to
// @Description  hyphens ("Équations différentielles" becomes `equations-differentielles`).
// @Tags         Chapters
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        chapter body CreateChapterRequest true "Chapter"
// @Success      201  {object}  models.Chapter
// @Failure      400  {object}  utils.APIError
// @Failure      409  {object}  utils.APIError "Conflict: a chapter with the same id exists."
// @Router       /chapters [post]
func CreateChapterHandler(c *gin.Context, database *db.Database) {
	var req CreateChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, bindingMessage(err))
		return
	}
	chapter, err := database.CreateChapter(c.Request.Context(), models.Chapter{
		Name:        req.Name,
		Description: req.Description,
		Icon:        req.Icon,
	})
	if err != nil {
		utils.GinFromError(c, err)
		return
	}
	c.JSON(http.StatusCreated, chapter)
}

// UpdateChapterHandler edits a chapter. Its id never changes.
// @Summary      Update Chapter
// @Tags         Chapters
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  string            true  "Chapter ID"
// @Param        chapter  body  db.ChapterUpdate  true  "Fields to change"
// @Success      200  {object}  models.Chapter
// @Failure      404  {object}  utils.APIError
// @Router       /chapters/{id} [put]
func UpdateChapterHandler(c *gin.Context, database *db.Database) {
	var upd db.ChapterUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		utils.GinBadRequest(c, bindingMessage(err))
		return
	}
	chapter, err := database.UpdateChapter(c.Request.Context(), c.Param("id"), upd)
	if err != nil {
		utils.GinFromError(c, err)
		return
	}
	c.JSON(http.StatusOK, chapter)
}

// DeleteChapterHandler removes a chapter from the catalog. Documents filed under it are kept.
// @Summary      Delete Chapter
// @Tags         Chapters
// @Security     BearerAuth
// @Param        id   path      string  true  "Chapter ID"
// @Success      204  "No Content"
// @Failure      404  {object}  utils.APIError
// @Router       /chapters/{id} [delete]
func DeleteChapterHandler(c *gin.Context, database *db.Database) {
	if err := database.DeleteChapter(c.Request.Context(), c.Param("id")); err != nil {
		utils.GinFromError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
