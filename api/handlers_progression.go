package api

import (
	"net/http"

	"classportal/db"
	"classportal/models"
	"classportal/utils"

	"github.com/gin-gonic/gin"
)

// ReplaceProgressionRequest is the body of PUT /api/progression/{classId}.
type ReplaceProgressionRequest struct {
	Chapters []models.ChapterProgress `json:"chapters"`
}

// ChapterStatusRequest is the body of PUT /api/progression/{classId}/chapters/{chapterId}.
type ChapterStatusRequest struct {
	Status string `json:"status" binding:"required,progress_status"`
}

// ReorderRequest is the body of PUT /api/progression/{classId}/reorder.
type ReorderRequest struct {
	ChapterIDs []string `json:"chapterIds"`
}

// GetProgressionHandler returns the progression of a class.
// @Summary      Get Progression
// @Description  The first read creates the default progression: every catalog chapter, `a-venir`, in catalog order.
// @Tags         Progression
// @Produce      json
// @Param        classId  path      string  true  "Class ID"
// @Success      200      {object}  models.Progression
// @Router       /progression/{classId} [get]
func GetProgressionHandler(c *gin.Context, database *db.Database) {
	p, err := database.GetProgression(c.Request.Context(), c.Param("classId"))
	if err != nil {
		utils.GinFromError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// ReplaceProgressionHandler overwrites the chapter list of a class.
// @Summary      Replace Progression
// @Tags         Progression
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        classId      path  string                     true  "Class ID"
// @Param        progression  body  ReplaceProgressionRequest  true  "Chapter list"
// @Success      200  {object}  models.Progression
// @Failure      400  {object}  utils.APIError
// @Router       /progression/{classId} [put]
func ReplaceProgressionHandler(c *gin.Context, database *db.Database) {
	var req ReplaceProgressionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, bindingMessage(err))
		return
	}
	p, err := database.ReplaceProgression(c.Request.Context(), c.Param("classId"), req.Chapters)
	if err != nil {
		utils.GinFromError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// DeleteProgressionHandler drops the progression of a class. The next read recreates it.
// @Summary      Delete Progression
// @Tags         Progression
// @Security     BearerAuth
// @Param        classId  path  string  true  "Class ID"
// @Success      204  "No Content"
// @Failure      404  {object}  utils.APIError
// @Router       /progression/{classId} [delete]
func DeleteProgressionHandler(c *gin.Context, database *db.Database) {
	if err := database.DeleteProgression(c.Request.Context(), c.Param("classId")); err != nil {
		utils.GinFromError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetChapterStatusHandler sets the status of one chapter.
// @Summary      Set Chapter Status
// @Description  Catalog chapters missing from the progression are appended first. The response is the whole
// @Description  progression, so clients see those appended chapters along with the updated one.
// @Tags         Progression
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        classId    path  string                true  "Class ID"
// @Param        chapterId  path  string                true  "Chapter ID"
// @Param        status     body  ChapterStatusRequest  true  "a-venir, en-cours or termine"
// @Success      200  {object}  models.Progression
// @Failure      400  {object}  utils.APIError
// @Failure      404  {object}  utils.APIError
// @Router       /progression/{classId}/chapters/{chapterId} [put]
func SetChapterStatusHandler(c *gin.Context, database *db.Database) {
	var req ChapterStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, bindingMessage(err))
		return
	}
	p, err := database.SetChapterStatus(c.Request.Context(), c.Param("classId"), c.Param("chapterId"), req.Status)
	if err != nil {
		utils.GinFromError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// ReorderProgressionHandler renumbers the chapters in the given order.
// @Summary      Reorder Progression
// @Description  `chapterIds` must list every chapter of the progression exactly once.
// @Tags         Progression
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        classId  path  string          true  "Class ID"
// @Param        order    body  ReorderRequest  true  "New order"
// @Success      200  {object}  models.Progression
// @Failure      400  {object}  utils.APIError
// @Router       /progression/{classId}/reorder [put]
func ReorderProgressionHandler(c *gin.Context, database *db.Database) {
	var req ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, bindingMessage(err))
		return
	}
	p, err := database.ReorderProgression(c.Request.Context(), c.Param("classId"), req.ChapterIDs)
	if err != nil {
		utils.GinFromError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// ResetProgressionHandler rebuilds the progression from the catalog.
// @Summary      Reset Progression
// @Tags         Progression
// @Produce      json
// @Security     BearerAuth
// @Param        classId  path      string  true  "Class ID"
// @Success      200      {object}  models.Progression
// @Router       /progression/{classId}/reset [post]
func ResetProgressionHandler(c *gin.Context, database *db.Database) {
	p, err := database.ResetProgression(c.Request.Context(), c.Param("classId"))
	if err != nil {
		utils.GinFromError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// SyncProgressionHandler appends new catalog chapters and promotes chapters that have documents.
// @Summary      Sync Progression
// @Tags         Progression
// @Produce      json
// @Security     BearerAuth
// @Param        classId  path      string  true  "Class ID"
// @Success      200      {object}  models.Progression
// @Router       /progression/{classId}/sync [post]
func SyncProgressionHandler(c *gin.Context, database *db.Database) {
	p, err := database.SyncProgression(c.Request.Context(), c.Param("classId"))
	if err != nil {
		utils.GinFromError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
