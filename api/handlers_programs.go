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

// ProgramForm holds the multipart fields of POST /api/annual-programs.
type ProgramForm struct {
	Title string `form:"title" binding:"required"`
	Year  string `form:"year"`
}

// ListProgramsHandler lists the annual programs, newest first.
// @Summary      List Annual Programs
// @Tags         Annual Programs
// @Produce      json
// @Success      200  {array}  models.AnnualProgram
// @Router       /annual-programs [get]
func ListProgramsHandler(c *gin.Context, database *db.Database) {
	programs, err := database.ListPrograms()
	if err != nil {
		utils.GinFromError(c, err)
		return
	}
	c.JSON(http.StatusOK, programs)
}

// ActiveProgramHandler returns the active program, or null when none is active.
// @Summary      Active Annual Program
// @Tags         Annual Programs
// @Produce      json
// @Success      200  {object}  models.AnnualProgram
// @Router       /annual-programs/active [get]
func ActiveProgramHandler(c *gin.Context, database *db.Database) {
	program, err := database.ActiveProgram()
	if err != nil {
		utils.GinFromError(c, err)
		return
	}
	c.JSON(http.StatusOK, program)
}

// CreateProgramHandler uploads an annual program. New programs are inactive.
// @Summary      Upload Annual Program
// @Tags         Annual Programs
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        title  formData  string  true   "Title"
// @Param        year   formData  string  false  "School year, e.g. 2024-2025"
// @Param        file   formData  file    true   "Program file"
// @Success      201  {object}  models.AnnualProgram
// @Failure      400  {object}  utils.APIError
// @Router       /annual-programs [post]
func CreateProgramHandler(c *gin.Context, database *db.Database, files *storage.Storage) {
	var form ProgramForm
	if !bindUpload(c, files, &form) {
		return
	}

	stored, err := receiveFile(c, files, func(name string, now time.Time) string {
		return storage.AnnualProgramPath(name, now)
	})
	if err != nil {
		utils.GinFromError(c, err)
		return
	}

	program, err := database.CreateProgram(c.Request.Context(), models.AnnualProgram{
		Title:    form.Title,
		Year:     form.Year,
		Filename: stored.OriginalName,
		FilePath: stored.Path,
		FileSize: stored.Size,
	})
	if err != nil {
		discard(files, stored)
		utils.GinFromError(c, err)
		return
	}
	c.JSON(http.StatusCreated, program)
}

// UpdateProgramHandler edits title or year.
// @Summary      Update Annual Program
// @Tags         Annual Programs
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  string            true  "Program ID"
// @Param        program  body  db.ProgramUpdate  true  "Fields to change"
// @Success      200  {object}  models.AnnualProgram
// @Failure      400  {object}  utils.APIError
// @Failure      404  {object}  utils.APIError
// @Router       /annual-programs/{id} [put]
func UpdateProgramHandler(c *gin.Context, database *db.Database) {
	var upd db.ProgramUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		utils.GinBadRequest(c, bindingMessage(err))
		return
	}
	program, err := database.UpdateProgram(c.Request.Context(), c.Param("id"), upd)
	if err != nil {
		utils.GinFromError(c, err)
		return
	}
	c.JSON(http.StatusOK, program)
}

// ToggleProgramHandler makes a program the only active one.
// @Summary      Activate Annual Program
// @Tags         Annual Programs
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Program ID"
// @Success      200  {object}  models.AnnualProgram
// @Failure      404  {object}  utils.APIError
// @Router       /annual-programs/{id}/toggle [put]
func ToggleProgramHandler(c *gin.Context, database *db.Database) {
	program, err := database.ToggleProgram(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.GinFromError(c, err)
		return
	}
	c.JSON(http.StatusOK, program)
}

// DeleteProgramHandler deletes a program and its file.
// @Summary      Delete Annual Program
// @Tags         Annual Programs
// @Security     BearerAuth
// @Param        id   path      string  true  "Program ID"
// @Success      204  "No Content"
// @Failure      404  {object}  utils.APIError
// @Router       /annual-programs/{id} [delete]
func DeleteProgramHandler(c *gin.Context, database *db.Database) {
	if err := database.DeleteProgram(c.Request.Context(), c.Param("id")); err != nil {
		utils.GinFromError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
