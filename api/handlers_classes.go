package api

import (
	"net/http"

	"classportal/db"
	"classportal/models"
	"classportal/utils"

	"github.com/gin-gonic/gin"
)

// CreateClassRequest is the body of POST /api/classes.
type CreateClassRequest struct {
	ID          string `json:"id" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Color       string `json:"color" binding:"omitempty,hexcolor"`
}

// ListClassesHandler lists the classes in creation order.
// @Summary      List Classes
// @Tags         Classes
// @Produce      json
// @Success      200  {array}   models.Class
// @Router       /classes [get]
func ListClassesHandler(c *gin.Context, database *db.Database) {
	classes, err := database.ListClasses()
	if err != nil {
		utils.GinFromError(c, err)
		return
	}
	c.JSON(http.StatusOK, classes)
}

// CreateClassHandler registers a class.
// @Summary      Create Class
// @Description  The id is lower-cased and can never change afterwards. New classes are active.
// @Tags         Classes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        class body CreateClassRequest true "Class to create"
// @Success      201  {object}  models.Class
// @Failure      400  {object}  utils.APIError
// @Failure      409  {object}  utils.APIError "Conflict: the id is taken."
// @Router       /classes [post]
func CreateClassHandler(c *gin.Context, database *db.Database) {
	var req CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, bindingMessage(err))
		return
	}
	class, err := database.CreateClass(c.Request.Context(), models.Class{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
	})
	if err != nil {
		utils.GinFromError(c, err)
		return
	}
	c.JSON(http.StatusCreated, class)
}

// UpdateClassHandler merges the supplied fields into a class.
// @Summary      Update Class
// @Tags         Classes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id     path  string          true  "Class ID"
// @Param        class  body  db.ClassUpdate  true  "Fields to change"
// @Success      200  {object}  models.Class
// @Failure      400  {object}  utils.APIError "Bad Request: no field supplied."
// @Failure      404  {object}  utils.APIError
// @Router       /classes/{id} [put]
func UpdateClassHandler(c *gin.Context, database *db.Database) {
	var upd db.ClassUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		utils.GinBadRequest(c, bindingMessage(err))
		return
	}
	class, err := database.UpdateClass(c.Request.Context(), c.Param("id"), upd)
	if err != nil {
		utils.GinFromError(c, err)
		return
	}
	c.JSON(http.StatusOK, class)
}

// DeleteClassHandler deletes a class with its documents, kolles, progression and files.
// @Summary      Delete Class
// @Description  Cascades to every document and kolle of the class and removes their files.
// @Tags         Classes
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Class ID"
// @Success      200  {object}  models.ClassDeletion
// @Failure      404  {object}  utils.APIError
// @Router       /classes/{id} [delete]
func DeleteClassHandler(c *gin.Context, database *db.Database) {
	result, err := database.DeleteClass(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.GinFromError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ClassStatsHandler counts the documents and kolles of a class.
// @Summary      Class Statistics
// @Tags         Classes
// @Produce      json
// @Param        id   path      string  true  "Class ID"
// @Success      200  {object}  models.ClassStats
// @Failure      404  {object}  utils.APIError
// @Router       /classes/{id}/stats [get]
func ClassStatsHandler(c *gin.Context, database *db.Database) {
	stats, err := database.ClassStats(c.Param("id"))
	if err != nil {
		utils.GinFromError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
