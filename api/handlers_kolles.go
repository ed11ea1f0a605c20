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

// KolleForm holds the multipart fields of POST /api/kolles.
type KolleForm struct {
	WeekNumber int    `form:"week_number" binding:"required,min=1,max=28"`
	WeekDates  string `form:"week_dates" binding:"required"`
}

// ListKollesHandler lists kolles by week.
// @Summary      List Kolles
// @Tags         Kolles
// @Produce      json
// @Param        X-Class-Id  header  string    false  "Class scope"
// @Param        class       query   string    false  "Class scope (when no header)"
// @Param        q           query   []string  false  "Record filter conditions" collectionFormat(multi)
// @Success      200  {array}   models.Kolle
// @Failure      400  {object}  utils.APIError
// @Router       /kolles [get]
func ListKollesHandler(c *gin.Context, database *db.Database) {
	q, err := db.ParseFilter(c.QueryArray("q"))
	if err != nil {
		utils.GinFromError(c, err)
		return
	}
	kolles, err := database.ListKolles(classFromRequest(c), q)
	if err != nil {
		utils.GinFromError(c, err)
		return
	}
	c.JSON(http.StatusOK, kolles)
}

// CreateKolleHandler uploads the kolle program of a week.
// @Summary      Upload Kolle
// @Description  One kolle per class and week: uploading a week that already has one replaces it and deletes
// @Description  the previous file.
// @Tags         Kolles
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        X-Class-Id   header    string  false  "Class scope"
// @Param        week_number  formData  int     true   "Week, 1 to 28"
// @Param        week_dates   formData  string  true   "e.g. du 6 au 10 octobre"
// @Param        file         formData  file    true   "Kolle program"
// @Success      201  {object}  models.Kolle
// @Failure      400  {object}  utils.APIError
// @Router       /kolles [post]
func CreateKolleHandler(c *gin.Context, database *db.Database, files *storage.Storage) {
	var form KolleForm
	if !bindUpload(c, files, &form) {
		return
	}
	class := classFromRequest(c)
	if class == "" {
		utils.GinBadRequest(c, "A class is required (X-Class-Id header or 'class' parameter).")
		return
	}

	stored, err := receiveFile(c, files, func(name string, now time.Time) string {
		return storage.KollePath(class, form.WeekNumber, name, now)
	})
	if err != nil {
		utils.GinFromError(c, err)
		return
	}

	kolle, err := database.CreateKolle(c.Request.Context(), models.Kolle{
		Class:      class,
		WeekNumber: form.WeekNumber,
		WeekDates:  form.WeekDates,
		Filename:   stored.OriginalName,
		FilePath:   stored.Path,
		FileSize:   stored.Size,
	})
	if err != nil {
		discard(files, stored)
		utils.GinFromError(c, err)
		return
	}
	c.JSON(http.StatusCreated, kolle)
}

// UpdateKolleHandler moves a kolle to another week or edits its dates.
// @Summary      Update Kolle
// @Tags         Kolles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id     path  string          true  "Kolle ID"
// @Param        kolle  body  db.KolleUpdate  true  "Fields to change"
// @Success      200  {object}  models.Kolle
// @Failure      400  {object}  utils.APIError
// @Failure      404  {object}  utils.APIError
// @Failure      409  {object}  utils.APIError "Conflict: the week already has a kolle in this class."
// @Router       /kolles/{id} [put]
func UpdateKolleHandler(c *gin.Context, database *db.Database) {
	var upd db.KolleUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		utils.GinBadRequest(c, bindingMessage(err))
		return
	}
	kolle, err := database.UpdateKolle(c.Request.Context(), c.Param("id"), upd)
	if err != nil {
		utils.GinFromError(c, err)
		return
	}
	c.JSON(http.StatusOK, kolle)
}

// DeleteKolleHandler deletes a kolle and its file.
// @Summary      Delete Kolle
// @Tags         Kolles
// @Security     BearerAuth
// @Param        id   path      string  true  "Kolle ID"
// @Success      204  "No Content"
// @Failure      404  {object}  utils.APIError
// @Router       /kolles/{id} [delete]
func DeleteKolleHandler(c *gin.Context, database *db.Database) {
	if err := database.DeleteKolle(c.Request.Context(), c.Param("id")); err != nil {
		utils.GinFromError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
