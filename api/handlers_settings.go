package api

import (
	"net/http"
	"strings"

	"classportal/db"
	"classportal/models"
	"classportal/utils"

	"github.com/gin-gonic/gin"
)

// GetSettingsHandler returns every site setting.
// @Summary      Get Settings
// @Tags         Settings
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /settings [get]
func GetSettingsHandler(c *gin.Context, database *db.Database) {
	settings, err := database.GetSettings()
	if err != nil {
		utils.GinFromError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// GetSettingHandler returns one value, addressed with a gjson path.
// @Summary      Get Setting
// @Description  e.g. `/api/settings/site_title` or `/api/settings/links.0.url`.
// @Tags         Settings
// @Produce      json
// @Param        path  path      string  true  "gjson path"
// @Success      200   {object}  map[string]interface{}
// @Failure      404   {object}  utils.APIError
// @Router       /settings/{path} [get]
func GetSettingHandler(c *gin.Context, database *db.Database) {
	path := c.Param("path")
	value, err := database.GetSetting(path)
	if err != nil {
		utils.GinFromError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": strings.Trim(path, "/"), "value": value})
}

// UpdateSettingsHandler merges the body into the stored settings. A null value removes a key.
// @Summary      Update Settings
// @Tags         Settings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        settings  body  map[string]interface{}  true  "Keys to set"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  utils.APIError
// @Router       /settings [put]
func UpdateSettingsHandler(c *gin.Context, database *db.Database) {
	var patch models.Settings
	if err := c.ShouldBindJSON(&patch); err != nil {
		utils.GinBadRequest(c, bindingMessage(err))
		return
	}
	settings, err := database.UpdateSettings(c.Request.Context(), patch)
	if err != nil {
		utils.GinFromError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}
