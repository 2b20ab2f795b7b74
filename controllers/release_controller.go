package controllers

import (
	"net/http"

	"frida-keeper/internal/models"
	"frida-keeper/services"

	"github.com/gin-gonic/gin"
)

type ReleaseController struct {
	keeper *services.Keeper
}

func NewReleaseController(keeper *services.Keeper) *ReleaseController {
	return &ReleaseController{keeper: keeper}
}

/**
 * Register release index and saved version routes
 * @param {*gin.Engine} r - Gin router instance
 */
func (rc *ReleaseController) RegisterRoutes(r *gin.Engine) {
	api := r.Group(API_PREFIX)
	api.GET("/releases", rc.ListReleases)
	api.GET("/versions", rc.ListSaved)
	api.POST("/versions", rc.AddSaved)
	api.DELETE("/versions/:tag", rc.RemoveSaved)
	api.POST("/versions/:tag/switch", rc.SwitchVersion)
}

// ListReleases lists releases carrying a server build
//
//	@Summary		List releases
//	@Description	Newest first, limited by release.limit
//	@Tags			Releases
//	@Produce		json
//	@Success		200	{array}		models.Release
//	@Failure		502	{object}	models.ErrorResponse	"Release index unreachable"
//	@Router			/frida/api/v1/releases [get]
func (rc *ReleaseController) ListReleases(c *gin.Context) {
	releases, err := rc.keeper.ListReleases(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, releases)
}

// ListSaved lists the saved versions
//
//	@Summary		Saved versions
//	@Tags			Releases
//	@Produce		json
//	@Success		200	{array}	string
//	@Router			/frida/api/v1/versions [get]
func (rc *ReleaseController) ListSaved(c *gin.Context) {
	c.JSON(http.StatusOK, rc.keeper.Prefs().SavedVersions())
}

// AddSaved remembers a version listed by the index
//
//	@Summary		Save version
//	@Tags			Releases
//	@Accept			json
//	@Produce		json
//	@Param			body	body		models.VersionRequest	true	"Version tag"
//	@Success		200		{array}		string
//	@Failure		404		{object}	models.ErrorResponse	"Release not listed by the index"
//	@Router			/frida/api/v1/versions [post]
func (rc *ReleaseController) AddSaved(c *gin.Context) {
	var req models.VersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := rc.keeper.SaveVersion(c.Request.Context(), req.Version); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rc.keeper.Prefs().SavedVersions())
}

// RemoveSaved forgets a saved version
//
//	@Summary		Remove saved version
//	@Tags			Releases
//	@Produce		json
//	@Param			tag	path		string	true	"Version tag"
//	@Success		200	{array}		string
//	@Router			/frida/api/v1/versions/{tag} [delete]
func (rc *ReleaseController) RemoveSaved(c *gin.Context) {
	if err := rc.keeper.Prefs().RemoveSavedVersion(c.Param("tag")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rc.keeper.Prefs().SavedVersions())
}

// SwitchVersion reinstalls the given version, restarting a running server
//
//	@Summary		Switch version
//	@Tags			Releases
//	@Produce		json
//	@Param			tag	path		string	true	"Version tag"
//	@Success		202	{object}	models.FlowResponse
//	@Failure		409	{object}	models.ErrorResponse	"An operation is in progress"
//	@Router			/frida/api/v1/versions/{tag}/switch [post]
func (rc *ReleaseController) SwitchVersion(c *gin.Context) {
	tag := c.Param("tag")
	id, err := rc.keeper.Session().SwitchVersion(tag, services.StartOptions{})
	if err != nil {
		respondError(c, err)
		return
	}
	accepted(c, id, "Switching frida server to "+tag)
}
