package controllers

import (
	"net/http"

	"frida-keeper/internal/models"
	"frida-keeper/services"

	"github.com/gin-gonic/gin"
)

type InstallController struct {
	keeper *services.Keeper
}

func NewInstallController(keeper *services.Keeper) *InstallController {
	return &InstallController{keeper: keeper}
}

/**
 * Register install routes
 * @param {*gin.Engine} r - Gin router instance
 * @description
 * - Install operations are asynchronous, they answer 202 with the flow id
 * - Progress is read from the session endpoint
 */
func (i *InstallController) RegisterRoutes(r *gin.Engine) {
	api := r.Group(API_PREFIX)
	api.GET("/install", i.GetInstall)
	api.POST("/install/latest", i.InstallLatest)
	api.POST("/install/version", i.InstallVersion)
	api.POST("/install/file", i.InstallFile)
	api.DELETE("/install", i.Uninstall)
}

// GetInstall reports the installed server
//
//	@Summary		Install info
//	@Description	Whether an executable server is installed, and its record
//	@Tags			Install
//	@Produce		json
//	@Success		200	{object}	models.InstallInfo
//	@Router			/frida/api/v1/install [get]
func (i *InstallController) GetInstall(c *gin.Context) {
	installer := i.keeper.Installer()
	c.JSON(http.StatusOK, &models.InstallInfo{
		Installed:  installer.IsInstalled(),
		BinaryPath: installer.BinaryPath(),
		Record:     installer.InstalledRecord(),
	})
}

// InstallLatest installs the newest release
//
//	@Summary		Install latest
//	@Description	Without force, an existing install of any version is kept
//	@Tags			Install
//	@Accept			json
//	@Produce		json
//	@Param			body	body		models.InstallRequest	false	"Only force is used"
//	@Success		202		{object}	models.FlowResponse
//	@Failure		409		{object}	models.ErrorResponse	"An operation is in progress"
//	@Router			/frida/api/v1/install/latest [post]
func (i *InstallController) InstallLatest(c *gin.Context) {
	var req models.InstallRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	id, err := i.keeper.Session().InstallLatest(req.Force)
	if err != nil {
		respondError(c, err)
		return
	}
	accepted(c, id, "Installing latest frida server")
}

// InstallVersion installs the release with the given tag
//
//	@Summary		Install version
//	@Description	Install a specific release, optionally remembering it as a saved version
//	@Tags			Install
//	@Accept			json
//	@Produce		json
//	@Param			body	body		models.InstallRequest	true	"Version tag"
//	@Success		202		{object}	models.FlowResponse
//	@Failure		404		{object}	models.ErrorResponse	"Release not listed by the index"
//	@Failure		409		{object}	models.ErrorResponse	"An operation is in progress"
//	@Router			/frida/api/v1/install/version [post]
func (i *InstallController) InstallVersion(c *gin.Context) {
	var req models.InstallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Version == "" {
		c.JSON(http.StatusBadRequest, &models.ErrorResponse{Code: "request.invalid", Message: "version is required"})
		return
	}
	if req.Save {
		if err := i.keeper.SaveVersion(c.Request.Context(), req.Version); err != nil {
			respondError(c, err)
			return
		}
	}
	id, err := i.keeper.Session().InstallVersion(req.Version, req.Force)
	if err != nil {
		respondError(c, err)
		return
	}
	accepted(c, id, "Installing frida server "+req.Version)
}

// InstallFile installs from an archive or binary already on the device
//
//	@Summary		Install from file
//	@Tags			Install
//	@Accept			json
//	@Produce		json
//	@Param			body	body		models.InstallFileRequest	true	"Path on the device"
//	@Success		202		{object}	models.FlowResponse
//	@Failure		409		{object}	models.ErrorResponse	"An operation is in progress"
//	@Router			/frida/api/v1/install/file [post]
func (i *InstallController) InstallFile(c *gin.Context) {
	var req models.InstallFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	id, err := i.keeper.Session().InstallFromManualFile(req.Path)
	if err != nil {
		respondError(c, err)
		return
	}
	accepted(c, id, "Installing frida server from "+req.Path)
}

// Uninstall removes the binary and its record
//
//	@Summary		Uninstall
//	@Tags			Install
//	@Produce		json
//	@Success		202	{object}	models.FlowResponse
//	@Failure		409	{object}	models.ErrorResponse	"An operation is in progress"
//	@Router			/frida/api/v1/install [delete]
func (i *InstallController) Uninstall(c *gin.Context) {
	id, err := i.keeper.Session().Uninstall()
	if err != nil {
		respondError(c, err)
		return
	}
	accepted(c, id, "Uninstalling frida server")
}
