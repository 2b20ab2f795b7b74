package controllers

import (
	"net/http"

	"frida-keeper/internal/config"
	"frida-keeper/internal/models"
	"frida-keeper/services"

	"github.com/gin-gonic/gin"
)

const API_PREFIX = "/frida/api/v1"

type APIController struct {
	keeper *services.Keeper
}

/**
 * Create new API controller instance
 * @param {*services.Keeper} keeper - Keeper holding the session and components
 * @returns {*APIController} New API controller instance
 */
func NewAPIController(keeper *services.Keeper) *APIController {
	return &APIController{
		keeper: keeper,
	}
}

/**
 * Register health, config and session routes
 * @param {*gin.Engine} r - Gin router instance
 */
func (a *APIController) RegisterRoutes(r *gin.Engine) {
	api := r.Group(API_PREFIX)
	api.POST("/reload", a.ReloadConfig)
	api.GET("/session", a.GetSession)
	api.POST("/session/reset", a.ResetSession)
	r.GET("/healthz", a.Healthz)
}

// @Summary 重新加载配置
// @Description 重新加载应用配置文件，已创建的组件保持原配置
// @Tags Config
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} models.ErrorResponse
// @Router /frida/api/v1/reload [post]
func (a *APIController) ReloadConfig(c *gin.Context) {
	if err := config.ReloadConfig(); err != nil {
		c.JSON(http.StatusInternalServerError, &models.ErrorResponse{
			Code:    "config.reload_failed",
			Message: "Failed to reload configuration: " + err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Configuration reloaded successfully",
	})
}

// @Summary 业务就绪探针
// @Description 返回版本、启动时间、安装和运行状态以及请求统计
// @Tags System
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Router /healthz [get]
func (a *APIController) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, a.keeper.GetHealthz())
}

// GetSession returns the orchestration state
//
//	@Summary		Session state
//	@Description	Current status, message log, download progress and server pid/port
//	@Tags			Session
//	@Produce		json
//	@Success		200	{object}	models.SessionState
//	@Router			/frida/api/v1/session [get]
func (a *APIController) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, a.keeper.Session().State())
}

// ResetSession leaves the error state
//
//	@Summary		Reset session
//	@Description	Return to idle with an empty log, install state is re-read from disk
//	@Tags			Session
//	@Produce		json
//	@Success		200	{object}	models.SessionState
//	@Failure		409	{object}	models.ErrorResponse	"An operation is in progress"
//	@Router			/frida/api/v1/session/reset [post]
func (a *APIController) ResetSession(c *gin.Context) {
	if err := a.keeper.Session().Reset(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a.keeper.Session().State())
}
