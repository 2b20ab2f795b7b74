package controllers

import (
	"net/http"

	"frida-keeper/internal/models"
	"frida-keeper/services"

	"github.com/gin-gonic/gin"
)

/**
 * Preferences, detection and Wi-Fi ADB routes
 */
type DeviceController struct {
	keeper *services.Keeper
}

func NewDeviceController(keeper *services.Keeper) *DeviceController {
	return &DeviceController{keeper: keeper}
}

func (d *DeviceController) RegisterRoutes(r *gin.Engine) {
	api := r.Group(API_PREFIX)
	api.GET("/prefs", d.GetPrefs)
	api.PUT("/prefs", d.UpdatePrefs)
	api.POST("/detect", d.Detect)
	api.GET("/adb", d.AdbStatus)
	api.POST("/adb/enable", d.EnableAdb)
	api.POST("/adb/disable", d.DisableAdb)
}

func (d *DeviceController) prefsView() *models.PreferencesView {
	prefs := d.keeper.Prefs()
	port := prefs.ServerPort()
	autoStart := prefs.AutoStartEnabled()
	dark := prefs.DarkTheme()
	return &models.PreferencesView{
		ServerPort:    &port,
		AutoStart:     &autoStart,
		DarkTheme:     &dark,
		SavedVersions: prefs.SavedVersions(),
	}
}

// @Summary 查看偏好设置
// @Tags Preferences
// @Produce json
// @Success 200 {object} models.PreferencesView
// @Router /frida/api/v1/prefs [get]
func (d *DeviceController) GetPrefs(c *gin.Context) {
	c.JSON(http.StatusOK, d.prefsView())
}

// @Summary 修改偏好设置
// @Description 只修改请求中出现的字段，保存版本请使用versions接口
// @Tags Preferences
// @Accept json
// @Produce json
// @Param body body models.PreferencesView true "Fields to change"
// @Success 200 {object} models.PreferencesView
// @Failure 400 {object} models.ErrorResponse
// @Router /frida/api/v1/prefs [put]
func (d *DeviceController) UpdatePrefs(c *gin.Context) {
	var req models.PreferencesView
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	prefs := d.keeper.Prefs()
	if req.ServerPort != nil {
		if err := prefs.SetServerPort(*req.ServerPort); err != nil {
			badRequest(c, err)
			return
		}
	}
	if req.AutoStart != nil {
		if err := prefs.SetAutoStartEnabled(*req.AutoStart); err != nil {
			respondError(c, err)
			return
		}
	}
	if req.DarkTheme != nil {
		if err := prefs.SetDarkTheme(*req.DarkTheme); err != nil {
			respondError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, d.prefsView())
}

// @Summary 执行注入检测
// @Description 运行配置的检测器并返回报告
// @Tags Device
// @Produce json
// @Success 200 {object} models.DetectionSummary
// @Failure 503 {object} models.ErrorResponse "No detector configured"
// @Router /frida/api/v1/detect [post]
func (d *DeviceController) Detect(c *gin.Context) {
	summary, err := d.keeper.Detector().Scan(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"threatLevel": summary.ThreatLevel(),
		"summary":     summary,
	})
}

// @Summary 无线ADB状态
// @Tags Device
// @Produce json
// @Success 200 {object} models.AdbStatus
// @Router /frida/api/v1/adb [get]
func (d *DeviceController) AdbStatus(c *gin.Context) {
	c.JSON(http.StatusOK, d.keeper.Adb().Status(c.Request.Context()))
}

// @Summary 开启无线ADB
// @Tags Device
// @Produce json
// @Success 200 {object} models.AdbStatus
// @Failure 403 {object} models.ErrorResponse "Root unavailable"
// @Router /frida/api/v1/adb/enable [post]
func (d *DeviceController) EnableAdb(c *gin.Context) {
	st, err := d.keeper.Adb().Enable(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary 关闭无线ADB
// @Tags Device
// @Produce json
// @Success 200 {object} models.AdbStatus
// @Failure 403 {object} models.ErrorResponse "Root unavailable"
// @Router /frida/api/v1/adb/disable [post]
func (d *DeviceController) DisableAdb(c *gin.Context) {
	if err := d.keeper.Adb().Disable(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d.keeper.Adb().Status(c.Request.Context()))
}
