package controllers

import (
	"errors"
	"net/http"

	"frida-keeper/internal/logger"
	"frida-keeper/internal/models"
	"frida-keeper/services"

	"github.com/gin-gonic/gin"
)

// 哨兵错误到HTTP状态码和错误码的映射，按顺序匹配
var errorTable = []struct {
	err    error
	status int
	code   string
}{
	{models.ErrSessionBusy, http.StatusConflict, "session.busy"},
	{models.ErrInvalidTransition, http.StatusConflict, "session.invalid_transition"},
	{models.ErrRootUnavailable, http.StatusForbidden, "device.root_unavailable"},
	{models.ErrReleaseNotFound, http.StatusNotFound, "release.not_found"},
	{models.ErrAssetNotFound, http.StatusNotFound, "release.asset_not_found"},
	{models.ErrNotInstalled, http.StatusNotFound, "server.not_installed"},
	{models.ErrManualFileInvalid, http.StatusBadRequest, "install.invalid_file"},
	{models.ErrNetwork, http.StatusBadGateway, "release.network"},
	{services.ErrDetectorUnavailable, http.StatusServiceUnavailable, "detect.unavailable"},
}

/**
 * Write an error body, choosing the status from the wrapped sentinel
 */
func respondError(c *gin.Context, err error) {
	for _, e := range errorTable {
		if errors.Is(err, e.err) {
			c.JSON(e.status, &models.ErrorResponse{Code: e.code, Message: err.Error()})
			return
		}
	}
	logger.Errorf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	c.JSON(http.StatusInternalServerError, &models.ErrorResponse{Code: "internal", Message: err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, &models.ErrorResponse{Code: "request.invalid", Message: err.Error()})
}

// accepted 长操作已受理
func accepted(c *gin.Context, flowID, message string) {
	c.JSON(http.StatusAccepted, &models.FlowResponse{FlowID: flowID, Message: message})
}
