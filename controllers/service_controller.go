package controllers

import (
	"net/http"

	"frida-keeper/internal/models"
	"frida-keeper/services"

	"github.com/gin-gonic/gin"
)

type ServiceController struct {
	keeper *services.Keeper
}

/**
 * Create new service controller instance
 * @param {*services.Keeper} keeper - Keeper owning the frida server process
 * @returns {*ServiceController} New service controller instance
 */
func NewServiceController(keeper *services.Keeper) *ServiceController {
	return &ServiceController{
		keeper: keeper,
	}
}

/**
 * Register server process routes
 * @param {*gin.Engine} r - Gin router instance
 */
func (s *ServiceController) RegisterRoutes(r *gin.Engine) {
	api := r.Group(API_PREFIX)
	api.GET("/server", s.GetServer)
	api.POST("/server/start", s.StartServer)
	api.POST("/server/stop", s.StopServer)
}

// GetServer reports the server process
//
//	@Summary		Server status
//	@Description	Pid, port, status and last exit of the frida server owned by the daemon
//	@Tags			Server
//	@Produce		json
//	@Success		200	{object}	models.ProcessDetail
//	@Router			/frida/api/v1/server [get]
func (s *ServiceController) GetServer(c *gin.Context) {
	c.JSON(http.StatusOK, s.keeper.Server().Detail())
}

// StartServer starts the server, replacing any running instance
//
//	@Summary		Start server
//	@Description	Port 0 means the saved port; save=true stores the port in the preferences
//	@Tags			Server
//	@Accept			json
//	@Produce		json
//	@Param			body	body		models.StartRequest	false	"Listening port"
//	@Success		202		{object}	models.FlowResponse
//	@Failure		403		{object}	models.ErrorResponse	"Root unavailable"
//	@Failure		409		{object}	models.ErrorResponse	"An operation is in progress"
//	@Router			/frida/api/v1/server/start [post]
func (s *ServiceController) StartServer(c *gin.Context) {
	var req models.StartRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	port := req.Port
	if port == 0 {
		port = s.keeper.Prefs().ServerPort()
	} else if req.Save {
		if err := s.keeper.Prefs().SetServerPort(port); err != nil {
			badRequest(c, err)
			return
		}
	}
	id, err := s.keeper.Session().StartServer(port, services.StartOptions{})
	if err != nil {
		respondError(c, err)
		return
	}
	accepted(c, id, "Starting frida server")
}

// StopServer stops the server and sweeps leftover instances
//
//	@Summary		Stop server
//	@Tags			Server
//	@Produce		json
//	@Success		202	{object}	models.FlowResponse
//	@Router			/frida/api/v1/server/stop [post]
func (s *ServiceController) StopServer(c *gin.Context) {
	id, err := s.keeper.Session().StopServer()
	if err != nil {
		respondError(c, err)
		return
	}
	accepted(c, id, "Stopping frida server")
}

