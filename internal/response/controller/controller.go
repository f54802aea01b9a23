package controller

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	authController "github.com/watchtower-soc/watchtower/internal/auth/controller"
	"github.com/watchtower-soc/watchtower/internal/constant"
	"github.com/watchtower-soc/watchtower/internal/response"
	monitorHandler "github.com/watchtower-soc/watchtower/internal/response/handler"
)

type Monitor interface {
	OpenMonitor(ctx *gin.Context)
	CloseMonitor(ctx *gin.Context)
	GetSnapshot(ctx *gin.Context)
	DispatchAction(ctx *gin.Context)
}

var (
	monitor         Monitor
	monitorInitOnce sync.Once
)

type V1 struct {
	handler monitorHandler.Handler
}

func NewController() Monitor {
	if monitor == nil {
		monitorInitOnce.Do(func() {
			handler := monitorHandler.GetMonitorHandler()
			if handler == nil {
				panic("Failed to initialize workflow monitor handler")
			}
			monitor = &V1{
				handler: handler,
			}
		})
	}
	return monitor
}

// OpenMonitor starts polling the workflow run for an incident.
// POST /api/v1/watchtower/response/:incidentId/monitor
func (v *V1) OpenMonitor(ctx *gin.Context) {
	incidentID := ctx.Param("incidentId")
	token, ok := authController.BearerToken(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{constant.Error: "Authorization header required"})
		return
	}
	if err := v.handler.OpenMonitor(incidentID, token); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{constant.Error: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{constant.Message: "Monitor session opened"})
}

// CloseMonitor disposes the incident's polling session.
// DELETE /api/v1/watchtower/response/:incidentId/monitor
func (v *V1) CloseMonitor(ctx *gin.Context) {
	incidentID := ctx.Param("incidentId")
	v.handler.CloseMonitor(incidentID)
	ctx.JSON(http.StatusOK, gin.H{constant.Message: "Monitor session closed"})
}

// GetSnapshot returns the latest reconciled workflow view.
// GET /api/v1/watchtower/response/:incidentId/snapshot
func (v *V1) GetSnapshot(ctx *gin.Context) {
	incidentID := ctx.Param("incidentId")
	view, err := v.handler.MonitorView(incidentID)
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{constant.Error: err.Error(), constant.Data: nil})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{constant.Error: nil, constant.Data: view})
}

type actionRequest struct {
	Action string `json:"action"`
}

// DispatchAction issues one control command against the workflow run.
// POST /api/v1/watchtower/response/:incidentId/action
func (v *V1) DispatchAction(ctx *gin.Context) {
	incidentID := ctx.Param("incidentId")

	email, role, err := authController.ParseAuthenticationHeader(ctx)
	if err != nil {
		return
	}
	if role != constant.RoleAnalyst && role != constant.RoleAdmin {
		ctx.JSON(http.StatusForbidden, gin.H{constant.Error: "only analysts or admins can steer automated responses"})
		return
	}

	var request actionRequest
	if err := ctx.BindJSON(&request); err != nil {
		log.Error().Err(err).Msg("Error in binding request body")
		ctx.JSON(http.StatusBadRequest, gin.H{constant.Error: err.Error()})
		return
	}

	outcome, err := v.handler.Dispatch(incidentID, request.Action, email)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{constant.Error: err.Error()})
		return
	}

	// An unsupported control surface is informational, not an error; the
	// UI surfaces the message and moves on.
	status := http.StatusOK
	if outcome.Status == response.DispatchFailed {
		status = http.StatusBadGateway
	}
	ctx.JSON(status, gin.H{constant.Error: nil, constant.Data: outcome})
}
