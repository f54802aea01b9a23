package controller

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	authController "github.com/watchtower-soc/watchtower/internal/auth/controller"
	"github.com/watchtower-soc/watchtower/internal/configs"
	"github.com/watchtower-soc/watchtower/internal/constant"
	"github.com/watchtower-soc/watchtower/internal/incident/handler"
)

var (
	once       sync.Once
	controller *V1
)

type V1 struct {
	handler        handler.Handler
	siemWebhookKey string
}

func InitV1IncidentController() *V1 {
	once.Do(func() {
		controller = &V1{
			handler:        handler.GetIncidentHandler(1),
			siemWebhookKey: configs.Instance().SiemWebhookKey,
		}
	})
	return controller
}

// IngestWebhook accepts a raw SIEM alert. When a webhook key is configured
// the X-SIEM-Key header must match.
func (c *V1) IngestWebhook(ctx *gin.Context) {
	if c.siemWebhookKey != "" && ctx.GetHeader("X-SIEM-Key") != c.siemWebhookKey {
		log.Error().Str("path", ctx.Request.URL.Path).Msg("SIEM webhook key mismatch")
		ctx.JSON(http.StatusUnauthorized, gin.H{constant.Error: "Invalid webhook key"})
		return
	}

	var req handler.IngestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{constant.Error: "Invalid request body"})
		return
	}
	inc, err := c.handler.Ingest(req)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{constant.Error: err.Error()})
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{constant.Data: inc})
}

// List returns incidents, optionally filtered by response status
func (c *V1) List(ctx *gin.Context) {
	limit := parseIntQuery(ctx, "limit", 50)
	offset := parseIntQuery(ctx, "offset", 0)
	incidents, err := c.handler.List(ctx.Query("status"), limit, offset)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{constant.Error: "Failed to list incidents"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{constant.Data: incidents})
}

// Get returns a single incident by id
func (c *V1) Get(ctx *gin.Context) {
	inc, err := c.handler.Get(ctx.Param("incidentId"))
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{constant.Error: "Incident not found"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{constant.Data: inc})
}

// Respond triggers the response workflow for an incident. Restricted to
// analysts and admins.
func (c *V1) Respond(ctx *gin.Context) {
	email, role, err := authController.ParseAuthenticationHeader(ctx)
	if err != nil {
		return
	}
	if role != constant.RoleAnalyst && role != constant.RoleAdmin {
		ctx.JSON(http.StatusForbidden, gin.H{constant.Error: "Analyst or admin role required"})
		return
	}
	token, ok := authController.BearerToken(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{constant.Error: "Authorization header required"})
		return
	}

	inc, err := c.handler.Respond(ctx.Param("incidentId"), email, token)
	if err != nil {
		if err == handler.ErrNotFound {
			ctx.JSON(http.StatusNotFound, gin.H{constant.Error: "Incident not found"})
			return
		}
		ctx.JSON(http.StatusConflict, gin.H{constant.Error: err.Error()})
		return
	}
	ctx.JSON(http.StatusAccepted, gin.H{constant.Data: inc})
}

// Timeline returns the incident's merged history
func (c *V1) Timeline(ctx *gin.Context) {
	entries, err := c.handler.Timeline(ctx.Param("incidentId"))
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{constant.Error: "Incident not found"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{constant.Data: entries})
}

func parseIntQuery(ctx *gin.Context, key string, fallback int) int {
	raw := ctx.Query(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}
