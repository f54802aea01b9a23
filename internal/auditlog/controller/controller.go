package controller

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/watchtower-soc/watchtower/internal/auditlog/handler"
	"github.com/watchtower-soc/watchtower/internal/constant"
)

var (
	once       sync.Once
	controller *V1
)

type V1 struct {
	handler handler.Handler
}

func InitV1AuditController() *V1 {
	once.Do(func() {
		controller = &V1{
			handler: handler.GetAuditHandler(1),
		}
	})
	return controller
}

// ListByTarget returns the audit trail for a target entity
func (c *V1) ListByTarget(ctx *gin.Context) {
	target := ctx.Param("target")
	if target == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{constant.Error: "Target is required"})
		return
	}
	limit := 100
	if raw := ctx.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{constant.Error: "Invalid limit"})
			return
		}
		limit = parsed
	}
	entries, err := c.handler.ListByTarget(target, limit)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{constant.Error: "Failed to list audit events"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{constant.Data: entries})
}
