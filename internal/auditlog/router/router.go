package router

import (
	"sync"

	"github.com/watchtower-soc/watchtower/internal/auditlog/controller"
	"github.com/watchtower-soc/watchtower/pkg/httpframework"
)

var (
	initAuditRouterOnce sync.Once
)

// Init expects http framework to be initialized before calling this function
func Init() {
	initAuditRouterOnce.Do(func() {
		auditAPI := httpframework.Instance().Group("/api/v1/watchtower/audit")
		{
			auditAPI.GET("/:target", controller.InitV1AuditController().ListByTarget)
		}
	})
}
