package router

import (
	"sync"

	"github.com/watchtower-soc/watchtower/internal/response/controller"
	"github.com/watchtower-soc/watchtower/pkg/httpframework"
)

var (
	initMonitorRouterOnce sync.Once
)

// Init expects http framework to be initialized before calling this function
func Init() {
	initMonitorRouterOnce.Do(func() {
		monitorAPI := httpframework.Instance().Group("/api/v1/watchtower/response")
		{
			monitorAPI.POST("/:incidentId/monitor", controller.NewController().OpenMonitor)
			monitorAPI.DELETE("/:incidentId/monitor", controller.NewController().CloseMonitor)
			monitorAPI.GET("/:incidentId/snapshot", controller.NewController().GetSnapshot)
			monitorAPI.POST("/:incidentId/action", controller.NewController().DispatchAction)
		}
	})
}
