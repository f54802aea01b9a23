package router

import (
	"sync"

	"github.com/watchtower-soc/watchtower/internal/incident/controller"
	"github.com/watchtower-soc/watchtower/pkg/httpframework"
)

var (
	initIncidentRouterOnce sync.Once
)

// Init expects http framework to be initialized before calling this function
func Init() {
	initIncidentRouterOnce.Do(func() {
		httpframework.Instance().POST("/api/v1/watchtower/webhook/siem", controller.InitV1IncidentController().IngestWebhook)

		incidentAPI := httpframework.Instance().Group("/api/v1/watchtower/incidents")
		{
			incidentAPI.GET("", controller.InitV1IncidentController().List)
			incidentAPI.GET("/:incidentId", controller.InitV1IncidentController().Get)
			incidentAPI.POST("/:incidentId/respond", controller.InitV1IncidentController().Respond)
			incidentAPI.GET("/:incidentId/timeline", controller.InitV1IncidentController().Timeline)
		}
	})
}
