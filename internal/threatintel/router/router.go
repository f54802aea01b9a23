package router

import (
	"sync"

	"github.com/watchtower-soc/watchtower/internal/threatintel/controller"
	"github.com/watchtower-soc/watchtower/pkg/httpframework"
)

var (
	initIntelRouterOnce sync.Once
)

// Init expects http framework to be initialized before calling this function
func Init() {
	initIntelRouterOnce.Do(func() {
		intelAPI := httpframework.Instance().Group("/api/v1/watchtower/threatintel")
		{
			intelAPI.GET("/ip/:ip", controller.InitV1IntelController().LookupIP)
			intelAPI.GET("/hash/:hash", controller.InitV1IntelController().LookupHash)
		}
	})
}
