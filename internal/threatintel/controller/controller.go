package controller

import (
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/watchtower-soc/watchtower/internal/constant"
	"github.com/watchtower-soc/watchtower/internal/threatintel/handler"
)

var (
	once       sync.Once
	controller *V1
)

type V1 struct {
	handler handler.Handler
}

func InitV1IntelController() *V1 {
	once.Do(func() {
		controller = &V1{
			handler: handler.GetIntelHandler(1),
		}
	})
	return controller
}

// LookupIP returns aggregated reputation for an IP address
func (c *V1) LookupIP(ctx *gin.Context) {
	ip := ctx.Param("ip")
	if net.ParseIP(ip) == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{constant.Error: "Invalid IP address"})
		return
	}
	intel, err := c.handler.LookupIP(ctx.Request.Context(), ip)
	if err != nil {
		ctx.JSON(http.StatusBadGateway, gin.H{constant.Error: "Threat intel lookup failed"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{constant.Data: intel})
}

// LookupHash returns aggregated reputation for a file hash
func (c *V1) LookupHash(ctx *gin.Context) {
	hash := ctx.Param("hash")
	if len(hash) != 32 && len(hash) != 40 && len(hash) != 64 {
		ctx.JSON(http.StatusBadRequest, gin.H{constant.Error: "Hash must be MD5, SHA1 or SHA256"})
		return
	}
	intel, err := c.handler.LookupHash(ctx.Request.Context(), hash)
	if err != nil {
		ctx.JSON(http.StatusBadGateway, gin.H{constant.Error: "Threat intel lookup failed"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{constant.Data: intel})
}
