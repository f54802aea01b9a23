package router

import (
	"github.com/gin-gonic/gin"

	"github.com/watchtower-soc/watchtower/internal/auth/controller"
	"github.com/watchtower-soc/watchtower/pkg/httpframework"
)

// Init expects http framework to be initialized before calling this function
func Init() {
	api := httpframework.Instance().Group("/")
	{
		api.POST("/register", controller.NewController().Register)
		api.POST("/login", controller.NewController().Login)
		api.POST("/logout", controller.NewController().Logout)
		api.GET("/users", controller.NewController().GetAllUsers)
		api.PUT("/update-user", controller.NewController().UpdateUserAccessAndRole)
		api.GET("/health", Health)
	}
}

func Health(c *gin.Context) {
	c.JSON(200, gin.H{"message": "Application is up!!!"})
}
