package web

import (
	"github.com/gin-gonic/gin"
	"github.com/terrycain/offline-cache-gateway/pkg/metrics"
)

func GetRouter(metricsListenAddress string, webHandler *Handlers, withMetrics bool) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), GinLogger())
	if withMetrics {
		router.Use(metrics.PromReqMiddleware())
		go metrics.Server(metricsListenAddress)
	}
	router.Use(XForwardedProto("http"))

	router.GET("/healthz", HealthCheckEndpoint)
	router.GET("/ping", PingEndpoint)

	gw := router.Group("/_gateway")
	gw.GET("/status", webHandler.Status)
	gw.POST("/uploads", webHandler.Upload)
	gw.GET("/uploads", webHandler.PendingUploads)
	gw.GET("/notifications", webHandler.Notifications)
	gw.POST("/notifications/:tag/click", webHandler.ClickNotification)
	gw.GET("/clients", webHandler.ListClients)
	gw.POST("/clients", webHandler.RegisterClient)
	gw.DELETE("/clients/:id", webHandler.UnregisterClient)
	gw.GET("/clients/:id/commands", webHandler.ClientCommands)
	gw.GET("/cameras/:id/snapshot", webHandler.CameraSnapshot)
	gw.GET("/reports/:id/download", webHandler.DownloadReport)
	gw.POST("/commands", webHandler.Command)

	authedGroup := router.Group("/_gateway")
	if webHandler.Auth != nil {
		authedGroup.Use(webHandler.Auth.AuthRequired())
	}
	authedGroup.POST("/install", webHandler.Install)
	authedGroup.POST("/activate", webHandler.Activate)
	authedGroup.POST("/sync/:tag", webHandler.Sync)
	authedGroup.POST("/push", webHandler.Push)

	router.GET("/dashboard", webHandler.Dashboard)
	router.GET("/dashboard/:section", webHandler.Dashboard)
	router.POST("/dashboard/reports", webHandler.GenerateReport)

	router.GET("/_external/:host/*path", webHandler.External)
	router.HEAD("/_external/:host/*path", webHandler.External)

	router.NoRoute(webHandler.Proxy)

	return router
}
