package router

import (
	"adserve/internal/middleware"
	"adserve/internal/rest"

	"github.com/labstack/echo/v4"
)

func SetupServingRoutes(api *echo.Group, serveHandler *rest.ServeHandler, eventHandler *rest.EventHandler) {
	ads := api.Group("/ads", middleware.RequestTrace())

	ads.POST("/serve", serveHandler.Serve)
	ads.POST("/serve/debug", serveHandler.DebugServe)
	ads.POST("/events", eventHandler.Record)
}

func SetServingAdminRoutes(api *echo.Group, handler *rest.ServingAdminHandler) {
	admin := api.Group("/admin/serving", middleware.AuthMiddleware(), middleware.AdminOnly())

	admin.GET("/config", handler.GetConfig)
	admin.PUT("/config", handler.UpsertConfig)
	admin.PUT("/catalog", handler.ReplaceCatalog)
	admin.GET("/arms", handler.ListArms)
}
