package server

import "github.com/labstack/echo/v4"

type EchoRouter interface {
	DELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	HEAD(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	PATCH(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	POST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	PUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

type Server interface {
	Health(c echo.Context) error
	ResolvePlace(c echo.Context) error
	ImportShop(c echo.Context) error
	ImportShopAsync(c echo.Context) error
	ImportTaskStatus(c echo.Context) error
	GetShop(c echo.Context) error
	GetSettings(c echo.Context) error
	UpdateSetting(c echo.Context) error
}

func RegisterHandlers(router EchoRouter, si Server, m ...echo.MiddlewareFunc) {
	router.GET("/health", si.Health).Name = "health"
	router.POST("/api/v1/places/resolve", si.ResolvePlace, m...).Name = "resolve-place"
	router.POST("/api/v1/shops/import", si.ImportShop, m...).Name = "import-shop"
	router.POST("/api/v1/shops/import/async", si.ImportShopAsync, m...).Name = "import-shop-async"
	router.GET("/api/v1/shops/import/tasks/:id", si.ImportTaskStatus, m...).Name = "import-task-status"
	router.GET("/api/v1/shops/:id", si.GetShop, m...).Name = "get-shop"
	router.GET("/api/v1/settings", si.GetSettings, m...).Name = "get-settings"
	router.PUT("/api/v1/settings/:key", si.UpdateSetting, m...).Name = "update-setting"
}
