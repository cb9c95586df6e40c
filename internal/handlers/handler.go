package handlers

import (
	"aquarium_dashboard/internal/logger"
	"aquarium_dashboard/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{services: services, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.requestLogger)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", h.health)

	h.registerAPIRoutes(router)

	// render stream on the same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		h.registerDashboardRoutes(api)
		h.registerFeedingRoutes(api)
	}
}

func (h *Handler) registerDashboardRoutes(api *gin.RouterGroup) {
	api.GET("/dashboard", h.getDashboard)
	api.POST("/refresh", h.refresh)
	// Body example: {"timeline":"week"}
	api.PUT("/timeline", h.setTimeline)
	// Body example: {"view":"feeding"}
	api.PUT("/view", h.setView)
	api.GET("/tank-profile", h.getTankProfile)
	api.PUT("/tank-profile", h.saveTankProfile)
	api.GET("/alerts", h.getAlerts)
	// Body example: {"quantity_g":2.5}
	api.POST("/prediction", h.predict)
}

func (h *Handler) registerFeedingRoutes(api *gin.RouterGroup) {
	feedings := api.Group("/feedings")
	{
		feedings.GET("", h.listFeedings)
		// Body example: {"feed_time":"2024-05-01T08:00","quantity_g":2}
		feedings.POST("", h.createFeeding)
		feedings.PUT("", h.editFeeding)
		feedings.POST("/delete", h.openDelete)
		feedings.POST("/delete/confirm", h.confirmDelete)
		feedings.DELETE("/delete", h.cancelDelete)
	}
}
