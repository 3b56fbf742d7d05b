package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "smartpot/docs"
	"smartpot/internal/logger"
	"smartpot/internal/service"
)

// Delivery policies of the telemetry stream.
const (
	PolicyPush = "push"
	PolicyPoll = "poll"
)

// StreamConfig selects the fan-out delivery policy per deployment.
type StreamConfig struct {
	Policy       string
	PollInterval time.Duration
}

func (c StreamConfig) withDefaults() StreamConfig {
	if c.Policy != PolicyPush {
		c.Policy = PolicyPoll
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	return c
}

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
	stream   StreamConfig
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger, stream StreamConfig) *Handler {
	return &Handler{services: services, log: log, stream: stream.withDefaults()}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health endpoint
	router.GET("/health", h.health)

	// Versioned API endpoints
	h.registerAPIRoutes(router)

	// WebSocket live feed (HTTP upgrade) on the same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.requestLogger)
	{
		h.registerTelemetryRoutes(api)
		h.registerSessionRoutes(api)
	}
}

func (h *Handler) registerTelemetryRoutes(api *gin.RouterGroup) {
	telemetry := api.Group("/telemetry")
	{
		telemetry.GET("/latest", h.latestReading)
		telemetry.GET("/stream", h.streamTelemetry)
	}
}

func (h *Handler) registerSessionRoutes(api *gin.RouterGroup) {
	sessions := api.Group("/sessions")
	{
		sessions.POST("/start", h.startSession)
		sessions.POST("/stop", h.stopSession)
		sessions.GET("", h.listSessions)
		sessions.GET("/analysis", h.analyzeSessions)
		sessions.GET("/:id", h.getSession)
	}
}
