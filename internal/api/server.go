package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexconsult/mtr-api/internal/api/handlers"
	"github.com/nexconsult/mtr-api/internal/api/middleware"
	"github.com/nexconsult/mtr-api/internal/config"
	"github.com/nexconsult/mtr-api/internal/services"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Dependencies are the services the router needs
type Dependencies struct {
	MTR    services.MTRServiceInterface
	Stats  services.StatsServiceInterface
	Health handlers.HealthSource
}

// Server represents the HTTP server
type Server struct {
	Router      *gin.Engine
	config      *config.Config
	logger      *logrus.Logger
	deps        Dependencies
	rateLimiter *middleware.RateLimiter
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, logger *logrus.Logger, container *services.Container) *Server {
	return NewServerWithDependencies(cfg, logger, Dependencies{
		MTR:    container.MTRService,
		Stats:  container.StatsService,
		Health: container,
	})
}

// NewServerWithDependencies creates a server from explicit dependencies
func NewServerWithDependencies(cfg *config.Config, logger *logrus.Logger, deps Dependencies) *Server {
	server := &Server{
		config: cfg,
		logger: logger,
		deps:   deps,
	}

	server.setupRouter()
	return server
}

// Close releases middleware resources
func (s *Server) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}

type route struct {
	path    string
	handler gin.HandlerFunc
}

// setupRouter configures the router with all routes and middleware
func (s *Server) setupRouter() {
	s.Router = gin.New()

	// Global middleware
	s.Router.Use(middleware.RequestID())
	s.Router.Use(middleware.Logger(s.logger))
	s.Router.Use(middleware.Recovery(s.logger))
	s.Router.Use(middleware.CORS(s.config.Security.CORS))
	s.Router.Use(middleware.Security())

	serviceName := s.config.Server.ServiceName

	// Health and metrics (no rate limiting)
	healthHandler := handlers.NewHealthHandler(s.deps.Health, serviceName, s.logger)
	s.Router.GET("/healthz", healthHandler.GetLiveness)
	s.Router.GET("/health/ready", healthHandler.GetReadiness)
	s.rateLimiter = middleware.NewRateLimiter(s.config.Security.RateLimit)
	s.Router.GET("/metrics", handlers.NewMetricsHandler(s.deps.Stats, s.rateLimiter, serviceName, s.logger).GetMetrics)

	// Swagger documentation
	if s.config.Server.Environment != "production" {
		s.Router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
		s.Router.GET("/", func(c *gin.Context) {
			c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
		})
	}

	gateway := s.Router.Group("/", s.rateLimiter.Middleware())

	mtrHandler := handlers.NewMTRHandler(s.deps.MTR, s.logger)
	partnerHandler := handlers.NewPartnerHandler(s.deps.MTR, s.logger)
	dmrHandler := handlers.NewDMRHandler(s.deps.MTR, s.logger)

	routes := []route{
		{"/feam/mtr/retorna-manifesto-codigo-de-barras", mtrHandler.FEAMManifest},
		{"/semad/mtr/retorna-manifesto", mtrHandler.SEMADManifest},
		{"/sigor/mtr/retorna-manifesto", mtrHandler.SinirFamilyManifest(config.AgencySIGOR)},
		{"/sinir/mtr/retorna-manifesto", mtrHandler.SinirFamilyManifest(config.AgencySINIR)},
		{"/mtr/retorna-manifesto", mtrHandler.SinirFamilyManifest(config.AgencyMTR)},
		{"/fepam/mtr/retorna-manifesto", mtrHandler.FEPAMManifest},
		{"/ima/mtr/retorna-manifesto", mtrHandler.EmbeddedManifest(config.AgencyIMA)},
		{"/inea/mtr/retorna-manifesto", mtrHandler.EmbeddedManifest(config.AgencyINEA)},

		{"/fepam/parceiro/pesquisar", partnerHandler.Search(config.AgencyFEPAM)},
		{"/ima/parceiro/pesquisar", partnerHandler.Search(config.AgencyIMA)},
		{"/inea/parceiro/pesquisar", partnerHandler.Search(config.AgencyINEA)},
		{"/semad/parceiro/pesquisar", partnerHandler.Search(config.AgencySEMAD)},

		{"/feam/dmr/listar", dmrHandler.List},
		{"/feam/dmr/filtrar", dmrHandler.Filter},
		{"/feam/dmr/atualizar-itens", dmrHandler.UpdateItems},
		{"/feam/dmr/declaracao", dmrHandler.Declaration},
		{"/dmr/parse", dmrHandler.Parse},
	}
	for _, r := range routes {
		gateway.POST(r.path, r.handler)
	}

	// 404 handler
	s.Router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":     "Not Found",
			"message":   "The requested resource was not found",
			"timestamp": time.Now(),
			"path":      c.Request.URL.Path,
		})
	})

	// 405 handler
	s.Router.HandleMethodNotAllowed = true
	s.Router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"error":     "Method Not Allowed",
			"message":   "The requested method is not allowed for this resource",
			"timestamp": time.Now(),
			"path":      c.Request.URL.Path,
			"method":    c.Request.Method,
		})
	})
}
