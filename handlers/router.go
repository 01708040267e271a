package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"edition-publisher/helper"
	"edition-publisher/logger"
	"edition-publisher/metrics"
	"edition-publisher/middleware"
	"edition-publisher/models"
	"edition-publisher/services"
)

// RouterDeps are what SetupRouter wires into the HTTP surface.
type RouterDeps struct {
	Services *services.Services
	Helper   *helper.HTTPHelper
	Logger   *logger.Logger
	Metrics  *metrics.Metrics
	// Gatherer backs /metrics; the route is omitted when nil.
	Gatherer prometheus.Gatherer
}

func SetupRouter(d RouterDeps) *gin.Engine {
	if d.Helper == nil {
		d.Helper = helper.NewHTTPHelper()
	}
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	h := d.Helper

	authHandler := NewAuthHandler(d.Services.Auth, h)
	tagHandler := NewTagHandler(d.Services.Tags, h)
	artefactHandler := NewArtefactHandler(d.Services.Artefacts, h)
	editionHandler := NewEditionHandler(d.Services, h)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(d.Logger.Component("http")), middleware.Metrics(d.Metrics), middleware.CORS())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	if d.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		v1.POST("/slugs/check", artefactHandler.CheckSlug)

		protected := v1.Group("/")
		protected.Use(middleware.AuthMiddleware(h))
		{
			protected.GET("/profile", authHandler.GetProfile)

			artefacts := protected.Group("/artefacts")
			{
				artefacts.POST("", artefactHandler.CreateArtefact)
				artefacts.GET("", artefactHandler.GetArtefacts)
				artefacts.GET("/:id", artefactHandler.GetArtefact)
				artefacts.PATCH("/:id", middleware.RequireRole(h, models.RoleEditor), artefactHandler.UpdateArtefact)
			}

			documents := protected.Group("/documents")
			{
				documents.GET("/:document_id/editions", editionHandler.GetSeries)
				documents.GET("/:document_id/metadata", editionHandler.Metadata)
			}

			editions := protected.Group("/editions")
			{
				editions.GET("", editionHandler.GetEditions)
				editions.GET("/lookup", editionHandler.FindBySlug)
				editions.GET("/:id", editionHandler.GetEdition)
				editions.PUT("/:id", editionHandler.UpdateEdition)
				editions.DELETE("/:id", middleware.RequireRole(h, models.RoleEditor), editionHandler.DeleteEdition)
				editions.GET("/:id/actions", editionHandler.AvailableActions)
				editions.POST("/:id/transitions", editionHandler.Transition)
				editions.POST("/:id/clone", editionHandler.Clone)
				editions.POST("/:id/publish", editionHandler.Publish)
				editions.POST("/:id/emergency-publish", editionHandler.EmergencyPublish)
				editions.GET("/:id/indexable-content", editionHandler.IndexableContent)
			}

			tags := protected.Group("/tags")
			{
				tags.POST("", middleware.RequireRole(h, models.RoleAdmin), tagHandler.CreateTag)
				tags.GET("", tagHandler.GetTags)
				tags.GET("/:id", tagHandler.GetTag)
			}
		}
	}

	return router
}
