package router

import (
	"github.com/gin-gonic/gin"

	"validity.app/auditor/internal/http/handler"
	"validity.app/auditor/internal/service"
)

func SetupRoutes(router *gin.Engine, services *service.Services) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		analysisHandler := handler.NewAnalysisHandler(services.Analysis(), services.Calls())
		AnalysisRouter(v1.Group("/analyses"), analysisHandler)

		jobHandler := handler.NewJobHandler(services.Jobs())
		JobRouter(v1.Group("/jobs"), jobHandler)

		taxonomyHandler := handler.NewTaxonomyHandler(services.Taxonomy())
		v1.GET("/taxonomy", taxonomyHandler.Get)
	}
}

func AnalysisRouter(rg *gin.RouterGroup, h *handler.AnalysisHandler) {
	rg.POST("", h.Create)
	rg.GET("/:id/calls", h.ListCalls)
}

func JobRouter(rg *gin.RouterGroup, h *handler.JobHandler) {
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
}
