package api

import (
	"goamr/app"
	"goamr/internal"

	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine serving the report API
func NewRouter(service *app.ReportService, logger *internal.Logger, mode string) *gin.Engine {
	if mode != "" {
		gin.SetMode(mode)
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	NewReportHandler(service, logger).RegisterRoutes(r)
	return r
}
