package server

import (
	"github.com/gin-gonic/gin"
)

// SetupRouter wires all routes onto a fresh gin engine.
func SetupRouter(
	docH *DocumentHandler,
	fmtH *FormatHandler,
	setH *SettingsHandler,
	expH *ExportHandler,
	wsH *WSHandler,
	maxUploadBytes int64,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if maxUploadBytes > 0 {
		r.MaxMultipartMemory = maxUploadBytes
	}

	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })

	v1 := r.Group("/api/v1")

	docs := v1.Group("/documents")
	docs.POST("", docH.Upload)
	docs.GET("", docH.List)
	docs.GET("/:id", docH.GetByID)
	docs.POST("/:id/retry", docH.Retry)
	docs.DELETE("/:id", docH.Delete)

	v1.POST("/format", fmtH.Format)
	v1.GET("/export", expH.Export)

	settings := v1.Group("/settings")
	settings.GET("/:key", setH.Get)
	settings.PUT("/:key", setH.Put)
	settings.DELETE("/:key", setH.Delete)

	r.GET("/ws", wsH.Serve)

	return r
}
