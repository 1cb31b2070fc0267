package api

import (
	"github.com/gin-gonic/gin"

	"videosumapi/config"
	"videosumapi/task"
)

func SetupRouter(tm *task.Manager, cfg *config.Config) *gin.Engine {
	r := gin.Default()
	h := NewHandler(tm, cfg)

	r.GET("/", h.handleRoot)
	r.GET("/health", h.handleHealth)

	authed := r.Group("/")
	authed.Use(AuthMiddleware(cfg))
	{
		authed.POST("/process-video", h.handleProcessVideo)
		authed.POST("/process-folder", h.handleProcessFolder)
		authed.POST("/webhook/process", h.handleWebhookProcess)

		authed.GET("/task/:taskId", h.handleGetTaskStatus)
		authed.GET("/tasks", h.handleListTasks)

		authed.GET("/files", h.handleListFiles)
		authed.GET("/files/:filename", h.handleGetFile)
	}
	return r
}
