package api

import (
	"net/http"

	"github.com/fyerfyer/stockplan-extract/api/handler"
	"github.com/fyerfyer/stockplan-extract/api/middleware"
	"github.com/gin-gonic/gin"
)

// SetupRouter 设置API路由
// taskHandler为nil时不注册任务查询接口
func SetupRouter(docHandler *handler.DocumentHandler, taskHandler *handler.TaskHandler) *gin.Engine {
	router := gin.New()

	// SetTraceID需要在日志和错误处理之前执行
	router.Use(Cors())
	router.Use(middleware.SetTraceID())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorMiddleware())

	if gin.Mode() == gin.DebugMode {
		router.Use(middleware.ResponseLogger())
	}

	api := router.Group("/api")
	{
		docGroup := api.Group("/documents")
		{
			// 上传确认书 - POST /api/documents
			docGroup.POST("", docHandler.UploadDocument)

			// 文档列表 - GET /api/documents
			docGroup.GET("", docHandler.ListDocuments)

			// 文档状态和提取结果 - GET /api/documents/:id
			docGroup.GET("/:id", docHandler.GetDocument)

			// 删除文档 - DELETE /api/documents/:id
			docGroup.DELETE("/:id", docHandler.DeleteDocument)

			if taskHandler != nil {
				// 文档的抽取任务 - GET /api/documents/:id/tasks
				docGroup.GET("/:id/tasks", taskHandler.GetDocumentTasks)
			}
		}

		if taskHandler != nil {
			// 任务状态 - GET /api/tasks/:id
			api.GET("/tasks/:id", taskHandler.GetTaskStatus)
		}

		// 导出已完成的记录 - GET /api/export?kind=rsu&format=csv
		api.GET("/export", docHandler.ExportRecords)

		// 健康检查 - GET /api/health
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status": "ok",
			})
		})
	}

	return router
}

// Cors 跨域资源共享中间件
func Cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Trace-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
