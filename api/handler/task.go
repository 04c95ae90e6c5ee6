package handler

import (
	"net/http"

	"github.com/fyerfyer/stockplan-extract/api/middleware"
	"github.com/fyerfyer/stockplan-extract/api/model"
	"github.com/fyerfyer/stockplan-extract/internal/logging"
	"github.com/fyerfyer/stockplan-extract/pkg/taskqueue"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// TaskHandler 处理任务相关的API请求
type TaskHandler struct {
	queue  taskqueue.Queue // 任务队列
	logger *logrus.Logger  // 日志记录器
}

// NewTaskHandler 创建新的任务处理器
func NewTaskHandler(queue taskqueue.Queue) *TaskHandler {
	return &TaskHandler{
		queue:  queue,
		logger: logging.GetLogger(),
	}
}

func newTaskResponse(task *taskqueue.Task) model.TaskResponse {
	return model.TaskResponse{
		ID:         task.ID,
		Type:       string(task.Type),
		DocumentID: task.DocumentID,
		Status:     string(task.Status),
		Error:      task.Error,
		Result:     task.Result,
		Attempts:   task.Attempts,
		CreatedAt:  task.CreatedAt,
		UpdatedAt:  task.UpdatedAt,
	}
}

// GetTaskStatus 获取任务状态
// GET /api/tasks/:id
func (h *TaskHandler) GetTaskStatus(c *gin.Context) {
	taskID := c.Param("id")
	if taskID == "" {
		middleware.HandleError(c, middleware.NewValidationError("task id is required"))
		return
	}

	task, err := h.queue.GetTask(c.Request.Context(), taskID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(newTaskResponse(task)))
}

// GetDocumentTasks 获取文档相关的所有任务
// GET /api/documents/:id/tasks
func (h *TaskHandler) GetDocumentTasks(c *gin.Context) {
	documentID := c.Param("id")

	tasks, err := h.queue.GetTasksByDocument(c.Request.Context(), documentID)
	if err != nil {
		h.logger.WithError(err).WithField("document_id", documentID).Error("Failed to get document tasks")
		middleware.HandleError(c, err)
		return
	}

	resp := make([]model.TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		resp = append(resp, newTaskResponse(task))
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(gin.H{
		"document_id": documentID,
		"tasks":       resp,
	}))
}
