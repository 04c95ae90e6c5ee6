package repository

import "github.com/fyerfyer/stockplan-extract/internal/models"

// RecordRepository 处理结果仓储接口
// 负责批次和文档处理结果的存储和检索
type RecordRepository interface {
	// CreateRun 创建批次记录
	CreateRun(run *models.ExtractionRun) error

	// FinishRun 写入批次统计并标记结束
	FinishRun(run *models.ExtractionRun) error

	// GetRun 根据ID获取批次
	GetRun(id string) (*models.ExtractionRun, error)

	// Create 创建文档记录
	Create(doc *models.DocumentRecord) error

	// Update 更新文档记录
	Update(doc *models.DocumentRecord) error

	// GetByID 根据ID获取文档记录
	GetByID(id string) (*models.DocumentRecord, error)

	// List 列出文档记录，支持分页和筛选
	List(offset, limit int, filters map[string]interface{}) ([]*models.DocumentRecord, int64, error)

	// ListCompleted 按处理顺序列出某一类型的全部完成记录
	ListCompleted(kind string) ([]*models.DocumentRecord, error)

	// UpdateStatus 更新文档状态
	UpdateStatus(id string, status models.DocumentStatus, errorMsg string) error

	// SetTaskID 记录关联的异步任务ID
	SetTaskID(id, taskID string) error

	// Delete 删除文档记录
	Delete(id string) error
}
