package taskqueue

import (
	"encoding/json"
	"time"
)

// TaskType 任务类型
type TaskType string

const (
	// TaskExtractDocument 单个上传文档的抽取任务
	TaskExtractDocument TaskType = "extract_document"
)

// TaskStatus 任务状态
type TaskStatus string

const (
	// StatusPending 等待处理
	StatusPending TaskStatus = "pending"
	// StatusProcessing 处理中
	StatusProcessing TaskStatus = "processing"
	// StatusCompleted 已完成
	StatusCompleted TaskStatus = "completed"
	// StatusFailed 处理失败
	StatusFailed TaskStatus = "failed"
)

// Finished 判断任务是否已结束
func (s TaskStatus) Finished() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Task 任务基础结构
type Task struct {
	ID          string          `json:"id"`           // 任务唯一标识符
	Type        TaskType        `json:"type"`         // 任务类型
	DocumentID  string          `json:"document_id"`  // 关联的文档ID
	Status      TaskStatus      `json:"status"`       // 任务状态
	Payload     json.RawMessage `json:"payload"`      // 任务载荷数据
	Result      json.RawMessage `json:"result"`       // 任务结果数据
	Error       string          `json:"error"`        // 错误信息（如果处理失败）
	CreatedAt   time.Time       `json:"created_at"`   // 创建时间
	UpdatedAt   time.Time       `json:"updated_at"`   // 更新时间
	StartedAt   *time.Time      `json:"started_at"`   // 开始处理时间
	CompletedAt *time.Time      `json:"completed_at"` // 完成时间
	Attempts    int             `json:"attempts"`     // 尝试次数
	MaxRetries  int             `json:"max_retries"`  // 最大重试次数
}

// ExtractPayload 抽取任务载荷
type ExtractPayload struct {
	DocumentID string `json:"document_id"` // 文档ID
	FilePath   string `json:"file_path"`   // 文件存储路径
	FileName   string `json:"file_name"`   // 原始文件名
}

// ExtractResult 抽取任务结果
type ExtractResult struct {
	DocumentID string   `json:"document_id"`        // 文档ID
	Kind       string   `json:"kind"`               // 文档类型
	Status     string   `json:"status"`             // 文档处理状态
	Error      string   `json:"error,omitempty"`    // 错误信息
	Warnings   []string `json:"warnings,omitempty"` // 解析警告
}
