package model

import (
	"encoding/json"
	"time"

	"github.com/fyerfyer/stockplan-extract/internal/models"
)

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`               // 响应状态码，0表示成功
	Message string      `json:"message"`            // 响应消息
	Data    interface{} `json:"data,omitempty"`     // 响应数据，可能为空
	TraceID string      `json:"trace_id,omitempty"` // 调用链追踪ID
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Code:    0,
		Message: "success",
		Data:    data,
	}
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code int, message string) *Response {
	return &Response{
		Code:    code,
		Message: message,
	}
}

// DocumentUploadResponse 文档上传响应
type DocumentUploadResponse struct {
	FileID   string `json:"file_id"`           // 文件ID
	FileName string `json:"filename"`          // 文件名
	Status   string `json:"status"`            // 文档状态
	Kind     string `json:"kind,omitempty"`    // 同步处理时的文档类型
	TaskID   string `json:"task_id,omitempty"` // 异步处理时的任务ID
	Error    string `json:"error,omitempty"`   // 错误信息
}

// DocumentResponse 文档详情
type DocumentResponse struct {
	FileID      string                       `json:"file_id"`                // 文档ID
	FileName    string                       `json:"filename"`               // 文件名
	Status      string                       `json:"status"`                 // 处理状态
	Stage       string                       `json:"stage,omitempty"`        // 当前阶段
	Kind        string                       `json:"kind,omitempty"`         // 文档类型
	RunID       string                       `json:"run_id,omitempty"`       // 批次ID
	TaskID      string                       `json:"task_id,omitempty"`      // 任务ID
	Error       string                       `json:"error,omitempty"`        // 错误信息
	Warnings    []string                     `json:"warnings,omitempty"`     // 解析警告
	Fields      map[string]map[string]string `json:"fields,omitempty"`       // 段落名 -> 字段名 -> 值
	Row         []string                     `json:"row,omitempty"`          // 输出行
	CreatedAt   time.Time                    `json:"created_at"`             // 创建时间
	ProcessedAt *time.Time                   `json:"processed_at,omitempty"` // 处理完成时间
}

// NewDocumentResponse 将文档记录转换为响应结构
func NewDocumentResponse(doc *models.DocumentRecord) DocumentResponse {
	resp := DocumentResponse{
		FileID:      doc.ID,
		FileName:    doc.FileName,
		Status:      string(doc.Status),
		Stage:       string(doc.CurrentStage),
		Kind:        doc.Kind,
		RunID:       doc.RunID,
		TaskID:      doc.TaskID,
		Error:       doc.Error,
		CreatedAt:   doc.UploadedAt,
		ProcessedAt: doc.ProcessedAt,
	}

	// JSON列可能为空或null，解析失败时保持零值
	if len(doc.Warnings) > 0 {
		_ = json.Unmarshal(doc.Warnings, &resp.Warnings)
	}
	if len(doc.Fields) > 0 {
		_ = json.Unmarshal(doc.Fields, &resp.Fields)
	}
	if len(doc.Row) > 0 {
		_ = json.Unmarshal(doc.Row, &resp.Row)
	}
	return resp
}

// DocumentListResponse 文档列表响应
type DocumentListResponse struct {
	Total     int64              `json:"total"`     // 总数量
	Page      int                `json:"page"`      // 当前页码
	PageSize  int                `json:"page_size"` // 每页大小
	Documents []DocumentResponse `json:"documents"` // 文档列表
}

// DocumentDeleteResponse 文档删除响应
type DocumentDeleteResponse struct {
	Success bool   `json:"success"` // 是否成功
	FileID  string `json:"file_id"` // 文件ID
}

// TaskResponse 任务状态
type TaskResponse struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	DocumentID string          `json:"document_id"`
	Status     string          `json:"status"`
	Error      string          `json:"error,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	Attempts   int             `json:"attempts"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
