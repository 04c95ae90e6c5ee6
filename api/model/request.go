package model

import "mime/multipart"

// 分页请求参数
type PaginationRequest struct {
	Page     int `form:"page" json:"page" binding:"omitempty,min=1"`           // 当前页码，从1开始
	PageSize int `form:"page_size" json:"page_size" binding:"omitempty,min=1"` // 每页记录数
}

// GetPage 获取页码，默认为1
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页记录数，默认为10，最大为100
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 10
	}
	if p.PageSize > 100 {
		return 100
	}
	return p.PageSize
}

// Offset 返回分页偏移量
func (p *PaginationRequest) Offset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

// DocumentUploadRequest 文档上传请求
type DocumentUploadRequest struct {
	File *multipart.FileHeader `form:"file" binding:"required"` // 确认书PDF
}

// DocumentIDRequest 按ID访问文档的请求
type DocumentIDRequest struct {
	ID string `uri:"id" binding:"required"` // 文档ID
}

// DocumentListRequest 文档列表请求
type DocumentListRequest struct {
	PaginationRequest
	Status   string `form:"status" json:"status" binding:"omitempty,oneof=uploaded processing completed unrecognized failed"` // 文档状态
	Kind     string `form:"kind" json:"kind" binding:"omitempty,oneof=rsu espp unknown"`                                      // 文档类型
	RunID    string `form:"run_id" json:"run_id" binding:"omitempty"`                                                         // 批次ID
	FileName string `form:"filename" json:"filename" binding:"omitempty"`                                                     // 文件名模糊匹配
}

// ExportRequest 导出请求，Kind为空时导出所有类型
type ExportRequest struct {
	Kind   string `form:"kind" binding:"omitempty,oneof=rsu espp"`
	Format string `form:"format" binding:"omitempty,oneof=csv markdown md html"`
}
