package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DocumentStatus 文档处理状态类型
type DocumentStatus string

const (
	// DocStatusUploaded 文档已上传，等待处理
	DocStatusUploaded DocumentStatus = "uploaded"
	// DocStatusProcessing 文档处理中
	DocStatusProcessing DocumentStatus = "processing"
	// DocStatusCompleted 文档处理完成，字段齐全
	DocStatusCompleted DocumentStatus = "completed"
	// DocStatusUnrecognized 未识别出文档类型
	DocStatusUnrecognized DocumentStatus = "unrecognized"
	// DocStatusFailed 文档处理失败
	DocStatusFailed DocumentStatus = "failed"
)

// Valid 判断状态是否合法
func (s DocumentStatus) Valid() bool {
	switch s {
	case DocStatusUploaded, DocStatusProcessing, DocStatusCompleted, DocStatusUnrecognized, DocStatusFailed:
		return true
	}
	return false
}

// ProcessStage 文档处理阶段
type ProcessStage string

const (
	// StageDecoding 读取PDF并重建版面
	StageDecoding ProcessStage = "decoding"
	// StageParsing 段落解析
	StageParsing ProcessStage = "parsing"
	// StageAssembling 字段组装
	StageAssembling ProcessStage = "assembling"
	// StageExporting 按输出结构取值
	StageExporting ProcessStage = "exporting"
	// StageCompleted 处理完成
	StageCompleted ProcessStage = "completed"
)

// ExtractionRun 一次批处理的记录
type ExtractionRun struct {
	ID           string     `gorm:"primaryKey"`         // 批次ID
	Source       string     `gorm:"not null"`           // 输入来源描述
	StartedAt    time.Time  `gorm:"not null;index"`     // 开始时间
	FinishedAt   *time.Time `gorm:"index"`              // 结束时间
	Processed    int        `gorm:"not null;default:0"` // 处理文档数
	Succeeded    int        `gorm:"not null;default:0"` // 成功数
	Unrecognized int        `gorm:"not null;default:0"` // 未识别数
	Failed       int        `gorm:"not null;default:0"` // 失败数
	UpdatedAt    time.Time  `gorm:"not null"`           // 更新时间
}

// BeforeCreate GORM的钩子函数，创建记录前自动设置时间
func (r *ExtractionRun) BeforeCreate(tx *gorm.DB) (err error) {
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	r.UpdatedAt = time.Now()
	return nil
}

// BeforeUpdate GORM的钩子函数，更新记录前自动设置更新时间
func (r *ExtractionRun) BeforeUpdate(tx *gorm.DB) (err error) {
	r.UpdatedAt = time.Now()
	return nil
}

// TableName 明确指定表名
func (ExtractionRun) TableName() string {
	return "extraction_runs"
}

// DocumentRecord 单个文档的处理结果
// Fields保存组装后的FieldMap，Row保存按输出结构取出的一行
type DocumentRecord struct {
	ID           string         `gorm:"primaryKey"`         // 文档ID
	RunID        string         `gorm:"size:50;index"`      // 所属批次，上传的文档为空
	FileName     string         `gorm:"not null"`           // 文件名
	FilePath     string         `gorm:"not null"`           // 存储路径
	FileSize     int64          `gorm:"not null;default:0"` // 文件大小（字节）
	ContentHash  string         `gorm:"size:64;index"`      // 内容SHA-256
	Position     int            `gorm:"not null;default:0"` // 在批次中的发现顺序
	Kind         string         `gorm:"size:20;index"`      // 文档类型 rsu/espp/unknown
	Status       DocumentStatus `gorm:"not null;index"`     // 处理状态
	CurrentStage ProcessStage   `gorm:"size:20"`            // 当前处理阶段
	Error        string         `gorm:"type:text"`          // 错误信息
	Warnings     datatypes.JSON `gorm:"type:json"`          // 解析警告
	Fields       datatypes.JSON `gorm:"type:json"`          // FieldMap，JSON格式
	Row          datatypes.JSON `gorm:"type:json"`          // 输出行
	TaskID       string         `gorm:"size:50;index"`      // 关联的异步任务ID
	UploadedAt   time.Time      `gorm:"not null;index"`     // 创建时间
	ProcessedAt  *time.Time     `gorm:"index"`              // 处理完成时间
	UpdatedAt    time.Time      `gorm:"not null;index"`     // 更新时间
}

// BeforeCreate GORM的钩子函数，创建记录前自动设置时间
func (d *DocumentRecord) BeforeCreate(tx *gorm.DB) (err error) {
	if d.UploadedAt.IsZero() {
		d.UploadedAt = time.Now()
	}
	d.UpdatedAt = time.Now()
	return nil
}

// BeforeUpdate GORM的钩子函数，更新记录前自动设置更新时间
func (d *DocumentRecord) BeforeUpdate(tx *gorm.DB) (err error) {
	d.UpdatedAt = time.Now()
	return nil
}

// TableName 明确指定表名
func (DocumentRecord) TableName() string {
	return "document_records"
}
