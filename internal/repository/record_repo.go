package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/fyerfyer/stockplan-extract/internal/database"
	"github.com/fyerfyer/stockplan-extract/internal/models"
	"gorm.io/gorm"
)

// recordRepository 处理结果仓储实现
type recordRepository struct {
	db *gorm.DB // 数据库连接
}

// NewRecordRepository 使用全局数据库连接创建仓储实例
func NewRecordRepository() RecordRepository {
	return &recordRepository{db: database.MustDB()}
}

// NewRecordRepositoryWithDB 使用指定的数据库连接创建仓储实例
func NewRecordRepositoryWithDB(db *gorm.DB) RecordRepository {
	if db == nil {
		db = database.MustDB()
	}
	return &recordRepository{db: db}
}

// CreateRun 创建批次记录
func (r *recordRepository) CreateRun(run *models.ExtractionRun) error {
	if run.ID == "" {
		return errors.New("run ID cannot be empty")
	}
	return r.db.Create(run).Error
}

// FinishRun 写入批次统计并标记结束
func (r *recordRepository) FinishRun(run *models.ExtractionRun) error {
	if run.ID == "" {
		return errors.New("run ID cannot be empty")
	}
	now := time.Now()
	run.FinishedAt = &now
	return r.db.Save(run).Error
}

// GetRun 根据ID获取批次
func (r *recordRepository) GetRun(id string) (*models.ExtractionRun, error) {
	var run models.ExtractionRun
	if err := r.db.Where("id = ?", id).First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", models.ErrRunNotFound, id)
		}
		return nil, err
	}
	return &run, nil
}

// Create 创建文档记录
func (r *recordRepository) Create(doc *models.DocumentRecord) error {
	if doc.ID == "" {
		return errors.New("document ID cannot be empty")
	}
	return r.db.Create(doc).Error
}

// Update 更新文档记录
func (r *recordRepository) Update(doc *models.DocumentRecord) error {
	if doc.ID == "" {
		return errors.New("document ID cannot be empty")
	}
	return r.db.Save(doc).Error
}

// GetByID 根据ID获取文档记录
func (r *recordRepository) GetByID(id string) (*models.DocumentRecord, error) {
	var doc models.DocumentRecord
	if err := r.db.Where("id = ?", id).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", models.ErrDocumentNotFound, id)
		}
		return nil, err
	}
	return &doc, nil
}

// List 列出文档记录，支持分页和筛选
// 支持的筛选条件：status, kind, run_id, file_name
func (r *recordRepository) List(offset, limit int, filters map[string]interface{}) ([]*models.DocumentRecord, int64, error) {
	var docs []*models.DocumentRecord
	var total int64

	query := r.db.Model(&models.DocumentRecord{})

	if filters != nil {
		if status, ok := filters["status"]; ok {
			if s := fmt.Sprintf("%v", status); s != "" {
				query = query.Where("status = ?", s)
			}
		}
		if kind, ok := filters["kind"].(string); ok && kind != "" {
			query = query.Where("kind = ?", kind)
		}
		if runID, ok := filters["run_id"].(string); ok && runID != "" {
			query = query.Where("run_id = ?", runID)
		}
		if fileName, ok := filters["file_name"].(string); ok && fileName != "" {
			query = query.Where("file_name LIKE ?", "%"+fileName+"%")
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("uploaded_at DESC").
		Order("position ASC").
		Offset(offset).
		Limit(limit).
		Find(&docs).Error
	if err != nil {
		return nil, 0, err
	}

	return docs, total, nil
}

// ListCompleted 按处理顺序列出某一类型的全部完成记录
func (r *recordRepository) ListCompleted(kind string) ([]*models.DocumentRecord, error) {
	var docs []*models.DocumentRecord
	err := r.db.Where("kind = ? AND status = ?", kind, models.DocStatusCompleted).
		Order("uploaded_at ASC").
		Order("position ASC").
		Find(&docs).Error
	return docs, err
}

// UpdateStatus 更新文档状态
func (r *recordRepository) UpdateStatus(id string, status models.DocumentStatus, errorMsg string) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %s", models.ErrInvalidDocumentStatus, status)
	}

	updates := map[string]interface{}{
		"status":     status,
		"error":      errorMsg,
		"updated_at": time.Now(),
	}
	if status == models.DocStatusCompleted || status == models.DocStatusUnrecognized || status == models.DocStatusFailed {
		updates["processed_at"] = time.Now()
	}

	result := r.db.Model(&models.DocumentRecord{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", models.ErrDocumentNotFound, id)
	}
	return nil
}

// SetTaskID 只更新task_id列，不覆盖worker写入的状态
func (r *recordRepository) SetTaskID(id, taskID string) error {
	result := r.db.Model(&models.DocumentRecord{}).Where("id = ?", id).Update("task_id", taskID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", models.ErrDocumentNotFound, id)
	}
	return nil
}

// Delete 删除文档记录
func (r *recordRepository) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&models.DocumentRecord{}).Error
}
