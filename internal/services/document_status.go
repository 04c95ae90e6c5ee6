package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/fyerfyer/stockplan-extract/internal/models"
	"github.com/fyerfyer/stockplan-extract/internal/repository"
	"github.com/sirupsen/logrus"
)

// DocumentStatusManager 文档状态管理器
// 负责管理上传文档的处理生命周期
type DocumentStatusManager struct {
	repo   repository.RecordRepository // 结果仓储
	logger *logrus.Logger              // 日志记录器
	mu     sync.Mutex                  // 互斥锁，保证状态转换的原子性
}

// NewDocumentStatusManager 创建文档状态管理器
func NewDocumentStatusManager(repo repository.RecordRepository, logger *logrus.Logger) *DocumentStatusManager {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.InfoLevel)
	}

	return &DocumentStatusManager{
		repo:   repo,
		logger: logger,
	}
}

// 有效的状态转换，失败和未识别的文档允许重新处理
var validTransitions = map[models.DocumentStatus][]models.DocumentStatus{
	models.DocStatusUploaded: {
		models.DocStatusProcessing,
		models.DocStatusCompleted,
		models.DocStatusUnrecognized,
		models.DocStatusFailed,
	},
	// 任务重试时从处理中重新进入
	models.DocStatusProcessing: {
		models.DocStatusProcessing,
		models.DocStatusCompleted,
		models.DocStatusUnrecognized,
		models.DocStatusFailed,
	},
	models.DocStatusCompleted:    {},
	models.DocStatusUnrecognized: {models.DocStatusProcessing},
	models.DocStatusFailed:       {models.DocStatusProcessing},
}

// MarkAsUploaded 创建已上传状态的文档记录
func (m *DocumentStatusManager) MarkAsUploaded(ctx context.Context, doc *models.DocumentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.WithFields(logrus.Fields{
		"doc_id":   doc.ID,
		"filename": doc.FileName,
	}).Info("Marking document as uploaded")

	doc.Status = models.DocStatusUploaded
	return m.repo.Create(doc)
}

// MarkAsProcessing 将文档标记为处理中状态
func (m *DocumentStatusManager) MarkAsProcessing(ctx context.Context, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, err := m.repo.GetByID(docID)
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}
	if err := m.ValidateStateTransition(doc.Status, models.DocStatusProcessing); err != nil {
		return fmt.Errorf("document %s: %w", docID, err)
	}

	m.logger.WithField("doc_id", docID).Info("Marking document as processing")

	doc.Status = models.DocStatusProcessing
	doc.CurrentStage = models.StageDecoding
	doc.Error = ""
	return m.repo.Update(doc)
}

// MarkAsFinished 写入处理结果，状态取自结果本身
func (m *DocumentStatusManager) MarkAsFinished(ctx context.Context, docID string, o Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, err := m.repo.GetByID(docID)
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}
	if err := m.ValidateStateTransition(doc.Status, o.Status); err != nil {
		return fmt.Errorf("document %s: %w", docID, err)
	}

	entry := m.logger.WithFields(logrus.Fields{
		"doc_id": docID,
		"kind":   o.Kind.String(),
		"status": o.Status,
	})
	if o.Err != nil {
		entry.WithError(o.Err).Error("Marking document as failed")
	} else {
		entry.Info("Marking document as finished")
	}

	ApplyOutcome(doc, o)
	return m.repo.Update(doc)
}

// MarkAsFailed 将文档标记为处理失败状态
func (m *DocumentStatusManager) MarkAsFailed(ctx context.Context, docID string, errorMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.repo.GetByID(docID); err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	m.logger.WithFields(logrus.Fields{
		"doc_id": docID,
		"error":  errorMsg,
	}).Error("Marking document as failed")

	return m.repo.UpdateStatus(docID, models.DocStatusFailed, errorMsg)
}

// GetStatus 获取文档当前状态
func (m *DocumentStatusManager) GetStatus(ctx context.Context, docID string) (models.DocumentStatus, error) {
	doc, err := m.repo.GetByID(docID)
	if err != nil {
		return "", fmt.Errorf("failed to get document status: %w", err)
	}
	return doc.Status, nil
}

// GetDocument 获取完整的文档记录
func (m *DocumentStatusManager) GetDocument(ctx context.Context, docID string) (*models.DocumentRecord, error) {
	return m.repo.GetByID(docID)
}

// ListDocuments 获取文档列表
func (m *DocumentStatusManager) ListDocuments(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*models.DocumentRecord, int64, error) {
	return m.repo.List(offset, limit, filters)
}

// DeleteDocument 删除文档记录
func (m *DocumentStatusManager) DeleteDocument(ctx context.Context, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.WithField("doc_id", docID).Info("Deleting document record")
	return m.repo.Delete(docID)
}

// ValidateStateTransition 验证状态转换的有效性
func (m *DocumentStatusManager) ValidateStateTransition(from, to models.DocumentStatus) error {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", models.ErrInvalidDocumentStatus, from, to)
}
