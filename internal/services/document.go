package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fyerfyer/stockplan-extract/internal/document"
	"github.com/fyerfyer/stockplan-extract/internal/export"
	"github.com/fyerfyer/stockplan-extract/internal/models"
	"github.com/fyerfyer/stockplan-extract/internal/repository"
	"github.com/fyerfyer/stockplan-extract/internal/section"
	"github.com/fyerfyer/stockplan-extract/pkg/storage"
	"github.com/fyerfyer/stockplan-extract/pkg/taskqueue"
	"github.com/sirupsen/logrus"
)

// DocumentService 上传文档服务
// 负责保存上传的确认书、同步或异步提取字段，并导出已完成的记录
type DocumentService struct {
	extractor     *ExtractionService          // 提取服务
	storage       storage.Storage             // 文件存储服务
	repo          repository.RecordRepository // 结果仓储
	statusManager *DocumentStatusManager      // 文档状态管理器
	taskQueue     taskqueue.Queue             // 任务队列
	asyncEnabled  bool                        // 是否启用异步处理
	timeout       time.Duration               // 同步处理超时时间
	logger        *logrus.Logger              // 日志记录器
}

// DocumentOption 文档服务配置选项
type DocumentOption func(*DocumentService)

// NewDocumentService 创建一个新的文档服务
func NewDocumentService(extractor *ExtractionService, repo repository.RecordRepository, opts ...DocumentOption) *DocumentService {
	srv := &DocumentService{
		extractor: extractor,
		storage:   extractor.Storage(),
		repo:      repo,
		timeout:   time.Minute,
		logger:    extractor.logger,
	}

	for _, opt := range opts {
		opt(srv)
	}

	if srv.statusManager == nil {
		srv.statusManager = NewDocumentStatusManager(repo, srv.logger)
	}
	return srv
}

// WithDocumentLogger 设置日志记录器
func WithDocumentLogger(logger *logrus.Logger) DocumentOption {
	return func(s *DocumentService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTimeout 设置同步处理超时时间
func WithTimeout(timeout time.Duration) DocumentOption {
	return func(s *DocumentService) {
		s.timeout = timeout
	}
}

// WithStatusManager 设置状态管理器
func WithStatusManager(manager *DocumentStatusManager) DocumentOption {
	return func(s *DocumentService) {
		s.statusManager = manager
	}
}

// WithTaskQueue 设置任务队列，非空时上传的文档异步处理
func WithTaskQueue(queue taskqueue.Queue) DocumentOption {
	return func(s *DocumentService) {
		s.taskQueue = queue
		s.asyncEnabled = queue != nil
	}
}

// AsyncEnabled 是否异步处理上传的文档
func (s *DocumentService) AsyncEnabled() bool {
	return s.asyncEnabled
}

// Upload 保存上传的文件并提取字段
// 启用任务队列时只入队，返回uploaded状态的记录
func (s *DocumentService) Upload(ctx context.Context, reader io.Reader, filename string) (*models.DocumentRecord, error) {
	if !document.Supported(filename) {
		return nil, fmt.Errorf("%w: %s", models.ErrUnsupportedFile, filename)
	}

	info, err := s.storage.Save(ctx, reader, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	doc := &models.DocumentRecord{
		ID:       info.ID,
		FileName: filename,
		FilePath: info.Path,
		FileSize: info.Size,
	}
	if err := s.statusManager.MarkAsUploaded(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create document record: %w", err)
	}

	if s.asyncEnabled {
		payload := taskqueue.ExtractPayload{
			DocumentID: doc.ID,
			FilePath:   doc.FilePath,
			FileName:   doc.FileName,
		}
		taskID, err := s.taskQueue.Enqueue(ctx, taskqueue.TaskExtractDocument, doc.ID, payload)
		if err != nil {
			_ = s.statusManager.MarkAsFailed(ctx, doc.ID, err.Error())
			return nil, fmt.Errorf("failed to enqueue extraction task: %w", err)
		}
		doc.TaskID = taskID
		if err := s.repo.SetTaskID(doc.ID, taskID); err != nil {
			s.logger.WithError(err).WithField("doc_id", doc.ID).Warn("Failed to record task id")
		}
		s.logger.WithFields(logrus.Fields{
			"doc_id":  doc.ID,
			"task_id": taskID,
		}).Info("Extraction task enqueued")
		return doc, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := s.ExtractDocument(ctx, doc.ID); err != nil {
		return nil, err
	}
	return s.repo.GetByID(doc.ID)
}

// ExtractDocument 处理已保存的文档并写入结果
// 文档级失败记录在结果中，只有状态读写失败时返回错误
func (s *DocumentService) ExtractDocument(ctx context.Context, docID string) (Outcome, error) {
	doc, err := s.repo.GetByID(docID)
	if err != nil {
		return Outcome{}, err
	}
	if err := s.statusManager.MarkAsProcessing(ctx, docID); err != nil {
		return Outcome{}, err
	}

	o := s.extractor.ProcessFile(ctx, storage.FileInfo{
		ID:   doc.ID,
		Name: doc.FileName,
		Size: doc.FileSize,
		Path: doc.FilePath,
	})

	if err := s.statusManager.MarkAsFinished(ctx, docID, o); err != nil {
		return o, err
	}
	return o, nil
}

// ProcessTask 处理抽取任务，实现taskqueue.Handler
func (s *DocumentService) ProcessTask(ctx context.Context, task *taskqueue.Task) (interface{}, error) {
	var payload taskqueue.ExtractPayload
	if err := taskqueue.UnmarshalPayload(task.Payload, &payload); err != nil {
		return nil, err
	}

	o, err := s.ExtractDocument(ctx, payload.DocumentID)
	if err != nil {
		return nil, err
	}

	result := &taskqueue.ExtractResult{
		DocumentID: payload.DocumentID,
		Kind:       o.Kind.String(),
		Status:     string(o.Status),
		Warnings:   o.Warnings,
	}
	if o.Err != nil {
		result.Error = o.Err.Error()
	}
	return result, nil
}

// GetDocument 获取文档记录
func (s *DocumentService) GetDocument(ctx context.Context, docID string) (*models.DocumentRecord, error) {
	return s.statusManager.GetDocument(ctx, docID)
}

// ListDocuments 分页列出文档记录
func (s *DocumentService) ListDocuments(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*models.DocumentRecord, int64, error) {
	return s.statusManager.ListDocuments(ctx, offset, limit, filters)
}

// DeleteDocument 删除文档记录及其存储的文件
func (s *DocumentService) DeleteDocument(ctx context.Context, docID string) error {
	doc, err := s.repo.GetByID(docID)
	if err != nil {
		return err
	}
	if err := s.storage.Delete(ctx, doc.FilePath); err != nil {
		s.logger.WithError(err).WithField("doc_id", docID).Warn("Failed to delete stored file")
	}
	return s.statusManager.DeleteDocument(ctx, docID)
}

// Export 将已完成的记录按类型写出，kinds为空时导出所有类型
func (s *DocumentService) Export(ctx context.Context, w io.Writer, format export.Format, kinds ...section.Kind) error {
	if len(kinds) == 0 {
		for _, schema := range export.Schemas() {
			kinds = append(kinds, schema.Kind)
		}
	}

	tables := export.NewTables()
	for _, kind := range kinds {
		if _, ok := export.SchemaFor(kind); !ok {
			return fmt.Errorf("no export schema for kind %s", kind)
		}
		docs, err := s.repo.ListCompleted(kind.String())
		if err != nil {
			return fmt.Errorf("failed to list completed documents: %w", err)
		}
		for _, doc := range docs {
			var row []string
			if err := json.Unmarshal(doc.Row, &row); err != nil {
				s.logger.WithError(err).WithField("doc_id", doc.ID).Warn("Skipping document with malformed row")
				continue
			}
			tables.Append(kind, row)
		}
	}

	return export.Write(w, format, tables.List())
}
