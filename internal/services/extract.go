package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fyerfyer/stockplan-extract/internal/cache"
	"github.com/fyerfyer/stockplan-extract/internal/document"
	"github.com/fyerfyer/stockplan-extract/internal/export"
	"github.com/fyerfyer/stockplan-extract/internal/logging"
	"github.com/fyerfyer/stockplan-extract/internal/models"
	"github.com/fyerfyer/stockplan-extract/internal/record"
	"github.com/fyerfyer/stockplan-extract/internal/repository"
	"github.com/fyerfyer/stockplan-extract/internal/section"
	"github.com/fyerfyer/stockplan-extract/pkg/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

// Outcome 单个文档的处理结果
type Outcome struct {
	File        storage.FileInfo
	Position    int                   // 发现顺序
	Kind        section.Kind          // 文档类型
	Status      models.DocumentStatus // completed / unrecognized / failed
	Stage       models.ProcessStage   // 结束时所处的阶段
	Record      record.Record         // 组装结果
	Row         []string              // 按输出结构取出的一行，仅completed时有值
	Warnings    []string
	ContentHash string
	Err         error
}

// Summary 批处理计数
type Summary struct {
	Processed    int
	Succeeded    int
	Unrecognized int
	Failed       int
	Skipped      int // 枚举时无法读取的条目
}

// Add 计入一个文档的结果
func (s *Summary) Add(o Outcome) {
	s.Processed++
	switch o.Status {
	case models.DocStatusCompleted:
		s.Succeeded++
	case models.DocStatusUnrecognized:
		s.Unrecognized++
	default:
		s.Failed++
	}
}

// BatchResult 一次批处理的结果
type BatchResult struct {
	RunID    string
	Outcomes []Outcome // 与发现顺序一致
	Summary  Summary
}

// Tables 按类型分组收集成功文档的输出行
func (r *BatchResult) Tables() *export.Tables {
	tables := export.NewTables()
	for _, o := range r.Outcomes {
		if o.Status == models.DocStatusCompleted {
			tables.Append(o.Kind, o.Row)
		}
	}
	return tables
}

// Failed 是否有文档处理失败或条目无法枚举
func (r *BatchResult) Failed() bool {
	return r.Summary.Failed > 0 || r.Summary.Skipped > 0
}

// ExtractionService 提取服务
// 串联版面重建、段落解析、字段组装和输出结构取值
type ExtractionService struct {
	source   storage.Storage
	pdfOpts  []document.PDFOption
	docCache *cache.DocumentCache
	repo     repository.RecordRepository
	workers  int
	dumpDir  string
	logger   *logrus.Logger
}

// ExtractionOption 提取服务配置选项
type ExtractionOption func(*ExtractionService)

// NewExtractionService 创建提取服务
func NewExtractionService(source storage.Storage, opts ...ExtractionOption) *ExtractionService {
	srv := &ExtractionService{
		source:  source,
		workers: 1,
		logger:  logging.GetLogger(),
	}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}

// WithLogger 设置日志记录器
func WithLogger(logger *logrus.Logger) ExtractionOption {
	return func(s *ExtractionService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithWorkers 设置并发处理的文档数
func WithWorkers(n int) ExtractionOption {
	return func(s *ExtractionService) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithPDFValidation 解码前先用pdfcpu校验文件结构
func WithPDFValidation(enable bool) ExtractionOption {
	return func(s *ExtractionService) {
		s.pdfOpts = append(s.pdfOpts, document.WithValidation(enable))
	}
}

// WithDocumentCache 设置解析结果缓存
func WithDocumentCache(c *cache.DocumentCache) ExtractionOption {
	return func(s *ExtractionService) {
		s.docCache = c
	}
}

// WithRecordRepository 设置结果仓储
func WithRecordRepository(repo repository.RecordRepository) ExtractionOption {
	return func(s *ExtractionService) {
		s.repo = repo
	}
}

// WithLayoutDump 将重建的版面文本写入dir/<name>.layout.txt
func WithLayoutDump(dir string) ExtractionOption {
	return func(s *ExtractionService) {
		s.dumpDir = dir
	}
}

// Storage 返回输入存储
func (s *ExtractionService) Storage() storage.Storage {
	return s.source
}

// Repository 返回结果仓储，未配置时为nil
func (s *ExtractionService) Repository() repository.RecordRepository {
	return s.repo
}

// ProcessFile 从存储读取文件并处理
func (s *ExtractionService) ProcessFile(ctx context.Context, file storage.FileInfo) Outcome {
	out := Outcome{File: file, Stage: models.StageDecoding}
	if err := ctx.Err(); err != nil {
		return s.fail(out, err)
	}

	rc, err := s.source.Get(ctx, file.Path)
	if err != nil {
		return s.fail(out, fmt.Errorf("%w: failed to open %s: %v", models.ErrDecode, file.Path, err))
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return s.fail(out, fmt.Errorf("%w: failed to read %s: %v", models.ErrDecode, file.Path, err))
	}

	return s.process(out, data)
}

// Process 处理内存中的文件内容
func (s *ExtractionService) Process(name string, data []byte) Outcome {
	return s.process(Outcome{File: storage.FileInfo{Name: name, Path: name, Size: int64(len(data))}, Stage: models.StageDecoding}, data)
}

func (s *ExtractionService) process(out Outcome, data []byte) Outcome {
	sum := sha256.Sum256(data)
	out.ContentHash = hex.EncodeToString(sum[:])

	doc, err := s.parse(out.File.Name, data)
	if err != nil {
		return s.fail(out, err)
	}

	out.Stage = models.StageAssembling
	out.Kind = doc.Kind
	out.Record = record.Assemble(doc)
	out.Warnings = append(out.Warnings, doc.Warnings...)
	for _, d := range out.Record.Dangling {
		out.Warnings = append(out.Warnings, fmt.Sprintf("dangling continuation %q in section %q", d.Key, d.Section))
	}

	entry := s.logger.WithField(logging.FieldFile, out.File.Name)
	for _, w := range out.Warnings {
		entry.Warn(w)
	}

	out.Stage = models.StageExporting
	schema, ok := export.SchemaFor(doc.Kind)
	if !ok {
		out.Status = models.DocStatusUnrecognized
		entry.Warn("Unrecognized document kind, skipping")
		return out
	}

	row, err := schema.Render(out.Record.Fields)
	if err != nil {
		return s.fail(out, err)
	}

	out.Row = row
	out.Stage = models.StageCompleted
	out.Status = models.DocStatusCompleted
	entry.WithField(logging.FieldKind, doc.Kind.String()).Debug("Document extracted")
	return out
}

// parse 解码并解析段落，命中缓存时跳过解码
func (s *ExtractionService) parse(name string, data []byte) (section.Document, error) {
	if s.docCache != nil {
		doc, found, err := s.docCache.Get(data)
		if err != nil {
			s.logger.WithError(err).WithField(logging.FieldFile, name).Warn("Document cache lookup failed")
		} else if found {
			s.logger.WithField(logging.FieldFile, name).Debug("Document cache hit")
			return doc, nil
		}
	}

	parser, err := document.ParserFactory(name, s.pdfOpts...)
	if err != nil {
		return section.Document{}, err
	}

	text, err := parser.ParseReader(bytes.NewReader(data), name)
	if err != nil {
		return section.Document{}, err
	}

	if s.dumpDir != "" {
		s.dumpLayout(name, text)
	}

	doc := section.Parse(text)

	if s.docCache != nil {
		if err := s.docCache.Put(data, doc); err != nil {
			s.logger.WithError(err).WithField(logging.FieldFile, name).Warn("Failed to cache document")
		}
	}
	return doc, nil
}

func (s *ExtractionService) dumpLayout(name, text string) {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	target := filepath.Join(s.dumpDir, base+document.LayoutDumpSuffix)
	if err := os.MkdirAll(s.dumpDir, 0755); err != nil {
		s.logger.WithError(err).WithField(logging.FieldFile, name).Warn("Failed to create layout dump directory")
		return
	}
	if err := os.WriteFile(target, []byte(text), 0644); err != nil {
		s.logger.WithError(err).WithField(logging.FieldFile, name).Warn("Failed to dump layout text")
	}
}

func (s *ExtractionService) fail(out Outcome, err error) Outcome {
	out.Status = models.DocStatusFailed
	out.Err = err
	s.logger.WithFields(logrus.Fields{
		logging.FieldFile:  out.File.Name,
		logging.FieldStage: string(out.Stage),
		logging.FieldError: err.Error(),
	}).Error("Document extraction failed")
	return out
}

// RunBatch 处理输入存储中所有可识别扩展名的文件
// 枚举失败时返回包装了ErrDiscovery的错误；单个文档的失败记录在Outcome中
// 无法读取的单个条目记录日志后跳过
func (s *ExtractionService) RunBatch(ctx context.Context) (*BatchResult, error) {
	files, err := storage.Discover(ctx, s.source, document.Supported)
	var skipped *storage.SkippedError
	if err != nil && !errors.As(err, &skipped) {
		return nil, fmt.Errorf("%w: %v", models.ErrDiscovery, err)
	}

	result := &BatchResult{
		RunID:    uuid.New().String(),
		Outcomes: make([]Outcome, len(files)),
	}
	run := &models.ExtractionRun{ID: result.RunID, Source: fmt.Sprintf("%T", s.source), StartedAt: time.Now()}
	s.persistRun(run, repository.RecordRepository.CreateRun)

	log := s.logger.WithField(logging.FieldRunID, result.RunID)
	if skipped != nil {
		for i, path := range skipped.Paths {
			log.WithFields(logrus.Fields{
				logging.FieldFile:  path,
				logging.FieldStage: "discovery",
				logging.FieldError: fmt.Errorf("%w: %v", models.ErrDiscovery, skipped.Errs[i]).Error(),
			}).Error("Skipping unreadable input entry")
		}
	}
	log.WithField("files", len(files)).Info("Extraction run started")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, f := range files {
		i, f := i, f
		if gctx.Err() != nil {
			result.Outcomes[i] = s.fail(Outcome{File: f, Position: i, Stage: models.StageDecoding}, gctx.Err())
			continue
		}
		g.Go(func() error {
			o := s.ProcessFile(gctx, f)
			o.Position = i
			result.Outcomes[i] = o
			s.persistOutcome(result.RunID, o)
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range result.Outcomes {
		result.Summary.Add(o)
	}
	if skipped != nil {
		result.Summary.Skipped = len(skipped.Paths)
	}

	now := time.Now()
	run.FinishedAt = &now
	run.Processed = result.Summary.Processed
	run.Succeeded = result.Summary.Succeeded
	run.Unrecognized = result.Summary.Unrecognized
	run.Failed = result.Summary.Failed
	s.persistRun(run, repository.RecordRepository.FinishRun)

	log.WithFields(logrus.Fields{
		"processed":    result.Summary.Processed,
		"succeeded":    result.Summary.Succeeded,
		"unrecognized": result.Summary.Unrecognized,
		"failed":       result.Summary.Failed,
		"skipped":      result.Summary.Skipped,
	}).Info("Extraction run finished")

	return result, ctx.Err()
}

func (s *ExtractionService) persistRun(run *models.ExtractionRun, op func(repository.RecordRepository, *models.ExtractionRun) error) {
	if s.repo == nil {
		return
	}
	if err := op(s.repo, run); err != nil {
		s.logger.WithError(err).WithField(logging.FieldRunID, run.ID).Warn("Failed to persist extraction run")
	}
}

func (s *ExtractionService) persistOutcome(runID string, o Outcome) {
	if s.repo == nil {
		return
	}
	rec := &models.DocumentRecord{
		ID:       uuid.New().String(),
		RunID:    runID,
		FileName: o.File.Name,
		FilePath: o.File.Path,
		FileSize: o.File.Size,
		Position: o.Position,
	}
	ApplyOutcome(rec, o)
	if err := s.repo.Create(rec); err != nil {
		s.logger.WithError(err).WithField(logging.FieldFile, o.File.Name).Warn("Failed to persist document outcome")
	}
}

// ApplyOutcome 将处理结果写入文档记录
func ApplyOutcome(rec *models.DocumentRecord, o Outcome) {
	now := time.Now()
	rec.ContentHash = o.ContentHash
	rec.Kind = o.Kind.String()
	rec.Status = o.Status
	rec.CurrentStage = o.Stage
	rec.ProcessedAt = &now
	rec.Error = ""
	if o.Err != nil {
		rec.Error = o.Err.Error()
	}
	rec.Fields = jsonOrNil(o.Record.Fields)
	rec.Row = jsonOrNil(o.Row)
	rec.Warnings = jsonOrNil(o.Warnings)
}

func jsonOrNil(v interface{}) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return nil
	}
	return datatypes.JSON(b)
}
