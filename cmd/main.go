package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fyerfyer/stockplan-extract/api"
	"github.com/fyerfyer/stockplan-extract/api/handler"
	appconfig "github.com/fyerfyer/stockplan-extract/config"
	"github.com/fyerfyer/stockplan-extract/internal/cache"
	"github.com/fyerfyer/stockplan-extract/internal/database"
	"github.com/fyerfyer/stockplan-extract/internal/export"
	"github.com/fyerfyer/stockplan-extract/internal/logging"
	"github.com/fyerfyer/stockplan-extract/internal/repository"
	"github.com/fyerfyer/stockplan-extract/internal/services"
	"github.com/fyerfyer/stockplan-extract/pkg/storage"
	"github.com/fyerfyer/stockplan-extract/pkg/taskqueue"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// 进程退出码
const (
	exitOK      = 0 // 全部文档成功或无法识别
	exitFailure = 1 // 有文档处理失败
	exitStartup = 2 // 配置或启动错误
)

// 命令行参数，非空时覆盖配置文件中的值
type flags struct {
	ConfigFile string // 配置文件路径
	Input      string // 输入目录
	Format     string // 输出格式
	Output     string // 输出文件
	Workers    int    // 并发数
	Dump       bool   // 保存版面文本
	Serve      bool   // 以HTTP服务方式运行
	Validate   bool   // 解析前校验PDF结构
}

func main() {
	os.Exit(run())
}

func run() int {
	f := parseFlags()

	cfg, err := appconfig.Load(f.ConfigFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return exitStartup
	}
	applyFlags(cfg, f)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitStartup
	}

	if err := logging.Setup(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		return exitStartup
	}
	logger := logging.GetLogger()

	if f.Serve {
		return runServer(cfg, logger)
	}
	return runBatch(cfg, logger)
}

// parseFlags 解析命令行参数
func parseFlags() flags {
	f := flags{}

	flag.StringVar(&f.ConfigFile, "config", "", "Path to config file")
	flag.StringVar(&f.Input, "input", "", "Directory holding confirmation PDFs")
	flag.StringVar(&f.Format, "format", "", "Output format (csv/markdown/html)")
	flag.StringVar(&f.Output, "output", "", "Output file, stdout when empty")
	flag.IntVar(&f.Workers, "workers", 0, "Number of documents processed concurrently")
	flag.BoolVar(&f.Dump, "dump", false, "Write reconstructed layout text for each document")
	flag.BoolVar(&f.Serve, "serve", false, "Run the HTTP API instead of a batch")
	flag.BoolVar(&f.Validate, "validate", false, "Validate PDF structure before extraction")

	flag.Parse()

	// 位置参数等价于 -input
	if f.Input == "" && flag.NArg() > 0 {
		f.Input = flag.Arg(0)
	}
	return f
}

// applyFlags 用显式给出的命令行参数覆盖配置
func applyFlags(cfg *appconfig.Config, f flags) {
	if f.Input != "" {
		cfg.Input.Type = "local"
		cfg.Input.Path = f.Input
	}
	if f.Format != "" {
		cfg.Output.Format = f.Format
	}
	if f.Output != "" {
		cfg.Output.Path = f.Output
	}
	if f.Workers > 0 {
		cfg.Batch.Workers = f.Workers
	}
	if f.Dump {
		cfg.Output.DumpLayout = true
	}
	if f.Validate {
		cfg.PDF.Validate = true
	}
}

// setupStorage 根据输入配置创建存储
func setupStorage(ctx context.Context, cfg *appconfig.Config) (storage.Storage, error) {
	return storage.New(ctx, storage.Config{
		Type:            cfg.Input.Type,
		Path:            cfg.Input.Path,
		Bucket:          cfg.Input.Bucket,
		Prefix:          cfg.Input.Prefix,
		Endpoint:        cfg.Input.Endpoint,
		AccessKey:       cfg.Input.AccessKey,
		SecretKey:       cfg.Input.SecretKey,
		UseSSL:          cfg.Input.UseSSL,
		CredentialsFile: cfg.Input.CredentialsFile,
	})
}

// setupCache 设置版面缓存，未启用时返回nil
func setupCache(cfg *appconfig.Config, logger *logrus.Logger) (*cache.DocumentCache, error) {
	if !cfg.Cache.Enable {
		return nil, nil
	}

	cacheCfg := cache.DefaultConfig()
	cacheCfg.Type = cfg.Cache.Type
	cacheCfg.RedisAddr = cfg.Cache.Address
	cacheCfg.RedisPassword = cfg.Cache.Password
	cacheCfg.RedisDB = cfg.Cache.DB
	ttl := time.Duration(cfg.Cache.TTL) * time.Second
	if ttl > 0 {
		cacheCfg.DefaultTTL = ttl
	}

	c, err := cache.NewCache(cacheCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}
	logger.WithField("type", cacheCfg.Type).Info("Layout cache enabled")
	return cache.NewDocumentCache(c, cacheCfg.DefaultTTL), nil
}

// setupDatabase 初始化数据库并返回记录仓储
func setupDatabase(cfg *appconfig.Config, logger *logrus.Logger) (repository.RecordRepository, error) {
	dbCfg := database.DefaultConfig()
	dbCfg.Type = cfg.Database.Type
	if cfg.Database.DSN != "" {
		dbCfg.DSN = cfg.Database.DSN
	}
	if err := database.Setup(dbCfg, logger); err != nil {
		return nil, err
	}
	return repository.NewRecordRepository(), nil
}

// extractionOptions 组装抽取服务的公共选项
func extractionOptions(cfg *appconfig.Config, logger *logrus.Logger) ([]services.ExtractionOption, error) {
	opts := []services.ExtractionOption{
		services.WithLogger(logger),
		services.WithWorkers(cfg.Batch.Workers),
		services.WithPDFValidation(cfg.PDF.Validate),
	}

	docCache, err := setupCache(cfg, logger)
	if err != nil {
		return nil, err
	}
	if docCache != nil {
		opts = append(opts, services.WithDocumentCache(docCache))
	}

	if cfg.Output.DumpLayout {
		opts = append(opts, services.WithLayoutDump(dumpDir(cfg)))
	}
	return opts, nil
}

// dumpDir 版面文本目录，未配置时放在输出文件旁边
func dumpDir(cfg *appconfig.Config) string {
	if cfg.Output.DumpDir != "" {
		return cfg.Output.DumpDir
	}
	if cfg.Output.Path != "" {
		return filepath.Dir(cfg.Output.Path)
	}
	return "."
}

// runBatch 处理输入来源中的全部文档并输出表格
func runBatch(cfg *appconfig.Config, logger *logrus.Logger) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	format, err := export.ParseFormat(cfg.Output.Format)
	if err != nil {
		logger.WithError(err).Error("Invalid output format")
		return exitStartup
	}

	source, err := setupStorage(ctx, cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to set up input storage")
		return exitStartup
	}

	opts, err := extractionOptions(cfg, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to set up extraction")
		return exitStartup
	}

	if cfg.Database.Enable {
		repo, err := setupDatabase(cfg, logger)
		if err != nil {
			logger.WithError(err).Error("Failed to set up database")
			return exitStartup
		}
		defer database.Close()
		opts = append(opts, services.WithRecordRepository(repo))
	}

	extractor := services.NewExtractionService(source, opts...)
	result, err := extractor.RunBatch(ctx)
	if err != nil {
		logger.WithError(err).Error("Extraction run aborted")
		if result == nil {
			return exitFailure
		}
	}

	if err := writeOutput(cfg.Output.Path, format, result.Tables().List()); err != nil {
		logger.WithError(err).WithField(logging.FieldFile, cfg.Output.Path).Error("Failed to write output")
		return exitFailure
	}

	if err != nil || result.Failed() {
		return exitFailure
	}
	return exitOK
}

// writeOutput 写出表格，path为空时写到标准输出
// 文件关闭失败同样视为写出失败
func writeOutput(path string, format export.Format, tables []export.Table) (err error) {
	if path == "" {
		return export.Write(os.Stdout, format, tables)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close output file: %w", closeErr)
		}
	}()
	return export.Write(file, format, tables)
}

// runServer 启动HTTP接口
func runServer(cfg *appconfig.Config, logger *logrus.Logger) int {
	gin.SetMode(cfg.Server.Mode)
	ctx := context.Background()

	uploads := cfg.Input
	if uploads.Type == "" || uploads.Type == "local" {
		uploads.Path = filepath.Join(uploads.Path, "uploads")
		if err := os.MkdirAll(uploads.Path, 0755); err != nil {
			logger.WithError(err).Error("Failed to create upload directory")
			return exitStartup
		}
	}
	fileStorage, err := setupStorage(ctx, &appconfig.Config{Input: uploads})
	if err != nil {
		logger.WithError(err).Error("Failed to set up upload storage")
		return exitStartup
	}

	// 服务模式依赖数据库保存上传记录
	repo, err := setupDatabase(cfg, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to set up database")
		return exitStartup
	}
	defer database.Close()

	opts, err := extractionOptions(cfg, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to set up extraction")
		return exitStartup
	}
	extractor := services.NewExtractionService(fileStorage, opts...)

	docOpts := []services.DocumentOption{
		services.WithDocumentLogger(logger),
		services.WithStatusManager(services.NewDocumentStatusManager(repo, logger)),
	}

	var (
		queue  *taskqueue.RedisQueue
		worker *taskqueue.RedisWorker
	)
	if cfg.Queue.Enable {
		queue, err = taskqueue.NewRedisQueue(queueConfig(cfg), logger)
		if err != nil {
			logger.WithError(err).Error("Failed to connect task queue")
			return exitStartup
		}
		defer queue.Close()
		docOpts = append(docOpts, services.WithTaskQueue(queue))
		logger.Info("Uploaded documents will be extracted by the task queue")
	}

	documentService := services.NewDocumentService(extractor, repo, docOpts...)

	var taskHandler *handler.TaskHandler
	if queue != nil {
		worker = taskqueue.NewRedisWorker(queue, queueConfig(cfg))
		worker.RegisterHandler(taskqueue.TaskExtractDocument, documentService)
		if err := worker.Start(); err != nil {
			logger.WithError(err).Error("Failed to start task worker")
			return exitStartup
		}
		defer worker.Stop()
		taskHandler = handler.NewTaskHandler(queue)
	}

	r := api.SetupRouter(handler.NewDocumentHandler(documentService), taskHandler)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Server is running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 等待终止信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		logger.WithError(err).Error("Failed to start server")
		return exitStartup
	case <-quit:
	}
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
		return exitFailure
	}

	logger.Info("Server exited")
	return exitOK
}

// queueConfig 转换任务队列配置
func queueConfig(cfg *appconfig.Config) *taskqueue.Config {
	queueCfg := taskqueue.DefaultConfig()
	queueCfg.RedisAddr = cfg.Queue.RedisAddr
	queueCfg.RedisPassword = cfg.Queue.RedisPassword
	queueCfg.RedisDB = cfg.Queue.RedisDB
	queueCfg.Concurrency = cfg.Queue.Concurrency
	queueCfg.RetryLimit = cfg.Queue.RetryLimit
	queueCfg.RetryDelay = time.Duration(cfg.Queue.RetryDelay) * time.Second
	return queueCfg
}
