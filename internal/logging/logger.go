package logging

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var log = logrus.New()

// 常用日志字段
const (
	FieldFile  = "file"  // 输入文件
	FieldKind  = "kind"  // 文档类型
	FieldStage = "stage" // 处理阶段
	FieldRunID = "run_id"
	FieldError = "error" // 错误信息
)

// Options 日志配置
type Options struct {
	Level      string // 日志级别
	Format     string // json 或 text
	File       string // 日志文件，为空时只写stderr
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func init() {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	log.SetLevel(logrus.InfoLevel)
}

// Setup 按配置初始化全局日志
// 配置了文件时同时写stderr和按大小轮转的文件
func Setup(opts Options) error {
	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		return err
	}
	log.SetLevel(level)

	if opts.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}

	var out io.Writer = os.Stderr
	if opts.File != "" {
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
		})
	}
	log.SetOutput(out)
	return nil
}

// GetLogger 返回全局日志实例
func GetLogger() *logrus.Logger {
	return log
}
