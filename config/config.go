package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 STOCKPLAN_BATCH_WORKERS
const EnvPrefix = "STOCKPLAN"

// Config 应用程序配置结构体
type Config struct {
	Input    InputConfig    `mapstructure:"input"`
	Output   OutputConfig   `mapstructure:"output"`
	Log      LogConfig      `mapstructure:"log"`
	Batch    BatchConfig    `mapstructure:"batch"`
	PDF      PDFConfig      `mapstructure:"pdf"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Database DatabaseConfig `mapstructure:"database"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Server   ServerConfig   `mapstructure:"server"`
}

// InputConfig 输入来源配置
type InputConfig struct {
	Type            string `mapstructure:"type" validate:"oneof=local minio gcs"`        // 来源类型：local, minio 或 gcs
	Path            string `mapstructure:"path" validate:"required_if=Type local"`       // 本地目录
	Bucket          string `mapstructure:"bucket" validate:"required_unless=Type local"` // MinIO或GCS桶名称
	Prefix          string `mapstructure:"prefix"`                                       // 对象前缀
	Endpoint        string `mapstructure:"endpoint" validate:"required_if=Type minio"`   // MinIO端点
	AccessKey       string `mapstructure:"access_key"`                                   // MinIO访问密钥
	SecretKey       string `mapstructure:"secret_key"`                                   // MinIO私钥
	UseSSL          bool   `mapstructure:"use_ssl"`                                      // 是否使用SSL
	CredentialsFile string `mapstructure:"credentials_file"`                             // GCS服务账号文件，为空时使用默认凭据
}

// OutputConfig 输出配置
type OutputConfig struct {
	Format     string `mapstructure:"format" validate:"oneof=csv markdown md html"` // 输出格式
	Path       string `mapstructure:"path"`                                         // 输出文件，为空时写到标准输出
	DumpLayout bool   `mapstructure:"dump_layout"`                                  // 是否保存重建后的版面文本
	DumpDir    string `mapstructure:"dump_dir"`                                     // 版面文本目录
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=trace debug info warn warning error fatal panic"` // 日志级别
	Format     string `mapstructure:"format" validate:"oneof=json text"`                                      // 日志格式
	File       string `mapstructure:"file"`                                                                   // 日志文件，为空时只输出到stderr
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`                                           // 单个日志文件大小
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`                                           // 保留的旧文件数
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`                                          // 保留天数
}

// BatchConfig 批处理配置
type BatchConfig struct {
	Workers int `mapstructure:"workers" validate:"gte=1"` // 并发处理的文档数
}

// PDFConfig PDF处理配置
type PDFConfig struct {
	Validate bool `mapstructure:"validate"` // 解析前是否用pdfcpu校验文档结构
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Enable   bool   `mapstructure:"enable"`                             // 是否启用缓存
	Type     string `mapstructure:"type" validate:"oneof=memory redis"` // 缓存类型：memory 或 redis
	Address  string `mapstructure:"address"`                            // Redis地址
	Password string `mapstructure:"password"`                           // Redis密码
	DB       int    `mapstructure:"db"`                                 // Redis数据库
	TTL      int    `mapstructure:"ttl" validate:"gte=0"`               // 缓存TTL（秒）
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Enable bool   `mapstructure:"enable"`                       // 是否保存处理结果
	Type   string `mapstructure:"type" validate:"oneof=sqlite"` // 数据库类型
	DSN    string `mapstructure:"dsn"`                          // 数据源名称
}

// QueueConfig 任务队列配置
type QueueConfig struct {
	Enable        bool   `mapstructure:"enable"`                       // 是否启用任务队列
	RedisAddr     string `mapstructure:"redis_addr"`                   // Redis地址
	RedisPassword string `mapstructure:"redis_password"`               // Redis密码
	RedisDB       int    `mapstructure:"redis_db"`                     // Redis数据库编号
	Concurrency   int    `mapstructure:"concurrency" validate:"gte=1"` // 任务处理并发数
	RetryLimit    int    `mapstructure:"retry_limit" validate:"gte=0"` // 任务最大重试次数
	RetryDelay    int    `mapstructure:"retry_delay" validate:"gte=0"` // 重试延迟(秒)
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`                                     // 服务器主机
	Port int    `mapstructure:"port" validate:"gte=1,lte=65535"`          // 服务器端口
	Mode string `mapstructure:"mode" validate:"oneof=debug release test"` // gin运行模式
}

// Load 从文件和环境变量加载配置
// 配置文件不存在时使用默认值
func Load(configPath string) (*Config, error) {
	var config Config

	loadDotEnv()

	if configPath == "" {
		configPath = "config.yaml"
	}

	v := viper.New()
	setDefaults(v)

	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		logrus.Debugf("Using config file: %s", v.ConfigFileUsed())
	} else if errors.Is(err, os.ErrNotExist) {
		logrus.Debugf("Config file not found at %s, using defaults", configPath)
	} else {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	// 支持环境变量覆盖
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	processEnvironmentVariables(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate 校验配置项
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// loadDotEnv 加载当前目录下的.env文件，文件不存在时忽略
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.Warnf("Failed to load .env file: %v", err)
	}
}

// processEnvironmentVariables 展开 ${VAR} 形式的密钥配置
func processEnvironmentVariables(cfg *Config) {
	for _, field := range []*string{
		&cfg.Input.AccessKey,
		&cfg.Input.SecretKey,
		&cfg.Input.CredentialsFile,
		&cfg.Cache.Password,
		&cfg.Queue.RedisPassword,
	} {
		*field = expandEnv(*field)
	}
}

func expandEnv(value string) string {
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		if envVal := os.Getenv(value[2 : len(value)-1]); envVal != "" {
			return envVal
		}
	}
	return value
}

// setDefaults 设置配置的默认值
// 所有键都需要默认值，环境变量覆盖才能生效
func setDefaults(v *viper.Viper) {
	// 输入默认配置
	v.SetDefault("input.type", "local")
	v.SetDefault("input.path", ".")
	v.SetDefault("input.bucket", "")
	v.SetDefault("input.prefix", "")
	v.SetDefault("input.endpoint", "")
	v.SetDefault("input.access_key", "")
	v.SetDefault("input.secret_key", "")
	v.SetDefault("input.use_ssl", false)
	v.SetDefault("input.credentials_file", "")

	// 输出默认配置
	v.SetDefault("output.format", "csv")
	v.SetDefault("output.path", "")
	v.SetDefault("output.dump_layout", false)
	v.SetDefault("output.dump_dir", "")

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)

	// 批处理默认配置
	v.SetDefault("batch.workers", 1)

	v.SetDefault("pdf.validate", false)

	// 缓存默认配置
	v.SetDefault("cache.enable", false)
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.address", "localhost:6379")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl", 3600) // 1小时

	// 数据库默认配置
	v.SetDefault("database.enable", false)
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "data/stockplan.db")

	// 队列默认配置
	v.SetDefault("queue.enable", false)
	v.SetDefault("queue.redis_addr", "localhost:6379")
	v.SetDefault("queue.redis_password", "")
	v.SetDefault("queue.redis_db", 0)
	v.SetDefault("queue.concurrency", 4)
	v.SetDefault("queue.retry_limit", 3)
	v.SetDefault("queue.retry_delay", 60) // 60秒

	// 服务器默认配置
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
}
