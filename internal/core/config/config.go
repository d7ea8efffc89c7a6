package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int `mapstructure:"read_timeout_sec"`
	WriteTimeoutSec int `mapstructure:"write_timeout_sec"`
	IdleTimeoutSec  int `mapstructure:"idle_timeout_sec"`
}

type App struct {
	Name string
	Env  string
	HTTP HTTP
}

type Log struct {
	Level string
	JSON  bool
	File  LogFile
}

type LogFile struct {
	Enable     bool
	Filename   string
	MaxSizeMB  int `mapstructure:"max_size_mb"`
	MaxBackups int `mapstructure:"max_backups"`
	MaxAgeDays int `mapstructure:"max_age_days"`
	Compress   bool
}

type JWT struct {
	Secret             string
	Issuer             string
	AccessTokenTTLMin  int `mapstructure:"access_token_ttl_min"`
	RefreshTokenTTLMin int `mapstructure:"refresh_token_ttl_min"`
}

type Redis struct {
	Addr         string `mapstructure:"addr"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	LookupTTLMin int    `mapstructure:"lookup_ttl_min"`
}

type DB struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int    `mapstructure:"max_open_conns"`
	MaxIdleConns       int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMin int    `mapstructure:"conn_max_lifetime_min"`
	AutoMigrate        bool   `mapstructure:"auto_migrate"`
	LogLevel           string `mapstructure:"log_level"`
	SlowThresholdMs    int    `mapstructure:"slow_threshold_ms"`
}

// Storage 对象存储：s3（含 R2/MinIO）或 oss
type Storage struct {
	Driver        string
	Endpoint      string
	Region        string
	Bucket        string
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	UsePathStyle  bool   `mapstructure:"use_path_style"`
	PresignTTLSec int    `mapstructure:"presign_ttl_sec"`
	MaxPDFBytes   int64  `mapstructure:"max_pdf_bytes"`
	MaxCoverBytes int64  `mapstructure:"max_cover_bytes"`
	// StaticFiles 匿名可取的静态资源 key
	StaticFiles []string `mapstructure:"static_files"`
}

type OpenLibrary struct {
	BaseURL    string  `mapstructure:"base_url"`
	UserAgent  string  `mapstructure:"user_agent"`
	TimeoutSec int     `mapstructure:"timeout_sec"`
	RPS        float64 `mapstructure:"rps"`
}

type Lending struct {
	EnforceEligibility bool `mapstructure:"enforce_eligibility"`
}

// Limits 入口中间件参数
type Limits struct {
	RPS            float64
	Burst          int
	Concurrency    int64
	MaxBodyBytes   int64    `mapstructure:"max_body_bytes"`
	RequestTimeout int      `mapstructure:"request_timeout_sec"`
	CORSOrigins    []string `mapstructure:"cors_origins"`
}

type Config struct {
	App         App
	Log         Log
	JWT         JWT
	DB          DB
	Redis       Redis `mapstructure:"redis"`
	Storage     Storage
	OpenLibrary OpenLibrary `mapstructure:"openlibrary"`
	Lending     Lending
	Limits      Limits
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "librarius")
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 8080)
	v.SetDefault("app.http.read_timeout_sec", 15)
	v.SetDefault("app.http.write_timeout_sec", 120)
	v.SetDefault("app.http.idle_timeout_sec", 60)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.file.enable", false)
	v.SetDefault("log.file.compress", false)
	v.SetDefault("log.file.filename", "logs/app.log")
	v.SetDefault("log.file.max_size_mb", 100)
	v.SetDefault("log.file.max_backups", 7)
	v.SetDefault("log.file.max_age_days", 30)

	// 没有默认值的 key 也要登记，否则 APP_ 环境变量在 Unmarshal 时不生效
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "librarius")
	v.SetDefault("jwt.access_token_ttl_min", 30)
	v.SetDefault("jwt.refresh_token_ttl_min", 60*24*7)

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "librarius.db?_foreign_keys=on&_busy_timeout=5000")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime_min", 30)
	v.SetDefault("db.log_level", "warn")
	v.SetDefault("db.username", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.auto_migrate", false)
	v.SetDefault("db.slow_threshold_ms", 200)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lookup_ttl_min", 24*60)

	v.SetDefault("storage.driver", "s3")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.region", "auto")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.use_path_style", false)
	v.SetDefault("storage.presign_ttl_sec", 3600)
	v.SetDefault("storage.static_files", []string{"cover-coming-soon.jpg"})
	v.SetDefault("storage.max_pdf_bytes", 100_000_000)
	v.SetDefault("storage.max_cover_bytes", 5*1024*1024)

	v.SetDefault("openlibrary.base_url", "http://openlibrary.org")
	v.SetDefault("openlibrary.user_agent", "librarius/1.0")
	v.SetDefault("openlibrary.timeout_sec", 15)
	v.SetDefault("openlibrary.rps", 5)

	v.SetDefault("lending.enforce_eligibility", false)

	v.SetDefault("limits.rps", 200)
	v.SetDefault("limits.burst", 400)
	v.SetDefault("limits.concurrency", 300)
	v.SetDefault("limits.max_body_bytes", 16<<20)
	v.SetDefault("limits.request_timeout_sec", 10)
	v.SetDefault("limits.cors_origins", []string{"*"})
}

// Load 读取 yaml；APP_ 前缀环境变量覆盖（db.dsn → APP_DB_DSN）。
// 配置文件不存在时只用默认值 + 环境变量。
func Load(path string) (*Config, error) {
	v := viper.New()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// MustLoad 给 main 用，失败直接退出
func MustLoad(path string) *Config {
	c, err := Load(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return c
}

func (c *Config) validate() error {
	if c.App.Env == "prod" && len(c.JWT.Secret) < 32 {
		return fmt.Errorf("jwt.secret must be at least 32 bytes in prod")
	}
	switch c.Storage.Driver {
	case "s3", "oss", "memory":
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	return nil
}

func (c *Config) AccessTTL() time.Duration {
	return time.Duration(c.JWT.AccessTokenTTLMin) * time.Minute
}

func (c *Config) RefreshTTL() time.Duration {
	return time.Duration(c.JWT.RefreshTokenTTLMin) * time.Minute
}

func (c *Config) PresignTTL() time.Duration {
	return time.Duration(c.Storage.PresignTTLSec) * time.Second
}
