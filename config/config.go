package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Client   ClientConfig   `mapstructure:"client"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Cleanup  CleanupConfig  `mapstructure:"cleanup"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

// ClientConfig reviewctl 连接服务端所需的配置
type ClientConfig struct {
	BaseURL        string        `mapstructure:"base_url"`        // http://host:port/api/v1
	Token          string        `mapstructure:"token"`           // JWT，决定当前查看者身份
	RequestTimeout time.Duration `mapstructure:"request_timeout"` // 单次请求超时
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"` // 推送通道断开后的重连间隔
	ErrorToastGap  time.Duration `mapstructure:"error_toast_gap"` // 推送错误提示的最小间隔
}

// CacheConfig 客户端评论缓存
type CacheConfig struct {
	Size int `mapstructure:"size"` // 最多缓存的查询数
}

// CleanupConfig 软删除评论的物理清理
type CleanupConfig struct {
	RetentionDays int           `mapstructure:"retention_days"` // 0 表示不清理
	Interval      time.Duration `mapstructure:"interval"`
}

// Retention 保留时长
func (c CleanupConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

func Load(configPath string) (*Config, error) {
	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	setDefaults(v)

	// 环境变量覆盖
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("jwt.expire_hours", 72)
	v.SetDefault("client.base_url", "http://localhost:8080/api/v1")
	v.SetDefault("client.request_timeout", 10*time.Second)
	v.SetDefault("client.reconnect_delay", 2*time.Second)
	v.SetDefault("client.error_toast_gap", 30*time.Second)
	v.SetDefault("cache.size", 256)
	v.SetDefault("cleanup.retention_days", 30)
	v.SetDefault("cleanup.interval", time.Hour)
}
