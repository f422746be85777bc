package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Business  BusinessConfig  `mapstructure:"business"`
	Session   SessionConfig   `mapstructure:"session"`
	Delivery  DeliveryConfig  `mapstructure:"delivery"`
	AI        AIConfig        `mapstructure:"ai"`
	Transport TransportConfig `mapstructure:"transport"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port         int      `mapstructure:"port"`
	Mode         string   `mapstructure:"mode"` // gin: debug | release | test
	AllowOrigins []string `mapstructure:"allow_origins"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // postgres | memory
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Dbname   string `mapstructure:"dbname"`
	SslMode  string `mapstructure:"sslmode"`
}

// RedisConfig Addr 为空时机器人开关只存在内存里
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type AuthConfig struct {
	JWTSecret        string `mapstructure:"jwt_secret"`
	TokenExpireHours int    `mapstructure:"token_expire_hours"`
	OwnerAPIKey      string `mapstructure:"owner_api_key"`
	OwnerAPIKeyHash  string `mapstructure:"owner_api_key_hash"` // bcrypt，配了就优先用它
}

// BusinessConfig 店铺信息，FAQ 和 AI 上下文都用它
type BusinessConfig struct {
	Name    string `mapstructure:"name"`
	Hours   string `mapstructure:"hours"`
	Address string `mapstructure:"address"`
	Payment string `mapstructure:"payment"`
	Contact string `mapstructure:"contact"`
	OwnerID string `mapstructure:"owner_id"` // 老板在聊天渠道里的身份
}

type SessionConfig struct {
	InactivityMinutes  int `mapstructure:"inactivity_minutes"`
	MailboxIdleSeconds int `mapstructure:"mailbox_idle_seconds"`
}

type DeliveryConfig struct {
	Enabled       bool  `mapstructure:"enabled"`
	Fee           int64 `mapstructure:"fee"`
	FreeThreshold int64 `mapstructure:"free_threshold"`
}

type AIConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	APIKey       string `mapstructure:"api_key"`
	BaseURL      string `mapstructure:"base_url"`
	Model        string `mapstructure:"model"`
	RetryDelayMs int    `mapstructure:"retry_delay_ms"`
	TimeoutSec   int    `mapstructure:"timeout_sec"`
}

// TransportConfig 出站消息网关，URL 为空时只打日志
type TransportConfig struct {
	OutboundURL string `mapstructure:"outbound_url"`
	Token       string `mapstructure:"token"`
	TimeoutSec  int    `mapstructure:"timeout_sec"`
}

type CatalogConfig struct {
	File          string `mapstructure:"file"`
	ReloadMinutes int    `mapstructure:"reload_minutes"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text | json
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.allow_origins", []string{"*"})
	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.key_prefix", "chatorder")
	v.SetDefault("auth.token_expire_hours", 72)
	v.SetDefault("session.inactivity_minutes", 15)
	v.SetDefault("session.mailbox_idle_seconds", 60)
	v.SetDefault("delivery.enabled", false)
	v.SetDefault("ai.base_url", "https://api.openai.com/v1")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.retry_delay_ms", 1500)
	v.SetDefault("ai.timeout_sec", 20)
	v.SetDefault("transport.timeout_sec", 10)
	v.SetDefault("catalog.reload_minutes", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// LoadConfig 解析配置文件，环境变量（如 DATABASE_HOST）覆盖文件里的值
func LoadConfig(path string) (*Config, error) {
	// .env 可选，不存在不算错
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %v", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("不支持的数据库驱动: %q", c.Database.Driver)
	}
	if c.Session.InactivityMinutes <= 0 {
		return fmt.Errorf("session.inactivity_minutes 必须大于 0")
	}
	if c.Delivery.Fee < 0 || c.Delivery.FreeThreshold < 0 {
		return fmt.Errorf("配送费和免运费门槛不能为负")
	}
	return nil
}
