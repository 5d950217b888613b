package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Log          LogConfig          `mapstructure:"log"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	Auth         AuthConfig         `mapstructure:"auth"`
	CORS         CORSConfig         `mapstructure:"cors"`
	Subscription SubscriptionConfig `mapstructure:"subscription"`
	Lock         LockConfig         `mapstructure:"lock"`
	Generator    GeneratorConfig    `mapstructure:"generator"`
	Cron         CronConfig         `mapstructure:"cron"`
	Scenes       map[string]string  `mapstructure:"scenes"`
}

type ServerConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Mode     string `mapstructure:"mode"`
	BasePath string `mapstructure:"base_path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text, json
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // mysql, sqlite
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	Path         string `mapstructure:"path"` // sqlite file
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	AutoMigrate  bool   `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
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

type AuthConfig struct {
	// 新注册用户需管理员激活后才能登录
	RequireAdminActivation bool `mapstructure:"require_admin_activation"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type SubscriptionConfig struct {
	Tiers map[string]TierConfig `mapstructure:"tiers"`
}

type TierConfig struct {
	Price          float64  `mapstructure:"price"`
	ImagesPerMonth int      `mapstructure:"images_per_month"`
	Features       []string `mapstructure:"features"`
	Order          int      `mapstructure:"order"`
}

type LockConfig struct {
	Driver  string        `mapstructure:"driver"` // local, redis
	Timeout time.Duration `mapstructure:"timeout"`
	TTL     time.Duration `mapstructure:"ttl"`
	Prefix  string        `mapstructure:"prefix"`
}

type GeneratorConfig struct {
	BaseURL string        `mapstructure:"base_url"` // empty uses the stub generator
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type CronConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	CycleResetSchedule string `mapstructure:"cycle_reset_schedule"`
}

// DefaultTiers 与前端订阅页展示的套餐一致
func DefaultTiers() map[string]TierConfig {
	return map[string]TierConfig{
		"free": {
			Price:          0,
			ImagesPerMonth: 10,
			Features:       []string{"Basic scenes", "Standard resolution", "Community support"},
			Order:          0,
		},
		"starter": {
			Price:          49,
			ImagesPerMonth: 20,
			Features:       []string{"Basic scenes", "Standard resolution", "Email support"},
			Order:          1,
		},
		"business": {
			Price:          149,
			ImagesPerMonth: 100,
			Features:       []string{"Advanced scenes", "High resolution", "Priority support"},
			Order:          2,
		},
		"enterprise": {
			Price:          499,
			ImagesPerMonth: 500,
			Features:       []string{"Custom backgrounds", "Priority processing", "Dedicated support"},
			Order:          3,
		},
	}
}

func DefaultScenes() map[string]string {
	return map[string]string{
		"living_room": "A modern living room with natural lighting",
		"kitchen":     "A spacious kitchen with marble countertops",
		"office":      "A professional office setting with a desk and chair",
		"outdoor":     "An outdoor patio with greenery",
		"bedroom":     "A cozy bedroom with contemporary furniture",
		"bathroom":    "A clean bathroom with white tiles",
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.base_path", "/api")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "prodviz.db")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("jwt.secret", "dev-secret-key")
	v.SetDefault("jwt.expire_hours", 24)

	v.SetDefault("auth.require_admin_activation", false)

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Authorization", "Content-Type"})

	v.SetDefault("lock.driver", "local")
	v.SetDefault("lock.timeout", 2*time.Second)
	v.SetDefault("lock.ttl", 10*time.Second)
	v.SetDefault("lock.prefix", "entitlement:lock")

	v.SetDefault("generator.timeout", 2*time.Minute)

	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.cycle_reset_schedule", "@hourly")
}

func Load(configPath string) (*Config, error) {
	// .env 只用于本地开发，不存在时忽略
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	// 优先读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")
	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// 环境变量覆盖，例如 JWT_SECRET、DATABASE_HOST
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if len(cfg.Subscription.Tiers) == 0 {
		cfg.Subscription.Tiers = DefaultTiers()
	}
	if len(cfg.Scenes) == 0 {
		cfg.Scenes = DefaultScenes()
	}

	return &cfg, nil
}
