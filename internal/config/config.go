package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Env       string          `yaml:"env"`
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
	Mongo     MongoConfig     `yaml:"mongo"`
	Redis     RedisConfig     `yaml:"redis"`
	Admin     AdminConfig     `yaml:"admin"`
	Limits    LimitsConfig    `yaml:"limits"`
	Retention RetentionConfig `yaml:"retention"`
}

type HTTPConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type MongoConfig struct {
	URI         string        `yaml:"uri"`
	Database    string        `yaml:"database"`
	CallTimeout time.Duration `yaml:"call_timeout"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AdminConfig struct {
	APIToken string `yaml:"api_token"`
}

type LimitsConfig struct {
	SubmitPerMinute int `yaml:"submit_per_minute"`
	SubmitPer10Sec  int `yaml:"submit_per_10sec"`
}

type RetentionConfig struct {
	AdminLogDays     int           `yaml:"admin_log_days"`
	RequestDays      int           `yaml:"request_days"`
	TopUpDays        int           `yaml:"topup_days"`
	NotificationDays int           `yaml:"notification_days"`
	SweepInterval    time.Duration `yaml:"sweep_interval"`
}

func Default() Config {
	return Config{
		Env: "dev",
		HTTP: HTTPConfig{
			Addr:         ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  30 * time.Second,
		},
		Log: LogConfig{Level: "debug"},
		Mongo: MongoConfig{
			URI:         "mongodb://localhost:27017",
			Database:    "kspvpn",
			CallTimeout: 5 * time.Second,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
			DB:   0,
		},
		Admin: AdminConfig{
			APIToken: "",
		},
		Limits: LimitsConfig{
			SubmitPerMinute: 10,
			SubmitPer10Sec:  3,
		},
		Retention: RetentionConfig{
			AdminLogDays:     90,
			RequestDays:      30,
			TopUpDays:        30,
			NotificationDays: 14,
			SweepInterval:    6 * time.Hour,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromYAML(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func loadFromYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("unmarshal config yaml: %w", err)
	}

	return nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.Env = v
	}

	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if err := overrideDuration("HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout); err != nil {
		return err
	}
	if err := overrideDuration("HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout); err != nil {
		return err
	}
	if err := overrideDuration("HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout); err != nil {
		return err
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	if v := os.Getenv("MONGO_URI"); v != "" {
		cfg.Mongo.URI = v
	}
	if v := os.Getenv("MONGO_DATABASE"); v != "" {
		cfg.Mongo.Database = v
	}
	if err := overrideDuration("MONGO_CALL_TIMEOUT", &cfg.Mongo.CallTimeout); err != nil {
		return err
	}

	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if err := overrideInt("REDIS_DB", &cfg.Redis.DB); err != nil {
		return err
	}

	if v := os.Getenv("ADMIN_API_TOKEN"); v != "" {
		cfg.Admin.APIToken = v
	}

	if err := overrideInt("SUBMIT_PER_MINUTE", &cfg.Limits.SubmitPerMinute); err != nil {
		return err
	}
	if err := overrideInt("SUBMIT_PER_10SEC", &cfg.Limits.SubmitPer10Sec); err != nil {
		return err
	}

	if err := overrideInt("RETENTION_ADMIN_LOG_DAYS", &cfg.Retention.AdminLogDays); err != nil {
		return err
	}
	if err := overrideInt("RETENTION_REQUEST_DAYS", &cfg.Retention.RequestDays); err != nil {
		return err
	}
	if err := overrideInt("RETENTION_TOPUP_DAYS", &cfg.Retention.TopUpDays); err != nil {
		return err
	}
	if err := overrideInt("RETENTION_NOTIFICATION_DAYS", &cfg.Retention.NotificationDays); err != nil {
		return err
	}
	if err := overrideDuration("RETENTION_SWEEP_INTERVAL", &cfg.Retention.SweepInterval); err != nil {
		return err
	}

	return nil
}

func overrideDuration(key string, target *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("parse %s duration: %w", key, err)
	}
	*target = d
	return nil
}

func overrideInt(key string, target *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("parse %s int: %w", key, err)
	}
	*target = n
	return nil
}
