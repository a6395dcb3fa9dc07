package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultServerURL       = "http://localhost:8080/api"
	DefaultServerTimeout   = 10 * time.Second
	DefaultThreadCount     = 1
	DefaultPollingInterval = 100 * time.Millisecond
	DefaultServiceName     = "conductor-worker"
	DefaultMetricsInterval = 15 * time.Second
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Server    ServerConfig    `mapstructure:"SERVER"`
	Worker    WorkerConfig    `mapstructure:"WORKER"`
	Metrics   MetricsConfig   `mapstructure:"METRICS"`
	Telemetry TelemetryConfig `mapstructure:"TELEMETRY"`
}

type ServerConfig struct {
	URL     string        `mapstructure:"URL"`
	Timeout time.Duration `mapstructure:"TIMEOUT"`
}

type WorkerConfig struct {
	ThreadCount     int           `mapstructure:"THREAD_COUNT"`
	PollingInterval time.Duration `mapstructure:"POLLING_INTERVAL"`
	WorkerID        string        `mapstructure:"WORKER_ID"`
	Domain          string        `mapstructure:"DOMAIN"`
	TaskTypes       []string      `mapstructure:"TASK_TYPES"`
}

type MetricsConfig struct {
	Port int `mapstructure:"PORT"`
}

type TelemetryConfig struct {
	Enabled         bool            `mapstructure:"ENABLED"`
	ServiceName     string          `mapstructure:"SERVICE_NAME"`
	OTELCollector   CollectorConfig `mapstructure:"OTEL_COLLECTOR"`
	MetricsInterval time.Duration   `mapstructure:"METRICS_INTERVAL"`
}

type CollectorConfig struct {
	Host string `mapstructure:"HOST"`
	Port int    `mapstructure:"PORT"`
}

// Validate checks the worker preconditions
func (c *Config) Validate() error {
	if c.Server.URL == "" {
		return fmt.Errorf("%w: server url is required", ErrInvalidConfig)
	}
	if c.Worker.ThreadCount < 1 {
		return fmt.Errorf("%w: thread count must be at least 1, got %d", ErrInvalidConfig, c.Worker.ThreadCount)
	}
	if c.Worker.PollingInterval < 0 {
		return fmt.Errorf("%w: polling interval must not be negative, got %s", ErrInvalidConfig, c.Worker.PollingInterval)
	}
	if c.Metrics.Port < 0 {
		return fmt.Errorf("%w: metrics port must not be negative", ErrInvalidConfig)
	}
	return nil
}

type ConfigManager struct {
	config     *Config
	configPath string
	mutex      sync.RWMutex
}

var (
	instance *ConfigManager
	once     sync.Once
)

func GetConfigManager() *ConfigManager {
	once.Do(func() {
		instance = &ConfigManager{
			configPath: ".env",
		}
	})
	return instance
}

func (cm *ConfigManager) SetConfigPath(path string) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	cm.configPath = path
	cm.config = nil
}

func (cm *ConfigManager) GetConfigPath() string {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	return cm.configPath
}

func (cm *ConfigManager) GetConfig() (*Config, error) {
	cm.mutex.RLock()
	if cm.config != nil {
		defer cm.mutex.RUnlock()
		return cm.config, nil
	}
	cm.mutex.RUnlock()

	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if cm.config != nil {
		return cm.config, nil
	}

	cfg, err := LoadConfig(cm.configPath)
	if err != nil {
		return nil, err
	}
	cm.config = cfg
	return cm.config, nil
}

// LoadConfig reads path (.env, yaml or json) and the environment. A missing
// file is not an error; environment variables and defaults still apply.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetEnvPrefix("")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	v.SetDefault("SERVER", map[string]interface{}{
		"URL":     v.GetString("SERVER_URL"),
		"TIMEOUT": v.GetDuration("SERVER_TIMEOUT"),
	})

	v.SetDefault("WORKER", map[string]interface{}{
		"THREAD_COUNT":     v.GetInt("WORKER_THREAD_COUNT"),
		"POLLING_INTERVAL": v.GetDuration("WORKER_POLLING_INTERVAL"),
		"WORKER_ID":        v.GetString("WORKER_WORKER_ID"),
		"DOMAIN":           v.GetString("WORKER_DOMAIN"),
		"TASK_TYPES":       splitList(v.GetString("WORKER_TASK_TYPES")),
	})

	v.SetDefault("METRICS", map[string]interface{}{
		"PORT": v.GetInt("METRICS_PORT"),
	})

	v.SetDefault("TELEMETRY", map[string]interface{}{
		"ENABLED":      v.GetBool("TELEMETRY_ENABLED"),
		"SERVICE_NAME": v.GetString("TELEMETRY_SERVICE_NAME"),
		"OTEL_COLLECTOR": map[string]interface{}{
			"HOST": v.GetString("TELEMETRY_OTEL_COLLECTOR_HOST"),
			"PORT": v.GetInt("TELEMETRY_OTEL_COLLECTOR_PORT"),
		},
		"METRICS_INTERVAL": v.GetDuration("TELEMETRY_METRICS_INTERVAL"),
	})

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	applyDefaults(&config)

	return &config, nil
}

func applyDefaults(config *Config) {
	if config.Server.URL == "" {
		config.Server.URL = DefaultServerURL
	}
	if config.Server.Timeout == 0 {
		config.Server.Timeout = DefaultServerTimeout
	}
	if config.Worker.ThreadCount == 0 {
		config.Worker.ThreadCount = DefaultThreadCount
	}
	if config.Worker.PollingInterval == 0 {
		config.Worker.PollingInterval = DefaultPollingInterval
	}
	if config.Telemetry.ServiceName == "" {
		config.Telemetry.ServiceName = DefaultServiceName
	}
	if config.Telemetry.MetricsInterval == 0 {
		config.Telemetry.MetricsInterval = DefaultMetricsInterval
	}
	if config.Telemetry.OTELCollector.Host == "" {
		config.Telemetry.OTELCollector.Host = "localhost"
	}
	if config.Telemetry.OTELCollector.Port == 0 {
		config.Telemetry.OTELCollector.Port = 4317
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
