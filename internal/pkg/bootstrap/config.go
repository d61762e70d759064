// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"
)

// 重试模式
const (
	RetryModeBlocking  = "blocking"
	RetryModeScheduled = "scheduled"
)

// 重试状态存储
const (
	RetryStoreMemory = "memory"
	RetryStoreRedis  = "redis"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Retry      RetryConfig      `yaml:"retry"`
	RetryStore RetryStoreConfig `yaml:"retryStore"`
	Fault      FaultConfig      `yaml:"fault"`
	Infra      InfraConfig      `yaml:"infra"`
}

type AppConfig struct {
	ServiceName string `yaml:"serviceName"`
	Port        int    `yaml:"port"`
	Origin      string `yaml:"origin"` // 写入每个订单的来源标签
	LogLevel    string `yaml:"logLevel"`
}

type KafkaConfig struct {
	Brokers         []string `yaml:"brokers"`
	OrdersTopic     string   `yaml:"ordersTopic"`
	RetryTopic      string   `yaml:"retryTopic"`
	DeadLetterTopic string   `yaml:"deadLetterTopic"`
	GroupID         string   `yaml:"groupId"`
	Workers         int      `yaml:"workers"`
}

type RetryConfig struct {
	MaxAttempts int           `yaml:"maxAttempts"`
	Delay       time.Duration `yaml:"delay"`
	Mode        string        `yaml:"mode"`
}

type RetryStoreConfig struct {
	Driver    string        `yaml:"driver"`
	RedisAddr string        `yaml:"redisAddr"`
	RedisDB   int           `yaml:"redisDb"`
	KeyPrefix string        `yaml:"keyPrefix"`
	TTL       time.Duration `yaml:"ttl"`
}

type FaultConfig struct {
	// CEL 表达式，返回 true 时本次处理模拟一次临时失败；为空表示关闭
	Expression string `yaml:"expression"`
}

type InfraConfig struct {
	Jaeger struct {
		Endpoint string `yaml:"endpoint"`
	} `yaml:"jaeger"`
	MySQL struct {
		DSN string `yaml:"dsn"`
	} `yaml:"mysql"`
	Nacos struct {
		ServerAddrs string `yaml:"serverAddrs"`
		Namespace   string `yaml:"namespace"`
		Group       string `yaml:"group"`
	} `yaml:"nacos"`
}

var currentConfig atomic.Pointer[Config]

// GetCurrentConfig 返回最近一次 LoadConfig 成功加载的配置
func GetCurrentConfig() *Config {
	if cfg := currentConfig.Load(); cfg != nil {
		return cfg
	}
	return DefaultConfig()
}

func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.App = AppConfig{ServiceName: "order-service", Port: 8080, Origin: "order-service", LogLevel: "info"}
	cfg.Kafka = KafkaConfig{
		Brokers:         []string{"localhost:9092"},
		OrdersTopic:     "orders",
		RetryTopic:      "orders-retry",
		DeadLetterTopic: "orders-dlq",
		GroupID:         "order-consumer-group",
		Workers:         3,
	}
	cfg.Retry = RetryConfig{MaxAttempts: 3, Delay: 2 * time.Second, Mode: RetryModeBlocking}
	cfg.RetryStore = RetryStoreConfig{
		Driver:    RetryStoreMemory,
		RedisAddr: "localhost:6379",
		KeyPrefix: "order:retry:",
		TTL:       24 * time.Hour,
	}
	return cfg
}

// LoadConfig 依次应用默认值、YAML 文件（path 为空时跳过）和环境变量
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	currentConfig.Store(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.App.ServiceName = getEnv("SERVICE_NAME", cfg.App.ServiceName)
	cfg.App.Origin = getEnv("ORDER_ORIGIN", cfg.App.Origin)
	cfg.App.LogLevel = getEnv("LOG_LEVEL", cfg.App.LogLevel)
	if v, ok := os.LookupEnv("KAFKA_BROKERS"); ok {
		cfg.Kafka.Brokers = parseCSV(v)
	}
	cfg.Kafka.OrdersTopic = getEnv("KAFKA_TOPIC_ORDERS", cfg.Kafka.OrdersTopic)
	cfg.Kafka.RetryTopic = getEnv("KAFKA_TOPIC_RETRY", cfg.Kafka.RetryTopic)
	cfg.Kafka.DeadLetterTopic = getEnv("KAFKA_TOPIC_DLQ", cfg.Kafka.DeadLetterTopic)
	cfg.Kafka.GroupID = getEnv("KAFKA_GROUP_ID", cfg.Kafka.GroupID)
	cfg.Retry.Mode = getEnv("RETRY_MODE", cfg.Retry.Mode)
	cfg.RetryStore.Driver = getEnv("RETRY_STORE", cfg.RetryStore.Driver)
	cfg.RetryStore.RedisAddr = getEnv("REDIS_ADDR", cfg.RetryStore.RedisAddr)
	cfg.Fault.Expression = getEnv("FAULT_EXPRESSION", cfg.Fault.Expression)
	cfg.Infra.Jaeger.Endpoint = getEnv("JAEGER_ENDPOINT", cfg.Infra.Jaeger.Endpoint)
	cfg.Infra.MySQL.DSN = getEnv("MYSQL_DSN", cfg.Infra.MySQL.DSN)
	cfg.Infra.Nacos.ServerAddrs = getEnv("NACOS_SERVER_ADDRS", cfg.Infra.Nacos.ServerAddrs)
	cfg.Infra.Nacos.Namespace = getEnv("NACOS_NAMESPACE", cfg.Infra.Nacos.Namespace)
	cfg.Infra.Nacos.Group = getEnv("NACOS_GROUP", cfg.Infra.Nacos.Group)

	var err error
	if cfg.App.Port, err = getEnvInt("HTTP_PORT", cfg.App.Port); err != nil {
		return err
	}
	if cfg.Kafka.Workers, err = getEnvInt("CONSUMER_WORKERS", cfg.Kafka.Workers); err != nil {
		return err
	}
	if cfg.Retry.MaxAttempts, err = getEnvInt("RETRY_MAX_ATTEMPTS", cfg.Retry.MaxAttempts); err != nil {
		return err
	}
	if cfg.RetryStore.RedisDB, err = getEnvInt("REDIS_DB", cfg.RetryStore.RedisDB); err != nil {
		return err
	}
	if v, ok := os.LookupEnv("RETRY_DELAY"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid RETRY_DELAY %q: %w", v, err)
		}
		cfg.Retry.Delay = d
	}
	return nil
}

func (c *Config) Validate() error {
	switch {
	case c.App.Port <= 0:
		return fmt.Errorf("invalid http port %d", c.App.Port)
	case len(c.Kafka.Brokers) == 0:
		return fmt.Errorf("at least one kafka broker is required")
	case c.Kafka.OrdersTopic == "" || c.Kafka.DeadLetterTopic == "":
		return fmt.Errorf("orders and dead letter topics are required")
	case c.Kafka.Workers < 1:
		return fmt.Errorf("consumer workers must be >= 1, got %d", c.Kafka.Workers)
	case c.Retry.MaxAttempts < 0:
		return fmt.Errorf("retry max attempts must be >= 0, got %d", c.Retry.MaxAttempts)
	case c.Retry.Delay < 0:
		return fmt.Errorf("retry delay must be >= 0, got %s", c.Retry.Delay)
	}

	switch c.Retry.Mode {
	case RetryModeBlocking:
	case RetryModeScheduled:
		if c.Kafka.RetryTopic == "" {
			return fmt.Errorf("retry mode %q needs a retry topic", c.Retry.Mode)
		}
	default:
		return fmt.Errorf("unknown retry mode %q", c.Retry.Mode)
	}

	switch c.RetryStore.Driver {
	case RetryStoreMemory, RetryStoreRedis:
	default:
		return fmt.Errorf("unknown retry store %q", c.RetryStore.Driver)
	}

	if c.Infra.MySQL.DSN != "" {
		if _, err := mysql.ParseDSN(c.Infra.MySQL.DSN); err != nil {
			return fmt.Errorf("invalid mysql dsn: %w", err)
		}
	}
	return nil
}

// getEnv 是一个内部辅助函数，从环境变量中读取配置。
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}

func parseCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
