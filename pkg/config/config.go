package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/tonakai-s/toktok/pkg/errors"
	"github.com/tonakai-s/toktok/pkg/validation"
)

// DefaultFile имя конфигурационного файла по умолчанию
const DefaultFile = "toktok.yaml"

// Допустимые границы scheduler.tick
const (
	MinTick = time.Millisecond
	MaxTick = time.Minute
)

// Типы проверок, которые понимает фабрика checker'ов
const (
	CheckTypeWeb      = "web"
	CheckTypeServer   = "server"
	CheckTypeGRPC     = "grpc"
	CheckTypeRedis    = "redis"
	CheckTypePostgres = "postgres"
)

// Config представляет конфигурацию toktok
type Config struct {
	Environment  string                   `json:"environment" yaml:"environment" validate:"required,oneof=dev staging prod"`
	Logger       LoggerConfig             `json:"logger" yaml:"logger"`
	Server       ServerConfig             `json:"server" yaml:"server"`
	Scheduler    SchedulerConfig          `json:"scheduler" yaml:"scheduler"`
	TaskLog      TaskLogConfig            `json:"tasklog" yaml:"tasklog"`
	Tracing      TracingConfig            `json:"tracing" yaml:"tracing"`
	Services     map[string]ServiceConfig `json:"services" yaml:"services" validate:"dive"`
	Notification NotificationConfig       `json:"notification" yaml:"notification"`
}

// LoggerConfig определяет уровень логирования
type LoggerConfig struct {
	Level string `json:"level" yaml:"level" validate:"required,oneof=debug info warn error"`
}

// ServerConfig представляет конфигурацию служебного HTTP сервера (health, metrics)
type ServerConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Host    string `json:"host" yaml:"host" validate:"required"`
	Port    int    `json:"port" yaml:"port" validate:"gt=0,lte=65535"`
}

// SchedulerConfig параметры цикла диспетчеризации
type SchedulerConfig struct {
	Tick          time.Duration `json:"tick" yaml:"tick" validate:"gt=0"`
	MaxConcurrent int           `json:"max_concurrent" yaml:"max_concurrent" validate:"gte=0"`
	ChannelBuffer int           `json:"channel_buffer" yaml:"channel_buffer" validate:"gt=0"`
}

// TaskLogConfig параметры файловых журналов задач.
// Пустой Dir означает $TMPDIR/toktok.
type TaskLogConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Dir     string `json:"dir" yaml:"dir"`
}

// TracingConfig параметры OpenTelemetry
type TracingConfig struct {
	Enabled     bool    `json:"enabled" yaml:"enabled"`
	SampleRatio float64 `json:"sample_ratio" yaml:"sample_ratio" validate:"gte=0,lte=1"`
}

// ServiceConfig описывает один наблюдаемый сервис
type ServiceConfig struct {
	Interval      int         `json:"interval" yaml:"interval" validate:"gt=0"`
	Configuration CheckConfig `json:"configuration" yaml:"configuration"`
}

// IntervalDuration возвращает интервал проверки
func (s ServiceConfig) IntervalDuration() time.Duration {
	return time.Duration(s.Interval) * time.Second
}

// CheckConfig конфигурация конкретной проверки. Набор обязательных полей зависит от Type.
type CheckConfig struct {
	Type    string `json:"type" yaml:"type" validate:"required,oneof=web server grpc redis postgres"`
	Timeout int    `json:"timeout" yaml:"timeout" validate:"gte=0"`

	// web
	URL              string            `json:"url" yaml:"url"`
	Domain           string            `json:"domain" yaml:"domain"`
	Path             string            `json:"path" yaml:"path"`
	Method           string            `json:"method" yaml:"method"`
	ExpectedHTTPCode int               `json:"expected_http_code" yaml:"expected_http_code"`
	Headers          map[string]string `json:"headers" yaml:"headers"`

	// server
	Socket  string `json:"socket" yaml:"socket"`
	Retries int    `json:"retries" yaml:"retries" validate:"gte=0"`

	// grpc
	Target  string `json:"target" yaml:"target"`
	Service string `json:"service" yaml:"service"`

	// redis
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`

	// postgres
	DSN string `json:"dsn" yaml:"dsn"`
}

// TimeoutDuration возвращает таймаут проверки, 0 означает значение по умолчанию checker'а
func (c CheckConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// ResolvedURL возвращает url, либо domain+path
func (c CheckConfig) ResolvedURL() string {
	if c.URL != "" {
		return c.URL
	}
	return c.Domain + c.Path
}

// NotificationConfig конфигурация каналов уведомлений. Отсутствующий блок отключает канал.
type NotificationConfig struct {
	Timeout   time.Duration        `json:"timeout" yaml:"timeout" validate:"gt=0"`
	RateLimit RateLimitConfig      `json:"rate_limit" yaml:"rate_limit"`
	Mailer    *MailerConfig        `json:"mailer" yaml:"mailer" validate:"omitempty"`
	File      *FileNotifierConfig  `json:"file" yaml:"file" validate:"omitempty"`
	Webhook   *WebhookConfig       `json:"webhook" yaml:"webhook" validate:"omitempty"`
	Telegram  *TelegramConfig      `json:"telegram" yaml:"telegram" validate:"omitempty"`
	RabbitMQ  *RabbitMQConfig      `json:"rabbitmq" yaml:"rabbitmq" validate:"omitempty"`
	Redis     *RedisNotifierConfig `json:"redis" yaml:"redis" validate:"omitempty"`
	Journal   *JournalConfig       `json:"journal" yaml:"journal" validate:"omitempty"`
}

// RateLimitConfig ограничение частоты уведомлений на сервис
type RateLimitConfig struct {
	Enabled   bool          `json:"enabled" yaml:"enabled"`
	Backend   string        `json:"backend" yaml:"backend" validate:"oneof=local redis"`
	Limit     int           `json:"limit" yaml:"limit" validate:"gt=0"`
	Window    time.Duration `json:"window" yaml:"window" validate:"gt=0"`
	RedisAddr string        `json:"redis_addr" yaml:"redis_addr"`
}

// Recipients список адресов; в YAML допускается как строка, так и список
type Recipients []string

// UnmarshalYAML принимает скаляр или последовательность
func (r *Recipients) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var single string
	if err := unmarshal(&single); err == nil {
		if single == "" {
			*r = nil
		} else {
			*r = Recipients{single}
		}
		return nil
	}

	var many []string
	if err := unmarshal(&many); err != nil {
		return err
	}
	*r = many
	return nil
}

// MailerConfig конфигурация SMTP уведомлений.
// SMTPCredentials указывает на файл: первая строка логин, вторая пароль.
type MailerConfig struct {
	SMTPDomain      string     `json:"smtp_domain" yaml:"smtp_domain" validate:"required,hostname_rfc1123|ip"`
	SMTPPort        int        `json:"smtp_port" yaml:"smtp_port" validate:"gte=0,lte=65535"`
	SMTPCredentials string     `json:"smtp_credentials" yaml:"smtp_credentials" validate:"required"`
	From            string     `json:"from" yaml:"from" validate:"required,email"`
	To              Recipients `json:"to" yaml:"to" validate:"required,min=1,dive,email"`
	Cc              Recipients `json:"cc" yaml:"cc" validate:"dive,email"`
	Bcc             Recipients `json:"bcc" yaml:"bcc" validate:"dive,email"`
}

// FileNotifierConfig файл для записи алертов
type FileNotifierConfig struct {
	Path string `json:"path" yaml:"path" validate:"required"`
}

// WebhookConfig конфигурация HTTP webhook
type WebhookConfig struct {
	URL     string            `json:"url" yaml:"url" validate:"required,url"`
	Secret  string            `json:"secret" yaml:"secret"`
	Headers map[string]string `json:"headers" yaml:"headers"`
}

// TelegramConfig конфигурация Telegram бота
type TelegramConfig struct {
	Token  string `json:"token" yaml:"token" validate:"required"`
	ChatID int64  `json:"chat_id" yaml:"chat_id" validate:"required"`
	APIURL string `json:"api_url" yaml:"api_url" validate:"omitempty,url"`
}

// RabbitMQConfig конфигурация публикации в RabbitMQ
type RabbitMQConfig struct {
	URL        string `json:"url" yaml:"url" validate:"required"`
	Exchange   string `json:"exchange" yaml:"exchange"`
	RoutingKey string `json:"routing_key" yaml:"routing_key"`
}

// RedisNotifierConfig конфигурация публикации в Redis
type RedisNotifierConfig struct {
	Addr        string `json:"addr" yaml:"addr" validate:"required"`
	Password    string `json:"password" yaml:"password"`
	DB          int    `json:"db" yaml:"db" validate:"gte=0"`
	Channel     string `json:"channel" yaml:"channel"`
	HistoryKey  string `json:"history_key" yaml:"history_key"`
	HistorySize int64  `json:"history_size" yaml:"history_size" validate:"gte=0"`
}

// JournalConfig конфигурация журнала инцидентов
type JournalConfig struct {
	Driver string `json:"driver" yaml:"driver" validate:"required,oneof=postgres sqlite"`
	DSN    string `json:"dsn" yaml:"dsn" validate:"required"`
}

// Default возвращает конфигурацию со значениями по умолчанию
func Default() *Config {
	return &Config{
		Environment: "dev",
		Logger: LoggerConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    9090,
		},
		Scheduler: SchedulerConfig{
			Tick:          time.Second,
			MaxConcurrent: 0,
			ChannelBuffer: 64,
		},
		TaskLog: TaskLogConfig{
			Enabled: true,
		},
		Tracing: TracingConfig{
			SampleRatio: 1.0,
		},
		Notification: NotificationConfig{
			Timeout: 30 * time.Second,
			RateLimit: RateLimitConfig{
				Backend: "local",
				Limit:   10,
				Window:  time.Minute,
			},
		},
	}
}

// LoadConfig загружает конфигурацию в следующем порядке приоритета:
// 1. Загрузка значений по умолчанию
// 2. Загрузка из файла (если указан)
// 3. Переопределение значениями из переменных окружения
// 4. Валидация конфигурации
func LoadConfig(configFile string) (*Config, error) {
	config := Default()

	if configFile != "" {
		if err := loadConfigFromFile(config, configFile); err != nil {
			return nil, errors.Wrap(err, errors.ErrConfig, "failed to load config from file")
		}
	}

	if err := loadConfigFromEnv(config); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfig, "failed to load config from environment")
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadConfigFromFile(config *Config, filename string) error {
	filename = os.ExpandEnv(filename)

	content, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("config file does not exist: %s", filename)
		}
		return err
	}

	// Сначала YAML, затем JSON
	if err := yaml.Unmarshal(content, config); err != nil {
		if jsonErr := json.Unmarshal(content, config); jsonErr != nil {
			return fmt.Errorf("failed to unmarshal config file as YAML or JSON: %w", err)
		}
	}

	return nil
}

func loadConfigFromEnv(config *Config) error {
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		config.Environment = env
	}
	if level := os.Getenv("LOGGER_LEVEL"); level != "" {
		config.Logger.Level = level
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid SERVER_PORT: %s", port)
		}
		config.Server.Port = p
	}
	if tick := os.Getenv("SCHEDULER_TICK"); tick != "" {
		d, err := time.ParseDuration(tick)
		if err != nil {
			return fmt.Errorf("invalid SCHEDULER_TICK: %s", tick)
		}
		config.Scheduler.Tick = d
	}
	if limit := os.Getenv("SCHEDULER_MAX_CONCURRENT"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			return fmt.Errorf("invalid SCHEDULER_MAX_CONCURRENT: %s", limit)
		}
		config.Scheduler.MaxConcurrent = n
	}
	if dir := os.Getenv("TASKLOG_DIR"); dir != "" {
		config.TaskLog.Dir = dir
	}

	return nil
}

// applyDefaults дозаполняет поля, которые зависят от присутствия блоков в файле
func (c *Config) applyDefaults() {
	for name, svc := range c.Services {
		if svc.Configuration.Type == CheckTypeWeb {
			if svc.Configuration.Method == "" {
				svc.Configuration.Method = "GET"
			}
			if svc.Configuration.ExpectedHTTPCode == 0 {
				svc.Configuration.ExpectedHTTPCode = 200
			}
		}
		c.Services[name] = svc
	}

	n := &c.Notification
	if n.Mailer != nil && n.Mailer.SMTPPort == 0 {
		n.Mailer.SMTPPort = 587
	}
	if n.Telegram != nil && n.Telegram.APIURL == "" {
		n.Telegram.APIURL = "https://api.telegram.org"
	}
	if n.RabbitMQ != nil && n.RabbitMQ.RoutingKey == "" {
		n.RabbitMQ.RoutingKey = "toktok.alerts"
	}
	if n.Redis != nil {
		if n.Redis.Channel == "" {
			n.Redis.Channel = "toktok:alerts"
		}
		if n.Redis.HistoryKey != "" && n.Redis.HistorySize == 0 {
			n.Redis.HistorySize = 100
		}
	}
}

// Validate проверяет конфигурацию: сначала теги, затем зависимости между полями
func (c *Config) Validate() error {
	if len(c.Services) == 0 {
		return errors.New(errors.ErrConfig, "None service provided, aborting.")
	}

	v := validation.NewValidator()
	if err := v.ValidateStruct(c); err != nil {
		return errors.Wrap(err, errors.ErrValidation, "invalid configuration")
	}

	if err := v.ValidateInterval(c.Scheduler.Tick, MinTick, MaxTick); err != nil {
		return errors.Wrap(err, errors.ErrValidation, "invalid configuration").WithDetails("scheduler.tick")
	}

	for _, name := range c.ServiceNames() {
		if err := validateCheck(v, c.Services[name].Configuration); err != nil {
			return errors.Wrap(err, errors.ErrValidation, "invalid configuration").
				WithDetails(fmt.Sprintf("service %q", name))
		}
	}

	if c.Notification.RateLimit.Enabled && c.Notification.RateLimit.Backend == "redis" &&
		c.Notification.RateLimit.RedisAddr == "" {
		return errors.New(errors.ErrValidation, "notification.rate_limit.redis_addr is required for redis backend")
	}

	return nil
}

func validateCheck(v *validation.Validator, check CheckConfig) error {
	switch check.Type {
	case CheckTypeWeb:
		if check.URL == "" && check.Domain == "" {
			return fmt.Errorf("'domain' or 'url' is a mandatory field in web type service config")
		}
		if err := v.ValidateURL(check.ResolvedURL(), []string{"http", "https"}); err != nil {
			return err
		}
		if err := v.ValidateHTTPCode(check.ExpectedHTTPCode); err != nil {
			return fmt.Errorf("'expected_http_code' %w", err)
		}
		return v.ValidateEnum(check.Method, []string{"GET", "HEAD", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}, "method")
	case CheckTypeServer:
		return v.ValidateHostPort(check.Socket)
	case CheckTypeGRPC:
		return v.ValidateHostPort(check.Target)
	case CheckTypeRedis:
		return v.ValidateHostPort(check.Addr)
	case CheckTypePostgres:
		if check.DSN == "" {
			return fmt.Errorf("'dsn' is a mandatory field in postgres type service config")
		}
		return nil
	default:
		return fmt.Errorf("type '%s' is not valid", check.Type)
	}
}

// ServiceNames возвращает имена сервисов в стабильном порядке
func (c *Config) ServiceNames() []string {
	names := make([]string, 0, len(c.Services))
	for name := range c.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
