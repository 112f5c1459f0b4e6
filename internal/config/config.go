// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	HTTPServer              `yaml:"http_server"`
	RedisConnection         `yaml:"redis_connection"`
	RabbitMQ                `yaml:"rabbitmq"`
	Gateway                 `yaml:"gateway"`
	Notifier                `yaml:"notifier"`
	JWTToken                `yaml:"jwttoken"`
	Scheduler               `yaml:"scheduler"`
	Progression             `yaml:"progression"`
	Plans                   []Plan `yaml:"plans"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
	RateLimit   float64       `yaml:"rate_limit" env-default:"20"`
	RateBurst   int           `yaml:"rate_burst" env-default:"40"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env-default:"localhost:6379"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
	LockTTL      time.Duration `yaml:"lock_ttl" env-default:"30s"`
}

// RabbitMQ настройки подключения к брокеру
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"3s"`
}

// Gateway настройки платёжного шлюза WATA
type Gateway struct {
	GatewayURL     string        `yaml:"base_url" env-default:"https://api-sandbox.wata.pro/api/h2h"`
	GatewayToken   string        `yaml:"token" env:"GATEWAY_TOKEN"`
	GatewayTimeout time.Duration `yaml:"timeout" env-default:"10s"`
	LinkTTL        time.Duration `yaml:"link_ttl" env-default:"1h"`
}

// Notifier настройки доставки сообщений пользователю
type Notifier struct {
	Kind           string        `yaml:"kind" env-default:"telegram"`
	TelegramURL    string        `yaml:"telegram_api_url" env-default:"https://api.telegram.org"`
	TelegramToken  string        `yaml:"telegram_token" env:"TELEGRAM_TOKEN"`
	MaxMessageSize int           `yaml:"max_message_size" env-default:"4000"`
	SendTimeout    time.Duration `yaml:"send_timeout" env-default:"10s"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"720h"`
}

// Scheduler периоды фоновых циклов
type Scheduler struct {
	PaymentPeriod       time.Duration `yaml:"payment_period" env-default:"30s"`
	PaymentBackoff      time.Duration `yaml:"payment_backoff" env-default:"60s"`
	NotificationPeriod  time.Duration `yaml:"notification_period" env-default:"30s"`
	NotificationBackoff time.Duration `yaml:"notification_backoff" env-default:"60s"`
	NotificationBatch   int           `yaml:"notification_batch" env-default:"10"`
	DecayPeriod         time.Duration `yaml:"decay_period" env-default:"6h"`
	DecayBackoff        time.Duration `yaml:"decay_backoff" env-default:"1h"`
	ExpiryPeriod        time.Duration `yaml:"expiry_period" env-default:"6h"`
	ExpiryBackoff       time.Duration `yaml:"expiry_backoff" env-default:"1h"`
	WarningHorizon      time.Duration `yaml:"warning_horizon" env-default:"72h"`
	WarningTolerance    time.Duration `yaml:"warning_tolerance" env-default:"12h"`
	WarningCooldown     time.Duration `yaml:"warning_cooldown" env-default:"24h"`
}

// Progression настройки игровой механики
type Progression struct {
	// InactivityDays допустимое число дней без задач по уровню подписки.
	InactivityDays map[int]float64 `yaml:"inactivity_days"`
	CacheTTL       time.Duration   `yaml:"cache_ttl" env-default:"10m"`
}

// Plan тариф: срок, цена в рублях и уровень подписки
type Plan struct {
	Months int   `yaml:"months"`
	Price  int64 `yaml:"price"`
	Level  int   `yaml:"level"`
}

// DefaultPlans тарифы по умолчанию
func DefaultPlans() []Plan {
	return []Plan{
		{Months: 1, Price: 200, Level: 1},
		{Months: 3, Price: 1200, Level: 2},
		{Months: 6, Price: 3000, Level: 2},
		{Months: 12, Price: 4000, Level: 3},
	}
}

// DefaultInactivityDays допустимая неактивность по уровню подписки
func DefaultInactivityDays() map[int]float64 {
	return map[int]float64{1: 2, 2: 3, 3: 5}
}

// MustLoad функция для загрузки конфига, путь берётся из CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// Load читает конфиг из файла и подставляет значения по умолчанию
func Load(path string) (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Plans) == 0 {
		cfg.Plans = DefaultPlans()
	}
	if len(cfg.InactivityDays) == 0 {
		cfg.InactivityDays = DefaultInactivityDays()
	}
	return &cfg, nil
}

// PlanFor возвращает тариф на указанное число месяцев
func (c *Config) PlanFor(months int) (Plan, bool) {
	for _, p := range c.Plans {
		if p.Months == months {
			return p, true
		}
	}
	return Plan{}, false
}

// InactivityLimits переводит дни в длительности
func (p Progression) InactivityLimits() map[int]time.Duration {
	limits := make(map[int]time.Duration, len(p.InactivityDays))
	for level, days := range p.InactivityDays {
		limits[level] = time.Duration(days * float64(24*time.Hour))
	}
	return limits
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"MigrationsPath: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"Gateway:\n"+
			"  URL: %s\n"+
			"  Timeout: %s\n"+
			"Notifier:\n"+
			"  Kind: %s\n"+
			"  MaxMessageSize: %d\n"+
			"Scheduler:\n"+
			"  Payments: %s/%s\n"+
			"  Notifications: %s/%s batch %d\n"+
			"  Decay: %s/%s\n"+
			"  Expiry: %s/%s\n",
		c.Env,
		c.MigrationsPath,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.AddressRedis,
		c.DB,
		c.GatewayURL,
		c.GatewayTimeout,
		c.Kind,
		c.MaxMessageSize,
		c.PaymentPeriod, c.PaymentBackoff,
		c.NotificationPeriod, c.NotificationBackoff, c.NotificationBatch,
		c.DecayPeriod, c.DecayBackoff,
		c.ExpiryPeriod, c.ExpiryBackoff,
	)
}
