// Package config предоставялет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Брокеры, через которые сервис публикует почтовые события.
const (
	BrokerRabbitMQ = "rabbitmq"
	BrokerKafka    = "kafka"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string        `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string        `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string        `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	Broker                  string        `yaml:"broker" env:"BROKER" env-default:"rabbitmq"`
	ResetTokenTTL           time.Duration `yaml:"reset_token_ttl" env:"RESET_TOKEN_TTL" env-default:"1h"`
	UsersCacheTTL           time.Duration `yaml:"users_cache_ttl" env:"USERS_CACHE_TTL" env-default:"30s"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	RabbitMQ                `yaml:"rabbitmq"`
	Kafka                   `yaml:"kafka"`
	SMTP                    `yaml:"smtp"`
	Links                   `yaml:"links"`
	Password                `yaml:"password"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env:"HTTP_TIMEOUT" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	RedisAddress     string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	RedisPassword    string        `yaml:"password" env:"REDIS_PASSWORD"`
	RedisUser        string        `yaml:"user" env:"REDIS_USER"`
	RedisDB          int           `yaml:"db" env:"REDIS_DB"`
	RedisMaxRetries  int           `yaml:"max_retries" env:"REDIS_MAX_RETRIES"`
	RedisDialTimeout time.Duration `yaml:"dial_timeout" env:"REDIS_DIAL_TIMEOUT"`
	RedisTimeout     time.Duration `yaml:"timeoutredis" env:"REDIS_TIMEOUT"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env:"JWT_TOKEN_TTL" env-default:"24h"`
}

// RabbitMQ настройки подключения к RabbitMQ.
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env:"RABBITMQ_MAX_RETRIES" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env:"RABBITMQ_RETRY_DELAY" env-default:"2s"`
}

// Kafka настройки подключения к Kafka.
type Kafka struct {
	KafkaBrokers  []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	KafkaTopic    string   `yaml:"topic" env:"KAFKA_TOPIC" env-default:"identity.mail"`
	KafkaGroupID  string   `yaml:"group_id" env:"KAFKA_GROUP_ID" env-default:"mailer"`
	KafkaUser     string   `yaml:"user" env:"KAFKA_USER"`
	KafkaPassword string   `yaml:"password" env:"KAFKA_PASSWORD"`
}

// SMTP настройки почтового сервера для mailer.
type SMTP struct {
	SMTPHost string `yaml:"host" env:"SMTP_HOST"`
	SMTPPort string `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	SMTPUser string `yaml:"user" env:"SMTP_USER"`
	SMTPPass string `yaml:"pass" env:"SMTP_PASS"`
}

// Links базовые адреса для ссылок в письмах.
type Links struct {
	PublicBaseURL string `yaml:"public_base_url" env:"PUBLIC_BASE_URL" env-default:"http://localhost:8080"`
	ResetPageURL  string `yaml:"reset_page_url" env:"RESET_PAGE_URL" env-default:"http://localhost:3000/reset-password"`
}

// Password параметры хэширования паролей.
type Password struct {
	BcryptCost    int `yaml:"bcrypt_cost" env:"BCRYPT_COST" env-default:"10"`
	MaxConcurrent int `yaml:"max_concurrent" env:"BCRYPT_MAX_CONCURRENT"`
}

// MustLoad функция для загрузки конфига, возвращает конфиг, сгенерированный из config/config.go
func MustLoad() *Config {
	// .env необязателен, отсутствие файла не ошибка
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %s", err)
	}
	return &cfg
}

// Validate проверяет значения, без которых сервис не может стартовать.
func (c *Config) Validate() error {
	if c.JWTSecretKey == "" {
		return errors.New("jwttoken.jwt_secret_key must be set")
	}
	if c.TokenTTL <= 0 {
		return errors.New("jwttoken.token_ttl must be positive")
	}
	if c.ResetTokenTTL <= 0 {
		return errors.New("reset_token_ttl must be positive")
	}
	switch c.Broker {
	case BrokerRabbitMQ, BrokerKafka:
	default:
		return fmt.Errorf("unknown broker %q", c.Broker)
	}
	return nil
}

// String печатает конфиг без секретов.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"Broker: %s\n"+
			"MigrationsPath: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"JWTToken:\n"+
			"  TokenTTL: %s\n"+
			"ResetTokenTTL: %s\n",
		c.Env,
		c.Broker,
		c.MigrationsPath,
		c.RedisAddress,
		c.RedisDB,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.TokenTTL,
		c.ResetTokenTTL,
	)
}
