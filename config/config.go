package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort    int
	SiteBaseURL   string
	JWTSecret     string
	Database      DatabaseConfig
	SMTP          SMTPConfig
	BrokerBackend string
	RabbitMQ      RabbitMQConfig
	PubSub        PubSubConfig
	StorageDriver string
	Minio         MinioConfig
	GCS           GCSConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	UseSSL   bool
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	UseTLS   bool
}

type RabbitMQConfig struct {
	URL             string
	QueueDurable    bool
	QueueAutoDelete bool
	PrefetchCount   int
}

type PubSubConfig struct {
	ProjectID          string
	CredentialsFile    string
	SubscriptionSuffix string
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type GCSConfig struct {
	Bucket          string
	ProjectID       string
	CredentialsFile string
}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "counseldesk"),
		Password: getEnv("DB_PASSWORD", "password"),
		DBName:   getEnv("DB_NAME", "counseldesk_db"),
		UseSSL:   getEnvBool("DB_USE_SSL", false),
	}

	smtpConfig := SMTPConfig{
		Host:     getEnv("SMTP_HOST", "localhost"),
		Port:     getEnvInt("SMTP_PORT", 587),
		Username: getEnv("SMTP_USERNAME", ""),
		Password: getEnv("SMTP_PASSWORD", ""),
		From:     getEnv("SMTP_FROM", "no-reply@counseldesk.local"),
		UseTLS:   getEnvBool("SMTP_USE_TLS", true),
	}

	rabbitConfig := RabbitMQConfig{
		URL:             getEnv("RABBITMQ_URL", ""),
		QueueDurable:    getEnvBool("RABBITMQ_QUEUE_DURABLE", true),
		QueueAutoDelete: getEnvBool("RABBITMQ_QUEUE_AUTODELETE", false),
		PrefetchCount:   getEnvInt("RABBITMQ_PREFETCH", 0),
	}

	pubsubConfig := PubSubConfig{
		ProjectID:          getEnv("PUBSUB_PROJECT_ID", ""),
		CredentialsFile:    getEnv("PUBSUB_CREDENTIALS_FILE", ""),
		SubscriptionSuffix: getEnv("PUBSUB_SUBSCRIPTION_SUFFIX", "-sub"),
	}

	minioConfig := MinioConfig{
		Endpoint:  getEnv("MINIO_ENDPOINT", ""),
		AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		SecretKey: getEnv("MINIO_SECRET_KEY", ""),
		Bucket:    getEnv("MINIO_BUCKET", "counseldesk-uploads"),
		UseSSL:    getEnvBool("MINIO_USE_SSL", false),
	}

	gcsConfig := GCSConfig{
		Bucket:          getEnv("GCS_BUCKET", ""),
		ProjectID:       getEnv("GCS_PROJECT_ID", ""),
		CredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
	}

	return Config{
		ServerPort:    getEnvInt("SERVER_PORT", 8080),
		SiteBaseURL:   getEnv("SITE_BASE_URL", "http://localhost:3000"),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		Database:      dbConfig,
		SMTP:          smtpConfig,
		BrokerBackend: getEnv("BROKER_BACKEND", "rabbitmq"),
		RabbitMQ:      rabbitConfig,
		PubSub:        pubsubConfig,
		StorageDriver: getEnv("STORAGE_DRIVER", "minio"),
		Minio:         minioConfig,
		GCS:           gcsConfig,
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		fmt.Sscanf(valueStr, "%d", &value)
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		return valueStr == "1" || valueStr == "true" || valueStr == "yes"
	}
	return defaultValue
}
