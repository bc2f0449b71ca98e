package utils

import (
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	RabbitMQ     RabbitMQConfig
	JWT          JWTConfig
	Email        EmailConfig
	Stripe       StripeConfig
	Subscription SubscriptionConfig
	Booking      BookingConfig
	Notification NotificationConfig
	Fee          FeeConfig
}

type AppConfig struct {
	Name            string
	Port            string
	Debug           bool
	LogPath         string
	CORSOrigins     []string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	MaxConns int32
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration
}

type RabbitMQConfig struct {
	URL      string
	Exchange string
}

type JWTConfig struct {
	Secret string
}

type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	Timeout       time.Duration
}

type SubscriptionConfig struct {
	BasicPrice        float64
	PremiumPrice      float64
	PeriodDays        int
	ExpiryWarningDays int
}

type BookingConfig struct {
	StrictConflictCheck bool
}

type NotificationConfig struct {
	QueueSize int
	Workers   int
}

type FeeConfig struct {
	CacheTTL time.Duration
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("APP_NAME", "artisan-marketplace")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("CORS_ORIGINS", "*")
	viper.SetDefault("SHUTDOWN_TIMEOUT_SECONDS", 15)
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_LOCK_TTL_SECONDS", 30)
	viper.SetDefault("RABBITMQ_EXCHANGE", "marketplace.events")
	viper.SetDefault("STRIPE_CURRENCY", "usd")
	viper.SetDefault("STRIPE_TIMEOUT_SECONDS", 10)
	viper.SetDefault("SUBSCRIPTION_BASIC_PRICE", 9.99)
	viper.SetDefault("SUBSCRIPTION_PREMIUM_PRICE", 19.99)
	viper.SetDefault("SUBSCRIPTION_PERIOD_DAYS", 30)
	viper.SetDefault("SUBSCRIPTION_EXPIRY_WARNING_DAYS", 3)
	viper.SetDefault("BOOKING_STRICT_CONFLICT_CHECK", false)
	viper.SetDefault("NOTIFICATION_QUEUE_SIZE", 256)
	viper.SetDefault("NOTIFICATION_WORKERS", 2)
	viper.SetDefault("FEE_CACHE_TTL_SECONDS", 60)

	// .env is optional, containers configure through the environment
	if _, err := os.Stat(".env"); err == nil {
		if err := viper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:            viper.GetString("APP_NAME"),
			Port:            viper.GetString("PORT"),
			Debug:           viper.GetBool("DEBUG"),
			LogPath:         viper.GetString("LOG_PATH"),
			CORSOrigins:     SplitCSV(viper.GetString("CORS_ORIGINS")),
			ShutdownTimeout: time.Duration(viper.GetInt("SHUTDOWN_TIMEOUT_SECONDS")) * time.Second,
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASS"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
			MaxConns: viper.GetInt32("DB_MAX_CONNS"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
			LockTTL:  time.Duration(viper.GetInt("REDIS_LOCK_TTL_SECONDS")) * time.Second,
		},
		RabbitMQ: RabbitMQConfig{
			URL:      viper.GetString("RABBITMQ_URL"),
			Exchange: viper.GetString("RABBITMQ_EXCHANGE"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("JWT_SECRET"),
		},
		Email: EmailConfig{
			Host:     viper.GetString("SMTP_HOST"),
			Port:     viper.GetInt("SMTP_PORT"),
			User:     viper.GetString("SMTP_USER"),
			Password: viper.GetString("SMTP_PASS"),
			From:     viper.GetString("EMAIL_FROM"),
		},
		Stripe: StripeConfig{
			SecretKey:     viper.GetString("STRIPE_SECRET_KEY"),
			WebhookSecret: viper.GetString("STRIPE_WEBHOOK_SECRET"),
			Currency:      viper.GetString("STRIPE_CURRENCY"),
			Timeout:       time.Duration(viper.GetInt("STRIPE_TIMEOUT_SECONDS")) * time.Second,
		},
		Subscription: SubscriptionConfig{
			BasicPrice:        viper.GetFloat64("SUBSCRIPTION_BASIC_PRICE"),
			PremiumPrice:      viper.GetFloat64("SUBSCRIPTION_PREMIUM_PRICE"),
			PeriodDays:        viper.GetInt("SUBSCRIPTION_PERIOD_DAYS"),
			ExpiryWarningDays: viper.GetInt("SUBSCRIPTION_EXPIRY_WARNING_DAYS"),
		},
		Booking: BookingConfig{
			StrictConflictCheck: viper.GetBool("BOOKING_STRICT_CONFLICT_CHECK"),
		},
		Notification: NotificationConfig{
			QueueSize: viper.GetInt("NOTIFICATION_QUEUE_SIZE"),
			Workers:   viper.GetInt("NOTIFICATION_WORKERS"),
		},
		Fee: FeeConfig{
			CacheTTL: time.Duration(viper.GetInt("FEE_CACHE_TTL_SECONDS")) * time.Second,
		},
	}

	return config, nil
}
