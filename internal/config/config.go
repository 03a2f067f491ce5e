package config

import (
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "GATEWAY"

type Server struct {
	Port              string `mapstructure:"port"`
	ShutdownTimeoutMs int    `mapstructure:"shutdown-timeout-ms"`
}

type Payment struct {
	SuccessRate       float64 `mapstructure:"success-rate"`
	MinDelayMs        int     `mapstructure:"min-delay-ms"`
	MaxDelayMs        int     `mapstructure:"max-delay-ms"`
	LinkExpiryMinutes int     `mapstructure:"link-expiry-minutes"`
	WebhookURL        string  `mapstructure:"webhook-url"`
	WebhookSecret     string  `mapstructure:"webhook-secret"`
	MerchantVPA       string  `mapstructure:"merchant-vpa"`
	MerchantName      string  `mapstructure:"merchant-name"`
	QRBaseURL         string  `mapstructure:"qr-base-url"`
}

type Shipping struct {
	Email           string `mapstructure:"email"`
	PasswordHash    string `mapstructure:"password-hash"`
	CompanyID       int    `mapstructure:"company-id"`
	WebhookURL      string `mapstructure:"webhook-url"`
	WebhookToken    string `mapstructure:"webhook-token"`
	WebhookDelayMs  int    `mapstructure:"webhook-delay-ms"`
	MinDeliveryDays int    `mapstructure:"min-delivery-days"`
	MaxDeliveryDays int    `mapstructure:"max-delivery-days"`
	OriginCity      string `mapstructure:"origin-city"`
	TrackURLBase    string `mapstructure:"track-url-base"`
}

type Messaging struct {
	WebhookURL        string  `mapstructure:"webhook-url"`
	AppSecret         string  `mapstructure:"app-secret"`
	VerifyToken       string  `mapstructure:"verify-token"`
	BusinessPhone     string  `mapstructure:"business-phone"`
	PhoneNumberID     string  `mapstructure:"phone-number-id"`
	BusinessAccountID string  `mapstructure:"business-account-id"`
	WebhookDelayMs    int     `mapstructure:"webhook-delay-ms"`
	DeliveryDelayMs   int     `mapstructure:"delivery-delay-ms"`
	ReadDelayMs       int     `mapstructure:"read-delay-ms"`
	FailureRate       float64 `mapstructure:"failure-rate"`
}

type CallbackSender struct {
	TimeoutMs int `mapstructure:"timeout-ms"`
}

type CallbackDispatcher struct {
	Parallelism         int `mapstructure:"parallelism"`
	MaxDeliveryAttempts int `mapstructure:"max-delivery-attempts"`
	RescheduleDelayMs   int `mapstructure:"reschedule-delay-ms"`
	HistorySize         int `mapstructure:"history-size"`
}

type Callback struct {
	Sender     CallbackSender     `mapstructure:"sender"`
	Dispatcher CallbackDispatcher `mapstructure:"dispatcher"`
}

type Database struct {
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Name          string `mapstructure:"name"`
	Host          string `mapstructure:"host"`
	Port          string `mapstructure:"port"`
	SSLMode       string `mapstructure:"ssl-mode"`
	MigrationsDir string `mapstructure:"migrations-dir"`
}

// Enabled reports whether webhook deliveries should be journaled to Postgres.
func (d Database) Enabled() bool {
	return d.Host != ""
}

type KafkaWriter struct {
	BatchSize      int `mapstructure:"batch-size"`
	BatchTimeoutMs int `mapstructure:"batch-timeout-ms"`
}

type KafkaBroker struct {
	URL string `mapstructure:"url"`
}

type KafkaTopic struct {
	GatewayEvents string `mapstructure:"gateway-events"`
}

type Kafka struct {
	Writer KafkaWriter `mapstructure:"writer"`
	Broker KafkaBroker `mapstructure:"broker"`
	Topic  KafkaTopic  `mapstructure:"topic"`
}

func (k Kafka) Enabled() bool {
	return k.Broker.URL != ""
}

type Metrics struct {
	URL          string `mapstructure:"url"`
	IntervalMs   int    `mapstructure:"interval-ms"`
	CommonLabels string `mapstructure:"common-labels"`
}

type Logs struct {
	URL   string `mapstructure:"url"`
	Level string `mapstructure:"level"`
}

type Config struct {
	Server    Server    `mapstructure:"server"`
	Payment   Payment   `mapstructure:"payment"`
	Shipping  Shipping  `mapstructure:"shipping"`
	Messaging Messaging `mapstructure:"messaging"`
	Callback  Callback  `mapstructure:"callback"`
	Database  Database  `mapstructure:"database"`
	Kafka     Kafka     `mapstructure:"kafka"`
	Metrics   Metrics   `mapstructure:"metrics"`
	Logs      Logs      `mapstructure:"logs"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdown-timeout-ms", 5_000)

	v.SetDefault("payment.success-rate", 0.95)
	v.SetDefault("payment.min-delay-ms", 5_000)
	v.SetDefault("payment.max-delay-ms", 30_000)
	v.SetDefault("payment.link-expiry-minutes", 30)
	v.SetDefault("payment.webhook-url", "")
	v.SetDefault("payment.webhook-secret", "emulator-payment-secret")
	v.SetDefault("payment.merchant-vpa", "merchant@yesbank")
	v.SetDefault("payment.merchant-name", "Emulator Merchant")
	v.SetDefault("payment.qr-base-url", "http://localhost:8080/payments/v1/qr")

	v.SetDefault("shipping.email", "")
	v.SetDefault("shipping.password-hash", "")
	v.SetDefault("shipping.company-id", 100001)
	v.SetDefault("shipping.webhook-url", "")
	v.SetDefault("shipping.webhook-token", "emulator-shipping-token")
	v.SetDefault("shipping.webhook-delay-ms", 2_000)
	v.SetDefault("shipping.min-delivery-days", 3)
	v.SetDefault("shipping.max-delivery-days", 7)
	v.SetDefault("shipping.origin-city", "Mumbai")
	v.SetDefault("shipping.track-url-base", "http://localhost:8080/shipping/track")

	v.SetDefault("messaging.webhook-url", "")
	v.SetDefault("messaging.app-secret", "emulator-app-secret")
	v.SetDefault("messaging.verify-token", "emulator-verify-token")
	v.SetDefault("messaging.business-phone", "15550001234")
	v.SetDefault("messaging.phone-number-id", "106540352242922")
	v.SetDefault("messaging.business-account-id", "102290129340398")
	v.SetDefault("messaging.webhook-delay-ms", 1_000)
	v.SetDefault("messaging.delivery-delay-ms", 2_000)
	v.SetDefault("messaging.read-delay-ms", 5_000)
	v.SetDefault("messaging.failure-rate", 0.02)

	v.SetDefault("callback.sender.timeout-ms", 10_000)
	v.SetDefault("callback.dispatcher.parallelism", 100)
	v.SetDefault("callback.dispatcher.max-delivery-attempts", 1)
	v.SetDefault("callback.dispatcher.reschedule-delay-ms", 10_000)
	v.SetDefault("callback.dispatcher.history-size", 500)

	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "gateway_emulator")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.ssl-mode", "disable")
	v.SetDefault("database.migrations-dir", "migrations")

	v.SetDefault("kafka.writer.batch-size", 100)
	v.SetDefault("kafka.writer.batch-timeout-ms", 100)
	v.SetDefault("kafka.broker.url", "")
	v.SetDefault("kafka.topic.gateway-events", "gateway-events")

	v.SetDefault("metrics.url", "")
	v.SetDefault("metrics.interval-ms", 10_000)
	v.SetDefault("metrics.common-labels", `service="gateway-emulator"`)

	v.SetDefault("logs.url", "")
	v.SetDefault("logs.level", "info")
}

// LoadConfig reads config.yaml from path (optional), a .env file next to it
// (optional) and GATEWAY_* environment overrides, on top of built-in defaults.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(path, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func MustLoadConfig(path string) *Config {
	config, err := LoadConfig(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return config
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func (p Payment) MinDelay() time.Duration { return millis(p.MinDelayMs) }
func (p Payment) MaxDelay() time.Duration { return millis(p.MaxDelayMs) }
func (p Payment) LinkExpiry() time.Duration {
	return time.Duration(p.LinkExpiryMinutes) * time.Minute
}

func (s Shipping) WebhookDelay() time.Duration { return millis(s.WebhookDelayMs) }

func (m Messaging) WebhookDelay() time.Duration  { return millis(m.WebhookDelayMs) }
func (m Messaging) DeliveryDelay() time.Duration { return millis(m.DeliveryDelayMs) }
func (m Messaging) ReadDelay() time.Duration     { return millis(m.ReadDelayMs) }

func (s CallbackSender) Timeout() time.Duration { return millis(s.TimeoutMs) }

func (d CallbackDispatcher) RescheduleDelay() time.Duration { return millis(d.RescheduleDelayMs) }

func (s Server) ShutdownTimeout() time.Duration { return millis(s.ShutdownTimeoutMs) }
