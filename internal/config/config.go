package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	LogLevel    string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	QueueName     string

	Billing   BillingConfig
	Providers ProviderConfig
	Worker    WorkerConfig

	Language string
}

// BillingConfig carries the prepaid-minutes and subscription knobs.
type BillingConfig struct {
	DefaultFreeMinutes  float64
	SubscriptionDays    int
	SubscriptionPaise   int64
	Currency            string
	FallbackPaymentURL  string
	FallbackEstimateMin float64
}

// ProviderConfig carries credentials for the external collaborators.
type ProviderConfig struct {
	OpenAIAPIKey          string
	TranscribeModel       string
	SummarizeModel        string
	TwilioAccountSID      string
	TwilioAuthToken       string
	TwilioWhatsAppFrom    string
	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayWebhookSecret string
}

// WorkerConfig bounds the long-running calls in the processing worker and
// tunes the lost-job recovery sweep.
type WorkerConfig struct {
	DownloadTimeoutSeconds   int
	TranscribeTimeoutSeconds int
	SummarizeTimeoutSeconds  int
	PollTimeoutSeconds       int
	RequeueAfterSeconds      int
	RequeueSweepSeconds      int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "mina"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		LogLevel:    getenv("LOG_LEVEL", "info"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "mina"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),

		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),
		QueueName:     getenv("QUEUE_NAME", "mina:jobs"),

		Billing: BillingConfig{
			DefaultFreeMinutes:  getenvFloat("DEFAULT_FREE_MINUTES", 30.0),
			SubscriptionDays:    getenvInt("SUBSCRIPTION_DAYS", 30),
			SubscriptionPaise:   getenvInt64("SUBSCRIPTION_PRICE_PAISE", 49900),
			Currency:            getenv("CURRENCY", "INR"),
			FallbackPaymentURL:  getenv("FALLBACK_PAYMENT_URL", ""),
			FallbackEstimateMin: getenvFloat("FALLBACK_ESTIMATE_MINUTES", 1.0),
		},
		Providers: ProviderConfig{
			OpenAIAPIKey:          strings.TrimSpace(getenv("OPENAI_API_KEY", "")),
			TranscribeModel:       getenv("OPENAI_TRANSCRIBE_MODEL", "whisper-1"),
			SummarizeModel:        getenv("OPENAI_SUMMARIZE_MODEL", "gpt-4o-mini"),
			TwilioAccountSID:      strings.TrimSpace(getenv("TWILIO_ACCOUNT_SID", "")),
			TwilioAuthToken:       strings.TrimSpace(getenv("TWILIO_AUTH_TOKEN", "")),
			TwilioWhatsAppFrom:    strings.TrimSpace(getenv("TWILIO_WHATSAPP_FROM", "")),
			RazorpayKeyID:         strings.TrimSpace(getenv("RAZORPAY_KEY_ID", "")),
			RazorpayKeySecret:     strings.TrimSpace(getenv("RAZORPAY_KEY_SECRET", "")),
			RazorpayWebhookSecret: strings.TrimSpace(getenv("RAZORPAY_WEBHOOK_SECRET", "")),
		},
		Worker: WorkerConfig{
			DownloadTimeoutSeconds:   getenvInt("WORKER_DOWNLOAD_TIMEOUT", 60),
			TranscribeTimeoutSeconds: getenvInt("WORKER_TRANSCRIBE_TIMEOUT", 120),
			SummarizeTimeoutSeconds:  getenvInt("WORKER_SUMMARIZE_TIMEOUT", 60),
			PollTimeoutSeconds:       getenvInt("WORKER_POLL_TIMEOUT", 5),
			RequeueAfterSeconds:      getenvInt("WORKER_REQUEUE_AFTER", 600),
			RequeueSweepSeconds:      getenvInt("WORKER_REQUEUE_SWEEP", 300),
		},

		Language: getenv("LANGUAGE", "en"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
