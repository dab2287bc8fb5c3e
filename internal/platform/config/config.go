package config

import (
	"os"
	"strconv"
	"time"

	platformstrings "barangay/pkg/platform/strings"
)

// Server captures process level configuration.
type Server struct {
	Addr      string
	LogLevel  string
	LogFormat string

	Auth      Auth
	Database  Database
	Redis     RedisConfig
	Kafka     Kafka
	SMS       SMS
	Documents     Documents
	Announcements Announcements
	Activity      Activity
}

// Auth configures bearer token validation. Tokens are issued elsewhere.
type Auth struct {
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
}

// Database configures Postgres. An empty URL selects in-memory stores.
type Database struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	TxTimeout       time.Duration
	Migrate         bool
}

// RedisConfig configures the optional Redis-backed notification queue.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	QueueKey     string
}

// Kafka configures activity event fan-out. Empty brokers disables it.
type Kafka struct {
	Brokers           []string
	ActivityTopic     string
	Partitions        int32
	ReplicationFactor int16
}

// SMS selects and configures the notification gateway.
type SMS struct {
	Enabled          bool
	Provider         string
	SenderName       string
	SemaphoreAPIKey  string
	SemaphoreURL     string
	IProgAPIToken    string
	IProgURL         string
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	TwilioBaseURL    string
	QueueSize        int
	RatePerSecond    float64
	Burst            int
	SendTimeout      time.Duration
}

// Documents configures template and generated document storage.
type Documents struct {
	TemplatesDir   string
	GeneratedDir   string
	CacheSize      int
	CacheTTL       time.Duration
	RequestTimeout time.Duration
}

// Announcements configures where uploaded announcement images live.
type Announcements struct {
	ImagesDir string
}

// Activity configures activity log retention.
type Activity struct {
	Retention       time.Duration
	CleanupInterval time.Duration
	AsyncBuffer     int
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// development default, override in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:      envString("BARANGAY_ADDR", ":8080"),
		LogLevel:  envString("LOG_LEVEL", "info"),
		LogFormat: envString("LOG_FORMAT", "json"),
		Auth: Auth{
			JWTSigningKey: jwtSigningKey,
			JWTIssuer:     envString("JWT_ISSUER", "barangay"),
			JWTAudience:   envString("JWT_AUDIENCE", "barangay-api"),
		},
		Database: Database{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    envInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			TxTimeout:       envDuration("DB_TX_TIMEOUT", 5*time.Second),
			Migrate:         envString("DB_MIGRATE", "true") == "true",
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			QueueKey:     envString("REDIS_NOTIFICATION_QUEUE", "barangay:notifications"),
		},
		Kafka: Kafka{
			Brokers:           envList("KAFKA_BROKERS"),
			ActivityTopic:     envString("KAFKA_ACTIVITY_TOPIC", "barangay.activity"),
			Partitions:        int32(envInt("KAFKA_ACTIVITY_PARTITIONS", 3)),
			ReplicationFactor: int16(envInt("KAFKA_REPLICATION_FACTOR", 1)),
		},
		SMS: SMS{
			Enabled:          os.Getenv("SMS_ENABLED") == "true",
			Provider:         envString("SMS_PROVIDER", "mock"),
			SenderName:       envString("SMS_SENDER_NAME", "BRGYWEB"),
			SemaphoreAPIKey:  os.Getenv("SEMAPHORE_API_KEY"),
			SemaphoreURL:     envString("SEMAPHORE_API_URL", "https://api.semaphore.co/api/v4/messages"),
			IProgAPIToken:    os.Getenv("IPROG_SMS_API_TOKEN"),
			IProgURL:         envString("IPROG_SMS_API_URL", "https://sms.iprogtech.com/api/v1/sms_messages"),
			TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
			TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
			TwilioFromNumber: os.Getenv("TWILIO_PHONE_NUMBER"),
			TwilioBaseURL:    envString("TWILIO_API_URL", "https://api.twilio.com"),
			QueueSize:        envInt("SMS_QUEUE_SIZE", 256),
			RatePerSecond:    envFloat("SMS_RATE_PER_SECOND", 2),
			Burst:            envInt("SMS_BURST", 5),
			SendTimeout:      envDuration("SMS_SEND_TIMEOUT", 10*time.Second),
		},
		Documents: Documents{
			TemplatesDir:   envString("TEMPLATES_DIR", "templates"),
			GeneratedDir:   envString("GENERATED_DIR", "generated-documents"),
			CacheSize:      envInt("TEMPLATE_CACHE_SIZE", 16),
			CacheTTL:       envDuration("TEMPLATE_CACHE_TTL", 10*time.Minute),
			RequestTimeout: envDuration("DOCUMENT_REQUEST_TIMEOUT", 30*time.Second),
		},
		Announcements: Announcements{
			ImagesDir: envString("ANNOUNCEMENT_IMAGES_DIR", "uploads/announcements"),
		},
		Activity: Activity{
			Retention:       envDuration("ACTIVITY_RETENTION", 150*24*time.Hour),
			CleanupInterval: envDuration("ACTIVITY_CLEANUP_INTERVAL", 24*time.Hour),
			AsyncBuffer:     envInt("ACTIVITY_ASYNC_BUFFER", 256),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envList(key string) []string {
	return platformstrings.SplitList(os.Getenv(key))
}
