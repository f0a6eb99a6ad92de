package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server struct {
		Port    string
		Env     string
		Timeout time.Duration
		BaseURL string
	}

	// Database configuration
	Database struct {
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
		MaxConns int
		Timeout  time.Duration
	}

	// Redis configuration
	Redis struct {
		Enabled  bool
		Addr     string
		Password string
		DB       int
	}

	// JWT configuration
	JWT struct {
		Enabled bool
		Secret  string
		Expiry  time.Duration
	}

	// Security configuration
	Security struct {
		RateLimit      float64
		RateLimitBurst int
		AllowedOrigins []string
		TrustedProxies []string
	}

	// Logging configuration
	Logging struct {
		Level  string
		Format string
	}

	// Chat pipeline configuration
	Chat struct {
		// Active gateway preset
		GatewayBaseURL  string
		GatewayAPIKey   string
		GatewayKeyPath  string // secrets-manager key; takes precedence over GatewayAPIKey when set
		GatewayModel    string
		GatewayTimeout  time.Duration
		HistoryWindow   int
		MinFragments    int
		ReplyDelayBase  time.Duration
		ReplyDelayRand  time.Duration
		ClaimDelayBase  time.Duration
		ClaimDelayRand  time.Duration
		DefaultMaxWords int
		UserDisplayName string
	}
}

var (
	instance *Config
	once     sync.Once
)

// New creates a new Config instance with values from environment variables
// Uses singleton pattern to ensure only one instance exists
func New() *Config {
	once.Do(func() {
		// Load .env file if exists
		godotenv.Load()

		instance = &Config{}

		// Server config
		instance.Server.Port = getEnvString("PORT", "8081")
		instance.Server.Env = getEnvString("APP_ENV", "development")
		instance.Server.Timeout = getEnvDuration("SERVER_TIMEOUT", 30*time.Second)
		instance.Server.BaseURL = getEnvString("BASE_URL", "http://localhost:"+instance.Server.Port)

		// Database config
		instance.Database.Host = getEnvString("DB_HOST", "localhost")
		instance.Database.Port = getEnvString("DB_PORT", "5432")
		instance.Database.User = getEnvString("DB_USER", "postgres")
		instance.Database.Password = getEnvString("DB_PASSWORD", "postgres")
		instance.Database.Name = getEnvString("DB_NAME", "phone-sim")
		instance.Database.SSLMode = getEnvString("DB_SSL_MODE", "disable")
		instance.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 20)
		instance.Database.Timeout = getEnvDuration("DB_TIMEOUT", 5*time.Second)

		// Redis config
		instance.Redis.Enabled = getEnvBool("REDIS_ENABLED", false)
		instance.Redis.Addr = getEnvString("REDIS_URL", "localhost:6379")
		instance.Redis.Password = getEnvString("REDIS_PASSWORD", "")
		instance.Redis.DB = getEnvInt("REDIS_DB", 0)

		// JWT config
		instance.JWT.Enabled = getEnvBool("JWT_ENABLED", false)
		instance.JWT.Secret = getEnvString("JWT_SECRET", "default-jwt-secret-do-not-use-in-production")
		instance.JWT.Expiry = getEnvDuration("JWT_EXPIRY", 24*time.Hour)

		// Security config
		instance.Security.RateLimit = float64(getEnvInt("RATE_LIMIT", 5))
		instance.Security.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", 10)
		instance.Security.AllowedOrigins = getEnvStringSlice("ALLOWED_ORIGINS", []string{"*"})
		instance.Security.TrustedProxies = getEnvStringSlice("TRUSTED_PROXIES", []string{"127.0.0.1"})

		// Logging config
		instance.Logging.Level = getEnvString("LOG_LEVEL", "info")
		instance.Logging.Format = getEnvString("LOG_FORMAT", "json")

		// Chat pipeline config
		instance.Chat.GatewayBaseURL = getEnvString("CHAT_GATEWAY_BASE_URL", "https://api.openai.com")
		instance.Chat.GatewayAPIKey = getEnvString("CHAT_GATEWAY_API_KEY", "")
		instance.Chat.GatewayKeyPath = getEnvString("CHAT_GATEWAY_KEY_PATH", "")
		instance.Chat.GatewayModel = getEnvString("CHAT_GATEWAY_MODEL", "gpt-4o")
		instance.Chat.GatewayTimeout = getEnvDuration("CHAT_GATEWAY_TIMEOUT", 30*time.Second)
		instance.Chat.HistoryWindow = getEnvInt("CHAT_HISTORY_WINDOW", 20)
		instance.Chat.MinFragments = getEnvInt("CHAT_MIN_FRAGMENTS", 5)
		instance.Chat.ReplyDelayBase = getEnvDuration("CHAT_REPLY_DELAY_BASE", 800*time.Millisecond)
		instance.Chat.ReplyDelayRand = getEnvDuration("CHAT_REPLY_DELAY_RAND", 1200*time.Millisecond)
		instance.Chat.ClaimDelayBase = getEnvDuration("CHAT_CLAIM_DELAY_BASE", 2000*time.Millisecond)
		instance.Chat.ClaimDelayRand = getEnvDuration("CHAT_CLAIM_DELAY_RAND", 1500*time.Millisecond)
		instance.Chat.DefaultMaxWords = getEnvInt("CHAT_DEFAULT_MAX_WORDS", 50)
		instance.Chat.UserDisplayName = getEnvString("CHAT_USER_NAME", "User")
	})

	return instance
}

// Get returns the singleton Config instance
func Get() *Config {
	if instance == nil {
		return New()
	}
	return instance
}

// Helper functions to read environment variables with default values

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
