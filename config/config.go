package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"shopdesk/models"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

var (
	DB        *gorm.DB
	AppConfig Config
	envLoaded bool
)

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"-"`
	DB       int    `json:"db"`
}

type Config struct {
	Environment   string `json:"environment"`
	ServerPort    string `json:"server_port"`
	LogLevel      string `json:"log_level"`
	StorageDriver string `json:"storage_driver"`

	DBHost         string `json:"db_host"`
	DBPort         string `json:"db_port"`
	DBUser         string `json:"db_user"`
	DBPassword     string `json:"-"`
	DBName         string `json:"db_name"`
	DBSSLMode      string `json:"db_ssl_mode"`
	DBMaxIdleConns int    `json:"db_max_idle_conns"`
	DBMaxOpenConns int    `json:"db_max_open_conns"`

	Redis                    RedisConfig `json:"redis"`
	CustomerWebhookRateLimit int         `json:"customer_webhook_rate_limit"`

	SentryDSN        string `json:"-"`
	TelegramBotToken string `json:"-"`
	TelegramAPIBase  string `json:"telegram_api_base"`
	NotifyQueueSize  int    `json:"notify_queue_size"`

	MaxBodyBytes       int      `json:"max_body_bytes"`
	CORSAllowedOrigins []string `json:"cors_allowed_origins"`
}

func init() {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()
	envLoaded = true
}

func LoadConfig() error {
	AppConfig = Config{
		Environment:   getEnv("ENVIRONMENT", "development"),
		ServerPort:    getEnv("SERVER_PORT", "5000"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		StorageDriver: strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverPostgres)),

		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBName:         getEnv("DB_NAME", "shopdesk"),
		DBSSLMode:      getEnv("DB_SSL_MODE", "disable"),
		DBMaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 100),

		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		CustomerWebhookRateLimit: getEnvAsInt("CUSTOMER_WEBHOOK_RATE_LIMIT", 60),

		SentryDSN:        getEnv("SENTRY_DSN", ""),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramAPIBase:  getEnv("TELEGRAM_API_BASE", "https://api.telegram.org"),
		NotifyQueueSize:  getEnvAsInt("NOTIFY_QUEUE_SIZE", 256),

		MaxBodyBytes:       getEnvAsInt("MAX_BODY_BYTES", 1<<20),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
	}

	if err := AppConfig.Validate(); err != nil {
		return err
	}

	logConfig()
	return nil
}

// Validate checks the required settings for the selected storage driver.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverPostgres:
		if c.DBPassword == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
	case StorageDriverMemory:
		if c.Environment == "production" {
			return fmt.Errorf("STORAGE_DRIVER=memory is not allowed in production")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.CustomerWebhookRateLimit <= 0 {
		return fmt.Errorf("CUSTOMER_WEBHOOK_RATE_LIMIT must be positive")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive")
	}
	return nil
}

// DSN returns the postgres connection string.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost,
		c.DBPort,
		c.DBUser,
		c.DBPassword,
		c.DBName,
		c.DBSSLMode,
	)
}

// ConnectDB opens the process-wide connection pool and migrates the schema.
func ConnectDB() error {
	log := logrus.WithField("component", "config")
	log.Info("Attempting to connect to database...")

	dsn := AppConfig.DSN()
	log.WithField("dsn", maskPassword(dsn)).Info("Using connection string")

	gormLogLevel := gormlogger.Warn
	if AppConfig.Environment == "production" {
		gormLogLevel = gormlogger.Error
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormLogLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get DB instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(AppConfig.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(AppConfig.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	log.Info("Successfully connected to the database")
	log.Info("Starting database migration...")
	if err := MigrateDB(DB); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	log.Info("Database migration completed")
	return nil
}

// CloseDB drains the connection pool.
func CloseDB() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func MigrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Integration{},
		&models.Customer{},
		&models.Order{},
		&models.OrderItem{},
		&models.CrmLead{},
		&models.CrmLeadEvent{},
	)
}

// Helper functions
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	if !envLoaded && fallback == "" {
		logrus.Warnf("Environment variable %s not found and no fallback provided", key)
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := strconv.Atoi(strings.TrimSpace(valueStr))
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := strconv.ParseBool(strings.TrimSpace(valueStr))
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func maskPassword(dsn string) string {
	const passwordMarker = "password="
	startIdx := strings.Index(dsn, passwordMarker)
	if startIdx == -1 {
		return dsn
	}

	startIdx += len(passwordMarker)
	endIdx := strings.IndexAny(dsn[startIdx:], " ")
	if endIdx == -1 {
		return dsn[:startIdx] + "*****"
	}
	return dsn[:startIdx] + "*****" + dsn[startIdx+endIdx:]
}

func logConfig() {
	logrus.WithFields(logrus.Fields{
		"environment":    AppConfig.Environment,
		"server_port":    AppConfig.ServerPort,
		"storage_driver": AppConfig.StorageDriver,
		"database": fmt.Sprintf("%s@%s:%s/%s",
			AppConfig.DBUser,
			AppConfig.DBHost,
			AppConfig.DBPort,
			AppConfig.DBName),
		"redis_enabled":    AppConfig.Redis.Enabled,
		"sentry_enabled":   AppConfig.SentryDSN != "",
		"telegram_enabled": AppConfig.TelegramBotToken != "",
	}).Info("Loaded configuration")
}
