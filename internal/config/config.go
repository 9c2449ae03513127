package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"fakturio/internal/domain"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Log       LogConfig
	Ledger    LedgerConfig
	Source    SourceConfig
	Extractor ExtractorConfig
	Pipeline  PipelineConfig
	Email     EmailConfig
	API       APIConfig
	Companies []domain.CompanyConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LedgerConfig holds SuperFaktura API settings.
type LedgerConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	Email       string `mapstructure:"email"`
	APIKey      string `mapstructure:"api_key"`
	CompanyID   string `mapstructure:"company_id"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`
}

// SourceConfig holds document source (S3) settings.
type SourceConfig struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// ExtractorConfig holds settings for the external AI invoice extractor.
type ExtractorConfig struct {
	Provider     string `mapstructure:"provider"`
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model"`
	TimeoutSecs  int    `mapstructure:"timeout_secs"`
}

// PipelineConfig holds lifecycle pipeline settings.
type PipelineConfig struct {
	IngestIntervalSecs  int  `mapstructure:"ingest_interval_secs"`
	ExportIntervalSecs  int  `mapstructure:"export_interval_secs"`
	ExportBatchSize     int  `mapstructure:"export_batch_size"`
	ConfidenceThreshold int  `mapstructure:"confidence_threshold"`
	RetryErrored        bool `mapstructure:"retry_errored"`
}

// EmailConfig holds notification email settings.
type EmailConfig struct {
	Provider    string `mapstructure:"provider"`
	Region      string `mapstructure:"region"`
	FromAddress string `mapstructure:"from_address"`
	FromName    string `mapstructure:"from_name"`
	ToAddress   string `mapstructure:"to_address"`
}

// APIConfig holds access control settings for the HTTP surface.
type APIConfig struct {
	Key string `mapstructure:"key"`
}

// Load reads configuration from environment variables with the FAKTURIO_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FAKTURIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "fakturio")
	v.SetDefault("db.password", "fakturio_secret")
	v.SetDefault("db.name", "fakturio_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// Ledger defaults
	v.SetDefault("ledger.base_url", "https://moje.superfaktura.cz")
	v.SetDefault("ledger.email", "")
	v.SetDefault("ledger.api_key", "")
	v.SetDefault("ledger.company_id", "")
	v.SetDefault("ledger.timeout_secs", 30)

	// Source defaults
	v.SetDefault("source.region", "eu-central-1")
	v.SetDefault("source.bucket", "fakturio-inbox")
	v.SetDefault("source.endpoint", "")

	// Extractor defaults
	v.SetDefault("extractor.provider", "gemini")
	v.SetDefault("extractor.api_key", "")
	v.SetDefault("extractor.default_model", "gemini-2.0-flash")
	v.SetDefault("extractor.timeout_secs", 120)

	// Pipeline defaults
	v.SetDefault("pipeline.ingest_interval_secs", 300)
	v.SetDefault("pipeline.export_interval_secs", 600)
	v.SetDefault("pipeline.export_batch_size", 50)
	v.SetDefault("pipeline.confidence_threshold", 60)
	v.SetDefault("pipeline.retry_errored", false)

	// Email defaults
	v.SetDefault("email.provider", "noop")
	v.SetDefault("email.region", "eu-central-1")
	v.SetDefault("email.from_address", "noreply@fakturio.local")
	v.SetDefault("email.from_name", "fakturio")
	v.SetDefault("email.to_address", "")

	// API defaults
	v.SetDefault("api.key", "")

	// Companies: comma-separated ids; per-company values come from
	// FAKTURIO_COMPANY_<ID>_* variables (see loadCompanies).
	v.SetDefault("companies", "")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                   "FAKTURIO_SERVER_PORT",
		"server.read_timeout":           "FAKTURIO_SERVER_READ_TIMEOUT",
		"server.write_timeout":          "FAKTURIO_SERVER_WRITE_TIMEOUT",
		"server.environment":            "FAKTURIO_SERVER_ENVIRONMENT",
		"db.host":                       "FAKTURIO_DB_HOST",
		"db.port":                       "FAKTURIO_DB_PORT",
		"db.user":                       "FAKTURIO_DB_USER",
		"db.password":                   "FAKTURIO_DB_PASSWORD",
		"db.name":                       "FAKTURIO_DB_NAME",
		"db.sslmode":                    "FAKTURIO_DB_SSLMODE",
		"db.max_open":                   "FAKTURIO_DB_MAX_OPEN",
		"db.max_idle":                   "FAKTURIO_DB_MAX_IDLE",
		"log.level":                     "FAKTURIO_LOG_LEVEL",
		"log.format":                    "FAKTURIO_LOG_FORMAT",
		"ledger.base_url":               "FAKTURIO_LEDGER_BASE_URL",
		"ledger.email":                  "FAKTURIO_LEDGER_EMAIL",
		"ledger.api_key":                "FAKTURIO_LEDGER_API_KEY",
		"ledger.company_id":             "FAKTURIO_LEDGER_COMPANY_ID",
		"ledger.timeout_secs":           "FAKTURIO_LEDGER_TIMEOUT_SECS",
		"source.region":                 "FAKTURIO_SOURCE_REGION",
		"source.bucket":                 "FAKTURIO_SOURCE_BUCKET",
		"source.endpoint":               "FAKTURIO_SOURCE_ENDPOINT",
		"source.access_key":             "FAKTURIO_SOURCE_ACCESS_KEY",
		"source.secret_key":             "FAKTURIO_SOURCE_SECRET_KEY",
		"extractor.provider":            "FAKTURIO_EXTRACTOR_PROVIDER",
		"extractor.api_key":             "FAKTURIO_EXTRACTOR_API_KEY",
		"extractor.default_model":       "FAKTURIO_EXTRACTOR_DEFAULT_MODEL",
		"extractor.timeout_secs":        "FAKTURIO_EXTRACTOR_TIMEOUT_SECS",
		"pipeline.ingest_interval_secs": "FAKTURIO_PIPELINE_INGEST_INTERVAL_SECS",
		"pipeline.export_interval_secs": "FAKTURIO_PIPELINE_EXPORT_INTERVAL_SECS",
		"pipeline.export_batch_size":    "FAKTURIO_PIPELINE_EXPORT_BATCH_SIZE",
		"pipeline.confidence_threshold": "FAKTURIO_PIPELINE_CONFIDENCE_THRESHOLD",
		"pipeline.retry_errored":        "FAKTURIO_PIPELINE_RETRY_ERRORED",
		"email.provider":                "FAKTURIO_EMAIL_PROVIDER",
		"email.region":                  "FAKTURIO_EMAIL_REGION",
		"email.from_address":            "FAKTURIO_EMAIL_FROM_ADDRESS",
		"email.from_name":               "FAKTURIO_EMAIL_FROM_NAME",
		"email.to_address":              "FAKTURIO_EMAIL_TO_ADDRESS",
		"api.key":                       "FAKTURIO_API_KEY",
		"companies":                     "FAKTURIO_COMPANIES",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if FAKTURIO_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("FAKTURIO_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.Ledger = LedgerConfig{
		BaseURL:     v.GetString("ledger.base_url"),
		Email:       v.GetString("ledger.email"),
		APIKey:      v.GetString("ledger.api_key"),
		CompanyID:   v.GetString("ledger.company_id"),
		TimeoutSecs: v.GetInt("ledger.timeout_secs"),
	}
	cfg.Source = SourceConfig{
		Region:    v.GetString("source.region"),
		Bucket:    v.GetString("source.bucket"),
		Endpoint:  v.GetString("source.endpoint"),
		AccessKey: v.GetString("source.access_key"),
		SecretKey: v.GetString("source.secret_key"),
	}
	cfg.Extractor = ExtractorConfig{
		Provider:     v.GetString("extractor.provider"),
		APIKey:       v.GetString("extractor.api_key"),
		DefaultModel: v.GetString("extractor.default_model"),
		TimeoutSecs:  v.GetInt("extractor.timeout_secs"),
	}
	cfg.Pipeline = PipelineConfig{
		IngestIntervalSecs:  v.GetInt("pipeline.ingest_interval_secs"),
		ExportIntervalSecs:  v.GetInt("pipeline.export_interval_secs"),
		ExportBatchSize:     v.GetInt("pipeline.export_batch_size"),
		ConfidenceThreshold: v.GetInt("pipeline.confidence_threshold"),
		RetryErrored:        v.GetBool("pipeline.retry_errored"),
	}
	cfg.Email = EmailConfig{
		Provider:    v.GetString("email.provider"),
		Region:      v.GetString("email.region"),
		FromAddress: v.GetString("email.from_address"),
		FromName:    v.GetString("email.from_name"),
		ToAddress:   v.GetString("email.to_address"),
	}
	cfg.API = APIConfig{
		Key: v.GetString("api.key"),
	}

	cfg.Companies = loadCompanies(v.GetString("companies"))

	return cfg, nil
}

// loadCompanies resolves the per-company configuration from the environment
// once at startup. Each id in the comma-separated list maps to a block of
// FAKTURIO_COMPANY_<ID>_{NAME,TAX_ID,SOURCE_PREFIX,LEDGER_CLIENT_ID,TEXT_PATTERNS}
// variables. The resolved slice is passed into the pipeline explicitly so no
// component reads ambient environment state later.
func loadCompanies(list string) []domain.CompanyConfig {
	var companies []domain.CompanyConfig
	for _, id := range strings.Split(list, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		prefix := "FAKTURIO_COMPANY_" + strings.ToUpper(id)
		var patterns []string
		for _, p := range strings.Split(os.Getenv(prefix+"_TEXT_PATTERNS"), ",") {
			p = strings.TrimSpace(p)
			if p != "" {
				patterns = append(patterns, p)
			}
		}
		companies = append(companies, domain.CompanyConfig{
			ID:             id,
			Name:           os.Getenv(prefix + "_NAME"),
			TaxID:          os.Getenv(prefix + "_TAX_ID"),
			SourcePrefix:   os.Getenv(prefix + "_SOURCE_PREFIX"),
			LedgerClientID: os.Getenv(prefix + "_LEDGER_CLIENT_ID"),
			TextPatterns:   patterns,
		})
	}
	return companies
}

// CompanyByID returns the company config with the given id, or nil.
func (c *Config) CompanyByID(id string) *domain.CompanyConfig {
	for i := range c.Companies {
		if c.Companies[i].ID == id {
			return &c.Companies[i]
		}
	}
	return nil
}
