package config

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"degpredict/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Analysis AnalysisConfig
	Data     DataConfig
	Blob     BlobConfig
	Database DatabaseConfig
	Server   ServerConfig
	LogLevel string
}

// AnalysisConfig holds the statistical and inference settings
type AnalysisConfig struct {
	AdjPValueThreshold  float64
	Log2FCThreshold     float64
	ExpressionThreshold float64
	TreatedKeywords     []string
	Workers             int
	RuleVariant         string
	TargetTissue        string // empty means the knowledge default
	KnowledgeFile       string // empty means the embedded tables
}

// DataConfig holds input locations
type DataConfig struct {
	Dir                    string
	GEOAccession           string
	GEOBaseURL             string
	SeriesMatrixFile       string
	PlatformAnnotationFile string
	ExpressionFile         string
	MetadataFile           string
	BaselineFile           string
	DownloadTimeout        time.Duration
}

// BlobConfig selects the artifact store
type BlobConfig struct {
	Driver      string
	FSRoot      string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3PathStyle bool
	S3AccessKey string
	S3SecretKey string
}

// DatabaseConfig holds the optional run repository connection. An empty URL
// disables persistence of run records.
type DatabaseConfig struct {
	Driver string
	URL    string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Analysis: *loadAnalysisConfig(),
		Data:     *loadDataConfig(),
		Blob:     *loadBlobConfig(),
		Database: *loadDatabaseConfig(),
		Server:   *loadServerConfig(),
		LogLevel: getEnvOrDefault("LOG_LEVEL", "INFO"),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{
		AdjPValueThreshold:  getEnvFloatOrDefault("DEG_ADJ_P_THRESHOLD", 0.05),
		Log2FCThreshold:     getEnvFloatOrDefault("DEG_LOG2FC_THRESHOLD", 0.5),
		ExpressionThreshold: getEnvFloatOrDefault("EXPRESSION_THRESHOLD", 1.0),
		TreatedKeywords:     getEnvListOrDefault("TREATED_KEYWORDS", []string{"inhibitor", "pkc", "treated"}),
		Workers:             getEnvIntOrDefault("WORKERS", runtime.GOMAXPROCS(0)),
		RuleVariant:         getEnvOrDefault("RULE_VARIANT", "signaling"),
		TargetTissue:        getEnvOrDefault("TARGET_TISSUE", ""),
		KnowledgeFile:       getEnvOrDefault("KNOWLEDGE_FILE", ""),
	}
}

func loadDataConfig() *DataConfig {
	return &DataConfig{
		Dir:                    getEnvOrDefault("DATA_DIR", "./data"),
		GEOAccession:           getEnvOrDefault("GEO_ACCESSION", "GSE43217"),
		GEOBaseURL:             getEnvOrDefault("GEO_BASE_URL", "https://ftp.ncbi.nlm.nih.gov/geo/series"),
		SeriesMatrixFile:       getEnvOrDefault("SERIES_MATRIX_FILE", ""),
		PlatformAnnotationFile: getEnvOrDefault("PLATFORM_ANNOTATION_FILE", ""),
		ExpressionFile:         getEnvOrDefault("EXPRESSION_FILE", ""),
		MetadataFile:           getEnvOrDefault("METADATA_FILE", ""),
		BaselineFile:           getEnvOrDefault("BASELINE_FILE", ""),
		DownloadTimeout:        getEnvDurationOrDefault("DOWNLOAD_TIMEOUT", 10*time.Minute),
	}
}

func loadBlobConfig() *BlobConfig {
	return &BlobConfig{
		Driver:      getEnvOrDefault("BLOB_DRIVER", "fs"),
		FSRoot:      getEnvOrDefault("BLOB_FS_ROOT", "./results"),
		S3Bucket:    getEnvOrDefault("BLOB_S3_BUCKET", ""),
		S3Region:    getEnvOrDefault("BLOB_S3_REGION", "us-east-1"),
		S3Endpoint:  getEnvOrDefault("BLOB_S3_ENDPOINT", ""),
		S3PathStyle: getEnvBoolOrDefault("BLOB_S3_PATH_STYLE", false),
		S3AccessKey: getEnvOrDefault("BLOB_S3_ACCESS_KEY_ID", ""),
		S3SecretKey: getEnvOrDefault("BLOB_S3_SECRET_ACCESS_KEY", ""),
	}
}

func loadDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		Driver: getEnvOrDefault("DATABASE_DRIVER", "sqlite"),
		URL:    getEnvOrDefault("DATABASE_URL", ""),
	}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "release"),
	}
}

func validateConfig(config *Config) error {
	a := config.Analysis
	if !(a.AdjPValueThreshold > 0 && a.AdjPValueThreshold <= 1) {
		return errors.ConfigInvalid("DEG_ADJ_P_THRESHOLD must be in (0, 1]")
	}
	if a.Log2FCThreshold < 0 {
		return errors.ConfigInvalid("DEG_LOG2FC_THRESHOLD must be non-negative")
	}
	if a.Workers < 1 {
		return errors.ConfigInvalid("WORKERS must be at least 1")
	}
	if len(a.TreatedKeywords) == 0 {
		return errors.ConfigInvalid("TREATED_KEYWORDS must name at least one keyword")
	}
	switch config.Blob.Driver {
	case "fs", "memory":
	case "s3":
		if config.Blob.S3Bucket == "" {
			return errors.ConfigInvalid("BLOB_S3_BUCKET is required for the s3 driver")
		}
	default:
		return errors.ConfigInvalid("BLOB_DRIVER must be one of fs, s3, memory")
	}
	switch config.Database.Driver {
	case "sqlite", "postgres":
	default:
		return errors.ConfigInvalid("DATABASE_DRIVER must be sqlite or postgres")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvListOrDefault splits a comma separated value, dropping blanks.
func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
