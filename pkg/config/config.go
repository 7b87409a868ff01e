// pkg/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config represents the application configuration
type Config struct {
	// Dataset selection
	Dataset    string // Dataset identifier (default: prostate)
	SourceKind string // csv, postgres or snowflake
	DataDir    string // Directory holding csv datasets

	// Database sources (loaded only for the matching SourceKind)
	Snowflake *SnowflakeConfig
	Postgres  *PostgresConfig

	// Imputation settings
	Imputations      int               // 0 means derive from the missing-cell fraction
	ImputeIterations int               // Chained-equation sweeps per copy
	ImputeMethod     string            // Default per-variable method
	ImputeOverrides  map[string]string // Per-variable method overrides
	DonorPool        int               // PMM donor pool size
	Seed             int64             // RNG seed for reproducible draws

	// Missingness tree settings
	TreeTarget   string // Variable whose missingness the tree predicts
	TreeMinLeaf  int    // Minimum rows per leaf
	TreeMaxDepth int    // Depth cap keeping the tree shallow

	// Model settings
	SplineKnots  int      // Restricted cubic spline knot count
	TimeColumn   string   // Follow-up time column
	StatusColumn string   // Raw cause-of-death factor column
	EventColumn  string   // Binary event column produced by the cleaner
	Covariates   []string // Covariate columns for the hazards model
	SplineTerms  []string // Covariates expanded with a spline basis

	// Report output
	ReportPath string // Empty means stdout

	// Logging
	LogLevel  string
	LogFormat string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		// Default values
		Dataset:    getEnv("DATASET", "prostate"),
		SourceKind: strings.ToLower(getEnv("SOURCE_KIND", "csv")),
		DataDir:    getEnv("DATA_DIR", "data"),

		Imputations:      getEnvAsInt("IMPUTATIONS", 0),
		ImputeIterations: getEnvAsInt("IMPUTE_ITERATIONS", 5),
		ImputeMethod:     getEnv("IMPUTE_METHOD", "pmm"),
		ImputeOverrides:  getEnvAsStringMap("IMPUTE_METHODS"),
		DonorPool:        getEnvAsInt("IMPUTE_DONORS", 5),
		Seed:             int64(getEnvAsInt("IMPUTE_SEED", 20030617)),

		TreeTarget:   getEnv("TREE_TARGET", "sz"),
		TreeMinLeaf:  getEnvAsInt("TREE_MIN_LEAF", 15),
		TreeMaxDepth: getEnvAsInt("TREE_MAX_DEPTH", 3),

		SplineKnots:  getEnvAsInt("SPLINE_KNOTS", 4),
		TimeColumn:   getEnv("TIME_COLUMN", "dtime"),
		StatusColumn: getEnv("STATUS_COLUMN", "status"),
		EventColumn:  getEnv("EVENT_COLUMN", "death"),
		Covariates:   getEnvAsStringSlice("COVARIATES", []string{"rx", "age", "wt", "pf", "hx", "hg", "sz", "sg", "ap", "bm"}),
		SplineTerms:  getEnvAsStringSlice("SPLINE_TERMS", []string{"age"}),

		ReportPath: getEnv("REPORT_PATH", ""),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogFormat:  getEnv("LOG_FORMAT", "json"),
	}

	// Load database configuration only for the selected source
	switch cfg.SourceKind {
	case "snowflake":
		snowConfig, err := LoadSnowflakeConfig()
		if err != nil {
			return nil, errors.New("failed to load Snowflake configuration: " + err.Error())
		}
		cfg.Snowflake = snowConfig
	case "postgres":
		pgConfig, err := LoadPostgresConfig()
		if err != nil {
			return nil, errors.New("failed to load PostgreSQL configuration: " + err.Error())
		}
		cfg.Postgres = pgConfig
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures all required configuration is present and valid
func (c *Config) Validate() error {
	switch c.SourceKind {
	case "csv", "postgres", "snowflake":
	default:
		return fmt.Errorf("unknown source kind %q", c.SourceKind)
	}

	if c.Dataset == "" {
		return errors.New("dataset identifier is required")
	}

	if c.Imputations < 0 {
		return errors.New("imputation count cannot be negative")
	}

	if c.ImputeIterations <= 0 {
		return errors.New("imputation iteration count must be positive")
	}

	if c.DonorPool <= 0 {
		return errors.New("donor pool size must be positive")
	}

	if c.TreeMinLeaf <= 0 {
		return errors.New("tree minimum leaf size must be positive")
	}

	if c.SplineKnots < 3 || c.SplineKnots > 7 {
		return errors.New("spline knot count must be between 3 and 7")
	}

	if c.TimeColumn == "" || c.StatusColumn == "" || c.EventColumn == "" {
		return errors.New("time, status and event column names are required")
	}

	if len(c.Covariates) == 0 {
		return errors.New("at least one covariate is required")
	}

	return nil
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsStringMap parses a comma-separated list of key=value pairs
// (e.g. "sz=pmm,age=norm"); nil when unset
func getEnvAsStringMap(key string) map[string]string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}

	result := make(map[string]string)
	for _, pair := range strings.Split(value, ",") {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		k := strings.TrimSpace(parts[0])
		v := strings.TrimSpace(parts[1])
		if k != "" && v != "" {
			result[k] = v
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}

// getEnvAsStringSlice parses a comma-separated environment variable
func getEnvAsStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var result []string
	for _, v := range strings.Split(value, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			result = append(result, v)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}
