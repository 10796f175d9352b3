package server

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Defaults
const (
	DefaultBaseURL       = "https://serpapi.com/search"
	DefaultTimeout       = 30 * time.Second
	DefaultLanguage      = "en"
	DefaultCountry       = "us"
	DefaultCurrency      = "USD"
	DefaultCacheSize     = 128
	DefaultMaxResponseMB = 16
	DefaultHistorySize   = 100
	DefaultEnvFile       = ".env"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
)

// Config holds server configuration
type Config struct {
	APIKey            string        `yaml:"api_key"`
	BaseURL           string        `yaml:"base_url"`
	RequestTimeout    time.Duration `yaml:"timeout"`
	Language          string        `yaml:"hl"`
	Country           string        `yaml:"gl"`
	Currency          string        `yaml:"currency"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	CacheTTL          time.Duration `yaml:"cache_ttl"`
	CacheSize         int           `yaml:"cache_size"`
	MaxResponseMB     int           `yaml:"max_response_mb"`

	HTTPMode     bool   `yaml:"-"`
	HTTPAddr     string `yaml:"http_addr"`
	DatabaseMode bool   `yaml:"-"`
	DatabaseURL  string `yaml:"database_url"`
	HistorySize  int    `yaml:"history_size"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// EnvFile is the dotenv file that was looked up; EnvFileLoaded reports
	// whether it existed.
	EnvFile       string `yaml:"-"`
	EnvFileLoaded bool   `yaml:"-"`
	ConfigFile    string `yaml:"-"`
}

// Flags carries command line overrides. Empty values are ignored.
type Flags struct {
	ConfigFile string
	EnvFile    string
	HTTPAddr   string
	LogLevel   string
	LogFormat  string
}

// DefaultConfig returns the configuration used when nothing is set
func DefaultConfig() *Config {
	return &Config{
		BaseURL:        DefaultBaseURL,
		RequestTimeout: DefaultTimeout,
		Language:       DefaultLanguage,
		Country:        DefaultCountry,
		Currency:       DefaultCurrency,
		CacheSize:      DefaultCacheSize,
		MaxResponseMB:  DefaultMaxResponseMB,
		HistorySize:    DefaultHistorySize,
		LogLevel:       DefaultLogLevel,
		LogFormat:      DefaultLogFormat,
	}
}

// LoadConfig loads configuration from defaults, the dotenv file, an optional
// YAML file, environment variables and command line flags, in that order.
func LoadConfig(flags Flags) (*Config, error) {
	config := DefaultConfig()

	config.EnvFile = flags.EnvFile
	if config.EnvFile == "" {
		config.EnvFile = DefaultEnvFile
	}
	// godotenv never overrides variables that are already set
	if err := godotenv.Load(config.EnvFile); err == nil {
		config.EnvFileLoaded = true
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", config.EnvFile, err)
	}

	if flags.ConfigFile != "" {
		if err := config.loadFile(flags.ConfigFile); err != nil {
			return nil, err
		}
		config.ConfigFile = flags.ConfigFile
	}

	if err := config.applyEnvironment(); err != nil {
		return nil, err
	}

	if flags.HTTPAddr != "" {
		config.HTTPAddr = flags.HTTPAddr
	}
	if flags.LogLevel != "" {
		config.LogLevel = flags.LogLevel
	}
	if flags.LogFormat != "" {
		config.LogFormat = flags.LogFormat
	}

	config.HTTPMode = config.HTTPAddr != ""
	config.DatabaseMode = config.DatabaseURL != ""

	return config, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvironment() error {
	stringVars := map[string]*string{
		"SERPAPI_API_KEY":  &c.APIKey,
		"SERPAPI_BASE_URL": &c.BaseURL,
		"SERPAPI_HL":       &c.Language,
		"SERPAPI_GL":       &c.Country,
		"SERPAPI_CURRENCY": &c.Currency,
		"DATABASE_URL":     &c.DatabaseURL,
		"LOG_LEVEL":        &c.LogLevel,
		"LOG_FORMAT":       &c.LogFormat,
	}
	for name, dst := range stringVars {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	intVars := map[string]*int{
		"SERPAPI_RPM":             &c.RequestsPerMinute,
		"SERPAPI_CACHE_SIZE":      &c.CacheSize,
		"SERPAPI_MAX_RESPONSE_MB": &c.MaxResponseMB,
		"HISTORY_SIZE":            &c.HistorySize,
	}
	for name, dst := range intVars {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, v, err)
		}
		*dst = n
	}

	durationVars := map[string]*time.Duration{
		"SERPAPI_TIMEOUT":   &c.RequestTimeout,
		"SERPAPI_CACHE_TTL": &c.CacheTTL,
	}
	for name, dst := range durationVars {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, v, err)
		}
		*dst = d
	}

	return nil
}

// parseDuration accepts Go durations ("30s", "5m") and bare seconds ("30").
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.RequestsPerMinute < 0 {
		return fmt.Errorf("requests per minute must not be negative, got %d", c.RequestsPerMinute)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache TTL must not be negative, got %s", c.CacheTTL)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache size must not be negative, got %d", c.CacheSize)
	}
	if c.MaxResponseMB <= 0 {
		return fmt.Errorf("max response size must be positive, got %d MB", c.MaxResponseMB)
	}
	if c.HistorySize < 0 {
		return fmt.Errorf("history size must not be negative, got %d", c.HistorySize)
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("SerpAPI base URL must be an http(s) URL, got %q", c.BaseURL)
	}

	if c.DatabaseMode {
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for database mode")
		}
		if !strings.HasPrefix(c.DatabaseURL, "postgres://") && !strings.HasPrefix(c.DatabaseURL, "postgresql://") {
			return fmt.Errorf("DATABASE_URL must start with postgres:// or postgresql://")
		}
	}

	return nil
}

// HasAPIKey reports whether a SerpAPI key is configured
func (c *Config) HasAPIKey() bool {
	return c.APIKey != ""
}

// MaxResponseBytes returns the response size limit in bytes
func (c *Config) MaxResponseBytes() int64 {
	return int64(c.MaxResponseMB) << 20
}

// LogConfiguration logs the current configuration
func (c *Config) LogConfiguration(logger *logrus.Logger) {
	if c.EnvFileLoaded {
		logger.Infof("Loaded environment from %s", c.EnvFile)
	} else {
		logger.Warnf("No %s file found, using process environment only", c.EnvFile)
	}
	if c.ConfigFile != "" {
		logger.Infof("Loaded configuration file %s", c.ConfigFile)
	}

	if c.HasAPIKey() {
		logger.Infof("SERPAPI_API_KEY is set (%s)", maskSensitive(c.APIKey))
	} else {
		logger.Warn("SERPAPI_API_KEY is not set; tool calls will return an error until it is configured")
	}

	logger.WithFields(logrus.Fields{
		"base_url": c.BaseURL,
		"timeout":  c.RequestTimeout.String(),
		"hl":       c.Language,
		"gl":       c.Country,
		"currency": c.Currency,
	}).Info("SerpAPI client configuration")

	if c.RequestsPerMinute > 0 {
		logger.Infof("Outbound rate limit: %d requests per minute", c.RequestsPerMinute)
	}
	if c.CacheTTL > 0 {
		logger.Infof("Response cache enabled: ttl=%s size=%d", c.CacheTTL, c.CacheSize)
	}

	if c.DatabaseMode {
		logger.Infof("Search history stored in database: %s", maskSensitive(c.DatabaseURL))
	} else {
		logger.Infof("Search history kept in memory (%d entries)", c.HistorySize)
	}

	if c.HTTPMode {
		logger.Infof("HTTP server will start on %s", c.HTTPAddr)
	} else {
		logger.Info("Serving MCP over stdio")
	}
}

// maskSensitive masks sensitive parts of secrets and URLs for logging
func maskSensitive(s string) string {
	if len(s) > 20 {
		return s[:8] + "***" + s[len(s)-8:]
	}
	if len(s) > 8 {
		return s[:4] + "***"
	}
	return "***"
}
