package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        App        `mapstructure:"app"`
	AI         AI         `mapstructure:"ai"`
	Limits     Limits     `mapstructure:"limits"`
	Images     Images     `mapstructure:"images"`
	Generation Generation `mapstructure:"generation"`
	Web        Web        `mapstructure:"web"`
	Storage    Storage    `mapstructure:"storage"`
	Logging    Logging    `mapstructure:"logging"`
}

// App holds general application configuration
type App struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// AI holds generative backend configuration
type AI struct {
	Gemini GeminiConfig `mapstructure:"gemini"`
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float32 `mapstructure:"temperature"`
}

// Limits holds the size thresholds enforced by the pipeline
type Limits struct {
	MaxFileBytes       int64 `mapstructure:"max_file_bytes"`       // Absolute input cap, larger files are rejected
	LargeFileBytes     int64 `mapstructure:"large_file_bytes"`     // Above this, generative processing is skipped
	VeryLargeFileBytes int64 `mapstructure:"very_large_file_bytes"` // Above this, image extraction is suppressed too
	HardTextCap        int   `mapstructure:"hard_text_cap"`        // Text longer than this never reaches the backend
	LargeTextThreshold int   `mapstructure:"large_text_threshold"` // Text longer than this is truncated before sending
}

// Images holds image extraction and normalization configuration
type Images struct {
	MaxPerDocument int `mapstructure:"max_per_document"`
	MinDimension   int `mapstructure:"min_dimension"`
	MaxDimension   int `mapstructure:"max_dimension"`
	JPEGQuality    int `mapstructure:"jpeg_quality"`
}

// Generation holds narrative generation configuration
type Generation struct {
	MaxRetries   int    `mapstructure:"max_retries"`
	Timeout      string `mapstructure:"timeout"`
	LargeTimeout string `mapstructure:"large_timeout"`
	Audience     string `mapstructure:"audience"`
}

// Web holds web page fetching configuration
type Web struct {
	UserAgent string `mapstructure:"user_agent"`
	Timeout   string `mapstructure:"timeout"`
}

// Storage holds persistence configuration
type Storage struct {
	Directory string `mapstructure:"directory"`
}

// Logging holds logging configuration
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var globalConfig *Config

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	// Configure viper
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".caseforge")
		viper.SetConfigType("yaml")
	}

	// Set defaults
	setDefaults()

	// Bind environment variables
	bindEnvironmentVariables()

	// Enable automatic environment variable reading
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Unmarshal into struct
	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Apply post-processing
	if err := postProcessConfig(config); err != nil {
		return nil, fmt.Errorf("error post-processing config: %w", err)
	}

	// Validate configuration
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// setDefaults sets default configuration values
func setDefaults() {
	// App defaults
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.log_level", "info")

	// AI defaults. No default API key: the pipeline runs backend-free
	// and falls back to the heuristic generator when the key is absent.
	viper.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	viper.SetDefault("ai.gemini.temperature", 0.7)

	// Size limit defaults
	viper.SetDefault("limits.max_file_bytes", 100*1024*1024)
	viper.SetDefault("limits.large_file_bytes", 15*1024*1024)
	viper.SetDefault("limits.very_large_file_bytes", 25*1024*1024)
	viper.SetDefault("limits.hard_text_cap", 200000)
	viper.SetDefault("limits.large_text_threshold", 20000)

	// Image defaults
	viper.SetDefault("images.max_per_document", 100)
	viper.SetDefault("images.min_dimension", 50)
	viper.SetDefault("images.max_dimension", 1000)
	viper.SetDefault("images.jpeg_quality", 75)

	// Generation defaults
	viper.SetDefault("generation.max_retries", 3)
	viper.SetDefault("generation.timeout", "30s")
	viper.SetDefault("generation.large_timeout", "60s")
	viper.SetDefault("generation.audience", "general")

	// Web defaults
	viper.SetDefault("web.user_agent", "Caseforge/1.0")
	viper.SetDefault("web.timeout", "30s")

	// Storage defaults
	viper.SetDefault("storage.directory", ".caseforge")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables() {
	// Gemini API key - support multiple formats
	bindEnvKeys("ai.gemini.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
		"GOOGLE_AI_API_KEY",
	})

	bindEnvKeys("ai.gemini.model", []string{
		"GEMINI_MODEL",
	})

	// General settings
	bindEnvKeys("app.debug", []string{
		"DEBUG",
		"CASEFORGE_DEBUG",
	})

	bindEnvKeys("storage.directory", []string{
		"CASEFORGE_DATA_DIR",
	})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

// postProcessConfig applies post-processing to configuration values
func postProcessConfig(config *Config) error {
	// Expand paths
	if config.Storage.Directory != "" {
		config.Storage.Directory = expandPath(config.Storage.Directory)
	}

	// Validate durations
	durations := map[string]string{
		"generation.timeout":       config.Generation.Timeout,
		"generation.large_timeout": config.Generation.LargeTimeout,
		"web.timeout":              config.Web.Timeout,
	}

	for key, duration := range durations {
		if duration != "" {
			if _, err := time.ParseDuration(duration); err != nil {
				return fmt.Errorf("invalid duration for %s: %s", key, duration)
			}
		}
	}

	return nil
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// validateConfig ensures the configuration is well formed. An absent API key
// is deliberately not an error: every operation degrades to the heuristic path.
func validateConfig(config *Config) error {
	var errors []string

	if config.Limits.MaxFileBytes <= 0 {
		errors = append(errors, "limits.max_file_bytes must be positive")
	}
	if config.Limits.LargeFileBytes <= 0 || config.Limits.LargeFileBytes > config.Limits.MaxFileBytes {
		errors = append(errors, "limits.large_file_bytes must be positive and below limits.max_file_bytes")
	}
	if config.Limits.VeryLargeFileBytes < config.Limits.LargeFileBytes {
		errors = append(errors, "limits.very_large_file_bytes must be at least limits.large_file_bytes")
	}
	if config.Limits.LargeTextThreshold <= 0 || config.Limits.LargeTextThreshold > config.Limits.HardTextCap {
		errors = append(errors, "limits.large_text_threshold must be positive and below limits.hard_text_cap")
	}
	if config.Images.JPEGQuality < 1 || config.Images.JPEGQuality > 100 {
		errors = append(errors, "images.jpeg_quality must be between 1 and 100")
	}
	if config.Images.MinDimension < 0 || config.Images.MaxDimension <= config.Images.MinDimension {
		errors = append(errors, "images.max_dimension must be above images.min_dimension")
	}
	if config.Generation.MaxRetries < 1 {
		errors = append(errors, "generation.max_retries must be at least 1")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Convenience getters for commonly used configuration values
func GetApp() App               { return Get().App }
func GetAI() AI                 { return Get().AI }
func GetLimits() Limits         { return Get().Limits }
func GetImages() Images         { return Get().Images }
func GetGeneration() Generation { return Get().Generation }
func GetWeb() Web               { return Get().Web }
func GetStorage() Storage       { return Get().Storage }
func GetLogging() Logging       { return Get().Logging }

// Specific convenience getters for frequently accessed values
func GetGeminiAPIKey() string    { return Get().AI.Gemini.APIKey }
func GetGeminiModel() string     { return Get().AI.Gemini.Model }
func GetStorageDirectory() string { return Get().Storage.Directory }
func IsDebugMode() bool          { return Get().App.Debug }

// HasGenerativeBackend returns true when an API key is configured.
func HasGenerativeBackend() bool {
	return GetGeminiAPIKey() != ""
}

// GenerationTimeout returns the parsed backend call timeout for normal inputs.
func GenerationTimeout() time.Duration {
	d, err := time.ParseDuration(Get().Generation.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// LargeGenerationTimeout returns the parsed backend call timeout for large inputs.
func LargeGenerationTimeout() time.Duration {
	d, err := time.ParseDuration(Get().Generation.LargeTimeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// WebTimeout returns the parsed HTTP fetch timeout.
func WebTimeout() time.Duration {
	d, err := time.ParseDuration(Get().Web.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// Reset clears the global configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viper.Reset()
}
