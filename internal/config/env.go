package config

import (
	"os"
	"strconv"
)

// EnvConfig holds process-level configuration read from environment variables
type EnvConfig struct {
	Port        int
	Env         string
	DataDir     string
	EnableCORS  bool
	CORSOrigin  string
	HealthPath  string
	WatchSource bool // watch the credential source file and re-check drift on change

	// Log file settings
	LogDir        string
	LogFile       string
	LogMaxSize    int  // max size of a single log file (MB)
	LogMaxBackups int  // max number of rotated files to keep
	LogMaxAge     int  // max age of rotated files (days)
	LogCompress   bool // gzip rotated files
	LogToConsole  bool // tee log output to stdout
}

// NewEnvConfig creates the environment configuration with defaults
func NewEnvConfig() *EnvConfig {
	return &EnvConfig{
		Port:        getEnvAsInt("PORT", 3100),
		Env:         getEnv("ENV", "development"),
		DataDir:     getEnv("DATA_DIR", ".data"),
		EnableCORS:  getEnv("ENABLE_CORS", "true") != "false",
		CORSOrigin:  getEnv("CORS_ORIGIN", "*"),
		HealthPath:  getEnv("HEALTH_CHECK_PATH", "/health"),
		WatchSource: getEnv("WATCH_CREDENTIAL_SOURCE", "true") != "false",

		LogDir:        getEnv("LOG_DIR", "logs"),
		LogFile:       getEnv("LOG_FILE", "meterai.log"),
		LogMaxSize:    getEnvAsInt("LOG_MAX_SIZE", 100),
		LogMaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 10),
		LogMaxAge:     getEnvAsInt("LOG_MAX_AGE", 30),
		LogCompress:   getEnv("LOG_COMPRESS", "true") != "false",
		LogToConsole:  getEnv("LOG_TO_CONSOLE", "true") != "false",
	}
}

// IsDevelopment reports whether the process runs in development mode
func (c *EnvConfig) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction reports whether the process runs in production mode
func (c *EnvConfig) IsProduction() bool {
	return c.Env == "production"
}

// getEnv returns the environment variable value or a default when unset
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt returns the environment variable parsed as int or a default
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
