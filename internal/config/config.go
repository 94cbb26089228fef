package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server ServerConfig
	Store  StoreConfig
	Auth   AuthConfig
	CORS   CORSConfig
}

// ServerConfig holds the server configuration
type ServerConfig struct {
	Port int
}

// StoreConfig holds the file paths of the persisted state: the spreadsheet,
// the two database files, and the backup directory.
type StoreConfig struct {
	ExcelPath    string
	AssetsDBPath string
	UsersDBPath  string
	BackupDir    string
}

// AuthConfig holds the authentication configuration
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// CORSConfig holds the origins allowed to call the API from a browser
type CORSConfig struct {
	AllowedOrigins []string
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Store: StoreConfig{
			ExcelPath:    getEnv("EXCEL_FILE_PATH", "data/assets.xlsx"),
			AssetsDBPath: getEnv("ASSETS_DB_PATH", "data/assets.db"),
			UsersDBPath:  getEnv("USERS_DB_PATH", "data/users.db"),
			BackupDir:    getEnv("BACKUP_DIR", "backups"),
		},
		Auth: AuthConfig{
			// No default: a missing secret is a fatal startup error.
			JWTSecret: getEnv("JWT_SECRET", ""),
			TokenTTL:  time.Duration(getEnvAsInt("TOKEN_TTL_MINUTES", 30)) * time.Minute,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS",
				"http://localhost,http://localhost:5173,http://127.0.0.1,http://127.0.0.1:5173"),
		},
	}
}

// Helper functions to read environment variables
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key, defaultValue string) []string {
	parts := strings.Split(getEnv(key, defaultValue), ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			values = append(values, p)
		}
	}
	return values
}
