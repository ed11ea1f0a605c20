package config

import (
	"crypto/rand" // Needed for JWT generation
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all configuration settings for the application.
type Config struct {
	// Server settings
	ListenAddress  string
	ListenPort     string
	AllowedOrigins []string

	// Storage settings
	DataDir      string // Holds one JSON file per collection
	UploadsDir   string // Root of the uploaded files tree
	StoreDriver  string // "file" (default) or "sqlite"
	SQLitePath   string
	EnableBackup bool
	MaxUploadMB  int64

	// Authentication settings
	JwtSecret     string // The actual secret key
	JwtSecretFile string // Path to the file containing the secret
	TokenLifetime time.Duration
	BcryptCost    int
	AdminUsername string // Seeded by bootstrap when no user exists
	AdminPassword string

	LogLevel string
}

// Store drivers.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// EnvPrefix prefixes every environment variable, e.g. CLASSPORTAL_DATA_DIR.
const EnvPrefix = "CLASSPORTAL"

const (
	defaultAddress        = "0.0.0.0"
	defaultPort           = "3001"
	defaultDataDir        = "./data"
	defaultUploadsDir     = "./uploads"
	defaultStoreDriver    = DriverFile
	defaultSQLiteFile     = "classportal.db" // Inside DataDir unless overridden
	defaultEnableBackup   = true
	defaultMaxUploadMB    = 50
	defaultJwtKeyFile     = "jwt.key" // Inside DataDir, written if we generate a key
	defaultTokenLifetime  = 24 * time.Hour
	defaultBcryptCost     = 12
	defaultAdminUsername  = "admin"
	defaultAdminPassword  = "admin"
	defaultAllowedOrigins = "http://localhost:3000,http://localhost:5173"
	defaultLogLevel       = "info"
)

// RegisterFlags declares every command-line flag LoadConfig understands.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("address", defaultAddress, "Server listen address (Env: CLASSPORTAL_ADDRESS)")
	fs.String("port", defaultPort, "Server listen port (Env: CLASSPORTAL_PORT)")
	fs.String("data-dir", defaultDataDir, "Directory holding the JSON collections (Env: CLASSPORTAL_DATA_DIR)")
	fs.String("uploads-dir", defaultUploadsDir, "Root directory for uploaded files (Env: CLASSPORTAL_UPLOADS_DIR)")
	fs.String("store-driver", defaultStoreDriver, "Collection backend: file or sqlite (Env: CLASSPORTAL_STORE_DRIVER)")
	fs.String("sqlite-path", "", "SQLite database path when store-driver=sqlite (Env: CLASSPORTAL_SQLITE_PATH)")
	fs.Bool("enable-backup", defaultEnableBackup, "Keep a .bak copy of each collection before overwriting it (Env: CLASSPORTAL_ENABLE_BACKUP)")
	fs.Int64("max-upload-mb", defaultMaxUploadMB, "Maximum upload size in megabytes (Env: CLASSPORTAL_MAX_UPLOAD_MB)")
	fs.String("jwt-secret-file", "", "Path to file containing JWT secret key (overrides CLASSPORTAL_JWT_SECRET) (Env: CLASSPORTAL_JWT_SECRET_FILE)")
	fs.Duration("token-lifetime", defaultTokenLifetime, "JWT lifetime (Env: CLASSPORTAL_TOKEN_LIFETIME)")
	fs.String("admin-username", defaultAdminUsername, "Initial admin username (Env: CLASSPORTAL_ADMIN_USERNAME)")
	fs.String("admin-password", defaultAdminPassword, "Initial admin password (Env: CLASSPORTAL_ADMIN_PASSWORD)")
	fs.String("allowed-origins", defaultAllowedOrigins, "Comma separated CORS origins (Env: CLASSPORTAL_ALLOWED_ORIGINS)")
	fs.String("log-level", defaultLogLevel, "Log level: debug, info, warn, error (Env: CLASSPORTAL_LOG_LEVEL)")
}

// LoadConfig loads configuration from defaults, an optional .env file, environment variables
// and the given flag set. Flags take precedence over environment variables, which take
// precedence over defaults. fs may be nil.
func LoadConfig(fs *pflag.FlagSet) (*Config, error) {
	// .env is optional; real environment variables win over it.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("address", defaultAddress)
	v.SetDefault("port", defaultPort)
	v.SetDefault("data-dir", defaultDataDir)
	v.SetDefault("uploads-dir", defaultUploadsDir)
	v.SetDefault("store-driver", defaultStoreDriver)
	v.SetDefault("sqlite-path", "")
	v.SetDefault("enable-backup", defaultEnableBackup)
	v.SetDefault("max-upload-mb", defaultMaxUploadMB)
	v.SetDefault("jwt-secret", "")
	v.SetDefault("jwt-secret-file", "")
	v.SetDefault("token-lifetime", defaultTokenLifetime)
	v.SetDefault("admin-username", defaultAdminUsername)
	v.SetDefault("admin-password", defaultAdminPassword)
	v.SetDefault("allowed-origins", defaultAllowedOrigins)
	v.SetDefault("log-level", defaultLogLevel)

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	cfg := &Config{
		ListenAddress: v.GetString("address"),
		ListenPort:    v.GetString("port"),
		DataDir:       v.GetString("data-dir"),
		UploadsDir:    v.GetString("uploads-dir"),
		StoreDriver:   strings.ToLower(strings.TrimSpace(v.GetString("store-driver"))),
		SQLitePath:    v.GetString("sqlite-path"),
		EnableBackup:  v.GetBool("enable-backup"),
		MaxUploadMB:   v.GetInt64("max-upload-mb"),
		JwtSecretFile: v.GetString("jwt-secret-file"),
		TokenLifetime: v.GetDuration("token-lifetime"),
		BcryptCost:    defaultBcryptCost,
		AdminUsername: v.GetString("admin-username"),
		AdminPassword: v.GetString("admin-password"),
		LogLevel:      v.GetString("log-level"),
	}
	cfg.AllowedOrigins = splitList(v.GetString("allowed-origins"))

	if cfg.TokenLifetime <= 0 {
		log.Warnf("Invalid token lifetime %s. Using default %s.", cfg.TokenLifetime, defaultTokenLifetime)
		cfg.TokenLifetime = defaultTokenLifetime
	}
	if cfg.MaxUploadMB <= 0 {
		log.Warnf("Invalid max upload size %d MB. Using default %d MB.", cfg.MaxUploadMB, defaultMaxUploadMB)
		cfg.MaxUploadMB = defaultMaxUploadMB
	}
	switch cfg.StoreDriver {
	case DriverFile, DriverSQLite:
	default:
		return nil, fmt.Errorf("unknown store driver '%s', expected '%s' or '%s'", cfg.StoreDriver, DriverFile, DriverSQLite)
	}

	// --- Path Validation ---
	var err error
	if cfg.DataDir, err = resolveDir(cfg.DataDir, "data-dir"); err != nil {
		return nil, err
	}
	if cfg.UploadsDir, err = resolveDir(cfg.UploadsDir, "uploads-dir"); err != nil {
		return nil, err
	}
	if cfg.StoreDriver == DriverSQLite && cfg.SQLitePath == "" {
		cfg.SQLitePath = filepath.Join(cfg.DataDir, defaultSQLiteFile)
	}

	// --- JWT Secret Handling ---
	// Priority: File (flag/env) > Env Var > Default Key File > Generate
	secretSource, err := resolveJwtSecret(cfg, v.GetString("jwt-secret"))
	if err != nil {
		return nil, err
	}

	logConfiguration(cfg, secretSource)
	return cfg, nil
}

// resolveDir makes p absolute and rejects paths that exist but are not directories.
func resolveDir(p, name string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("could not determine absolute path for %s '%s': %w", name, p, err)
	}
	info, err := os.Stat(abs)
	if err == nil && !info.IsDir() {
		return "", fmt.Errorf("%s '%s' points to a file, not a directory", name, abs)
	}
	return abs, nil
}

// resolveJwtSecret fills cfg.JwtSecret and returns a description of where it came from.
func resolveJwtSecret(cfg *Config, envSecret string) (string, error) {
	// 1. Explicit file path
	if cfg.JwtSecretFile != "" {
		secretBytes, err := os.ReadFile(cfg.JwtSecretFile)
		if err == nil {
			cfg.JwtSecret = strings.TrimSpace(string(secretBytes))
			if cfg.JwtSecret != "" {
				return fmt.Sprintf("File (%s)", cfg.JwtSecretFile), nil
			}
			log.Warnf("Specified JWT secret file '%s' is empty or contains only whitespace. Ignoring.", cfg.JwtSecretFile)
		} else {
			log.Warnf("Failed to read specified JWT secret file '%s': %v. Checking other sources.", cfg.JwtSecretFile, err)
		}
	}

	// 2. Environment variable
	if secret := strings.TrimSpace(envSecret); secret != "" {
		cfg.JwtSecret = secret
		return "Environment Variable (" + EnvPrefix + "_JWT_SECRET)", nil
	}

	// 3. Default key file next to the collections
	keyFile := filepath.Join(cfg.DataDir, defaultJwtKeyFile)
	secretBytes, err := os.ReadFile(keyFile)
	if err == nil {
		cfg.JwtSecret = strings.TrimSpace(string(secretBytes))
		if cfg.JwtSecret != "" {
			return fmt.Sprintf("Default Key File (%s)", keyFile), nil
		}
		log.Warnf("Default JWT key file '%s' is empty. Will generate a new secret.", keyFile)
	} else if !os.IsNotExist(err) {
		log.Warnf("Failed to read default JWT key file '%s': %v. Will generate a new secret.", keyFile, err)
	}

	// 4. Generate and try to persist
	newSecret, err := generateRandomKey(32)
	if err != nil {
		return "", fmt.Errorf("failed to generate JWT secret: %w", err)
	}
	cfg.JwtSecret = newSecret
	if err := os.MkdirAll(cfg.DataDir, 0755); err == nil {
		err = os.WriteFile(keyFile, []byte(newSecret), 0600)
		if err == nil {
			return fmt.Sprintf("Generated & Saved (%s)", keyFile), nil
		}
		log.Warnf("Failed to save generated JWT secret to '%s': %v. Using it for this session only.", keyFile, err)
	}
	return "Generated (In Memory)", nil
}

// ConfigureLogging applies the configured log level to the global logrus logger.
func ConfigureLogging(cfg *Config) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warnf("Invalid log level '%s'. Using info.", cfg.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

// logConfiguration prints the loaded configuration settings.
func logConfiguration(cfg *Config, secretSource string) {
	log.WithFields(log.Fields{
		"address":        cfg.ListenAddress,
		"port":           cfg.ListenPort,
		"data_dir":       cfg.DataDir,
		"uploads_dir":    cfg.UploadsDir,
		"store_driver":   cfg.StoreDriver,
		"backup":         cfg.EnableBackup,
		"max_upload_mb":  cfg.MaxUploadMB,
		"jwt_source":     secretSource,
		"token_lifetime": cfg.TokenLifetime,
		"origins":        strings.Join(cfg.AllowedOrigins, ","),
	}).Info("Configuration loaded")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// generateRandomKey generates a cryptographically secure random key of the specified byte length
// and returns it as a hex-encoded string.
func generateRandomKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
