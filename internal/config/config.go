// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// HTTP server
	Port string

	// Database
	SQLiteDBPath string

	// Sessions
	JWTSecret string
	TokenTTL  time.Duration

	// AMQP change relay
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets backup
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleCredentialsFile string
	GoogleCredentialsJSON string
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:         getEnv("PORT", "8081"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/fintrack.db"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		TokenTTL:  getEnvDuration("TOKEN_TTL", 24*time.Hour),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "fintrack"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "record_changes"),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:       getEnv("GOOGLE_SHEET_NAME", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		GoogleCredentialsJSON: getEnv("GOOGLE_CREDENTIALS_JSON", ""),
	}
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errs = append(errs, "SQLite database path cannot be empty")
	}

	if c.JWTSecret == "" {
		errs = append(errs, "JWT_SECRET must be set")
	} else if len(c.JWTSecret) < 16 {
		errs = append(errs, "JWT_SECRET too short: need at least 16 characters")
	}

	if c.TokenTTL < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid token TTL %v: must be at least 1 minute", c.TokenTTL))
	} else if c.TokenTTL > 30*24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid token TTL %v: must be at most 30 days", c.TokenTTL))
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// The backup worker needs the spreadsheet and some form of credentials.
	if c.GoogleSpreadsheetID != "" {
		if c.GoogleSheetName == "" {
			errs = append(errs, "Google sheet name is required when a spreadsheet id is set")
		}
		if c.GoogleCredentialsFile == "" && c.GoogleCredentialsJSON == "" {
			errs = append(errs, "either GOOGLE_CREDENTIALS_FILE or GOOGLE_CREDENTIALS_JSON must be provided")
		}
		if c.GoogleCredentialsFile != "" {
			if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
				errs = append(errs, fmt.Sprintf("Google credentials file does not exist: %s", c.GoogleCredentialsFile))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// SheetsEnabled reports whether the Google Sheets backup is configured.
func (c *Config) SheetsEnabled() bool { return c.GoogleSpreadsheetID != "" }

// AMQPEnabled reports whether the AMQP change relay is configured.
func (c *Config) AMQPEnabled() bool { return c.AMQPURL != "" }

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
