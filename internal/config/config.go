package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port        string
	Environment string
	DatabaseURL string
	JWKSURL     string
	CORSOrigins string
	TablePrefix string
	// ProjectID scopes the instance to one project when set
	ProjectID *int64
	// Blob storage
	BlobDir  string
	MediaURL string // public base URL for served blobs
	// Debug flags
	Debug bool
}

// fileConfig is the optional config.yaml overlay. Env vars still win;
// the file only fills values the environment left at their defaults.
type fileConfig struct {
	Port        string `yaml:"port"`
	BlobDir     string `yaml:"blob_dir"`
	MediaURL    string `yaml:"media_url"`
	CORSOrigins string `yaml:"cors_origins"`
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		DatabaseURL: getEnv("DATABASE_URL", ""),
		JWKSURL:     getEnv("JWKS_URL", ""),
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		TablePrefix: getTablePrefix(env),
		BlobDir:     getEnv("BLOB_DIR", "media"),
		MediaURL:    getEnv("MEDIA_URL", "http://localhost:8080/media"),
		Debug:       getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}

	if raw := os.Getenv("PROJECT_ID"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			cfg.ProjectID = &id
		} else {
			fmt.Fprintf(os.Stderr, "warning: invalid PROJECT_ID %q, ignoring\n", raw)
		}
	}

	if path := getEnv("CONFIG_FILE", "config.yaml"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			// A broken overlay should be loud but not fatal in dev
			fmt.Fprintf(os.Stderr, "warning: config file %s: %v\n", path, err)
		}
	}

	return cfg
}

// applyFile merges a yaml overlay into unset-from-env fields.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}

	if fc.Port != "" && os.Getenv("PORT") == "" {
		c.Port = fc.Port
	}
	if fc.BlobDir != "" && os.Getenv("BLOB_DIR") == "" {
		c.BlobDir = fc.BlobDir
	}
	if fc.MediaURL != "" && os.Getenv("MEDIA_URL") == "" {
		c.MediaURL = fc.MediaURL
	}
	if fc.CORSOrigins != "" && os.Getenv("CORS_ORIGINS") == "" {
		c.CORSOrigins = fc.CORSOrigins
	}
	return nil
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
