package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/bookreview/config.yaml",
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
			RequestTimeout:  5 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Storage: StorageConfig{Driver: "dynamodb"},
		Tables: TablesConfig{
			Books:         "Books",
			Comments:      "Comments",
			Notifications: "Notifications",
			Users:         "Users",
		},
		S3: S3Config{
			UploadPrefix: "book-covers/",
			PresignTTL:   5 * time.Minute,
		},
		Security: SecurityConfig{
			TokenTTL:        24 * time.Hour,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Socket: SocketConfig{SendQueueSize: 64},
		Notifications: NotificationsConfig{
			Async:      true,
			Topic:      "notifications",
			BufferSize: 256,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// Load builds the configuration: defaults, then the YAML file if one is
// found, then environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := splitCommaList(k, "server.cors_origins"); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envMappings keeps the variable names the server has always read.
var envMappings = map[string]string{
	"port":                "server.port",
	"aws_region":          "aws.region",
	"aws_endpoint_url":    "aws.endpoint",
	"s3_bucket_name":      "s3.bucket",
	"jwt_secret":          "security.jwt_secret",
	"log_level":           "logging.level",
	"log_format":          "logging.format",
	"storage_driver":      "storage.driver",
	"cors_origins":        "server.cors_origins",
	"notifications_async": "notifications.async",
}

var sections = map[string]bool{
	"server": true, "storage": true, "aws": true, "tables": true, "s3": true,
	"security": true, "socket": true, "notifications": true, "logging": true,
}

// envTransformFunc maps an environment variable to a koanf path. Known
// names come from envMappings; SECTION_KEY_NAME becomes section.key_name
// for the sections above. Everything else maps to "" and is dropped.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)
	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	if section, rest, ok := strings.Cut(key, "_"); ok && sections[section] {
		return section + "." + rest
	}
	return ""
}

func splitCommaList(k *koanf.Koanf, path string) error {
	s, ok := k.Get(path).(string)
	if !ok {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if err := k.Set(path, out); err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}
	return nil
}
