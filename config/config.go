// Package config loads server configuration from defaults, an optional YAML
// file and environment variables, in that order of precedence (lowest first).
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server" validate:"required"`
	Storage       StorageConfig       `koanf:"storage" validate:"required"`
	AWS           AWSConfig           `koanf:"aws"`
	Tables        TablesConfig        `koanf:"tables" validate:"required"`
	S3            S3Config            `koanf:"s3"`
	Security      SecurityConfig      `koanf:"security" validate:"required"`
	Socket        SocketConfig        `koanf:"socket" validate:"required"`
	Notifications NotificationsConfig `koanf:"notifications" validate:"required"`
	Logging       LoggingConfig       `koanf:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	RequestTimeout  time.Duration `koanf:"request_timeout" validate:"gt=0"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// Addr returns host:port for http.Server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	// Driver is "dynamodb" for production or "memory" for local runs.
	Driver string `koanf:"driver" validate:"oneof=dynamodb memory"`
}

// AWSConfig configures the AWS SDK.
type AWSConfig struct {
	Region string `koanf:"region"`
	// Endpoint overrides the service endpoint (DynamoDB Local, LocalStack).
	Endpoint string `koanf:"endpoint" validate:"omitempty,url"`
}

// TablesConfig names the DynamoDB tables.
type TablesConfig struct {
	Books         string `koanf:"books" validate:"required"`
	Comments      string `koanf:"comments" validate:"required"`
	Notifications string `koanf:"notifications" validate:"required"`
	Users         string `koanf:"users" validate:"required"`
}

// S3Config configures the asset bucket.
type S3Config struct {
	Bucket       string        `koanf:"bucket"`
	UploadPrefix string        `koanf:"upload_prefix"`
	PresignTTL   time.Duration `koanf:"presign_ttl" validate:"gt=0"`
}

// SecurityConfig holds auth and abuse limits.
type SecurityConfig struct {
	JWTSecret       string        `koanf:"jwt_secret" validate:"required,min=16"`
	TokenTTL        time.Duration `koanf:"token_ttl" validate:"gt=0"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"gt=0"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
}

// SocketConfig tunes the live connection layer.
type SocketConfig struct {
	// SendQueueSize bounds each connection's outbound queue. A connection
	// whose queue is full is dropped.
	SendQueueSize int `koanf:"send_queue_size" validate:"min=1"`
}

// NotificationsConfig controls notification fan-out.
type NotificationsConfig struct {
	Async      bool   `koanf:"async"`
	Topic      string `koanf:"topic" validate:"required"`
	BufferSize int64  `koanf:"buffer_size" validate:"min=0"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"omitempty,oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Validate checks struct tags.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Storage.Driver == "dynamodb" && c.AWS.Region == "" {
		return fmt.Errorf("invalid configuration: aws.region is required for the dynamodb driver")
	}
	return nil
}
