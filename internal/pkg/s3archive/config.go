package s3archive

import (
	"errors"
	"fmt"
	"time"

	"github.com/ManuelReschke/PayFox/internal/pkg/env"
)

// Config holds the webhook archive configuration
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
	Prefix          string
	Enabled         bool
}

// LoadConfig loads the archive configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "us-west-001"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		Prefix:          env.GetEnv("S3_WEBHOOK_PREFIX", "webhooks"),
		Enabled:         env.GetEnvBool("S3_WEBHOOK_ARCHIVE_ENABLED", false),
	}

	if config.Enabled {
		if config.AccessKeyID == "" {
			return nil, errors.New("S3_ACCESS_KEY_ID is required when the webhook archive is enabled")
		}
		if config.SecretAccessKey == "" {
			return nil, errors.New("S3_SECRET_ACCESS_KEY is required when the webhook archive is enabled")
		}
		if config.BucketName == "" {
			return nil, errors.New("S3_BUCKET_NAME is required when the webhook archive is enabled")
		}
	}

	return config, nil
}

// IsEnabled returns true if webhook archiving is enabled
func (c *Config) IsEnabled() bool {
	return c.Enabled
}

// ObjectKey generates the object key for one archived delivery.
// Format: <prefix>/YYYY/MM/DD/<ledger id>-<event id>.json
func (c *Config) ObjectKey(receivedAt time.Time, ledgerID uint, eventID string) string {
	prefix := c.Prefix
	if prefix == "" {
		prefix = "webhooks"
	}
	t := receivedAt.UTC()
	return fmt.Sprintf("%s/%04d/%02d/%02d/%d-%s.json", prefix, t.Year(), int(t.Month()), t.Day(), ledgerID, sanitizeKeyPart(eventID))
}

// sanitizeKeyPart keeps object keys free of path separators and odd characters
func sanitizeKeyPart(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-', c == '.':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "unknown"
	}
	return string(out)
}

// GetAppEnv returns the current application environment
func GetAppEnv() string {
	return env.GetEnv("APP_ENV", "dev")
}
