package s3archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PayFox/app/models"
)

// objectAPI is the part of the S3 client the archive uses
type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// Client archives raw webhook deliveries to an S3 bucket
type Client struct {
	api    objectAPI
	config *Config
}

// archivedWebhook is the document stored per delivery
type archivedWebhook struct {
	LedgerID   uint            `json:"ledger_id"`
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	Verified   bool            `json:"verified"`
	Signature  string          `json:"signature"`
	ReceivedAt time.Time       `json:"received_at"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	RawPayload string          `json:"raw_payload,omitempty"`
}

// NewClient creates a new archive client
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	if !cfg.IsEnabled() {
		return nil, fmt.Errorf("webhook archive is disabled")
	}

	awsConfig, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			// S3-compatible providers (B2, MinIO) need path-style URLs
			o.UsePathStyle = true
			o.UseAccelerate = false
		}
	})

	client := newClient(s3Client, cfg)
	if err := client.testConnection(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to S3: %w", err)
	}

	log.Infof("[S3Archive] Successfully initialized webhook archive for bucket: %s", cfg.BucketName)
	return client, nil
}

func newClient(api objectAPI, cfg *Config) *Client {
	return &Client{api: api, config: cfg}
}

// testConnection checks the bucket and creates it outside production
func (c *Client) testConnection(ctx context.Context) error {
	_, err := c.api.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.config.BucketName),
	})
	if err == nil {
		return nil
	}
	if GetAppEnv() == "prod" {
		return fmt.Errorf("bucket %s not accessible: %w", c.config.BucketName, err)
	}

	log.Warnf("[S3Archive] Bucket %s not found, attempting to create it", c.config.BucketName)
	input := &s3.CreateBucketInput{Bucket: aws.String(c.config.BucketName)}
	// AWS regions other than us-east-1 need a location constraint; S3-compatible endpoints don't
	if c.config.EndpointURL == "" && c.config.Region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(c.config.Region),
		}
	}
	if _, err := c.api.CreateBucket(ctx, input); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", c.config.BucketName, err)
	}
	return nil
}

// ArchiveWebhook implements billing.Archiver
func (c *Client) ArchiveWebhook(ctx context.Context, event *models.WebhookEvent) error {
	receivedAt := event.CreatedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	doc := archivedWebhook{
		LedgerID:   event.ID,
		EventID:    event.EventID,
		EventType:  event.EventType,
		Verified:   event.Verified,
		Signature:  event.Signature,
		ReceivedAt: receivedAt.UTC(),
	}
	if json.Valid([]byte(event.Payload)) {
		doc.Payload = json.RawMessage(event.Payload)
	} else {
		doc.RawPayload = event.Payload
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode webhook %s: %w", event.EventID, err)
	}

	key := c.config.ObjectKey(receivedAt, event.ID, event.EventID)
	_, err = c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.config.BucketName),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(body))),
		Metadata: map[string]string{
			"event-type":    event.EventType,
			"verified":      fmt.Sprintf("%t", event.Verified),
			"upload-source": "payfox-webhook",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload webhook %s to S3: %w", event.EventID, err)
	}

	log.Debugf("[S3Archive] Archived webhook %s to s3://%s/%s", event.EventID, c.config.BucketName, key)
	return nil
}
