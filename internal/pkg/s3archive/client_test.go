package s3archive

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/PayFox/app/models"
)

type fakeS3 struct {
	puts       []*s3.PutObjectInput
	bodies     [][]byte
	headErr    error
	created    []string
	putErr     error
	createdErr error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.puts = append(f.puts, in)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(_ context.Context, _ *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, f.headErr
}

func (f *fakeS3) CreateBucket(_ context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	if f.createdErr != nil {
		return nil, f.createdErr
	}
	f.created = append(f.created, aws.ToString(in.Bucket))
	return &s3.CreateBucketOutput{}, nil
}

func TestObjectKey(t *testing.T) {
	cfg := &Config{Prefix: "hooks"}
	at := time.Date(2026, 3, 7, 23, 30, 0, 0, time.UTC)

	assert.Equal(t, "hooks/2026/03/07/12-evt_ABC.json", cfg.ObjectKey(at, 12, "evt_ABC"))
	assert.Equal(t, "hooks/2026/03/07/12-hash_ab_..json", cfg.ObjectKey(at, 12, "hash:ab/."))
	assert.Equal(t, "webhooks/2026/03/07/1-unknown.json", (&Config{}).ObjectKey(at, 1, ""))
}

func TestLoadConfigValidatesWhenEnabled(t *testing.T) {
	t.Setenv("S3_WEBHOOK_ARCHIVE_ENABLED", "true")
	t.Setenv("S3_ACCESS_KEY_ID", "")
	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("S3_ACCESS_KEY_ID", "key")
	t.Setenv("S3_SECRET_ACCESS_KEY", "secret")
	t.Setenv("S3_BUCKET_NAME", "payfox-webhooks")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsEnabled())
	assert.Equal(t, "payfox-webhooks", cfg.BucketName)
}

func TestArchiveWebhook(t *testing.T) {
	api := &fakeS3{}
	c := newClient(api, &Config{BucketName: "archive", Prefix: "webhooks"})

	event := &models.WebhookEvent{
		ID:        9,
		EventID:   "evt_1",
		EventType: "payment.captured",
		Payload:   `{"event":"payment.captured"}`,
		Signature: "abc",
		Verified:  true,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, c.ArchiveWebhook(context.Background(), event))
	require.Len(t, api.puts, 1)

	put := api.puts[0]
	assert.Equal(t, "archive", aws.ToString(put.Bucket))
	assert.Equal(t, "webhooks/2026/01/02/9-evt_1.json", aws.ToString(put.Key))
	assert.Equal(t, "true", put.Metadata["verified"])

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(api.bodies[0], &doc))
	assert.Equal(t, "evt_1", doc["event_id"])
	assert.Equal(t, map[string]interface{}{"event": "payment.captured"}, doc["payload"])
	assert.NotContains(t, doc, "raw_payload")
}

func TestArchiveWebhookKeepsInvalidJSONRaw(t *testing.T) {
	api := &fakeS3{}
	c := newClient(api, &Config{BucketName: "archive"})

	require.NoError(t, c.ArchiveWebhook(context.Background(), &models.WebhookEvent{ID: 1, EventID: "evt_x", Payload: "not json"}))

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(api.bodies[0], &doc))
	assert.Equal(t, "not json", doc["raw_payload"])
	assert.NotContains(t, doc, "payload")
}

func TestArchiveWebhookUploadError(t *testing.T) {
	api := &fakeS3{putErr: errors.New("access denied")}
	c := newClient(api, &Config{BucketName: "archive"})

	err := c.ArchiveWebhook(context.Background(), &models.WebhookEvent{ID: 1, EventID: "evt_1", Payload: "{}"})
	assert.ErrorContains(t, err, "access denied")
}

func TestTestConnectionCreatesBucketOutsideProd(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	api := &fakeS3{headErr: errors.New("not found")}
	c := newClient(api, &Config{BucketName: "archive", EndpointURL: "http://minio:9000"})

	require.NoError(t, c.testConnection(context.Background()))
	assert.Equal(t, []string{"archive"}, api.created)

	t.Setenv("APP_ENV", "prod")
	api = &fakeS3{headErr: errors.New("not found")}
	c = newClient(api, &Config{BucketName: "archive"})
	assert.Error(t, c.testConnection(context.Background()))
	assert.Empty(t, api.created)
}
