package razorpay

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientRequiresKeys(t *testing.T) {
	_, err := NewClient("", "secret")
	assert.Error(t, err)

	c, err := NewClient("rzp_test_key", "secret")
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, c.timeout)
}

func TestOrderFromBody(t *testing.T) {
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(`{"id":"order_9A33XWu170gUtm","entity":"order","amount":49900,"currency":"INR","receipt":"rcpt_1","status":"created","notes":[]}`), &body))

	order, err := orderFromBody(body)
	require.NoError(t, err)
	assert.Equal(t, "order_9A33XWu170gUtm", order.ID)
	assert.Equal(t, int64(49900), order.Amount)
	assert.Equal(t, "INR", order.Currency)
	assert.Equal(t, "rcpt_1", order.Receipt)
	assert.Equal(t, "created", order.Status)
	assert.Equal(t, body, order.Body())

	_, err = orderFromBody(map[string]interface{}{"amount": 100})
	assert.Error(t, err)
}

func TestSubscriptionFromBody(t *testing.T) {
	sub, err := subscriptionFromBody(map[string]interface{}{"id": "sub_1", "plan_id": "plan_ext", "status": "created"})
	require.NoError(t, err)
	assert.Equal(t, "sub_1", sub.ID)
	assert.Equal(t, "plan_ext", sub.PlanID)
	assert.Equal(t, "created", sub.Status)

	_, err = subscriptionFromBody(map[string]interface{}{})
	assert.Error(t, err)
}

func TestInt64Field(t *testing.T) {
	body := map[string]interface{}{
		"f": float64(29900),
		"i": 5,
		"n": json.Number("77"),
		"s": "12",
		"x": true,
	}
	assert.Equal(t, int64(29900), int64Field(body, "f"))
	assert.Equal(t, int64(5), int64Field(body, "i"))
	assert.Equal(t, int64(77), int64Field(body, "n"))
	assert.Equal(t, int64(12), int64Field(body, "s"))
	assert.Zero(t, int64Field(body, "x"))
	assert.Zero(t, int64Field(body, "missing"))
}

func TestNotesPayloadDropsEmptyValues(t *testing.T) {
	assert.Nil(t, notesPayload(nil))
	notes := notesPayload(map[string]string{"planId": "pro", "userId": ""})
	assert.Equal(t, map[string]interface{}{"planId": "pro"}, notes)
}

func TestCallHonoursTimeout(t *testing.T) {
	c := &Client{timeout: 20 * time.Millisecond}
	release := make(chan struct{})
	defer close(release)

	_, err := c.call(context.Background(), func() (map[string]interface{}, error) {
		<-release
		return nil, nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCallPassesThroughResult(t *testing.T) {
	c := &Client{timeout: time.Second}

	body, err := c.call(context.Background(), func() (map[string]interface{}, error) {
		return map[string]interface{}{"id": "order_1"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "order_1", body["id"])

	boom := errors.New("boom")
	_, err = c.call(context.Background(), func() (map[string]interface{}, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.call(ctx, func() (map[string]interface{}, error) { return nil, nil })
	assert.ErrorIs(t, err, context.Canceled)
}
