package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakePublisher struct {
	exchange string
	key      string
	msg      amqp.Publishing
	deadline bool
	err      error
}

func (f *fakePublisher) PublishWithContext(ctx context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange = exchange
	f.key = key
	f.msg = msg
	_, f.deadline = ctx.Deadline()
	return f.err
}

func TestAMQPDispatcher_Dispatch(t *testing.T) {
	pub := &fakePublisher{}
	d := &AMQPDispatcher{ch: pub}
	expires := time.Date(2026, 1, 1, 12, 10, 0, 0, time.UTC)

	err := d.Dispatch(context.Background(), OTPMessage{
		Mobile: "5551234", CountryCode: "+1", OTP: "123456", ExpiresAt: expires,
	})
	require.NoError(t, err)

	assert.Equal(t, "otp", pub.exchange)
	assert.Equal(t, "otp.sms", pub.key)
	assert.Equal(t, amqp.Persistent, pub.msg.DeliveryMode)
	assert.Equal(t, "application/json", pub.msg.ContentType)
	assert.True(t, pub.deadline)

	var got OTPMessage
	require.NoError(t, json.Unmarshal(pub.msg.Body, &got))
	assert.Equal(t, "5551234", got.Mobile)
	assert.Equal(t, "+1", got.CountryCode)
	assert.Equal(t, "123456", got.OTP)
	assert.True(t, expires.Equal(got.ExpiresAt))
}

func TestAMQPDispatcher_PublishError(t *testing.T) {
	d := &AMQPDispatcher{ch: &fakePublisher{err: errors.New("channel closed")}}
	err := d.Dispatch(context.Background(), OTPMessage{Mobile: "5551234"})
	assert.ErrorContains(t, err, "channel closed")
}

func TestLogDispatcher_MasksMobile(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	d := NewLogDispatcher(zap.New(core))

	require.NoError(t, d.Dispatch(context.Background(), OTPMessage{
		Mobile: "5551234", CountryCode: "+1", OTP: "123456", ExpiresAt: time.Now(),
	}))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "otp issued", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, "55***34", fields["mobile"])
	for _, v := range fields {
		assert.NotEqual(t, "123456", v)
	}
}
