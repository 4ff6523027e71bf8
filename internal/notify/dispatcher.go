package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ogevents/server/internal/logging"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	otpExchangeName   = "otp"
	exchangeTypeTopic = "topic"
	otpSMSRoutingKey  = "otp.sms"
	publishTimeout    = 5 * time.Second
)

// OTPMessage is the payload handed to the SMS delivery collaborator.
type OTPMessage struct {
	Mobile      string    `json:"mobile"`
	CountryCode string    `json:"country_code"`
	OTP         string    `json:"otp"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Dispatcher delivers a freshly issued OTP to the user.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg OTPMessage) error
}

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPDispatcher publishes OTP messages to a durable topic exchange.
type AMQPDispatcher struct {
	mu sync.Mutex
	ch publisher
}

// NewAMQPDispatcher opens a channel on conn and declares the otp exchange.
func NewAMQPDispatcher(conn *amqp.Connection) (*AMQPDispatcher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create message channel: %w", err)
	}
	if err := ch.ExchangeDeclare(otpExchangeName, exchangeTypeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", otpExchangeName, err)
	}
	return &AMQPDispatcher{ch: ch}, nil
}

// Dispatch publishes msg as persistent JSON with the otp.sms routing key.
func (d *AMQPDispatcher) Dispatch(ctx context.Context, msg OTPMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal otp message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	d.mu.Lock()
	defer d.mu.Unlock()
	err = d.ch.PublishWithContext(ctx,
		otpExchangeName,
		otpSMSRoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("publish otp message: %w", err)
	}
	return nil
}

// LogDispatcher only records that an OTP was issued. Used when no broker is configured.
type LogDispatcher struct {
	logger *zap.Logger
}

func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Dispatch(_ context.Context, msg OTPMessage) error {
	d.logger.Info("otp issued",
		logging.Mobile(msg.Mobile),
		zap.String("country_code", msg.CountryCode),
		zap.Time("expires_at", msg.ExpiresAt),
	)
	return nil
}
