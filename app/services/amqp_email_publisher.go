package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/amirphl/vetverify/config"
	"github.com/amirphl/vetverify/utils"
	"github.com/rabbitmq/amqp091-go"
)

// EmailJob is the message consumed by the mail worker
type EmailJob struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	RequestID string    `json:"request_id,omitempty"`
	QueuedAt  time.Time `json:"queued_at"`
}

// amqpChannel is the part of *amqp091.Channel the publisher uses
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// AMQPEmailPublisher hands emails to a mail worker through a topic exchange
type AMQPEmailPublisher struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  amqpChannel
	exchange string
	routing  string
	from     string
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.Trim(clean, "\"'")
	if !strings.HasSuffix(clean, "/") {
		clean += "/"
	}
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// NewAMQPEmailPublisher connects to the broker and declares the email exchange
func NewAMQPEmailPublisher(cfg config.MessagingConfig) (*AMQPEmailPublisher, error) {
	cleanURL, err := sanitizeAMQPURL(cfg.AMQPURL)
	if err != nil {
		return nil, err
	}

	amqpCfg := amqp091.Config{Heartbeat: 10 * time.Second, Locale: "en_US"}
	if cfg.DialTimeout > 0 {
		amqpCfg.Dial = amqp091.DefaultDial(cfg.DialTimeout)
	}
	conn, err := amqp091.DialConfig(cleanURL, amqpCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to amqp broker: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open amqp channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		cfg.EmailExchange, // name
		"topic",           // type
		true,              // durable
		false,             // auto-deleted
		false,             // internal
		false,             // no-wait
		nil,               // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.EmailExchange, err)
	}

	return &AMQPEmailPublisher{
		conn:     conn,
		channel:  channel,
		exchange: cfg.EmailExchange,
		routing:  cfg.EmailRouting,
		from:     cfg.FromEmail,
	}, nil
}

func (p *AMQPEmailPublisher) emailPublishing(ctx context.Context, email, subject, message string) (amqp091.Publishing, error) {
	job := EmailJob{
		From:     p.from,
		To:       email,
		Subject:  subject,
		Body:     message,
		QueuedAt: utils.UTCNow(),
	}
	if id, ok := ctx.Value(utils.RequestIDKey).(string); ok {
		job.RequestID = id
	}

	body, err := json.Marshal(job)
	if err != nil {
		return amqp091.Publishing{}, fmt.Errorf("failed to encode email job: %w", err)
	}
	return amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    job.QueuedAt,
		Body:         body,
	}, nil
}

// SendEmail publishes an email job
func (p *AMQPEmailPublisher) SendEmail(ctx context.Context, email, subject, message string) error {
	msg, err := p.emailPublishing(ctx, email, subject, message)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.PublishWithContext(ctx,
		p.exchange, // exchange
		p.routing,  // routing key
		false,      // mandatory
		false,      // immediate
		msg)
	if err != nil {
		return fmt.Errorf("failed to publish email job: %w", err)
	}

	slog.DebugContext(ctx, "email job published", "exchange", p.exchange, "routing_key", p.routing)
	return nil
}

// Close gracefully closes the channel and connection
func (p *AMQPEmailPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
