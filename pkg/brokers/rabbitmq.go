package brokers

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ruslano69/match-normalizer/pkg/retry"
)

// RabbitMQ получает уведомления через basic.consume с prefetch 1 и ручным
// подтверждением. Подписка открывается при первом Receive: брокер, который
// только публикует (DLQ), очередь не читает.
type RabbitMQ struct {
	config Config
	idle   time.Duration

	conn       *amqp.Connection
	channel    *amqp.Channel
	deliveries <-chan amqp.Delivery
	pending    *amqp.Delivery
}

// NewRabbitMQ заполняет значения по умолчанию (localhost, guest, vhost "/")
func NewRabbitMQ(cfg Config) (*RabbitMQ, error) {
	if cfg.Queue == "" {
		return nil, fmt.Errorf("queue name is required for RabbitMQ")
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 5672
		if cfg.UseTLS {
			cfg.Port = 5671
		}
	}
	if cfg.VHost == "" {
		cfg.VHost = "/"
	}
	if cfg.User == "" {
		cfg.User, cfg.Password = "guest", "guest"
	}
	return &RabbitMQ{config: cfg, idle: time.Second}, nil
}

// URL - amqp[s]://user:password@host:port/vhost
func (r *RabbitMQ) URL() string {
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(r.config.User, r.config.Password),
		Host:   r.config.Host + ":" + strconv.Itoa(r.config.Port),
		Path:   "/",
	}
	if r.config.UseTLS {
		u.Scheme = "amqps"
	}
	if r.config.VHost != "/" {
		u.Path += r.config.VHost
	}
	return u.String()
}

// Connect открывает соединение и канал и объявляет очередь. Параметры
// durable/auto_delete/exclusive должны совпадать с уже существующей очередью.
// Отказ в доступе помечается retry.Permanent.
func (r *RabbitMQ) Connect(_ context.Context) error {
	var err error
	if r.config.UseTLS {
		r.conn, err = amqp.DialTLS(r.URL(), &tls.Config{ServerName: r.config.Host, MinVersion: tls.VersionTLS12})
	} else {
		r.conn, err = amqp.Dial(r.URL())
	}
	if errors.Is(err, amqp.ErrCredentials) || errors.Is(err, amqp.ErrVhost) {
		return retry.Permanent(fmt.Errorf("RabbitMQ refused access: %w", err))
	}
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	if r.channel, err = r.conn.Channel(); err != nil {
		r.conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}
	if _, err = r.channel.QueueDeclare(r.config.Queue, r.config.Durable, r.config.AutoDelete, r.config.Exclusive, false, nil); err != nil {
		r.Close()
		return fmt.Errorf("failed to declare queue %s: %w", r.config.Queue, err)
	}
	return nil
}

func (r *RabbitMQ) subscribe() error {
	if r.deliveries != nil {
		return nil
	}
	if err := r.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set prefetch: %w", err)
	}
	deliveries, err := r.channel.Consume(r.config.Queue, "", false, r.config.Exclusive, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume %s: %w", r.config.Queue, err)
	}
	r.deliveries = deliveries
	return nil
}

// Send публикует persistent сообщение через default exchange
func (r *RabbitMQ) Send(ctx context.Context, message []byte) error {
	if r.channel == nil {
		return fmt.Errorf("not connected to RabbitMQ")
	}
	err := r.channel.PublishWithContext(ctx, "", r.config.Queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         message,
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", r.config.Queue, err)
	}
	return nil
}

// Receive ждет доставку не дольше idle и тогда возвращает ErrNoMessage
func (r *RabbitMQ) Receive(ctx context.Context) ([]byte, error) {
	if r.channel == nil {
		return nil, fmt.Errorf("not connected to RabbitMQ")
	}
	if err := r.subscribe(); err != nil {
		return nil, err
	}

	timer := time.NewTimer(r.idle)
	defer timer.Stop()

	select {
	case d, ok := <-r.deliveries:
		if !ok {
			r.deliveries = nil
			return nil, fmt.Errorf("delivery channel closed")
		}
		r.pending = &d
		return d.Body, nil
	case <-timer.C:
		return nil, ErrNoMessage
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Ack удаляет последнее полученное сообщение из очереди
func (r *RabbitMQ) Ack(_ context.Context) error {
	if r.pending == nil {
		return fmt.Errorf("no message to acknowledge")
	}
	defer func() { r.pending = nil }()
	if err := r.pending.Ack(false); err != nil {
		return fmt.Errorf("failed to acknowledge message: %w", err)
	}
	return nil
}

// Nack отклоняет последнее сообщение. Без requeue оно уходит в dead letter
// exchange очереди, если тот настроен на стороне RabbitMQ.
func (r *RabbitMQ) Nack(_ context.Context, requeue bool) error {
	if r.pending == nil {
		return fmt.Errorf("no message to reject")
	}
	defer func() { r.pending = nil }()
	if err := r.pending.Nack(false, requeue); err != nil {
		return fmt.Errorf("failed to reject message: %w", err)
	}
	return nil
}

func (r *RabbitMQ) Ping(_ context.Context) error {
	if r.conn == nil || r.conn.IsClosed() || r.channel == nil || r.channel.IsClosed() {
		return fmt.Errorf("not connected to RabbitMQ")
	}
	return nil
}

func (r *RabbitMQ) Close() error {
	var errs []error
	if r.channel != nil && !r.channel.IsClosed() {
		errs = append(errs, r.channel.Close())
	}
	if r.conn != nil && !r.conn.IsClosed() {
		errs = append(errs, r.conn.Close())
	}
	return errors.Join(errs...)
}

func (r *RabbitMQ) Type() string { return "rabbitmq" }
