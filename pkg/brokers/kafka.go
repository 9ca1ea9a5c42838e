package brokers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// DefaultConsumerGroup - группа потребителей Kafka по умолчанию
const DefaultConsumerGroup = "normalizer"

// Kafka читает уведомления о загрузках из топика и пишет в него же (DLQ).
// Reader создается при первом Receive, writer при первом Send, так что
// брокер dead letter очереди не вступает в группу потребителей.
type Kafka struct {
	config Config

	reader  *kafka.Reader
	writer  *kafka.Writer
	pending *kafka.Message // получено, но еще не подтверждено
}

// NewKafka проверяет конфигурацию. Соединение открывает Connect.
func NewKafka(cfg Config) (*Kafka, error) {
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic name is required for Kafka")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker address is required for Kafka")
	}
	if cfg.ConsumerGroup == "" {
		cfg.ConsumerGroup = DefaultConsumerGroup
	}
	return &Kafka{config: cfg}, nil
}

// Connect проверяет, что кластер доступен и топик существует
func (k *Kafka) Connect(ctx context.Context) error {
	return k.Ping(ctx)
}

func (k *Kafka) consumer() *kafka.Reader {
	if k.reader == nil {
		// Непрочитанные уведомления, накопленные пока worker был остановлен,
		// должны быть обработаны, поэтому новая группа стартует с начала топика.
		k.reader = kafka.NewReader(kafka.ReaderConfig{
			Brokers:        k.config.Brokers,
			GroupID:        k.config.ConsumerGroup,
			Topic:          k.config.Topic,
			MaxBytes:       1 << 20,
			CommitInterval: 0,
			StartOffset:    kafka.FirstOffset,
			MaxWait:        time.Second,
		})
	}
	return k.reader
}

func (k *Kafka) producer() *kafka.Writer {
	if k.writer == nil {
		k.writer = &kafka.Writer{
			Addr:         kafka.TCP(k.config.Brokers...),
			Topic:        k.config.Topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
			MaxAttempts:  3,
			WriteTimeout: 10 * time.Second,
		}
	}
	return k.writer
}

// Send публикует одно событие синхронно
func (k *Kafka) Send(ctx context.Context, message []byte) error {
	err := k.producer().WriteMessages(ctx, kafka.Message{
		Value:   message,
		Headers: []kafka.Header{{Key: "content-type", Value: []byte("application/json")}},
	})
	if err != nil {
		return fmt.Errorf("failed to write message to %s: %w", k.config.Topic, err)
	}
	return nil
}

// Receive ждет следующее сообщение. Offset не коммитится до Ack.
func (k *Kafka) Receive(ctx context.Context) ([]byte, error) {
	msg, err := k.consumer().FetchMessage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message: %w", err)
	}
	k.pending = &msg
	return msg.Value, nil
}

// Ack коммитит offset последнего полученного сообщения
func (k *Kafka) Ack(ctx context.Context) error {
	if k.pending == nil {
		return fmt.Errorf("no message to commit")
	}
	if err := k.reader.CommitMessages(ctx, *k.pending); err != nil {
		return fmt.Errorf("failed to commit offset %d: %w", k.pending.Offset, err)
	}
	k.pending = nil
	return nil
}

// Nack оставляет offset незакоммиченным. Вернуть одно сообщение в топик
// нельзя: повторная доставка произойдет после ребаланса или перезапуска,
// поэтому requeue не учитывается.
func (k *Kafka) Nack(_ context.Context, _ bool) error {
	if k.pending == nil {
		return fmt.Errorf("no message to reject")
	}
	k.pending = nil
	return nil
}

// Ping опрашивает брокеры по очереди до первого ответившего
func (k *Kafka) Ping(ctx context.Context) error {
	var errs []error
	for _, addr := range k.config.Brokers {
		conn, err := kafka.DialContext(ctx, "tcp", addr)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		_, err = conn.ReadPartitions(k.config.Topic)
		conn.Close()
		if err == nil {
			return nil
		}
		errs = append(errs, fmt.Errorf("%s: topic %s: %w", addr, k.config.Topic, err))
	}
	return fmt.Errorf("kafka unavailable: %w", errors.Join(errs...))
}

func (k *Kafka) Close() error {
	var errs []error
	if k.reader != nil {
		errs = append(errs, k.reader.Close())
	}
	if k.writer != nil {
		errs = append(errs, k.writer.Close())
	}
	return errors.Join(errs...)
}

func (k *Kafka) Type() string { return "kafka" }
