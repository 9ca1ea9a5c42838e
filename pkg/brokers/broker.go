package brokers

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoMessage возвращается Receive, если очередь пуста и ждать больше нечего
var ErrNoMessage = errors.New("no messages available")

// Consumer получает уведомления о новых объектах из очереди.
// Сообщение подтверждается явно: Ack после успешной обработки, Nack после ошибки.
type Consumer interface {
	// Connect устанавливает соединение с брокером
	Connect(ctx context.Context) error

	// Close закрывает соединение с брокером
	Close() error

	// Receive получает следующее сообщение.
	// Блокирующий вызов - ждет пока не придет сообщение или не истечет timeout
	Receive(ctx context.Context) ([]byte, error)

	// Ack подтверждает последнее полученное сообщение
	Ack(ctx context.Context) error

	// Nack отклоняет последнее полученное сообщение.
	// requeue = true возвращает его в очередь для повторной доставки.
	Nack(ctx context.Context, requeue bool) error

	// Ping проверяет доступность брокера
	Ping(ctx context.Context) error

	// Type возвращает тип брокера (rabbitmq, kafka)
	Type() string
}

// Publisher отправляет сообщения (используется для dead letter очереди)
type Publisher interface {
	Send(ctx context.Context, message []byte) error
}

// Broker объединяет получение и отправку
type Broker interface {
	Consumer
	Publisher
}

// Config содержит параметры подключения к message broker
type Config struct {
	Type     string `yaml:"type"`     // rabbitmq, kafka
	Host     string `yaml:"host"`     // Хост (для RabbitMQ)
	Port     int    `yaml:"port"`     // Порт (для RabbitMQ)
	User     string `yaml:"user"`     // Пользователь (для RabbitMQ)
	Password string `yaml:"password"` // Пароль (для RabbitMQ)
	Queue    string `yaml:"queue"`    // Имя очереди (для RabbitMQ)
	VHost    string `yaml:"vhost"`    // Virtual host (для RabbitMQ, по умолчанию "/")
	UseTLS   bool   `yaml:"use_tls"`  // Использовать TLS/SSL (amqps://) для RabbitMQ

	// RabbitMQ параметры очереди (ВАЖНО: должны совпадать с существующей очередью!)
	Durable    bool `yaml:"durable"`     // Очередь переживает перезапуск RabbitMQ
	AutoDelete bool `yaml:"auto_delete"` // Очередь удаляется когда нет consumer'ов
	Exclusive  bool `yaml:"exclusive"`   // Очередь доступна только одному соединению

	// Kafka специфичные параметры
	Brokers       []string `yaml:"brokers"`        // Список Kafka brokers (например: ["localhost:9092"])
	Topic         string   `yaml:"topic"`          // Имя Kafka topic
	ConsumerGroup string   `yaml:"consumer_group"` // Consumer group ID (по умолчанию "normalizer")
}

// New создает Broker на основе конфигурации
func New(cfg Config) (Broker, error) {
	switch cfg.Type {
	case "rabbitmq":
		return NewRabbitMQ(cfg)
	case "kafka":
		return NewKafka(cfg)
	default:
		return nil, fmt.Errorf("unsupported broker type: %s (supported: rabbitmq, kafka)", cfg.Type)
	}
}
