// Package events разбирает уведомления об изменении объектов в хранилище
// (формат S3 Event Notification, который также публикуют MinIO и
// S3-совместимые хранилища в Kafka/AMQP).
package events

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/aws/aws-lambda-go/events"
	"github.com/goccy/go-json"
)

// Ошибки разбора события
var (
	ErrEmptyEvent     = errors.New("event contains no records")
	ErrMalformedEvent = errors.New("event record has no bucket name or object key")
)

// ObjectRef указывает на один объект в контейнере
type ObjectRef struct {
	Container string
	Key       string
}

func (o ObjectRef) String() string {
	return o.Container + "/" + o.Key
}

// Parse разбирает тело уведомления
func Parse(data []byte) (events.S3Event, error) {
	var evt events.S3Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return evt, fmt.Errorf("failed to decode S3 event: %w", err)
	}
	return evt, nil
}

// FirstObject возвращает объект из первой записи события.
// Остальные записи не обрабатываются: один вызов - один файл.
func FirstObject(evt events.S3Event) (ObjectRef, error) {
	if len(evt.Records) == 0 {
		return ObjectRef{}, ErrEmptyEvent
	}

	rec := evt.Records[0].S3
	key, err := objectKey(rec.Object)
	if err != nil {
		return ObjectRef{}, err
	}
	if rec.Bucket.Name == "" || key == "" {
		return ObjectRef{}, ErrMalformedEvent
	}

	return ObjectRef{Container: rec.Bucket.Name, Key: key}, nil
}

// Ignored возвращает количество записей события, которые не будут обработаны
func Ignored(evt events.S3Event) int {
	if len(evt.Records) <= 1 {
		return 0
	}
	return len(evt.Records) - 1
}

// objectKey возвращает декодированный ключ объекта.
// В уведомлениях ключ URL-кодирован ("+" вместо пробела).
func objectKey(obj events.S3Object) (string, error) {
	if obj.URLDecodedKey != "" {
		return obj.URLDecodedKey, nil
	}
	if obj.Key == "" {
		return "", nil
	}
	key, err := url.QueryUnescape(obj.Key)
	if err != nil {
		return "", fmt.Errorf("%w: invalid key encoding %q: %v", ErrMalformedEvent, obj.Key, err)
	}
	return key, nil
}
