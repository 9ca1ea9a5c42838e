package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Op - запись журнала операций MemoryStore
type Op struct {
	Name      string // get, put, copy, delete
	Container string
	Key       string
}

// MemoryStore - ObjectStore в памяти. Ведет журнал операций и позволяет
// заранее задать ошибку для конкретной операции.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string]map[string]Object
	ops     []Op
	faults  map[Op]error
}

// NewMemoryStore создает пустое хранилище
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]map[string]Object),
		faults:  make(map[Op]error),
	}
}

// Fail задает ошибку для операции op над container/key.
// Для copy ключ - адрес назначения.
func (m *MemoryStore) Fail(op, container, key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults[Op{Name: op, Container: container, Key: key}] = err
}

// Seed помещает объект без записи в журнал
func (m *MemoryStore) Seed(container, key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(container, key, Object{Data: append([]byte(nil), data...)})
}

// Object возвращает объект, если он есть
func (m *MemoryStore) Object(container, key string) (Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[container][key]
	return obj, ok
}

// Keys возвращает отсортированные ключи контейнера
func (m *MemoryStore) Keys(container string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects[container]))
	for k := range m.objects[container] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Ops возвращает копию журнала операций
func (m *MemoryStore) Ops() []Op {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Op(nil), m.ops...)
}

// Get читает объект
func (m *MemoryStore) Get(ctx context.Context, container, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(ctx, "get", container, key); err != nil {
		return nil, err
	}
	obj, ok := m.objects[container][key]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, container, key)
	}
	return append([]byte(nil), obj.Data...), nil
}

// Put записывает объект
func (m *MemoryStore) Put(ctx context.Context, container, key string, obj Object) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(ctx, "put", container, key); err != nil {
		return err
	}
	obj.Data = append([]byte(nil), obj.Data...)
	m.put(container, key, obj)
	return nil
}

// Copy копирует объект
func (m *MemoryStore) Copy(ctx context.Context, srcContainer, srcKey, dstContainer, dstKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(ctx, "copy", dstContainer, dstKey); err != nil {
		return err
	}
	obj, ok := m.objects[srcContainer][srcKey]
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, srcContainer, srcKey)
	}
	m.put(dstContainer, dstKey, obj)
	return nil
}

// Delete удаляет объект
func (m *MemoryStore) Delete(ctx context.Context, container, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(ctx, "delete", container, key); err != nil {
		return err
	}
	if _, ok := m.objects[container][key]; !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, container, key)
	}
	delete(m.objects[container], key)
	return nil
}

func (m *MemoryStore) record(ctx context.Context, name, container, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	op := Op{Name: name, Container: container, Key: key}
	m.ops = append(m.ops, op)
	return m.faults[op]
}

func (m *MemoryStore) put(container, key string, obj Object) {
	if m.objects[container] == nil {
		m.objects[container] = make(map[string]Object)
	}
	m.objects[container][key] = obj
}
