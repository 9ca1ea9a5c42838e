package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ruslano69/match-normalizer/pkg/processors"
	"github.com/ruslano69/match-normalizer/pkg/table"
)

// Ключи метаданных записываемых объектов
const (
	MetaChecksum    = "checksum-xxh3"
	MetaCompression = "compression"
)

// GatewayOptions настраивает запись таблиц
type GatewayOptions struct {
	Compression      string // "" или "zstd"
	CompressionLevel int    // 1-22, по умолчанию 3
}

// Gateway реализует Storage поверх ObjectStore
type Gateway struct {
	store   ObjectStore
	options GatewayOptions
}

// NewGateway создает новый gateway
func NewGateway(store ObjectStore, options GatewayOptions) (*Gateway, error) {
	switch options.Compression {
	case processors.CompressionNone, processors.CompressionZstd:
	default:
		return nil, fmt.Errorf("unsupported compression '%s'", options.Compression)
	}
	return &Gateway{store: store, options: options}, nil
}

// ReadJSON читает объект и разбирает JSON
func (g *Gateway) ReadJSON(ctx context.Context, container, key string) (any, []byte, error) {
	data, err := g.store.Get(ctx, container, key)
	if err != nil {
		return nil, nil, &ReadError{Container: container, Key: key, Err: err}
	}

	doc, err := table.DecodeJSON(data)
	if err != nil {
		return nil, nil, &ReadError{Container: container, Key: key, Err: err}
	}

	return doc, data, nil
}

// WriteTable записывает таблицу в CSV (UTF-8, индекс строки первой колонкой)
func (g *Gateway) WriteTable(ctx context.Context, tbl *table.Table, container, key string) (*WriteResult, error) {
	var buf bytes.Buffer
	if err := table.WriteCSV(&buf, tbl); err != nil {
		return nil, &WriteError{Op: "put", Container: container, Key: key, Err: err}
	}

	obj := Object{
		Data:        buf.Bytes(),
		ContentType: "text/csv; charset=utf-8",
		Metadata:    map[string]string{},
	}

	if g.options.Compression == processors.CompressionZstd {
		c, err := processors.NewCompressor(g.options.CompressionLevel)
		if err != nil {
			return nil, &WriteError{Op: "put", Container: container, Key: key, Err: err}
		}
		obj.Data = c.Compress(obj.Data)
		c.Close()
		obj.ContentType = "application/zstd"
		obj.Metadata[MetaCompression] = processors.CompressionZstd
	}

	checksum := processors.ComputeChecksum(obj.Data)
	obj.Metadata[MetaChecksum] = checksum

	if err := g.store.Put(ctx, container, key, obj); err != nil {
		return nil, &WriteError{Op: "put", Container: container, Key: key, Err: err}
	}

	return &WriteResult{
		Container: container,
		Key:       key,
		Bytes:     len(obj.Data),
		Checksum:  checksum,
	}, nil
}

// Copy копирует объект
func (g *Gateway) Copy(ctx context.Context, srcContainer, srcKey, dstContainer, dstKey string) error {
	if err := g.store.Copy(ctx, srcContainer, srcKey, dstContainer, dstKey); err != nil {
		return &WriteError{Op: "copy", Container: dstContainer, Key: dstKey, Err: fmt.Errorf("from %s/%s: %w", srcContainer, srcKey, err)}
	}
	return nil
}

// Delete удаляет объект
func (g *Gateway) Delete(ctx context.Context, container, key string) error {
	if err := g.store.Delete(ctx, container, key); err != nil {
		return &WriteError{Op: "delete", Container: container, Key: key, Err: err}
	}
	return nil
}
