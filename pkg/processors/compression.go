// File: pkg/processors/compression.go

package processors

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Поддерживаемые алгоритмы сжатия выходного файла
const (
	CompressionNone = ""
	CompressionZstd = "zstd"
)

// CompressionExtension возвращает суффикс ключа для алгоритма сжатия
func CompressionExtension(algorithm string) string {
	if algorithm == CompressionZstd {
		return ".zst"
	}
	return ""
}

// Compressor сжимает данные с помощью zstd.
type Compressor struct {
	encoder *zstd.Encoder
}

// NewCompressor создает новый, готовый к использованию компрессор.
// level: 1 (самый быстрый) - 22 (лучшее сжатие). Уровень 3 является хорошим балансом по умолчанию.
func NewCompressor(level int) (*Compressor, error) {
	if level <= 0 {
		level = 3
	}

	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}

	return &Compressor{encoder: encoder}, nil
}

// Compress сжимает блок данных целиком
func (c *Compressor) Compress(input []byte) []byte {
	if len(input) == 0 {
		return nil
	}
	return c.encoder.EncodeAll(input, nil)
}

// Close освобождает ресурсы, связанные с энкодером.
func (c *Compressor) Close() {
	if c.encoder != nil {
		c.encoder.Close()
	}
}

// Decompress распаковывает zstd блок
func Decompress(input []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer decoder.Close()

	out, err := decoder.DecodeAll(input, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress: %w", err)
	}
	return out, nil
}
