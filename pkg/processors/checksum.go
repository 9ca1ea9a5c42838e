package processors

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/zeebo/xxh3"
)

// ErrChecksumMismatch - содержимое не совпадает с ожидаемой суммой
var ErrChecksumMismatch = errors.New("checksum mismatch")

// ComputeChecksum возвращает xxh3-64 от data в виде 16 hex символов.
// Сумма сырого JSON попадает в отчет прогона, сумма CSV в WriteResult.
func ComputeChecksum(data []byte) string {
	return formatChecksum(xxh3.Hash(data))
}

// ChecksumReader считает ту же сумму по потоку
func ChecksumReader(r io.Reader) (string, int64, error) {
	h := xxh3.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, err
	}
	return formatChecksum(h.Sum64()), n, nil
}

// VerifyChecksum сравнивает сумму data с expected без учета регистра
func VerifyChecksum(data []byte, expected string) error {
	if actual := ComputeChecksum(data); !strings.EqualFold(actual, expected) {
		return fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, expected, actual)
	}
	return nil
}

func formatChecksum(sum uint64) string {
	return fmt.Sprintf("%016x", sum)
}
