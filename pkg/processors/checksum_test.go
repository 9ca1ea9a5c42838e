package processors

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestComputeChecksum(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"match list", []byte(`[{"date":"2024-01-01","winner":"D"}]`)},
		{"csv", []byte(",date,winner\n0,2024-01-01,<draw>\n")},
		{"large", []byte(strings.Repeat("x", 10000))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sum := ComputeChecksum(tt.data)
			if len(sum) != 16 {
				t.Errorf("len = %d, want 16", len(sum))
			}
			if again := ComputeChecksum(tt.data); again != sum {
				t.Errorf("not stable: %s != %s", sum, again)
			}

			streamed, n, err := ChecksumReader(bytes.NewReader(tt.data))
			if err != nil {
				t.Fatalf("ChecksumReader() error = %v", err)
			}
			if streamed != sum || n != int64(len(tt.data)) {
				t.Errorf("ChecksumReader() = %s, %d; want %s, %d", streamed, n, sum, len(tt.data))
			}

			if len(tt.data) > 0 {
				flipped := bytes.Clone(tt.data)
				flipped[0] ^= 0xFF
				if ComputeChecksum(flipped) == sum {
					t.Error("checksum unchanged after modification")
				}
			}
		})
	}
}

func TestVerifyChecksum(t *testing.T) {
	data := []byte(`{"matches": []}`)
	sum := ComputeChecksum(data)

	if err := VerifyChecksum(data, strings.ToUpper(sum)); err != nil {
		t.Errorf("VerifyChecksum() error = %v", err)
	}
	if err := VerifyChecksum([]byte(`{"matches": [1]}`), sum); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("VerifyChecksum() error = %v, want ErrChecksumMismatch", err)
	}
}
