package exchange

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashContent(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{
			name:     "empty_content",
			data:     []byte{},
			expected: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
		{
			name:     "simple_text",
			data:     []byte("hello"),
			expected: "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := HashContent(tt.data)
			assert.Equal(t, tt.expected, result)

			_, err := hex.DecodeString(result)
			assert.NoError(t, err)
			assert.Len(t, result, 64)
		})
	}
}

func TestHashContent_DifferentContentDiffers(t *testing.T) {
	a := HashContent([]byte("<NAXML-POSJournal/>"))
	b := HashContent([]byte("<NAXML-POSJournal />"))
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, HashContent([]byte("<NAXML-POSJournal/>")))
}

func BenchmarkHashContent_Large(b *testing.B) {
	data := make([]byte, 1024*1024)
	for i := range data {
		data[i] = byte(i % 256)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		HashContent(data)
	}
}
