package alloc

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeClass_Boundaries(t *testing.T) {
	tests := []struct {
		size int
		want int
	}{
		{0, 0}, {15, 0}, {16, 1}, {31, 1}, {32, 2}, {63, 2},
		{64, 3}, {127, 3}, {128, 4}, {255, 4}, {256, 5}, {511, 5},
		{512, 6}, {1023, 6}, {1024, 7}, {2047, 7}, {2048, 8}, {4095, 8},
		{4096, 9}, {1 << 20, 9},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SizeClass(tt.size), "size %d", tt.size)
	}
}

func TestHistogram_AddAndRender(t *testing.T) {
	var h Histogram
	for _, size := range []int{16, 32, 1024, 1024} {
		h.Add(size)
	}
	assert.Equal(t, uint64(4), h.Total())
	assert.Equal(t, uint64(2), h[7])

	var buf bytes.Buffer
	_, err := h.WriteTo(&buf)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, NumClasses)
	assert.Equal(t, "  1-2KB    : 2", lines[7])
	assert.Equal(t, "  <16B     : 0", lines[0])
}

func TestClassLabel_OutOfRange(t *testing.T) {
	assert.Equal(t, "?", ClassLabel(-1))
	assert.Equal(t, ">=4KB", ClassLabel(9))
}
