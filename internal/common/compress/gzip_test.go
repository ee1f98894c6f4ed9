package compress

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsGzipPath(t *testing.T) {
	assert.True(t, IsGzipPath("results.log.gz"))
	assert.True(t, IsGzipPath("RESULTS.GZ"))
	assert.False(t, IsGzipPath("results.log"))
	assert.False(t, IsGzipPath("results.gzip"))
}

func TestCompressAndDecompressGiveOriginalValue(t *testing.T) {
	for _, compressed := range []bool{true, false} {
		var buf bytes.Buffer
		w, err := NewWriter(&buf, compressed)
		require.NoError(t, err)
		_, err = w.Write([]byte("some test values"))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		r, closer, err := NewReader(&buf, compressed)
		require.NoError(t, err)
		out, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.NoError(t, closer.Close())
		assert.Equal(t, "some test values", string(out))
	}
}
