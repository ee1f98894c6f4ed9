package worker

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketName(t *testing.T) {
	tests := map[string]struct {
		prefix    string
		container string
		expected  string
	}{
		"default container":  {container: "Picture", expected: "picture"},
		"declared container": {container: "storebench_tiny", expected: "storebench-tiny"},
		"with prefix":        {prefix: "Run1_", container: "Video", expected: "run1-video"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, BucketName(tc.prefix, tc.container))
		})
	}
}

func TestPatternReader(t *testing.T) {
	b, err := io.ReadAll(newPatternReader(100))
	require.NoError(t, err)
	assert.Len(t, b, 100)
	assert.NotContains(t, string(b), "\x00")
	assert.True(t, strings.HasPrefix(string(b), patternAlphabet))

	again, err := io.ReadAll(newPatternReader(100))
	require.NoError(t, err)
	assert.Equal(t, b, again)

	empty, err := io.ReadAll(newPatternReader(0))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.PutObject(ctx, "Audio", "PA000001", 10)
	assert.True(t, errors.Is(err, ErrNoSuchContainer))

	_, err = store.CreateContainer(ctx, "Audio")
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"Audio": {}}, store.Snapshot())

	put, err := store.PutObject(ctx, "Audio", "PA000001", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(10), put.Bytes)
	assert.Equal(t, map[string][]string{"Audio": {"PA000001"}}, store.Snapshot())
	assert.NotEmpty(t, put.TransID)

	get, err := store.GetObject(ctx, "Audio", "PA000001")
	require.NoError(t, err)
	assert.Equal(t, int64(10), get.Bytes)
	assert.NotEqual(t, put.TransID, get.TransID)

	_, err = store.DeleteContainer(ctx, "Audio")
	assert.Error(t, err, "non-empty containers cannot be deleted")

	_, err = store.DeleteObject(ctx, "Audio", "PA000001")
	require.NoError(t, err)
	_, err = store.GetObject(ctx, "Audio", "PA000001")
	assert.True(t, errors.Is(err, ErrNoSuchObject))

	_, err = store.DeleteContainer(ctx, "Audio")
	require.NoError(t, err)
	assert.Empty(t, store.Snapshot())
}
