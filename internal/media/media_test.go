package media

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDataURI(t *testing.T) {
	payload := []byte{0x89, 0x50, 0x4e, 0x47}
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(payload)

	contentType, data, err := DecodeDataURI(uri)
	require.NoError(t, err)
	assert.Equal(t, "image/png", contentType)
	assert.Equal(t, payload, data)
}

func TestDecodeDataURIRejectsMalformedInput(t *testing.T) {
	for _, uri := range []string{
		"https://example.com/a.png",
		"data:image/png;base64",
		"data:image/png,plain-not-base64-marker",
		"data:image/png;base64,!!!",
	} {
		_, _, err := DecodeDataURI(uri)
		assert.Error(t, err, uri)
	}
}

func TestIsDataURI(t *testing.T) {
	assert.True(t, IsDataURI("data:image/png;base64,AAAA"))
	assert.False(t, IsDataURI("https://example.com/pic.png"))
	assert.False(t, IsDataURI(""))
}

func TestLocalStorePut(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "http://localhost/media")
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "abc", "image/png", []byte("blob"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost/media/abc.png", url)

	data, err := os.ReadFile(filepath.Join(dir, "abc.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("blob"), data)
}

func TestLocalStorePutWithoutBaseURL(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "")
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "abc", "image/jpeg", []byte("blob"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "file://"))
	assert.True(t, strings.HasSuffix(url, "abc.jpg"))
}
