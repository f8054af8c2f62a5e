// Package media stores image blobs that arrive inline as data-URIs. When a
// store is configured the services decode the data-URI, put the bytes here
// and persist the returned URL instead of megabytes of base64 inside a
// collection. With no store configured data-URIs stay inline.
package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
)

// Store persists an image blob and returns a stable URL for it.
type Store interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// Extensions by content type for generated object keys.
var extensions = map[string]string{
	"image/jpeg":    ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
}

// ExtensionFor returns the file extension for a content type, defaulting
// to .bin for unknown types.
func ExtensionFor(contentType string) string {
	if ext, ok := extensions[contentType]; ok {
		return ext
	}
	return ".bin"
}

// IsDataURI reports whether v looks like an inline data-URI.
func IsDataURI(v string) bool {
	return strings.HasPrefix(v, "data:")
}

// DecodeDataURI splits a base64 data-URI into its content type and bytes.
func DecodeDataURI(v string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(v, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data-URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data-URI: missing payload")
	}
	contentType, _, _ := strings.Cut(meta, ";")
	if !strings.Contains(meta, "base64") {
		return "", nil, fmt.Errorf("unsupported data-URI encoding")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode data-URI payload: %w", err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return contentType, data, nil
}
