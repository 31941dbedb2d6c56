// Package storage defines where cropped avatars are written.
package storage

import (
	"context"
	"errors"
	"path"
	"strings"
)

// ErrInvalidKey is returned for keys that resolve outside the storage root
// or point at hidden files
var ErrInvalidKey = errors.New("storage: invalid key")

// Storage persists encoded avatars under a key
type Storage interface {
	Put(ctx context.Context, key string, data []byte) error
}

// CleanKey normalizes a key into a slash separated relative path.
// Parent references cannot climb above the root.
func CleanKey(key string) (string, error) {
	key = strings.ReplaceAll(key, "\\", "/")
	cleaned := strings.TrimPrefix(path.Clean("/"+key), "/")
	if cleaned == "" {
		return "", ErrInvalidKey
	}
	for _, part := range strings.Split(cleaned, "/") {
		if strings.HasPrefix(part, ".") {
			return "", ErrInvalidKey
		}
	}
	return cleaned, nil
}

// ContentType returns the MIME type for an avatar key by extension
func ContentType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
