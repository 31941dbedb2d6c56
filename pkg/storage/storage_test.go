package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanKey(t *testing.T) {
	tests := []struct {
		key      string
		expected string
		err      error
	}{
		{key: "avatar.webp", expected: "avatar.webp"},
		{key: "/team/alice.png", expected: "team/alice.png"},
		{key: "team//bob.jpg", expected: "team/bob.jpg"},
		{key: "../../etc/passwd", expected: "etc/passwd"},
		{key: `team\carol.png`, expected: "team/carol.png"},
		{key: "team/.hidden.png", err: ErrInvalidKey},
		{key: ".git/config", err: ErrInvalidKey},
		{key: "", err: ErrInvalidKey},
		{key: "/", err: ErrInvalidKey},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			res, err := CleanKey(tt.key)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, res)
		})
	}
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/jpeg", ContentType("a/b.JPG"))
	assert.Equal(t, "image/jpeg", ContentType("a.jpeg"))
	assert.Equal(t, "image/png", ContentType("a_debug.png"))
	assert.Equal(t, "image/webp", ContentType("a.webp"))
	assert.Equal(t, "application/json", ContentType("report.json"))
	assert.Equal(t, "application/octet-stream", ContentType("noext"))
}
