package storage

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtFromMIME(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mimeType string
		want     string
	}{
		{"jpeg", "image/jpeg", ".jpg"},
		{"png", "image/png", ".png"},
		{"pdf", "application/pdf", ".pdf"},
		{"json", "application/json", ".json"},
		{"mp4", "video/mp4", ".mp4"},
		{"mp3", "audio/mpeg", ".mp3"},
		{"unknown", "application/unknown", ""},
		{"empty", "", ""},
		{"with charset", "text/plain; charset=utf-8", ".txt"},
		{"uppercase", "IMAGE/JPEG", ".jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, ExtFromMIME(tt.mimeType))
		})
	}
}

func TestDetectMIME(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content []byte
		want    string
	}{
		{"png magic bytes", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"jpeg magic bytes", []byte{0xFF, 0xD8, 0xFF, 0xE0}, "image/jpeg"},
		{"pdf magic bytes", []byte("%PDF-1.7"), "application/pdf"},
		{"plain text", []byte("Hello, World!"), "text/plain; charset=utf-8"},
		{"empty", nil, MIMEOctetStream},
		{"long input", append([]byte("%PDF-"), bytes.Repeat([]byte{'x'}, 4096)...), "application/pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, DetectMIME(tt.content))
		})
	}
}

func TestBufferBody(t *testing.T) {
	t.Parallel()

	t.Run("within limit", func(t *testing.T) {
		t.Parallel()
		body, err := bufferBody(strings.NewReader("12345"), 5)
		require.NoError(t, err)
		require.Equal(t, int64(5), body.Size())
	})

	t.Run("over limit", func(t *testing.T) {
		t.Parallel()
		_, err := bufferBody(strings.NewReader("123456"), 5)
		require.ErrorIs(t, err, ErrObjectTooLarge)
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		_, err := bufferBody(strings.NewReader(""), 5)
		require.ErrorIs(t, err, ErrEmptyFile)
	})
}
