package storage

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	MIMEOctetStream    = "application/octet-stream"
	mimeDetectionBytes = 512 // http.DetectContentType looks at no more than 512 bytes
)

// DefaultExt is used for keys of objects whose type has no known extension.
const DefaultExt = ".bin"

var mimeExtensions = map[string]string{
	// Images
	"image/jpeg":    ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
	"image/bmp":     ".bmp",
	"image/tiff":    ".tiff",
	"image/x-icon":  ".ico",
	"image/heic":    ".heic",
	"image/avif":    ".avif",
	// Documents
	"application/pdf": ".pdf",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       ".xlsx",
	"text/plain":      ".txt",
	"text/csv":        ".csv",
	"text/html":       ".html",
	"application/rtf": ".rtf",
	// Data
	"application/json": ".json",
	"application/xml":  ".xml",
	// Media
	"video/mp4":  ".mp4",
	"video/webm": ".webm",
	"audio/mpeg": ".mp3",
	"audio/wav":  ".wav",
	"audio/ogg":  ".ogg",
	// Archives
	"application/zip":             ".zip",
	"application/gzip":            ".gz",
	"application/x-tar":           ".tar",
	"application/x-7z-compressed": ".7z",
}

// ExtFromMIME returns the preferred extension for a MIME type, or "" if unknown.
func ExtFromMIME(mimeType string) string {
	return mimeExtensions[normalizeMIME(mimeType)]
}

// DetectMIME sniffs the content type from the leading bytes of data.
func DetectMIME(data []byte) string {
	if len(data) == 0 {
		return MIMEOctetStream
	}
	return http.DetectContentType(data[:min(len(data), mimeDetectionBytes)])
}

// bufferBody reads r fully into memory, failing once more than limit bytes arrive.
// AWS SDK v2 needs a seekable body with a known length to sign the payload.
func bufferBody(r io.Reader, limit int64) (*bytes.Reader, error) {
	var buf bytes.Buffer
	n, err := buf.ReadFrom(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}
	if n > limit {
		return nil, ErrObjectTooLarge
	}
	if n == 0 {
		return nil, ErrEmptyFile
	}
	return bytes.NewReader(buf.Bytes()), nil
}

// normalizeMIME returns the lowercase base type without parameters.
func normalizeMIME(mimeType string) string {
	mimeType, _, _ = strings.Cut(mimeType, ";")
	return strings.TrimSpace(strings.ToLower(mimeType))
}
