package storage

import (
	"context"
	"io"
)

// Storage is the object store uploaded files are written to.
type Storage interface {
	// Put streams r into storage. The body is buffered up to Config.MaxObjectSize
	// to compute its length and content type; larger bodies fail with ErrObjectTooLarge.
	Put(ctx context.Context, r io.Reader, opts ...Option) (*FileInfo, error)

	// Get retrieves a file from storage.
	// The caller is responsible for closing the returned reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes a file from storage. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// URL generates a URL for accessing the file.
	URL(ctx context.Context, key string, opts ...URLOption) (string, error)
}

// Config holds S3-compatible storage configuration.
type Config struct {
	Bucket    string `env:"STORAGE_BUCKET,required"`
	AccessKey string `env:"STORAGE_ACCESS_KEY,required"`
	SecretKey string `env:"STORAGE_SECRET_KEY,required"`

	// Endpoint is a custom S3 endpoint URL, e.g. for MinIO.
	Endpoint string `env:"STORAGE_ENDPOINT"`
	Region   string `env:"STORAGE_REGION" envDefault:"us-east-1"`

	// PublicURL is the CDN prefix used for public URLs.
	PublicURL  string `env:"STORAGE_PUBLIC_URL"`
	DefaultACL ACL    `env:"STORAGE_DEFAULT_ACL" envDefault:"private"`

	// PathStyle enables path-style URLs (required for MinIO).
	PathStyle bool `env:"STORAGE_PATH_STYLE" envDefault:"false"`

	// MaxObjectSize caps how much of a stream Put buffers in memory.
	MaxObjectSize int64 `env:"STORAGE_MAX_OBJECT_SIZE" envDefault:"104857600"`
}

// FileInfo contains metadata about a stored file.
type FileInfo struct {
	// Key is the storage key (path) for the file.
	Key string `json:"key"`

	// ContentType is the type detected from the stored bytes.
	ContentType string `json:"content_type"`

	ACL ACL `json:"acl"`

	Size int64 `json:"size"`
}

// ACL represents access control levels for stored files.
type ACL string

const (
	// ACLPrivate makes the file accessible only via signed URLs.
	ACLPrivate ACL = "private"

	// ACLPublicRead makes the file publicly readable.
	ACLPublicRead ACL = "public-read"
)

// Default configuration values.
const (
	DefaultRegion        = "us-east-1"
	DefaultMaxObjectSize = 100 << 20 // 100MB
)

func (c *Config) applyDefaults() {
	if c.Region == "" {
		c.Region = DefaultRegion
	}
	if c.DefaultACL == "" {
		c.DefaultACL = ACLPrivate
	}
	if c.MaxObjectSize <= 0 {
		c.MaxObjectSize = DefaultMaxObjectSize
	}
}

func (c *Config) validate() error {
	if c.Bucket == "" || c.AccessKey == "" || c.SecretKey == "" {
		return ErrInvalidConfig
	}
	switch c.DefaultACL {
	case ACLPrivate, ACLPublicRead:
	default:
		return ErrInvalidConfig
	}
	return nil
}
