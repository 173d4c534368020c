package storage

import "time"

// URLOption configures URL generation.
type URLOption func(*urlOptions)

type urlOptions struct {
	downloadName string
	expiry       time.Duration
	public       bool
}

// DefaultURLExpiry is the lifetime of signed URLs.
const DefaultURLExpiry = 15 * time.Minute

// WithExpiry sets the lifetime of a signed URL. Non-positive values keep the default.
func WithExpiry(d time.Duration) URLOption {
	return func(o *urlOptions) {
		if d > 0 {
			o.expiry = d
		}
	}
}

// WithDownload signs the URL with Content-Disposition: attachment and the given filename.
func WithDownload(filename string) URLOption {
	return func(o *urlOptions) {
		o.downloadName = filename
		o.public = false
	}
}

// WithPublic returns an unsigned URL. It only resolves for objects stored
// with ACLPublicRead or buckets with public access.
func WithPublic() URLOption {
	return func(o *urlOptions) {
		o.public = true
	}
}
