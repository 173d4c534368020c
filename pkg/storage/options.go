package storage

import "maps"

// Option configures Put operations.
type Option func(*putOptions)

type putOptions struct {
	metadata    map[string]string
	key         string
	prefix      string
	tenant      string
	contentType string
	acl         ACL
}

func newPutOptions(acl ACL, opts []Option) *putOptions {
	o := &putOptions{acl: acl}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithKey sets an explicit storage key instead of a generated one.
func WithKey(key string) Option {
	return func(o *putOptions) {
		o.key = key
	}
}

// WithPrefix places the object under prefix, after the tenant segment.
// Example: WithPrefix("avatars") results in "avatars/{uuid}.{ext}"
func WithPrefix(prefix string) Option {
	return func(o *putOptions) {
		o.prefix = prefix
	}
}

// WithTenant makes the tenant ID the first path segment.
func WithTenant(id string) Option {
	return func(o *putOptions) {
		o.tenant = id
	}
}

// WithContentType overrides the type detected from the content.
func WithContentType(ct string) Option {
	return func(o *putOptions) {
		o.contentType = ct
	}
}

// WithACL overrides the default ACL for this upload.
func WithACL(acl ACL) Option {
	return func(o *putOptions) {
		o.acl = acl
	}
}

// WithMetadata attaches user metadata to the stored object.
// Repeated calls merge; later values win.
func WithMetadata(md map[string]string) Option {
	return func(o *putOptions) {
		if o.metadata == nil {
			o.metadata = make(map[string]string, len(md))
		}
		maps.Copy(o.metadata, md)
	}
}
