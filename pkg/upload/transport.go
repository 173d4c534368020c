package upload

import (
	"fmt"
	"io"
	"mime"
	"strings"
)

// Request is the transport side of a single upload call.
// It decouples the engine from any HTTP library; see NewHTTPRequest for net/http.
type Request interface {
	// MultipartEnabled reports whether the host can parse multipart bodies.
	MultipartEnabled() bool

	// ContentType returns the raw Content-Type of the request.
	ContentType() string

	// Multipart opens the part iterator for the request body.
	Multipart(limits Limits) (PartReader, error)

	// Disconnected is closed when the client connection goes away.
	// A nil channel means the transport cannot report disconnects.
	Disconnected() <-chan struct{}
}

// PartReader iterates the file parts of a multipart body in arrival order.
// NextPart returns the bare io.EOF when the body is exhausted and ErrFilesLimit
// for each file part beyond Limits.MaxFiles. Any other error, a wrapped io.EOF
// included, means the body ended early.
//
// A PartReader that also implements io.Closer is closed when the upload times
// out or the client disconnects; Close must unblock a pending NextPart.
type PartReader interface {
	NextPart() (Part, error)
}

// Cancellable is implemented by streams the engine may destroy mid-read.
// Cancel must unblock a pending Read; subsequent reads return the cause.
type Cancellable interface {
	Cancel(cause error)
	Cancelled() bool
}

// Part is a single file part of a multipart body.
type Part interface {
	io.Reader
	Cancellable

	// Header returns the declared metadata of the part.
	Header() PartHeader

	// Truncated reports whether the transport cut the stream at Limits.MaxFileSize.
	Truncated() bool
}

// PartHeader is the declared metadata of a file part.
type PartHeader struct {
	FileName    string
	FieldName   string
	ContentType string
	Encoding    string
}

// Limits bounds what a transport accepts from a multipart body.
// Zero means unlimited for every field.
type Limits struct {
	MaxFiles     int
	MaxFileSize  int64
	MaxFields    int
	MaxFieldSize int64
}

// Validate checks that no limit is negative.
func (l Limits) Validate() error {
	switch {
	case l.MaxFiles < 0:
		return fmt.Errorf("%w: max files must not be negative", ErrInvalidConfig)
	case l.MaxFileSize < 0:
		return fmt.Errorf("%w: max file size must not be negative", ErrInvalidConfig)
	case l.MaxFields < 0:
		return fmt.Errorf("%w: max fields must not be negative", ErrInvalidConfig)
	case l.MaxFieldSize < 0:
		return fmt.Errorf("%w: max field size must not be negative", ErrInvalidConfig)
	}
	return nil
}

// IsMultipartFormData reports whether contentType is multipart/form-data with a boundary.
func IsMultipartFormData(contentType string) bool {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.EqualFold(mediaType, "multipart/form-data") && params["boundary"] != ""
}
