package upload

import (
	"errors"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultMaxFieldSize bounds a form field when Limits.MaxFieldSize is zero.
const DefaultMaxFieldSize int64 = 1 << 20

// HTTPRequest adapts a net/http request to the Request interface.
type HTTPRequest struct {
	r                *http.Request
	rc               *http.ResponseController
	fields           url.Values
	mu               sync.Mutex
	multipartEnabled bool
}

// HTTPOption configures an HTTPRequest.
type HTTPOption func(*HTTPRequest)

// WithMultipart toggles the host multipart capability. Enabled by default.
func WithMultipart(enabled bool) HTTPOption {
	return func(h *HTTPRequest) {
		h.multipartEnabled = enabled
	}
}

// NewHTTPRequest wraps r. The response writer is used to interrupt blocked body
// reads when a part is cancelled; it may be nil, in which case cancellation only
// takes effect at the next read.
func NewHTTPRequest(w http.ResponseWriter, r *http.Request, opts ...HTTPOption) *HTTPRequest {
	h := &HTTPRequest{
		r:                r,
		fields:           url.Values{},
		multipartEnabled: true,
	}
	if w != nil {
		h.rc = http.NewResponseController(w)
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// MultipartEnabled implements Request.
func (h *HTTPRequest) MultipartEnabled() bool {
	return h.multipartEnabled
}

// ContentType implements Request.
func (h *HTTPRequest) ContentType() string {
	return h.r.Header.Get("Content-Type")
}

// Disconnected implements Request. net/http cancels the request context
// when the client connection closes.
func (h *HTTPRequest) Disconnected() <-chan struct{} {
	return h.r.Context().Done()
}

// Multipart implements Request.
func (h *HTTPRequest) Multipart(limits Limits) (PartReader, error) {
	if !h.multipartEnabled {
		return nil, ErrMultipartDisabled
	}
	mr, err := h.r.MultipartReader()
	if err != nil {
		return nil, err
	}
	return &httpPartReader{req: h, mr: mr, limits: limits}, nil
}

// Fields returns the non-file form fields seen so far.
// Fields that arrive after a file part are only visible once that part was consumed.
func (h *HTTPRequest) Fields() url.Values {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(url.Values, len(h.fields))
	for k, v := range h.fields {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func (h *HTTPRequest) addField(name, value string) {
	h.mu.Lock()
	h.fields.Add(name, value)
	h.mu.Unlock()
}

// interrupt unblocks a pending body read by expiring the read deadline.
func (h *HTTPRequest) interrupt() {
	if h.rc != nil {
		_ = h.rc.SetReadDeadline(time.Now())
	}
}

type httpPartReader struct {
	req    *HTTPRequest
	mr     *multipart.Reader
	limits Limits
	files  int
	fields int
}

// NextPart implements PartReader. Form fields are consumed internally.
func (pr *httpPartReader) NextPart() (Part, error) {
	for {
		p, err := pr.mr.NextPart()
		if err != nil {
			return nil, err
		}

		if p.FileName() == "" {
			pr.readField(p)
			continue
		}

		pr.files++
		if pr.limits.MaxFiles > 0 && pr.files > pr.limits.MaxFiles {
			return nil, ErrFilesLimit
		}
		return newHTTPPart(p, pr.limits.MaxFileSize, pr.req.interrupt), nil
	}
}

// Close interrupts a NextPart blocked on the request body. The request body
// cannot be read afterwards.
func (pr *httpPartReader) Close() error {
	pr.req.interrupt()
	return nil
}

// readField stores a form field; fields beyond MaxFields are skipped.
func (pr *httpPartReader) readField(p *multipart.Part) {
	pr.fields++
	if pr.limits.MaxFields > 0 && pr.fields > pr.limits.MaxFields {
		return
	}

	limit := pr.limits.MaxFieldSize
	if limit <= 0 {
		limit = DefaultMaxFieldSize
	}

	var b strings.Builder
	if _, err := io.Copy(&b, io.LimitReader(p, limit)); err != nil {
		return
	}
	pr.req.addField(p.FormName(), b.String())
}

// httpPart is a size-limited, cancellable view of a multipart file part.
type httpPart struct {
	part      *multipart.Part
	cause     error
	interrupt func()
	remaining int64
	mu        sync.Mutex
	inFlight  atomic.Bool
	truncated bool
}

func newHTTPPart(p *multipart.Part, maxSize int64, interrupt func()) *httpPart {
	if maxSize <= 0 {
		maxSize = math.MaxInt64
	}
	return &httpPart{part: p, remaining: maxSize, interrupt: interrupt}
}

// Header implements Part.
func (p *httpPart) Header() PartHeader {
	encoding := p.part.Header.Get("Content-Transfer-Encoding")
	if encoding == "" {
		encoding = "7bit"
	}
	return PartHeader{
		FileName:    p.part.FileName(),
		FieldName:   p.part.FormName(),
		ContentType: p.part.Header.Get("Content-Type"),
		Encoding:    encoding,
	}
}

// Read implements io.Reader. At the size ceiling it reads one more byte;
// if data remains the part is flagged truncated and reports EOF.
func (p *httpPart) Read(b []byte) (int, error) {
	// Set before the cancellation check: a concurrent Cancel is either seen
	// below or finds the read in flight and interrupts it.
	p.inFlight.Store(true)
	defer p.inFlight.Store(false)

	if err := p.cancelled(); err != nil {
		return 0, err
	}

	if p.remaining <= 0 {
		if p.truncated {
			return 0, io.EOF
		}
		var extra [1]byte
		n, err := p.readRaw(extra[:])
		if n > 0 {
			p.truncated = true
			return 0, io.EOF
		}
		return 0, err
	}

	if int64(len(b)) > p.remaining {
		b = b[:p.remaining]
	}
	n, err := p.readRaw(b)
	p.remaining -= int64(n)
	return n, err
}

func (p *httpPart) readRaw(b []byte) (int, error) {
	n, err := p.part.Read(b)

	if err != nil && !errors.Is(err, io.EOF) {
		if cause := p.cancelled(); cause != nil {
			return n, cause
		}
	}
	return n, err
}

// Truncated implements Part.
func (p *httpPart) Truncated() bool {
	return p.truncated
}

// Cancel implements Cancellable.
func (p *httpPart) Cancel(cause error) {
	if cause == nil {
		cause = ErrPartCancelled
	}

	p.mu.Lock()
	if p.cause != nil {
		p.mu.Unlock()
		return
	}
	p.cause = cause
	p.mu.Unlock()

	if p.inFlight.Load() && p.interrupt != nil {
		p.interrupt()
	}
}

// Cancelled implements Cancellable.
func (p *httpPart) Cancelled() bool {
	return p.cancelled() != nil
}

func (p *httpPart) cancelled() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cause
}
