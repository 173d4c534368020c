package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// memFile describes a file part served by memRequest.
type memFile struct {
	name  string
	field string
	mime  string
	data  []byte
	// block makes reads wait until the part is cancelled.
	block bool
}

func textFile(name, content string) memFile {
	return memFile{name: name, field: "file", mime: "text/plain", data: []byte(content)}
}

// memRequest is an in-memory Request used to drive Process in tests.
type memRequest struct {
	disconnected chan struct{}
	release      chan struct{}
	contentType  string
	files        []memFile
	parts        []*memPart
	// stallAt makes NextPart block once this many parts were returned (-1: never).
	stallAt    int
	// eofDelay holds back the final io.EOF, as a body whose closing boundary is late.
	eofDelay   time.Duration
	mu         sync.Mutex
	closed     atomic.Bool
	disabled   bool
	nextErrAt  int
	nextErr    error
	closeOnce  sync.Once
	releaseOne sync.Once
}

func newMemRequest(files ...memFile) *memRequest {
	return &memRequest{
		contentType:  "multipart/form-data; boundary=test",
		files:        files,
		disconnected: make(chan struct{}),
		release:      make(chan struct{}),
		stallAt:      -1,
		nextErrAt:    -1,
	}
}

func (r *memRequest) MultipartEnabled() bool        { return !r.disabled }
func (r *memRequest) ContentType() string           { return r.contentType }
func (r *memRequest) Disconnected() <-chan struct{} { return r.disconnected }

func (r *memRequest) Multipart(limits Limits) (PartReader, error) {
	return &memReader{req: r, limits: limits}, nil
}

func (r *memRequest) disconnect() {
	r.closeOnce.Do(func() { close(r.disconnected) })
}

func (r *memRequest) part(i int) *memPart {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i >= len(r.parts) {
		return nil
	}
	return r.parts[i]
}

type memReader struct {
	req    *memRequest
	limits Limits
	next   int
	files  int
}

func (mr *memReader) NextPart() (Part, error) {
	r := mr.req
	if r.stallAt >= 0 && mr.next >= r.stallAt {
		<-r.release
		return nil, io.ErrUnexpectedEOF
	}
	if r.nextErrAt >= 0 && mr.next == r.nextErrAt {
		mr.next++
		return nil, r.nextErr
	}
	if mr.next >= len(r.files) {
		time.Sleep(r.eofDelay)
		return nil, io.EOF
	}

	f := r.files[mr.next]
	mr.next++
	mr.files++
	if mr.limits.MaxFiles > 0 && mr.files > mr.limits.MaxFiles {
		return nil, ErrFilesLimit
	}

	p := newMemPart(f, mr.limits.MaxFileSize)
	r.mu.Lock()
	r.parts = append(r.parts, p)
	r.mu.Unlock()
	return p, nil
}

func (mr *memReader) Close() error {
	mr.req.closed.Store(true)
	mr.req.releaseOne.Do(func() { close(mr.req.release) })
	return nil
}

// memPart mirrors httpPart: size-limited, truncation-aware and cancellable.
type memPart struct {
	src       *bytes.Reader
	cause     error
	cancelled chan struct{}
	file      memFile
	remaining int64
	read      atomic.Int64
	mu        sync.Mutex
	truncated bool
}

func newMemPart(f memFile, maxSize int64) *memPart {
	if maxSize <= 0 {
		maxSize = math.MaxInt64
	}
	return &memPart{
		src:       bytes.NewReader(f.data),
		file:      f,
		remaining: maxSize,
		cancelled: make(chan struct{}),
	}
}

func (p *memPart) Header() PartHeader {
	return PartHeader{FileName: p.file.name, FieldName: p.file.field, ContentType: p.file.mime, Encoding: "7bit"}
}

func (p *memPart) Read(b []byte) (int, error) {
	if p.file.block {
		<-p.cancelled
	}
	if err := p.err(); err != nil {
		return 0, err
	}
	if p.remaining <= 0 {
		if p.src.Len() > 0 {
			p.truncated = true
		}
		return 0, io.EOF
	}
	if int64(len(b)) > p.remaining {
		b = b[:p.remaining]
	}
	n, err := p.src.Read(b)
	p.remaining -= int64(n)
	p.read.Add(int64(n))
	return n, err
}

func (p *memPart) Truncated() bool { return p.truncated }

func (p *memPart) Cancel(cause error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cause != nil {
		return
	}
	if cause == nil {
		cause = ErrPartCancelled
	}
	p.cause = cause
	close(p.cancelled)
}

func (p *memPart) Cancelled() bool { return p.err() != nil }

func (p *memPart) err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cause
}

// cleanupCounter records how many times each file's cleanup ran.
type cleanupCounter struct {
	counts map[int]int
	events []string
	mu     sync.Mutex
}

func newCleanupCounter() *cleanupCounter {
	return &cleanupCounter{counts: map[int]int{}}
}

func (c *cleanupCounter) handler(index int) CleanupFunc {
	return func(context.Context, Reason, map[string]any) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.counts[index]++
		c.events = append(c.events, "cleanup")
		return nil
	}
}

func (c *cleanupCounter) count(index int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[index]
}

func (c *cleanupCounter) record(event string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *cleanupCounter) log() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.events...)
}

// readAllProcessor reads the whole stream, registers a cleanup and returns the content.
func readAllProcessor(counter *cleanupCounter) ProcessorFunc[string] {
	return func(_ context.Context, r io.Reader, meta FileMetadata, pc *ProcessorContext) (string, error) {
		data, err := io.ReadAll(r)
		if err != nil {
			return "", err
		}
		pc.OnCleanup(counter.handler(meta.Index))
		return string(data), nil
	}
}

var errBoom = errors.New("boom")
