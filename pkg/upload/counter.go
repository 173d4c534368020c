package upload

import (
	"io"
	"sync/atomic"
)

// countingReader forwards reads unchanged while counting bytes.
// It never buffers; the count is only used for diagnostics.
type countingReader struct {
	r io.Reader
	n atomic.Int64
}

func newCountingReader(r io.Reader) *countingReader {
	return &countingReader{r: r}
}

// Read implements io.Reader.
func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}

// Count returns the number of bytes read so far.
func (c *countingReader) Count() int64 {
	return c.n.Load()
}
