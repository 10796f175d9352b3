// Package memory bounds and recycles the buffers used to read SerpAPI
// responses and render tool output.
package memory

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrTooLarge is returned when a body exceeds the configured limit.
var ErrTooLarge = errors.New("response body too large")

// BufferPool manages a pool of reusable bytes.Buffer instances
type BufferPool struct {
	pool    sync.Pool
	maxKeep int
}

// NewBufferPool creates a new buffer pool. Buffers that grew beyond maxKeep
// bytes are dropped instead of being pooled.
func NewBufferPool(maxKeep int) *BufferPool {
	return &BufferPool{
		pool: sync.Pool{
			New: func() interface{} {
				return &bytes.Buffer{}
			},
		},
		maxKeep: maxKeep,
	}
}

// Get retrieves a buffer from the pool
func (bp *BufferPool) Get() *bytes.Buffer {
	buf := bp.pool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// Put returns a buffer to the pool for reuse
func (bp *BufferPool) Put(buf *bytes.Buffer) {
	if buf.Cap() <= bp.maxKeep {
		bp.pool.Put(buf)
	}
}

// Shared is the process-wide pool, keeping buffers up to 1MB.
var Shared = NewBufferPool(1 << 20)

// ReadLimited reads r fully into a fresh slice, failing with ErrTooLarge
// once more than limit bytes arrive. A limit <= 0 disables the check.
func ReadLimited(r io.Reader, limit int64) ([]byte, error) {
	buf := Shared.Get()
	defer Shared.Put(buf)

	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	if _, err := buf.ReadFrom(src); err != nil {
		return nil, err
	}
	if limit > 0 && int64(buf.Len()) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}
