package codec

import (
	"bytes"
	"sync"
)

// BufferPool reduces GC pressure from building an outbound wire message
// per send across many concurrent sessions.
type BufferPool struct {
	pool sync.Pool
}

// NewBufferPool creates a new buffer pool.
func NewBufferPool() *BufferPool {
	return &BufferPool{
		pool: sync.Pool{
			New: func() interface{} {
				return bytes.NewBuffer(make([]byte, 0, 512))
			},
		},
	}
}

// Get returns a reset buffer from the pool.
func (p *BufferPool) Get() *bytes.Buffer {
	buf := p.pool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// Put returns a buffer to the pool.
func (p *BufferPool) Put(buf *bytes.Buffer) {
	if buf != nil {
		buf.Reset()
		p.pool.Put(buf)
	}
}
