package pool

import (
	"bytes"
	"sync"
)

// maxRetainedBuffer keeps oversized buffers out of the pool so one large
// request body does not pin memory forever.
const maxRetainedBuffer = 1 << 16

// BufferPool recycles byte buffers for request encoding.
type BufferPool struct {
	pool sync.Pool
}

// NewBufferPool creates an empty buffer pool.
func NewBufferPool() *BufferPool {
	p := &BufferPool{}
	p.pool.New = func() any { return new(bytes.Buffer) }
	return p
}

// Get returns an empty buffer.
func (p *BufferPool) Get() *bytes.Buffer {
	b := p.pool.Get().(*bytes.Buffer)
	b.Reset()
	return b
}

// Put returns a buffer to the pool.
func (p *BufferPool) Put(b *bytes.Buffer) {
	if b == nil || b.Cap() > maxRetainedBuffer {
		return
	}
	p.pool.Put(b)
}
