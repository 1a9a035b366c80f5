// File: pool/bytepool.go
// Author: momentics <momentics@gmail.com>

package pool

import "code.hybscloud.com/atomix"

// BytePool hands out byte slices of one fixed capacity.
type BytePool struct {
	size   int
	pool   *SyncPool[*[]byte]
	gets   atomix.Uint64
	puts   atomix.Uint64
	allocs atomix.Uint64
}

// NewBytePool creates a pool of size-byte slices.
func NewBytePool(size int) *BytePool {
	if size <= 0 {
		size = 1
	}
	bp := &BytePool{size: size}
	bp.pool = NewSyncPool(func() *[]byte {
		bp.allocs.Add(1)
		buf := make([]byte, size)
		return &buf
	}, func(p *[]byte) *[]byte {
		*p = (*p)[:cap(*p)]
		return p
	})
	return bp
}

// Size returns the capacity of every slice handed out.
func (b *BytePool) Size() int { return b.size }

// GetBuffer returns a slice with len == Size().
func (b *BytePool) GetBuffer() []byte {
	b.gets.Add(1)
	p := b.pool.Get()
	return (*p)[:b.size]
}

// PutBuffer returns a slice obtained from GetBuffer. Foreign or undersized
// slices are dropped.
func (b *BytePool) PutBuffer(buf []byte) {
	if cap(buf) < b.size {
		return
	}
	b.puts.Add(1)
	buf = buf[:b.size]
	b.pool.Put(&buf)
}

// Stats reports pool usage counters.
func (b *BytePool) Stats() map[string]uint64 {
	return map[string]uint64{
		"gets":   b.gets.Load(),
		"puts":   b.puts.Load(),
		"allocs": b.allocs.Load(),
	}
}
