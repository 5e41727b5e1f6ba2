// Package utils provides shared error kinds, scratch buffers and
// overflow-checked size arithmetic for the om library.
package utils

import "sync"

var bufferPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, 0, 64*1024)
		return &buf
	},
}

// GetBuffer returns a byte slice of length size from the pool.
// Contents are not zeroed.
func GetBuffer(size int) []byte {
	bp := bufferPool.Get().(*[]byte)
	buf := *bp
	if cap(buf) < size {
		return make([]byte, size, size+size/4) // Grow with headroom.
	}
	return buf[:size]
}

// ReleaseBuffer returns a buffer to the pool. Buffers larger than
// MaxPooledBuffer are dropped.
func ReleaseBuffer(buf []byte) {
	if cap(buf) > MaxPooledBuffer {
		return
	}
	buf = buf[:0]
	bufferPool.Put(&buf)
}

// MaxPooledBuffer bounds the capacity of buffers kept in the pool.
const MaxPooledBuffer = 16 * 1024 * 1024
