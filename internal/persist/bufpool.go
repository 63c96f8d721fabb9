package persist

import "sync"

// bufferPool reuses the fixed-size byte buffers PersistStore needs to
// encode/decode config.dat/pid.dat/tipcal.dat records, avoiding a fresh
// allocation on every save. Grounded on
// AndySze-klipper/pkg/pool/pool.go's ByteBuffer pool, generalized from
// a variable-length message buffer to these records' small fixed sizes.
var bufferPool = sync.Pool{
	New: func() any {
		buf := make([]byte, 0, 64)
		return &buf
	},
}

func getBuffer(size int) []byte {
	p := bufferPool.Get().(*[]byte)
	buf := (*p)[:0]
	if cap(buf) < size {
		buf = make([]byte, 0, size)
	}
	return buf[:size]
}

func putBuffer(buf []byte) {
	if cap(buf) > 4096 {
		return
	}
	b := buf[:0]
	bufferPool.Put(&b)
}
