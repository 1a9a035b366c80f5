package pool

import "sync"

var (
	defaultMu    sync.Mutex
	defaultPools = make(map[int]*BytePool)
)

// sizeClasses are the capacities shared process-wide; larger requests get
// a dedicated pool of the exact size.
var sizeClasses = [...]int{
	512,
	1024,
	2 * 1024,
	4 * 1024,
	8 * 1024,
	16 * 1024,
	64 * 1024,
}

func sizeClass(size int) int {
	for _, c := range sizeClasses {
		if size <= c {
			return c
		}
	}
	return size
}

// ForSize returns the process-wide pool whose slices hold at least size bytes.
// Callers slice the result down to size.
func ForSize(size int) *BytePool {
	class := sizeClass(size)
	defaultMu.Lock()
	defer defaultMu.Unlock()
	bp, ok := defaultPools[class]
	if !ok {
		bp = NewBytePool(class)
		defaultPools[class] = bp
	}
	return bp
}
