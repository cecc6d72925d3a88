package id

import (
	"strconv"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/cpu"
)

const cacheLinePadSize = unsafe.Sizeof(cpu.CacheLinePad{})

// monotonicNonZeroID wraps around to 1 on overflow.
// The counter sits alone in its cache line, every tree construction and
// clear bumps it.
type monotonicNonZeroID struct {
	_   [cacheLinePadSize - unsafe.Sizeof(uint64(0))]byte
	val atomic.Uint64
	_   [cacheLinePadSize - unsafe.Sizeof(uint64(0))]byte
}

func (id *monotonicNonZeroID) Number() uint64 {
	for {
		if v := id.val.Add(1); v != 0 {
			return v
		}
	}
}

func (id *monotonicNonZeroID) Str() string {
	return strconv.FormatUint(id.Number(), 10)
}

func MonotonicNonZeroID() (Gen, error) {
	return &monotonicNonZeroID{}, nil
}
