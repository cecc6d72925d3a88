package id

// Gen hands out process unique numbers. Zero is never returned, callers
// use it as the "unset" tag.
type Gen interface {
	Number() uint64
	Str() string
}

var (
	_ Gen = (*monotonicNonZeroID)(nil)
)
