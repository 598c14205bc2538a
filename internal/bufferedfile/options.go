package bufferedfile

// OptionFn configures a BufferedFile, following the functional-options shape
// go-wal's WAL type uses (go-wal/options.go).
type OptionFn func(*options)

type options struct {
	bufSize int
}

var defaultOptions = options{
	bufSize: 4096,
}

// WithBufferSize overrides the default 4KiB write buffer.
func WithBufferSize(n int) OptionFn {
	return func(o *options) {
		if n > 0 {
			o.bufSize = n
		}
	}
}
