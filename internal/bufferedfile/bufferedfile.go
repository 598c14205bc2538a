// Package bufferedfile implements the sequential-I/O abstraction every
// SSTable reader and writer in this module is built on: a fixed 4KiB buffer
// used for output in write mode and for read-ahead in read mode, with a
// single Rewind operation that flips a File from write mode to read mode at
// offset zero (spec.md §4.1). Buffers are pooled the way go-wal/page.go
// pools its block buffers, to keep compaction — which opens and closes many
// tables back to back — from pressuring the GC.
package bufferedfile

import (
	"io"
	"sync"

	"github.com/coolan2013/xapian/internal/storage"
)

var bufferPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, 0, 4096)
		return &b
	},
}

func getBuffer(size int) *[]byte {
	bp := bufferPool.Get().(*[]byte)
	if cap(*bp) < size {
		nb := make([]byte, 0, size)
		return &nb
	}
	*bp = (*bp)[:0]
	return bp
}

func putBuffer(b *[]byte) {
	*b = (*b)[:0]
	bufferPool.Put(b)
}

// Mode records whether a File is currently accepting writes or reads.
type Mode int

const (
	ModeWrite Mode = iota
	ModeRead
)

// File is a 4KiB-buffered sequential byte stream over a single
// storage-backed file, in either append-only write mode or forward-read
// mode. Rewind flips it from write to read.
type File struct {
	fs   storage.FS
	path string
	mode Mode

	w storage.Writable
	r storage.Readable

	buf *[]byte
	// readPos is the next unread index into buf (read mode only); in write
	// mode all of buf is unflushed and readPos is unused.
	readPos int
	// fileOffset is how far the underlying descriptor has actually moved:
	// bytes physically written in write mode, bytes physically read in read
	// mode.
	fileOffset int64
	bufSize    int
	err        error
}

// Open opens path for writing (truncating any existing content) when
// readOnly is false, or for reading an existing file when readOnly is true.
func Open(fs storage.FS, path string, readOnly bool, opts ...OptionFn) (*File, error) {
	o := defaultOptions
	for _, fn := range opts {
		fn(&o)
	}
	f := &File{fs: fs, path: path, bufSize: o.bufSize, buf: getBuffer(o.bufSize)}
	if readOnly {
		r, err := fs.Open(path)
		if err != nil {
			return nil, err
		}
		f.r = r
		f.mode = ModeRead
		return f, nil
	}
	w, err := fs.Create(path)
	if err != nil {
		return nil, err
	}
	f.w = w
	f.mode = ModeWrite
	return f, nil
}

// Mode reports the File's current mode.
func (f *File) Mode() Mode { return f.mode }

// WriteByte appends a single byte in write mode.
func (f *File) WriteByte(b byte) error {
	_, err := f.Write([]byte{b})
	return err
}

// Write appends p to the buffer, spilling to the descriptor once full.
// Payloads at least as large as the buffer bypass it entirely after any
// pending bytes are flushed, the "scatter-gather" shortcut spec.md §4.1
// mentions, implemented here as two plain writes rather than one combined
// syscall since storage.Writable exposes no writev-style primitive.
func (f *File) Write(p []byte) (int, error) {
	if f.mode != ModeWrite {
		return 0, io.ErrClosedPipe
	}
	if f.err != nil {
		return 0, f.err
	}
	total := len(p)
	if len(p) >= f.bufSize {
		if err := f.Flush(); err != nil {
			return 0, err
		}
		if err := writeFull(f.w, p); err != nil {
			f.err = err
			return 0, err
		}
		f.fileOffset += int64(len(p))
		return total, nil
	}
	for len(p) > 0 {
		room := f.bufSize - len(*f.buf)
		if room == 0 {
			if err := f.Flush(); err != nil {
				return 0, err
			}
			room = f.bufSize
		}
		n := room
		if n > len(p) {
			n = len(p)
		}
		*f.buf = append(*f.buf, p[:n]...)
		p = p[n:]
	}
	return total, nil
}

// writeFull retries short writes until all of p has been written or the
// underlying Write call fails outright.
func writeFull(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if n < 0 || n > len(p) {
			return io.ErrShortWrite
		}
		p = p[n:]
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
	}
	return nil
}

// Flush drains the write buffer to the underlying descriptor without
// closing it.
func (f *File) Flush() error {
	if f.mode != ModeWrite {
		return nil
	}
	if f.err != nil {
		return f.err
	}
	if len(*f.buf) == 0 {
		return nil
	}
	if err := writeFull(f.w, *f.buf); err != nil {
		f.err = err
		return err
	}
	f.fileOffset += int64(len(*f.buf))
	*f.buf = (*f.buf)[:0]
	return nil
}

// Sync flushes the write buffer and forces the OS to durably persist it.
func (f *File) Sync() error {
	if err := f.Flush(); err != nil {
		return err
	}
	if f.mode != ModeWrite {
		return nil
	}
	return f.w.Sync()
}

// ReadByte returns the next byte, or io.EOF at end-of-stream.
func (f *File) ReadByte() (byte, error) {
	var b [1]byte
	n, err := f.Read(b[:])
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}
	return b[0], nil
}

// Read implements io.Reader, refilling the read-ahead buffer from the
// underlying descriptor once exhausted.
func (f *File) Read(p []byte) (int, error) {
	if f.mode != ModeRead {
		return 0, io.ErrClosedPipe
	}
	if f.readPos >= len(*f.buf) {
		if err := f.fill(); err != nil {
			return 0, err
		}
		if len(*f.buf) == 0 {
			return 0, io.EOF
		}
	}
	n := copy(p, (*f.buf)[f.readPos:])
	f.readPos += n
	return n, nil
}

func (f *File) fill() error {
	*f.buf = (*f.buf)[:cap(*f.buf)]
	n, err := f.r.Read(*f.buf)
	*f.buf = (*f.buf)[:n]
	f.readPos = 0
	f.fileOffset += int64(n)
	if n == 0 && err != nil && err != io.EOF {
		return err
	}
	return nil
}

// ReadFull reads exactly len(p) bytes, the all-or-fail contract spec.md
// §4.1 specifies for read(buf, n).
func (f *File) ReadFull(p []byte) error {
	_, err := io.ReadFull(f, p)
	return err
}

// GetPos returns the logical byte position: in write mode, bytes physically
// written plus buffered-unflushed bytes; in read mode, bytes physically read
// minus buffered-unread bytes.
func (f *File) GetPos() int64 {
	if f.mode == ModeWrite {
		return f.fileOffset + int64(len(*f.buf))
	}
	return f.fileOffset - int64(len(*f.buf)-f.readPos)
}

// Empty reports whether the underlying file is zero length and no bytes are
// buffered.
func (f *File) Empty() (bool, error) {
	if len(*f.buf) > f.readPos {
		return false, nil
	}
	if f.mode == ModeWrite {
		return f.fileOffset == 0, nil
	}
	sz, err := f.r.Size()
	if err != nil {
		return false, err
	}
	return sz == 0, nil
}

// Rewind flushes any pending writes, closes the write handle, reopens path
// for reading, and seeks to the start — switching the File from write mode
// to read mode.
func (f *File) Rewind() error {
	if f.mode == ModeRead {
		_, err := f.r.Seek(0, io.SeekStart)
		f.fileOffset = 0
		*f.buf = (*f.buf)[:0]
		f.readPos = 0
		return err
	}
	if err := f.Flush(); err != nil {
		return err
	}
	if err := f.w.Close(); err != nil {
		return err
	}
	r, err := f.fs.Open(f.path)
	if err != nil {
		return err
	}
	f.w = nil
	f.r = r
	f.mode = ModeRead
	f.fileOffset = 0
	*f.buf = (*f.buf)[:0]
	f.readPos = 0
	return nil
}

// Close releases the pooled buffer and the underlying descriptor. No
// further calls are allowed afterward.
func (f *File) Close() error {
	var err error
	switch f.mode {
	case ModeWrite:
		if f.w != nil {
			err = f.w.Close()
		}
	case ModeRead:
		if f.r != nil {
			err = f.r.Close()
		}
	}
	if f.buf != nil {
		putBuffer(f.buf)
		f.buf = nil
	}
	return err
}

var _ io.Writer = (*File)(nil)
var _ io.Reader = (*File)(nil)
