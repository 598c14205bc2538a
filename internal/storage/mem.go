package storage

import (
	"bytes"
	"errors"
	"sync"
)

// memFS implements FS entirely in memory, the way go-fs/inmem.go's
// inmemStorage backs Storage for tests that shouldn't touch disk.
type memFS struct {
	mu    sync.Mutex
	files map[string]*memFile
}

type memFile struct {
	data []byte
}

// NewMemFS returns an in-memory FS backend for tests.
func NewMemFS() FS {
	return &memFS{files: make(map[string]*memFile)}
}

var errNotFound = errors.New("storage: file not found")

type memWritable struct {
	fs   *memFS
	path string
	buf  bytes.Buffer
}

func (w *memWritable) Write(p []byte) (int, error) { return w.buf.Write(p) }
func (w *memWritable) Sync() error                 { return nil }
func (w *memWritable) Close() error {
	w.fs.mu.Lock()
	defer w.fs.mu.Unlock()
	w.fs.files[w.path] = &memFile{data: append([]byte{}, w.buf.Bytes()...)}
	return nil
}

type memReadable struct {
	*bytes.Reader
}

func (r memReadable) Size() (int64, error) { return int64(r.Len()), nil }
func (r memReadable) Close() error         { return nil }

func (m *memFS) Create(path string) (Writable, error) {
	return &memWritable{fs: m, path: path}, nil
}

func (m *memFS) Open(path string) (Readable, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[path]
	if !ok {
		return nil, errNotFound
	}
	return memReadable{Reader: bytes.NewReader(f.data)}, nil
}

func (m *memFS) Remove(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[path]; !ok {
		return errNotFound
	}
	delete(m.files, path)
	return nil
}

func (m *memFS) Rename(oldPath, newPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[oldPath]
	if !ok {
		return errNotFound
	}
	m.files[newPath] = f
	delete(m.files, oldPath)
	return nil
}

var _ FS = (*memFS)(nil)
