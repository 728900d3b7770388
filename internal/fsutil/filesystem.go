// Package fsutil provides the filesystem seam used by measurement ingestion,
// model persistence and config loading, so those paths can be tested
// without touching disk.
package fsutil

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// FileSystem is the file access the CLIs and loaders depend on.
// OSFileSystem backs the commands; MemoryFileSystem backs their tests.
type FileSystem interface {
	// Open opens a measurement CSV, config or model file for reading.
	Open(name string) (fs.File, error)

	// Create truncates or creates an output: a model, chart, plot,
	// prediction CSV or metrics textfile.
	Create(name string) (io.WriteCloser, error)

	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm os.FileMode) error

	// Stat is used to size-check config files before they are parsed.
	Stat(name string) (fs.FileInfo, error)

	// MkdirAll prepares the parent directory of a model file.
	MkdirAll(path string, perm os.FileMode) error

	// Glob expands a measurement pattern such as "data/trial*/*.csv" to
	// regular files in lexical order, using filepath.Match syntax.
	Glob(pattern string) ([]string, error)

	Exists(name string) bool
}

// OSFileSystem is the real disk.
type OSFileSystem struct{}

func (OSFileSystem) Open(name string) (fs.File, error)          { return os.Open(name) }
func (OSFileSystem) Create(name string) (io.WriteCloser, error) { return os.Create(name) }
func (OSFileSystem) ReadFile(name string) ([]byte, error)       { return os.ReadFile(name) }
func (OSFileSystem) Stat(name string) (fs.FileInfo, error)      { return os.Stat(name) }

func (OSFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm)
}

func (OSFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// Glob drops directories from the matches so "trial*/*" yields only
// measurement files. filepath.Glob already sorts.
func (OSFileSystem) Glob(pattern string) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	files := matches[:0]
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && !info.IsDir() {
			files = append(files, m)
		}
	}
	return files, nil
}

func (OSFileSystem) Exists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

// MemoryFileSystem keeps files and directories in maps keyed by cleaned
// path. Directories are implicit: writing a file never requires MkdirAll.
type MemoryFileSystem struct {
	mu    sync.RWMutex
	files map[string]memFile
	dirs  map[string]struct{}
}

type memFile struct {
	data []byte
	mode os.FileMode
}

func NewMemoryFileSystem() *MemoryFileSystem {
	return &MemoryFileSystem{
		files: make(map[string]memFile),
		dirs:  make(map[string]struct{}),
	}
}

// lookup returns the file stored at name, or a *fs.PathError for op.
func (m *MemoryFileSystem) lookup(op, name string) (string, memFile, error) {
	name = filepath.Clean(name)
	m.mu.RLock()
	f, ok := m.files[name]
	m.mu.RUnlock()
	if !ok {
		return name, memFile{}, &fs.PathError{Op: op, Path: name, Err: fs.ErrNotExist}
	}
	return name, f, nil
}

func (m *MemoryFileSystem) store(name string, data []byte, mode os.FileMode) {
	m.mu.Lock()
	m.files[filepath.Clean(name)] = memFile{data: data, mode: mode}
	m.mu.Unlock()
}

func (m *MemoryFileSystem) Open(name string) (fs.File, error) {
	name, f, err := m.lookup("open", name)
	if err != nil {
		return nil, err
	}
	return &memReader{Reader: bytes.NewReader(f.data), info: fileInfo(name, f)}, nil
}

// Create truncates name immediately; written bytes appear on Close.
func (m *MemoryFileSystem) Create(name string) (io.WriteCloser, error) {
	m.store(name, nil, 0644)
	return &memWriter{fs: m, name: name}, nil
}

func (m *MemoryFileSystem) ReadFile(name string) ([]byte, error) {
	_, f, err := m.lookup("read", name)
	if err != nil {
		return nil, err
	}
	return bytes.Clone(f.data), nil
}

func (m *MemoryFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	m.store(name, bytes.Clone(data), perm)
	return nil
}

func (m *MemoryFileSystem) Stat(name string) (fs.FileInfo, error) {
	clean := filepath.Clean(name)
	m.mu.RLock()
	_, isDir := m.dirs[clean]
	m.mu.RUnlock()
	if isDir {
		return &memInfo{name: filepath.Base(clean), mode: fs.ModeDir | 0755}, nil
	}
	clean, f, err := m.lookup("stat", clean)
	if err != nil {
		return nil, err
	}
	return fileInfo(clean, f), nil
}

// MkdirAll records path and each of its ancestors.
func (m *MemoryFileSystem) MkdirAll(path string, perm os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for p := filepath.Clean(path); p != "." && p != string(filepath.Separator); p = filepath.Dir(p) {
		m.dirs[p] = struct{}{}
	}
	return nil
}

// Glob matches pattern against stored file names; directories never match.
func (m *MemoryFileSystem) Glob(pattern string) ([]string, error) {
	pattern = filepath.Clean(pattern)
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for name := range m.files {
		if ok, _ := filepath.Match(pattern, name); ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryFileSystem) Exists(name string) bool {
	name = filepath.Clean(name)
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.files[name]; ok {
		return true
	}
	_, ok := m.dirs[name]
	return ok
}

type memReader struct {
	*bytes.Reader
	info fs.FileInfo
}

func (r *memReader) Stat() (fs.FileInfo, error) { return r.info, nil }
func (r *memReader) Close() error               { return nil }

type memWriter struct {
	fs   *MemoryFileSystem
	name string
	buf  bytes.Buffer
}

func (w *memWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *memWriter) Close() error {
	w.fs.store(w.name, w.buf.Bytes(), 0644)
	return nil
}

func fileInfo(name string, f memFile) *memInfo {
	return &memInfo{name: filepath.Base(name), size: int64(len(f.data)), mode: f.mode}
}

type memInfo struct {
	name string
	size int64
	mode os.FileMode
}

func (i *memInfo) Name() string       { return i.name }
func (i *memInfo) Size() int64        { return i.size }
func (i *memInfo) Mode() os.FileMode  { return i.mode }
func (i *memInfo) ModTime() time.Time { return time.Time{} }
func (i *memInfo) IsDir() bool        { return i.mode.IsDir() }
func (i *memInfo) Sys() any           { return nil }
