package fstfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/endorses/lexfst/internal/pkg/fst"
	"github.com/endorses/lexfst/internal/pkg/logger"
)

// File is a loaded lexfst file.
type File struct {
	Header Header
	FST    *fst.FST

	// Mapped reports whether the payload aliases a memory mapping.
	Mapped bool

	unmap     func() error
	closeOnce sync.Once
	closeErr  error
}

// Close releases the memory mapping, if any. The FST must not be used
// afterwards when Mapped is set.
func (f *File) Close() error {
	f.closeOnce.Do(func() {
		if f.unmap != nil {
			f.closeErr = f.unmap()
		}
	})
	return f.closeErr
}

// Write writes h followed by the compiled bytes of a to w. The payload
// length and checksum of h are computed here.
func Write(w io.Writer, a *fst.FST, h Header) (int64, error) {
	payload := a.Bytes()
	h.Version = Version
	h.PayloadLen = uint64(len(payload))
	h.Checksum = xxhash.Sum64(payload)

	hdr, err := h.MarshalBinary()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(hdr)
	if err != nil {
		return int64(n), fmt.Errorf("failed to write header: %w", err)
	}
	m, err := w.Write(payload)
	if err != nil {
		return int64(n + m), fmt.Errorf("failed to write payload: %w", err)
	}
	return int64(n + m), nil
}

// WriteFile writes the file to path atomically: the data goes to a
// temporary file in the same directory which is then renamed over path.
func WriteFile(path string, a *fst.FST, h Header) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer func() {
		// No-op once the rename succeeded.
		_ = os.Remove(tmp.Name())
	}()

	if _, err := Write(tmp, a, h); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to rename into place: %w", err)
	}
	return nil
}

// Read reads a complete file from r into memory and verifies it.
func Read(r io.Reader) (*File, error) {
	hdr := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, hdr); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: short header", ErrTruncated)
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	var h Header
	if err := h.UnmarshalBinary(hdr); err != nil {
		return nil, err
	}
	if h.PayloadLen > math.MaxInt64 {
		return nil, fmt.Errorf("%w: payload length %d", ErrTruncated, h.PayloadLen)
	}

	// The copy is bounded by the header so a bad length cannot force a huge
	// allocation up front.
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, int64(h.PayloadLen)))
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	if uint64(n) != h.PayloadLen {
		return nil, fmt.Errorf("%w: payload has %d of %d bytes", ErrTruncated, n, h.PayloadLen)
	}
	return verify(h, buf.Bytes())
}

// ReadFile reads the file at path into memory.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse verifies an in-memory file. The FST aliases data.
func Parse(data []byte) (*File, error) {
	var h Header
	if err := h.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	rest := uint64(len(data) - HeaderSize)
	if rest < h.PayloadLen {
		return nil, fmt.Errorf("%w: payload has %d of %d bytes", ErrTruncated, rest, h.PayloadLen)
	}
	return verify(h, data[HeaderSize:HeaderSize+int(h.PayloadLen)])
}

func verify(h Header, payload []byte) (*File, error) {
	if sum := xxhash.Sum64(payload); sum != h.Checksum {
		return nil, fmt.Errorf("%w: got %016x, want %016x", ErrChecksumMismatch, sum, h.Checksum)
	}
	return &File{Header: h, FST: fst.New(payload)}, nil
}

// Open memory-maps the file at path and verifies it. When the platform or
// the file system does not support mapping, the file is read into memory
// instead.
func Open(path string) (*File, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	info, err := fd.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	size := info.Size()
	if size < HeaderSize {
		return nil, fmt.Errorf("%w: %s has %d bytes", ErrTruncated, path, size)
	}
	if size > math.MaxInt {
		return nil, fmt.Errorf("%s is too large to map: %d bytes", path, size)
	}

	data, unmap, err := mmapFile(fd, int(size))
	if err != nil {
		logger.Warn("Memory mapping failed, falling back to regular I/O",
			"error", err, "path", path)
		return Read(fd)
	}

	f, err := Parse(data)
	if err != nil {
		_ = unmap()
		return nil, err
	}
	f.Mapped = true
	f.unmap = unmap
	logger.Debug("Memory-mapped fst file",
		"path", path,
		"size", size,
		"build_id", f.Header.BuildID)
	return f, nil
}
