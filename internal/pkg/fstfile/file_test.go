package fstfile

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/endorses/lexfst/internal/pkg/fst"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestFST(t *testing.T) (*fst.Automaton, *fst.FST) {
	t.Helper()
	a, err := fst.Build([]fst.Pair{
		{Key: []byte("apr"), Output: []byte("30")},
		{Key: []byte("feb"), Output: []byte("28")},
		{Key: []byte("feb"), Output: []byte("29")},
		{Key: []byte("jun"), Output: []byte("30")},
	})
	require.NoError(t, err)
	return a, fst.Compile(a)
}

func encode(t *testing.T, a *fst.Automaton, f *fst.FST) (Header, []byte) {
	t.Helper()
	h := NewHeader(a)
	var buf bytes.Buffer
	n, err := Write(&buf, f, h)
	require.NoError(t, err)
	assert.Equal(t, int64(HeaderSize+f.Size()), n)
	return h, buf.Bytes()
}

func TestHeader_RoundTrip(t *testing.T) {
	h := Header{
		Version:    Version,
		BuildID:    uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		States:     12,
		Keys:       7,
		PayloadLen: 1 << 33,
		Checksum:   0xdeadbeefcafef00d,
	}
	data, err := h.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, data, HeaderSize)
	assert.Equal(t, Magic, string(data[:8]))

	var got Header
	require.NoError(t, got.UnmarshalBinary(data))
	assert.Equal(t, h, got)
}

func TestNewHeader(t *testing.T) {
	a, _ := buildTestFST(t)
	h := NewHeader(a)
	assert.Equal(t, Version, h.Version)
	assert.Equal(t, uint32(a.Dict.Len()), h.States)
	assert.Equal(t, uint32(3), h.Keys)
	assert.NotEqual(t, uuid.Nil, h.BuildID)
	assert.NotEqual(t, h.BuildID, NewHeader(a).BuildID)
}

func TestReadWrite(t *testing.T) {
	a, f := buildTestFST(t)
	h, data := encode(t, a, f)

	got, err := Read(bytes.NewReader(data))
	require.NoError(t, err)
	defer got.Close()

	assert.False(t, got.Mapped)
	assert.Equal(t, h.BuildID, got.Header.BuildID)
	assert.Equal(t, uint64(f.Size()), got.Header.PayloadLen)
	assert.Equal(t, f.Bytes(), got.FST.Bytes())

	res, err := got.FST.Lookup([]byte("feb"))
	require.NoError(t, err)
	assert.Equal(t, []string{"28", "29"}, res.Strings())
}

func TestReadWrite_Empty(t *testing.T) {
	a, err := fst.Build(nil)
	require.NoError(t, err)
	_, data := encode(t, a, fst.Compile(a))
	require.Len(t, data, HeaderSize)

	got, err := Parse(data)
	require.NoError(t, err)
	assert.Zero(t, got.FST.Size())
}

func TestRead_Errors(t *testing.T) {
	a, f := buildTestFST(t)
	_, data := encode(t, a, f)

	corrupt := func(mutate func([]byte) []byte) []byte {
		return mutate(bytes.Clone(data))
	}

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{
			name:    "empty",
			data:    nil,
			wantErr: ErrTruncated,
		},
		{
			name:    "short header",
			data:    data[:HeaderSize-1],
			wantErr: ErrTruncated,
		},
		{
			name:    "short payload",
			data:    data[:len(data)-1],
			wantErr: ErrTruncated,
		},
		{
			name:    "bad magic",
			data:    corrupt(func(b []byte) []byte { b[0] = 'X'; return b }),
			wantErr: ErrBadMagic,
		},
		{
			name:    "future version",
			data:    corrupt(func(b []byte) []byte { b[8] = 2; return b }),
			wantErr: ErrUnsupportedVersion,
		},
		{
			name:    "payload flipped",
			data:    corrupt(func(b []byte) []byte { b[len(b)-1] ^= 0xff; return b }),
			wantErr: ErrChecksumMismatch,
		},
		{
			name:    "checksum flipped",
			data:    corrupt(func(b []byte) []byte { b[44] ^= 0x01; return b }),
			wantErr: ErrChecksumMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(bytes.NewReader(tt.data))
			assert.ErrorIs(t, err, tt.wantErr)

			_, err = Parse(tt.data)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestWriteFile_Open(t *testing.T) {
	a, f := buildTestFST(t)
	path := filepath.Join(t.TempDir(), "months.fst")
	h := NewHeader(a)
	require.NoError(t, WriteFile(path, f, h))

	// No temporary files are left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	t.Run("Open", func(t *testing.T) {
		got, err := Open(path)
		require.NoError(t, err)
		defer func() { assert.NoError(t, got.Close()) }()

		assert.Equal(t, h.BuildID, got.Header.BuildID)
		ok, err := got.FST.Contains([]byte("jun"))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("ReadFile", func(t *testing.T) {
		got, err := ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, f.Bytes(), got.FST.Bytes())
		assert.NoError(t, got.Close())
	})

	t.Run("Close twice", func(t *testing.T) {
		got, err := Open(path)
		require.NoError(t, err)
		assert.NoError(t, got.Close())
		assert.NoError(t, got.Close())
	})
}

func TestWriteFile_Replaces(t *testing.T) {
	a, f := buildTestFST(t)
	path := filepath.Join(t.TempDir(), "dict.fst")
	require.NoError(t, os.WriteFile(path, []byte("old contents"), 0o644))

	require.NoError(t, WriteFile(path, f, NewHeader(a)))
	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, f.Bytes(), got.FST.Bytes())
}

func TestOpen_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Open(filepath.Join(dir, "missing.fst"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	short := filepath.Join(dir, "short.fst")
	require.NoError(t, os.WriteFile(short, []byte("LEXFST"), 0o644))
	_, err = Open(short)
	assert.ErrorIs(t, err, ErrTruncated)

	junk := filepath.Join(dir, "junk.fst")
	require.NoError(t, os.WriteFile(junk, bytes.Repeat([]byte{'x'}, 100), 0o644))
	_, err = Open(junk)
	assert.ErrorIs(t, err, ErrBadMagic)
}
