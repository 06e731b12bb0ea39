package dictsource

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/endorses/lexfst/internal/pkg/constants"
	"github.com/endorses/lexfst/internal/pkg/fst"
)

// ReadTSV reads one pair per line: the key, the separator, then the output.
// Blank lines and lines starting with '#' are skipped. A line without the
// separator is a key with an empty output. Only the first separator splits,
// so outputs may contain it.
func ReadTSV(r io.Reader, opts Options) ([]fst.Pair, error) {
	sep := []byte(opts.Separator)
	if len(sep) == 0 {
		sep = []byte{'\t'}
	}

	maxLine := opts.MaxLineSize
	if maxLine <= 0 {
		maxLine = constants.MaxDictionaryLineSize
	}

	var pairs []fst.Pair
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, min(64*1024, maxLine)), maxLine)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSuffix(scanner.Bytes(), []byte{'\r'})
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		key, output, _ := bytes.Cut(line, sep)
		if opts.Unescape {
			var err error
			if key, err = unescape(key); err != nil {
				return nil, fmt.Errorf("line %d: key: %w", lineNum, err)
			}
			if output, err = unescape(output); err != nil {
				return nil, fmt.Errorf("line %d: output: %w", lineNum, err)
			}
		}
		pairs = append(pairs, fst.Pair{
			Key:    bytes.Clone(key),
			Output: bytes.Clone(output),
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("line %d: read error: %w", lineNum+1, err)
	}
	return pairs, nil
}

func unescape(b []byte) ([]byte, error) {
	if bytes.IndexByte(b, '\\') < 0 {
		return b, nil
	}
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != '\\' {
			out = append(out, b[i])
			continue
		}
		i++
		if i == len(b) {
			return nil, fmt.Errorf("%w: trailing backslash", ErrInvalidFormat)
		}
		switch b[i] {
		case 't':
			out = append(out, '\t')
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case '\\':
			out = append(out, '\\')
		default:
			return nil, fmt.Errorf("%w: unknown escape \\%c", ErrInvalidFormat, b[i])
		}
	}
	return out, nil
}

func escape(b []byte) []byte {
	if bytes.IndexAny(b, "\t\n\r\\") < 0 {
		return b
	}
	out := make([]byte, 0, len(b)+4)
	for _, c := range b {
		switch c {
		case '\t':
			out = append(out, '\\', 't')
		case '\n':
			out = append(out, '\\', 'n')
		case '\r':
			out = append(out, '\\', 'r')
		case '\\':
			out = append(out, '\\', '\\')
		default:
			out = append(out, c)
		}
	}
	return out
}

// TSVWriter writes pairs in the format ReadTSV reads.
type TSVWriter struct {
	w      *bufio.Writer
	sep    []byte
	escape bool
}

// NewTSVWriter returns a writer using opts.Separator (tab by default). With
// opts.Unescape set, keys and outputs are escaped so they read back intact.
func NewTSVWriter(w io.Writer, opts Options) *TSVWriter {
	sep := []byte(opts.Separator)
	if len(sep) == 0 {
		sep = []byte{'\t'}
	}
	return &TSVWriter{w: bufio.NewWriter(w), sep: sep, escape: opts.Unescape}
}

// Write writes one line.
func (t *TSVWriter) Write(key, output []byte) error {
	if t.escape {
		key, output = escape(key), escape(output)
	}
	t.w.Write(key)
	t.w.Write(t.sep)
	t.w.Write(output)
	return t.w.WriteByte('\n')
}

// Flush writes any buffered data.
func (t *TSVWriter) Flush() error {
	return t.w.Flush()
}
