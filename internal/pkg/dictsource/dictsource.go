// Package dictsource reads (key, output) pairs for the fst builder from
// dictionary files.
package dictsource

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/endorses/lexfst/internal/pkg/fst"
)

// Format is a dictionary file format.
type Format string

const (
	FormatAuto Format = ""
	FormatTSV  Format = "tsv"
	FormatYAML Format = "yaml"
)

var (
	// ErrInvalidFormat indicates a malformed dictionary entry.
	ErrInvalidFormat = errors.New("invalid dictionary format")

	// ErrUnknownFormat indicates an unsupported format name.
	ErrUnknownFormat = errors.New("unknown dictionary format")
)

// ParseFormat parses a format name. The empty string and "auto" select
// detection by file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return FormatAuto, nil
	case "tsv", "txt", "tab":
		return FormatTSV, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return FormatAuto, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// DetectFormat picks a format from the file extension. Anything that is not
// YAML is read as TSV.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTSV
	}
}

// Options controls how a dictionary is read.
type Options struct {
	// Format of the file. FormatAuto detects it from the extension.
	Format Format

	// Separator between key and output in TSV files. Defaults to a tab.
	Separator string

	// Unescape decodes \t, \n, \r and \\ in TSV keys and outputs.
	Unescape bool

	// MaxLineSize is the longest TSV line accepted. Zero means
	// constants.MaxDictionaryLineSize.
	MaxLineSize int

	// NoSort keeps the file order. The builder then rejects unsorted input.
	NoSort bool
}

// Load reads every pair from the file at path and, unless opts.NoSort is
// set, sorts them for the builder.
func Load(path string, opts Options) ([]fst.Pair, error) {
	format := opts.Format
	if format == FormatAuto {
		format = DetectFormat(path)
	}

	// #nosec G304 -- Path is supplied by the operator
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dictionary: %w", err)
	}
	defer f.Close()

	var pairs []fst.Pair
	switch format {
	case FormatTSV:
		pairs, err = ReadTSV(f, opts)
	case FormatYAML:
		pairs, err = ReadYAML(f)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if !opts.NoSort {
		Sort(pairs)
	}
	return pairs, nil
}

// Sort orders pairs by key bytes. The sort is stable, so the outputs of a
// repeated key keep their file order and stay adjacent.
func Sort(pairs []fst.Pair) {
	slices.SortStableFunc(pairs, func(a, b fst.Pair) int {
		return bytes.Compare(a.Key, b.Key)
	})
}

// IsSorted reports whether pairs are in the order the builder requires.
func IsSorted(pairs []fst.Pair) bool {
	return slices.IsSortedFunc(pairs, func(a, b fst.Pair) int {
		return bytes.Compare(a.Key, b.Key)
	})
}
