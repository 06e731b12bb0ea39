package fst

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Arc record flag bits.
//
// A non-final arc is encoded as
//
//	flag:1 label:1 [outLen:4 out:outLen]? delta:4
//
// with the output present only when flagHasOutput is set. delta is added to
// the offset of the record itself to reach the target state's first record.
//
// A final pseudo-arc is encoded as
//
//	flag:1 [count:4 {len:4 bytes:len}*count]?
//
// with the outputs present only when flagHasFinalOutput is set; otherwise the
// final output set is {""}. All integers are little-endian.
const (
	flagFinalArc       = 1 << 0
	flagLastArc        = 1 << 1
	flagTargetNext     = 1 << 2 // reserved, never written
	flagStopNode       = 1 << 3 // reserved, never written
	flagHasOutput      = 1 << 4
	flagHasFinalOutput = 1 << 5
)

const (
	flagSize  = 1
	labelSize = 1
	u32Size   = 4
)

// ErrCorrupt is returned when a compiled automaton cannot be decoded.
var ErrCorrupt = errors.New("fst: corrupt automaton")

// arcRecord is one decoded record. Slices alias the compiled buffer.
type arcRecord struct {
	flag         byte
	label        byte
	output       []byte
	finalOutputs [][]byte
	delta        int
	size         int
}

func (r *arcRecord) isFinal() bool { return r.flag&flagFinalArc != 0 }
func (r *arcRecord) isLast() bool  { return r.flag&flagLastArc != 0 }

// emptyOutput is the implicit final output set when none is stored.
var emptyOutput = [][]byte{{}}

// decodeArc decodes the record at pos into rec. Every read is bounds checked.
func decodeArc(data []byte, pos int, rec *arcRecord) error {
	start := pos
	if pos < 0 || pos >= len(data) {
		return fmt.Errorf("%w: record offset %d out of range", ErrCorrupt, pos)
	}
	rec.flag = data[pos]
	pos += flagSize

	if rec.isFinal() {
		rec.label = 0
		rec.output = nil
		rec.delta = 0
		rec.finalOutputs = rec.finalOutputs[:0]
		if rec.flag&flagHasFinalOutput == 0 {
			rec.finalOutputs = append(rec.finalOutputs, emptyOutput...)
			rec.size = pos - start
			return nil
		}
		count, next, err := readU32(data, pos)
		if err != nil {
			return err
		}
		pos = next
		for range count {
			var out []byte
			if out, pos, err = readBytes(data, pos); err != nil {
				return err
			}
			rec.finalOutputs = append(rec.finalOutputs, out)
		}
		rec.size = pos - start
		return nil
	}

	if pos+labelSize > len(data) {
		return fmt.Errorf("%w: truncated arc at offset %d", ErrCorrupt, start)
	}
	rec.label = data[pos]
	pos += labelSize
	rec.output = nil
	if rec.flag&flagHasOutput != 0 {
		var err error
		if rec.output, pos, err = readBytes(data, pos); err != nil {
			return err
		}
	}
	delta, next, err := readU32(data, pos)
	if err != nil {
		return err
	}
	if delta == 0 {
		return fmt.Errorf("%w: zero target delta at offset %d", ErrCorrupt, start)
	}
	rec.delta = int(delta)
	rec.size = next - start
	return nil
}

func readU32(data []byte, pos int) (uint32, int, error) {
	if pos+u32Size > len(data) {
		return 0, pos, fmt.Errorf("%w: truncated integer at offset %d", ErrCorrupt, pos)
	}
	return binary.LittleEndian.Uint32(data[pos:]), pos + u32Size, nil
}

func readBytes(data []byte, pos int) ([]byte, int, error) {
	n, pos, err := readU32(data, pos)
	if err != nil {
		return nil, pos, err
	}
	end := pos + int(n)
	if end > len(data) || end < pos {
		return nil, pos, fmt.Errorf("%w: output of %d bytes at offset %d overruns buffer", ErrCorrupt, n, pos)
	}
	return data[pos:end:end], end, nil
}
