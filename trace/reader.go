// Package trace reads memory access traces.
//
// A trace is a sequence of records. Each record is a single character
// operation code (R, r, W or w) followed by a hexadecimal address, with
// optional whitespace before each of them, so "R 40" and "R40" are the same
// record. The address is the longest run of hex digits after an optional 0x
// prefix. Reading stops at the first record that does not follow this
// pattern.
package trace

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/sarchlab/cachesim/cache"
)

// Record is one access in a trace.
type Record struct {
	Op      cache.Op
	Address uint64
}

// A Reader parses records from a stream.
type Reader struct {
	r      *bufio.Reader
	digits []byte
	done   bool
	err    error
	count  uint64
}

// NewReader creates a Reader that reads from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next returns the next record. It returns false at the end of the stream,
// which is also where the first malformed record is.
func (r *Reader) Next() (Record, bool) {
	if r.done {
		return Record{}, false
	}

	opByte, ok := r.nextNonSpace()
	if !ok {
		return Record{}, false
	}

	op, err := cache.ParseOp(string(opByte))
	if err != nil {
		r.done = true
		return Record{}, false
	}

	addr, ok := r.address()
	if !ok {
		r.done = true
		return Record{}, false
	}

	r.count++

	return Record{Op: op, Address: addr}, true
}

// Count returns the number of records returned so far.
func (r *Reader) Count() uint64 {
	return r.count
}

// Err returns the first read error other than the end of the stream.
// Malformed records are not errors.
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) stop(err error) {
	r.done = true

	if err != io.EOF {
		r.err = err
	}
}

func (r *Reader) nextNonSpace() (byte, bool) {
	for {
		b, err := r.r.ReadByte()
		if err != nil {
			r.stop(err)
			return 0, false
		}

		if !isSpace(b) {
			return b, true
		}
	}
}

// address consumes the longest hex digit run. Whatever follows the run is
// left in the stream and read as the next operation code.
func (r *Reader) address() (uint64, bool) {
	first, ok := r.nextNonSpace()
	if !ok || !isHexDigit(first) {
		return 0, false
	}

	r.digits = append(r.digits[:0], first)

	if first == '0' {
		r.skipHexPrefix()
	}

	for {
		b, err := r.r.ReadByte()
		if err != nil {
			// The digits read so far still form an address.
			r.stop(err)
			break
		}

		if !isHexDigit(b) {
			_ = r.r.UnreadByte()
			break
		}

		r.digits = append(r.digits, b)
	}

	addr, err := ParseAddress(string(r.digits))
	if err != nil {
		return 0, false
	}

	return addr, true
}

// skipHexPrefix drops the x of a 0x prefix, but only when a digit follows.
// Otherwise the 0 is the whole address.
func (r *Reader) skipHexPrefix() {
	p, _ := r.r.Peek(2)
	if len(p) < 2 || (p[0] != 'x' && p[0] != 'X') || !isHexDigit(p[1]) {
		return
	}

	_, _ = r.r.Discard(1)
	r.digits = r.digits[:0]
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}

	return false
}

func isHexDigit(b byte) bool {
	return ('0' <= b && b <= '9') ||
		('a' <= b && b <= 'f') ||
		('A' <= b && b <= 'F')
}

// ParseAddress parses an unsigned 64-bit hexadecimal address. A 0x prefix is
// optional.
func ParseAddress(s string) (uint64, error) {
	if len(s) > 2 && (strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")) {
		s = s[2:]
	}

	return strconv.ParseUint(s, 16, 64)
}
