package buffer

import (
	"bytes"
	"io"
	"math/bits"

	"github.com/pkg/errors"
)

var (
	ErrLineTooLarge  = errors.New("line exceeds the maximal buffer size")
	ErrBodyTooLarge  = errors.New("body exceeds the maximal buffer size")
	ErrBadBufferSize = errors.New("initial buffer size must be positive and not exceed the maximal one")
)

var crlf = []byte("\r\n")

// Reader is a growable buffer bound to a byte stream. It scans the stream line by line and
// lets the caller inspect the current line in place, materializing strings only on demand.
//
// Layout of the memory:
//
//	[ consumed | current line (index..lineLimit) | buffered (..filled) | free ]
//
// lineLimit points right after the CRLF of the most recently scanned line. Consumed bytes are
// dropped lazily, when more space is needed.
type Reader struct {
	src       io.Reader
	memory    []byte
	index     int
	lineStart int
	lineLimit int
	filled    int
	maxSize   int
	err       error
}

func NewReader(src io.Reader, initialSize, maxSize int) *Reader {
	r := &Reader{src: src}
	if err := r.SetBufferSize(initialSize, maxSize); err != nil {
		panic(err)
	}

	return r
}

// SetBufferSize configures growth bounds. Already buffered data is preserved as long as it
// fits into the new maximum.
func (r *Reader) SetBufferSize(initialSize, maxSize int) error {
	if initialSize <= 0 || initialSize > maxSize || r.filled-r.index > maxSize {
		return ErrBadBufferSize
	}

	r.compact()
	memory := make([]byte, max(initialSize, r.filled))
	copy(memory, r.memory[:r.filled])
	r.memory = memory
	r.maxSize = maxSize

	return nil
}

// NextCapacity returns the smallest power of two not less than n, capped by maxSize. If
// even the capped value can't hold n bytes, ok is false.
func NextCapacity(n, maxSize int) (capacity int, ok bool) {
	if n <= 1 {
		return min(1, maxSize), n <= maxSize
	}

	capacity = min(1<<bits.Len(uint(n-1)), maxSize)
	return capacity, capacity >= n
}

// ParseLine makes sure the line starting at the cursor is completely buffered, reading
// from the stream as long as needed. The line is accessible until the next ParseLine
// or Read call.
func (r *Reader) ParseLine() error {
	r.lineStart, r.lineLimit = r.index, r.index
	scanned := 0

	for {
		window := r.memory[r.index+scanned : r.filled]
		if lf := bytes.Index(window, crlf); lf != -1 {
			r.lineLimit = r.index + scanned + lf + len(crlf)
			return nil
		}

		// the CR might be the last buffered byte, so it must be re-scanned with its LF
		scanned = max(0, r.filled-r.index-1)

		if err := r.more(ErrLineTooLarge); err != nil {
			return err
		}
	}
}

// Matches compares the bytes at the cursor against the sequence without leaving the
// current line, advancing the cursor on success.
func (r *Reader) Matches(seq []byte) bool {
	end := r.index + len(seq)
	if end > r.lineEnd() || !bytes.Equal(r.memory[r.index:end], seq) {
		return false
	}

	r.index = end
	return true
}

// IndexOf returns the absolute position of the first of the delimiters found in the
// current line starting at the cursor, or -1.
func (r *Reader) IndexOf(delimiters ...byte) int {
	line := r.memory[r.index:r.lineEnd()]

	if len(delimiters) == 1 {
		if i := bytes.IndexByte(line, delimiters[0]); i != -1 {
			return r.index + i
		}

		return -1
	}

	for i, c := range line {
		if bytes.IndexByte(delimiters, c) != -1 {
			return r.index + i
		}
	}

	return -1
}

// ConsumeIfEndOfLine skips the line terminator if the cursor lies right before it.
func (r *Reader) ConsumeIfEndOfLine() bool {
	if r.index != r.lineEnd() {
		return false
	}

	r.index = r.lineLimit
	return true
}

// ConsumeIfEmptyLine skips the current line if it contains nothing but the terminator,
// which ends the header section.
func (r *Reader) ConsumeIfEmptyLine() bool {
	if r.index != r.lineStart || r.lineLimit-r.lineStart != len(crlf) {
		return false
	}

	r.index = r.lineLimit
	return true
}

// CanBuffer ensures there's enough space for n bytes at the cursor, growing the memory
// if possible.
func (r *Reader) CanBuffer(n int) error {
	if r.index+n <= len(r.memory) {
		return nil
	}

	if n > r.maxSize {
		return ErrBodyTooLarge
	}

	r.compact()
	if n <= len(r.memory) {
		return nil
	}

	return r.grow(n, ErrBodyTooLarge)
}

// Read returns exactly n bytes from the cursor, blocking until all of them arrive. The
// returned slice is valid until the next ParseLine or Read call.
func (r *Reader) Read(n int) ([]byte, error) {
	if err := r.CanBuffer(n); err != nil {
		return nil, err
	}

	for r.filled-r.index < n {
		if err := r.fill(); err != nil {
			return nil, err
		}
	}

	data := r.memory[r.index : r.index+n]
	r.index += n
	r.lineStart, r.lineLimit = r.index, r.index

	return data, nil
}

// Slice returns the raw bytes between two absolute positions of the current line.
func (r *Reader) Slice(start, end int) []byte {
	return r.memory[start:end]
}

// String materializes the bytes between two absolute positions of the current line.
func (r *Reader) String(start, end int) string {
	return string(r.memory[start:end])
}

// Pos returns the absolute cursor position.
func (r *Reader) Pos() int {
	return r.index
}

// Seek moves the cursor within the current line.
func (r *Reader) Seek(pos int) {
	r.index = min(max(pos, r.index), r.lineEnd())
}

// LineEnd returns the absolute position of the current line's terminator.
func (r *Reader) LineEnd() int {
	return r.lineEnd()
}

// Buffered returns the number of bytes received but not consumed yet, e.g. pipelined
// requests.
func (r *Reader) Buffered() int {
	return r.filled - r.index
}

// Reset drops the consumed data, keeping pipelined leftovers at the beginning of the memory.
func (r *Reader) Reset() {
	r.compact()
	r.lineStart, r.lineLimit = 0, 0
}

// Cap returns the current capacity.
func (r *Reader) Cap() int {
	return len(r.memory)
}

func (r *Reader) lineEnd() int {
	if r.lineLimit-r.index < len(crlf) {
		return r.index
	}

	return r.lineLimit - len(crlf)
}

// more makes room for at least one more byte and reads whatever the stream returns.
func (r *Reader) more(tooLarge error) error {
	if r.filled == len(r.memory) {
		if r.index > 0 {
			r.compact()
		} else if err := r.grow(len(r.memory)+1, tooLarge); err != nil {
			return err
		}
	}

	return r.fill()
}

func (r *Reader) fill() error {
	if r.err != nil {
		return r.err
	}

	for {
		n, err := r.src.Read(r.memory[r.filled:])
		r.filled += n

		if err != nil {
			// data read along with an error is delivered first, the error is reported by
			// the next call
			r.err = err
			if n > 0 {
				return nil
			}

			return err
		}

		if n > 0 {
			return nil
		}
	}
}

func (r *Reader) grow(n int, tooLarge error) error {
	capacity, ok := NextCapacity(n, r.maxSize)
	if !ok {
		return tooLarge
	}

	memory := make([]byte, capacity)
	copy(memory, r.memory[:r.filled])
	r.memory = memory

	return nil
}

// compact moves the unconsumed data to the beginning of the memory.
func (r *Reader) compact() {
	if r.index == 0 {
		return
	}

	copy(r.memory, r.memory[r.index:r.filled])
	r.filled -= r.index
	r.lineStart = max(0, r.lineStart-r.index)
	r.lineLimit -= r.index
	r.index = 0
}
