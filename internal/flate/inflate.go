// Package flate implements raw DEFLATE (RFC 1951) encoding and decoding.
// The zlib and gzip packages wrap this with their own header/trailer
// formats; the zip package uses it directly as compression method 8.
package flate

import (
	"errors"
	"io"
	"sync"

	"github.com/coldharbor/deflate/internal/bitio"
	"github.com/coldharbor/deflate/internal/huffman"
)

// Error kinds a decoder can fail with. Every one maps to a sentinel so
// callers can errors.Is against it regardless of which wrapper surfaced
// the failure.
var (
	ErrTruncated       = errors.New("flate: truncated input")
	ErrMalformedCode   = errors.New("flate: malformed Huffman code")
	ErrInvalidDistance = errors.New("flate: back-reference distance before start of output")
	ErrReservedBlock   = errors.New("flate: reserved block type")
)

var (
	fixedOnce        sync.Once
	fixedLitLenTable huffman.DecodeTable
	fixedDistTable   huffman.DecodeTable
)

func initFixedTables() {
	fixedOnce.Do(func() {
		fixedLitLenTable.Init(fixedLitLenLengths)
		fixedDistTable.Init(fixedDistLengths)
	})
}

// Mode selects how the one-shot decoder grows its output buffer.
type Mode int

const (
	// Block mode preallocates a fixed-size working slab (MaxBackwardLength
	// + bufferSize + MaxCopyLength) and, once it fills, copies the
	// trailing window back to the start and flushes the completed prefix
	// to a slab list, the shape a streaming consumer wants.
	Block Mode = iota
	// Adaptive mode starts at bufferSize and grows by the smaller of
	// doubling or an estimate of the remaining inflated size, derived from
	// how many input bits the current block's literal/length table spends
	// per symbol.
	Adaptive
)

// estimateFactor is the average number of output bytes RFC 1951 lets one
// length/distance symbol produce (up to MaxCopyLen, less the overhead of
// needing a distance code too); Adaptive mode's growth estimate divides
// remaining input by the table's widest code and multiplies by this.
const estimateFactor = 129

// Options configures the one-shot Decode call.
type Options struct {
	Mode Mode
	// Hint is the starting buffer size ("bufferSize" in both strategies).
	// Zero means "no idea", defaulting to a small size.
	Hint int
	// Resize, when true, truncates the returned buffer's capacity down to
	// its exact length before returning.
	Resize bool
}

// lenReader is implemented by *bytes.Reader and similar: a reader that
// knows its own remaining length, which Adaptive mode uses to estimate how
// much more output is coming.
type lenReader interface{ Len() int }

// countingByteReader counts bytes actually consumed from the underlying
// stream, since bitio.Reader may buffer a few bits ahead of what the
// caller's accounting would expect.
type countingByteReader struct {
	io.ByteReader
	n int
}

func (c *countingByteReader) ReadByte() (byte, error) {
	b, err := c.ByteReader.ReadByte()
	if err == nil {
		c.n++
	}
	return b, err
}

// Decode inflates a complete raw DEFLATE stream from r. Unlike bufio, this
// never reads past the final block's last byte, so callers that have more
// data immediately following the stream (a gzip trailer, the next gzip
// member, a zip entry's data descriptor) can keep reading r right where
// Decode left off.
func Decode(r io.Reader, opts Options) ([]byte, error) {
	initFixedTables()

	counter := &countingByteReader{ByteReader: asByteReader(r)}
	d := &decoder{in: bitio.NewReader(counter), mode: opts.Mode, counter: counter}

	d.bufferSize = opts.Hint
	if d.bufferSize <= 0 {
		d.bufferSize = 4096
	}
	if lr, ok := r.(lenReader); ok {
		d.totalInputLen = lr.Len()
	}

	switch opts.Mode {
	case Block:
		d.out = make([]byte, 0, maxBackwardLen+d.bufferSize+maxCopyLen)
	default:
		d.out = make([]byte, 0, d.bufferSize)
	}

	for {
		final, err := d.block()
		if err != nil {
			return nil, err
		}
		if final {
			break
		}
	}
	return d.finish(opts), nil
}

type decoder struct {
	in  *bitio.Reader
	out []byte

	mode          Mode
	bufferSize    int
	totalInputLen int
	counter       *countingByteReader
	curMaxLen     int      // widest code in the block's current literal/length table
	slabs         [][]byte // Block mode's flushed prefixes, oldest first
}

// ensureRoom makes sure at least need bytes of spare capacity exist in
// d.out before the caller appends, applying whichever growth strategy the
// decoder was configured with.
func (d *decoder) ensureRoom(need int) {
	if cap(d.out)-len(d.out) >= need {
		return
	}
	if d.mode == Block {
		d.compact()
	} else {
		d.growAdaptive(need)
	}
}

// compact flushes everything in d.out before the trailing MaxBackwardLength
// window to a slab, so the window can keep resolving back-references
// without the buffer growing past its preallocated size.
func (d *decoder) compact() {
	if len(d.out) <= maxBackwardLen {
		return
	}
	flush := len(d.out) - maxBackwardLen
	slab := make([]byte, flush)
	copy(slab, d.out[:flush])
	d.slabs = append(d.slabs, slab)

	kept := make([]byte, maxBackwardLen, maxBackwardLen+d.bufferSize+maxCopyLen)
	copy(kept, d.out[flush:])
	d.out = kept
}

// growAdaptive grows d.out by the smaller of doubling or an estimate of the
// remaining inflated size, per Adaptive mode's growth formula.
func (d *decoder) growAdaptive(need int) {
	remaining := 0
	if d.totalInputLen > 0 {
		remaining = d.totalInputLen - d.counter.n
		if remaining < 0 {
			remaining = 0
		}
	}
	maxLen := d.curMaxLen
	if maxLen <= 0 {
		maxLen = 1
	}

	byEstimate := len(d.out) + (remaining/maxLen)*estimateFactor
	byDouble := cap(d.out) * 2
	newCap := byDouble
	if byEstimate > 0 && byEstimate < newCap {
		newCap = byEstimate
	}
	if newCap < len(d.out)+need {
		newCap = len(d.out) + need
	}

	grown := make([]byte, len(d.out), newCap)
	copy(grown, d.out)
	d.out = grown
}

// finish assembles the final returned buffer: Block mode's flushed slabs
// followed by whatever remains in d.out, optionally shrunk to its exact
// length when Resize is set.
func (d *decoder) finish(opts Options) []byte {
	out := d.out
	if len(d.slabs) > 0 {
		total := len(d.out)
		for _, s := range d.slabs {
			total += len(s)
		}
		combined := make([]byte, 0, total)
		for _, s := range d.slabs {
			combined = append(combined, s...)
		}
		out = append(combined, d.out...)
	}
	if opts.Resize {
		trimmed := make([]byte, len(out))
		copy(trimmed, out)
		out = trimmed
	}
	return out
}

// asByteReader adapts an arbitrary io.Reader to io.ByteReader one byte at a
// time, deliberately not buffering ahead the way bufio.Reader would.
func asByteReader(r io.Reader) io.ByteReader {
	if br, ok := r.(io.ByteReader); ok {
		return br
	}
	return &singleByteReader{r}
}

type singleByteReader struct{ r io.Reader }

func (s *singleByteReader) ReadByte() (byte, error) {
	var b [1]byte
	n, err := s.r.Read(b[:])
	if n == 1 {
		return b[0], nil
	}
	if err == nil {
		err = io.ErrNoProgress
	}
	return 0, err
}

func (d *decoder) block() (final bool, err error) {
	bfinal, err := d.in.ReadBit()
	if err != nil {
		return false, ErrTruncated
	}
	btype, err := d.in.ReadBits(2)
	if err != nil {
		return false, ErrTruncated
	}

	switch btype {
	case 0:
		err = d.storedBlock()
	case 1:
		d.curMaxLen = fixedLitLenTable.MaxLen()
		err = d.huffmanBlock(&fixedLitLenTable, &fixedDistTable)
	case 2:
		var lit, dist huffman.DecodeTable
		if err = d.readDynamicTables(&lit, &dist); err == nil {
			d.curMaxLen = lit.MaxLen()
			err = d.huffmanBlock(&lit, &dist)
		}
	default:
		err = ErrReservedBlock
	}
	return bfinal == 1, err
}

func (d *decoder) storedBlock() error {
	d.in.Align()

	lenLo, err := d.in.ReadByte()
	if err != nil {
		return ErrTruncated
	}
	lenHi, err := d.in.ReadByte()
	if err != nil {
		return ErrTruncated
	}
	nlenLo, err := d.in.ReadByte()
	if err != nil {
		return ErrTruncated
	}
	nlenHi, err := d.in.ReadByte()
	if err != nil {
		return ErrTruncated
	}

	length := uint16(lenLo) | uint16(lenHi)<<8
	nlength := uint16(nlenLo) | uint16(nlenHi)<<8
	if length != ^nlength {
		return ErrMalformedCode
	}

	for i := uint16(0); i < length; i++ {
		b, err := d.in.ReadByte()
		if err != nil {
			return ErrTruncated
		}
		d.appendByte(b)
	}
	return nil
}

// appendByte appends a single decoded byte, growing or compacting d.out
// first if its current strategy requires it.
func (d *decoder) appendByte(b byte) {
	d.ensureRoom(1)
	d.out = append(d.out, b)
}

func (d *decoder) readDynamicTables(lit, dist *huffman.DecodeTable) error {
	hlit, err := d.in.ReadBits(5)
	if err != nil {
		return ErrTruncated
	}
	hdist, err := d.in.ReadBits(5)
	if err != nil {
		return ErrTruncated
	}
	hclen, err := d.in.ReadBits(4)
	if err != nil {
		return ErrTruncated
	}
	nlit := int(hlit) + 257
	ndist := int(hdist) + 1
	nclen := int(hclen) + 4

	clLengths := make([]int, numCLSymbols)
	for i := 0; i < nclen; i++ {
		v, err := d.in.ReadBits(3)
		if err != nil {
			return ErrTruncated
		}
		clLengths[codeLengthOrder[i]] = int(v)
	}

	var clTable huffman.DecodeTable
	if !clTable.Init(clLengths) {
		return ErrMalformedCode
	}

	lengths := make([]int, nlit+ndist)
	for i := 0; i < len(lengths); {
		sym, err := d.readSym(&clTable)
		if err != nil {
			return err
		}
		switch {
		case sym < 16:
			lengths[i] = sym
			i++
		case sym == 16:
			if i == 0 {
				return ErrMalformedCode
			}
			n, err := d.in.ReadBits(2)
			if err != nil {
				return ErrTruncated
			}
			prev := lengths[i-1]
			for c := 0; c < int(n)+3; c++ {
				if i >= len(lengths) {
					return ErrMalformedCode
				}
				lengths[i] = prev
				i++
			}
		case sym == 17:
			n, err := d.in.ReadBits(3)
			if err != nil {
				return ErrTruncated
			}
			for c := 0; c < int(n)+3; c++ {
				if i >= len(lengths) {
					return ErrMalformedCode
				}
				lengths[i] = 0
				i++
			}
		case sym == 18:
			n, err := d.in.ReadBits(7)
			if err != nil {
				return ErrTruncated
			}
			for c := 0; c < int(n)+11; c++ {
				if i >= len(lengths) {
					return ErrMalformedCode
				}
				lengths[i] = 0
				i++
			}
		default:
			return ErrMalformedCode
		}
	}

	if !lit.Init(lengths[:nlit]) {
		return ErrMalformedCode
	}
	if !dist.Init(lengths[nlit:]) {
		return ErrMalformedCode
	}
	return nil
}

// readSym resolves the next code through the decode table, peeking one
// more bit at a time (starting at the table's shortest code) until the bits
// seen resolve to a code no longer than them. It therefore never pulls in
// an input byte past the one holding the code's last bit, which is what
// lets Decode stop exactly at the end of the final block.
func (d *decoder) readSym(h *huffman.DecodeTable) (int, error) {
	n := uint(h.MinLen())
	if n == 0 {
		return 0, ErrMalformedCode
	}
	for ; n <= 16; n++ {
		b, err := d.in.Peek(n)
		if err != nil {
			return 0, ErrTruncated
		}
		if sym, used := h.Lookup(b); used > 0 && used <= n {
			d.in.Discard(used)
			return sym, nil
		}
	}
	return 0, ErrMalformedCode
}

func (d *decoder) huffmanBlock(lit, dist *huffman.DecodeTable) error {
	for {
		sym, err := d.readSym(lit)
		if err != nil {
			return err
		}
		switch {
		case sym < 256:
			d.appendByte(byte(sym))
		case sym == endOfBlock:
			return nil
		default:
			idx := sym - 257
			if idx < 0 || idx >= len(lengthBase) {
				return ErrMalformedCode
			}
			length := lengthBase[idx]
			if nb := lengthExtraBits[idx]; nb > 0 {
				v, err := d.in.ReadBits(nb)
				if err != nil {
					return ErrTruncated
				}
				length += int(v)
			}

			dsym, err := d.readSym(dist)
			if err != nil {
				return err
			}
			if dsym < 0 || dsym >= len(distBase) {
				return ErrMalformedCode
			}
			distance := distBase[dsym]
			if nb := distExtraBits[dsym]; nb > 0 {
				v, err := d.in.ReadBits(nb)
				if err != nil {
					return ErrTruncated
				}
				distance += int(v)
			}

			d.ensureRoom(length)
			if distance > len(d.out) {
				return ErrInvalidDistance
			}

			start := len(d.out) - distance
			for i := 0; i < length; i++ {
				d.out = append(d.out, d.out[start+i])
			}
		}
	}
}
