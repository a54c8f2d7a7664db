package flate

import (
	"io"

	"github.com/coldharbor/deflate/internal/bitio"
)

// byteCursor is a growable byte buffer read through io.ByteReader, with a
// position that can be rewound — the primitive a resumable bit reader
// needs that a plain io.Reader can't offer.
type byteCursor struct {
	buf []byte
	pos int
}

func (c *byteCursor) ReadByte() (byte, error) {
	if c.pos >= len(c.buf) {
		return 0, io.EOF
	}
	b := c.buf[c.pos]
	c.pos++
	return b, nil
}

func (c *byteCursor) append(p []byte) {
	c.buf = append(c.buf, p...)
}

// compact drops bytes before pos once they've grown past a threshold, so a
// long-lived stream doesn't retain every byte it was ever fed.
func (c *byteCursor) compact() {
	const keepSlack = 1 << 16
	if c.pos < keepSlack {
		return
	}
	c.buf = append(c.buf[:0], c.buf[c.pos:]...)
	c.pos = 0
}

// Stream is a resumable raw-DEFLATE decoder: bytes arrive incrementally via
// Write, and Decompress drains as much output as the input fed so far
// allows, leaving the decoder's input position snapshotted at the start of
// the first block it could not complete so a later call can pick up
// exactly where it left off. This mirrors
// elliotnunn-BeHierarchic/internal/flate's checkpoint/resume design, but
// checkpoints the bit accumulator directly (via bitio.Reader's
// Snapshot/Restore) rather than recomputing a window from scratch.
type Stream struct {
	d        decoder
	cur      *byteCursor
	finished bool
}

// NewStream creates a Stream ready to receive compressed bytes.
func NewStream() *Stream {
	initFixedTables()
	c := &byteCursor{}
	return &Stream{
		cur: c,
		d:   decoder{in: bitio.NewReader(c), out: make([]byte, 0, 4096)},
	}
}

// Write appends more compressed bytes for the stream to consider. It never
// fails; io.Writer is implemented only for convenience (io.Copy(stream, r)).
func (s *Stream) Write(p []byte) (int, error) {
	s.cur.append(p)
	return len(p), nil
}

// Finished reports whether the stream has already decoded a final block.
func (s *Stream) Finished() bool { return s.finished }

// Decompress advances the decoder as far as the input written so far
// allows and returns the newly produced output. It never returns bytes it
// will later retract: on starvation mid-block it rewinds to the last
// completed block boundary and waits for more input.
func (s *Stream) Decompress() (produced []byte, done bool, err error) {
	if s.finished {
		return nil, true, nil
	}

	start := len(s.d.out)
	for {
		posSnap := s.cur.pos
		bitSnap := s.d.in.Snapshot()
		outSnap := len(s.d.out)

		final, berr := s.d.block()
		// A compaction during the block moves the front of d.out into
		// d.slabs; fold it back so start and outSnap still index d.out.
		s.d.out, s.d.slabs = s.d.finish(Options{}), nil
		if berr != nil {
			if isStarvation(berr) {
				s.cur.pos = posSnap
				s.d.in.Restore(bitSnap)
				s.d.out = s.d.out[:outSnap] // drop the incomplete block's output
				s.cur.compact()
				return s.d.out[start:], false, nil
			}
			return s.d.out[start:], false, berr
		}
		if final {
			s.finished = true
			return s.d.out[start:], true, nil
		}
	}
}

// isStarvation reports whether err means "not enough input yet" as opposed
// to a genuine format error. Raw DEFLATE has only one way to run out of
// bits cleanly: ErrTruncated, since a truly malformed code or distance is
// detected regardless of how much input remains.
func isStarvation(err error) bool {
	return err == ErrTruncated
}
