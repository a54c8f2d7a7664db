// Package zlib implements the RFC 1950 wrapper around raw DEFLATE: a
// 2-byte header (CMF/FLG) and a big-endian Adler-32 trailer.
package zlib

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"

	"github.com/coldharbor/deflate/checksum"
	"github.com/coldharbor/deflate/internal/flate"
)

var (
	ErrHeader       = errors.New("zlib: invalid header")
	ErrDictionary   = errors.New("zlib: preset dictionaries are not supported")
	ErrChecksum     = errors.New("zlib: checksum mismatch")
	ErrUnsupportedMethod = errors.New("zlib: unsupported compression method")
)

// Options configures Compress.
type Options struct {
	Strategy flate.Strategy
	Lazy     int
}

// Compress wraps src in a zlib stream.
func Compress(src []byte, opts Options) ([]byte, error) {
	var buf bytes.Buffer

	// CMF: CM=8 (deflate), CINFO=7 (32K window) -> 0x78.
	const cmf = 0x78
	// FLG: FLEVEL left at 0 (unknown), FDICT=0; low 5 bits chosen so the
	// 16-bit big-endian (CMF<<8|FLG) is a multiple of 31, per RFC 1950 §2.2.
	flg := byte((31 - (int(cmf)*256)%31) % 31)
	buf.WriteByte(cmf)
	buf.WriteByte(flg)

	if err := flate.Encode(&buf, src, flate.EncodeOptions{Strategy: opts.Strategy, Lazy: opts.Lazy}); err != nil {
		return nil, err
	}

	var trailer [4]byte
	binary.BigEndian.PutUint32(trailer[:], checksum.Adler32(src))
	buf.Write(trailer[:])

	return buf.Bytes(), nil
}

// DecompressOptions configures Decompress.
type DecompressOptions struct {
	// Verify, when true, recomputes the stream's Adler-32 and compares it
	// against the trailer, returning ErrChecksum on mismatch. Off by
	// default for speed, per the package's opt-in verification contract.
	Verify bool
}

// Decompress unwraps a zlib stream, optionally verifying its Adler-32
// trailer.
func Decompress(src []byte, opts DecompressOptions) ([]byte, error) {
	if len(src) < 6 {
		return nil, flate.ErrTruncated
	}
	cmf, flg := src[0], src[1]
	if (uint16(cmf)*256+uint16(flg))%31 != 0 {
		return nil, ErrHeader
	}
	if cmf&0x0f != 8 {
		return nil, ErrUnsupportedMethod
	}
	if flg&0x20 != 0 {
		return nil, ErrDictionary
	}

	body := src[2 : len(src)-4]
	out, err := flate.Decode(bytes.NewReader(body), flate.Options{})
	if err != nil {
		return nil, err
	}

	if opts.Verify {
		want := binary.BigEndian.Uint32(src[len(src)-4:])
		if checksum.Adler32(out) != want {
			return nil, ErrChecksum
		}
	}
	return out, nil
}

// Reader decompresses a zlib stream incrementally as bytes become
// available, built on flate.Stream the same way Decompress is built on
// flate.Decode.
type Reader struct {
	stream       *flate.Stream
	headerSeen   bool
	pendingHdr   []byte
	adler        uint32
	trailerBuf   []byte
}

// NewReader creates a streaming zlib decoder.
func NewReader() *Reader {
	return &Reader{stream: flate.NewStream(), adler: 1}
}

// Write feeds more compressed bytes in.
func (r *Reader) Write(p []byte) (int, error) {
	if !r.headerSeen {
		r.pendingHdr = append(r.pendingHdr, p...)
		if len(r.pendingHdr) < 2 {
			return len(p), nil
		}
		cmf, flg := r.pendingHdr[0], r.pendingHdr[1]
		if (uint16(cmf)*256+uint16(flg))%31 != 0 {
			return 0, ErrHeader
		}
		if flg&0x20 != 0 {
			return 0, ErrDictionary
		}
		r.headerSeen = true
		if _, err := r.stream.Write(r.pendingHdr[2:]); err != nil {
			return 0, err
		}
		return len(p), nil
	}
	return r.stream.Write(p)
}

// Decompress drains newly available output, running its Adler-32 forward.
func (r *Reader) Decompress() (produced []byte, done bool, err error) {
	produced, done, err = r.stream.Decompress()
	if err != nil {
		return nil, false, err
	}
	r.adler = checksum.UpdateAdler32(r.adler, produced)
	return produced, done, nil
}

var _ io.Writer = (*Reader)(nil)
