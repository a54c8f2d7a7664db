// Package gzip implements the RFC 1952 multi-member gzip wrapper around
// raw DEFLATE.
package gzip

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/coldharbor/deflate/checksum"
	"github.com/coldharbor/deflate/internal/blockcache"
	"github.com/coldharbor/deflate/internal/flate"
)

var memberCache = blockcache.New[[]Member](64)

const (
	idByte1  = 0x1f
	idByte2  = 0x8b
	cmDeflate = 8

	flagText    = 1 << 0
	flagHCRC    = 1 << 1
	flagExtra   = 1 << 2
	flagName    = 1 << 3
	flagComment = 1 << 4
)

var (
	ErrHeader            = errors.New("gzip: invalid header")
	ErrUnsupportedMethod = errors.New("gzip: unsupported compression method")
	ErrChecksum          = errors.New("gzip: CRC-32 checksum mismatch")
	ErrSize              = errors.New("gzip: uncompressed size mismatch")
	ErrHeaderChecksum    = errors.New("gzip: header CRC-16 mismatch")
)

// Header carries the optional, human-facing gzip member fields.
type Header struct {
	Name    string
	Comment string
	ModTime time.Time
	OS      byte
}

// Options configures Compress.
type Options struct {
	Header
	Strategy flate.Strategy
	Lazy     int
	// HCRC requests the optional FHCRC header checksum: a CRC-32 of the
	// header bytes preceding it, truncated to its low 16 bits.
	HCRC bool
}

// Compress wraps src as a single gzip member.
func Compress(src []byte, opts Options) ([]byte, error) {
	var buf bytes.Buffer

	flags := byte(0)
	if opts.Name != "" {
		flags |= flagName
	}
	if opts.Comment != "" {
		flags |= flagComment
	}
	if opts.HCRC {
		flags |= flagHCRC
	}

	buf.WriteByte(idByte1)
	buf.WriteByte(idByte2)
	buf.WriteByte(cmDeflate)
	buf.WriteByte(flags)

	var mtime uint32
	if !opts.ModTime.IsZero() {
		mtime = uint32(opts.ModTime.Unix())
	}
	var le4 [4]byte
	binary.LittleEndian.PutUint32(le4[:], mtime)
	buf.Write(le4[:])

	buf.WriteByte(0) // XFL: no compression-level hint
	os := opts.OS
	if os == 0 {
		os = 255 // unknown, RFC 1952 §2.3.1's default
	}
	buf.WriteByte(os)

	if flags&flagName != 0 {
		buf.WriteString(opts.Name)
		buf.WriteByte(0)
	}
	if flags&flagComment != 0 {
		buf.WriteString(opts.Comment)
		buf.WriteByte(0)
	}

	if flags&flagHCRC != 0 {
		hcrc := uint16(checksum.CRC32(buf.Bytes()))
		var le2 [2]byte
		binary.LittleEndian.PutUint16(le2[:], hcrc)
		buf.Write(le2[:])
	}

	if err := flate.Encode(&buf, src, flate.EncodeOptions{Strategy: opts.Strategy, Lazy: opts.Lazy}); err != nil {
		return nil, err
	}

	var trailer [8]byte
	binary.LittleEndian.PutUint32(trailer[0:4], checksum.CRC32(src))
	binary.LittleEndian.PutUint32(trailer[4:8], uint32(len(src)))
	buf.Write(trailer[:])

	return buf.Bytes(), nil
}

// Member is one decoded gzip member, gzip's unit of concatenation: RFC
// 1952 §2 explicitly allows multiple members back to back in one stream.
type Member struct {
	Header
	Data []byte
}

// DecompressOptions configures Decompress.
type DecompressOptions struct {
	// Verify, when true, recomputes and checks each member's FHCRC header
	// checksum (if present) and its CRC-32/ISIZE trailer, returning
	// ErrHeaderChecksum, ErrChecksum or ErrSize on mismatch. Off by
	// default for speed, per the package's opt-in verification contract.
	Verify bool
}

// Decompress unwraps every member in src. Callers that repeatedly
// Decompress the same byte slice (e.g. re-reading an unchanged buffer) hit
// a shared cache keyed by the slice's own CRC-32 and the verify setting
// used, so the DEFLATE decode for every member in it only actually runs
// once per distinct setting.
func Decompress(src []byte, opts DecompressOptions) ([]Member, error) {
	cacheKey := blockcache.Key{Archive: uint64(checksum.CRC32(src)), Name: fmt.Sprintf("len%d-verify%t", len(src), opts.Verify)}
	if cached, ok := memberCache.Get(cacheKey); ok {
		return cached, nil
	}

	var members []Member
	r := bytes.NewReader(src)

	for r.Len() > 0 {
		m, err := decodeMember(r, opts.Verify)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}

	memberCache.Add(cacheKey, members)
	return members, nil
}

func decodeMember(r *bytes.Reader, verify bool) (Member, error) {
	var hdrBuf bytes.Buffer

	var fixed [10]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return Member{}, flate.ErrTruncated
	}
	hdrBuf.Write(fixed[:])
	if fixed[0] != idByte1 || fixed[1] != idByte2 {
		return Member{}, ErrHeader
	}
	if fixed[2] != cmDeflate {
		return Member{}, ErrUnsupportedMethod
	}
	flags := fixed[3]
	mtime := binary.LittleEndian.Uint32(fixed[4:8])
	osField := fixed[9]

	var hdr Header
	hdr.ModTime = time.Unix(int64(mtime), 0)
	hdr.OS = osField

	if flags&flagExtra != 0 {
		var lenBuf [2]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return Member{}, flate.ErrTruncated
		}
		hdrBuf.Write(lenBuf[:])
		n := binary.LittleEndian.Uint16(lenBuf[:])
		extra := make([]byte, n)
		if _, err := io.ReadFull(r, extra); err != nil {
			return Member{}, flate.ErrTruncated
		}
		hdrBuf.Write(extra)
	}
	if flags&flagName != 0 {
		s, raw, err := readCString(r)
		if err != nil {
			return Member{}, err
		}
		hdrBuf.Write(raw)
		hdr.Name = s
	}
	if flags&flagComment != 0 {
		s, raw, err := readCString(r)
		if err != nil {
			return Member{}, err
		}
		hdrBuf.Write(raw)
		hdr.Comment = s
	}
	if flags&flagHCRC != 0 {
		var hcrc [2]byte
		if _, err := io.ReadFull(r, hcrc[:]); err != nil {
			return Member{}, flate.ErrTruncated
		}
		if verify {
			want := binary.LittleEndian.Uint16(hcrc[:])
			got := uint16(checksum.CRC32(hdrBuf.Bytes()))
			if got != want {
				return Member{}, ErrHeaderChecksum
			}
		}
	}

	data, err := flate.Decode(r, flate.Options{})
	if err != nil {
		return Member{}, err
	}

	var trailer [8]byte
	if _, err := io.ReadFull(r, trailer[:]); err != nil {
		return Member{}, flate.ErrTruncated
	}

	if verify {
		wantCRC := binary.LittleEndian.Uint32(trailer[0:4])
		wantSize := binary.LittleEndian.Uint32(trailer[4:8])
		if checksum.CRC32(data) != wantCRC {
			return Member{}, ErrChecksum
		}
		if uint32(len(data)) != wantSize {
			return Member{}, ErrSize
		}
	}

	return Member{Header: hdr, Data: data}, nil
}

// readCString reads a NUL-terminated string, returning both the decoded
// string and the raw bytes (including the terminator) so callers can feed
// them into an FHCRC computation.
func readCString(r *bytes.Reader) (s string, raw []byte, err error) {
	var b []byte
	for {
		c, err := r.ReadByte()
		if err != nil {
			return "", nil, flate.ErrTruncated
		}
		b = append(b, c)
		if c == 0 {
			break
		}
	}
	return string(b[:len(b)-1]), b, nil
}
