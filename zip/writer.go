package zip

import (
	"crypto/rand"
	"encoding/binary"
	"time"

	"github.com/coldharbor/deflate/checksum"
	"github.com/coldharbor/deflate/internal/bytestream"
	"github.com/coldharbor/deflate/internal/flate"
)

// EntryOptions configures a single Add call.
type EntryOptions struct {
	ModTime  time.Time
	Method   Method
	Password string
	Strategy flate.Strategy
}

// Method selects a zip entry's compression method. Writer only ever emits
// Store or Deflate; Method 95 (XZ) is accepted on read only, see
// xzmethod.go.
type Method uint16

const (
	Store   Method = methodStore
	Deflate Method = methodDeflate
)

type pendingEntry struct {
	name       string
	modTime    time.Time
	method     Method
	crc32      uint32
	size       uint64
	compressed []byte
	flags      uint16
}

// Writer builds a zip archive in memory, one entry at a time.
type Writer struct {
	entries []pendingEntry
}

// NewWriter returns an empty archive builder.
func NewWriter() *Writer {
	return &Writer{}
}

// Add compresses src and appends it to the archive under name.
func (w *Writer) Add(name string, src []byte, opts EntryOptions) error {
	crc := checksum.CRC32(src)

	var body []byte
	switch opts.Method {
	case Deflate:
		buf := bytestream.NewBuffer(len(src))
		if err := flate.Encode(buf, src, flate.EncodeOptions{Strategy: opts.Strategy}); err != nil {
			return err
		}
		body = buf.Bytes()
	case Store:
		body = src
	default:
		return ErrUnsupportedMethod
	}

	flags := uint16(0)
	if opts.Password != "" {
		flags |= flagEncrypted
		keys := newZCKeys(opts.Password)
		var rnd [zipCryptoHeaderLen]byte
		rand.Read(rnd[:])
		header, cipher := encryptZipCrypto(keys, rnd, crc, body)
		body = append(append([]byte{}, header[:]...), cipher...)
	}

	w.entries = append(w.entries, pendingEntry{
		name:       name,
		modTime:    opts.ModTime,
		method:     opts.Method,
		crc32:      crc,
		size:       uint64(len(src)),
		compressed: body,
		flags:      flags,
	})
	return nil
}

// Build serializes every added entry into a complete zip archive: local
// file headers and data, then the central directory, then the EOCD.
func (w *Writer) Build() ([]byte, error) {
	buf := bytestream.NewBuffer(0)

	type centralRecord struct {
		entry  pendingEntry
		offset uint32
	}
	var central []centralRecord

	for _, e := range w.entries {
		offset := uint32(buf.Len())
		writeLocalHeader(buf, e)
		buf.Write(e.compressed)
		central = append(central, centralRecord{entry: e, offset: offset})
	}

	centralStart := buf.Len()
	for _, c := range central {
		writeCentralHeader(buf, c.entry, c.offset)
	}
	centralSize := buf.Len() - centralStart

	writeEOCD(buf, len(central), centralSize, centralStart)

	return buf.Bytes(), nil
}

func writeLocalHeader(buf *bytestream.Buffer, e pendingEntry) {
	var hdr [30]byte
	binary.LittleEndian.PutUint32(hdr[0:4], sigLocalFile)
	binary.LittleEndian.PutUint16(hdr[4:6], 20) // version needed to extract
	binary.LittleEndian.PutUint16(hdr[6:8], e.flags)
	binary.LittleEndian.PutUint16(hdr[8:10], uint16(e.method))

	dosDate, dosTime := timeToMsDos(e.modTime)
	binary.LittleEndian.PutUint16(hdr[10:12], dosTime)
	binary.LittleEndian.PutUint16(hdr[12:14], dosDate)

	binary.LittleEndian.PutUint32(hdr[14:18], e.crc32)
	binary.LittleEndian.PutUint32(hdr[18:22], uint32(len(e.compressed)))
	binary.LittleEndian.PutUint32(hdr[22:26], uint32(e.size))
	binary.LittleEndian.PutUint16(hdr[26:28], uint16(len(e.name)))
	binary.LittleEndian.PutUint16(hdr[28:30], 0) // extra field length

	buf.Write(hdr[:])
	buf.Write([]byte(e.name))
}

func writeCentralHeader(buf *bytestream.Buffer, e pendingEntry, localOffset uint32) {
	var hdr [46]byte
	binary.LittleEndian.PutUint32(hdr[0:4], sigCentral)
	binary.LittleEndian.PutUint16(hdr[4:6], 20) // version made by
	binary.LittleEndian.PutUint16(hdr[6:8], 20) // version needed
	binary.LittleEndian.PutUint16(hdr[8:10], e.flags)
	binary.LittleEndian.PutUint16(hdr[10:12], uint16(e.method))

	dosDate, dosTime := timeToMsDos(e.modTime)
	binary.LittleEndian.PutUint16(hdr[12:14], dosTime)
	binary.LittleEndian.PutUint16(hdr[14:16], dosDate)

	binary.LittleEndian.PutUint32(hdr[16:20], e.crc32)
	binary.LittleEndian.PutUint32(hdr[20:24], uint32(len(e.compressed)))
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(e.size))
	binary.LittleEndian.PutUint16(hdr[28:30], uint16(len(e.name)))
	binary.LittleEndian.PutUint16(hdr[30:32], 0) // extra length
	binary.LittleEndian.PutUint16(hdr[32:34], 0) // comment length
	binary.LittleEndian.PutUint16(hdr[34:36], 0) // disk number start
	binary.LittleEndian.PutUint16(hdr[36:38], 0) // internal attrs
	binary.LittleEndian.PutUint32(hdr[38:42], 0) // external attrs
	binary.LittleEndian.PutUint32(hdr[42:46], localOffset)

	buf.Write(hdr[:])
	buf.Write([]byte(e.name))
}

func writeEOCD(buf *bytestream.Buffer, count, centralSize, centralOffset int) {
	var eocd [22]byte
	binary.LittleEndian.PutUint32(eocd[0:4], sigEOCD)
	binary.LittleEndian.PutUint16(eocd[4:6], 0) // disk number
	binary.LittleEndian.PutUint16(eocd[6:8], 0) // disk with central dir
	binary.LittleEndian.PutUint16(eocd[8:10], uint16(count))
	binary.LittleEndian.PutUint16(eocd[10:12], uint16(count))
	binary.LittleEndian.PutUint32(eocd[12:16], uint32(centralSize))
	binary.LittleEndian.PutUint32(eocd[16:20], uint32(centralOffset))
	binary.LittleEndian.PutUint16(eocd[20:22], 0) // comment length
	buf.Write(eocd[:])
}
