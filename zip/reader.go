package zip

import (
	"bytes"
	"encoding/binary"
	"io"
	"sync/atomic"

	"github.com/coldharbor/deflate/checksum"
	"github.com/coldharbor/deflate/internal/blockcache"
	"github.com/coldharbor/deflate/internal/bytestream"
	"github.com/coldharbor/deflate/internal/flate"
)

var readerMonotonic uint64

// Reader is an opened, indexed zip archive backed by a single in-memory
// buffer.
type Reader struct {
	data    []byte
	entries []Entry
	byName  map[string]int

	id     uint64
	cache  *blockcache.Cache[[]byte]
	verify bool
}

// OpenOptions configures Open.
type OpenOptions struct {
	// VerifyChecksums, when true, re-checks each entry's CRC-32 against its
	// decompressed data at File() time, returning ErrChecksum on mismatch.
	// Off by default, since recomputing CRC-32 on every File() call costs
	// real time a caller that trusts its archive source doesn't need to
	// pay; VerifyEntry remains available for an explicit one-off check
	// regardless of this setting.
	VerifyChecksums bool
}

// Open indexes a zip archive's central directory, locating the EOCD with a
// backward scan tolerant of a trailing comment, as
// elliotnunn-BeHierarchic/internal/zip's getEOCD does.
func Open(data []byte, opts OpenOptions) (*Reader, error) {
	eocdOff, err := findEOCD(data)
	if err != nil {
		return nil, err
	}
	eocd := data[eocdOff:]
	if len(eocd) < 22 {
		return nil, ErrFormat
	}

	count := int(binary.LittleEndian.Uint16(eocd[10:12]))
	centralSize := binary.LittleEndian.Uint32(eocd[12:16])
	centralOffset := binary.LittleEndian.Uint32(eocd[16:20])

	if int64(centralOffset)+int64(centralSize) > int64(eocdOff) {
		return nil, ErrFormat
	}

	r := &Reader{
		data:   data,
		byName: make(map[string]int, count),
		id:     atomic.AddUint64(&readerMonotonic, 1),
		cache:  blockcache.New[[]byte](64),
		verify: opts.VerifyChecksums,
	}
	p := int(centralOffset)
	for i := 0; i < count; i++ {
		e, n, err := parseCentralRecord(data[p:])
		if err != nil {
			return nil, err
		}
		r.byName[e.Name] = len(r.entries)
		r.entries = append(r.entries, e)
		p += n
	}
	return r, nil
}

func parseCentralRecord(b []byte) (Entry, int, error) {
	if len(b) < 46 || binary.LittleEndian.Uint32(b[0:4]) != sigCentral {
		return Entry{}, 0, ErrFormat
	}

	flags := binary.LittleEndian.Uint16(b[8:10])
	method := binary.LittleEndian.Uint16(b[10:12])
	dosTime := binary.LittleEndian.Uint16(b[12:14])
	dosDate := binary.LittleEndian.Uint16(b[14:16])
	crc := binary.LittleEndian.Uint32(b[16:20])
	compSize := binary.LittleEndian.Uint32(b[20:24])
	size := binary.LittleEndian.Uint32(b[24:28])
	nameLen := int(binary.LittleEndian.Uint16(b[28:30]))
	extraLen := int(binary.LittleEndian.Uint16(b[30:32]))
	commentLen := int(binary.LittleEndian.Uint16(b[32:34]))
	localOffset := binary.LittleEndian.Uint32(b[42:46])

	total := 46 + nameLen + extraLen + commentLen
	if len(b) < total {
		return Entry{}, 0, ErrFormat
	}
	name := string(b[46 : 46+nameLen])

	e := Entry{
		Name:     name,
		ModTime:  msDosTimeToTime(dosDate, dosTime),
		CRC32:    crc,
		Size:     uint64(size),
		compSize: uint64(compSize),
		method:   method,
		flags:    flags,
		localOff: int64(localOffset),
	}
	return e, total, nil
}

// findEOCD scans backward for the End Of Central Directory signature whose
// comment-length field accounts exactly for the bytes after the record,
// tolerating an archive comment of up to 65535 bytes.
func findEOCD(data []byte) (int, error) {
	const minEOCD = 22
	const maxComment = 65535
	if len(data) < minEOCD {
		return 0, ErrFormat
	}

	start := len(data) - minEOCD - maxComment
	if start < 0 {
		start = 0
	}
	for i := len(data) - minEOCD; i >= start; i-- {
		if binary.LittleEndian.Uint32(data[i:i+4]) == sigEOCD &&
			i+minEOCD+int(binary.LittleEndian.Uint16(data[i+20:i+22])) == len(data) {
			return i, nil
		}
	}
	return 0, ErrFormat
}

// Names lists every entry name in central-directory order, skipping
// AppleDouble resource-fork sidecar entries (§10.4): files under
// __MACOSX/ or named ._<basename>, which a glob or directory listing from
// this library should not surface even though File() can still fetch them
// by their literal name.
func (r *Reader) Names() []string {
	var names []string
	for _, e := range r.entries {
		if isAppleDoubleSidecar(e.Name) {
			continue
		}
		names = append(names, e.Name)
	}
	return names
}

func isAppleDoubleSidecar(name string) bool {
	if len(name) >= len("__MACOSX/") && name[:len("__MACOSX/")] == "__MACOSX/" {
		return true
	}
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '/' {
			return i+2 < len(name) && name[i+1] == '.' && name[i+2] == '_'
		}
	}
	return len(name) >= 2 && name[0] == '.' && name[1] == '_'
}

// FileOptions configures a single File call.
type FileOptions struct {
	Password string
}

// File decompresses and returns the named entry's data.
func (r *Reader) File(name string, opts FileOptions) ([]byte, error) {
	idx, ok := r.byName[name]
	if !ok {
		return nil, ErrNotFound
	}
	e := r.entries[idx]

	cacheKey := blockcache.Key{Archive: r.id, Name: name + "\x00" + opts.Password}
	if cached, ok := r.cache.Get(cacheKey); ok {
		return cached, nil
	}

	body, err := r.localEntryBody(e)
	if err != nil {
		return nil, err
	}

	if e.encrypted() {
		if opts.Password == "" {
			return nil, ErrMissingPassword
		}
		if len(body) < zipCryptoHeaderLen {
			return nil, ErrFormat
		}
		var header [zipCryptoHeaderLen]byte
		copy(header[:], body[:zipCryptoHeaderLen])
		keys := newZCKeys(opts.Password)
		plain, err := decryptZipCrypto(keys, header, e.CRC32, body[zipCryptoHeaderLen:])
		if err != nil {
			return nil, err
		}
		body = plain
	}

	var out []byte
	switch Method(e.method) {
	case Store:
		out = body
	case Deflate:
		out, err = flate.Decode(bytes.NewReader(body), flate.Options{Hint: int(e.Size)})
	case methodXZ:
		out, err = decodeXZPassthrough(body)
	default:
		return nil, ErrUnsupportedMethod
	}
	if err != nil {
		return nil, err
	}

	if r.verify && checksum.CRC32(out) != e.CRC32 {
		return nil, ErrChecksum
	}

	r.cache.Add(cacheKey, out)
	return out, nil
}

// localEntryBody seeks past the local file header (whose lengths can
// occasionally drift from the central directory's, so it's trusted only
// for locating the data, never for sizes) and slices out exactly the
// compressed (and possibly encrypted) payload.
func (r *Reader) localEntryBody(e Entry) ([]byte, error) {
	if e.localOff < 0 || int(e.localOff)+30 > len(r.data) {
		return nil, ErrFormat
	}
	lh := r.data[e.localOff:]
	if binary.LittleEndian.Uint32(lh[0:4]) != sigLocalFile {
		return nil, ErrFormat
	}
	nameLen := int(binary.LittleEndian.Uint16(lh[26:28]))
	extraLen := int(binary.LittleEndian.Uint16(lh[28:30]))

	dataOff := e.localOff + 30 + int64(nameLen) + int64(extraLen)
	compSize := int64(e.compSize)
	end := dataOff + compSize
	if dataOff < 0 || end > int64(len(r.data)) {
		return nil, ErrFormat
	}

	section := bytestream.Section(byteReaderAt{r.data}, dataOff, compSize)
	buf := make([]byte, compSize)
	if _, err := section.ReadAt(buf, 0); err != nil && err != io.EOF {
		return nil, err
	}
	return buf, nil
}

type byteReaderAt struct{ b []byte }

func (r byteReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(r.b)) {
		return 0, io.EOF
	}
	n := copy(p, r.b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// VerifyEntry recomputes an entry's CRC-32 and compares it against the
// value recorded in the central directory.
func (r *Reader) VerifyEntry(name string, opts FileOptions) error {
	idx, ok := r.byName[name]
	if !ok {
		return ErrNotFound
	}
	data, err := r.File(name, opts)
	if err != nil {
		return err
	}
	if checksum.CRC32(data) != r.entries[idx].CRC32 {
		return ErrChecksum
	}
	return nil
}
