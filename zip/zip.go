// Package zip implements reading and writing of PKZIP archives: local file
// headers, central directory, and the End Of Central Directory record,
// with STORE and DEFLATE compression and optional ZipCrypto encryption.
//
// The central-directory walk and EOCD backward scan are adapted from
// elliotnunn-BeHierarchic's internal/zip, generalized from that package's
// read-only fs.FS view into a plain archive reader/writer pair.
package zip

import (
	"errors"
	"time"
)

const (
	methodStore   = 0
	methodDeflate = 8
	methodXZ      = 95 // read-only passthrough, see xzmethod.go

	sigLocalFile = 0x04034b50
	sigCentral   = 0x02014b50
	sigEOCD      = 0x06054b50

	flagEncrypted = 1 << 0
	flagUTF8      = 1 << 11
)

var (
	ErrFormat            = errors.New("zip: not a valid zip archive")
	ErrChecksum          = errors.New("zip: CRC-32 checksum mismatch")
	ErrUnsupportedMethod = errors.New("zip: unsupported compression method")
	ErrMissingPassword   = errors.New("zip: entry is encrypted and no password was given")
	ErrBadPassword       = errors.New("zip: password did not match the entry's CRC marker")
	ErrNotFound          = errors.New("zip: no such entry")
)

// Entry describes one file inside an archive, as recorded in its central
// directory record.
type Entry struct {
	Name       string
	ModTime    time.Time
	CRC32      uint32
	Size       uint64 // uncompressed
	compSize   uint64
	method     uint16
	flags      uint16
	localOff   int64
}

func (e Entry) encrypted() bool { return e.flags&flagEncrypted != 0 }
