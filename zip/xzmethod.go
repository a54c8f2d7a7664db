package zip

import (
	"bytes"
	"io"

	"github.com/therootcompany/xz"
)

// decodeXZPassthrough decompresses a zip entry stored with the
// non-standard method 95 (the PKWARE APPNOTE reserves it for XZ), a
// read-only feature no conforming writer in this library emits. Grounded
// on elliotnunn-BeHierarchic's probe.go/fs.go, which reach for the same
// xz.NewReader to open a bare .xz file's inner stream.
func decodeXZPassthrough(body []byte) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(body), xz.DefaultDictMax)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}
