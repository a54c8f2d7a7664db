package zlib

import (
	"bytes"
	gozlib "compress/zlib"
	"io"
	"math/rand/v2"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 5))
	src := make([]byte, 30000)
	for i := range src {
		src[i] = byte(rng.IntN(6)) // low entropy, compresses well
	}

	out, err := Compress(src, Options{})
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decompress(out, DecompressOptions{Verify: true})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, src) {
		t.Fatal("round trip mismatch")
	}
}

func TestDecompressVsStdlib(t *testing.T) {
	rng := rand.New(rand.NewPCG(6, 6))
	src := make([]byte, 10000)
	for i := range src {
		src[i] = byte(rng.Uint32())
	}

	var buf bytes.Buffer
	w := gozlib.NewWriter(&buf)
	w.Write(src)
	w.Close()

	got, err := Decompress(buf.Bytes(), DecompressOptions{Verify: true})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, src) {
		t.Fatal("mismatch decoding stdlib zlib output")
	}
}

func TestCompressVsStdlibReader(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	src := make([]byte, 10000)
	for i := range src {
		src[i] = byte(rng.IntN(10))
	}

	out, err := Compress(src, Options{})
	if err != nil {
		t.Fatal(err)
	}

	r, err := gozlib.NewReader(bytes.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, src) {
		t.Fatal("stdlib could not decode our stream")
	}
}

func TestBadChecksumRejected(t *testing.T) {
	src := []byte("hello world")
	out, err := Compress(src, Options{})
	if err != nil {
		t.Fatal(err)
	}
	out[len(out)-1] ^= 0xff
	if _, err := Decompress(out, DecompressOptions{Verify: true}); err != ErrChecksum {
		t.Fatalf("got %v want ErrChecksum", err)
	}
}

func TestVerifyOffByDefaultSkipsChecksum(t *testing.T) {
	src := []byte("hello world")
	out, err := Compress(src, Options{})
	if err != nil {
		t.Fatal(err)
	}
	out[len(out)-1] ^= 0xff
	got, err := Decompress(out, DecompressOptions{})
	if err != nil {
		t.Fatalf("verify=false should not error on a bad trailer: %v", err)
	}
	if !bytes.Equal(got, src) {
		t.Fatal("decompressed data mismatch")
	}
}
