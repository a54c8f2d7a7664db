package gzip

import (
	"bytes"
	gogzip "compress/gzip"
	"io"
	"math/rand/v2"
	"testing"
	"time"
)

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(8, 8))
	src := make([]byte, 40000)
	for i := range src {
		src[i] = byte(rng.IntN(8))
	}

	out, err := Compress(src, Options{Header: Header{Name: "data.bin", ModTime: time.Unix(1700000000, 0)}})
	if err != nil {
		t.Fatal(err)
	}

	members, err := Decompress(out, DecompressOptions{Verify: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 1 {
		t.Fatalf("got %d members want 1", len(members))
	}
	if !bytes.Equal(members[0].Data, src) {
		t.Fatal("data mismatch")
	}
	if members[0].Name != "data.bin" {
		t.Fatalf("name got %q", members[0].Name)
	}
}

func TestMultiMember(t *testing.T) {
	a, _ := Compress([]byte("first"), Options{})
	b, _ := Compress([]byte("second"), Options{})

	members, err := Decompress(append(a, b...), DecompressOptions{Verify: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 2 {
		t.Fatalf("got %d members want 2", len(members))
	}
	if string(members[0].Data) != "first" || string(members[1].Data) != "second" {
		t.Fatalf("unexpected member data: %q %q", members[0].Data, members[1].Data)
	}
}

func TestDecompressVsStdlib(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 9))
	src := make([]byte, 10000)
	for i := range src {
		src[i] = byte(rng.Uint32())
	}

	var buf bytes.Buffer
	w := gogzip.NewWriter(&buf)
	w.Write(src)
	w.Close()

	members, err := Decompress(buf.Bytes(), DecompressOptions{Verify: true})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(members[0].Data, src) {
		t.Fatal("mismatch decoding stdlib gzip output")
	}
}

func TestCompressVsStdlibReader(t *testing.T) {
	rng := rand.New(rand.NewPCG(10, 10))
	src := make([]byte, 10000)
	for i := range src {
		src[i] = byte(rng.IntN(12))
	}

	out, err := Compress(src, Options{})
	if err != nil {
		t.Fatal(err)
	}

	r, err := gogzip.NewReader(bytes.NewReader(out))
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

func TestBadCRCRejected(t *testing.T) {
	out, err := Compress([]byte("hello world"), Options{})
	if err != nil {
		t.Fatal(err)
	}
	out[len(out)-5] ^= 0xff
	if _, err := Decompress(out, DecompressOptions{Verify: true}); err != ErrChecksum {
		t.Fatalf("got %v want ErrChecksum", err)
	}
}

func TestVerifyOffByDefaultSkipsChecksum(t *testing.T) {
	out, err := Compress([]byte("hello world"), Options{})
	if err != nil {
		t.Fatal(err)
	}
	out[len(out)-5] ^= 0xff
	members, err := Decompress(out, DecompressOptions{})
	if err != nil {
		t.Fatalf("verify=false should not error on a bad trailer: %v", err)
	}
	if string(members[0].Data) != "hello world" {
		t.Fatalf("unexpected data: %q", members[0].Data)
	}
}

func TestFHCRC(t *testing.T) {
	out, err := Compress([]byte("abc"), Options{
		Header: Header{Name: "a.txt", Comment: "c"},
		HCRC:   true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if out[3]&flagHCRC == 0 {
		t.Fatal("FHCRC flag bit not set")
	}

	members, err := Decompress(out, DecompressOptions{Verify: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 1 || string(members[0].Data) != "abc" {
		t.Fatalf("unexpected members: %+v", members)
	}
	if members[0].Name != "a.txt" || members[0].Comment != "c" {
		t.Fatalf("unexpected header fields: %+v", members[0].Header)
	}

	r, err := gogzip.NewReader(bytes.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "abc" {
		t.Fatalf("stdlib could not decode our FHCRC stream: %q", got)
	}
}

func TestFHCRCMismatchRejectedWhenVerifying(t *testing.T) {
	out, err := Compress([]byte("abc"), Options{
		Header: Header{Name: "a.txt", Comment: "c"},
		HCRC:   true,
	})
	if err != nil {
		t.Fatal(err)
	}
	out[4] ^= 0xff // corrupt a header byte (MTIME) covered by the stored FHCRC

	if _, err := Decompress(out, DecompressOptions{Verify: true}); err != ErrHeaderChecksum {
		t.Fatalf("got %v want ErrHeaderChecksum", err)
	}
}
