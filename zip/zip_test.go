package zip

import (
	"archive/zip"
	gobytes "bytes"
	"testing"
)

func TestWriteReadRoundTrip(t *testing.T) {
	w := NewWriter()
	if err := w.Add("t.bin", []byte{0x00, 0x01, 0x02, 0x03}, EntryOptions{Method: Store}); err != nil {
		t.Fatal(err)
	}
	if err := w.Add("hello.txt", []byte("hello, world! hello, world!"), EntryOptions{Method: Deflate}); err != nil {
		t.Fatal(err)
	}
	data, err := w.Build()
	if err != nil {
		t.Fatal(err)
	}

	r, err := Open(data, OpenOptions{})
	if err != nil {
		t.Fatal(err)
	}

	names := r.Names()
	if len(names) != 2 {
		t.Fatalf("got %d names want 2", len(names))
	}

	got, err := r.File("t.bin", FileOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !gobytes.Equal(got, []byte{0x00, 0x01, 0x02, 0x03}) {
		t.Fatalf("t.bin mismatch: %v", got)
	}

	got2, err := r.File("hello.txt", FileOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if string(got2) != "hello, world! hello, world!" {
		t.Fatalf("hello.txt mismatch: %q", got2)
	}

	if err := r.VerifyEntry("t.bin", FileOptions{}); err != nil {
		t.Fatal(err)
	}
}

func TestVerifyChecksumsOptIn(t *testing.T) {
	w := NewWriter()
	if err := w.Add("t.bin", []byte("some data"), EntryOptions{Method: Store}); err != nil {
		t.Fatal(err)
	}
	data, err := w.Build()
	if err != nil {
		t.Fatal(err)
	}

	// Corrupt the stored payload in place without touching the recorded
	// CRC-32, so a verifying reader must notice the mismatch.
	idx := gobytes.Index(data, []byte("some data"))
	if idx < 0 {
		t.Fatal("couldn't find payload to corrupt")
	}
	data[idx] ^= 0xff

	quiet, err := Open(data, OpenOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := quiet.File("t.bin", FileOptions{}); err != nil {
		t.Fatalf("verification off by default should not error: %v", err)
	}

	strict, err := Open(data, OpenOptions{VerifyChecksums: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := strict.File("t.bin", FileOptions{}); err != ErrChecksum {
		t.Fatalf("got %v want ErrChecksum", err)
	}
}

func TestEncryptedEntry(t *testing.T) {
	w := NewWriter()
	if err := w.Add("secret.txt", []byte("top secret payload"), EntryOptions{Method: Deflate, Password: "pw"}); err != nil {
		t.Fatal(err)
	}
	data, err := w.Build()
	if err != nil {
		t.Fatal(err)
	}

	r, err := Open(data, OpenOptions{})
	if err != nil {
		t.Fatal(err)
	}

	got, err := r.File("secret.txt", FileOptions{Password: "pw"})
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "top secret payload" {
		t.Fatalf("mismatch: %q", got)
	}

	if _, err := r.File("secret.txt", FileOptions{Password: "wrong"}); err != ErrBadPassword {
		t.Fatalf("got %v want ErrBadPassword", err)
	}

	if _, err := r.File("secret.txt", FileOptions{}); err != ErrMissingPassword {
		t.Fatalf("got %v want ErrMissingPassword", err)
	}
}

func TestReadVsStdlibArchive(t *testing.T) {
	var buf gobytes.Buffer
	sw := zip.NewWriter(&buf)
	f, _ := sw.Create("a/b.txt")
	f.Write([]byte("content from stdlib writer"))
	sw.Close()

	r, err := Open(buf.Bytes(), OpenOptions{})
	if err != nil {
		t.Fatal(err)
	}
	got, err := r.File("a/b.txt", FileOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "content from stdlib writer" {
		t.Fatalf("mismatch: %q", got)
	}
}

func TestGlob(t *testing.T) {
	w := NewWriter()
	w.Add("src/a.go", []byte("a"), EntryOptions{Method: Store})
	w.Add("src/b.go", []byte("b"), EntryOptions{Method: Store})
	w.Add("docs/readme.md", []byte("r"), EntryOptions{Method: Store})
	data, _ := w.Build()

	r, err := Open(data, OpenOptions{})
	if err != nil {
		t.Fatal(err)
	}

	matches := r.Glob("src/*.go")
	if len(matches) != 2 {
		t.Fatalf("got %d matches want 2: %v", len(matches), matches)
	}
}

func TestAppleDoubleHiddenFromNames(t *testing.T) {
	w := NewWriter()
	w.Add("a.txt", []byte("a"), EntryOptions{Method: Store})
	w.Add("__MACOSX/._a.txt", []byte("rsrc"), EntryOptions{Method: Store})
	data, _ := w.Build()

	r, err := Open(data, OpenOptions{})
	if err != nil {
		t.Fatal(err)
	}
	for _, n := range r.Names() {
		if n == "__MACOSX/._a.txt" {
			t.Fatal("AppleDouble sidecar should not appear in Names()")
		}
	}

	if _, err := r.File("__MACOSX/._a.txt", FileOptions{}); err != nil {
		t.Fatalf("File() should still reach the sidecar by literal name: %v", err)
	}
}
