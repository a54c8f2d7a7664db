package flate

import (
	"bytes"
	goflate "compress/flate"
	"io"
	"math/rand/v2"
	"testing"
)

func mkTestBin(rng *rand.Rand, n int) []byte {
	alphabet := []byte("abcdefgh")
	b := make([]byte, n)
	for i := range b {
		if i > 8 && rng.IntN(4) == 0 {
			run := rng.IntN(8)
			copy(b[i:], b[i-run-1:i])
			continue
		}
		b[i] = alphabet[rng.IntN(len(alphabet))]
	}
	return b
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))

	sizes := []int{0, 1, 17, 1000, 70000}
	strategies := []Strategy{Stored, Fixed, Dynamic}

	for _, n := range sizes {
		src := mkTestBin(rng, n)
		for _, strat := range strategies {
			t.Run(strategyName(strat), func(t *testing.T) {
				var buf bytes.Buffer
				if err := Encode(&buf, src, EncodeOptions{Strategy: strat}); err != nil {
					t.Fatal(err)
				}
				got, err := Decode(bytes.NewReader(buf.Bytes()), Options{})
				if err != nil {
					t.Fatal(err)
				}
				if !bytes.Equal(got, src) {
					t.Fatalf("len=%d strategy=%v: round trip mismatch", n, strat)
				}
			})
		}
	}
}

func strategyName(s Strategy) string {
	switch s {
	case Stored:
		return "stored"
	case Fixed:
		return "fixed"
	default:
		return "dynamic"
	}
}

func TestDecodeVsStdlib(t *testing.T) {
	rng := rand.New(rand.NewPCG(2, 2))
	src := mkTestBin(rng, 50000)

	var buf bytes.Buffer
	gw, _ := goflate.NewWriter(&buf, goflate.BestCompression)
	gw.Write(src)
	gw.Close()

	got, err := Decode(bytes.NewReader(buf.Bytes()), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, src) {
		t.Fatal("decoding a stdlib-produced stream did not round-trip")
	}
}

func TestEncodeVsStdlibDecoder(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 3))
	src := mkTestBin(rng, 50000)

	var buf bytes.Buffer
	if err := Encode(&buf, src, EncodeOptions{Strategy: Dynamic, Lazy: 4}); err != nil {
		t.Fatal(err)
	}

	r := goflate.NewReader(bytes.NewReader(buf.Bytes()))
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, src) {
		t.Fatal("stdlib could not decode our dynamic-block stream")
	}
}

func TestStreamResumesAcrossWrites(t *testing.T) {
	rng := rand.New(rand.NewPCG(4, 4))
	src := mkTestBin(rng, 20000)

	var buf bytes.Buffer
	if err := Encode(&buf, src, EncodeOptions{Strategy: Dynamic}); err != nil {
		t.Fatal(err)
	}

	s := NewStream()
	var out []byte
	full := buf.Bytes()
	for off := 0; off < len(full); off += 7 {
		end := off + 7
		if end > len(full) {
			end = len(full)
		}
		s.Write(full[off:end])
		produced, done, err := s.Decompress()
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, produced...)
		if done {
			break
		}
	}

	if !bytes.Equal(out, src) {
		t.Fatalf("streamed decode mismatch: got %d bytes want %d", len(out), len(src))
	}
	if !s.Finished() {
		t.Fatal("stream should report finished after final block")
	}
}

func TestStoredBlockLengthMismatch(t *testing.T) {
	// BFINAL=1, BTYPE=00, then LEN/NLEN that don't complement.
	bad := []byte{0b001, 0x05, 0x00, 0x05, 0x00}
	_, err := Decode(bytes.NewReader(bad), Options{})
	if err != ErrMalformedCode {
		t.Fatalf("got %v want ErrMalformedCode", err)
	}
}
