package flate

import (
	"io"

	"github.com/coldharbor/deflate/internal/bitio"
	"github.com/coldharbor/deflate/internal/huffman"
	"github.com/coldharbor/deflate/internal/lz77"
)

// Strategy selects which of the three RFC 1951 block encodings Encode
// produces.
type Strategy int

const (
	// Dynamic runs LZ77 and builds per-stream optimal Huffman tables; the
	// right default for anything but pathological input.
	Dynamic Strategy = iota
	// Fixed runs LZ77 but reuses RFC 1951's hard-coded tables, useful for
	// short inputs where transmitting a dynamic table would cost more than
	// it saves.
	Fixed
	// Stored copies input through uncompressed, the only strategy that can
	// never expand already-incompressible data by more than a few bytes of
	// header.
	Stored
)

// EncodeOptions configures Encode.
type EncodeOptions struct {
	Strategy Strategy
	// Lazy controls LZ77's one-step lookahead; 0 disables it. Values
	// around 4-8 trade encode time for a usually-small ratio improvement.
	Lazy int
}

// Encode compresses src into a single raw DEFLATE stream written to w.
func Encode(w io.Writer, src []byte, opts EncodeOptions) error {
	bw, ok := w.(io.ByteWriter)
	if !ok {
		bw = &byteWriterAdapter{w: w}
	}
	out := bitio.NewWriter(bw)

	switch opts.Strategy {
	case Stored:
		return encodeStored(out, src)
	case Fixed:
		return encodeFixed(out, src, opts.Lazy)
	default:
		return encodeDynamic(out, src, opts.Lazy)
	}
}

type byteWriterAdapter struct{ w io.Writer }

func (a *byteWriterAdapter) WriteByte(b byte) error {
	_, err := a.w.Write([]byte{b})
	return err
}

func encodeStored(out *bitio.Writer, src []byte) error {
	const maxChunk = 65535
	for off := 0; off < len(src) || off == 0; {
		chunk := src[off:]
		final := false
		if len(chunk) <= maxChunk {
			final = true
		} else {
			chunk = chunk[:maxChunk]
		}

		bfinal := uint32(0)
		if final {
			bfinal = 1
		}
		if err := out.WriteBits(bfinal, 1); err != nil {
			return err
		}
		if err := out.WriteBits(0, 2); err != nil { // BTYPE=00
			return err
		}
		if err := out.Flush(); err != nil {
			return err
		}

		n := uint16(len(chunk))
		if err := writeLE16(out, n); err != nil {
			return err
		}
		if err := writeLE16(out, ^n); err != nil {
			return err
		}
		for _, b := range chunk {
			if err := out.WriteByte(b); err != nil {
				return err
			}
		}

		off += len(chunk)
		if final {
			break
		}
	}
	return nil
}

func writeLE16(out *bitio.Writer, v uint16) error {
	if err := out.WriteByte(byte(v)); err != nil {
		return err
	}
	return out.WriteByte(byte(v >> 8))
}

func encodeFixed(out *bitio.Writer, src []byte, lazy int) error {
	initFixedTables()
	litTable := huffman.BuildCanonical(fixedLitLenLengths)
	distTable := huffman.BuildCanonical(fixedDistLengths)

	if err := out.WriteBits(1, 1); err != nil { // BFINAL
		return err
	}
	if err := out.WriteBits(1, 2); err != nil { // BTYPE=01
		return err
	}

	tokens := lz77.Match(src, lazy)
	return writeTokens(out, tokens, litTable, distTable)
}

func encodeDynamic(out *bitio.Writer, src []byte, lazy int) error {
	tokens := lz77.Match(src, lazy)

	litLenLengths := huffman.ReversePackageMerge(tokens.FreqLitLen[:], litLenCodeLimit)
	distLengths := huffman.ReversePackageMerge(tokens.FreqDist[:], distCodeLimit)

	hlit := trimTrailingZeros(litLenLengths, 257)
	hdist := trimTrailingZeros(distLengths, 1)

	combined := append(append([]int{}, litLenLengths[:hlit]...), distLengths[:hdist]...)
	clSyms, clFreq := treeTransmitSymbols(combined)
	clLengths := huffman.ReversePackageMerge(clFreq[:], clCodeLimit)
	hclen := numCLSymbols
	for hclen > 4 && clLengths[codeLengthOrder[hclen-1]] == 0 {
		hclen--
	}

	if err := out.WriteBits(1, 1); err != nil { // BFINAL
		return err
	}
	if err := out.WriteBits(2, 2); err != nil { // BTYPE=10
		return err
	}
	if err := out.WriteBits(uint32(hlit-257), 5); err != nil {
		return err
	}
	if err := out.WriteBits(uint32(hdist-1), 5); err != nil {
		return err
	}
	if err := out.WriteBits(uint32(hclen-4), 4); err != nil {
		return err
	}
	for i := 0; i < hclen; i++ {
		if err := out.WriteBits(uint32(clLengths[codeLengthOrder[i]]), 3); err != nil {
			return err
		}
	}

	clTable := huffman.BuildCanonical(clLengths)
	for _, s := range clSyms {
		if err := writeCode(out, clTable, s.sym); err != nil {
			return err
		}
		if s.bits > 0 {
			if err := out.WriteBits(s.extra, s.bits); err != nil {
				return err
			}
		}
	}

	litTable := huffman.BuildCanonical(litLenLengths[:hlit])
	distTable := huffman.BuildCanonical(distLengths[:hdist])
	return writeTokens(out, tokens, litTable, distTable)
}

func trimTrailingZeros(lengths []int, min int) int {
	n := len(lengths)
	for n > min && lengths[n-1] == 0 {
		n--
	}
	return n
}

func writeCode(out *bitio.Writer, t huffman.EncodeTable, sym int) error {
	return out.WriteBits(uint32(t.Codes[sym]), uint(t.Lens[sym]))
}

func writeTokens(out *bitio.Writer, tokens *lz77.Tokens, lit, dist huffman.EncodeTable) error {
	for _, tok := range tokens.Items {
		switch tok.Kind {
		case lz77.LiteralToken:
			if err := writeCode(out, lit, int(tok.Literal)); err != nil {
				return err
			}
			continue
		case lz77.EndToken:
			if err := writeCode(out, lit, endOfBlock); err != nil {
				return err
			}
			continue
		}
		if err := writeCode(out, lit, 257+tok.LenSymbol); err != nil {
			return err
		}
		if tok.LenExtraBits > 0 {
			if err := out.WriteBits(tok.LenExtra, tok.LenExtraBits); err != nil {
				return err
			}
		}
		if err := writeCode(out, dist, tok.DistSymbol); err != nil {
			return err
		}
		if tok.DistExtraBits > 0 {
			if err := out.WriteBits(tok.DistExtra, tok.DistExtraBits); err != nil {
				return err
			}
		}
	}
	return out.Flush()
}
