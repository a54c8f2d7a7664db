package huffman

import "math/bits"

// EncodeTable maps each symbol to the canonical code RFC 1951 §3.2.2
// assigns it, already bit-reversed so the bit writer can emit it low bit
// first like every other DEFLATE field.
type EncodeTable struct {
	Codes  []uint16
	Lens   []int
}

// BuildCanonical assigns canonical codes from a length vector: codes are
// handed out in symbol order within each length class, shortest length
// first, exactly as RFC 1951 §3.2.2 specifies.
func BuildCanonical(lengths []int) EncodeTable {
	maxLen := 0
	var count [maxCodeLen]int
	for _, n := range lengths {
		if n > maxLen {
			maxLen = n
		}
		if n > 0 {
			count[n]++
		}
	}

	var nextCode [maxCodeLen]int
	code := 0
	for l := 1; l <= maxLen; l++ {
		code = (code + count[l-1]) << 1
		nextCode[l] = code
	}

	codes := make([]uint16, len(lengths))
	for sym, l := range lengths {
		if l == 0 {
			continue
		}
		c := nextCode[l]
		nextCode[l]++
		codes[sym] = bits.Reverse16(uint16(c)) >> (16 - uint(l))
	}

	return EncodeTable{Codes: codes, Lens: lengths}
}
