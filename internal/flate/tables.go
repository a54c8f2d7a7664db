package flate

import "github.com/coldharbor/deflate/internal/lz77"

// lengthBase, lengthExtraBits, distBase and distExtraBits are RFC 1951
// §3.2.5's constant tables; they live once in internal/lz77 since the
// encoder needs them to choose symbols and the decoder here needs the same
// tables to reverse the choice.
var (
	lengthBase      = lz77.LengthBase
	lengthExtraBits = lz77.LengthExtraBits
	distBase        = lz77.DistBase
	distExtraBits   = lz77.DistExtraBits
)

// codeLengthOrder is the permutation RFC 1951 §3.2.7 transmits the 19
// code-length code lengths in.
var codeLengthOrder = [19]int{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}

const (
	// maxLitLenSymbols is 288, not the 286 actually meaningful codes:
	// RFC 1951 §3.2.6's fixed Huffman table assigns codes to symbols
	// 286-287 too, even though the format never emits them.
	maxLitLenSymbols = 288
	maxDistSymbols   = 30
	numCLSymbols     = 19
	endOfBlock       = 256

	maxBackwardLen = 1 << 15 // 32768, the DEFLATE sliding window
	maxCopyLen     = 258

	litLenCodeLimit = 15
	distCodeLimit   = 7
	clCodeLimit     = 7
)

// fixedLitLenLengths and fixedDistLengths are RFC 1951 §3.2.6's hard-coded
// code-length vectors for fixed Huffman blocks.
var fixedLitLenLengths = func() []int {
	l := make([]int, maxLitLenSymbols)
	for i := 0; i < 144; i++ {
		l[i] = 8
	}
	for i := 144; i < 256; i++ {
		l[i] = 9
	}
	for i := 256; i < 280; i++ {
		l[i] = 7
	}
	for i := 280; i < 288; i++ {
		l[i] = 8
	}
	return l
}()

var fixedDistLengths = func() []int {
	// 32, not maxDistSymbols: the fixed table gives symbols 30-31 5-bit
	// codes too, and without them the 5-bit code is not complete.
	l := make([]int, 32)
	for i := range l {
		l[i] = 5
	}
	return l
}()
