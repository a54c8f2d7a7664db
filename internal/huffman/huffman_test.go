package huffman

import "testing"

func TestCanonicalRoundTripsThroughDecodeTable(t *testing.T) {
	// RFC 1951 §3.2.2 worked example.
	lengths := []int{3, 3, 3, 3, 3, 2, 4, 4}

	enc := BuildCanonical(lengths)
	var dec DecodeTable
	if ok := dec.Init(lengths); !ok {
		t.Fatal("Init reported incomplete code")
	}

	for sym, l := range lengths {
		if l == 0 {
			continue
		}
		code := uint32(enc.Codes[sym])
		gotSym, gotLen := dec.Lookup(code | (0xffffffff << uint(l)))
		if gotSym != sym || int(gotLen) != l {
			t.Errorf("symbol %d: lookup got (%d, %d) want (%d, %d)", sym, gotSym, gotLen, sym, l)
		}
	}
}

func TestReversePackageMergeRespectsMaxLen(t *testing.T) {
	freqs := make([]uint32, 20)
	for i := range freqs {
		freqs[i] = uint32(1 << uint(i%8))
	}
	const maxLen = 7
	lengths := ReversePackageMerge(freqs, maxLen)

	for sym, l := range lengths {
		if l > maxLen {
			t.Errorf("symbol %d has length %d > max %d", sym, l, maxLen)
		}
		if (freqs[sym] > 0) != (l > 0) {
			t.Errorf("symbol %d: freq %d but length %d", sym, freqs[sym], l)
		}
	}

	if ok := (&DecodeTable{}).Init(lengths); !ok {
		t.Fatal("lengths from package-merge did not form a complete code")
	}
}

func TestDegenerateSingleSymbol(t *testing.T) {
	lengths := []int{0, 1}
	var dec DecodeTable
	if ok := dec.Init(lengths); !ok {
		t.Fatal("degenerate single-symbol length-1 code should be accepted")
	}
	sym, n := dec.Lookup(0)
	if sym != 1 || n != 1 {
		t.Errorf("got (%d,%d) want (1,1)", sym, n)
	}
}
