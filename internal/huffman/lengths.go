package huffman

import "sort"

// ReversePackageMerge computes, for each index with freqs[i] > 0, a set of
// Huffman code lengths bounded by maxLen that minimizes total encoded
// weight, using the Larmore-Hirschberg package-merge algorithm. Symbols
// with zero frequency get length 0 and take no part in the coding.
//
// DEFLATE only ever transmits code lengths, never an explicit tree, so the
// encoder's whole job is choosing lengths a canonical assignment
// (BuildCanonical, in this package's canonical.go) can turn into codes no longer than
// maxLen bits, the bound RFC 1951 imposes on every code table it defines.
func ReversePackageMerge(freqs []uint32, maxLen int) []int {
	type symW struct {
		sym int
		w   uint32
	}
	var leaves []symW
	for i, f := range freqs {
		if f > 0 {
			leaves = append(leaves, symW{i, f})
		}
	}

	lengths := make([]int, len(freqs))
	switch len(leaves) {
	case 0:
		return lengths
	case 1:
		lengths[leaves[0].sym] = 1
		return lengths
	}

	sort.Slice(leaves, func(i, j int) bool { return leaves[i].w < leaves[j].w })

	base := make([]item, len(leaves))
	for i, l := range leaves {
		base[i] = item{weight: uint64(l.w), symbols: []int{l.sym}}
	}

	var packages, combined []item
	for l := 1; l <= maxLen; l++ {
		combined = mergeSorted(base, packages)
		packages = pairUp(combined)
	}

	// combined (from the final level, before its own pairing) is the
	// selection pool; each of its first 2n-2 entries costs every symbol it
	// contains one more bit of code length.
	n := len(leaves)
	take := 2*n - 2
	if take > len(combined) {
		take = len(combined)
	}
	for _, it := range combined[:take] {
		for _, sym := range it.symbols {
			lengths[sym]++
		}
	}

	return lengths
}

// pairUp combines a weight-sorted list into packages of two, dropping a
// trailing unpaired element if the list has odd length.
func pairUp(list []item) []item {
	out := make([]item, 0, len(list)/2)
	for i := 0; i+1 < len(list); i += 2 {
		symbols := make([]int, 0, len(list[i].symbols)+len(list[i+1].symbols))
		symbols = append(symbols, list[i].symbols...)
		symbols = append(symbols, list[i+1].symbols...)
		out = append(out, item{weight: list[i].weight + list[i+1].weight, symbols: symbols})
	}
	return out
}
