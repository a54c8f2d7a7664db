package lz77

import (
	"github.com/cespare/xxhash/v2"
)

const (
	minMatchLen    = 3
	maxMatchLen    = 258
	windowSize     = 1 << 15
	hashTableBits  = 15
	hashTableSize  = 1 << hashTableBits
	maxChainWalk   = 128 // bound the hash-chain walk so pathological input stays linear
)

// hash3 keys the chain table on a byte stream's 3-byte prefix. The exact
// hash is not part of the wire format — nothing downstream observes it,
// only the matches it helps find — so this reaches for the same fast,
// well-distributed 64-bit hash elliotnunn-BeHierarchic's internal/fileid
// uses for file identity, rather than a hand-rolled multiplicative hash.
func hash3(b []byte) uint32 {
	return uint32(xxhash.Sum64(b[:3])) & (hashTableSize - 1)
}

// Match finds src, a source buffer, tokenized as literals and
// length/distance back-references. lazy controls one-step lookahead:
// matches shorter than lazy are speculatively deferred by one byte to see
// if a longer match starts there instead (lazy == 0 disables the
// lookahead, which is faster but leaves some compression on the table).
func Match(src []byte, lazy int) *Tokens {
	t := &Tokens{}

	head := make([]int32, hashTableSize)
	for i := range head {
		head[i] = -1
	}
	prev := make([]int32, len(src))

	insert := func(p int) {
		if p+3 > len(src) {
			return
		}
		h := hash3(src[p:])
		prev[p] = head[h]
		head[h] = int32(p)
	}

	find := func(p int) (length, dist int) {
		if p+minMatchLen > len(src) {
			return 0, 0
		}
		h := hash3(src[p:])
		cand := head[h]
		walked := 0
		best := 0
		bestDist := 0
		limit := len(src) - p
		if limit > maxMatchLen {
			limit = maxMatchLen
		}
		for cand >= 0 && p-int(cand) <= windowSize && walked < maxChainWalk {
			c := int(cand)
			n := matchLen(src[c:], src[p:], limit)
			if n > best {
				best = n
				bestDist = p - c
				if best >= limit {
					break
				}
			}
			cand = prev[c]
			walked++
		}
		return best, bestDist
	}

	p := 0
	for p < len(src) {
		length, dist := find(p)

		pInserted := false
		if length >= minMatchLen && lazy > 0 && length < lazy && p+1 < len(src) {
			insert(p)
			pInserted = true
			length2, dist2 := find(p + 1)
			if length2 > length {
				emitLiteral(t, src[p])
				p++
				continue
			}
			_ = dist2
		}

		if length >= minMatchLen {
			emitMatch(t, length, dist)
			end := p + length
			if pInserted {
				p++ // already inserted this position above, don't insert it twice
			}
			for ; p < end && p+3 <= len(src); p++ {
				insert(p)
			}
			p = end
		} else {
			insert(p)
			emitLiteral(t, src[p])
			p++
		}
	}

	t.Items = append(t.Items, Token{Kind: EndToken})
	t.FreqLitLen[256]++

	return t
}

func matchLen(a, b []byte, limit int) int {
	n := 0
	for n < limit && a[n] == b[n] {
		n++
	}
	return n
}

func emitLiteral(t *Tokens, b byte) {
	t.Items = append(t.Items, Token{Kind: LiteralToken, Literal: b})
	t.FreqLitLen[b]++
}

func emitMatch(t *Tokens, length, dist int) {
	lenSym, lenExtra, lenExtraBits := encodeLength(length)
	distSym, distExtra, distExtraBits := encodeDistance(dist)

	t.Items = append(t.Items, Token{
		Kind:          MatchToken,
		LenSymbol:     lenSym,
		LenExtra:      lenExtra,
		LenExtraBits:  lenExtraBits,
		DistSymbol:    distSym,
		DistExtra:     distExtra,
		DistExtraBits: distExtraBits,
	})
	t.FreqLitLen[257+lenSym]++
	t.FreqDist[distSym]++
}

// LengthBase, LengthExtraBits, DistBase and DistExtraBits are RFC 1951
// §3.2.5's constant tables, exported so internal/flate's inflater can
// decode the same symbols this package's encoder produces without a
// second copy of the tables.
var (
	LengthBase = [29]int{
		3, 4, 5, 6, 7, 8, 9, 10, 11, 13, 15, 17, 19, 23, 27, 31,
		35, 43, 51, 59, 67, 83, 99, 115, 131, 163, 195, 227, 258,
	}
	LengthExtraBits = [29]uint{
		0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2,
		3, 3, 3, 3, 4, 4, 4, 4, 5, 5, 5, 5, 0,
	}
	DistBase = [30]int{
		1, 2, 3, 4, 5, 7, 9, 13, 17, 25, 33, 49, 65, 97, 129, 193,
		257, 385, 513, 769, 1025, 1537, 2049, 3073, 4097, 6145,
		8193, 12289, 16385, 24577,
	}
	DistExtraBits = [30]uint{
		0, 0, 0, 0, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6,
		7, 7, 8, 8, 9, 9, 10, 10, 11, 11, 12, 12, 13, 13,
	}
)

func encodeLength(length int) (sym int, extra uint32, extraBits uint) {
	for i := len(LengthBase) - 1; i >= 0; i-- {
		if length >= LengthBase[i] {
			return i, uint32(length - LengthBase[i]), LengthExtraBits[i]
		}
	}
	return 0, 0, 0
}

func encodeDistance(dist int) (sym int, extra uint32, extraBits uint) {
	for i := len(DistBase) - 1; i >= 0; i-- {
		if dist >= DistBase[i] {
			return i, uint32(dist - DistBase[i]), DistExtraBits[i]
		}
	}
	return 0, 0, 0
}
