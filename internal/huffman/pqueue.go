package huffman

import "container/heap"

// item is one entry competing for a slot in a merged package list: either an
// original symbol's frequency or a package formed by combining two earlier
// items, weighted by the sum of what it contains.
type item struct {
	weight  uint64
	symbols []int // original symbol indices folded into this item; a leaf holds only its own
}

// itemHeap is a container/heap min-heap ordered by weight. No pack library
// in this repo's examples offers a priority queue; container/heap is the
// idiomatic standard-library way to do k-way merges like the one
// ReversePackageMerge needs at each bit-length level, so this stays on the
// standard library rather than reaching for a third-party structure.
type itemHeap []item

func (h itemHeap) Len() int            { return len(h) }
func (h itemHeap) Less(i, j int) bool  { return h[i].weight < h[j].weight }
func (h itemHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *itemHeap) Push(x interface{}) { *h = append(*h, x.(item)) }
func (h *itemHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// mergeSorted drains two already-weight-sorted item slices into one sorted
// slice, via a two-way heap merge.
func mergeSorted(a, b []item) []item {
	h := make(itemHeap, 0, len(a)+len(b))
	heap.Init(&h)
	for _, it := range a {
		heap.Push(&h, it)
	}
	for _, it := range b {
		heap.Push(&h, it)
	}
	out := make([]item, 0, len(a)+len(b))
	for h.Len() > 0 {
		out = append(out, heap.Pop(&h).(item))
	}
	return out
}
