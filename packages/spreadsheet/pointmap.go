package spreadsheet

import (
	"iter"
	"math/bits"
	"slices"

	"github.com/cespare/xxhash/v2"
)

// trie geometry: 5 bits of the 64-bit hash per level
const (
	trieBits  = 5
	trieWidth = 1 << trieBits
	trieMask  = trieWidth - 1
)

// PointMap is a persistent map keyed by Point, backed by a hash array mapped
// trie over xxhash(Point.Hash()). the zero value is an empty map. every
// mutation returns a new map sharing untouched nodes with the receiver.
type PointMap[T any] struct {
	root *trieNode[T]
	size int
}

type trieEntry[T any] struct {
	hash  uint64
	key   Point
	value T
}

// trieSlot is either a sub-trie or a bucket of entries sharing one full hash.
// buckets hold more than one entry only on a 64-bit collision.
type trieSlot[T any] struct {
	child   *trieNode[T]
	entries []trieEntry[T]
}

type trieNode[T any] struct {
	bitmap uint32
	slots  []trieSlot[T]
}

func hashPoint(p Point) uint64 {
	return xxhash.Sum64String(p.Hash())
}

func slotIndex(hash uint64, shift uint) (bit uint32) {
	return 1 << ((hash >> shift) & trieMask)
}

func (n *trieNode[T]) position(bit uint32) int {
	return bits.OnesCount32(n.bitmap & (bit - 1))
}

// NewPointMap creates a map from key/value pairs
func NewPointMap[T any](entries map[Point]T) PointMap[T] {
	var m PointMap[T]
	for p, v := range entries {
		m = m.Set(p, v)
	}
	return m
}

// Size returns the number of keys
func (m PointMap[T]) Size() int {
	return m.size
}

// Get returns the value stored for p
func (m PointMap[T]) Get(p Point) (T, bool) {
	var zero T
	hash := hashPoint(p)
	node := m.root
	for shift := uint(0); node != nil; shift += trieBits {
		bit := slotIndex(hash, shift)
		if node.bitmap&bit == 0 {
			return zero, false
		}
		slot := node.slots[node.position(bit)]
		if slot.child != nil {
			node = slot.child
			continue
		}
		for _, e := range slot.entries {
			if e.key == p {
				return e.value, true
			}
		}
		return zero, false
	}
	return zero, false
}

// Has reports whether p is a key of the map
func (m PointMap[T]) Has(p Point) bool {
	_, ok := m.Get(p)
	return ok
}

// Set returns a map with p bound to value
func (m PointMap[T]) Set(p Point, value T) PointMap[T] {
	root := m.root
	if root == nil {
		root = &trieNode[T]{}
	}
	next, added := root.insert(0, trieEntry[T]{hash: hashPoint(p), key: p, value: value})
	size := m.size
	if added {
		size++
	}
	return PointMap[T]{root: next, size: size}
}

// Delete returns a map without p. the receiver is returned when p is absent
func (m PointMap[T]) Delete(p Point) PointMap[T] {
	if m.root == nil {
		return m
	}
	next, removed := m.root.remove(0, hashPoint(p), p)
	if !removed {
		return m
	}
	if len(next.slots) == 0 {
		return PointMap[T]{}
	}
	return PointMap[T]{root: next, size: m.size - 1}
}

func (n *trieNode[T]) insert(shift uint, e trieEntry[T]) (*trieNode[T], bool) {
	bit := slotIndex(e.hash, shift)
	pos := n.position(bit)

	if n.bitmap&bit == 0 {
		slots := make([]trieSlot[T], len(n.slots)+1)
		copy(slots, n.slots[:pos])
		slots[pos] = trieSlot[T]{entries: []trieEntry[T]{e}}
		copy(slots[pos+1:], n.slots[pos:])
		return &trieNode[T]{bitmap: n.bitmap | bit, slots: slots}, true
	}

	slot := n.slots[pos]
	var added bool
	switch {
	case slot.child != nil:
		var child *trieNode[T]
		child, added = slot.child.insert(shift+trieBits, e)
		slot = trieSlot[T]{child: child}
	case slot.entries[0].hash == e.hash:
		entries := slices.Clone(slot.entries)
		idx := slices.IndexFunc(entries, func(existing trieEntry[T]) bool { return existing.key == e.key })
		if idx >= 0 {
			entries[idx] = e
		} else {
			entries = append(entries, e)
			added = true
		}
		slot = trieSlot[T]{entries: entries}
	default:
		slot = trieSlot[T]{child: mergeSlots(shift+trieBits, slot, e)}
		added = true
	}

	slots := slices.Clone(n.slots)
	slots[pos] = slot
	return &trieNode[T]{bitmap: n.bitmap, slots: slots}, added
}

// mergeSlots builds the smallest sub-trie holding an existing bucket and a
// new entry with a different hash
func mergeSlots[T any](shift uint, existing trieSlot[T], e trieEntry[T]) *trieNode[T] {
	existingBit := slotIndex(existing.entries[0].hash, shift)
	newBit := slotIndex(e.hash, shift)
	if existingBit == newBit {
		child := mergeSlots(shift+trieBits, existing, e)
		return &trieNode[T]{bitmap: existingBit, slots: []trieSlot[T]{{child: child}}}
	}
	fresh := trieSlot[T]{entries: []trieEntry[T]{e}}
	if existingBit < newBit {
		return &trieNode[T]{bitmap: existingBit | newBit, slots: []trieSlot[T]{existing, fresh}}
	}
	return &trieNode[T]{bitmap: existingBit | newBit, slots: []trieSlot[T]{fresh, existing}}
}

func (n *trieNode[T]) remove(shift uint, hash uint64, p Point) (*trieNode[T], bool) {
	bit := slotIndex(hash, shift)
	if n.bitmap&bit == 0 {
		return n, false
	}
	pos := n.position(bit)
	slot := n.slots[pos]

	if slot.child != nil {
		child, removed := slot.child.remove(shift+trieBits, hash, p)
		if !removed {
			return n, false
		}
		switch {
		case len(child.slots) == 0:
			return n.withoutSlot(pos, bit), true
		case len(child.slots) == 1 && child.slots[0].child == nil:
			// collapse a single bucket back into this level
			return n.withSlot(pos, child.slots[0]), true
		default:
			return n.withSlot(pos, trieSlot[T]{child: child}), true
		}
	}

	idx := slices.IndexFunc(slot.entries, func(e trieEntry[T]) bool { return e.key == p })
	if idx < 0 {
		return n, false
	}
	if len(slot.entries) == 1 {
		return n.withoutSlot(pos, bit), true
	}
	return n.withSlot(pos, trieSlot[T]{entries: slices.Delete(slices.Clone(slot.entries), idx, idx+1)}), true
}

func (n *trieNode[T]) withSlot(pos int, slot trieSlot[T]) *trieNode[T] {
	slots := slices.Clone(n.slots)
	slots[pos] = slot
	return &trieNode[T]{bitmap: n.bitmap, slots: slots}
}

func (n *trieNode[T]) withoutSlot(pos int, bit uint32) *trieNode[T] {
	slots := make([]trieSlot[T], 0, len(n.slots)-1)
	slots = append(slots, n.slots[:pos]...)
	slots = append(slots, n.slots[pos+1:]...)
	return &trieNode[T]{bitmap: n.bitmap &^ bit, slots: slots}
}

// All iterates the entries in hash order, which only depends on the keys
// and never on the order they were inserted in
func (m PointMap[T]) All() iter.Seq2[Point, T] {
	return func(yield func(Point, T) bool) {
		if m.root != nil {
			m.root.walk(yield)
		}
	}
}

func (n *trieNode[T]) walk(yield func(Point, T) bool) bool {
	for _, slot := range n.slots {
		if slot.child != nil {
			if !slot.child.walk(yield) {
				return false
			}
			continue
		}
		for _, e := range slot.entries {
			if !yield(e.key, e.value) {
				return false
			}
		}
	}
	return true
}

// Keys returns every key in iteration order
func (m PointMap[T]) Keys() []Point {
	keys := make([]Point, 0, m.size)
	for p := range m.All() {
		keys = append(keys, p)
	}
	return keys
}

// Filter returns a map holding only the entries fn accepts
func (m PointMap[T]) Filter(fn func(Point, T) bool) PointMap[T] {
	next := m
	for p, v := range m.All() {
		if !fn(p, v) {
			next = next.Delete(p)
		}
	}
	return next
}

// Equal reports whether both maps hold the same keys with values eq accepts
func (m PointMap[T]) Equal(other PointMap[T], eq func(a, b T) bool) bool {
	if m.size != other.size {
		return false
	}
	for p, v := range m.All() {
		ov, ok := other.Get(p)
		if !ok || !eq(v, ov) {
			return false
		}
	}
	return true
}

// MapValues applies fn to every value
func MapValues[T, U any](m PointMap[T], fn func(Point, T) U) PointMap[U] {
	var next PointMap[U]
	for p, v := range m.All() {
		next = next.Set(p, fn(p, v))
	}
	return next
}
