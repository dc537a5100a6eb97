/*
 * Copyright 2024 The streamjson Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package streamjson

import "unsafe"

// Kind indicates the data type held by a Node.
type Kind uint8

const (
	KindNull Kind = iota
	KindTrue
	KindFalse
	KindInt
	KindFloat
	KindString
	KindArray
	KindObject
)

var kindStr = [...]string{
	KindNull:   "null",
	KindTrue:   "true",
	KindFalse:  "false",
	KindInt:    "int",
	KindFloat:  "float",
	KindString: "string",
	KindArray:  "array",
	KindObject: "object",
}

// String returns the kind's JSON-ish name, used only for diagnostics.
func (k Kind) String() string {
	if int(k) < len(kindStr) {
		return kindStr[k]
	}
	return "invalid"
}

// IsContainer reports whether the kind is Array or Object.
func (k Kind) IsContainer() bool {
	return k == KindArray || k == KindObject
}

// skipMask is the 28 significant bits of Node.Skip; the field packs either
// a key hash (on String nodes used as object keys) or a sibling-skip
// distance (on container nodes). The two uses never overlap because the
// roles are disjoint: a node is either a key or a container, never both.
const skipMask = 0x0FFFFFFF

// Node is a fixed-size record describing one parsed or builder-constructed
// JSON value. Nodes are never mutated once the parser has left them,
// except a container's Len and Skip, which are only known once the
// container closes.
//
// For parsed nodes, Offset/Len reference the caller-owned input buffer:
// for strings, Offset points at the first byte inside the quotes and Len
// excludes them; for numbers and literals, Offset points at the first
// character; for containers, Offset points at the opening brace/bracket
// and Len (once closed) spans open-to-close inclusive.
//
// For builder nodes, owned holds heap-allocated canonical text and Offset
// is unused for content; Len is the length of owned.
type Node struct {
	Kind     Kind
	Offset   uint64
	Len      uint32
	Children uint32
	Skip     uint32 // 28 bits significant: key hash, or container sibling-skip distance
	owned    []byte
}

// Owned reports whether the node carries builder-owned text rather than
// referencing the input buffer.
func (n *Node) Owned() bool { return n.owned != nil }

// Arena is the contiguous, caller-owned sequence of Node records produced
// by a Parser or a Builder. Nodes appear in strict pre-order of the
// document tree; for a container at index i, its direct children occupy
// contiguous indices starting at i+1, and the node immediately after the
// entire subtree sits at i+1+skip.
type Arena []Node

// Root returns the first node of the arena, or nil if the arena is empty.
func (a Arena) Root() *Node {
	if len(a) == 0 {
		return nil
	}
	return &a[0]
}

// nodeIndex returns n's position within a, assuming n points into a's
// backing array (true for every *Node this package ever hands out). This
// is the Go equivalent of the reference implementation's `node - p->nodes`
// pointer-difference trick.
func nodeIndex(a Arena, n *Node) int {
	if len(a) == 0 {
		return -1
	}
	base := unsafe.Pointer(&a[0])
	ptr := unsafe.Pointer(n)
	diff := uintptr(ptr) - uintptr(base)
	idx := int(diff / unsafe.Sizeof(a[0]))
	if idx < 0 || idx >= len(a) {
		return -1
	}
	return idx
}

// FirstChild returns the first direct child of a container node, or nil if
// the container has no children or n is not a container.
func (a Arena) FirstChild(n *Node) *Node {
	if n == nil || !n.Kind.IsContainer() || n.Children == 0 {
		return nil
	}
	idx := nodeIndex(a, n)
	if idx < 0 || idx+1 >= len(a) {
		return nil
	}
	return &a[idx+1]
}

// NextSibling returns the node immediately following n's subtree: for a
// container, that is Skip slots ahead; for any other node, one slot ahead.
// Returns nil if that would be past the end of the arena.
func (a Arena) NextSibling(n *Node) *Node {
	if n == nil {
		return nil
	}
	idx := nodeIndex(a, n)
	if idx < 0 {
		return nil
	}
	next := idx + 1
	if n.Kind.IsContainer() {
		next = idx + 1 + int(n.Skip&skipMask)
	}
	if next >= len(a) {
		return nil
	}
	return &a[next]
}

// ArrayElement walks FirstChild then NextSibling i times, bounds-checked
// against arr.Children. Returns nil if arr is not an array or i is out of
// range.
func (a Arena) ArrayElement(arr *Node, i int) *Node {
	if arr == nil || arr.Kind != KindArray || i < 0 || uint32(i) >= arr.Children {
		return nil
	}
	child := a.FirstChild(arr)
	for j := 0; j < i && child != nil; j++ {
		child = a.NextSibling(child)
	}
	return child
}

// Bytes returns n's text: its owned text if it is a builder node, or the
// slice of buf it references if it is a parsed node. buf is ignored for
// owned nodes and may be nil.
func Bytes(buf []byte, n *Node) []byte {
	if n.owned != nil {
		return n.owned
	}
	end := n.Offset + uint64(n.Len)
	if end > uint64(len(buf)) {
		return nil
	}
	return buf[n.Offset:end]
}

// ObjectLookup scans obj's key/value pairs for a key matching the given
// bytes and returns the associated value, or nil if not found. The first
// match wins; duplicate keys are not deduplicated. buf is the buffer
// parsed nodes reference (ignored for an all-builder subtree).
func (a Arena) ObjectLookup(buf []byte, obj *Node, key []byte) *Node {
	if obj == nil || obj.Kind != KindObject {
		return nil
	}
	target := HashKey(key)
	end := nodeIndex(a, obj) + 1 + int(obj.Skip&skipMask)
	child := a.FirstChild(obj)
	for child != nil && nodeIndex(a, child) < end {
		if child.Kind == KindString && child.Skip&skipMask == target && int(child.Len) == len(key) &&
			bytesEqual(Bytes(buf, child), key) {
			return a.NextSibling(child)
		}
		value := a.NextSibling(child)
		child = a.NextSibling(value)
	}
	return nil
}

// HashKey computes the 28-bit object-key hash used for fast lookup: seed
// 0, h = h*33 XOR byte, truncated to 28 bits.
func HashKey(key []byte) uint32 {
	var h uint32
	for _, b := range key {
		h = h*33 ^ uint32(b)
	}
	return h & skipMask
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
