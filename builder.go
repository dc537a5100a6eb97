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

import (
	"fmt"
	"math"
	"strconv"
)

// Builder constructs an Arena by hand, independent of any parsed input.
// Like Parser, it lays nodes out in strict pre-order: a container's
// children must be fully built, in order, before the container itself is
// closed with CloseContainer, which is what computes its Skip distance.
// Every value placed into an object or array must be registered with
// ObjectSet or ArrayAppend respectively so the container's Children count
// stays accurate; appending a node alone does not count it.
// A Builder is not safe for concurrent use.
type Builder struct {
	nodes Arena
	stack []uint32
}

// NewBuilder wraps a caller-owned arena (len 0, whatever capacity the
// caller wants) and a caller-owned container stack (len 0) bounding
// nesting depth.
func NewBuilder(nodes Arena, stack []uint32) *Builder {
	return &Builder{nodes: nodes[:0], stack: stack[:0]}
}

// NodesLen reports how many nodes have been built so far.
func (b *Builder) NodesLen() int { return len(b.nodes) }

// Nodes returns the arena built so far.
func (b *Builder) Nodes() Arena { return b.nodes }

// push appends n to the arena. It does not touch any parent's Children:
// that count is the caller's responsibility via ObjectSet (once per
// key/value pair) or ArrayAppend (once per element), mirroring the
// reference builder's json_object_set/json_array_append, which are the
// only places obj->children/arr->children are incremented. Counting here
// instead would count object keys as children alongside their values.
func (b *Builder) push(n Node) (*Node, bool) {
	if len(b.nodes) >= cap(b.nodes) {
		return nil, false
	}
	b.nodes = append(b.nodes, n)
	idx := len(b.nodes) - 1
	if len(b.stack) > 0 {
		parent := int(b.stack[len(b.stack)-1])
		if b.nodes[parent].Kind == KindObject {
			// direct children alternate key, value: after an odd number
			// of them, idx is a value and idx-1 is its key
			direct := 0
			for i := parent + 1; i < idx; direct++ {
				if b.nodes[i].Kind.IsContainer() {
					i += int(b.nodes[i].Skip & skipMask)
				}
				i++
			}
			if direct%2 == 1 {
				// inherit the preceding object key's hash, same as the
				// parser does when a value follows its key
				b.nodes[idx].Skip = b.nodes[idx-1].Skip
			}
		}
	}
	return &b.nodes[idx], true
}

// Null appends a null leaf.
func (b *Builder) Null() (*Node, error) {
	n, ok := b.push(Node{Kind: KindNull})
	if !ok {
		return nil, fmt.Errorf("streamjson: builder arena at capacity")
	}
	return n, nil
}

// Bool appends a true/false leaf.
func (b *Builder) Bool(v bool) (*Node, error) {
	kind := KindFalse
	if v {
		kind = KindTrue
	}
	n, ok := b.push(Node{Kind: kind})
	if !ok {
		return nil, fmt.Errorf("streamjson: builder arena at capacity")
	}
	return n, nil
}

// Int appends an integer leaf, storing its canonical base-10 text.
func (b *Builder) Int(v int64) (*Node, error) {
	text := strconv.AppendInt(nil, v, 10)
	n, ok := b.push(Node{Kind: KindInt, Len: uint32(len(text)), owned: text})
	if !ok {
		return nil, fmt.Errorf("streamjson: builder arena at capacity")
	}
	return n, nil
}

// Float appends a float leaf, storing its ES6-style canonical text (the
// same shape Serializer would otherwise have had to produce for a raw
// float64, so Builder produces it once, up front).
func (b *Builder) Float(v float64) (*Node, error) {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil, fmt.Errorf("streamjson: cannot represent Inf or NaN as JSON")
	}
	text := appendFloat(nil, v)
	n, ok := b.push(Node{Kind: KindFloat, Len: uint32(len(text)), owned: text})
	if !ok {
		return nil, fmt.Errorf("streamjson: builder arena at capacity")
	}
	return n, nil
}

// appendFloat formats f the way the reference dumper formats numbers read
// back from Go float64s: ES6 Number::toString shape, not Go's default %v.
func appendFloat(dst []byte, f float64) []byte {
	abs := math.Abs(f)
	format := byte('f')
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'e'
	}
	dst = strconv.AppendFloat(dst, f, format, -1, 64)
	if format == 'e' {
		n := len(dst)
		if n >= 4 && dst[n-4] == 'e' && dst[n-3] == '-' && dst[n-2] == '0' {
			dst[n-2] = dst[n-1]
			dst = dst[:n-1]
		}
	}
	return dst
}

// String appends a string leaf. s is stored and later serialized with
// escaping applied at output time (see Serializer); s itself should be
// the raw, unescaped text.
func (b *Builder) String(s string) (*Node, error) {
	text := []byte(s)
	n, ok := b.push(Node{Kind: KindString, Len: uint32(len(text)), Skip: HashKey(text), owned: text})
	if !ok {
		return nil, fmt.Errorf("streamjson: builder arena at capacity")
	}
	return n, nil
}

// Array opens a new array container. Append its elements with further
// Builder calls, then close it with CloseContainer.
func (b *Builder) Array() (*Node, error) {
	n, ok := b.push(Node{Kind: KindArray})
	if !ok {
		return nil, fmt.Errorf("streamjson: builder arena at capacity")
	}
	if len(b.stack) >= cap(b.stack) {
		b.nodes = b.nodes[:len(b.nodes)-1]
		return nil, fmt.Errorf("streamjson: builder stack at capacity")
	}
	b.stack = append(b.stack, uint32(nodeIndex(b.nodes, n)))
	return n, nil
}

// Object opens a new object container. Build it as alternating String
// (key) / value pairs, then close it with CloseContainer.
func (b *Builder) Object() (*Node, error) {
	n, ok := b.push(Node{Kind: KindObject})
	if !ok {
		return nil, fmt.Errorf("streamjson: builder arena at capacity")
	}
	if len(b.stack) >= cap(b.stack) {
		b.nodes = b.nodes[:len(b.nodes)-1]
		return nil, fmt.Errorf("streamjson: builder stack at capacity")
	}
	b.stack = append(b.stack, uint32(nodeIndex(b.nodes, n)))
	return n, nil
}

// CloseContainer finalizes the most recently opened, still-open array or
// object, computing its Skip (sibling-skip distance) from however many
// nodes were appended since it opened. c must be the container currently
// on top of the open-container stack; closing out of order is an error.
func (b *Builder) CloseContainer(c *Node) error {
	if len(b.stack) == 0 {
		return fmt.Errorf("streamjson: no open container to close")
	}
	idx := nodeIndex(b.nodes, c)
	top := int(b.stack[len(b.stack)-1])
	if idx != top {
		return fmt.Errorf("streamjson: CloseContainer called out of order")
	}
	b.stack = b.stack[:len(b.stack)-1]
	contentNodes := len(b.nodes) - (idx + 1)
	b.nodes[idx].Skip = uint32(contentNodes) & skipMask
	return nil
}

// ArrayAppend records that element was just appended as array's next
// element, incrementing array.Children by exactly one. This is the only
// place an array's Children grows, mirroring the reference builder's
// json_array_append.
func (b *Builder) ArrayAppend(array, element *Node) error {
	if array == nil || array.Kind != KindArray {
		return fmt.Errorf("streamjson: ArrayAppend target is not an array")
	}
	_ = element
	array.Children++
	return nil
}

// ObjectSet records that value is keyNode's associated value within obj,
// incrementing obj.Children by exactly one per pair (never per key alone)
// and patching value's Skip to inherit keyNode's hash, needed when value
// was built before being known to belong to obj, e.g. constructed and set
// aside. This is the only place an object's Children grows, mirroring the
// reference builder's json_object_set.
func (b *Builder) ObjectSet(obj, keyNode, value *Node) error {
	if obj == nil || obj.Kind != KindObject {
		return fmt.Errorf("streamjson: ObjectSet target is not an object")
	}
	if keyNode == nil || keyNode.Kind != KindString {
		return fmt.Errorf("streamjson: ObjectSet key is not a string")
	}
	value.Skip = keyNode.Skip
	obj.Children++
	return nil
}

// FreeSubtree is a no-op: Go's garbage collector reclaims node-owned text
// and there is no separate allocation to release. It exists so callers
// ported from the reference API's manual-free discipline still have a
// symmetric call to make; dropping all references to the arena and its
// nodes is sufficient on its own.
func (b *Builder) FreeSubtree(n *Node) {}
