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
	"io"
)

// Serializer walks an Arena and writes JSON text. It never recurses: tree
// depth only ever grows the serializer's own explicit frame stack, not the
// Go call stack.
type Serializer struct {
	// Indent, when non-empty, switches to pretty output: Indent is
	// repeated once per nesting level, each value ends its line, and ':'
	// gets a following space. Empty Indent means compact output with no
	// extraneous whitespace, matching the reference dumper's default.
	Indent string
}

var valToHex = [...]byte{'0', '1', '2', '3', '4', '5', '6', '7', '8', '9', 'a', 'b', 'c', 'd', 'e', 'f'}

func escapeBytes(dst, src []byte) []byte {
	for _, s := range src {
		switch s {
		case '\b':
			dst = append(dst, '\\', 'b')
		case '\f':
			dst = append(dst, '\\', 'f')
		case '\n':
			dst = append(dst, '\\', 'n')
		case '\r':
			dst = append(dst, '\\', 'r')
		case '"':
			dst = append(dst, '\\', '"')
		case '\t':
			dst = append(dst, '\\', 't')
		case '\\':
			dst = append(dst, '\\', '\\')
		default:
			if s <= 0x1f {
				dst = append(dst, '\\', 'u', '0', '0', valToHex[s>>4], valToHex[s&0xf])
			} else {
				dst = append(dst, s)
			}
		}
	}
	return dst
}

type dumpFrame struct {
	node      *Node
	child     *Node // next child to visit, nil once exhausted
	end       int   // arena index just past node's subtree
	isObject  bool
	wroteAny  bool
}

// Dump writes n's JSON text to w. buf is the input buffer that parsed
// nodes under n reference; it is ignored for builder subtrees.
func (s *Serializer) Dump(w io.Writer, arena Arena, buf []byte, n *Node) error {
	ob := NewOutputBuffer(256)
	if err := s.Serialize(ob, arena, buf, n); err != nil {
		return err
	}
	_, err := w.Write(ob.Bytes())
	return err
}

// Serialize writes n's JSON text into ob, growing it as needed (Reserve
// failures on a borrowed ob propagate as an error rather than silently
// truncating output).
func (s *Serializer) Serialize(ob *OutputBuffer, arena Arena, buf []byte, n *Node) error {
	if n == nil {
		return fmt.Errorf("streamjson: cannot serialize a nil node")
	}

	pretty := s.Indent != ""
	var stack []dumpFrame
	depth := 0

	writeIndent := func(d int) {
		if !pretty {
			return
		}
		ob.AppendByte('\n')
		for i := 0; i < d; i++ {
			ob.AppendString(s.Indent)
		}
	}

	var writeScalar func(v *Node) error
	writeScalar = func(v *Node) error {
		switch v.Kind {
		case KindNull:
			ob.AppendString("null")
		case KindTrue:
			ob.AppendString("true")
		case KindFalse:
			ob.AppendString("false")
		case KindInt, KindFloat:
			if !ob.AppendBytes(Bytes(buf, v)) {
				return fmt.Errorf("streamjson: output buffer out of capacity")
			}
		case KindString:
			ob.AppendByte('"')
			text := Bytes(buf, v)
			// Parsed strings carry their original escapes verbatim;
			// builder strings carry raw unescaped text and need escaping.
			if v.Owned() {
				escaped := escapeBytes(make([]byte, 0, len(text)+8), text)
				if !ob.AppendBytes(escaped) {
					return fmt.Errorf("streamjson: output buffer out of capacity")
				}
			} else {
				if !ob.AppendBytes(text) {
					return fmt.Errorf("streamjson: output buffer out of capacity")
				}
			}
			ob.AppendByte('"')
		default:
			return fmt.Errorf("streamjson: cannot serialize node kind %v as a scalar", v.Kind)
		}
		return nil
	}

	push := func(v *Node) {
		if v.Kind == KindObject {
			ob.AppendByte('{')
		} else {
			ob.AppendByte('[')
		}
		stack = append(stack, dumpFrame{
			node:     v,
			child:    arena.FirstChild(v),
			end:      nodeIndex(arena, v) + 1 + int(v.Skip&skipMask),
			isObject: v.Kind == KindObject,
		})
		depth++
	}

	if n.Kind.IsContainer() {
		push(n)
	} else {
		return writeScalar(n)
	}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]

		if top.child == nil || nodeIndex(arena, top.child) >= top.end {
			depth--
			if top.wroteAny {
				writeIndent(depth)
			}
			if top.isObject {
				ob.AppendByte('}')
			} else {
				ob.AppendByte(']')
			}
			stack = stack[:len(stack)-1]
			continue
		}

		if top.wroteAny {
			ob.AppendByte(',')
		}
		top.wroteAny = true
		writeIndent(depth)

		cur := top.child
		if top.isObject {
			if err := writeScalar(cur); err != nil { // key
				return err
			}
			ob.AppendByte(':')
			if pretty {
				ob.AppendByte(' ')
			}
			val := arena.NextSibling(cur)
			if val == nil {
				return fmt.Errorf("streamjson: object key with no value")
			}
			if val.Kind.IsContainer() {
				push(val)
				top = &stack[len(stack)-2]
				top.child = arena.NextSibling(val)
				continue
			}
			if err := writeScalar(val); err != nil {
				return err
			}
			top.child = arena.NextSibling(val)
			continue
		}

		if cur.Kind.IsContainer() {
			push(cur)
			top = &stack[len(stack)-2]
			top.child = arena.NextSibling(cur)
			continue
		}
		if err := writeScalar(cur); err != nil {
			return err
		}
		top.child = arena.NextSibling(cur)
	}

	return nil
}
