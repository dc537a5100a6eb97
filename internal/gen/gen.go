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

// Package gen generates random, usually-valid, occasionally-truncated
// JSON documents for fuzzing, using an explicit frame stack instead of
// recursion so generation depth can never overflow the Go call stack
// regardless of how deeply nested the generated document gets.
package gen

import "github.com/streamjson/streamjson/internal/xorshift"

type cmd uint8

const (
	cmdValue cmd = iota
	cmdArray
	cmdObject
)

type frame struct {
	cmd       cmd
	closeByte byte
	itemsLeft int
}

// Document generates a random JSON-ish document of at most maxLen bytes
// using r for all randomness. The result is usually valid JSON; very deep
// or very large attempts can truncate mid-structure, which is
// intentional: the fuzz driver wants truncated and malformed input in its
// mix as much as well-formed input.
func Document(r *xorshift.RNG, maxLen int) []byte {
	if maxLen < 256 {
		return []byte("{}")
	}

	buf := make([]byte, 0, maxLen+64)
	stack := []frame{{cmd: cmdValue}}

	appendByte := func(b byte) { buf = append(buf, b) }
	appendStr := func(s string) { buf = append(buf, s...) }

	for len(stack) > 0 && len(buf) < maxLen-128 {
		if len(stack) >= 256 {
			for len(stack) > 0 {
				if len(buf) < maxLen-1 {
					appendByte('}')
				}
				stack = stack[:len(stack)-1]
			}
			break
		}

		f := &stack[len(stack)-1]

		if f.cmd == cmdValue {
			roll := r.Float64()
			switch {
			case roll < 0.20:
				appendByte('"')
				n := int(r.Uint32() % 48)
				for i := 0; i < n && len(buf) < maxLen-64; i++ {
					appendByte(byte(r.Uint32() & 0x7F))
				}
				if len(buf) < maxLen {
					appendByte('"')
				}
			case roll < 0.40:
				if r.Uint32()&1 != 0 {
					appendByte('-')
				}
				digits := 1 + int(r.Uint32()%12)
				for i := 0; i < digits && len(buf) < maxLen-32; i++ {
					appendByte('0' + byte(r.Uint32()%10))
				}
			case roll < 0.55:
				lits := [...]string{"null", "true", "false"}
				appendStr(lits[r.Uint32()%3])
			default:
				open, close := byte('['), byte(']')
				if roll >= 0.78 {
					open, close = '{', '}'
				}
				appendByte(open)
				items := int(r.Uint32() % 9)
				if items == 0 || len(buf) >= maxLen-64 {
					if len(buf) < maxLen {
						appendByte(close)
					}
					stack = stack[:len(stack)-1]
					continue
				}
				ccmd := cmdArray
				if open == '{' {
					ccmd = cmdObject
				}
				stack = append(stack, frame{cmd: ccmd, closeByte: close, itemsLeft: items})
				continue
			}
			stack = stack[:len(stack)-1]
		} else {
			if f.itemsLeft == 0 || r.Float64() < 0.07 || len(buf) >= maxLen-64 {
				if len(buf) < maxLen {
					appendByte(f.closeByte)
				}
				stack = stack[:len(stack)-1]
			} else {
				if f.cmd == cmdObject {
					appendByte('"')
					n := 1 + int(r.Uint32()%16)
					for i := 0; i < n && len(buf) < maxLen-32; i++ {
						appendByte('a' + byte(r.Uint32()%26))
					}
					if len(buf)+2 < maxLen {
						appendByte('"')
						appendByte(':')
					}
				}
				f.itemsLeft--
				stack = append(stack, frame{cmd: cmdValue})
			}
		}

		if len(stack) > 0 && len(buf) < maxLen-32 {
			top := &stack[len(stack)-1]
			if (top.cmd == cmdArray || top.cmd == cmdObject) && top.itemsLeft > 0 {
				appendByte(',')
			}
		}
	}

	// Drain any still-open frames so the document is syntactically closed
	// more often than not; as in the reference generator this always
	// closes with '}' regardless of the frame's real bracket, which is
	// deliberate: it keeps some fraction of generated documents
	// bracket-mismatched, exercising that rejection path too.
	for len(stack) > 0 && len(buf) < maxLen-1 {
		appendByte('}')
		stack = stack[:len(stack)-1]
	}

	return buf
}
