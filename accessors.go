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
	"strconv"
)

// AsBool returns n's boolean value and whether n is True or False.
func AsBool(n *Node) (bool, bool) {
	switch n.Kind {
	case KindTrue:
		return true, true
	case KindFalse:
		return false, true
	default:
		return false, false
	}
}

// AsI64 parses n's text as a base-10 signed integer. ok is false if n is
// not an Int or Float node, or if its text is not a plain base-10 integer
// that fits in an int64: Float text such as 1.5 or 1e3 reports false, so
// callers that need full numeric coercion should use AsF64.
func AsI64(buf []byte, n *Node) (int64, bool) {
	if n.Kind != KindInt && n.Kind != KindFloat {
		return 0, false
	}
	text := Bytes(buf, n)
	v, err := strconv.ParseInt(string(text), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// AsF64 parses n's text as a float64. ok is false if n is not an Int or
// Float node or the text does not parse.
func AsF64(buf []byte, n *Node) (float64, bool) {
	if n.Kind != KindInt && n.Kind != KindFloat {
		return 0, false
	}
	text := Bytes(buf, n)
	v, err := strconv.ParseFloat(string(text), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// StrCopy copies n's string content into dst verbatim, with no escape
// decoding: the bytes between the quotes are copied exactly as stored,
// backslash escapes and all. It returns the number of bytes written and
// whether all of it fit. dst is never grown; a short dst truncates the
// copy and returns ok=false with whatever fit. n must be a String node.
func StrCopy(dst, buf []byte, n *Node) (int, bool) {
	if n.Kind != KindString {
		return 0, false
	}
	src := Bytes(buf, n)
	written := copy(dst, src)
	return written, written == len(src)
}
