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
	"encoding/json"
	"testing"
)

func parseWhole(doc string) (*Parser, bool) {
	p := NewParserForSize(len(doc))
	ok := p.Feed([]byte(doc))
	if ok {
		ok = p.Finish()
	}
	return p, ok
}

func TestValidDocuments(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want int // expected node count
	}{
		{"null", `null`, 1},
		{"true", `true`, 1},
		{"false", `false`, 1},
		{"int", `42`, 1},
		{"negative int", `-17`, 1},
		{"float", `-1.5e+10`, 1},
		{"empty object", `{}`, 1},
		{"empty array", `[]`, 1},
		{"simple object", `{"a":1,"b":true,"c":null}`, 7},
		{"nested", `{"a":[1,2],"b":{"c":3}}`, 9},
		{"array of primitives", `[1,2,3,true,null,"x"]`, 7},
		{"string with escapes", `"a\n\tbé"`, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, ok := parseWhole(tc.doc)
			if !ok {
				t.Fatalf("parse %q failed: %v", tc.doc, p.Err())
			}
			if p.NodesLen() != tc.want {
				t.Fatalf("parse %q: got %d nodes, want %d", tc.doc, p.NodesLen(), tc.want)
			}
			var ref interface{}
			if err := json.Unmarshal([]byte(tc.doc), &ref); err != nil {
				t.Fatalf("encoding/json rejected a document we accepted: %v", err)
			}
		})
	}
}

func TestInvalidDocuments(t *testing.T) {
	cases := []string{
		`{`,
		`{"a":}`,
		`trux`,
		`"\q"`,
		`1.`,
		`1e`,
		`[1,]`,
		`{"a":1,}`,
		`{,}`,
		`[1 2]`,
		`{"a" 1}`,
		`01`,
		`-`,
		``,
		`   `,
		`{"a":1}{"b":2}`,
	}
	for _, doc := range cases {
		t.Run(doc, func(t *testing.T) {
			p, ok := parseWhole(doc)
			if ok {
				t.Fatalf("parse %q unexpectedly succeeded", doc)
			}
			if p.Err() == nil {
				t.Fatalf("parse %q failed but Err() is nil", doc)
			}
		})
	}
}

func TestByteAtATimeFeedingMatchesWholeFeed(t *testing.T) {
	docs := []string{
		`{"a":[1,2,3],"b":"helloé world","c":-1.5e+10,"d":null,"e":false}`,
		`[{"x":1},{"y":2},[true,false,null]]`,
	}
	for _, doc := range docs {
		whole, ok := parseWhole(doc)
		if !ok {
			t.Fatalf("whole-feed parse of %q failed: %v", doc, whole.Err())
		}

		p := NewParserForSize(len(doc))
		data := []byte(doc)
		for i := range data {
			if !p.Feed(data[i : i+1]) {
				t.Fatalf("byte-at-a-time parse of %q failed at byte %d: %v", doc, i, p.Err())
			}
		}
		if !p.Finish() {
			t.Fatalf("byte-at-a-time Finish of %q failed: %v", doc, p.Err())
		}
		if p.NodesLen() != whole.NodesLen() {
			t.Fatalf("byte-at-a-time node count %d != whole-feed node count %d", p.NodesLen(), whole.NodesLen())
		}
		for i := range p.Nodes() {
			got, want := p.Nodes()[i], whole.Nodes()[i]
			if got.Kind != want.Kind || got.Offset != want.Offset || got.Len != want.Len ||
				got.Children != want.Children || got.Skip != want.Skip {
				t.Fatalf("node %d mismatch: byte-at-a-time %+v, whole-feed %+v", i, got, want)
			}
		}
	}
}

func TestChunkBoundaryAcrossEscape(t *testing.T) {
	doc := `"before\` + `uABCDafter"` // a \u escape with four hex digits
	for split := 0; split <= len(doc); split++ {
		p := NewParserForSize(len(doc))
		if !p.Feed([]byte(doc[:split])) {
			t.Fatalf("split %d: first Feed failed: %v", split, p.Err())
		}
		if !p.Feed([]byte(doc[split:])) {
			t.Fatalf("split %d: second Feed failed: %v", split, p.Err())
		}
		if !p.Finish() {
			t.Fatalf("split %d: Finish failed: %v", split, p.Err())
		}
	}
}

func TestChunkBoundaryAcrossNumber(t *testing.T) {
	doc := `-1.5e+10`
	for split := 0; split <= len(doc); split++ {
		p := NewParserForSize(len(doc))
		if !p.Feed([]byte(doc[:split])) {
			t.Fatalf("split %d: first Feed failed: %v", split, p.Err())
		}
		if !p.Feed([]byte(doc[split:])) {
			t.Fatalf("split %d: second Feed failed: %v", split, p.Err())
		}
		if !p.Finish() {
			t.Fatalf("split %d: Finish failed: %v", split, p.Err())
		}
		if p.Nodes()[0].Kind != KindFloat {
			t.Fatalf("split %d: kind = %v, want float", split, p.Nodes()[0].Kind)
		}
	}
}

func TestChunkBoundaryAcrossLiteral(t *testing.T) {
	doc := `false`
	for split := 0; split <= len(doc); split++ {
		p := NewParserForSize(len(doc))
		if !p.Feed([]byte(doc[:split])) {
			t.Fatalf("split %d: first Feed failed: %v", split, p.Err())
		}
		if !p.Feed([]byte(doc[split:])) {
			t.Fatalf("split %d: second Feed failed: %v", split, p.Err())
		}
		if !p.Finish() {
			t.Fatalf("split %d: Finish failed: %v", split, p.Err())
		}
		if p.Nodes()[0].Kind != KindFalse {
			t.Fatalf("split %d: kind = %v, want false", split, p.Nodes()[0].Kind)
		}
	}
}

// TestInvariant1SingleRoot checks the arena always starts with exactly one
// top-level value and parsing rejects further top-level content.
func TestInvariant1SingleRoot(t *testing.T) {
	p, ok := parseWhole(`1 2`)
	if ok {
		t.Fatalf("two top-level values unexpectedly accepted")
	}
	_ = p
}

// TestInvariant2PreOrderLayout checks children of a container occupy
// contiguous indices starting immediately after it.
func TestInvariant2PreOrderLayout(t *testing.T) {
	nodes, buf := mustParse(t, `{"a":1,"b":2}`)
	root := nodes.Root()
	if nodes[1].Kind != KindString || string(Bytes(buf, &nodes[1])) != "a" {
		t.Fatalf("nodes[1] = %+v, want the key \"a\" right after the object", nodes[1])
	}
	if root.Children != 4 {
		t.Fatalf("Children = %d, want 4", root.Children)
	}
}

// TestInvariant3SkipReachesSiblingText verifies NextSibling using Skip
// lands exactly past a container's closing brace/bracket.
func TestInvariant3SkipReachesSiblingText(t *testing.T) {
	nodes, buf := mustParse(t, `[{"a":1},"after"]`)
	root := nodes.Root()
	obj := nodes.FirstChild(root)
	sib := nodes.NextSibling(obj)
	if sib == nil || string(Bytes(buf, sib)) != "after" {
		t.Fatalf("NextSibling(obj) = %+v, want \"after\"", sib)
	}
}

// TestInvariant4AbsoluteOffsetsAcrossChunks checks offsets reported in a
// later chunk account for bytes already consumed.
func TestInvariant4AbsoluteOffsetsAcrossChunks(t *testing.T) {
	doc := `[1,2,3]`
	p := NewParserForSize(len(doc))
	if !p.Feed([]byte(doc[:4])) {
		t.Fatalf("first Feed failed: %v", p.Err())
	}
	if !p.Feed([]byte(doc[4:])) {
		t.Fatalf("second Feed failed: %v", p.Err())
	}
	if !p.Finish() {
		t.Fatalf("Finish failed: %v", p.Err())
	}
	last := nodes3rdElement(p.Nodes())
	if last == nil || last.Offset != 5 {
		t.Fatalf("third element offset = %v, want 5", last)
	}
}

func nodes3rdElement(nodes Arena) *Node {
	root := nodes.Root()
	return nodes.ArrayElement(root, 2)
}

// TestInvariant5ErrorPoisons checks that after a latched error, further
// Feed calls keep failing without changing the error.
func TestInvariant5ErrorPoisons(t *testing.T) {
	p := NewParserForSize(16)
	if !p.Feed([]byte(`tru`)) {
		t.Fatalf("expected Feed of a partial literal to succeed, got %v", p.Err())
	}
	if p.Feed([]byte(`x`)) {
		t.Fatalf("expected invalid literal to fail")
	}
	first := p.Err()
	if first == nil {
		t.Fatalf("expected an error")
	}
	if p.Feed([]byte(`e`)) {
		t.Fatalf("expected poisoned parser to keep failing")
	}
	if p.Err().Error() != first.Error() {
		t.Fatalf("error changed after poisoning: %v != %v", p.Err(), first)
	}
}

// TestInvariant6CapacityExhaustion checks a too-small arena reports
// ErrCapacity rather than silently growing or corrupting state.
func TestInvariant6CapacityExhaustion(t *testing.T) {
	nodes := make(Arena, 0, 2)
	stack := make([]uint32, 0, 8)
	expecting := make([]bool, 8)
	p := NewParser(nodes, stack, expecting)
	if p.Feed([]byte(`[1,2,3]`)) {
		if p.Finish() {
			t.Fatalf("expected capacity exhaustion, parse unexpectedly succeeded")
		}
	}
	pe, ok := p.Err().(*ParseError)
	if !ok || pe.Kind != ErrCapacity {
		t.Fatalf("Err() = %v, want ErrCapacity", p.Err())
	}
}

// TestInvariant7NeverOverreads checks the parser only ever reports offsets
// within bounds of what has actually been fed.
func TestInvariant7NeverOverreads(t *testing.T) {
	doc := `{"key":"value"}`
	p := NewParserForSize(len(doc))
	if !p.Feed([]byte(doc)) || !p.Finish() {
		t.Fatalf("parse failed: %v", p.Err())
	}
	buf := []byte(doc)
	for i := range p.Nodes() {
		n := &p.Nodes()[i]
		if n.Kind == KindString {
			if n.Offset+uint64(n.Len) > uint64(len(buf)) {
				t.Fatalf("node %d references past end of buffer: %+v", i, n)
			}
		}
	}
}

func TestLineCounting(t *testing.T) {
	doc := "{\n  \"a\": 1,\n  \"b\": 2\n}"
	p := NewParserForSize(len(doc))
	if !p.Feed([]byte(doc)) || !p.Finish() {
		t.Fatalf("parse failed: %v", p.Err())
	}
	if p.Line() != 4 {
		t.Fatalf("Line() = %d, want 4", p.Line())
	}
}

func TestDuplicateKeysFirstMatchWins(t *testing.T) {
	nodes, buf := mustParse(t, `{"a":1,"a":2}`)
	root := nodes.Root()
	v := nodes.ObjectLookup(buf, root, []byte("a"))
	if v == nil || string(Bytes(buf, v)) != "1" {
		t.Fatalf("ObjectLookup with duplicate keys = %+v, want first match \"1\"", v)
	}
}
