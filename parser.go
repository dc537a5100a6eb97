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

// parserState is the lexical/structural state of the incremental parser.
type parserState uint8

const (
	stateNormal parserState = iota
	stateAfterValue
	stateExpectColon
	stateInString
	stateInNumber
	stateInLiteral
)

var parserStateStr = [...]string{
	stateNormal:      "normal",
	stateAfterValue:  "after-value",
	stateExpectColon: "expect-colon",
	stateInString:    "in-string",
	stateInNumber:    "in-number",
	stateInLiteral:   "in-literal",
}

func (s parserState) String() string {
	if int(s) < len(parserStateStr) {
		return parserStateStr[s]
	}
	return "unknown"
}

type literalKind uint8

const (
	litNone literalKind = iota
	litTrue
	litFalse
	litNull
)

var literalText = [...]string{
	litTrue:  "true",
	litFalse: "false",
	litNull:  "null",
}

var literalKindFor = [...]Kind{
	litTrue:  KindTrue,
	litFalse: KindFalse,
	litNull:  KindNull,
}

// Parser is a fully resumable, byte-at-a-time JSON parser. It is not safe
// for concurrent use by multiple goroutines; distinct Parsers with
// distinct arenas run independently.
type Parser struct {
	nodes Arena // len grows by append; never exceeds cap(nodes)
	stack []uint32
	expectingKey []bool

	consumed uint64
	line     uint32 // 0-based internally; Line() reports 1-based

	err      ErrorKind
	errPos   uint64
	errLine  uint32
	errState parserState
	errSnip  string
	errCaret int

	state parserState

	pendingOffset uint64
	pendingLen    uint32
	pendingHash   uint32
	isKeyString   bool

	inEscape    bool
	inUniEscape bool
	uniDigits   uint8

	numHasDot            bool
	numHasExp            bool
	numHasDigit          bool
	numHasDigitAfterDot  bool
	numHasDigitAfterExp  bool
	numEndsWithDot       bool
	numEndsWithE         bool
	numEndsWithESign     bool
	numIsNegative        bool
	numIntZero           bool // integer part so far is a lone 0

	pendingLiteral literalKind
	literalMatched int

	pendingValue bool // waiting for a value after a key; a container close while true is an error
}

// NewParser allocates a Parser already initialized over the given
// caller-owned buffers. nodes, stack and expectingKey should be passed
// with len 0 (nodes, stack) / full length (expectingKey) and whatever
// capacity the caller wants to bound parsing to; see EstimateCapacity for
// a starting heuristic.
func NewParser(nodes Arena, stack []uint32, expectingKey []bool) *Parser {
	p := &Parser{}
	p.Init(nodes, stack, expectingKey)
	return p
}

// Init (re)initializes p over new buffers, resetting all parser state.
// Capacity is fixed at Init; it is never grown mid-parse.
func (p *Parser) Init(nodes Arena, stack []uint32, expectingKey []bool) {
	*p = Parser{
		nodes:        nodes[:0],
		stack:        stack[:0],
		expectingKey: expectingKey,
		state:        stateNormal,
	}
}

// NodesLen reports how many nodes have been written to the arena so far.
func (p *Parser) NodesLen() int { return len(p.nodes) }

// Nodes returns the arena written so far. The returned slice aliases p's
// internal storage and is invalidated by further Feed/Finish calls only in
// the sense that new nodes and closed-container Len/Skip patches will keep
// landing in it; it is never reallocated out from under a prior read.
func (p *Parser) Nodes() Arena { return p.nodes }

// Line returns the current 1-based line number, tracked only for
// diagnostics (line breaks in whitespace between tokens).
func (p *Parser) Line() uint32 { return p.line + 1 }

// Err returns the latched parse error, or nil if none has occurred.
func (p *Parser) Err() error {
	if p.err == ErrNone {
		return nil
	}
	return &ParseError{
		Kind:    p.err,
		Pos:     p.errPos,
		Line:    p.errLine + 1,
		State:   p.errState.String(),
		Snippet: p.errSnip,
		Caret:   p.errCaret,
	}
}

func (p *Parser) fail(kind ErrorKind, data []byte, localPos int) bool {
	p.err = kind
	p.errPos = p.consumed + uint64(localPos)
	p.errLine = p.line
	p.errState = p.state
	if data != nil && localPos >= 0 && localPos <= len(data) {
		start := localPos - 20
		if start < 0 {
			start = 0
		}
		end := localPos + 20
		if end > len(data) {
			end = len(data)
		}
		p.errSnip = string(data[start:end])
		p.errCaret = localPos - start
	}
	return false
}

func (p *Parser) pushNode(n Node) (int, bool) {
	if len(p.nodes) >= cap(p.nodes) {
		return -1, false
	}
	p.nodes = append(p.nodes, n)
	return len(p.nodes) - 1, true
}

// completeValue runs the bookkeeping shared by every value node once it is
// fully formed: parent child-count increment and key-hash inheritance.
func (p *Parser) completeValue(idx int) {
	if len(p.stack) == 0 {
		return
	}
	top := int(p.stack[len(p.stack)-1])
	if p.nodes[top].Kind == KindObject && idx > 0 && p.nodes[idx-1].Kind == KindString {
		p.nodes[idx].Skip = p.nodes[idx-1].Skip
	}
	p.nodes[top].Children++
}

// Feed processes the next chunk of input. It returns true on success; on
// any error it latches the error (see Err) and returns false. After an
// error, the parser is poisoned: further Feed calls return false
// immediately without inspecting their input. Feed is restartable across
// chunk boundaries in every state; no input byte is re-examined between
// calls.
func (p *Parser) Feed(data []byte) bool {
	if p.err != ErrNone {
		return false
	}

	pos := 0
	n := len(data)

	for pos < n {
		if p.state == stateNormal || p.state == stateAfterValue {
			p.skipWhitespace(data, &pos)
		}
		if pos >= n {
			break
		}
		c := data[pos]

		switch p.state {
		case stateExpectColon:
			if c != ':' {
				return p.fail(ErrUnexpected, data, pos)
			}
			p.expectingKey[len(p.stack)-1] = false
			p.state = stateNormal
			pos++

		case stateInLiteral:
			if !p.stepLiteral(data, &pos) {
				return false
			}

		case stateInString:
			if !p.stepString(data, &pos) {
				return false
			}

		case stateInNumber:
			if !p.stepNumber(data, &pos) {
				return false
			}

		case stateNormal, stateAfterValue:
			if !p.stepNormalOrAfterValue(data, &pos) {
				return false
			}
		}
	}

	p.consumed += uint64(pos)
	return true
}

func (p *Parser) skipWhitespace(data []byte, pos *int) {
	for *pos < len(data) {
		c := data[*pos]
		if c == '\n' || c == '\r' {
			p.line++
		}
		if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			return
		}
		*pos++
	}
}

func (p *Parser) stepLiteral(data []byte, pos *int) bool {
	expected := literalText[p.pendingLiteral]
	c := data[*pos]
	if c != expected[p.literalMatched] {
		return p.fail(ErrUnexpected, data, *pos)
	}
	p.literalMatched++
	*pos++

	if p.literalMatched == len(expected) {
		idx, ok := p.pushNode(Node{Kind: literalKindFor[p.pendingLiteral], Offset: p.pendingOffset, Len: uint32(len(expected))})
		if !ok {
			return p.fail(ErrCapacity, nil, *pos-1)
		}
		p.completeValue(idx)
		p.state = stateAfterValue
		p.pendingLiteral = litNone
		p.literalMatched = 0
	}
	return true
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F') || (c >= 'a' && c <= 'f')
}

func (p *Parser) stepString(data []byte, pos *int) bool {
	c := data[*pos]

	// Keys are hashed over their stored text, escapes included, so that
	// HashKey over the same bytes produces the same value.
	if p.isKeyString && (p.inEscape || p.inUniEscape || c != '"') {
		p.pendingHash = (p.pendingHash*33 ^ uint32(c)) & skipMask
	}

	if p.inUniEscape {
		if !isHexDigit(c) {
			return p.fail(ErrUnexpected, data, *pos)
		}
		p.uniDigits++
		if p.uniDigits == 4 {
			p.inUniEscape = false
		}
		p.pendingLen++
		*pos++
		return true
	}

	if p.inEscape {
		p.inEscape = false
		switch c {
		case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
		case 'u':
			p.inUniEscape = true
			p.uniDigits = 0
		default:
			return p.fail(ErrUnexpected, data, *pos)
		}
		p.pendingLen++
		*pos++
		return true
	}

	if c == '\\' {
		p.inEscape = true
		p.pendingLen++
		*pos++
		return true
	}

	if c == '"' {
		skip := uint32(0)
		if p.isKeyString {
			skip = p.pendingHash
		}
		idx, ok := p.pushNode(Node{Kind: KindString, Offset: p.pendingOffset, Len: p.pendingLen, Skip: skip})
		if !ok {
			return p.fail(ErrCapacity, nil, *pos)
		}
		if p.isKeyString {
			if len(p.stack) > 0 {
				p.nodes[p.stack[len(p.stack)-1]].Children++
			}
		} else {
			p.completeValue(idx)
		}
		*pos++
		if p.isKeyString {
			p.state = stateExpectColon
			p.pendingValue = true
		} else {
			p.state = stateAfterValue
		}
		p.inEscape = false
		p.inUniEscape = false
		p.uniDigits = 0
		return true
	}

	p.pendingLen++
	*pos++
	return true
}

func (p *Parser) numberValid() bool {
	if !p.numHasDigit {
		return false
	}
	if p.numIsNegative && p.pendingLen == 1 {
		return false
	}
	if p.numHasDot && !p.numHasDigitAfterDot {
		return false
	}
	if p.numHasExp && !p.numHasDigitAfterExp {
		return false
	}
	if p.numEndsWithDot || p.numEndsWithE || p.numEndsWithESign {
		return false
	}
	return true
}

func (p *Parser) numberKind() Kind {
	if p.numHasDot || p.numHasExp {
		return KindFloat
	}
	return KindInt
}

// stepNumber advances one byte of number lexing, or, if the byte does not
// extend the number, validates and emits the pending number node without
// consuming that byte (it is re-dispatched from AfterValue on the next
// iteration).
func (p *Parser) stepNumber(data []byte, pos *int) bool {
	c := data[*pos]

	switch {
	case c >= '0' && c <= '9':
		if !p.numHasDot && !p.numHasExp {
			if p.numIntZero {
				return p.fail(ErrUnexpected, data, *pos) // leading zero
			}
			p.numIntZero = !p.numHasDigit && c == '0'
		}
		p.numHasDigit = true
		if p.numHasDot {
			p.numHasDigitAfterDot = true
		}
		if p.numHasExp {
			p.numHasDigitAfterExp = true
		}
		p.numEndsWithDot = false
		p.numEndsWithE = false
		p.numEndsWithESign = false
		p.pendingLen++
		*pos++
		return true
	case c == '.' && !p.numHasDot && !p.numHasExp:
		p.numHasDot = true
		p.numEndsWithDot = true
		p.pendingLen++
		*pos++
		return true
	case (c == 'e' || c == 'E') && !p.numHasExp && p.numHasDigit:
		p.numHasExp = true
		p.numEndsWithE = true
		p.pendingLen++
		*pos++
		return true
	case (c == '+' || c == '-') && p.numEndsWithE:
		p.numEndsWithESign = true
		p.numEndsWithE = false
		p.pendingLen++
		*pos++
		return true
	}

	if !p.numberValid() {
		return p.fail(ErrUnexpected, data, *pos)
	}

	idx, ok := p.pushNode(Node{Kind: p.numberKind(), Offset: p.pendingOffset, Len: p.pendingLen})
	if !ok {
		return p.fail(ErrCapacity, nil, *pos)
	}
	p.completeValue(idx)
	p.state = stateAfterValue
	return true
}

func (p *Parser) stepNormalOrAfterValue(data []byte, pos *int) bool {
	c := data[*pos]

	// Container close works from both Normal and AfterValue.
	if len(p.stack) > 0 {
		topType := p.nodes[p.stack[len(p.stack)-1]].Kind
		if (c == '}' && topType == KindObject) || (c == ']' && topType == KindArray) {
			if p.pendingValue {
				return p.fail(ErrUnexpected, data, *pos)
			}
			openIdx := int(p.stack[len(p.stack)-1])
			// From Normal a close is legal only right after the opening
			// bracket; anywhere else it follows a trailing ','.
			if p.state == stateNormal && openIdx != len(p.nodes)-1 {
				return p.fail(ErrUnexpected, data, *pos)
			}
			p.stack = p.stack[:len(p.stack)-1]
			p.nodes[openIdx].Len = uint32(p.consumed + uint64(*pos) - p.nodes[openIdx].Offset + 1)
			contentNodes := len(p.nodes) - (openIdx + 1)
			p.nodes[openIdx].Skip = uint32(contentNodes) & skipMask
			p.state = stateAfterValue
			*pos++
			return true
		}
	}

	if p.state == stateAfterValue {
		if c == ',' {
			p.state = stateNormal
			*pos++
			if len(p.stack) > 0 && p.nodes[p.stack[len(p.stack)-1]].Kind == KindObject {
				p.expectingKey[len(p.stack)-1] = true
			}
			return true
		}
		return p.fail(ErrUnexpected, data, *pos)
	}

	expectingKey := len(p.stack) > 0 && p.expectingKey[len(p.stack)-1]

	if expectingKey {
		if c != '"' {
			return p.fail(ErrUnexpected, data, *pos)
		}
		p.state = stateInString
		p.isKeyString = true
		p.pendingHash = 0
		p.pendingOffset = p.consumed + uint64(*pos) + 1
		p.pendingLen = 0
		p.inEscape = false
		*pos++
		return true
	}

	p.pendingValue = false

	switch {
	case c == '"':
		p.state = stateInString
		p.isKeyString = false
		p.pendingOffset = p.consumed + uint64(*pos) + 1
		p.pendingLen = 0
		p.inEscape = false
		*pos++
		return true

	case c == '{':
		return p.openContainer(KindObject, data, pos)

	case c == '[':
		return p.openContainer(KindArray, data, pos)

	case c == '-' || (c >= '0' && c <= '9'):
		p.state = stateInNumber
		p.pendingOffset = p.consumed + uint64(*pos)
		p.pendingLen = 1
		p.numHasDigit = c >= '0' && c <= '9'
		p.numIsNegative = c == '-'
		p.numIntZero = c == '0'
		p.numHasDot = false
		p.numHasExp = false
		p.numHasDigitAfterDot = false
		p.numHasDigitAfterExp = false
		p.numEndsWithDot = false
		p.numEndsWithE = false
		p.numEndsWithESign = false
		*pos++
		return true

	case c == 't':
		p.pendingLiteral = litTrue
		p.literalMatched = 1
		p.pendingOffset = p.consumed + uint64(*pos)
		p.state = stateInLiteral
		*pos++
		return true

	case c == 'f':
		p.pendingLiteral = litFalse
		p.literalMatched = 1
		p.pendingOffset = p.consumed + uint64(*pos)
		p.state = stateInLiteral
		*pos++
		return true

	case c == 'n':
		p.pendingLiteral = litNull
		p.literalMatched = 1
		p.pendingOffset = p.consumed + uint64(*pos)
		p.state = stateInLiteral
		*pos++
		return true
	}

	return p.fail(ErrUnexpected, data, *pos)
}

func (p *Parser) openContainer(kind Kind, data []byte, pos *int) bool {
	idx, ok := p.pushNode(Node{Kind: kind, Offset: p.consumed + uint64(*pos)})
	if !ok {
		return p.fail(ErrCapacity, nil, *pos)
	}
	if len(p.stack) >= cap(p.stack) {
		p.nodes = p.nodes[:idx] // undo: arena/stack capacity errors must not leave a dangling node
		return p.fail(ErrCapacity, nil, *pos)
	}
	if len(p.stack) > 0 {
		p.nodes[p.stack[len(p.stack)-1]].Children++
	}
	p.stack = append(p.stack, uint32(idx))
	p.expectingKey[len(p.stack)-1] = kind == KindObject
	*pos++
	return true
}

// Finish must be called after the last byte of input. It succeeds iff no
// error is latched, the container stack is empty, and any still-open
// number is completable. Open strings or literals at EOF are Incomplete.
// Success requires at least one completed node.
func (p *Parser) Finish() bool {
	if p.err != ErrNone {
		return false
	}
	if len(p.stack) != 0 {
		return p.fail(ErrIncomplete, nil, 0)
	}

	if p.state == stateInNumber {
		if !p.numberValid() {
			return p.fail(ErrUnexpected, nil, 0)
		}
		idx, ok := p.pushNode(Node{Kind: p.numberKind(), Offset: p.pendingOffset, Len: p.pendingLen})
		if !ok {
			return p.fail(ErrCapacity, nil, 0)
		}
		p.completeValue(idx)
	} else if p.state == stateInString || p.state == stateInLiteral {
		return p.fail(ErrIncomplete, nil, 0)
	}

	if len(p.nodes) == 0 {
		return p.fail(ErrIncomplete, nil, 0)
	}
	return true
}
