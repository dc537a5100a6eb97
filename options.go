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

// EstimateCapacity returns a node-count heuristic for sizing an Arena
// ahead of parsing a document of byteLen bytes, ported from the reference
// implementation's node-count estimator: one node per roughly 11 bytes of
// input, padded by 20% headroom, rounded up to the next multiple of 4096;
// a non-positive byteLen returns 64. It is only a heuristic; Feed still reports ErrCapacity if the real
// document needs more nodes than whatever capacity the caller chooses.
func EstimateCapacity(byteLen int) int {
	if byteLen <= 0 {
		return 64
	}
	nodes := byteLen / 11
	if nodes < 64 {
		nodes = 64
	}
	nodes += nodes / 5 // +20% headroom
	const round = 4096
	return (nodes + round - 1) / round * round
}

// EstimateDepth returns a stack-depth heuristic: nesting depth rarely
// exceeds capacity/8 in real documents, plus a fixed floor for small
// inputs.
func EstimateDepth(byteLen int) int {
	return EstimateCapacity(byteLen)/8 + 1024
}

// ParserOption configures a Parser built by NewParserForSize, following
// the functional-options idiom this package's ancestry uses for parser
// configuration.
type ParserOption func(*parserConfig)

type parserConfig struct {
	capacityHint int
	depthHint    int
}

// WithCapacityHint overrides the arena capacity NewParserForSize would
// otherwise derive from EstimateCapacity.
func WithCapacityHint(nodes int) ParserOption {
	return func(c *parserConfig) { c.capacityHint = nodes }
}

// WithDepthHint overrides the container-stack depth NewParserForSize
// would otherwise derive from EstimateDepth.
func WithDepthHint(depth int) ParserOption {
	return func(c *parserConfig) { c.depthHint = depth }
}

// NewParserForSize allocates a Parser with arena and stack buffers sized
// by EstimateCapacity/EstimateDepth for an expected document of byteLen
// bytes, or by whatever hints opts override. It is a convenience
// constructor; NewParser remains the primitive entry point for callers
// who want to own their buffers directly, e.g. to reuse them across many
// parses.
func NewParserForSize(byteLen int, opts ...ParserOption) *Parser {
	cfg := parserConfig{
		capacityHint: EstimateCapacity(byteLen),
		depthHint:    EstimateDepth(byteLen),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	nodes := make(Arena, 0, cfg.capacityHint)
	stack := make([]uint32, 0, cfg.depthHint)
	expectingKey := make([]bool, cfg.depthHint)
	return NewParser(nodes, stack, expectingKey)
}
