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

/*
Package streamjson is a streaming, resumable JSON parser and serializer for
very large documents and for network-style delivery where bytes arrive in
arbitrarily small, arbitrarily aligned chunks.

Parsing is a byte-at-a-time state machine over a pre-sized flat node arena:
the parser never buffers an unbounded amount of input, never recurses over
document depth, and stores values as fixed-size node records holding only
(offset, length) back-references into the caller-owned input buffer.

A Parser is fed one or more byte slices with Feed and closed out with
Finish. Between Feed calls the parser suspends exactly at the call boundary;
no callbacks, no goroutines, no coroutines. A single Parser is not safe for
concurrent use, but distinct Parsers with distinct arenas run independently.
*/
package streamjson
