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

package xorshift

import "testing"

func TestDeterministicForFixedSeed(t *testing.T) {
	a := New(123)
	b := New(123)
	for i := 0; i < 100; i++ {
		if a.Next() != b.Next() {
			t.Fatalf("iteration %d: same seed diverged", i)
		}
	}
}

func TestZeroSeedReplaced(t *testing.T) {
	r := New(0)
	if r.state == 0 {
		t.Fatalf("zero seed left state at zero, sequence would be stuck")
	}
}

func TestFloat64InUnitRange(t *testing.T) {
	r := New(99)
	for i := 0; i < 1000; i++ {
		f := r.Float64()
		if f < 0 || f >= 1 {
			t.Fatalf("Float64() = %v, want [0,1)", f)
		}
	}
}

func TestIntnBounds(t *testing.T) {
	r := New(5)
	for i := 0; i < 1000; i++ {
		v := r.Intn(7)
		if v < 0 || v >= 7 {
			t.Fatalf("Intn(7) = %d, out of range", v)
		}
	}
}
