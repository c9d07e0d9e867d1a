// Copyright 2024 The pkgsolve Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package provider

import (
	"errors"
	"sync"
	"testing"
)

func TestIndexComputesOnce(t *testing.T) {
	idx := NewIndex[string, int]()
	calls := 0
	compute := func() (int, error) {
		calls++
		return 42, nil
	}

	for i := 0; i < 3; i++ {
		v, err := idx.GetOrCompute("a", compute)
		if err != nil {
			t.Fatalf("GetOrCompute: %v", err)
		}
		if v != 42 {
			t.Errorf("GetOrCompute = %d, want 42", v)
		}
	}
	if calls != 1 {
		t.Errorf("compute called %d times, want 1", calls)
	}
}

func TestIndexCachesDistinctKeysIndependently(t *testing.T) {
	idx := NewIndex[string, int]()
	va, _ := idx.GetOrCompute("a", func() (int, error) { return 1, nil })
	vb, _ := idx.GetOrCompute("b", func() (int, error) { return 2, nil })
	if va != 1 || vb != 2 {
		t.Errorf("GetOrCompute(a)=%d GetOrCompute(b)=%d, want 1, 2", va, vb)
	}
}

func TestIndexCachesError(t *testing.T) {
	idx := NewIndex[string, int]()
	wantErr := errors.New("boom")
	calls := 0
	compute := func() (int, error) {
		calls++
		return 0, wantErr
	}

	_, err1 := idx.GetOrCompute("a", compute)
	_, err2 := idx.GetOrCompute("a", compute)
	if !errors.Is(err1, wantErr) || !errors.Is(err2, wantErr) {
		t.Fatalf("errors = %v, %v, want both %v", err1, err2, wantErr)
	}
	if calls != 1 {
		t.Errorf("compute called %d times after error, want 1 (error cached too)", calls)
	}
}

func TestIndexConcurrentCallersShareOneComputation(t *testing.T) {
	idx := NewIndex[string, int]()
	var calls int
	var mu sync.Mutex
	compute := func() (int, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return 7, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := idx.GetOrCompute("shared", compute)
			if err != nil {
				t.Errorf("GetOrCompute: %v", err)
			}
			results[i] = v
		}(i)
	}
	wg.Wait()

	for i, v := range results {
		if v != 7 {
			t.Errorf("results[%d] = %d, want 7", i, v)
		}
	}
	if calls != 1 {
		t.Errorf("compute called %d times across goroutines, want 1", calls)
	}
}
