package lfqueue

import "testing"

// FuzzPushPopInvariant drives a single Queue through fuzzed counts of
// interleaved PushN/PopN calls and checks that Len always equals pushed
// minus popped, then drains whatever remains and confirms every item is
// accounted for.
func FuzzPushPopInvariant(f *testing.F) {
	f.Add(uint8(10), uint8(10))
	f.Add(uint8(0), uint8(5))
	f.Add(uint8(200), uint8(3))

	f.Fuzz(func(t *testing.T, pushCount, popCount uint8) {
		q := New[int]()
		pushes := int(pushCount) % 200
		pops := int(popCount) % 200

		for i := 0; i < pushes; i++ {
			q.PushN(i)
		}

		popped := 0
		for i := 0; i < pops; i++ {
			if _, ok := q.PopN(); ok {
				popped++
			} else {
				break
			}
		}

		want := pushes - popped
		if got := q.Len(); got != want {
			t.Fatalf("Len() = %d, want %d (pushed %d, popped %d)", got, want, pushes, popped)
		}

		drained := 0
		for {
			if _, ok := q.PopN(); ok {
				drained++
			} else {
				break
			}
		}
		if drained != want {
			t.Fatalf("drained %d items, want %d", drained, want)
		}
		if got := q.Len(); got != 0 {
			t.Fatalf("Len() = %d after full drain", got)
		}
	})
}
