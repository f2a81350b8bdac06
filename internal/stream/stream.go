// Package stream holds combinators over pull-driven sequences.
package stream

import (
	"iter"
	"sync/atomic"
)

// Take yields at most n pairs from seq and stops pulling once n is reached.
// A negative n yields everything.
func Take[K, V any](seq iter.Seq2[K, V], n int) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		if n == 0 {
			return
		}
		count := 0
		for k, v := range seq {
			if !yield(k, v) {
				return
			}
			count++
			if n > 0 && count >= n {
				return
			}
		}
	}
}

// Once wraps seq so that it can be ranged over a single time. Later ranges
// yield the zero key and the value returned by consumed.
func Once[K, V any](seq iter.Seq2[K, V], consumed func() V) iter.Seq2[K, V] {
	var used atomic.Bool
	return func(yield func(K, V) bool) {
		if !used.CompareAndSwap(false, true) {
			var zero K
			yield(zero, consumed())
			return
		}
		seq(yield)
	}
}
