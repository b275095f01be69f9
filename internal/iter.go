// Package internal holds iterator helpers shared by the toolchain packages.
package internal

import (
	"cmp"
	"iter"
	"slices"
)

// IterSeqConcat concatenates multiple iterators into a single iterator sequence.
func IterSeqConcat[T any](seqs ...iter.Seq[T]) iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, seq := range seqs {
			for val := range seq {
				if !yield(val) {
					return
				}
			}
		}
	}
}

// SortedUnique collects an iterator into a sorted slice without duplicates.
func SortedUnique[T cmp.Ordered](seqs ...iter.Seq[T]) []T {
	return slices.Compact(slices.Sorted(IterSeqConcat(seqs...)))
}
