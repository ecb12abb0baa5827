/*************************************************************************
 * Copyright 2026 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package reqset is the sharded intern table described in spec.md §4.5:
// canonical request string -> RequestId, with exactly-once assignment
// across every Worker Pool goroutine. 256 independently-spinlocked buckets
// trade memory for reduced contention, the same bandwidth-vs-memory call the
// teacher makes sharding ipexist's bitmap by mmap region.
package reqset

import (
	"github.com/gravwell/apathy/internal/fnv1a"
	"github.com/gravwell/apathy/internal/spinlock"
)

// RequestID is a stable, dense identifier in [0, N).
type RequestID int64

// Invalid denotes "no request."
const Invalid RequestID = -1

const numBuckets = 256

type entry struct {
	canon string
	hash  uint64
	id    RequestID
}

type bucket struct {
	lock    spinlock.Lock
	entries map[string]*entry
}

// Set is the sharded intern table. Zero value is not usable; use New.
type Set struct {
	buckets  [numBuckets]bucket
	idLock   spinlock.Lock
	nextID   RequestID
}

// New constructs an empty Set.
func New() *Set {
	s := &Set{}
	for i := range s.buckets {
		s.buckets[i].entries = make(map[string]*entry)
	}
	return s
}

// Intern returns the RequestId for canon, minting a new one if this is the
// first time canon has been observed by any caller (spec.md §4.5 steps
// 3-5). Lock order is always bucket-then-counter, matching spec.md §5.
func (s *Set) Intern(canon string) RequestID {
	h := fnv1a.Sum64([]byte(canon))
	b := &s.buckets[h%uint64(numBuckets)]

	b.lock.Acquire()
	if e, ok := b.entries[canon]; ok {
		id := e.id
		b.lock.Release()
		return id
	}
	// miss: deep-copy (map key already owns its own string header/backing
	// array distinct from any caller-owned buffer since canon here is
	// always freshly built by the truncation engine, not a slice into the
	// mapped file), mint an id, insert.
	s.idLock.Acquire()
	id := s.nextID
	s.nextID++
	s.idLock.Release()

	b.entries[canon] = &entry{canon: canon, hash: h, id: id}
	b.lock.Release()
	return id
}

// Len returns the number of distinct interned requests. Only valid after
// every worker has joined (spec.md §5: no concurrency during
// post-processing).
func (s *Set) Len() int {
	n := 0
	for i := range s.buckets {
		n += len(s.buckets[i].entries)
	}
	return n
}

// Table is the dense RequestId-indexed view built once after all workers
// terminate (spec.md §4.8).
type Table struct {
	Canonical []string
	Hash      []uint64
}

// BuildTable iterates every bucket and writes table[id] = (canon, hash) for
// each entry, per spec.md §4.8.
func (s *Set) BuildTable() *Table {
	n := s.Len()
	t := &Table{
		Canonical: make([]string, n),
		Hash:      make([]uint64, n),
	}
	for i := range s.buckets {
		for _, e := range s.buckets[i].entries {
			t.Canonical[e.id] = e.canon
			t.Hash[e.id] = e.hash
		}
	}
	return t
}
