/*************************************************************************
 * Copyright 2026 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package sessionmap is the sharded multimap described in spec.md §4.6:
// SessionId -> growable list of (timestamp, RequestId), accumulated
// unsorted under high concurrency and only ordered in post-processing.
package sessionmap

import (
	"sort"

	"github.com/gravwell/apathy/internal/fnv1a"
	"github.com/gravwell/apathy/internal/reqset"
	"github.com/gravwell/apathy/internal/spinlock"
)

const numBuckets = 65536

// Request is one (timestamp, RequestId) observation, unsorted at insertion.
type Request struct {
	TS int64
	ID reqset.RequestID
}

type sessionEntry struct {
	sid      uint64
	requests []Request
}

type bucket struct {
	lock    spinlock.Lock
	entries map[uint64]*sessionEntry
	order   []uint64 // insertion order, for reproducible bucket iteration
}

// Map is the sharded session multimap.
type Map struct {
	buckets [numBuckets]bucket
}

// New constructs an empty Map.
func New() *Map {
	m := &Map{}
	for i := range m.buckets {
		m.buckets[i].entries = make(map[uint64]*sessionEntry)
	}
	return m
}

// shardIndex rehashes sid through FNV-1a and masks to 16 bits, per spec.md
// §4.6 ("the bucket is selected by rehashing sid through FNV-1a").
func shardIndex(sid uint64) uint64 {
	h := fnv1a.Sum64Seed(fnv1a.Seed, []byte{
		byte(sid), byte(sid >> 8), byte(sid >> 16), byte(sid >> 24),
		byte(sid >> 32), byte(sid >> 40), byte(sid >> 48), byte(sid >> 56),
	})
	return h & (numBuckets - 1)
}

// Amend appends (ts, rid) to the session keyed by sid, creating the session
// entry on first observation. Grows the request buffer by doubling its
// capacity whenever it is full (spec.md §4.6).
func (m *Map) Amend(sid uint64, ts int64, rid reqset.RequestID) {
	idx := shardIndex(sid)
	b := &m.buckets[idx]
	b.lock.Acquire()
	defer b.lock.Release()

	e, ok := b.entries[sid]
	if !ok {
		e = &sessionEntry{sid: sid, requests: make([]Request, 0, 1)}
		b.entries[sid] = e
		b.order = append(b.order, sid)
	}
	if len(e.requests) == cap(e.requests) {
		grown := make([]Request, len(e.requests), 2*cap(e.requests))
		copy(grown, e.requests)
		e.requests = grown
	}
	e.requests = append(e.requests, Request{TS: ts, ID: rid})
}

// Session is one fully-populated, chronologically-sorted session, yielded
// during iteration.
type Session struct {
	ID       uint64
	Requests []Request
}

// Each walks every session, bucket-index order then insertion order within
// a bucket (spec.md §5's reproducibility guarantee), stably sorting each
// session's requests by ascending timestamp before invoking fn (spec.md
// §4.9 step 2). Only safe to call after every worker has joined.
func (m *Map) Each(fn func(Session)) {
	for i := 0; i < numBuckets; i++ {
		b := &m.buckets[i]
		for _, sid := range b.order {
			e := b.entries[sid]
			sort.SliceStable(e.requests, func(a, c int) bool {
				return e.requests[a].TS < e.requests[c].TS
			})
			fn(Session{ID: e.sid, Requests: e.requests})
		}
	}
}

// SessionCount returns the total number of distinct sessions observed.
func (m *Map) SessionCount() int {
	n := 0
	for i := range m.buckets {
		n += len(m.buckets[i].order)
	}
	return n
}
