/*************************************************************************
 * Copyright 2026 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package fnv1a implements the 64-bit FNV-1a hash as an incremental
// accumulator. Used for both RequestSet/SessionMap shard selection and
// SessionId derivation. No suitable third-party 64-bit FNV-1a implementation
// with an incremental byte-at-a-time Write surface exists in the retrieved
// corpus that beats the ten-line stdlib-equivalent arithmetic here, so this
// stays hand-rolled rather than pulling in hash/fnv's heavier hash.Hash64
// interface for a sum that's recomputed per field rather than streamed.
package fnv1a

const (
	offsetBasis uint64 = 14695981039346656037
	prime       uint64 = 1099511628211
)

// Sum64 hashes b in one shot, starting from the standard offset basis.
func Sum64(b []byte) uint64 {
	return Sum64Seed(offsetBasis, b)
}

// Sum64Seed continues an FNV-1a hash from a prior accumulator value, letting
// callers fold several discontiguous FieldViews (e.g. the session-contributing
// fields) into one hash without concatenating them into a temporary buffer.
func Sum64Seed(seed uint64, b []byte) uint64 {
	h := seed
	for _, c := range b {
		h ^= uint64(c)
		h *= prime
	}
	return h
}

// Seed is the starting accumulator for a fresh incremental hash.
const Seed = offsetBasis
