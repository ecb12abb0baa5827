/*************************************************************************
 * Copyright 2026 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package pathgraph builds the final vertex/edge structure from the Session
// Map and Request Table (spec.md §4.9), entirely single-threaded: the
// barrier after the Worker Pool joins means nothing here needs a lock.
package pathgraph

import (
	"math"
	"sort"

	"github.com/gravwell/apathy/internal/reqset"
	"github.com/gravwell/apathy/internal/sessionmap"
)

// Edge is one observed intra-session transition.
type Edge struct {
	Dest     reqset.RequestID
	Hits     int64
	CMAMs    float64 // cumulative moving average duration, milliseconds
}

// Vertex is one distinct request and its outbound/inbound totals.
type Vertex struct {
	ID          reqset.RequestID
	Edges       []Edge
	InHits      int64
	OutHits     int64
	MinDepth    int // 0 means never observed
}

// Graph is the full path graph: a RequestId-addressable vertex array plus
// totals. Per spec.md §9's Open Question resolution, Vertices stays
// addressable by RequestId for the program's lifetime; Order is a separate
// permutation used only by the Output Emitter to walk vertices in
// (min_depth, hits) order without destroying the index.
type Graph struct {
	Vertices    []Vertex // len == number of distinct requests, indexed by RequestId
	Order       []int    // permutation of vertex indices, sorted for output
	TotalHits   int64
	TotalEdges  int64
}

// Build constructs the Graph from every session in sessions (already
// chronologically sorted per-session by sessionmap.Map.Each) and the
// request table's size.
func Build(sessions *sessionmap.Map, numRequests int) *Graph {
	g := &Graph{Vertices: make([]Vertex, numRequests)}
	for i := range g.Vertices {
		g.Vertices[i] = Vertex{ID: reqset.RequestID(i)}
	}

	sessions.Each(func(s sessionmap.Session) {
		g.absorbSession(s)
	})

	g.Order = g.buildOrder()
	for i := range g.Vertices {
		v := &g.Vertices[i]
		sort.SliceStable(v.Edges, func(a, b int) bool {
			return v.Edges[a].Hits > v.Edges[b].Hits
		})
	}
	return g
}

// absorbSession walks one session's sorted requests, assigning min-depth and
// folding transitions into edges, per spec.md §4.9 step 3.
func (g *Graph) absorbSession(s sessionmap.Session) {
	depth := 1
	reqs := s.Requests
	for i, r := range reqs {
		v := &g.Vertices[r.ID]
		v.InHits++
		g.TotalHits++
		if v.MinDepth == 0 || depth < v.MinDepth {
			v.MinDepth = depth
		}

		if i+1 < len(reqs) {
			next := reqs[i+1]
			g.addEdge(v, next.ID, next.TS-r.TS)
			v.OutHits++
			if r.ID != next.ID {
				depth++
			}
			// self-loop: depth holds
		}
	}
}

// addEdge finds an existing edge to dest, updating its CMA duration and hit
// count, or appends a new edge, per spec.md §4.9 step 3's edge rule.
func (g *Graph) addEdge(v *Vertex, dest reqset.RequestID, durMs int64) {
	for i := range v.Edges {
		e := &v.Edges[i]
		if e.Dest == dest {
			n := float64(e.Hits)
			e.CMAMs = (float64(durMs) + n*e.CMAMs) / (n + 1)
			e.Hits++
			return
		}
	}
	v.Edges = append(v.Edges, Edge{Dest: dest, Hits: 1, CMAMs: float64(durMs)})
	g.TotalEdges++
}

// buildOrder stably sorts vertex indices by (min_depth ascending,
// (in+out) hits descending), tiebreaking on RequestId, matching spec.md
// §5's reproducibility guarantee and §9's "separate sort-permuted view"
// resolution.
func (g *Graph) buildOrder() []int {
	order := make([]int, len(g.Vertices))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		va, vb := &g.Vertices[order[a]], &g.Vertices[order[b]]
		if va.MinDepth != vb.MinDepth {
			return va.MinDepth < vb.MinDepth
		}
		ta, tb := va.InHits+va.OutHits, vb.InHits+vb.OutHits
		if ta != tb {
			return ta > tb
		}
		return va.ID < vb.ID
	})
	return order
}

// Weight is the per-vertex sqrt(hits_in / total_hits) used to derive font
// size and pen width in the Output Emitter (spec.md §4.10).
func (v *Vertex) Weight(totalHits int64) float64 {
	if totalHits == 0 {
		return 0
	}
	return math.Sqrt(float64(v.InHits) / float64(totalHits))
}

// DistinctDepths returns the ascending, deduplicated list of min_depth
// values present in g, for the Output Emitter's per-depth subgraph blocks.
func (g *Graph) DistinctDepths() []int {
	seen := make(map[int]bool)
	var depths []int
	for i := range g.Vertices {
		if g.Vertices[i].MinDepth == 0 {
			continue
		}
		d := g.Vertices[i].MinDepth
		if !seen[d] {
			seen[d] = true
			depths = append(depths, d)
		}
	}
	sort.Ints(depths)
	return depths
}
