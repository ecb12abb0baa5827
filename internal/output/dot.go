/*************************************************************************
 * Copyright 2026 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package output serializes a pathgraph.Graph to the dot-graph textual
// format specified in spec.md §6, for consumption by a downstream
// graph-layout renderer (out of scope per spec.md §1).
package output

import (
	"bufio"
	"fmt"
	"io"

	"github.com/gravwell/apathy/internal/pathgraph"
	"github.com/gravwell/apathy/internal/reqset"
)

const (
	nodesep = 0.6
	ranksep = 1.2

	baseFontSize = 10.0
	fontScale    = 20.0
	basePenWidth = 1.0
	penScale     = 4.0
)

// Format names an accepted --format value (spec.md §6 only defines
// "dot-graph" today).
type Format string

// DotGraph is the only accepted output format.
const DotGraph Format = "dot-graph"

// ValidFormat reports whether f is an accepted --format value.
func ValidFormat(f string) bool {
	return Format(f) == DotGraph
}

// Emit writes g in the dot-graph format to w, using table for canonical
// request strings.
func Emit(w io.Writer, g *pathgraph.Graph, table *reqset.Table) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "digraph apathy_graph {\n")
	fmt.Fprintf(bw, "  nodesep=%.2f; rankdir=LR; ranksep=%.2f;\n", nodesep, ranksep)

	for _, depth := range g.DistinctDepths() {
		fmt.Fprintf(bw, "  subgraph s%d { rank = same;\n", depth)
		for _, vi := range g.Order {
			v := &g.Vertices[vi]
			if v.MinDepth != depth {
				continue
			}
			writeVertex(bw, v, table, g.TotalHits)
		}
		fmt.Fprintf(bw, "  }\n")
	}

	for _, vi := range g.Order {
		v := &g.Vertices[vi]
		for _, e := range v.Edges {
			writeEdge(bw, v, e, g, table)
		}
	}

	fmt.Fprintf(bw, "}\n")
	return bw.Flush()
}

func writeVertex(bw *bufio.Writer, v *pathgraph.Vertex, table *reqset.Table, totalHits int64) {
	canon := table.Canonical[v.ID]
	hash := table.Hash[v.ID]
	r, g2, b := hashColor(hash, 1.0)
	weight := v.Weight(totalHits)
	fontsize := baseFontSize + fontScale*weight
	penwidth := basePenWidth + penScale*weight

	inPct := pct(v.InHits, totalHits)
	outPct := pct(v.OutHits, totalHits)

	fmt.Fprintf(bw, "    r%d [label=\"%s\\n(in %.2f%% (%d), out %.2f%% (%d))\", fontsize=%.1f, style=filled, fillcolor=\"#%02X%02X%02X\", penwidth=%.2f];\n",
		v.ID, escapeLabel(canon), inPct, v.InHits, outPct, v.OutHits, fontsize, r, g2, b, penwidth)
}

func writeEdge(bw *bufio.Writer, src *pathgraph.Vertex, e pathgraph.Edge, g *pathgraph.Graph, table *reqset.Table) {
	dst := &g.Vertices[e.Dest]
	hash := table.Hash[src.ID]
	r, g2, b := hashColor(hash, 0.8)
	fr, fg, fb := hashColor(hash, 0.6)

	weight := src.Weight(g.TotalHits)
	fontsize := baseFontSize + fontScale*weight
	penwidth := basePenWidth + penScale*weight
	edgePct := pct(e.Hits, g.TotalHits)
	seconds := e.CMAMs / 1000.0

	style := "solid"
	if src.ID == e.Dest {
		style = "dotted"
	} else if dst.MinDepth < src.MinDepth {
		style = "dashed"
	}

	fmt.Fprintf(bw, "  r%d -> r%d [xlabel=\"%.2f%% (%d)\\n%.1fs\", fontsize=%.1f, style=%s, color=\"#%02X%02X%02X\", fontcolor=\"#%02X%02X%02X\", penwidth=%.2f];\n",
		src.ID, e.Dest, edgePct, e.Hits, seconds, fontsize, style, r, g2, b, fr, fg, fb, penwidth)
}

func pct(n, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

// hashColor derives an RGB triple from hash's low 24 bits, scaled by
// intensity in (0,1] so edges (0.8) and edge labels (0.6) read as a darker
// tint of their source vertex's color.
func hashColor(hash uint64, intensity float64) (r, g, b int) {
	r = scaleChannel(byte(hash>>16), intensity)
	g = scaleChannel(byte(hash>>8), intensity)
	b = scaleChannel(byte(hash), intensity)
	return
}

func scaleChannel(c byte, intensity float64) int {
	v := int(float64(c) * intensity)
	if v > 255 {
		v = 255
	}
	if v < 0 {
		v = 0
	}
	return v
}

func escapeLabel(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			out = append(out, '\\', '"')
		case '\\':
			out = append(out, '\\', '\\')
		default:
			out = append(out, s[i])
		}
	}
	return string(out)
}
