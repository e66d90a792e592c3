// Package compress folds degree-2 chains of the node-based graph into
// single edges: an explicit chain-collapse over slice-indexed adjacency
// that records the folded geometry and refuses to fold barriers and
// restriction via-nodes.
package compress

import "github.com/wirahadi/graphprep/pkg/datastructure"

// CompressedEdge is one surviving node-based edge after chain folding.
// It carries the same fields as datastructure.NodeBasedEdge plus a
// GeometryID pointing at the folded chain's intermediate nodes.
type CompressedEdge struct {
	Source, Target datastructure.NodeID
	NameID         uint32
	Weight         int32
	Forward        bool
	Backward       bool
	Roundabout     bool
	AccessRestrict bool
	TravelMode     uint8
	GeometryID     uint32
}

// Result is the compressor's output: the folded edge list, the geometry
// side table, and the set of nodes that survived folding (everything
// else was a degree-2 link folded into an edge's geometry).
type Result struct {
	Edges    []CompressedEdge
	Geometry *GeometryStore
	Kept     []bool // indexed by NodeID; true unless the node was folded into an edge's geometry
}

// Compress folds every maximal degree-2 chain of the node-based graph
// spanned by edges into a single edge. edgeLengths carries each input
// edge's great-circle length in metres (indexed like edges; nil means
// all zero), recorded per segment into the geometry store so the folded
// chain's sub-segments stay addressable. barriers and trafficLight are
// indexed by NodeID, as is the output Kept slice. restrictions supplies
// the via-node set that must never be folded away.
func Compress(nodeCount int, edges []datastructure.NodeBasedEdge, edgeLengths []float64, barriers, trafficLight []bool, restrictions []datastructure.TurnRestriction, trafficSignalPenalty int32) Result {
	adjacency := buildAdjacency(nodeCount, edges)
	viaNodes := make([]bool, nodeCount)
	for _, r := range restrictions {
		viaNodes[r.Via] = true
	}

	compressible := make([]bool, nodeCount)
	for v := 0; v < nodeCount; v++ {
		compressible[v] = len(adjacency[v]) == 2 && !barriers[v] && !viaNodes[v]
	}

	used := make([]bool, len(edges))
	geometry := NewGeometryStore()
	kept := make([]bool, nodeCount)
	var out []CompressedEdge

	lengthOf := func(edgeIdx int) float64 {
		if edgeLengths == nil {
			return 0
		}
		return edgeLengths[edgeIdx]
	}

	walk := func(startEdge int, head datastructure.NodeID) {
		if used[startEdge] {
			return
		}
		out = append(out, collapseChain(edges, adjacency, compressible, trafficLight, trafficSignalPenalty, used, geometry, lengthOf, startEdge, head))
	}

	// Pass 1: chains that have a non-compressible head on at least one
	// side. This covers every chain except a cycle made entirely of
	// degree-2 nodes.
	for v := 0; v < nodeCount; v++ {
		if compressible[datastructure.NodeID(v)] {
			continue
		}
		kept[v] = true
		for _, ei := range adjacency[v] {
			walk(ei, datastructure.NodeID(v))
		}
	}

	// Pass 2: any edge left unused belongs to an all-degree-2 cycle;
	// collapse it into a self-loop rooted at one arbitrary node on the
	// cycle, which that node's own endpoints will mark Kept.
	for ei, e := range edges {
		if used[ei] {
			continue
		}
		kept[e.Source] = true
		out = append(out, collapseChain(edges, adjacency, compressible, trafficLight, trafficSignalPenalty, used, geometry, lengthOf, ei, e.Source))
	}

	for _, e := range out {
		kept[e.Source] = true
		kept[e.Target] = true
	}

	return Result{Edges: out, Geometry: geometry, Kept: kept}
}

func buildAdjacency(nodeCount int, edges []datastructure.NodeBasedEdge) [][]int {
	adjacency := make([][]int, nodeCount)
	for i, e := range edges {
		adjacency[e.Source] = append(adjacency[e.Source], i)
		if e.Source != e.Target {
			adjacency[e.Target] = append(adjacency[e.Target], i)
		}
	}
	return adjacency
}

// otherEndpoint returns the endpoint of e that is not from.
func otherEndpoint(e datastructure.NodeBasedEdge, from datastructure.NodeID) datastructure.NodeID {
	if e.Source == from {
		return e.Target
	}
	return e.Source
}

// allowsDirection reports whether e permits travel from `from` to `to`.
func allowsDirection(e datastructure.NodeBasedEdge, from, to datastructure.NodeID) bool {
	switch {
	case e.Source == from && e.Target == to:
		return e.Forward()
	case e.Source == to && e.Target == from:
		return e.Backward()
	default:
		return false
	}
}

// otherIncidentEdge returns the first adjacency entry at node that is not
// excludeEdge, or -1 if there is none.
func otherIncidentEdge(adjacency [][]int, node datastructure.NodeID, excludeEdge int) int {
	for _, ei := range adjacency[node] {
		if ei != excludeEdge {
			return ei
		}
	}
	return -1
}

// collapseChain walks the maximal chain of compressible nodes starting
// at head along startEdge, summing weight, recording geometry, and
// accumulating per-direction access, until it reaches a non-compressible
// node (or returns to head, for an all-degree-2 cycle).
func collapseChain(
	edges []datastructure.NodeBasedEdge,
	adjacency [][]int,
	compressible []bool,
	trafficLight []bool,
	trafficSignalPenalty int32,
	used []bool,
	geometry *GeometryStore,
	lengthOf func(edgeIdx int) float64,
	startEdge int,
	head datastructure.NodeID,
) CompressedEdge {
	used[startEdge] = true
	first := edges[startEdge]

	var (
		weight        int32
		forwardOK     = true
		backwardOK    = true
		intermediates []datastructure.NodeID
		segments      []Segment
	)

	cur := head
	edgeIdx := startEdge
	next := otherEndpoint(first, head)

	for {
		e := edges[edgeIdx]
		weight += e.Weight
		segments = append(segments, Segment{Weight: e.Weight, LengthM: lengthOf(edgeIdx)})
		forwardOK = forwardOK && allowsDirection(e, cur, next)
		backwardOK = backwardOK && allowsDirection(e, next, cur)

		if !compressible[next] || next == head {
			return CompressedEdge{
				Source:         head,
				Target:         next,
				NameID:         first.NameID,
				Weight:         weight,
				Forward:        forwardOK,
				Backward:       backwardOK,
				Roundabout:     first.Roundabout(),
				AccessRestrict: first.AccessRestricted(),
				TravelMode:     first.TravelMode,
				GeometryID:     geometry.Append(intermediates, segments),
			}
		}

		if trafficLight[next] {
			weight += trafficSignalPenalty
		}
		intermediates = append(intermediates, next)

		nextEdgeIdx := otherIncidentEdge(adjacency, next, edgeIdx)
		if nextEdgeIdx == -1 || used[nextEdgeIdx] {
			return CompressedEdge{
				Source:         head,
				Target:         next,
				NameID:         first.NameID,
				Weight:         weight,
				Forward:        forwardOK,
				Backward:       backwardOK,
				Roundabout:     first.Roundabout(),
				AccessRestrict: first.AccessRestricted(),
				TravelMode:     first.TravelMode,
				GeometryID:     geometry.Append(intermediates, segments),
			}
		}

		used[nextEdgeIdx] = true
		cur = next
		edgeIdx = nextEdgeIdx
		next = otherEndpoint(edges[edgeIdx], cur)
	}
}
