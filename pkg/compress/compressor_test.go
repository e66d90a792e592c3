package compress

import (
	"testing"

	"github.com/wirahadi/graphprep/pkg/datastructure"
)

func bidirectional(source, target datastructure.NodeID, weight int32) datastructure.NodeBasedEdge {
	return datastructure.NewNodeBasedEdge(source, target, 0, weight, true, true, false, false, true, 0)
}

// A->B->C->D, with B and C degree-2, should fold into a single A->D edge
// whose weight is the sum of the three segments.
func TestCompressFoldsDegree2Chain(t *testing.T) {
	edges := []datastructure.NodeBasedEdge{
		bidirectional(0, 1, 10),
		bidirectional(1, 2, 20),
		bidirectional(2, 3, 30),
	}
	barriers := make([]bool, 4)
	trafficLight := make([]bool, 4)

	result := Compress(4, edges, []float64{100, 200, 300}, barriers, trafficLight, nil, 20)

	if len(result.Edges) != 1 {
		t.Fatalf("got %d compressed edges, want 1", len(result.Edges))
	}
	got := result.Edges[0]
	if got.Source != 0 || got.Target != 3 {
		t.Fatalf("folded edge endpoints = %d->%d, want 0->3", got.Source, got.Target)
	}
	if got.Weight != 60 {
		t.Fatalf("folded edge weight = %d, want 60", got.Weight)
	}
	if !result.Kept[0] || !result.Kept[3] || result.Kept[1] || result.Kept[2] {
		t.Fatalf("Kept = %v, want only endpoints 0 and 3 kept", result.Kept)
	}
	if result.Geometry.Len() != 1 {
		t.Fatalf("Geometry.Len() = %d, want 1", result.Geometry.Len())
	}
	intermediate := result.Geometry.Get(got.GeometryID)
	if len(intermediate) != 2 || intermediate[0] != 1 || intermediate[1] != 2 {
		t.Fatalf("geometry for folded edge = %v, want [1 2]", intermediate)
	}
	segments := result.Geometry.Segments(got.GeometryID)
	if len(segments) != 3 {
		t.Fatalf("got %d segments, want 3 (one per constituent edge)", len(segments))
	}
	wantSegs := []Segment{{10, 100}, {20, 200}, {30, 300}}
	for i, s := range segments {
		if s != wantSegs[i] {
			t.Fatalf("segment %d = %+v, want %+v", i, s, wantSegs[i])
		}
	}
}

// A turn-restriction via-node must survive folding even if it only has
// degree 2, since the restriction still needs to resolve against it after
// edge expansion.
func TestCompressPreservesRestrictionViaNode(t *testing.T) {
	edges := []datastructure.NodeBasedEdge{
		bidirectional(0, 1, 10),
		bidirectional(1, 2, 20),
	}
	barriers := make([]bool, 3)
	trafficLight := make([]bool, 3)
	restrictions := []datastructure.TurnRestriction{{From: 0, Via: 1, To: 2, Kind: datastructure.RestrictionNo}}

	result := Compress(3, edges, nil, barriers, trafficLight, restrictions, 20)

	if len(result.Edges) != 2 {
		t.Fatalf("got %d compressed edges, want 2 (no folding across a via-node)", len(result.Edges))
	}
	if !result.Kept[1] {
		t.Fatalf("via-node 1 should stay Kept even though it has degree 2")
	}
}

// A traffic signal on a folded intermediate node adds its penalty into
// the surviving edge's weight.
func TestCompressAddsTrafficSignalPenalty(t *testing.T) {
	edges := []datastructure.NodeBasedEdge{
		bidirectional(0, 1, 10),
		bidirectional(1, 2, 10),
	}
	barriers := make([]bool, 3)
	trafficLight := []bool{false, true, false}

	result := Compress(3, edges, nil, barriers, trafficLight, nil, 5)

	if len(result.Edges) != 1 {
		t.Fatalf("got %d compressed edges, want 1", len(result.Edges))
	}
	if result.Edges[0].Weight != 25 {
		t.Fatalf("folded weight = %d, want 25 (10+10+5 signal penalty)", result.Edges[0].Weight)
	}
}

// A barrier on an otherwise-degree-2 node also blocks folding, the same
// as a restriction via-node.
func TestCompressPreservesBarrierNode(t *testing.T) {
	edges := []datastructure.NodeBasedEdge{
		bidirectional(0, 1, 10),
		bidirectional(1, 2, 10),
	}
	barriers := []bool{false, true, false}
	trafficLight := make([]bool, 3)

	result := Compress(3, edges, nil, barriers, trafficLight, nil, 5)

	if len(result.Edges) != 2 {
		t.Fatalf("got %d compressed edges, want 2 (barrier blocks folding)", len(result.Edges))
	}
}

// An isolated cycle made entirely of degree-2 nodes has no natural head;
// it still must fold into a single self-loop rather than being dropped.
func TestCompressAllDegree2CycleFoldsToSelfLoop(t *testing.T) {
	edges := []datastructure.NodeBasedEdge{
		bidirectional(0, 1, 10),
		bidirectional(1, 2, 10),
		bidirectional(2, 0, 10),
	}
	barriers := make([]bool, 3)
	trafficLight := make([]bool, 3)

	result := Compress(3, edges, nil, barriers, trafficLight, nil, 5)

	if len(result.Edges) != 1 {
		t.Fatalf("got %d compressed edges, want 1 self-loop", len(result.Edges))
	}
	if result.Edges[0].Source != result.Edges[0].Target {
		t.Fatalf("cycle fold should produce a self-loop, got %d->%d", result.Edges[0].Source, result.Edges[0].Target)
	}
}
