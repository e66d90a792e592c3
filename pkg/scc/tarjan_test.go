package scc

import (
	"testing"

	"github.com/wirahadi/graphprep/pkg/datastructure"
)

func TestRunFindsCycleComponent(t *testing.T) {
	// 0 <-> 1 form a cycle; 2 only reaches them, so it is its own
	// component.
	adjacency := [][]uint32{
		{1},
		{0},
		{0},
	}
	compOf := Run(3, adjacency)

	if compOf[0] != compOf[1] {
		t.Fatalf("0 and 1 are mutually reachable, want same component, got %d and %d", compOf[0], compOf[1])
	}
	if compOf[2] == compOf[0] {
		t.Fatalf("2 cannot be reached back from the cycle, want its own component")
	}
}

// A bidirectional compressed edge's two edge-based nodes are linked
// forward<->reverse by BuildAdjacency, so they always share a component.
func TestForwardAndReverseShareComponent(t *testing.T) {
	nodes := []datastructure.EdgeBasedNode{
		{ForwardEdgeBasedNodeID: 0, ReverseEdgeBasedNodeID: 1},
	}
	adjacency := BuildAdjacency(2, nodes, nil)
	compOf := Run(2, adjacency)

	if compOf[0] != compOf[1] {
		t.Fatalf("forward id and reverse id must be in the same component, got %d and %d", compOf[0], compOf[1])
	}
}

func TestBuildAdjacencyHonorsEdgeDirections(t *testing.T) {
	edges := []datastructure.EdgeBasedEdge{
		datastructure.NewEdgeBasedEdge(0, 1, 0, 1, true, false),
		datastructure.NewEdgeBasedEdge(1, 2, 1, 1, true, true),
		datastructure.NewEdgeBasedEdge(0, 1, 0, 1, true, false), // duplicate, must dedup
	}
	adjacency := BuildAdjacency(3, nil, edges)

	if len(adjacency[0]) != 1 || adjacency[0][0] != 1 {
		t.Fatalf("adjacency[0] = %v, want [1] (forward only, deduplicated)", adjacency[0])
	}
	if len(adjacency[1]) != 1 || adjacency[1][0] != 2 {
		t.Fatalf("adjacency[1] = %v, want [2]", adjacency[1])
	}
	if len(adjacency[2]) != 1 || adjacency[2][0] != 1 {
		t.Fatalf("adjacency[2] = %v, want [1] (backward arc of the bidirectional edge)", adjacency[2])
	}
}

func TestAssignSetsComponentIDAndTinyFlag(t *testing.T) {
	nodes := []datastructure.EdgeBasedNode{
		{ForwardEdgeBasedNodeID: 0, ReverseEdgeBasedNodeID: 1},
		{ForwardEdgeBasedNodeID: 2, ReverseEdgeBasedNodeID: datastructure.SpecialEdgeBasedNodeID},
	}
	adjacency := BuildAdjacency(3, nodes, nil)
	compOf := Run(3, adjacency)
	Assign(nodes, compOf, 2)

	if nodes[0].Component.ID == 0 {
		t.Fatalf("component ids are 1-based, got 0")
	}
	if nodes[0].Component.ID != compOf[0]+1 {
		t.Fatalf("node 0 component id = %d, want %d", nodes[0].Component.ID, compOf[0]+1)
	}
	// the pair {0,1} has size 2, which is not strictly below the max of 2.
	if nodes[0].Component.IsTiny {
		t.Fatalf("component of size 2 with max 2 should not be tiny")
	}
	// the singleton {2} is.
	if !nodes[1].Component.IsTiny {
		t.Fatalf("singleton component should be tiny with max 2")
	}
}

// A long cycle is a single component; with the explicit stack this must
// not depend on goroutine stack growth for correctness.
func TestRunHandlesDeepGraphs(t *testing.T) {
	const n = 200_000
	adjacency := make([][]uint32, n)
	for i := 0; i < n; i++ {
		adjacency[i] = []uint32{uint32((i + 1) % n)}
	}
	compOf := Run(n, adjacency)
	for i := 1; i < n; i++ {
		if compOf[i] != compOf[0] {
			t.Fatalf("vertex %d left the cycle's component: %d vs %d", i, compOf[i], compOf[0])
		}
	}
}
