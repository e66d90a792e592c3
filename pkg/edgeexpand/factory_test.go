package edgeexpand

import (
	"testing"

	"github.com/wirahadi/graphprep/pkg/compress"
	"github.com/wirahadi/graphprep/pkg/datastructure"
)

// threeNodes lays out A(0,0) -> B(0,1) -> C(1,1), two bidirectional
// compressed edges sharing node B, for exercising turns at B.
func threeNodes() []datastructure.QueryNode {
	return []datastructure.QueryNode{
		datastructure.NewQueryNode(1, 0, 0),
		datastructure.NewQueryNode(2, 0, 0.001),
		datastructure.NewQueryNode(3, 0.001, 0.001),
	}
}

func twoArcResult() compress.Result {
	geometry := compress.NewGeometryStore()
	return compress.Result{
		Edges: []compress.CompressedEdge{
			{Source: 0, Target: 1, Weight: 10, Forward: true, Backward: true, GeometryID: geometry.Append(nil, []compress.Segment{{Weight: 10, LengthM: 100}})},
			{Source: 1, Target: 2, Weight: 10, Forward: true, Backward: true, GeometryID: geometry.Append(nil, []compress.Segment{{Weight: 10, LengthM: 100}})},
		},
		Geometry: geometry,
	}
}

func noTurnCost(float64) (int32, bool) { return 0, false }

func TestBuildEmitsStraightThroughTurn(t *testing.T) {
	nodes := threeNodes()
	result := twoArcResult()
	trafficLight := make([]bool, 3)

	f := NewFactory(noTurnCost, 20, 200)
	_, edges, nodeSpace := f.Build(nodes, result, nil, trafficLight)

	if nodeSpace != 4 {
		t.Fatalf("nodeSpace = %d, want 4 (2 arcs x 2 directions)", nodeSpace)
	}

	found := false
	for _, e := range edges {
		if e.Weight == 10 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected at least one turn with base weight 10 (no signal, no turn cost); got %+v", edges)
	}
}

func TestBuildRejectsNoTurnRestriction(t *testing.T) {
	nodes := threeNodes()
	result := twoArcResult()
	trafficLight := make([]bool, 3)
	restrictions := []datastructure.TurnRestriction{{From: 0, Via: 1, To: 2, Kind: datastructure.RestrictionNo}}

	f := NewFactory(noTurnCost, 20, 200)
	_, edges, _ := f.Build(nodes, result, restrictions, trafficLight)

	for _, e := range edges {
		if e.Source == 0 && e.Target == 2 {
			t.Fatalf("turn 0->1->2 should be forbidden by the no_* restriction, found edge %+v", e)
		}
	}
}

func TestBuildHonorsOnlyTurnRestriction(t *testing.T) {
	nodes := threeNodes()
	result := twoArcResult()
	trafficLight := make([]bool, 3)
	restrictions := []datastructure.TurnRestriction{{From: 0, Via: 1, To: 2, Kind: datastructure.RestrictionOnly}}

	f := NewFactory(noTurnCost, 20, 200)
	_, edges, _ := f.Build(nodes, result, restrictions, trafficLight)

	for _, e := range edges {
		if e.Source != 0 {
			continue
		}
		// the only edge-based node leaving the arc into B must turn onto
		// the arc toward C; anything else is a violation of the only_*.
		if e.Target != 2 {
			t.Fatalf("only_* restriction should force every turn from arc 0 through via 1 onward to arc 2, got edge %+v", e)
		}
	}
}

func TestBuildAddsTrafficSignalPenalty(t *testing.T) {
	nodes := threeNodes()
	result := twoArcResult()
	trafficLight := []bool{false, true, false}

	f := NewFactory(noTurnCost, 20, 200)
	_, edges, _ := f.Build(nodes, result, nil, trafficLight)

	for _, e := range edges {
		if e.Weight < 30 {
			t.Fatalf("turn through a signalized node should carry at least the 20-unit penalty on top of the base weight, got %d", e.Weight)
		}
	}
}

func TestBuildAllowsUTurnOnlyAtDeadEnd(t *testing.T) {
	nodes := threeNodes()
	geometry := compress.NewGeometryStore()
	result := compress.Result{
		Edges: []compress.CompressedEdge{
			{Source: 0, Target: 1, Weight: 10, Forward: true, Backward: true, GeometryID: geometry.Append(nil, []compress.Segment{{Weight: 10, LengthM: 100}})},
		},
		Geometry: geometry,
	}
	trafficLight := make([]bool, 3)

	f := NewFactory(noTurnCost, 20, 200)
	_, edges, _ := f.Build(nodes, result, nil, trafficLight)

	uTurnFound := false
	for _, e := range edges {
		if e.Source == e.Target {
			t.Fatalf("a turn should never target its own edge-based node")
		}
		uTurnFound = uTurnFound || e.Weight >= 10+200
	}
	if !uTurnFound {
		t.Fatalf("node 0 is a dead end (degree 1), so the u-turn there should be admitted with the u-turn penalty")
	}
}
