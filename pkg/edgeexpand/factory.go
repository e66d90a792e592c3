// Package edgeexpand builds the dual (edge-based) graph from a
// compressed node-based graph. One EdgeBasedNode record is allocated per
// compressed edge, holding one edge-based node id for each direction the
// edge may be traversed; one
// EdgeBasedEdge is emitted per admissible turn between two edge-based
// nodes sharing a node. Everything is dense integer ids over
// slice-backed adjacency.
package edgeexpand

import (
	"github.com/wirahadi/graphprep/pkg/compress"
	"github.com/wirahadi/graphprep/pkg/datastructure"
	"github.com/wirahadi/graphprep/pkg/geo"
)

// ModeTransitionPolicy decides whether travel may continue from one
// travel mode into another at a turn. The default allows every
// transition; a stricter policy can be
// injected without touching the profile contract.
type ModeTransitionPolicy func(from, to uint8) bool

func AllowAllModeTransitions(_, _ uint8) bool { return true }

// TurnCost resolves the extra weight a turn contributes, mirroring the
// profile's optional turn_function: ok is false when
// the profile does not define one, and the caller substitutes zero.
type TurnCost func(angleDegrees float64) (penalty int32, ok bool)

type Factory struct {
	TurnCost             TurnCost
	ModePolicy           ModeTransitionPolicy
	TrafficSignalPenalty int32
	UTurnPenalty         int32
}

func NewFactory(turnCost TurnCost, trafficSignalPenalty, uTurnPenalty int32) *Factory {
	return &Factory{
		TurnCost:             turnCost,
		ModePolicy:           AllowAllModeTransitions,
		TrafficSignalPenalty: trafficSignalPenalty,
		UTurnPenalty:         uTurnPenalty,
	}
}

// arcEnd is one directed traversal of one compressed edge, used to build
// the incoming/outgoing adjacency at each node.
type arcEnd struct {
	edgeBasedNodeID uint32
	arcIndex        int
	other           datastructure.NodeID
}

// Build produces the dual graph: one EdgeBasedNode per compressed edge
// and one EdgeBasedEdge per admitted turn. The returned
// int is the total count of allocated edge-based node ids -- the vertex
// space pkg/scc's adjacency must be sized to, since it is keyed by those
// ids rather than by len(EdgeBasedNode).
func (f *Factory) Build(
	nodes []datastructure.QueryNode,
	compressed compress.Result,
	restrictions []datastructure.TurnRestriction,
	trafficLight []bool,
) ([]datastructure.EdgeBasedNode, []datastructure.EdgeBasedEdge, int) {
	arcs := compressed.Edges

	fwdID := make([]uint32, len(arcs))
	revID := make([]uint32, len(arcs))
	ebNodes := make([]datastructure.EdgeBasedNode, len(arcs))

	nodeCount := len(nodes)
	incoming := make([][]arcEnd, nodeCount)
	outgoing := make([][]arcEnd, nodeCount)
	degree := make([]int, nodeCount)

	next := uint32(0)
	for i, arc := range arcs {
		fwdID[i] = datastructure.SpecialEdgeBasedNodeID
		revID[i] = datastructure.SpecialEdgeBasedNodeID

		if arc.Forward {
			fwdID[i] = next
			next++
			outgoing[arc.Source] = append(outgoing[arc.Source], arcEnd{fwdID[i], i, arc.Target})
			incoming[arc.Target] = append(incoming[arc.Target], arcEnd{fwdID[i], i, arc.Source})
		}
		if arc.Backward {
			revID[i] = next
			next++
			outgoing[arc.Target] = append(outgoing[arc.Target], arcEnd{revID[i], i, arc.Source})
			incoming[arc.Source] = append(incoming[arc.Source], arcEnd{revID[i], i, arc.Target})
		}

		degree[arc.Source]++
		if arc.Source != arc.Target {
			degree[arc.Target]++
		}

		bbox := datastructure.NewGeoBox(nodes[arc.Source], nodes[arc.Target])
		for _, mid := range compressed.Geometry.Get(arc.GeometryID) {
			bbox.Extend(nodes[mid])
		}

		ebNodes[i] = datastructure.EdgeBasedNode{
			ForwardEdgeBasedNodeID: fwdID[i],
			ReverseEdgeBasedNodeID: revID[i],
			BoundingBox:            bbox,
			GeometryID:             arc.GeometryID,
		}
	}

	onlyByFromVia := make(map[[2]datastructure.NodeID]datastructure.NodeID) // (from,via) -> to
	noByFromViaTo := make(map[[3]datastructure.NodeID]struct{})
	for _, r := range restrictions {
		if r.IsOnly() {
			onlyByFromVia[[2]datastructure.NodeID{r.From, r.Via}] = r.To
		} else if r.IsNo() {
			noByFromViaTo[[3]datastructure.NodeID{r.From, r.Via, r.To}] = struct{}{}
		}
	}

	var edges []datastructure.EdgeBasedEdge
	for b := 0; b < nodeCount; b++ {
		bID := datastructure.NodeID(b)
		for _, in := range incoming[b] {
			a := in.other
			for _, out := range outgoing[b] {
				c := out.other

				if a == c && degree[b] != 1 {
					continue // u-turn, not at a dead end
				}
				if _, forbidden := noByFromViaTo[[3]datastructure.NodeID{a, bID, c}]; forbidden {
					continue
				}
				if to, ok := onlyByFromVia[[2]datastructure.NodeID{a, bID}]; ok && to != c {
					continue
				}

				inArc := arcs[in.arcIndex]
				outArc := arcs[out.arcIndex]
				if !f.ModePolicy(inArc.TravelMode, outArc.TravelMode) {
					continue
				}

				angle := geo.TurnAngle(
					nodes[a].Lat.Degrees(), nodes[a].Lon.Degrees(),
					nodes[bID].Lat.Degrees(), nodes[bID].Lon.Degrees(),
					nodes[c].Lat.Degrees(), nodes[c].Lon.Degrees(),
				)

				weight := f.arcWeight(inArc, in.arcIndex)
				if penalty, ok := f.TurnCost(angle); ok {
					weight += penalty
				}
				if trafficLight[b] {
					weight += f.TrafficSignalPenalty
				}
				if a == c {
					weight += f.UTurnPenalty
				}

				edges = append(edges, datastructure.NewEdgeBasedEdge(
					in.edgeBasedNodeID, out.edgeBasedNodeID, uint32(in.arcIndex), weight,
					true, false,
				))
			}
		}
	}

	return ebNodes, edges, int(next)
}

// arcWeight returns the weight of traversing arc via edgeBasedNodeID's
// direction -- forward and backward directions of an arc share the same
// summed segment weight in this model, so this simply returns the arc's Weight.
func (f *Factory) arcWeight(arc compress.CompressedEdge, _ int) int32 {
	return arc.Weight
}
