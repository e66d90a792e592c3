// Package scc computes strongly connected components over the
// edge-based-node graph, using an explicit-stack iterative Tarjan:
// a recursive DFS would tie the maximum component depth to the Go
// stack, and real road networks produce chains deep enough to blow it.
package scc

import (
	"github.com/wirahadi/graphprep/pkg/datastructure"
)

const defaultTinyComponentMax = 1000

// BuildAdjacency assembles the component graph: both
// directed arcs per edge-expanded edge (honoring forward/backward), plus
// forward<->reverse links for every EdgeBasedNode that has both ids, with
// duplicate arcs removed.
func BuildAdjacency(nodeCount int, nodes []datastructure.EdgeBasedNode, edges []datastructure.EdgeBasedEdge) [][]uint32 {
	seen := make(map[uint64]struct{})
	adjacency := make([][]uint32, nodeCount)

	add := func(from, to uint32) {
		if from == datastructure.SpecialEdgeBasedNodeID || to == datastructure.SpecialEdgeBasedNodeID {
			return
		}
		key := uint64(from)<<32 | uint64(to)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		adjacency[from] = append(adjacency[from], to)
	}

	for _, e := range edges {
		if e.Forward() {
			add(e.Source, e.Target)
		}
		if e.Backward() {
			add(e.Target, e.Source)
		}
	}

	for _, n := range nodes {
		if n.HasReverse() && n.ForwardEdgeBasedNodeID != datastructure.SpecialEdgeBasedNodeID {
			add(n.ForwardEdgeBasedNodeID, n.ReverseEdgeBasedNodeID)
			add(n.ReverseEdgeBasedNodeID, n.ForwardEdgeBasedNodeID)
		}
	}

	return adjacency
}

// frame is one stack entry of the explicit-stack Tarjan DFS: the vertex
// being visited and how far we've iterated through its adjacency list.
type frame struct {
	v       uint32
	edgeIdx int
}

// Run computes SCCs over adjacency (indexed by vertex id 0..nodeCount-1)
// and returns, for each vertex, the component index it belongs to
// (dense, 0-based, in the order the components are completed).
func Run(nodeCount int, adjacency [][]uint32) []uint32 {
	const unvisited = ^uint32(0)

	index := make([]uint32, nodeCount)
	lowlink := make([]uint32, nodeCount)
	onStack := make([]bool, nodeCount)
	compOf := make([]uint32, nodeCount)
	for i := range index {
		index[i] = unvisited
		compOf[i] = unvisited
	}

	var (
		nextIndex    uint32
		nextComp     uint32
		callStack    []frame
		sccStack     []uint32
	)

	for root := 0; root < nodeCount; root++ {
		if index[root] != unvisited {
			continue
		}

		callStack = append(callStack, frame{v: uint32(root), edgeIdx: 0})

		for len(callStack) > 0 {
			top := &callStack[len(callStack)-1]
			v := top.v

			if top.edgeIdx == 0 && index[v] == unvisited {
				index[v] = nextIndex
				lowlink[v] = nextIndex
				nextIndex++
				sccStack = append(sccStack, v)
				onStack[v] = true
			}

			advanced := false
			for top.edgeIdx < len(adjacency[v]) {
				w := adjacency[v][top.edgeIdx]
				top.edgeIdx++
				if index[w] == unvisited {
					callStack = append(callStack, frame{v: w, edgeIdx: 0})
					advanced = true
					break
				} else if onStack[w] {
					if lowlink[w] < lowlink[v] {
						lowlink[v] = lowlink[w]
					}
				}
			}
			if advanced {
				continue
			}

			// v's adjacency exhausted: pop it, propagate lowlink to caller,
			// and close its component if it is a root.
			callStack = callStack[:len(callStack)-1]
			if len(callStack) > 0 {
				parent := &callStack[len(callStack)-1]
				if lowlink[v] < lowlink[parent.v] {
					lowlink[parent.v] = lowlink[v]
				}
			}

			if lowlink[v] == index[v] {
				for {
					w := sccStack[len(sccStack)-1]
					sccStack = sccStack[:len(sccStack)-1]
					onStack[w] = false
					compOf[w] = nextComp
					if w == v {
						break
					}
				}
				nextComp++
			}
		}
	}

	return compOf
}

// Assign fills ebNodes[i].Component from the per-vertex component index
// computed by Run, using the EdgeBasedNode's forward id (falling back to
// its reverse id when the edge has no forward direction); the stored
// component id is 1 + the component index. A component is
// tiny when its size is strictly below tinyComponentMax; a non-positive
// tinyComponentMax falls back to defaultTinyComponentMax.
func Assign(ebNodes []datastructure.EdgeBasedNode, compOf []uint32, tinyComponentMax int) {
	if tinyComponentMax <= 0 {
		tinyComponentMax = defaultTinyComponentMax
	}

	sizes := make(map[uint32]int)
	for _, c := range compOf {
		if c != ^uint32(0) {
			sizes[c]++
		}
	}

	for i := range ebNodes {
		id := ebNodes[i].ForwardEdgeBasedNodeID
		if id == datastructure.SpecialEdgeBasedNodeID {
			id = ebNodes[i].ReverseEdgeBasedNodeID
		}
		if id == datastructure.SpecialEdgeBasedNodeID {
			continue
		}
		c := compOf[id]
		ebNodes[i].Component = datastructure.ComponentInfo{
			ID:     c + 1,
			IsTiny: sizes[c] < tinyComponentMax,
		}
	}
}
