// Package rtree builds the spatial index over edge-based nodes: one
// tidwall/rtree leaf per node, each bounding box padded outward by a
// configurable radius, plus a radius-bounded search.
package rtree

import (
	"github.com/tidwall/rtree"

	"github.com/wirahadi/graphprep/pkg/datastructure"
	"github.com/wirahadi/graphprep/pkg/geo"
)

// Leaf is the payload stored at each R-tree entry: the EdgeBasedNode id
// whose bounding box produced this leaf.
type Leaf struct {
	EdgeBasedNodeID uint32
}

type Index struct {
	tr *rtree.RTreeG[Leaf]
}

func New() *Index {
	var tr rtree.RTreeG[Leaf]
	return &Index{tr: &tr}
}

// Build inserts one leaf per EdgeBasedNode, using its stored
// BoundingBox expanded further by leafRadiusKM on every side via a
// destination-point offset along the two box diagonals. The leaf carries
// the node's forward id, or its reverse id when it has no forward one.
func Build(ebNodes []datastructure.EdgeBasedNode, leafRadiusKM float64) *Index {
	idx := New()
	for _, n := range ebNodes {
		id := n.ForwardEdgeBasedNodeID
		if id == datastructure.SpecialEdgeBasedNodeID {
			id = n.ReverseEdgeBasedNodeID
		}
		minLat, minLon := n.BoundingBox.MinLat.Degrees(), n.BoundingBox.MinLon.Degrees()
		maxLat, maxLon := n.BoundingBox.MaxLat.Degrees(), n.BoundingBox.MaxLon.Degrees()

		lowerLat, lowerLon := geo.GetDestinationPoint(minLat, minLon, 225, leafRadiusKM)
		upperLat, upperLon := geo.GetDestinationPoint(maxLat, maxLon, 45, leafRadiusKM)

		idx.tr.Insert(
			[2]float64{lowerLon, lowerLat},
			[2]float64{upperLon, upperLat},
			Leaf{EdgeBasedNodeID: id},
		)
	}
	return idx
}

// SearchWithinRadius returns every leaf whose expanded box intersects
// the radius-km box around (qLat, qLon), capped at limit results when
// limit is positive.
func (idx *Index) SearchWithinRadius(qLat, qLon, radiusKM float64, limit int) []Leaf {
	lowerLat, lowerLon := geo.GetDestinationPoint(qLat, qLon, 225, radiusKM)
	upperLat, upperLon := geo.GetDestinationPoint(qLat, qLon, 45, radiusKM)

	results := make([]Leaf, 0, 10)
	idx.tr.Search([2]float64{lowerLon, lowerLat}, [2]float64{upperLon, upperLat},
		func(min, max [2]float64, leaf Leaf) bool {
			results = append(results, leaf)
			return limit <= 0 || len(results) < limit
		})
	return results
}

// Len reports the number of leaves inserted, for logging/testing.
func (idx *Index) Len() int {
	n := 0
	idx.tr.Scan(func(min, max [2]float64, leaf Leaf) bool {
		n++
		return true
	})
	return n
}
