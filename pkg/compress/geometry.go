package compress

import "github.com/wirahadi/graphprep/pkg/datastructure"

// Segment is one constituent of a folded chain: the original edge's
// weight and great-circle length in metres. A compressed edge with k
// intermediate nodes stores k+1 segments, in chain order from Source to
// Target.
type Segment struct {
	Weight  int32
	LengthM float64
}

// GeometryStore is the compressor's side container keyed by compressed
// edge index. It follows the same append/offset shape as
// pkg/nametable.Table -- a pool of dense NodeIDs plus a prefix-sum
// offset table -- rather than a fresh scheme, since this pipeline uses
// that one shape everywhere it needs variable-length records. A second
// pool carries the per-segment base weights and lengths of the folded
// chain, which the edge-lookup side-channel logs as sub-segments for
// CSV re-weighting to match against.
type GeometryStore struct {
	offsets    []uint32
	nodes      []datastructure.NodeID
	segOffsets []uint32
	segments   []Segment
}

func NewGeometryStore() *GeometryStore {
	return &GeometryStore{offsets: []uint32{0}, segOffsets: []uint32{0}}
}

// NewGeometryStoreFromParts rebuilds a GeometryStore from its raw
// pools, the shape pkg/serialize persists across the
// compress-to-edgeexpand process boundary.
func NewGeometryStoreFromParts(offsets []uint32, nodes []datastructure.NodeID, segOffsets []uint32, segments []Segment) *GeometryStore {
	return &GeometryStore{offsets: offsets, nodes: nodes, segOffsets: segOffsets, segments: segments}
}

// Append records the intermediate node sequence and per-segment data for
// one compressed edge and returns its geometry id.
func (g *GeometryStore) Append(intermediate []datastructure.NodeID, segments []Segment) uint32 {
	id := uint32(len(g.offsets) - 1)
	g.nodes = append(g.nodes, intermediate...)
	g.offsets = append(g.offsets, uint32(len(g.nodes)))
	g.segments = append(g.segments, segments...)
	g.segOffsets = append(g.segOffsets, uint32(len(g.segments)))
	return id
}

// Get returns the intermediate node sequence stored for geometryID.
func (g *GeometryStore) Get(geometryID uint32) []datastructure.NodeID {
	start := g.offsets[geometryID]
	end := g.offsets[geometryID+1]
	return g.nodes[start:end]
}

// Segments returns the per-segment weights and lengths stored for
// geometryID, in chain order.
func (g *GeometryStore) Segments(geometryID uint32) []Segment {
	start := g.segOffsets[geometryID]
	end := g.segOffsets[geometryID+1]
	return g.segments[start:end]
}

func (g *GeometryStore) Len() int {
	return len(g.offsets) - 1
}

// Offsets, Nodes, SegmentOffsets, and AllSegments expose the raw pools
// for serialization, mirroring pkg/nametable.Table's CharData()/Offsets().
func (g *GeometryStore) Offsets() []uint32 {
	return g.offsets
}

func (g *GeometryStore) Nodes() []datastructure.NodeID {
	return g.nodes
}

func (g *GeometryStore) SegmentOffsets() []uint32 {
	return g.segOffsets
}

func (g *GeometryStore) AllSegments() []Segment {
	return g.segments
}
