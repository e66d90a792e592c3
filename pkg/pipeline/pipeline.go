// Package pipeline wires the preprocessing packages into the three
// CLI-facing stages (extraction, compression, edge-expansion), keeping
// cmd/*/main.go thin: flag parsing and a single call into pkg/.
package pipeline

import (
	"context"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/wirahadi/graphprep/pkg/compress"
	"github.com/wirahadi/graphprep/pkg/datastructure"
	"github.com/wirahadi/graphprep/pkg/edgeexpand"
	"github.com/wirahadi/graphprep/pkg/errs"
	"github.com/wirahadi/graphprep/pkg/extract"
	"github.com/wirahadi/graphprep/pkg/geo"
	"github.com/wirahadi/graphprep/pkg/nametable"
	"github.com/wirahadi/graphprep/pkg/osmreader"
	"github.com/wirahadi/graphprep/pkg/profile"
	"github.com/wirahadi/graphprep/pkg/reweight"
	"github.com/wirahadi/graphprep/pkg/rtree"
	"github.com/wirahadi/graphprep/pkg/scc"
	"github.com/wirahadi/graphprep/pkg/serialize"
)

// Basename derives the shared file-stem every stage's output files key
// off, stripping both the ".pbf" and ".osm" suffixes of an
// "area.osm.pbf"-style input path.
func Basename(inputPath string) string {
	b := filepath.Base(inputPath)
	b = strings.TrimSuffix(b, filepath.Ext(b))
	b = strings.TrimSuffix(b, filepath.Ext(b))
	return b
}

func newProfileAdapter() *profile.Adapter {
	return profile.NewAdapter(func() profile.Runtime { return profile.NewDefaultRuntime() })
}

// ExtractOptions configures ExtractStage.
type ExtractOptions struct {
	Threads               int
	ExternalSortThreshold int
}

// ExtractStage runs the full parse-classify-join pass over inputPath
// and writes the `.osrm`/`.restrictions`/`.names`/`.timestamp` files
// into outputDir.
func ExtractStage(ctx context.Context, inputPath, outputDir string, opts ExtractOptions, log *zap.Logger) error {
	adapter := newProfileAdapter()
	constants, err := adapter.Setup()
	if err != nil {
		return err
	}

	reader := osmreader.New(inputPath)
	container := extract.NewContainer()
	names := nametable.New()

	if err := extract.Run(ctx, reader, adapter, names, container, opts.Threads, log); err != nil {
		return err
	}

	result, err := container.PrepareData(extract.Options{
		ExternalSortThreshold: opts.ExternalSortThreshold,
		TrafficSignalPenalty:  constants.TrafficSignalPenalty,
		UTurnPenalty:          constants.UTurnPenalty,
	}, func(id uint32) string {
		n, _ := names.Lookup(id)
		return n
	})
	if err != nil {
		return err
	}

	base := Basename(inputPath)
	barrierIDs := idsWhere(result.Barriers)
	signalIDs := idsWhere(result.TrafficLight)

	if err := serialize.WriteOSRM(filepath.Join(outputDir, base+".osrm"), result.Nodes, barrierIDs, signalIDs, result.Edges); err != nil {
		return err
	}
	if err := serialize.WriteRestrictions(filepath.Join(outputDir, base+".restrictions"), result.Restrictions); err != nil {
		return err
	}
	if err := serialize.WriteNames(filepath.Join(outputDir, base+".names"), names.CharData(), names.Offsets()); err != nil {
		return err
	}
	if err := serialize.WriteTimestamp(filepath.Join(outputDir, base+".timestamp"), ""); err != nil {
		return err
	}

	log.Sugar().Infow("extraction complete",
		"base", base,
		"nodes", len(result.Nodes),
		"edges", len(result.Edges),
		"restrictions", len(result.Restrictions),
		"dropped_edges", result.DroppedEdges,
		"dropped_restrictions", result.DroppedRestrictions,
	)
	return nil
}

func idsWhere(flags []bool) []datastructure.NodeID {
	var ids []datastructure.NodeID
	for i, v := range flags {
		if v {
			ids = append(ids, datastructure.NodeID(i))
		}
	}
	return ids
}

func boolsFromIDs(n int, ids []datastructure.NodeID) []bool {
	out := make([]bool, n)
	for _, id := range ids {
		out[id] = true
	}
	return out
}

// CompressStage drives component F: it reads base's `.osrm` and
// `.restrictions` files from dir, folds degree-2 chains, and writes the
// compressed graph plus its `.geometry` side table.
func CompressStage(dir, base string, log *zap.Logger) error {
	nodes, barrierIDs, signalIDs, edges, err := serialize.ReadOSRM(filepath.Join(dir, base+".osrm"))
	if err != nil {
		return err
	}
	restrictions, err := serialize.ReadRestrictions(filepath.Join(dir, base+".restrictions"))
	if err != nil {
		return err
	}

	adapter := newProfileAdapter()
	constants, err := adapter.Setup()
	if err != nil {
		return err
	}

	barriers := boolsFromIDs(len(nodes), barrierIDs)
	trafficLight := boolsFromIDs(len(nodes), signalIDs)

	// An uncompressed node-based edge spans exactly one OSM segment, so
	// its great-circle endpoint distance is the segment length the
	// geometry store records for later sub-segment re-weighting.
	edgeLengths := make([]float64, len(edges))
	for i, e := range edges {
		edgeLengths[i] = geo.CalculateHaversineDistance(
			nodes[e.Source].Lat.Degrees(), nodes[e.Source].Lon.Degrees(),
			nodes[e.Target].Lat.Degrees(), nodes[e.Target].Lon.Degrees(),
		) * 1000
	}

	result := compress.Compress(len(nodes), edges, edgeLengths, barriers, trafficLight, restrictions, constants.TrafficSignalPenalty)

	if err := serialize.WriteCompressedGraph(filepath.Join(dir, base+".compressed"), nodes, signalIDs, result.Edges, result.Geometry); err != nil {
		return err
	}

	toOSM := func(id datastructure.NodeID) datastructure.OSMNodeID { return nodes[id].OSMID }
	if err := serialize.WriteGeometry(filepath.Join(dir, base+".geometry"), result.Geometry.Offsets(), result.Geometry.Nodes(), toOSM); err != nil {
		return err
	}

	kept := 0
	for _, v := range result.Kept {
		if v {
			kept++
		}
	}
	log.Sugar().Infow("graph compression complete",
		"base", base,
		"node_based_edges_in", len(edges),
		"compressed_edges_out", len(result.Edges),
		"nodes_kept", kept,
		"nodes_total", len(nodes),
	)
	return nil
}

// EdgeExpandOptions configures EdgeExpandStage.
type EdgeExpandOptions struct {
	GenerateEdgeLookup  bool
	SegmentSpeedCSVPath string
	RtreeLeafRadiusKM   float64
	TinyComponentMax    int
}

// EdgeExpandStage drives components G, H, I, J: it reads base's
// compressed graph and restrictions, builds the edge-based dual graph,
// computes strongly connected components, builds the spatial index, and
// writes `.edges`/`.nodes`/`.ramIndex`/`.fileIndex`.
// When opts.GenerateEdgeLookup is set it also writes
// `.edge_segment_lookup`/`.edge_penalties`, and when opts.SegmentSpeedCSVPath
// is non-empty it re-weighs the edges from that CSV before writing
// `.edges`.
func EdgeExpandStage(dir, base string, opts EdgeExpandOptions, log *zap.Logger) error {
	nodes, signalIDs, compressed, geometry, err := serialize.ReadCompressedGraph(filepath.Join(dir, base+".compressed"))
	if err != nil {
		return err
	}
	restrictions, err := serialize.ReadRestrictions(filepath.Join(dir, base+".restrictions"))
	if err != nil {
		return err
	}
	trafficLight := boolsFromIDs(len(nodes), signalIDs)

	adapter := newProfileAdapter()
	constants, err := adapter.Setup()
	if err != nil {
		return err
	}

	designated := profile.NewDefaultRuntime()
	if _, err := designated.Setup(); err != nil {
		return err
	}

	factory := edgeexpand.NewFactory(designated.TurnFunction, constants.TrafficSignalPenalty, constants.UTurnPenalty)
	ebNodes, ebEdges, nodeSpace := factory.Build(nodes, compress.Result{Edges: compressed, Geometry: geometry}, restrictions, trafficLight)

	adjacency := scc.BuildAdjacency(nodeSpace, ebNodes, ebEdges)
	compOf := scc.Run(nodeSpace, adjacency)
	scc.Assign(ebNodes, compOf, opts.TinyComponentMax)

	maxEdgeID := uint32(0)
	for _, e := range ebEdges {
		if id := e.EdgeID(); id > maxEdgeID {
			maxEdgeID = id
		}
	}

	var entries []serialize.EdgeSegments
	var penalties map[uint32]int32
	if opts.GenerateEdgeLookup {
		entries, penalties = buildEdgeLookup(nodes, compressed, geometry, ebEdges)
		if err := serialize.WriteEdgeSegmentLookup(filepath.Join(dir, base+".edge_segment_lookup"), entries); err != nil {
			return err
		}
		edgeIDs := make([]uint32, 0, len(penalties))
		penaltyVals := make([]int32, 0, len(penalties))
		for id, p := range penalties {
			edgeIDs = append(edgeIDs, id)
			penaltyVals = append(penaltyVals, p)
		}
		if err := serialize.WriteEdgePenalties(filepath.Join(dir, base+".edge_penalties"), edgeIDs, penaltyVals); err != nil {
			return err
		}
	}

	if opts.SegmentSpeedCSVPath != "" {
		if !opts.GenerateEdgeLookup {
			return errs.Configuration(nil, "segment speed re-weighting requires --generate_edge_lookup")
		}
		raw, err := reweight.ParseCSV(opts.SegmentSpeedCSVPath)
		if err != nil {
			return err
		}
		reweight.Apply(ebEdges, entries, penalties, raw)
	}

	if err := serialize.WriteEdgeExpandedEdges(filepath.Join(dir, base+".edges"), ebEdges, uint64(maxEdgeID)); err != nil {
		return err
	}

	byEdgeBasedID := make([]datastructure.QueryNode, nodeSpace)
	for i, arc := range compressed {
		if arc.Forward && ebNodes[i].ForwardEdgeBasedNodeID != datastructure.SpecialEdgeBasedNodeID {
			byEdgeBasedID[ebNodes[i].ForwardEdgeBasedNodeID] = nodes[arc.Source]
		}
		if arc.Backward && ebNodes[i].ReverseEdgeBasedNodeID != datastructure.SpecialEdgeBasedNodeID {
			byEdgeBasedID[ebNodes[i].ReverseEdgeBasedNodeID] = nodes[arc.Target]
		}
	}
	if err := serialize.WriteNodesFile(filepath.Join(dir, base+".nodes"), byEdgeBasedID); err != nil {
		return err
	}

	boxes := make([]datastructure.GeoBox, len(ebNodes))
	leafIDs := make([]uint32, len(ebNodes))
	for i, n := range ebNodes {
		boxes[i] = n.BoundingBox
		leafIDs[i] = n.ForwardEdgeBasedNodeID
		if leafIDs[i] == datastructure.SpecialEdgeBasedNodeID {
			leafIDs[i] = n.ReverseEdgeBasedNodeID
		}
	}
	if err := serialize.WriteRtree(filepath.Join(dir, base+".ramIndex"), filepath.Join(dir, base+".fileIndex"), boxes, leafIDs); err != nil {
		return err
	}
	_ = rtree.Build(ebNodes, opts.RtreeLeafRadiusKM) // result unused: Build reports no error, and the persisted index is the pair written above.

	log.Sugar().Infow("edge expansion complete",
		"base", base,
		"edge_based_nodes", nodeSpace,
		"edge_based_edges", len(ebEdges),
	)
	return nil
}

// buildEdgeLookup reconstructs, once per compressed-edge id that some
// edge-expanded edge carries, the ordered OSM sub-segment log (one entry
// per original consecutive node pair of the folded chain, with its base
// weight and length) and a fixed (non-segment) penalty -- the
// side-channel CSV re-weighting consumes without re-running extraction.
// The penalty is whatever the first such edge-expanded edge's weight
// carries beyond the sum of the segment base weights, which covers both
// the turn-level extras and any traffic signal penalties fused into the
// chain during compression.
func buildEdgeLookup(nodes []datastructure.QueryNode, compressed []compress.CompressedEdge, geometry *compress.GeometryStore, ebEdges []datastructure.EdgeBasedEdge) ([]serialize.EdgeSegments, map[uint32]int32) {
	seen := make(map[uint32]bool)
	var entries []serialize.EdgeSegments
	penalties := make(map[uint32]int32)

	for _, e := range ebEdges {
		id := e.EdgeID()
		if seen[id] {
			continue
		}
		seen[id] = true

		arc := compressed[id]
		chain := make([]datastructure.NodeID, 0, 2+len(geometry.Get(arc.GeometryID)))
		chain = append(chain, arc.Source)
		chain = append(chain, geometry.Get(arc.GeometryID)...)
		chain = append(chain, arc.Target)

		var segWeightSum int32
		arcSegments := geometry.Segments(arc.GeometryID)
		segs := make([]serialize.Segment, len(arcSegments))
		for i, s := range arcSegments {
			segWeightSum += s.Weight
			segs[i] = serialize.Segment{
				FromOSM:    nodes[chain[i]].OSMID,
				ToOSM:      nodes[chain[i+1]].OSMID,
				LengthM:    s.LengthM,
				BaseWeight: s.Weight,
			}
		}

		entries = append(entries, serialize.EdgeSegments{EdgeID: id, Segments: segs})
		penalties[id] = e.Weight - segWeightSum
	}
	return entries, penalties
}
