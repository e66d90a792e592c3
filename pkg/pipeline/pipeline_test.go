package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/wirahadi/graphprep/pkg/datastructure"
	"github.com/wirahadi/graphprep/pkg/serialize"
)

func TestBasename(t *testing.T) {
	cases := map[string]string{
		"/maps/jakarta.osm.pbf": "jakarta",
		"jakarta.osm.pbf":       "jakarta",
		"jakarta.pbf":           "jakarta",
		"jakarta":               "jakarta",
	}
	for in, want := range cases {
		if got := Basename(in); got != want {
			t.Fatalf("Basename(%q) = %q, want %q", in, got, want)
		}
	}
}

// writeChainExtract lays down the .osrm/.restrictions files a real
// extraction of a 4-node chain would produce, so the compression and
// edge-expansion stages can run without an actual .osm.pbf input.
func writeChainExtract(t *testing.T, dir, base string) {
	t.Helper()
	nodes := []datastructure.QueryNode{
		datastructure.NewQueryNode(1, 0, 0),
		datastructure.NewQueryNode(2, 0, 0.001),
		datastructure.NewQueryNode(3, 0, 0.002),
		datastructure.NewQueryNode(4, 0, 0.003),
	}
	edges := []datastructure.NodeBasedEdge{
		datastructure.NewNodeBasedEdge(0, 1, 0, 10, true, true, false, false, true, 1),
		datastructure.NewNodeBasedEdge(1, 2, 0, 10, true, true, false, false, true, 1),
		datastructure.NewNodeBasedEdge(2, 3, 0, 10, true, true, false, false, true, 1),
	}
	if err := serialize.WriteOSRM(filepath.Join(dir, base+".osrm"), nodes, nil, nil, edges); err != nil {
		t.Fatalf("WriteOSRM: %v", err)
	}
	if err := serialize.WriteRestrictions(filepath.Join(dir, base+".restrictions"), nil); err != nil {
		t.Fatalf("WriteRestrictions: %v", err)
	}
}

func TestCompressAndEdgeExpandStages(t *testing.T) {
	dir := t.TempDir()
	base := "chain"
	writeChainExtract(t, dir, base)
	log := zap.NewNop()

	if err := CompressStage(dir, base, log); err != nil {
		t.Fatalf("CompressStage: %v", err)
	}

	_, _, compressed, geometry, err := serialize.ReadCompressedGraph(filepath.Join(dir, base+".compressed"))
	if err != nil {
		t.Fatalf("ReadCompressedGraph: %v", err)
	}
	if len(compressed) != 1 {
		t.Fatalf("chain should fold to 1 compressed edge, got %d", len(compressed))
	}
	e := compressed[0]
	if e.Weight != 30 {
		t.Fatalf("folded weight = %d, want 30", e.Weight)
	}
	mid := geometry.Get(e.GeometryID)
	if len(mid) != 2 {
		t.Fatalf("folded geometry = %v, want the two interior nodes", mid)
	}
	if _, err := os.Stat(filepath.Join(dir, base+".geometry")); err != nil {
		t.Fatalf(".geometry missing: %v", err)
	}

	err = EdgeExpandStage(dir, base, EdgeExpandOptions{
		GenerateEdgeLookup: true,
		RtreeLeafRadiusKM:  0.05,
		TinyComponentMax:   1000,
	}, log)
	if err != nil {
		t.Fatalf("EdgeExpandStage: %v", err)
	}

	ebEdges, _, err := serialize.ReadEdgeExpandedEdges(filepath.Join(dir, base+".edges"))
	if err != nil {
		t.Fatalf("ReadEdgeExpandedEdges: %v", err)
	}
	// The only turns on an isolated bidirectional segment are the
	// dead-end u-turns at its two tips.
	if len(ebEdges) != 2 {
		t.Fatalf("got %d edge-expanded edges, want 2 dead-end u-turns", len(ebEdges))
	}
	for _, e := range ebEdges {
		if e.Source == e.Target {
			t.Fatalf("self-loop in edge-expanded output: %+v", e)
		}
		if e.Weight != 30+200 {
			t.Fatalf("u-turn weight = %d, want 230 (segment 30 + u-turn penalty 200)", e.Weight)
		}
	}

	for _, suffix := range []string{".nodes", ".ramIndex", ".fileIndex", ".edge_segment_lookup", ".edge_penalties"} {
		if _, err := os.Stat(filepath.Join(dir, base+suffix)); err != nil {
			t.Fatalf("%s missing: %v", suffix, err)
		}
	}

	// The lookup logs one sub-segment per original consecutive node
	// pair of the folded chain, with real lengths, not one folded blob.
	entries, err := serialize.ReadEdgeSegmentLookup(filepath.Join(dir, base+".edge_segment_lookup"))
	if err != nil {
		t.Fatalf("ReadEdgeSegmentLookup: %v", err)
	}
	if len(entries) != 1 || len(entries[0].Segments) != 3 {
		t.Fatalf("lookup entries = %+v, want 1 entry with 3 sub-segments", entries)
	}
	wantPairs := [][2]datastructure.OSMNodeID{{1, 2}, {2, 3}, {3, 4}}
	for i, seg := range entries[0].Segments {
		if seg.FromOSM != wantPairs[i][0] || seg.ToOSM != wantPairs[i][1] {
			t.Fatalf("segment %d spans %d->%d, want %d->%d", i, seg.FromOSM, seg.ToOSM, wantPairs[i][0], wantPairs[i][1])
		}
		if seg.BaseWeight != 10 {
			t.Fatalf("segment %d base weight = %d, want 10", i, seg.BaseWeight)
		}
		if seg.LengthM < 110 || seg.LengthM > 113 {
			t.Fatalf("segment %d length = %v m, want ~111", i, seg.LengthM)
		}
	}
}

func TestEdgeExpandStageReweightsFromCSV(t *testing.T) {
	dir := t.TempDir()
	base := "chain"
	writeChainExtract(t, dir, base)
	log := zap.NewNop()

	if err := CompressStage(dir, base, log); err != nil {
		t.Fatalf("CompressStage: %v", err)
	}

	// Overriding the first sub-segment's speed re-derives its weight from
	// the logged ~111.2m length at 10 km/h: floor(1111.95/(10/3.6)+0.5)
	// = 400 deci-seconds, replacing that segment's base weight of 10.
	csvPath := filepath.Join(dir, "speeds.csv")
	if err := os.WriteFile(csvPath, []byte("from_osm,to_osm,speed_kmh\n1,2,10\n"), 0o644); err != nil {
		t.Fatalf("writing csv: %v", err)
	}

	err := EdgeExpandStage(dir, base, EdgeExpandOptions{
		GenerateEdgeLookup:  true,
		SegmentSpeedCSVPath: csvPath,
		RtreeLeafRadiusKM:   0.05,
		TinyComponentMax:    1000,
	}, log)
	if err != nil {
		t.Fatalf("EdgeExpandStage: %v", err)
	}

	ebEdges, _, err := serialize.ReadEdgeExpandedEdges(filepath.Join(dir, base+".edges"))
	if err != nil {
		t.Fatalf("ReadEdgeExpandedEdges: %v", err)
	}
	// 400 (re-derived 1->2) + 10 + 10 (untouched) + 200 (u-turn penalty).
	for _, e := range ebEdges {
		if e.Weight != 620 {
			t.Fatalf("reweighted edge weight = %d, want 620", e.Weight)
		}
	}
}

func TestEdgeExpandStageRequiresLookupForReweight(t *testing.T) {
	dir := t.TempDir()
	base := "chain"
	writeChainExtract(t, dir, base)
	log := zap.NewNop()

	if err := CompressStage(dir, base, log); err != nil {
		t.Fatalf("CompressStage: %v", err)
	}

	err := EdgeExpandStage(dir, base, EdgeExpandOptions{
		SegmentSpeedCSVPath: filepath.Join(dir, "missing.csv"),
	}, log)
	if err == nil {
		t.Fatalf("reweighting without edge-lookup generation must fail")
	}
}
