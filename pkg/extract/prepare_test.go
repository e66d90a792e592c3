package extract

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/wirahadi/graphprep/pkg/datastructure"
	"github.com/wirahadi/graphprep/pkg/errs"
)

func carWay(speed float64) datastructure.ExtractionWay {
	return datastructure.ExtractionWay{
		ForwardSpeed:       speed,
		BackwardSpeed:      speed,
		ForwardTravelMode:  datastructure.TravelModeDriving,
		BackwardTravelMode: datastructure.TravelModeDriving,
		IsStartpoint:       true,
		WeightType:         datastructure.WeightTypeSpeed,
	}
}

func addNode(c *Container, osmID datastructure.OSMNodeID, lat, lon float64) {
	c.ProcessNode(osmID, lat, lon, datastructure.ExtractionNode{})
}

// A single two-way segment between two known nodes survives the join as
// one bidirectional node-based edge with dense endpoints.
func TestPrepareDataBuildsNodeBasedEdges(t *testing.T) {
	c := NewContainer()
	addNode(c, 1, 0.0, 0.0)
	addNode(c, 2, 0.0, 0.001)
	c.ProcessWay(100, []datastructure.OSMNodeID{1, 2}, make([]float64, 1), 0, carWay(50))

	result, err := c.PrepareData(Options{}, nil)
	if err != nil {
		t.Fatalf("PrepareData: %v", err)
	}

	if len(result.Nodes) != 2 {
		t.Fatalf("got %d nodes, want 2", len(result.Nodes))
	}
	if len(result.Edges) != 1 {
		t.Fatalf("got %d edges, want 1", len(result.Edges))
	}
	e := result.Edges[0]
	if !e.Forward() || !e.Backward() {
		t.Fatalf("two-way segment should carry both directions, got fwd=%v bwd=%v", e.Forward(), e.Backward())
	}
	if e.Source == e.Target {
		t.Fatalf("edge endpoints should be distinct dense ids, got %d->%d", e.Source, e.Target)
	}
	if int(e.Source) >= len(result.Nodes) || int(e.Target) >= len(result.Nodes) {
		t.Fatalf("dense ids out of range: %d->%d with %d nodes", e.Source, e.Target, len(result.Nodes))
	}
}

// Every emitted edge weight must be at least 1, even when the segment is
// degenerate (zero distance).
func TestPrepareDataWeightFloorsAtOne(t *testing.T) {
	c := NewContainer()
	addNode(c, 1, 0.0, 0.0)
	addNode(c, 2, 0.0, 0.0)
	c.ProcessWay(100, []datastructure.OSMNodeID{1, 2}, make([]float64, 1), 0, carWay(120))

	result, err := c.PrepareData(Options{}, nil)
	if err != nil {
		t.Fatalf("PrepareData: %v", err)
	}
	for _, e := range result.Edges {
		if e.Weight < 1 {
			t.Fatalf("edge weight %d < 1", e.Weight)
		}
	}
}

// A profile that marks a way as not a startpoint must see that flag on
// the emitted edge, not a hardcoded default.
func TestPrepareDataCarriesStartpointFlag(t *testing.T) {
	c := NewContainer()
	addNode(c, 1, 0.0, 0.0)
	addNode(c, 2, 0.0, 0.001)

	w := carWay(50)
	w.IsStartpoint = false
	c.ProcessWay(100, []datastructure.OSMNodeID{1, 2}, make([]float64, 1), 0, w)

	result, err := c.PrepareData(Options{}, nil)
	if err != nil {
		t.Fatalf("PrepareData: %v", err)
	}
	if result.Edges[0].Startpoint() {
		t.Fatalf("IsStartpoint=false should carry through to the edge")
	}
}

// An edge whose endpoint never appeared as a node is dropped and counted,
// not emitted with a dangling reference.
func TestPrepareDataDropsUnresolvedEdges(t *testing.T) {
	c := NewContainer()
	addNode(c, 1, 0.0, 0.0)
	addNode(c, 2, 0.0, 0.001)
	c.ProcessWay(100, []datastructure.OSMNodeID{1, 2}, make([]float64, 1), 0, carWay(50))
	c.ProcessWay(101, []datastructure.OSMNodeID{2, 999}, make([]float64, 1), 0, carWay(50))

	result, err := c.PrepareData(Options{}, nil)
	if err != nil {
		t.Fatalf("PrepareData: %v", err)
	}
	if len(result.Edges) != 1 {
		t.Fatalf("got %d edges, want 1 (the segment toward the unknown node drops)", len(result.Edges))
	}
	if result.DroppedEdges != 1 {
		t.Fatalf("DroppedEdges = %d, want 1", result.DroppedEdges)
	}
}

// A way with a duration overrides the speed/distance formula: each of its
// segments gets duration/segment_count seconds, in deci-second weight.
func TestPrepareDataDurationOverridesSpeed(t *testing.T) {
	c := NewContainer()
	addNode(c, 1, 0.0, 0.0)
	addNode(c, 2, 0.0, 0.001)
	addNode(c, 3, 0.0, 0.002)

	w := carWay(50)
	w.Duration = 10 // seconds over the whole way
	w.WeightType = datastructure.WeightTypeDuration
	c.ProcessWay(100, []datastructure.OSMNodeID{1, 2, 3}, make([]float64, 2), 0, w)

	result, err := c.PrepareData(Options{}, nil)
	if err != nil {
		t.Fatalf("PrepareData: %v", err)
	}
	if len(result.Edges) != 2 {
		t.Fatalf("got %d edges, want 2", len(result.Edges))
	}
	for _, e := range result.Edges {
		if e.Weight != 50 {
			t.Fatalf("duration-based segment weight = %d, want 50 (5s per segment x10)", e.Weight)
		}
	}
}

// A restriction resolves only when its via node and both way endpoints
// are known; otherwise it drops into the counter.
func TestPrepareDataResolvesRestrictions(t *testing.T) {
	c := NewContainer()
	addNode(c, 1, 0.0, 0.0)
	addNode(c, 2, 0.0, 0.001)
	addNode(c, 3, 0.001, 0.001)
	c.ProcessWay(100, []datastructure.OSMNodeID{1, 2}, make([]float64, 1), 0, carWay(50))
	c.ProcessWay(101, []datastructure.OSMNodeID{2, 3}, make([]float64, 1), 0, carWay(50))

	c.ProcessRestriction(datastructure.InputRestriction{
		FromWay: 100, ViaNode: 2, ToWay: 101, Kind: datastructure.RestrictionNo,
	}, true)
	// via node 7 does not exist; must drop.
	c.ProcessRestriction(datastructure.InputRestriction{
		FromWay: 100, ViaNode: 7, ToWay: 101, Kind: datastructure.RestrictionNo,
	}, true)

	result, err := c.PrepareData(Options{}, nil)
	if err != nil {
		t.Fatalf("PrepareData: %v", err)
	}
	if len(result.Restrictions) != 1 {
		t.Fatalf("got %d restrictions, want 1", len(result.Restrictions))
	}
	if result.DroppedRestrictions != 1 {
		t.Fatalf("DroppedRestrictions = %d, want 1", result.DroppedRestrictions)
	}
	r := result.Restrictions[0]
	if r.Kind != datastructure.RestrictionNo {
		t.Fatalf("restriction kind = %v, want no", r.Kind)
	}
	via := result.Nodes[r.Via]
	if via.OSMID != 2 {
		t.Fatalf("via resolved to OSM node %d, want 2", via.OSMID)
	}
}

// Zero accumulated edges is a fatal data-integrity condition, not a
// silent empty output.
func TestPrepareDataEmptyEdgesFails(t *testing.T) {
	c := NewContainer()
	addNode(c, 1, 0.0, 0.0)

	_, err := c.PrepareData(Options{}, nil)
	if err == nil {
		t.Fatalf("expected an error for an empty edge list")
	}
	if !errs.IsDataIntegrity(err) {
		t.Fatalf("expected a data-integrity error, got %v", err)
	}
}

// The external-sort path must order the sequences identically to the
// in-memory path.
func TestExternalSortRunsMatchesInMemorySort(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	items := make([]RawNode, 1000)
	for i := range items {
		items[i] = RawNode{OSMID: datastructure.OSMNodeID(rng.Int63n(1 << 40))}
	}

	want := append([]RawNode(nil), items...)
	sort.Slice(want, func(i, j int) bool { return want[i].OSMID < want[j].OSMID })

	got, err := externalSortRuns(items, 64, func(a, b RawNode) bool { return a.OSMID < b.OSMID })
	if err != nil {
		t.Fatalf("externalSortRuns: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d items, want %d", len(got), len(want))
	}
	for i := range got {
		if got[i].OSMID != want[i].OSMID {
			t.Fatalf("position %d: got OSMID %d, want %d", i, got[i].OSMID, want[i].OSMID)
		}
	}
}

// PrepareData must produce the same join result whether or not the sort
// spilled to disk.
func TestPrepareDataWithExternalSortThreshold(t *testing.T) {
	build := func() *Container {
		c := NewContainer()
		for i := 1; i <= 50; i++ {
			addNode(c, datastructure.OSMNodeID(i), float64(i)*0.0001, 0)
		}
		for i := 1; i < 50; i++ {
			c.ProcessWay(datastructure.OSMWayID(1000+i),
				[]datastructure.OSMNodeID{datastructure.OSMNodeID(i), datastructure.OSMNodeID(i + 1)},
				make([]float64, 1), 0, carWay(50))
		}
		return c
	}

	inMem, err := build().PrepareData(Options{}, nil)
	if err != nil {
		t.Fatalf("in-memory PrepareData: %v", err)
	}
	spilled, err := build().PrepareData(Options{ExternalSortThreshold: 8}, nil)
	if err != nil {
		t.Fatalf("spilled PrepareData: %v", err)
	}

	if len(inMem.Edges) != len(spilled.Edges) {
		t.Fatalf("edge counts differ: %d in-memory vs %d spilled", len(inMem.Edges), len(spilled.Edges))
	}
	for i := range inMem.Edges {
		if inMem.Edges[i] != spilled.Edges[i] {
			t.Fatalf("edge %d differs: %+v vs %+v", i, inMem.Edges[i], spilled.Edges[i])
		}
	}
}
