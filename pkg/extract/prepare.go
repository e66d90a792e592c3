package extract

import (
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/wirahadi/graphprep/pkg/datastructure"
	"github.com/wirahadi/graphprep/pkg/errs"
	"github.com/wirahadi/graphprep/pkg/geo"
)

// Options configures PrepareData; zero value is valid and runs entirely
// in memory.
type Options struct {
	// ExternalSortThreshold is the element count above which a sequence
	// is spilled to disk instead of sorted in memory. Zero disables external sorting.
	ExternalSortThreshold int
	TrafficSignalPenalty  int32
	UTurnPenalty          int32
}

// Result is the join's output: a dense node-based graph plus the
// resolved restriction list and drop counters.
type Result struct {
	Nodes        []datastructure.QueryNode
	Barriers     []bool
	TrafficLight []bool
	Edges        []datastructure.NodeBasedEdge
	Restrictions []datastructure.TurnRestriction

	DroppedEdges        int64
	DroppedRestrictions int64
}

// PrepareData runs the sort/merge join: it sorts the accumulated nodes
// and edges, substitutes dense NodeIDs for OSM ids on both
// endpoints of every edge (dropping edges whose endpoint is unresolved),
// computes each edge's weight, and resolves restrictions against the
// way-endpoint table.
func (c *Container) PrepareData(opts Options, names func(id uint32) string) (Result, error) {
	c.mu.Lock()
	nodes := append([]RawNode(nil), c.allNodes...)
	edges := append([]RawEdge(nil), c.allEdges...)
	wayEnds := append([]WayEndpoints(nil), c.wayEndpoints...)
	restrictions := append([]datastructure.InputRestriction(nil), c.restrictions...)
	c.mu.Unlock()

	if len(edges) == 0 {
		return Result{}, errs.DataIntegrity(nil, "extraction produced zero edges")
	}

	if err := sortSequences(nodes, edges, opts.ExternalSortThreshold); err != nil {
		return Result{}, err
	}

	// step 1/2 done by sortSequences (by OSMID / by SourceOSM respectively).
	// The join below looks both endpoints up by OSM id, so no re-sort by
	// TargetOSM follows.

	osmToDense := make(map[datastructure.OSMNodeID]datastructure.NodeID, len(nodes))
	for i, n := range nodes {
		osmToDense[n.OSMID] = datastructure.NodeID(i)
	}

	// step 3/4: left-join both endpoints against all_nodes, dropping any
	// edge whose source or target is unknown.
	resolved := make([]RawEdge, 0, len(edges))
	source := make([]datastructure.NodeID, 0, len(edges))
	target := make([]datastructure.NodeID, 0, len(edges))
	for _, e := range edges {
		s, ok1 := osmToDense[e.SourceOSM]
		t, ok2 := osmToDense[e.TargetOSM]
		if !ok1 || !ok2 {
			c.counters.UnresolvedEdges.Add(1)
			continue
		}
		resolved = append(resolved, e)
		source = append(source, s)
		target = append(target, t)
	}

	out := make([]datastructure.NodeBasedEdge, 0, len(resolved))
	for i, e := range resolved {
		sNode := nodes[source[i]]
		tNode := nodes[target[i]]
		weight := computeWeight(sNode, tNode, e)

		out = append(out, datastructure.NewNodeBasedEdge(
			source[i], target[i], e.NameID, weight,
			e.Forward, e.Backward, e.Roundabout, e.AccessRestrict,
			e.Startpoint, uint8(resolveMode(e)),
		))
	}

	queryNodes := make([]datastructure.QueryNode, len(nodes))
	barriers := make([]bool, len(nodes))
	trafficLights := make([]bool, len(nodes))
	for i, n := range nodes {
		queryNodes[i] = datastructure.NewQueryNode(n.OSMID, n.Lat, n.Lon)
		barriers[i] = n.Barrier
		trafficLights[i] = n.TrafficLight
	}

	// step 6: resolve restrictions.
	endpointsByWay := make(map[datastructure.OSMWayID]WayEndpoints, len(wayEnds))
	for _, w := range wayEnds {
		endpointsByWay[w.WayID] = w
	}

	resolvedRestrictions := make([]datastructure.TurnRestriction, 0, len(restrictions))
	for _, r := range restrictions {
		tr, ok := resolveRestriction(r, osmToDense, endpointsByWay)
		if !ok {
			c.counters.DroppedRestrictions.Add(1)
			continue
		}
		resolvedRestrictions = append(resolvedRestrictions, tr)
	}

	snap := c.counters.Snapshot()
	return Result{
		Nodes:               queryNodes,
		Barriers:            barriers,
		TrafficLight:        trafficLights,
		Edges:               out,
		Restrictions:        resolvedRestrictions,
		DroppedEdges:        snap.DroppedEdges + snap.UnresolvedEdges,
		DroppedRestrictions: snap.DroppedRestrictions,
	}, nil
}

func resolveMode(e RawEdge) datastructure.TravelMode {
	if e.Forward {
		return e.ForwardMode
	}
	return e.BackwardMode
}

// computeWeight derives one edge's metric: duration-based ways use
// duration*10/segment_count (already divided by segment count at
// process_way time, so just *10 here); speed-based ways use
// max(1, round(distance*10/speed_kmh*3.6)). Forward and backward may
// have distinct speeds/durations; we weight by whichever direction(s)
// the edge carries, preferring duration when both are present.
func computeWeight(source, target RawNode, e RawEdge) int32 {
	duration := e.ForwardDuration
	if duration == 0 {
		duration = e.BackwardDuration
	}
	if duration > 0 {
		return weightFromDuration(duration)
	}

	speed := e.ForwardSpeed
	if speed == 0 {
		speed = e.BackwardSpeed
	}
	if speed <= 0 {
		return 1
	}

	distanceM := e.Distance
	if distanceM == 0 {
		distanceM = geo.CalculateHaversineDistance(source.Lat, source.Lon, target.Lat, target.Lon) * 1000
	}
	return weightFromSpeed(distanceM, speed)
}

func weightFromDuration(durationSeconds float64) int32 {
	w := int32(math.Round(durationSeconds * 10))
	if w < 1 {
		w = 1
	}
	return w
}

func weightFromSpeed(distanceM, speedKmh float64) int32 {
	w := int32(math.Round(distanceM * 10 / speedKmh * 3.6))
	if w < 1 {
		w = 1
	}
	return w
}

func resolveRestriction(
	r datastructure.InputRestriction,
	osmToDense map[datastructure.OSMNodeID]datastructure.NodeID,
	endpointsByWay map[datastructure.OSMWayID]WayEndpoints,
) (datastructure.TurnRestriction, bool) {
	via, ok := osmToDense[r.ViaNode]
	if !ok {
		return datastructure.TurnRestriction{}, false
	}

	fromEnd, ok := endpointsByWay[r.FromWay]
	if !ok {
		return datastructure.TurnRestriction{}, false
	}
	toEnd, ok := endpointsByWay[r.ToWay]
	if !ok {
		return datastructure.TurnRestriction{}, false
	}

	fromOther, ok := incidentEndpoint(fromEnd, r.ViaNode)
	if !ok {
		return datastructure.TurnRestriction{}, false
	}
	toOther, ok := incidentEndpoint(toEnd, r.ViaNode)
	if !ok {
		return datastructure.TurnRestriction{}, false
	}

	from, ok := osmToDense[fromOther]
	if !ok {
		return datastructure.TurnRestriction{}, false
	}
	to, ok := osmToDense[toOther]
	if !ok {
		return datastructure.TurnRestriction{}, false
	}

	return datastructure.TurnRestriction{From: from, Via: via, To: to, Kind: r.Kind}, true
}

// incidentEndpoint returns the endpoint of a way other than via, when
// via is in fact one of the way's two endpoints.
func incidentEndpoint(w WayEndpoints, via datastructure.OSMNodeID) (datastructure.OSMNodeID, bool) {
	switch {
	case w.First == via:
		return w.Last, true
	case w.Last == via:
		return w.First, true
	default:
		return 0, false
	}
}

// sortSequences orders nodes by OSMID and edges by SourceOSM, in
// parallel via errgroup when both are small enough to sort in memory,
// or externally when either exceeds threshold.
func sortSequences(nodes []RawNode, edges []RawEdge, threshold int) error {
	if threshold > 0 && (len(nodes) > threshold || len(edges) > threshold) {
		return externalSort(nodes, edges, threshold)
	}

	var g errgroup.Group
	g.Go(func() error {
		sort.Slice(nodes, func(i, j int) bool { return nodes[i].OSMID < nodes[j].OSMID })
		return nil
	})
	g.Go(func() error {
		sort.Slice(edges, func(i, j int) bool { return edges[i].SourceOSM < edges[j].SourceOSM })
		return nil
	})
	return g.Wait()
}
