// Package extract implements the extraction container: the accumulator
// that every worker feeds (ProcessNode/ProcessWay/ProcessRestriction)
// and the single PrepareData join that turns the accumulated,
// still-OSM-keyed sequences into a dense node-based graph. Maps are
// used only where the join needs random access; everything else is a
// plain sorted slice so PrepareData can spill to disk.
package extract

import (
	"sync"

	"github.com/wirahadi/graphprep/pkg/datastructure"
	"github.com/wirahadi/graphprep/pkg/errs"
)

// RawNode is one entry of `all_nodes`.
type RawNode struct {
	OSMID        datastructure.OSMNodeID
	Lat          float64
	Lon          float64
	Barrier      bool
	TrafficLight bool
}

// RawEdge is one accumulated edge, one per consecutive node pair of a
// way. Forward and backward carry independent speed/duration because a
// way's two directions may be profiled differently (e.g. a bus lane
// only one way).
type RawEdge struct {
	SourceOSM  datastructure.OSMNodeID
	TargetOSM  datastructure.OSMNodeID
	NameID     uint32
	Distance   float64 // metres, great-circle, as passed to ProcessWay; 0 means PrepareData derives it from the node coordinates

	// SegmentIndex/SegmentCount place this edge within its parent way's
	// node sequence (0-based position, and the way's total segment count),
	// so a duration-based way's weight can be recomputed later as
	// duration/SegmentCount without re-reading the way from the PBF.
	// CSV re-weighting (pkg/reweight) does not use them: it matches
	// segments by their OSM from/to node pair.
	SegmentIndex int
	SegmentCount int

	Forward         bool
	ForwardSpeed    float64 // km/h; zero means "use ForwardDuration instead"
	ForwardDuration float64 // seconds for this segment, or zero
	ForwardMode     datastructure.TravelMode

	Backward         bool
	BackwardSpeed    float64
	BackwardDuration float64
	BackwardMode     datastructure.TravelMode

	Roundabout     bool
	AccessRestrict bool
	Startpoint     bool
}

// WayEndpoints records the first and last OSM node id of a way, used to
// resolve restrictions against an incident edge.
type WayEndpoints struct {
	WayID datastructure.OSMWayID
	First datastructure.OSMNodeID
	Last  datastructure.OSMNodeID
}

// Container accumulates extracted entities across every worker before
// PrepareData runs the single-threaded join. All Process* methods are
// safe to call concurrently.
type Container struct {
	mu sync.Mutex

	allNodes     []RawNode
	allEdges     []RawEdge
	wayEndpoints []WayEndpoints
	restrictions []datastructure.InputRestriction

	counters errs.Counters
}

func NewContainer() *Container {
	return &Container{}
}

// ProcessNode records one classified OSM node.
func (c *Container) ProcessNode(osmID datastructure.OSMNodeID, lat, lon float64, n datastructure.ExtractionNode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.allNodes = append(c.allNodes, RawNode{
		OSMID:        osmID,
		Lat:          lat,
		Lon:          lon,
		Barrier:      n.Barrier,
		TrafficLight: n.TrafficLight,
	})
}

// ProcessWay records one classified OSM way as a run of consecutive-pair
// edges plus its start/end node ids. It is
// given the way's node id sequence and one great-circle distance per
// segment, which it stores as given; PrepareData computes the distance
// from the joined node coordinates for any segment whose stored distance
// is zero.
func (c *Container) ProcessWay(osmID datastructure.OSMWayID, nodeIDs []datastructure.OSMNodeID, segmentDistances []float64, nameID uint32, w datastructure.ExtractionWay) {
	if len(nodeIDs) < 2 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.wayEndpoints = append(c.wayEndpoints, WayEndpoints{
		WayID: osmID,
		First: nodeIDs[0],
		Last:  nodeIDs[len(nodeIDs)-1],
	})

	segCount := len(nodeIDs) - 1
	perSegmentDuration := 0.0
	if w.WeightType == datastructure.WeightTypeDuration && w.Duration > 0 {
		perSegmentDuration = w.Duration / float64(segCount)
	}

	for i := 0; i < segCount; i++ {
		edge := RawEdge{
			SourceOSM:      nodeIDs[i],
			TargetOSM:      nodeIDs[i+1],
			NameID:         nameID,
			Distance:       segmentDistances[i],
			SegmentIndex:   i,
			SegmentCount:   segCount,
			Roundabout:     w.Roundabout,
			AccessRestrict: w.IsAccessRestricted,
			Startpoint:     w.IsStartpoint,
		}

		if w.Forward() {
			edge.Forward = true
			edge.ForwardMode = w.ForwardTravelMode
			if perSegmentDuration > 0 {
				edge.ForwardDuration = perSegmentDuration
			} else {
				edge.ForwardSpeed = w.ForwardSpeed
			}
		}
		if w.Backward() {
			edge.Backward = true
			edge.BackwardMode = w.BackwardTravelMode
			if perSegmentDuration > 0 {
				edge.BackwardDuration = perSegmentDuration
			} else {
				edge.BackwardSpeed = w.BackwardSpeed
			}
		}
		if !edge.Forward && !edge.Backward {
			c.counters.DroppedEdges.Add(1)
			continue
		}

		c.allEdges = append(c.allEdges, edge)
	}
}

// ProcessRestriction records a resolved-from-a-relation InputRestriction,
// or does nothing when ok is false.
func (c *Container) ProcessRestriction(r datastructure.InputRestriction, ok bool) {
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.restrictions = append(c.restrictions, r)
}

// DroppedEdgeCount reports edges dropped at accumulation time (both
// directions inaccessible).
func (c *Container) DroppedEdgeCount() int64 {
	return c.counters.DroppedEdges.Load()
}

// Counters exposes the container's data-quality tallies.
func (c *Container) Counters() *errs.Counters {
	return &c.counters
}
