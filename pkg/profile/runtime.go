// Package profile adapts the external, sandboxed scripting runtime that
// classifies OSM nodes and ways. The runtime itself is out
// of scope for this repository -- it is assumed to expose three named
// hooks by whatever mechanism the surrounding tool loads a script with.
// What lives here is the Go-side contract (the Runtime interface) and the
// per-worker instancing the concurrency model requires, since the runtime
// is "not reentrant".
package profile

import (
	"github.com/paulmach/osm"
	"github.com/wirahadi/graphprep/pkg/datastructure"
)

// RawNode and RawWay are the tag-level view a profile hook sees: enough to
// classify the entity, nothing about how the pipeline got there.
type RawNode struct {
	ID   datastructure.OSMNodeID
	Lat  float64
	Lon  float64
	Tags osm.Tags
}

type RawWay struct {
	ID    datastructure.OSMWayID
	Nodes osm.WayNodes
	Tags  osm.Tags
}

// Constants are the two profile-wide scalars the setup phase extracts,
// stored as integers times ten (deci-seconds), matching the unit
// TurnFunction's penalty is expressed in.
type Constants struct {
	TrafficSignalPenalty int32
	UTurnPenalty         int32
}

// Runtime is one instance of the external scripting runtime. It is
// stateful and must never be shared between goroutines; see Adapter.
type Runtime interface {
	// Setup runs once, before any node/way is classified, and returns the
	// profile's top-level traffic_signal_penalty/u_turn_penalty values.
	Setup() (Constants, error)

	NodeFunction(n RawNode) (datastructure.ExtractionNode, error)
	WayFunction(w RawWay) (datastructure.ExtractionWay, error)

	// TurnFunction is optional; ok is false when the profile does not
	// define turn_function and the caller should fall back to a policy
	// default.
	TurnFunction(angleDegrees float64) (penaltyDeciSeconds int32, ok bool)
}
