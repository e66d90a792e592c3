package datastructure

// ExtractionNode is the per-node output of the profile's node_function
// hook.
type ExtractionNode struct {
	Barrier      bool
	TrafficLight bool
}
