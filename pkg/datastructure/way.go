package datastructure

// TravelMode is a small tag enum describing how a way may be traversed.
// The shipped default profile (pkg/profile) only ever emits TravelModeDriving
// or TravelModeInaccessible; the type exists so a richer profile can
// distinguish e.g. ferries without changing the data model.
type TravelMode uint8

const (
	TravelModeInaccessible TravelMode = iota
	TravelModeDriving
	TravelModeFerry
)

// WeightType records which field of ExtractionWay determines a way's
// edge weight, recovered from original_source/extractor/extractor.cpp's
// duration-vs-speed costing split.
type WeightType uint8

const (
	WeightTypeInvalid WeightType = iota
	WeightTypeSpeed
	WeightTypeDuration
)

// ExtractionWay is the per-way output of the profile's way_function hook
//. ForwardSpeed/BackwardSpeed are km/h; zero disables
// that direction entirely.
type ExtractionWay struct {
	ForwardSpeed        float64
	BackwardSpeed       float64
	ForwardTravelMode   TravelMode
	BackwardTravelMode  TravelMode
	Roundabout          bool
	IsAccessRestricted  bool
	IsStartpoint        bool
	Name                string
	Duration            float64 // seconds; only meaningful when WeightType == WeightTypeDuration
	WeightType          WeightType
	RoadClassification  uint32 // opaque tag bits; profile-defined
}

// Forward/Backward report whether the way carries traffic in that
// direction at all; a way with neither is dropped.
func (w ExtractionWay) Forward() bool  { return w.ForwardSpeed > 0 }
func (w ExtractionWay) Backward() bool { return w.BackwardSpeed > 0 }

func (w ExtractionWay) IsRoutable() bool { return w.Forward() || w.Backward() }
