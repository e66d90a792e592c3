package profile

import (
	"strings"

	"github.com/wirahadi/graphprep/pkg/datastructure"
)

// acceptedHighway lists the highway= values a car profile routes over,
// with a base speed in km/h per class.
var acceptedHighway = map[string]float64{
	"motorway":         100,
	"motorway_link":    60,
	"trunk":            85,
	"trunk_link":       50,
	"primary":          65,
	"primary_link":     45,
	"secondary":        55,
	"secondary_link":   40,
	"tertiary":         45,
	"tertiary_link":    35,
	"residential":      30,
	"residential_link": 30,
	"living_street":    15,
	"service":          15,
	"unclassified":     30,
	"road":             25,
	"track":            15,
	"motorroad":        90,
}

// acceptedBarrierType lists the barrier= values that block routing when
// combined with access=no.
var acceptedBarrierType = map[string]struct{}{
	"bollard":        {},
	"swing_gate":     {},
	"jersey_barrier": {},
	"lift_gate":      {},
	"block":          {},
	"gate":           {},
}

// DefaultRuntime is the native stand-in for the external scripting
// runtime: a plain car profile expressed directly in Go, classifying
// ways by highway class, oneway sense, and access tags.
type DefaultRuntime struct {
	trafficSignalPenalty int32
	uTurnPenalty         int32
}

func NewDefaultRuntime() *DefaultRuntime {
	return &DefaultRuntime{}
}

func (r *DefaultRuntime) Setup() (Constants, error) {
	r.trafficSignalPenalty = 20 // deci-seconds x10 => 2.0s, matches S5's example
	r.uTurnPenalty = 200        // 20s
	return Constants{
		TrafficSignalPenalty: r.trafficSignalPenalty,
		UTurnPenalty:         r.uTurnPenalty,
	}, nil
}

func (r *DefaultRuntime) NodeFunction(n RawNode) (datastructure.ExtractionNode, error) {
	out := datastructure.ExtractionNode{}

	if strings.Contains(n.Tags.Find("highway"), "traffic_signals") {
		out.TrafficLight = true
	}

	barrier := n.Tags.Find("barrier")
	access := n.Tags.Find("access")
	if _, ok := acceptedBarrierType[barrier]; ok && barrier != "" && access == "no" {
		out.Barrier = true
	}

	return out, nil
}

func (r *DefaultRuntime) WayFunction(w RawWay) (datastructure.ExtractionWay, error) {
	out := datastructure.ExtractionWay{WeightType: datastructure.WeightTypeSpeed}

	highway := w.Tags.Find("highway")
	baseSpeed, accepted := acceptedHighway[highway]
	if !accepted {
		// not a routable way per this profile; zero speeds cause the
		// caller to drop it.
		return out, nil
	}

	out.Name = w.Tags.Find("name")
	out.RoadClassification = uint32(len(highway)) // opaque tag bits; profile-defined encoding
	out.ForwardTravelMode = datastructure.TravelModeDriving
	out.BackwardTravelMode = datastructure.TravelModeDriving

	if j := w.Tags.Find("junction"); j == "roundabout" || j == "circular" {
		out.Roundabout = true
	}

	oneway := w.Tags.Find("oneway")
	reverse := oneway == "-1"
	forced := oneway == "yes" || oneway == "-1"

	if durationTag := w.Tags.Find("duration"); durationTag != "" {
		if secs, ok := parseISO8601Duration(durationTag); ok {
			out.Duration = secs
			out.WeightType = datastructure.WeightTypeDuration
		}
	}

	access := w.Tags.Find("access")
	out.IsAccessRestricted = access == "private" || access == "no"
	out.IsStartpoint = true

	switch {
	case forced && reverse:
		out.BackwardSpeed = baseSpeed
		out.ForwardSpeed = 0
	case forced:
		out.ForwardSpeed = baseSpeed
		out.BackwardSpeed = 0
	default:
		out.ForwardSpeed = baseSpeed
		out.BackwardSpeed = baseSpeed
	}

	if out.IsAccessRestricted {
		out.ForwardSpeed = 0
		out.BackwardSpeed = 0
	}

	return out, nil
}

// TurnFunction is not defined by the default profile; the caller falls
// back to its policy-default penalties instead.
func (r *DefaultRuntime) TurnFunction(angleDegrees float64) (int32, bool) {
	return 0, false
}

// parseISO8601Duration handles the small subset OSM actually uses: a "PT"
// prefix followed by hour (H), minute (M) and/or second (S) components,
// e.g. "PT45M", "PT1H15M", "PT45S".
func parseISO8601Duration(s string) (float64, bool) {
	if !strings.HasPrefix(s, "PT") {
		return 0, false
	}
	s = s[2:]
	var hours, minutes, seconds float64
	var num strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9' || r == '.':
			num.WriteRune(r)
		case r == 'H':
			hours = parseFloatOrZero(num.String())
			num.Reset()
		case r == 'M':
			minutes = parseFloatOrZero(num.String())
			num.Reset()
		case r == 'S':
			seconds = parseFloatOrZero(num.String())
			num.Reset()
		}
	}
	total := hours*3600 + minutes*60 + seconds
	return total, total > 0
}

func parseFloatOrZero(s string) float64 {
	var v float64
	var frac float64 = 0.1
	seenDot := false
	for _, r := range s {
		if r == '.' {
			seenDot = true
			continue
		}
		d := float64(r - '0')
		if !seenDot {
			v = v*10 + d
		} else {
			v += d * frac
			frac /= 10
		}
	}
	return v
}
