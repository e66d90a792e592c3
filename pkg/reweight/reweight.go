// Package reweight implements optional CSV segment-speed re-weighting:
// given a from_osm,to_osm,speed_kmh CSV and the `.edge_segment_lookup`
// side-channel a prior run logged, it recomputes each
// affected edge-expanded edge's weight from its segments rather than
// re-running extraction.
package reweight

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/wirahadi/graphprep/pkg/datastructure"
	"github.com/wirahadi/graphprep/pkg/errs"
	"github.com/wirahadi/graphprep/pkg/serialize"
)

// segmentKey identifies one directed OSM-node-to-OSM-node segment.
type segmentKey struct {
	From datastructure.OSMNodeID
	To   datastructure.OSMNodeID
}

// ParseCSV reads a header-required `from_osm,to_osm,speed_kmh` file
// into a lookup of directed segment -> overriding speed.
func ParseCSV(path string) (map[segmentKey]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Configuration(err, "opening segment speed csv %q", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 3

	header, err := r.Read()
	if err != nil {
		return nil, errs.Configuration(err, "reading segment speed csv %q header", path)
	}
	if len(header) != 3 || header[0] != "from_osm" || header[1] != "to_osm" || header[2] != "speed_kmh" {
		return nil, errs.Configuration(nil, "segment speed csv %q: expected header from_osm,to_osm,speed_kmh", path)
	}

	overrides := make(map[segmentKey]float64)
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errs.Configuration(err, "reading segment speed csv %q row", path)
		}

		from, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			return nil, errs.Configuration(err, "segment speed csv %q: bad from_osm %q", path, rec[0])
		}
		to, err := strconv.ParseInt(rec[1], 10, 64)
		if err != nil {
			return nil, errs.Configuration(err, "segment speed csv %q: bad to_osm %q", path, rec[1])
		}
		speed, err := strconv.ParseFloat(rec[2], 64)
		if err != nil || speed <= 0 {
			return nil, errs.Configuration(err, "segment speed csv %q: bad speed_kmh %q", path, rec[2])
		}

		overrides[segmentKey{datastructure.OSMNodeID(from), datastructure.OSMNodeID(to)}] = speed
	}
	return overrides, nil
}

// RecomputeSegmentWeight re-derives one segment's weight from an
// overridden speed: max(1, floor(length_m * 10 / (speed_kmh / 3.6) + 0.5)).
func RecomputeSegmentWeight(lengthM, speedKmh float64) int32 {
	w := int32(math.Floor(lengthM*10/(speedKmh/3.6) + 0.5))
	if w < 1 {
		w = 1
	}
	return w
}

// Apply recomputes the weight of every edge-expanded edge whose logged
// segments match an override, in place, as its re-summed segment
// weights (substituting RecomputeSegmentWeight wherever a segment's
// (from_osm,to_osm) pair has an override) plus its fixed penalty. Each
// edge's fixed penalty is taken from its own current weight minus the
// logged base segment weights, so turns that share one compressed-edge
// id keep their distinct penalties; the penalties table is not consulted.
// Edges with no matching entry in entries are left untouched.
func Apply(edges []datastructure.EdgeBasedEdge, entries []serialize.EdgeSegments, penalties map[uint32]int32, overrides map[segmentKey]float64) {
	delta := make(map[uint32]int32, len(entries))
	for _, entry := range entries {
		var d int32
		for _, seg := range entry.Segments {
			if speed, ok := overrides[segmentKey{seg.FromOSM, seg.ToOSM}]; ok {
				d += RecomputeSegmentWeight(seg.LengthM, speed) - seg.BaseWeight
			}
		}
		delta[entry.EdgeID] = d
	}

	for i := range edges {
		if d, ok := delta[edges[i].EdgeID()]; ok {
			w := edges[i].Weight + d
			if w < 1 {
				w = 1
			}
			edges[i].Weight = w
		}
	}
}
