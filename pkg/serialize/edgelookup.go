package serialize

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/wirahadi/graphprep/pkg/datastructure"
	"github.com/wirahadi/graphprep/pkg/errs"
)

// Segment is one entry of an edge-expanded edge's ordered OSM segment
// log, written only when -generate_edge_lookup is set.
type Segment struct {
	FromOSM    datastructure.OSMNodeID
	ToOSM      datastructure.OSMNodeID
	LengthM    float64
	BaseWeight int32
}

// EdgeSegments associates an edge-expanded edge, identified by its
// compressed-edge id (EdgeBasedEdge.EdgeID()), with its segment log.
type EdgeSegments struct {
	EdgeID   uint32
	Segments []Segment
}

// WriteEdgeSegmentLookup writes the `.edge_segment_lookup` file: one
// variable-length segment list per logged edge.
func WriteEdgeSegmentLookup(path string, entries []EdgeSegments) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	return writeAtomic(path, func(w *bufio.Writer) error {
		if err := writeU32(w, uint32(len(entries))); err != nil {
			return err
		}
		for _, e := range entries {
			if err := writeU32(w, e.EdgeID); err != nil {
				return err
			}
			if err := writeU32(w, uint32(len(e.Segments))); err != nil {
				return err
			}
			for _, s := range e.Segments {
				if err := writeSegment(w, s); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func writeSegment(w io.Writer, s Segment) error {
	var buf [28]byte
	binary.LittleEndian.PutUint64(buf[0:8], uint64(s.FromOSM))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(s.ToOSM))
	binary.LittleEndian.PutUint64(buf[16:24], math.Float64bits(s.LengthM))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(s.BaseWeight))
	_, err := w.Write(buf[:])
	return err
}

func readSegment(r io.Reader) (Segment, error) {
	var buf [28]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Segment{}, err
	}
	return Segment{
		FromOSM:    datastructure.OSMNodeID(binary.LittleEndian.Uint64(buf[0:8])),
		ToOSM:      datastructure.OSMNodeID(binary.LittleEndian.Uint64(buf[8:16])),
		LengthM:    math.Float64frombits(binary.LittleEndian.Uint64(buf[16:24])),
		BaseWeight: int32(binary.LittleEndian.Uint32(buf[24:28])),
	}, nil
}

// ReadEdgeSegmentLookup reads back a `.edge_segment_lookup` file.
func ReadEdgeSegmentLookup(path string) ([]EdgeSegments, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Configuration(err, "opening %q", path)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	n, err := readU32(r)
	if err != nil {
		return nil, errs.DataIntegrity(err, "reading %q count", path)
	}
	out := make([]EdgeSegments, n)
	for i := range out {
		edgeID, err := readU32(r)
		if err != nil {
			return nil, errs.DataIntegrity(err, "reading %q entry %d id", path, i)
		}
		segCount, err := readU32(r)
		if err != nil {
			return nil, errs.DataIntegrity(err, "reading %q entry %d segment count", path, i)
		}
		segs := make([]Segment, segCount)
		for j := range segs {
			s, err := readSegment(r)
			if err != nil {
				return nil, errs.DataIntegrity(err, "reading %q entry %d segment %d", path, i, j)
			}
			segs[j] = s
		}
		out[i] = EdgeSegments{EdgeID: edgeID, Segments: segs}
	}
	return out, nil
}

// WriteEdgePenalties writes the `.edge_penalties` file: the fixed
// (non-segment) portion of each logged edge's weight -- traffic-signal
// and turn penalties, which re-weighting must add back on top of the
// re-summed segment weights.
func WriteEdgePenalties(path string, edgeIDs []uint32, penalties []int32) error {
	if len(edgeIDs) != len(penalties) {
		return errs.DataIntegrity(nil, "edge penalty count mismatch: %d ids, %d penalties", len(edgeIDs), len(penalties))
	}
	if err := ensureDir(path); err != nil {
		return err
	}
	return writeAtomic(path, func(w *bufio.Writer) error {
		if err := writeU32(w, uint32(len(edgeIDs))); err != nil {
			return err
		}
		for i := range edgeIDs {
			if err := writeU32(w, edgeIDs[i]); err != nil {
				return err
			}
			if err := writeU32(w, uint32(penalties[i])); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReadEdgePenalties reads back a `.edge_penalties` file.
func ReadEdgePenalties(path string) (map[uint32]int32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Configuration(err, "opening %q", path)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	n, err := readU32(r)
	if err != nil {
		return nil, errs.DataIntegrity(err, "reading %q count", path)
	}
	out := make(map[uint32]int32, n)
	for i := uint32(0); i < n; i++ {
		edgeID, err := readU32(r)
		if err != nil {
			return nil, errs.DataIntegrity(err, "reading %q penalty %d id", path, i)
		}
		penalty, err := readU32(r)
		if err != nil {
			return nil, errs.DataIntegrity(err, "reading %q penalty %d value", path, i)
		}
		out[edgeID] = int32(penalty)
	}
	return out, nil
}
