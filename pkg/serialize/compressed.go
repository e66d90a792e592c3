package serialize

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/wirahadi/graphprep/pkg/compress"
	"github.com/wirahadi/graphprep/pkg/datastructure"
	"github.com/wirahadi/graphprep/pkg/errs"
)

// WriteCompressedGraph writes the compressed node-based graph, the
// handoff file between graph compression and edge expansion: the
// compressed graph is materialized on disk before the edge-expansion
// stage reads it back. Layout mirrors `.osrm` (nodes, signal ids, then
// edges) with one extra GeometryID field per edge, since a compressed
// edge must carry a pointer into the geometry side table that an
// uncompressed NodeBasedEdge never needs. Traffic light ids ride along
// because the edge-expansion turn-penalty pass still needs them indexed
// by NodeID. The dense-NodeID geometry table rides along too, distinct
// from the OSM-id `.geometry` file: edge expansion needs dense ids back
// to index into `nodes` for bounding boxes, which an OSM-id table
// cannot do without a second lookup. The per-segment weight/length
// pools follow, so the edge-lookup side-channel can log real
// sub-segments downstream.
func WriteCompressedGraph(path string, nodes []datastructure.QueryNode, signals []datastructure.NodeID, edges []compress.CompressedEdge, geometry *compress.GeometryStore) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	return writeAtomic(path, func(w *bufio.Writer) error {
		if err := writeFingerPrint(w); err != nil {
			return err
		}
		if err := writeU32(w, uint32(len(nodes))); err != nil {
			return err
		}
		for _, n := range nodes {
			if err := writeQueryNode(w, n); err != nil {
				return err
			}
		}
		if err := writeU32(w, uint32(len(signals))); err != nil {
			return err
		}
		for _, id := range signals {
			if err := writeNodeID(w, id); err != nil {
				return err
			}
		}
		if err := writeU32(w, uint32(len(edges))); err != nil {
			return err
		}
		for _, e := range edges {
			if err := writeCompressedEdge(w, e); err != nil {
				return err
			}
		}
		offsets := geometry.Offsets()
		if err := writeU32(w, uint32(len(offsets))); err != nil {
			return err
		}
		for _, o := range offsets {
			if err := writeU32(w, o); err != nil {
				return err
			}
		}
		geomNodes := geometry.Nodes()
		if err := writeU32(w, uint32(len(geomNodes))); err != nil {
			return err
		}
		for _, n := range geomNodes {
			if err := writeNodeID(w, n); err != nil {
				return err
			}
		}
		segOffsets := geometry.SegmentOffsets()
		if err := writeU32(w, uint32(len(segOffsets))); err != nil {
			return err
		}
		for _, o := range segOffsets {
			if err := writeU32(w, o); err != nil {
				return err
			}
		}
		segments := geometry.AllSegments()
		if err := writeU32(w, uint32(len(segments))); err != nil {
			return err
		}
		for _, s := range segments {
			if err := writeGeometrySegment(w, s); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReadCompressedGraph reads back a file written by WriteCompressedGraph.
func ReadCompressedGraph(path string) ([]datastructure.QueryNode, []datastructure.NodeID, []compress.CompressedEdge, *compress.GeometryStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, nil, errs.Configuration(err, "opening %q", path)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	if err := readFingerPrint(r); err != nil {
		return nil, nil, nil, nil, err
	}
	nodes, err := readCounted(r, readQueryNode)
	if err != nil {
		return nil, nil, nil, nil, errs.DataIntegrity(err, "reading %q nodes", path)
	}
	signals, err := readCounted(r, readNodeID)
	if err != nil {
		return nil, nil, nil, nil, errs.DataIntegrity(err, "reading %q signals", path)
	}
	edges, err := readCounted(r, readCompressedEdge)
	if err != nil {
		return nil, nil, nil, nil, errs.DataIntegrity(err, "reading %q edges", path)
	}
	offsets, err := readCounted(r, readU32)
	if err != nil {
		return nil, nil, nil, nil, errs.DataIntegrity(err, "reading %q geometry offsets", path)
	}
	geomNodes, err := readCounted(r, readNodeID)
	if err != nil {
		return nil, nil, nil, nil, errs.DataIntegrity(err, "reading %q geometry nodes", path)
	}
	segOffsets, err := readCounted(r, readU32)
	if err != nil {
		return nil, nil, nil, nil, errs.DataIntegrity(err, "reading %q segment offsets", path)
	}
	segments, err := readCounted(r, readGeometrySegment)
	if err != nil {
		return nil, nil, nil, nil, errs.DataIntegrity(err, "reading %q segments", path)
	}
	geometry := compress.NewGeometryStoreFromParts(offsets, geomNodes, segOffsets, segments)
	return nodes, signals, edges, geometry, nil
}

func writeGeometrySegment(w io.Writer, s compress.Segment) error {
	var buf [12]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(s.Weight))
	binary.LittleEndian.PutUint64(buf[4:12], math.Float64bits(s.LengthM))
	_, err := w.Write(buf[:])
	return err
}

func readGeometrySegment(r io.Reader) (compress.Segment, error) {
	var buf [12]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return compress.Segment{}, err
	}
	return compress.Segment{
		Weight:  int32(binary.LittleEndian.Uint32(buf[0:4])),
		LengthM: math.Float64frombits(binary.LittleEndian.Uint64(buf[4:12])),
	}, nil
}

func writeCompressedEdge(w io.Writer, e compress.CompressedEdge) error {
	var buf [24]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(e.Source))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(e.Target))
	binary.LittleEndian.PutUint32(buf[8:12], e.NameID)
	binary.LittleEndian.PutUint32(buf[12:16], uint32(e.Weight))
	var flags byte
	if e.Forward {
		flags |= 1
	}
	if e.Backward {
		flags |= 2
	}
	if e.Roundabout {
		flags |= 4
	}
	if e.AccessRestrict {
		flags |= 8
	}
	buf[16] = flags
	buf[17] = e.TravelMode
	binary.LittleEndian.PutUint32(buf[20:24], e.GeometryID)
	_, err := w.Write(buf[:])
	return err
}

func readCompressedEdge(r io.Reader) (compress.CompressedEdge, error) {
	var buf [24]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return compress.CompressedEdge{}, err
	}
	flags := buf[16]
	return compress.CompressedEdge{
		Source:         datastructure.NodeID(binary.LittleEndian.Uint32(buf[0:4])),
		Target:         datastructure.NodeID(binary.LittleEndian.Uint32(buf[4:8])),
		NameID:         binary.LittleEndian.Uint32(buf[8:12]),
		Weight:         int32(binary.LittleEndian.Uint32(buf[12:16])),
		Forward:        flags&1 != 0,
		Backward:       flags&2 != 0,
		Roundabout:     flags&4 != 0,
		AccessRestrict: flags&8 != 0,
		TravelMode:     buf[17],
		GeometryID:     binary.LittleEndian.Uint32(buf[20:24]),
	}, nil
}
