package serialize

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/wirahadi/graphprep/pkg/datastructure"
	"github.com/wirahadi/graphprep/pkg/errs"
	"github.com/wirahadi/graphprep/pkg/rtree"
)

// WriteRtree writes the `.ramIndex`/`.fileIndex` pair.
// tidwall/rtree does not expose its internal node layout, so this
// package's own index is "flat": ramIndex carries the leaf count plus
// every leaf's bounding box (the part a real R-tree keeps resident for
// fast top-down search), and fileIndex carries the EdgeBasedNodeID
// payloads in the same order (the part that would be paged in only for
// matching leaves). This flat layout is a simplification of a two-level
// on-disk R-tree.
func WriteRtree(ramPath, filePath string, boxes []datastructure.GeoBox, leafIDs []uint32) error {
	if len(boxes) != len(leafIDs) {
		return errs.DataIntegrity(nil, "rtree leaf count mismatch: %d boxes, %d ids", len(boxes), len(leafIDs))
	}

	if err := ensureDir(ramPath); err != nil {
		return err
	}
	if err := writeAtomic(ramPath, func(w *bufio.Writer) error {
		if err := writeU32(w, uint32(len(boxes))); err != nil {
			return err
		}
		for _, b := range boxes {
			if err := writeGeoBox(w, b); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}

	if err := ensureDir(filePath); err != nil {
		return err
	}
	return writeAtomic(filePath, func(w *bufio.Writer) error {
		if err := writeU32(w, uint32(len(leafIDs))); err != nil {
			return err
		}
		for _, id := range leafIDs {
			if err := writeU32(w, id); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeGeoBox(w io.Writer, b datastructure.GeoBox) error {
	var buf [16]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(b.MinLat))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(b.MinLon))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(b.MaxLat))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(b.MaxLon))
	_, err := w.Write(buf[:])
	return err
}

// ReadRtree reads back the box/leaf pair written by WriteRtree and
// rebuilds an in-memory rtree.Index over it.
func ReadRtree(ramPath, filePath string) (*rtree.Index, error) {
	ramFile, err := os.Open(ramPath)
	if err != nil {
		return nil, errs.Configuration(err, "opening %q", ramPath)
	}
	defer ramFile.Close()
	ram := bufio.NewReader(ramFile)

	n, err := readU32(ram)
	if err != nil {
		return nil, errs.DataIntegrity(err, "reading %q count", ramPath)
	}
	boxes := make([]datastructure.GeoBox, n)
	for i := range boxes {
		var buf [16]byte
		if _, err := io.ReadFull(ram, buf[:]); err != nil {
			return nil, errs.DataIntegrity(err, "reading %q box %d", ramPath, i)
		}
		boxes[i] = datastructure.GeoBox{
			MinLat: datastructure.FixedLat(binary.LittleEndian.Uint32(buf[0:4])),
			MinLon: datastructure.FixedLon(binary.LittleEndian.Uint32(buf[4:8])),
			MaxLat: datastructure.FixedLat(binary.LittleEndian.Uint32(buf[8:12])),
			MaxLon: datastructure.FixedLon(binary.LittleEndian.Uint32(buf[12:16])),
		}
	}

	fileFile, err := os.Open(filePath)
	if err != nil {
		return nil, errs.Configuration(err, "opening %q", filePath)
	}
	defer fileFile.Close()
	fr := bufio.NewReader(fileFile)

	m, err := readU32(fr)
	if err != nil {
		return nil, errs.DataIntegrity(err, "reading %q count", filePath)
	}
	if m != n {
		return nil, errs.DataIntegrity(nil, "rtree leaf count mismatch: ram=%d file=%d", n, m)
	}
	ids := make([]uint32, m)
	for i := range ids {
		v, err := readU32(fr)
		if err != nil {
			return nil, errs.DataIntegrity(err, "reading %q leaf %d", filePath, i)
		}
		ids[i] = v
	}

	ebNodes := make([]datastructure.EdgeBasedNode, n)
	for i, b := range boxes {
		ebNodes[i] = datastructure.EdgeBasedNode{BoundingBox: b, ForwardEdgeBasedNodeID: ids[i], ReverseEdgeBasedNodeID: datastructure.SpecialEdgeBasedNodeID}
	}
	return rtree.Build(ebNodes, 0), nil
}
