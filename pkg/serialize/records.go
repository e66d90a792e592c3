package serialize

import (
	"encoding/binary"
	"io"

	"github.com/wirahadi/graphprep/pkg/datastructure"
)

// Each record type below is written field-by-field rather than via
// encoding/binary.Write on the struct directly, so the wire layout is
// explicit regardless of struct padding or blank alignment fields (the
// datastructure package's packed structs carry a trailing `_ uint16` for
// exactly that padding, which reflection-based encoding cannot see
// through cleanly).

func writeQueryNode(w io.Writer, n datastructure.QueryNode) error {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], uint64(n.OSMID))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(n.Lat))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(n.Lon))
	_, err := w.Write(buf[:])
	return err
}

func readQueryNode(r io.Reader) (datastructure.QueryNode, error) {
	var buf [16]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return datastructure.QueryNode{}, err
	}
	return datastructure.QueryNode{
		OSMID: datastructure.OSMNodeID(binary.LittleEndian.Uint64(buf[0:8])),
		Lat:   datastructure.FixedLat(binary.LittleEndian.Uint32(buf[8:12])),
		Lon:   datastructure.FixedLon(binary.LittleEndian.Uint32(buf[12:16])),
	}, nil
}

func writeNodeID(w io.Writer, id datastructure.NodeID) error {
	return writeU32(w, uint32(id))
}

func readNodeID(r io.Reader) (datastructure.NodeID, error) {
	v, err := readU32(r)
	return datastructure.NodeID(v), err
}

func writeNodeBasedEdge(w io.Writer, e datastructure.NodeBasedEdge) error {
	var buf [20]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(e.Source))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(e.Target))
	binary.LittleEndian.PutUint32(buf[8:12], e.NameID)
	binary.LittleEndian.PutUint32(buf[12:16], uint32(e.Weight))
	buf[16] = flagsOf(e)
	buf[17] = e.TravelMode
	// buf[18:20] padding, always zero.
	_, err := w.Write(buf[:])
	return err
}

func flagsOf(e datastructure.NodeBasedEdge) byte {
	var b byte
	if e.Forward() {
		b |= 1
	}
	if e.Backward() {
		b |= 2
	}
	if e.Roundabout() {
		b |= 4
	}
	if e.AccessRestricted() {
		b |= 8
	}
	if e.Startpoint() {
		b |= 16
	}
	return b
}

func readNodeBasedEdge(r io.Reader) (datastructure.NodeBasedEdge, error) {
	var buf [20]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return datastructure.NodeBasedEdge{}, err
	}
	flags := buf[16]
	return datastructure.NewNodeBasedEdge(
		datastructure.NodeID(binary.LittleEndian.Uint32(buf[0:4])),
		datastructure.NodeID(binary.LittleEndian.Uint32(buf[4:8])),
		binary.LittleEndian.Uint32(buf[8:12]),
		int32(binary.LittleEndian.Uint32(buf[12:16])),
		flags&1 != 0, flags&2 != 0, flags&4 != 0, flags&8 != 0, flags&16 != 0,
		buf[17],
	), nil
}

func writeTurnRestriction(w io.Writer, r datastructure.TurnRestriction) error {
	var buf [13]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(r.From))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(r.Via))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(r.To))
	buf[12] = byte(r.Kind)
	_, err := w.Write(buf[:])
	return err
}

func readTurnRestriction(r io.Reader) (datastructure.TurnRestriction, error) {
	var buf [13]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return datastructure.TurnRestriction{}, err
	}
	return datastructure.TurnRestriction{
		From: datastructure.NodeID(binary.LittleEndian.Uint32(buf[0:4])),
		Via:  datastructure.NodeID(binary.LittleEndian.Uint32(buf[4:8])),
		To:   datastructure.NodeID(binary.LittleEndian.Uint32(buf[8:12])),
		Kind: datastructure.RestrictionKind(buf[12]),
	}, nil
}

func writeEdgeBasedEdge(w io.Writer, e datastructure.EdgeBasedEdge) error {
	var buf [16]byte
	binary.LittleEndian.PutUint32(buf[0:4], e.Source)
	binary.LittleEndian.PutUint32(buf[4:8], e.Target)
	flags := e.EdgeID()
	if e.Forward() {
		flags |= 1 << 30
	}
	if e.Backward() {
		flags |= 1 << 31
	}
	binary.LittleEndian.PutUint32(buf[8:12], flags)
	binary.LittleEndian.PutUint32(buf[12:16], uint32(e.Weight))
	_, err := w.Write(buf[:])
	return err
}

func readEdgeBasedEdge(r io.Reader) (datastructure.EdgeBasedEdge, error) {
	var buf [16]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return datastructure.EdgeBasedEdge{}, err
	}
	source := binary.LittleEndian.Uint32(buf[0:4])
	target := binary.LittleEndian.Uint32(buf[4:8])
	flags := binary.LittleEndian.Uint32(buf[8:12])
	weight := int32(binary.LittleEndian.Uint32(buf[12:16]))
	return datastructure.NewEdgeBasedEdge(
		source, target, flags&0x3FFFFFFF, weight,
		flags&(1<<30) != 0, flags&(1<<31) != 0,
	), nil
}
