package serialize

import (
	"bufio"
	"io"
	"os"

	"github.com/wirahadi/graphprep/pkg/datastructure"
	"github.com/wirahadi/graphprep/pkg/errs"
)

// WriteTimestamp writes the `.timestamp` file: a raw UTF-8 string, or
// "n/a" when none is known.
func WriteTimestamp(path, timestamp string) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	if timestamp == "" {
		timestamp = "n/a"
	}
	return writeAtomic(path, func(w *bufio.Writer) error {
		_, err := w.WriteString(timestamp)
		return err
	})
}

// WriteOSRM writes the `.osrm` file: nodes, barrier ids, traffic-light
// ids, and node-based edges. It carries no FingerPrint; of the files
// written here only `.restrictions` and `.edges` do.
func WriteOSRM(path string, nodes []datastructure.QueryNode, barriers, signals []datastructure.NodeID, edges []datastructure.NodeBasedEdge) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	return writeAtomic(path, func(w *bufio.Writer) error {
		if err := writeU32(w, uint32(len(nodes))); err != nil {
			return err
		}
		for _, n := range nodes {
			if err := writeQueryNode(w, n); err != nil {
				return err
			}
		}
		if err := writeU32(w, uint32(len(barriers))); err != nil {
			return err
		}
		for _, id := range barriers {
			if err := writeNodeID(w, id); err != nil {
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
			if err := writeNodeBasedEdge(w, e); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReadOSRM reads back a `.osrm` file written by WriteOSRM.
func ReadOSRM(path string) ([]datastructure.QueryNode, []datastructure.NodeID, []datastructure.NodeID, []datastructure.NodeBasedEdge, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, nil, errs.Configuration(err, "opening %q", path)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	nodes, err := readCounted(r, readQueryNode)
	if err != nil {
		return nil, nil, nil, nil, errs.DataIntegrity(err, "reading %q nodes", path)
	}
	barriers, err := readCounted(r, readNodeID)
	if err != nil {
		return nil, nil, nil, nil, errs.DataIntegrity(err, "reading %q barriers", path)
	}
	signals, err := readCounted(r, readNodeID)
	if err != nil {
		return nil, nil, nil, nil, errs.DataIntegrity(err, "reading %q signals", path)
	}
	edges, err := readCounted(r, readNodeBasedEdge)
	if err != nil {
		return nil, nil, nil, nil, errs.DataIntegrity(err, "reading %q edges", path)
	}
	return nodes, barriers, signals, edges, nil
}

func readCounted[T any](r io.Reader, one func(io.Reader) (T, error)) ([]T, error) {
	n, err := readU32(r)
	if err != nil {
		return nil, err
	}
	out := make([]T, n)
	for i := range out {
		v, err := one(r)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// WriteRestrictions writes the `.restrictions` file:
// FingerPrint, count, then packed TurnRestrictions.
func WriteRestrictions(path string, restrictions []datastructure.TurnRestriction) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	return writeAtomic(path, func(w *bufio.Writer) error {
		if err := writeFingerPrint(w); err != nil {
			return err
		}
		if err := writeU32(w, uint32(len(restrictions))); err != nil {
			return err
		}
		for _, r := range restrictions {
			if err := writeTurnRestriction(w, r); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReadRestrictions reads back a `.restrictions` file, validating its
// fingerprint.
func ReadRestrictions(path string) ([]datastructure.TurnRestriction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Configuration(err, "opening %q", path)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	if err := readFingerPrint(r); err != nil {
		return nil, err
	}
	n, err := readU32(r)
	if err != nil {
		return nil, errs.DataIntegrity(err, "reading %q count", path)
	}
	out := make([]datastructure.TurnRestriction, n)
	for i := range out {
		v, err := readTurnRestriction(r)
		if err != nil {
			return nil, errs.DataIntegrity(err, "reading %q restriction %d", path, i)
		}
		out[i] = v
	}
	return out, nil
}

// WriteNames writes the `.names` file: prefix-sum offsets then the raw
// byte pool, matching pkg/nametable.Table's own layout.
func WriteNames(path string, charData []byte, offsets []uint32) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	return writeAtomic(path, func(w *bufio.Writer) error {
		if err := writeU32(w, uint32(len(offsets))); err != nil {
			return err
		}
		for _, o := range offsets {
			if err := writeU32(w, o); err != nil {
				return err
			}
		}
		if err := writeU32(w, uint32(len(charData))); err != nil {
			return err
		}
		_, err := w.Write(charData)
		return err
	})
}

// WriteEdgeExpandedEdges writes the `.edges` file:
// FingerPrint, n_edges, max_edge_id, then packed EdgeBasedEdges.
func WriteEdgeExpandedEdges(path string, edges []datastructure.EdgeBasedEdge, maxEdgeID uint64) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	return writeAtomic(path, func(w *bufio.Writer) error {
		if err := writeFingerPrint(w); err != nil {
			return err
		}
		if err := writeU64(w, uint64(len(edges))); err != nil {
			return err
		}
		if err := writeU64(w, maxEdgeID); err != nil {
			return err
		}
		for _, e := range edges {
			if err := writeEdgeBasedEdge(w, e); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReadEdgeExpandedEdges reads back a `.edges` file.
func ReadEdgeExpandedEdges(path string) ([]datastructure.EdgeBasedEdge, uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, errs.Configuration(err, "opening %q", path)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	if err := readFingerPrint(r); err != nil {
		return nil, 0, err
	}
	n, err := readU64(r)
	if err != nil {
		return nil, 0, errs.DataIntegrity(err, "reading %q count", path)
	}
	maxEdgeID, err := readU64(r)
	if err != nil {
		return nil, 0, errs.DataIntegrity(err, "reading %q max edge id", path)
	}
	out := make([]datastructure.EdgeBasedEdge, n)
	for i := range out {
		v, err := readEdgeBasedEdge(r)
		if err != nil {
			return nil, 0, errs.DataIntegrity(err, "reading %q edge %d", path, i)
		}
		out[i] = v
	}
	return out, maxEdgeID, nil
}

// WriteGeometry writes the `.geometry` file: per compressed edge, an
// offset into a flat sequence of OSM node ids. toOSM maps a
// dense NodeID back to its original OSM id.
func WriteGeometry(path string, offsets []uint32, nodes []datastructure.NodeID, toOSM func(datastructure.NodeID) datastructure.OSMNodeID) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	return writeAtomic(path, func(w *bufio.Writer) error {
		if err := writeU32(w, uint32(len(offsets))); err != nil {
			return err
		}
		for _, o := range offsets {
			if err := writeU32(w, o); err != nil {
				return err
			}
		}
		if err := writeU32(w, uint32(len(nodes))); err != nil {
			return err
		}
		for _, n := range nodes {
			if err := writeU64(w, uint64(toOSM(n))); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteNodesFile writes the `.nodes` file: edge-expanded id -> original
// QueryNode.
func WriteNodesFile(path string, byEdgeBasedID []datastructure.QueryNode) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	return writeAtomic(path, func(w *bufio.Writer) error {
		if err := writeU32(w, uint32(len(byEdgeBasedID))); err != nil {
			return err
		}
		for _, n := range byEdgeBasedID {
			if err := writeQueryNode(w, n); err != nil {
				return err
			}
		}
		return nil
	})
}
