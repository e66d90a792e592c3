package extract

import (
	"bufio"
	"container/heap"
	"encoding/gob"
	"io"
	"os"
	"sort"

	"github.com/wirahadi/graphprep/pkg/errs"
)

// externalSort sorts nodes by OSMID and edges by SourceOSM the same way
// sortSequences's in-memory path does, but via fixed-size run spills to
// os.TempDir() and a k-way merge, for when either sequence exceeds
// threshold elements. Both slices are sorted back
// into place.
func externalSort(nodes []RawNode, edges []RawEdge, threshold int) error {
	sortedNodes, err := externalSortRuns(nodes, threshold,
		func(a, b RawNode) bool { return a.OSMID < b.OSMID })
	if err != nil {
		return err
	}
	copy(nodes, sortedNodes)

	sortedEdges, err := externalSortRuns(edges, threshold,
		func(a, b RawEdge) bool { return a.SourceOSM < b.SourceOSM })
	if err != nil {
		return err
	}
	copy(edges, sortedEdges)

	return nil
}

// externalSortRuns splits items into threshold-sized runs, sorts each
// run in memory, spills it to a temp file, and k-way merges the runs
// back together. This only actually touches disk when len(items) >
// threshold; smaller inputs are sorted and returned directly, since a
// single run needs no spill.
func externalSortRuns[T any](items []T, threshold int, less func(a, b T) bool) ([]T, error) {
	if len(items) <= threshold {
		out := append([]T(nil), items...)
		sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
		return out, nil
	}

	var runFiles []string
	defer func() {
		for _, f := range runFiles {
			os.Remove(f)
		}
	}()

	for start := 0; start < len(items); start += threshold {
		end := start + threshold
		if end > len(items) {
			end = len(items)
		}
		run := append([]T(nil), items[start:end]...)
		sort.Slice(run, func(i, j int) bool { return less(run[i], run[j]) })

		path, err := spillRun(run)
		if err != nil {
			return nil, err
		}
		runFiles = append(runFiles, path)
	}

	return mergeRuns(runFiles, less)
}

func spillRun[T any](run []T) (string, error) {
	f, err := os.CreateTemp("", "graphprep-sortrun-*")
	if err != nil {
		return "", errs.DataIntegrity(err, "creating external sort run file")
	}
	defer f.Close()

	// one gob value per element, so the merge can stream the run back
	// without holding it whole.
	w := bufio.NewWriter(f)
	enc := gob.NewEncoder(w)
	for i := range run {
		if err := enc.Encode(&run[i]); err != nil {
			return "", errs.DataIntegrity(err, "writing external sort run %q", f.Name())
		}
	}
	if err := w.Flush(); err != nil {
		return "", errs.DataIntegrity(err, "flushing external sort run %q", f.Name())
	}
	return f.Name(), nil
}

// runCursor holds one spilled run's decoder and the single element
// currently buffered from it.
type runCursor[T any] struct {
	f   *os.File
	dec *gob.Decoder
	cur T
}

// advance decodes the cursor's next element; ok is false at end of run.
func (c *runCursor[T]) advance() (ok bool, err error) {
	var v T
	if err := c.dec.Decode(&v); err != nil {
		if err == io.EOF {
			return false, nil
		}
		return false, errs.DataIntegrity(err, "reading external sort run %q", c.f.Name())
	}
	c.cur = v
	return true, nil
}

// runHeap is a min-heap of run cursors ordered by their buffered
// element, for container/heap.
type runHeap[T any] struct {
	cursors []*runCursor[T]
	less    func(a, b T) bool
}

func (h *runHeap[T]) Len() int           { return len(h.cursors) }
func (h *runHeap[T]) Less(i, j int) bool { return h.less(h.cursors[i].cur, h.cursors[j].cur) }
func (h *runHeap[T]) Swap(i, j int)      { h.cursors[i], h.cursors[j] = h.cursors[j], h.cursors[i] }
func (h *runHeap[T]) Push(x any)         { h.cursors = append(h.cursors, x.(*runCursor[T])) }
func (h *runHeap[T]) Pop() any {
	last := h.cursors[len(h.cursors)-1]
	h.cursors = h.cursors[:len(h.cursors)-1]
	return last
}

// mergeRuns performs a k-way merge across the spilled runs, streaming
// one buffered element per run through a min-heap of decoders so peak
// memory stays proportional to the run count plus the merged output,
// never to all runs decoded at once.
func mergeRuns[T any](runFiles []string, less func(a, b T) bool) ([]T, error) {
	h := &runHeap[T]{less: less}
	defer func() {
		for _, c := range h.cursors {
			c.f.Close()
		}
	}()

	for _, path := range runFiles {
		f, err := os.Open(path)
		if err != nil {
			return nil, errs.DataIntegrity(err, "reopening external sort run %q", path)
		}
		c := &runCursor[T]{f: f, dec: gob.NewDecoder(bufio.NewReader(f))}
		ok, err := c.advance()
		if err != nil {
			f.Close()
			return nil, err
		}
		if !ok {
			f.Close()
			continue
		}
		h.cursors = append(h.cursors, c)
	}
	heap.Init(h)

	var out []T
	for h.Len() > 0 {
		c := h.cursors[0]
		out = append(out, c.cur)
		ok, err := c.advance()
		if err != nil {
			return nil, err
		}
		if ok {
			heap.Fix(h, 0)
		} else {
			heap.Pop(h)
			c.f.Close()
		}
	}

	return out, nil
}
