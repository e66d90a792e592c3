package extract

import (
	"context"
	"runtime"

	"go.uber.org/zap"

	"github.com/wirahadi/graphprep/pkg/concurrent"
	"github.com/wirahadi/graphprep/pkg/datastructure"
	"github.com/wirahadi/graphprep/pkg/nametable"
	"github.com/wirahadi/graphprep/pkg/osmreader"
	"github.com/wirahadi/graphprep/pkg/profile"
	"github.com/wirahadi/graphprep/pkg/restriction"
)

// entityJob pairs one buffer entity with its position so the
// single-threaded post-pass can restore input order after the parallel
// map.
type entityJob struct {
	idx    int
	entity osmreader.Entity
}

type entityResult struct {
	idx int

	nodeOK  bool
	nodeOSM datastructure.OSMNodeID
	nodeLat float64
	nodeLon float64
	node    datastructure.ExtractionNode

	wayOK      bool
	wayOSM     datastructure.OSMWayID
	wayNodeIDs []datastructure.OSMNodeID
	way        datastructure.ExtractionWay

	restrictionOK bool
	restriction   datastructure.InputRestriction
}

// Run drives the whole parsing half of extraction over one input file:
// it scans buffers with reader (single-threaded), fans each buffer out
// across a worker pool that owns one profile.Runtime per slot,
// classifies relations into restrictions, and feeds every classified
// result into container and names, in original order, from a single
// post-pass goroutine.
//
// adapter.Setup must already have been called; Run does not call it, so
// a caller driving multiple inputs through one Adapter only pays the
// setup cost once.
func Run(ctx context.Context, reader *osmreader.Reader, adapter *profile.Adapter, names *nametable.Table, container *Container, numWorkers int, log *zap.Logger) error {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if hw := runtime.NumCPU(); numWorkers > hw {
		numWorkers = hw
	}

	buffersSeen := 0
	err := reader.Each(ctx, func(buf osmreader.Buffer) error {
		buffersSeen++
		if err := processBuffer(buf, adapter, names, container, numWorkers); err != nil {
			return err
		}
		if log != nil && buffersSeen%64 == 0 {
			log.Sugar().Infow("extraction progress", "buffers", buffersSeen)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if log != nil {
		log.Sugar().Infow("extraction scan complete", "buffers", buffersSeen,
			"dropped_edges_at_accumulation", container.DroppedEdgeCount())
	}
	return nil
}

// processBuffer fans one buffer's entities across numWorkers, each
// classifying with its own thread-local profile.Runtime, then applies
// every result to container/names in original index order. The queue
// and result channels are sized to the whole buffer, so enqueueing
// every job before starting the workers never blocks a sender.
func processBuffer(buf osmreader.Buffer, adapter *profile.Adapter, names *nametable.Table, container *Container, numWorkers int) error {
	if len(buf.Entities) == 0 {
		return nil
	}

	pool := concurrent.NewWorkerPool[entityJob, entityResult](numWorkers, len(buf.Entities))
	for i, e := range buf.Entities {
		pool.AddJob(entityJob{idx: i, entity: e})
	}
	pool.Close()
	pool.StartIndexed(func(workerID int, job entityJob) entityResult {
		return classify(workerID, job, adapter)
	})
	pool.Wait()

	results := make([]entityResult, len(buf.Entities))
	for r := range pool.CollectResults() {
		results[r.idx] = r
	}

	for _, r := range results {
		applyResult(r, names, container)
	}
	return nil
}

// classify evaluates one entity on the runtime owned by workerID's pool
// slot. The id comes from the pool itself so two goroutines can never
// share a runtime, which the profile contract forbids.
func classify(workerID int, job entityJob, adapter *profile.Adapter) entityResult {
	res := entityResult{idx: job.idx}

	rt, err := adapter.RuntimeFor(workerID)
	if err != nil {
		return res
	}

	switch job.entity.Kind {
	case osmreader.EntityNode:
		n := job.entity.Node
		out, err := rt.NodeFunction(profile.RawNode{
			ID:   datastructure.OSMNodeID(n.ID),
			Lat:  n.Lat,
			Lon:  n.Lon,
			Tags: n.Tags,
		})
		if err != nil {
			return res
		}
		res.nodeOK = true
		res.nodeOSM = datastructure.OSMNodeID(n.ID)
		res.nodeLat = n.Lat
		res.nodeLon = n.Lon
		res.node = out

	case osmreader.EntityWay:
		w := job.entity.Way
		out, err := rt.WayFunction(profile.RawWay{
			ID:    datastructure.OSMWayID(w.ID),
			Nodes: w.Nodes,
			Tags:  w.Tags,
		})
		if err != nil || !out.IsRoutable() {
			return res
		}
		nodeIDs := make([]datastructure.OSMNodeID, len(w.Nodes))
		for i, wn := range w.Nodes {
			nodeIDs[i] = datastructure.OSMNodeID(wn.ID)
		}
		res.wayOK = true
		res.wayOSM = datastructure.OSMWayID(w.ID)
		res.wayNodeIDs = nodeIDs
		res.way = out

	case osmreader.EntityRelation:
		if r, ok := restriction.Parse(job.entity.Relation); ok {
			res.restrictionOK = true
			res.restriction = r
		}
	}

	return res
}

// applyResult feeds one classified entity into container/names. It must
// only ever run on the single post-pass goroutine: names.Intern and
// Container's accumulation are not meant to be called concurrently from
// many classify() calls, only serially here.
func applyResult(r entityResult, names *nametable.Table, container *Container) {
	switch {
	case r.nodeOK:
		container.ProcessNode(r.nodeOSM, r.nodeLat, r.nodeLon, r.node)
	case r.wayOK:
		nameID := names.Intern(r.way.Name)
		segmentDistances := make([]float64, len(r.wayNodeIDs)-1)
		container.ProcessWay(r.wayOSM, r.wayNodeIDs, segmentDistances, nameID, r.way)
	case r.restrictionOK:
		container.ProcessRestriction(r.restriction, true)
	}
}
