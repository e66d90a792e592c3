// Package osmreader turns a .osm.pbf file into a finite sequence of
// entity buffers, preserving input order within and across buffers. The
// scan itself is deliberately single-threaded; fan-out over a buffer's
// entities is the caller's job.
package osmreader

import (
	"context"
	"io"
	"os"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/wirahadi/graphprep/pkg/errs"
)

// EntityKind discriminates the heterogeneous objects a buffer carries.
type EntityKind uint8

const (
	EntityNode EntityKind = iota
	EntityWay
	EntityRelation
	EntityOther
)

// Entity is one OSM primitive, tagged with its kind so a consumer can
// switch without a second type assertion.
type Entity struct {
	Kind     EntityKind
	Node     *osm.Node
	Way      *osm.Way
	Relation *osm.Relation
}

// Buffer is one batch of entities, in input order.
type Buffer struct {
	Entities []Entity
}

// Reader scans a .osm.pbf file and yields Buffers of BufferSize entities
// at a time, the last buffer possibly shorter.
type Reader struct {
	path       string
	bufferSize int
}

const defaultBufferSize = 8192

func New(path string) *Reader {
	return &Reader{path: path, bufferSize: defaultBufferSize}
}

func (r *Reader) WithBufferSize(n int) *Reader {
	if n > 0 {
		r.bufferSize = n
	}
	return r
}

// Each opens the file and invokes fn once per Buffer, in order, stopping
// at the first error fn returns or at end of input. The scan itself runs
// on the calling goroutine; fn may fan work out internally but must not
// assume it runs concurrently with the next call to fn.
func (r *Reader) Each(ctx context.Context, fn func(Buffer) error) error {
	f, err := os.Open(r.path)
	if err != nil {
		return errs.Configuration(err, "opening osm input %q", r.path)
	}
	defer f.Close()

	scanner := osmpbf.New(ctx, f, 0)
	defer scanner.Close()

	buf := Buffer{Entities: make([]Entity, 0, r.bufferSize)}
	for scanner.Scan() {
		obj := scanner.Object()
		var e Entity
		switch t := obj.ObjectID().Type(); t {
		case osm.TypeNode:
			e = Entity{Kind: EntityNode, Node: obj.(*osm.Node)}
		case osm.TypeWay:
			e = Entity{Kind: EntityWay, Way: obj.(*osm.Way)}
		case osm.TypeRelation:
			e = Entity{Kind: EntityRelation, Relation: obj.(*osm.Relation)}
		default:
			e = Entity{Kind: EntityOther}
		}
		buf.Entities = append(buf.Entities, e)

		if len(buf.Entities) >= r.bufferSize {
			if err := fn(buf); err != nil {
				return err
			}
			buf = Buffer{Entities: make([]Entity, 0, r.bufferSize)}
		}
	}

	if err := scanner.Err(); err != nil && err != io.EOF {
		return errs.DataIntegrity(err, "scanning osm input %q", r.path)
	}

	if len(buf.Entities) > 0 {
		if err := fn(buf); err != nil {
			return err
		}
	}

	return nil
}
