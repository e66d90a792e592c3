// Package nametable implements the append-only street-name pool: names
// are interned once, referenced everywhere else by a dense id, with a
// prefix-sum byte pool backing the on-disk offsets-plus-characters
// layout.
package nametable

// Table interns way names into a dense id space. Id 0 is always the
// empty string, unconditionally, regardless of whether it was ever
// explicitly interned.
type Table struct {
	ids     map[string]uint32
	names   []string
	offsets []uint32 // offsets[i] = byte offset of names[i] in the pool
	pool    []byte
}

func New() *Table {
	t := &Table{
		ids:     make(map[string]uint32),
		names:   make([]string, 0, 1),
		offsets: make([]uint32, 0, 1),
		pool:    make([]byte, 0),
	}
	t.intern("")
	return t
}

// Intern returns the dense id for name, assigning a new one and
// appending to the pool on first sight.
func (t *Table) Intern(name string) uint32 {
	if id, ok := t.ids[name]; ok {
		return id
	}
	return t.intern(name)
}

func (t *Table) intern(name string) uint32 {
	id := uint32(len(t.names))
	t.ids[name] = id
	t.names = append(t.names, name)
	t.offsets = append(t.offsets, uint32(len(t.pool)))
	t.pool = append(t.pool, name...)
	return id
}

// Lookup returns the name for id, or false if id was never assigned.
func (t *Table) Lookup(id uint32) (string, bool) {
	if int(id) >= len(t.names) {
		return "", false
	}
	return t.names[id], true
}

// Len is the number of distinct interned names, including the
// unconditional empty string at id 0.
func (t *Table) Len() int {
	return len(t.names)
}

// CharData and Offsets return the serialized layout: a single byte pool
// plus a prefix-sum offset table, one entry per name, with an implicit
// final offset of len(CharData) delimiting the last name.
func (t *Table) CharData() []byte {
	return t.pool
}

func (t *Table) Offsets() []uint32 {
	out := make([]uint32, len(t.offsets)+1)
	copy(out, t.offsets)
	out[len(t.offsets)] = uint32(len(t.pool))
	return out
}
