package datastructure

// RestrictionKind distinguishes a mandatory turn (only_*) from a forbidden
// one (no_*). The several OSM restriction values (no_left_turn,
// no_straight_on, ...) collapse down to this binary kind plus the three
// endpoints; the specific turn direction is not needed once the
// restriction has been reduced to (from, via, to).
type RestrictionKind uint8

const (
	RestrictionUnknown RestrictionKind = iota
	RestrictionOnly
	RestrictionNo
)

// InputRestriction is a turn restriction as recognized by the restriction
// parser, still expressed in raw OSM identifiers.
type InputRestriction struct {
	FromWay OSMWayID
	ViaNode OSMNodeID
	ToWay   OSMWayID
	Kind    RestrictionKind
}

// TurnRestriction is an InputRestriction after resolution: the via node
// and the two ways have all been reduced to the dense internal NodeIDs of
// the predecessor/via/successor movement it forbids or mandates.
type TurnRestriction struct {
	From NodeID
	Via  NodeID
	To   NodeID
	Kind RestrictionKind
}

func (r TurnRestriction) IsOnly() bool { return r.Kind == RestrictionOnly }
func (r TurnRestriction) IsNo() bool   { return r.Kind == RestrictionNo }
