// Package restriction recognizes turn restrictions from OSM relations.
// Parse is a pure function of one relation with no state at all, safe
// to call from any worker goroutine.
package restriction

import (
	"strings"

	"github.com/paulmach/osm"
	"github.com/wirahadi/graphprep/pkg/datastructure"
)

// Parse recognizes relation as a turn restriction, or returns ok=false
// when it is not a restriction relation, or is one this pipeline cannot
// represent (anything other than exactly one from-way, one to-way, and
// one via-node member).
func Parse(relation *osm.Relation) (datastructure.InputRestriction, bool) {
	if relation.Tags.Find("type") != "restriction" {
		return datastructure.InputRestriction{}, false
	}

	tagVal := relation.Tags.Find("restriction")
	kind := classify(tagVal)
	if kind == datastructure.RestrictionUnknown {
		return datastructure.InputRestriction{}, false
	}

	var (
		fromWay osm.WayID
		toWay   osm.WayID
		viaNode osm.NodeID
		fromSet, toSet, viaSet bool
	)

	for _, member := range relation.Members {
		switch member.Role {
		case "from":
			if member.Type != osm.TypeWay || fromSet {
				return datastructure.InputRestriction{}, false
			}
			fromWay = osm.WayID(member.Ref)
			fromSet = true
		case "to":
			if member.Type != osm.TypeWay || toSet {
				return datastructure.InputRestriction{}, false
			}
			toWay = osm.WayID(member.Ref)
			toSet = true
		case "via":
			if member.Type != osm.TypeNode || viaSet {
				return datastructure.InputRestriction{}, false
			}
			viaNode = osm.NodeID(member.Ref)
			viaSet = true
		}
	}

	if !fromSet || !toSet || !viaSet {
		return datastructure.InputRestriction{}, false
	}

	return datastructure.InputRestriction{
		FromWay: datastructure.OSMWayID(fromWay),
		ViaNode: datastructure.OSMNodeID(viaNode),
		ToWay:   datastructure.OSMWayID(toWay),
		Kind:    kind,
	}, true
}

// classify reduces the several OSM restriction tag values down to
// only/no, collapsing the specific turn direction away: once a
// restriction is reduced to (from, via, to) the direction is implied.
func classify(tagVal string) datastructure.RestrictionKind {
	switch {
	case strings.HasPrefix(tagVal, "only_"):
		return datastructure.RestrictionOnly
	case strings.HasPrefix(tagVal, "no_"):
		return datastructure.RestrictionNo
	default:
		return datastructure.RestrictionUnknown
	}
}
