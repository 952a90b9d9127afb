package zoning

import (
	"github.com/paulmach/osm"
	"github.com/samber/lo"
)

type GroupID int

// TransferZoneGroup is the set of zones of one stop area. Membership is a
// reference, zones are owned by the arena.
type TransferZoneGroup struct {
	ID     GroupID
	Source osm.RelationID
	Name   string

	zones []ZoneID
}

// AddZone adds id to the group, returning false when it was already a member.
func (g *TransferZoneGroup) AddZone(id ZoneID) bool {
	if g.HasZone(id) {
		return false
	}
	g.zones = append(g.zones, id)
	return true
}

func (g *TransferZoneGroup) HasZone(id ZoneID) bool {
	return lo.Contains(g.zones, id)
}

func (g *TransferZoneGroup) Zones() []ZoneID {
	return append([]ZoneID(nil), g.zones...)
}

// SetNameIfEmpty sets the name only while the group has none; the first
// non-empty name wins.
func (g *TransferZoneGroup) SetNameIfEmpty(name string) bool {
	if g.Name != "" || name == "" {
		return false
	}
	g.Name = name
	return true
}
