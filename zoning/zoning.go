package zoning

import (
	"git.fiblab.net/sim/ptaccess/modes"
	"git.fiblab.net/sim/ptaccess/network"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "zoning")

// Zoning owns all transfer zones, groups and connectoids of one conversion.
// Zones live in an arena addressed by ZoneID; the source index guarantees at
// most one zone per OSM feature, placeholders included.
type Zoning struct {
	zones        []*TransferZone
	zoneBySource map[osm.FeatureID]ZoneID

	groups        []*TransferZoneGroup
	groupBySource map[osm.RelationID]GroupID

	connectoids []*DirectedConnectoid
	// layer -> location -> connectoids
	connectoidsByLocation map[string]map[orb.Point][]*DirectedConnectoid
}

func New() *Zoning {
	return &Zoning{
		zones:                 make([]*TransferZone, 0),
		zoneBySource:          make(map[osm.FeatureID]ZoneID),
		groups:                make([]*TransferZoneGroup, 0),
		groupBySource:         make(map[osm.RelationID]GroupID),
		connectoids:           make([]*DirectedConnectoid, 0),
		connectoidsByLocation: make(map[string]map[orb.Point][]*DirectedConnectoid),
	}
}

// AddZone registers a zone for source. If one is registered already it is
// returned unchanged with created=false.
func (z *Zoning) AddZone(source osm.FeatureID, zoneType TransferZoneType, geometry orb.Geometry) (zone *TransferZone, created bool) {
	if id, ok := z.zoneBySource[source]; ok {
		return z.zones[id], false
	}
	zone = &TransferZone{
		ID:       ZoneID(len(z.zones)),
		Source:   source,
		Type:     zoneType,
		Geometry: geometry,
	}
	z.zones = append(z.zones, zone)
	z.zoneBySource[source] = zone.ID
	return zone, true
}

func (z *Zoning) Zone(id ZoneID) *TransferZone {
	if id < 0 || int(id) >= len(z.zones) {
		return nil
	}
	return z.zones[id]
}

// ZoneBySource returns the zone registered for source or nil.
func (z *Zoning) ZoneBySource(source osm.FeatureID) *TransferZone {
	if id, ok := z.zoneBySource[source]; ok {
		return z.zones[id]
	}
	return nil
}

func (z *Zoning) Zones() []*TransferZone {
	return append([]*TransferZone(nil), z.zones...)
}

func (z *Zoning) NumZones() int {
	return len(z.zones)
}

// Group returns the group of a stop area relation, creating it when absent.
func (z *Zoning) Group(source osm.RelationID) (group *TransferZoneGroup, created bool) {
	if id, ok := z.groupBySource[source]; ok {
		return z.groups[id], false
	}
	group = &TransferZoneGroup{ID: GroupID(len(z.groups)), Source: source, zones: make([]ZoneID, 0)}
	z.groups = append(z.groups, group)
	z.groupBySource[source] = group.ID
	return group, true
}

func (z *Zoning) GroupByID(id GroupID) *TransferZoneGroup {
	if id < 0 || int(id) >= len(z.groups) {
		return nil
	}
	return z.groups[id]
}

// GroupBySource returns the group of a relation or nil.
func (z *Zoning) GroupBySource(source osm.RelationID) *TransferZoneGroup {
	if id, ok := z.groupBySource[source]; ok {
		return z.groups[id]
	}
	return nil
}

func (z *Zoning) Groups() []*TransferZoneGroup {
	return append([]*TransferZoneGroup(nil), z.groups...)
}

// GroupsOfZone returns the groups id is a member of.
func (z *Zoning) GroupsOfZone(id ZoneID) []*TransferZoneGroup {
	return lo.Filter(z.groups, func(g *TransferZoneGroup, _ int) bool {
		return g.HasZone(id)
	})
}

// AddConnectoid creates an empty connectoid for segment in layer and indexes
// it at the segment's downstream location.
func (z *Zoning) AddConnectoid(layer string, segment *network.LinkSegment) *DirectedConnectoid {
	c := &DirectedConnectoid{
		ID:            len(z.connectoids),
		Layer:         layer,
		Location:      segment.Downstream.Point,
		AccessSegment: segment,
		zones:         make([]ZoneID, 0),
		allowed:       make(map[ZoneID]modes.Set),
	}
	z.connectoids = append(z.connectoids, c)
	byLocation, ok := z.connectoidsByLocation[layer]
	if !ok {
		byLocation = make(map[orb.Point][]*DirectedConnectoid)
		z.connectoidsByLocation[layer] = byLocation
	}
	byLocation[c.Location] = append(byLocation[c.Location], c)
	return c
}

// ConnectoidsAt returns the connectoids of layer indexed at p.
func (z *Zoning) ConnectoidsAt(layer string, p orb.Point) []*DirectedConnectoid {
	return append([]*DirectedConnectoid(nil), z.connectoidsByLocation[layer][p]...)
}

// ConnectoidFor returns the connectoid of layer at p served by segment, or nil.
func (z *Zoning) ConnectoidFor(layer string, p orb.Point, segment *network.LinkSegment) *DirectedConnectoid {
	c, _ := lo.Find(z.connectoidsByLocation[layer][p], func(c *DirectedConnectoid) bool {
		return c.AccessSegment == segment
	})
	return c
}

// ConnectoidsOfLayer returns the connectoids of layer ordered by id.
func (z *Zoning) ConnectoidsOfLayer(layer string) []*DirectedConnectoid {
	return lo.Filter(z.connectoids, func(c *DirectedConnectoid, _ int) bool {
		return c.Layer == layer
	})
}

// ConnectoidsOfLinks returns the connectoids of layer whose access segment
// belongs to one of links. Such connectoids are indexed at a link end point.
func (z *Zoning) ConnectoidsOfLinks(layer string, links []*network.Link) []*DirectedConnectoid {
	found := make([]*DirectedConnectoid, 0)
	for _, link := range links {
		for _, p := range []orb.Point{link.NodeA.Point, link.NodeB.Point} {
			for _, c := range z.connectoidsByLocation[layer][p] {
				if c.AccessSegment.Link == link {
					found = append(found, c)
				}
			}
		}
	}
	return lo.Uniq(found)
}

// ConnectoidsOfZone returns the connectoids giving access to id.
func (z *Zoning) ConnectoidsOfZone(id ZoneID) []*DirectedConnectoid {
	return lo.Filter(z.connectoids, func(c *DirectedConnectoid, _ int) bool {
		return c.HasAccessZone(id)
	})
}

func (z *Zoning) Connectoids() []*DirectedConnectoid {
	return append([]*DirectedConnectoid(nil), z.connectoids...)
}

// LogSummary writes the size of the zoning at info level.
func (z *Zoning) LogSummary() {
	placeholders := lo.CountBy(z.zones, func(zone *TransferZone) bool { return zone.Placeholder() })
	log.Infof("%d transfer zones (%d placeholders), %d groups, %d connectoids",
		len(z.zones), placeholders, len(z.groups), len(z.connectoids))
}
