package converter

import (
	"fmt"

	"git.fiblab.net/sim/ptaccess/converter/tagging"
	"git.fiblab.net/sim/ptaccess/zoning"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/osm"
)

// wayGeometry derives the zone geometry of a way: the polygon of a closed
// way, otherwise the midpoint of its two end nodes.
func (c *Converter) wayGeometry(w *osm.Way) (orb.Geometry, error) {
	if len(w.Nodes) < 2 {
		return nil, fmt.Errorf("%d nodes: %w", len(w.Nodes), ErrGeometryIncomplete)
	}
	first, last := w.Nodes[0].ID, w.Nodes[len(w.Nodes)-1].ID
	if first == last && len(w.Nodes) >= 4 {
		ring := make(orb.Ring, 0, len(w.Nodes))
		for _, wn := range w.Nodes {
			n, ok := c.nodes.Node(wn.ID)
			if !ok {
				return nil, fmt.Errorf("node %d: %w", wn.ID, ErrGeometryIncomplete)
			}
			ring = append(ring, n.Point())
		}
		return orb.Polygon{ring}, nil
	}
	a, okA := c.nodes.Node(first)
	b, okB := c.nodes.Node(last)
	if !okA || !okB {
		return nil, fmt.Errorf("end nodes %d,%d: %w", first, last, ErrGeometryIncomplete)
	}
	// 非闭合路的近似位置，不是真正的质心
	return geo.Midpoint(a.Point(), b.Point()), nil
}

// createZone registers the zone of source. A placeholder registered earlier
// under the same source is upgraded in place; any other existing zone is
// returned unchanged.
func (c *Converter) createZone(source osm.FeatureID, geometry orb.Geometry, tags osm.Tags, zoneType zoning.TransferZoneType) (*zoning.TransferZone, error) {
	if geometry == nil {
		return nil, ErrGeometryIncomplete
	}
	zone, created := c.zoning.AddZone(source, zoneType, geometry)
	if !created {
		if !zone.Placeholder() {
			return zone, nil
		}
		log.Debugf("placeholder %v upgraded", zone)
		zone.Geometry = geometry
		zone.Type = zoneType
	}
	if zone.Name == "" {
		zone.Name = tagging.Name(tags)
	}
	if zone.RefCode == "" {
		zone.RefCode = tagging.Ref(tags)
	}
	c.store.AddUnconnectedZone(source, zone.ID)
	zoneCount.WithLabelValues("created").Inc()
	return zone, nil
}

// createZoneWithModes creates the zone only if its modes are useful. Modes
// come from the tags, else from defaults. A nil zone with nil error means
// none of the modes is mapped. Without any mode the zone is kept without
// mode metadata, a stop position may still pick it up later.
func (c *Converter) createZoneWithModes(source osm.FeatureID, geometry orb.Geometry, tags osm.Tags, zoneType zoning.TransferZoneType, defaults []string) (*zoning.TransferZone, error) {
	osmModes, found := tagging.ExplicitModes(tags)
	if !found {
		osmModes = defaults
	}
	if len(osmModes) > 0 && !c.settings.Mapping.HasMapped(osmModes) {
		log.Debugf("%v: modes %v not mapped, no transfer zone", source, osmModes)
		c.stats.UnmappedZones++
		zoneCount.WithLabelValues("unmapped").Inc()
		return nil, nil
	}
	zone, err := c.createZone(source, geometry, tags, zoneType)
	if err != nil {
		return nil, err
	}
	if len(osmModes) == 0 {
		log.Debugf("%v: no mode tags, transfer zone kept without modes", source)
		return zone, nil
	}
	if len(zone.ServicedModes) == 0 {
		zone.ServicedModes = append([]string(nil), osmModes...)
	}
	return zone, nil
}

// createPlaceholderZone registers a zone without geometry for a source that
// was never materialized. An existing zone is reused.
func (c *Converter) createPlaceholderZone(source osm.FeatureID, zoneType zoning.TransferZoneType) *zoning.TransferZone {
	zone, created := c.zoning.AddZone(source, zoneType, nil)
	if created {
		c.stats.Placeholders++
		zoneCount.WithLabelValues("placeholder").Inc()
		log.Warnf("%v: %v, placeholder transfer zone %v", source, ErrMissingReference, zone.ID)
	}
	return zone
}
