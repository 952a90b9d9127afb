package converter

import (
	"git.fiblab.net/sim/ptaccess/converter/tagging"
	"git.fiblab.net/sim/ptaccess/modes"
	"git.fiblab.net/sim/ptaccess/zoning"
	"github.com/paulmach/orb"
	"github.com/samber/lo"
)

// Finalize resolves the stations and stop positions no relation consumed,
// drops the leftover outer ways and returns the counts of the run.
func (c *Converter) Finalize() Stats {
	for _, d := range c.store.Stations() {
		c.finalizeStation(d)
	}
	for _, d := range c.store.StopPositions() {
		c.finalizeStopPosition(d)
	}
	if n := c.store.NumOuterWays(); n > 0 {
		log.Debugf("%d multipolygon outer ways never claimed", n)
		c.store.ClearOuterWays()
	}

	c.stats.Zones = c.zoning.NumZones()
	c.stats.Groups = len(c.zoning.Groups())
	c.stats.Connectoids = len(c.zoning.Connectoids())
	c.stats.DanglingZones = len(c.store.UnconnectedZones())
	c.zoning.LogSummary()
	for _, layer := range c.network.Layers() {
		log.Debugf("layer %s: %d nodes, %d links, %d connectoids",
			layer.ID, layer.NumNodes(), layer.NumLinks(), len(c.zoning.ConnectoidsOfLayer(layer.ID)))
	}
	log.Infof("%d link splits, %d zones without connectoid, %d entity errors",
		c.stats.SplitLinks, c.stats.DanglingZones, c.stats.Errors)
	return c.stats
}

// DanglingZones returns the zones that still have no connectoid.
func (c *Converter) DanglingZones() []zoning.ZoneID {
	return c.store.UnconnectedZones()
}

// finalizeStation turns a station outside any stop area into a small
// station zone, connected when it sits on the network.
func (c *Converter) finalizeStation(d Deferred) {
	fid := d.FeatureID()
	c.store.RemoveStation(fid)
	tags := d.Tags()
	var geometry orb.Geometry
	if d.Node != nil {
		geometry = d.Node.Point()
	} else {
		g, err := c.wayGeometry(d.Way)
		if err != nil {
			_ = c.fail(fid, err)
			return
		}
		geometry = g
	}
	zone, err := c.createZoneWithModes(fid, geometry, tags, zoning.TransferZoneSmallStation, tagging.DefaultModes(tags))
	if err != nil || zone == nil {
		_ = c.fail(fid, err)
		return
	}
	zone.StationName = tagging.Name(tags)
	if p, ok := geometry.(orb.Point); ok {
		c.connectOnNetwork(zone, p, c.zoneModes(zone))
	}
}

// acceptsStop reports whether zone may be reached from a stop position
// serving stopModes. Zones without modes accept any stop.
func (c *Converter) acceptsStop(zone *zoning.TransferZone, stopModes []string, pseudo bool) bool {
	if zone.Placeholder() {
		return false
	}
	if len(zone.ServicedModes) == 0 {
		return true
	}
	return c.settings.Mapping.Compatible(zone.ServicedModes, stopModes, pseudo)
}

// stopCandidates returns the zones of the groups claiming the stop position
// whose modes match, strictly first and by category when that finds none.
func (c *Converter) stopCandidates(d Deferred, stopModes []string) []*zoning.TransferZone {
	zones := make([]*zoning.TransferZone, 0)
	for _, gid := range c.store.ClaimingGroups(d.FeatureID()) {
		group := c.zoning.GroupByID(gid)
		for _, id := range group.Zones() {
			zones = append(zones, c.zoning.Zone(id))
		}
	}
	zones = lo.Uniq(zones)
	matched := lo.Filter(zones, func(z *zoning.TransferZone, _ int) bool {
		return c.acceptsStop(z, stopModes, false)
	})
	if len(matched) == 0 && c.settings.AllowPseudoModeMatch {
		matched = lo.Filter(zones, func(z *zoning.TransferZone, _ int) bool {
			return c.acceptsStop(z, stopModes, true)
		})
		if len(matched) > 0 {
			log.Debugf("%v: matched %d zones by mode category", d.FeatureID(), len(matched))
		}
	}
	return matched
}

// finalizeStopPosition connects the zones a stop position serves to the
// network at its location. Without a matching zone the stop position
// becomes a pole zone of its own.
func (c *Converter) finalizeStopPosition(d Deferred) {
	fid := d.FeatureID()
	defer c.store.RemoveStopPosition(fid)
	tags := d.Tags()
	stopModes, found := tagging.ExplicitModes(tags)
	if !found {
		stopModes = tagging.DefaultModes(tags)
	}
	mapped := c.settings.Mapping.Map(stopModes)
	if len(stopModes) > 0 && mapped.Empty() {
		log.Debugf("%v: stop position modes %v not mapped", fid, stopModes)
		return
	}
	p := d.Node.Point()

	zones := c.stopCandidates(d, stopModes)
	if len(zones) == 0 {
		zone, err := c.createZoneWithModes(fid, p, tags, zoning.TransferZonePole, stopModes)
		if err != nil || zone == nil {
			_ = c.fail(fid, err)
			return
		}
		log.Debugf("%v: no matching zone, stop position salvaged as %v", fid, zone)
		zones = append(zones, zone)
	}

	connected := 0
	for _, zone := range zones {
		ms := c.connectionModes(mapped, zone)
		if ms.Empty() {
			log.Debugf("%v: no mode known to connect %v", fid, zone)
			continue
		}
		connected += c.connectOnNetwork(zone, p, ms)
	}
	if connected == 0 {
		log.Debugf("%v: stop position not on any compatible layer", fid)
	}
}

// connectionModes picks the modes a stop gives zone: the stop's modes the
// zone serves, else those of the zone's categories. A zone without modes
// takes all of the stop's, a stop without modes gives the zone's.
func (c *Converter) connectionModes(stop modes.Set, zone *zoning.TransferZone) modes.Set {
	served := c.zoneModes(zone)
	switch {
	case served.Empty():
		return stop
	case stop.Empty():
		return served
	}
	if common := stop.Intersect(served); !common.Empty() {
		return common
	}
	// 按类别匹配的站台
	categories := served.Categories()
	return modes.NewSet(lo.Filter(stop.Slice(), func(m modes.Mode, _ int) bool {
		return lo.Contains(categories, m.Category())
	})...)
}
