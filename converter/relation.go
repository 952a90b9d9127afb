package converter

import (
	"fmt"

	"git.fiblab.net/sim/ptaccess/converter/tagging"
	"git.fiblab.net/sim/ptaccess/zoning"
	"github.com/paulmach/osm"
	"github.com/samber/lo"
)

func memberFeature(m osm.Member) osm.FeatureID {
	switch m.Type {
	case osm.TypeNode:
		return osm.NodeID(m.Ref).FeatureID()
	case osm.TypeWay:
		return osm.WayID(m.Ref).FeatureID()
	default:
		return osm.RelationID(m.Ref).FeatureID()
	}
}

// resolveStopArea fills the group of a stop area relation from its members
// in order. Missing platforms get a placeholder zone.
func (c *Converter) resolveStopArea(r *osm.Relation) error {
	group, created := c.zoning.Group(r.ID)
	if created {
		c.stats.Groups++
	}
	group.SetNameIfEmpty(tagging.Name(r.Tags))

	stationName := ""
	for _, m := range r.Members {
		fid := memberFeature(m)
		switch {
		case tagging.IsPlatformRole(m.Role):
			zone := c.zoning.ZoneBySource(fid)
			if zone == nil {
				zone = c.createPlaceholderZone(fid, zoning.TransferZonePlatform)
			}
			group.AddZone(zone.ID)
		case tagging.IsStopRole(m.Role):
			c.claimStop(group, fid)
		case m.Role == "":
			if name := c.resolveUnlabelled(group, fid); stationName == "" {
				stationName = name
			}
		default:
			log.Debugf("relation %d: member %v with role %q ignored", r.ID, fid, m.Role)
		}
	}

	if stationName != "" {
		for _, id := range group.Zones() {
			if zone := c.zoning.Zone(id); zone.StationName == "" {
				zone.StationName = stationName
			}
		}
	}
	return nil
}

// claimStop remembers that group lists a stop position. A stop that already
// has a zone (e.g. a V1 tram stop used as stop) joins the group directly.
func (c *Converter) claimStop(group *zoning.TransferZoneGroup, fid osm.FeatureID) {
	if _, ok := c.store.StopPosition(fid); ok {
		c.store.ClaimStopPosition(fid, group.ID)
		return
	}
	if zone := c.zoning.ZoneBySource(fid); zone != nil {
		group.AddZone(zone.ID)
		return
	}
	log.Debugf("group %d: stop %v not available", group.ID, fid)
}

// resolveUnlabelled dispatches a member without role on what it turns out
// to be. Node tags are read again, ways only through the deferred and
// registered state. Returns the station name it contributed, if any.
func (c *Converter) resolveUnlabelled(group *zoning.TransferZoneGroup, fid osm.FeatureID) string {
	kind := tagging.KindNone
	var tags osm.Tags
	if d, ok := c.store.Station(fid); ok {
		kind, tags = tagging.KindStation, d.Tags()
	} else if _, ok := c.store.StopPosition(fid); ok {
		kind = tagging.KindStopPosition
	} else if fid.Type() == osm.TypeNode {
		if n, ok := c.nodes.Node(osm.NodeID(fid.Ref())); ok {
			tags = n.Tags
			kind = tagging.Interpret(c.classifier.Classify(tags), tags)
		}
	}

	name := ""
	switch kind {
	case tagging.KindStation:
		name = tagging.Name(tags)
		group.SetNameIfEmpty(name)
		c.store.RemoveStation(fid)
	case tagging.KindStopPosition:
		c.claimStop(group, fid)
	}
	if zone := c.zoning.ZoneBySource(fid); zone != nil {
		group.AddZone(zone.ID)
	}
	return name
}

// resolveMultipolygonPlatform creates the platform zone of a multipolygon
// from its outer way, using the relation tags. The zone is keyed by the
// relation unless the outer way is a platform zone itself.
func (c *Converter) resolveMultipolygonPlatform(r *osm.Relation) error {
	outer, found := lo.Find(r.Members, func(m osm.Member) bool {
		return m.Type == osm.TypeWay && m.Role == tagging.RoleOuter
	})
	if !found {
		return fmt.Errorf("multipolygon without outer way: %w", ErrMissingReference)
	}
	wayID := osm.WayID(outer.Ref)
	if c.zoning.ZoneBySource(wayID.FeatureID()) != nil {
		c.store.RemoveOuterWay(wayID)
		return nil
	}
	fid := r.ID.FeatureID()
	if zone := c.zoning.ZoneBySource(fid); zone != nil && !zone.Placeholder() {
		return nil
	}
	w, ok := c.store.OuterWay(wayID)
	if !ok {
		err := fmt.Errorf("outer way %d not available: %w", wayID, ErrMissingReference)
		log.Errorf("relation %d skipped: %v", r.ID, err)
		return err
	}
	c.store.RemoveOuterWay(wayID)
	geometry, err := c.wayGeometry(w)
	if err != nil {
		return err
	}
	_, err = c.createZoneWithModes(fid, geometry, r.Tags, zoning.TransferZonePlatform, tagging.DefaultModes(r.Tags))
	return err
}
