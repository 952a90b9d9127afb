package converter

import (
	"fmt"

	"git.fiblab.net/sim/ptaccess/converter/tagging"
	"git.fiblab.net/sim/ptaccess/modes"
	"git.fiblab.net/sim/ptaccess/network"
	"git.fiblab.net/sim/ptaccess/zoning"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

// NodeSource gives access to the materialized OSM nodes. Nodes filtered out
// by the bounding box are simply absent.
type NodeSource interface {
	Node(id osm.NodeID) (*osm.Node, bool)
	// NodeAt returns the node located exactly at p.
	NodeAt(p orb.Point) (*osm.Node, bool)
}

type Settings struct {
	// 全局开关，关闭时不识别任何公交标签
	Activated bool
	Mapping   *modes.Mapping
	// stop positions may match zones of the same category (road/rail/water)
	AllowPseudoModeMatch bool
}

func DefaultSettings() Settings {
	return Settings{
		Activated:            true,
		Mapping:              modes.DefaultMapping(),
		AllowPseudoModeMatch: true,
	}
}

// Converter turns public transport entities into transfer zones, groups and
// connectoids on top of a populated network. Entities must arrive in OSM
// order: nodes, then ways, then relations, then Finalize.
type Converter struct {
	settings   Settings
	classifier tagging.Classifier

	network *network.Network
	zoning  *zoning.Zoning
	nodes   NodeSource
	store   *Store

	// ways announced as multipolygon outers before the way pass
	expectedOuters map[osm.WayID]struct{}
	stats          Stats
}

// New fails with ErrPreconditionViolation if the network has no links.
func New(net *network.Network, nodes NodeSource, settings Settings) (*Converter, error) {
	if net == nil || !net.Populated() {
		return nil, ErrPreconditionViolation
	}
	if settings.Mapping == nil {
		settings.Mapping = modes.DefaultMapping()
	}
	return &Converter{
		settings:       settings,
		classifier:     tagging.Classifier{Activated: settings.Activated},
		network:        net,
		zoning:         zoning.New(),
		nodes:          nodes,
		store:          NewStore(),
		expectedOuters: make(map[osm.WayID]struct{}),
	}, nil
}

func (c *Converter) Network() *network.Network {
	return c.network
}

func (c *Converter) Zoning() *zoning.Zoning {
	return c.zoning
}

func (c *Converter) Store() *Store {
	return c.store
}

// ExpectMultipolygonOuter marks a way as outer member of a multipolygon
// platform so OnWay keeps it until the relation pass.
func (c *Converter) ExpectMultipolygonOuter(id osm.WayID) {
	c.expectedOuters[id] = struct{}{}
}

// fail logs an entity scoped error and returns it wrapped with the entity id.
func (c *Converter) fail(fid osm.FeatureID, err error) error {
	if err == nil {
		return nil
	}
	c.stats.Errors++
	errorCount.WithLabelValues(errorKind(err)).Inc()
	err = fmt.Errorf("%v: %w", fid, err)
	log.Warn(err)
	return err
}

func (c *Converter) OnNode(n *osm.Node) error {
	c.stats.Nodes++
	entityCount.WithLabelValues("node").Inc()
	fid := n.ID.FeatureID()
	scheme := c.classifier.Classify(n.Tags)
	if scheme == tagging.SchemeNone {
		if c.settings.Activated && tagging.HasPTKey(n.Tags) {
			return c.fail(fid, fmt.Errorf("%s=%s: %w", tagging.KeyPublicTransport,
				n.Tags.Find(tagging.KeyPublicTransport), ErrTaggingAmbiguity))
		}
		return nil
	}
	p := n.Point()
	switch kind := tagging.Interpret(scheme, n.Tags); kind {
	case tagging.KindPlatform:
		// V2 平台节点为站杆，V1 平台节点为站台
		zoneType := zoning.TransferZonePlatform
		if scheme == tagging.SchemeV2 {
			zoneType = zoning.TransferZonePole
		}
		_, err := c.createZoneWithModes(fid, p, n.Tags, zoneType, tagging.DefaultModes(n.Tags))
		return c.fail(fid, err)
	case tagging.KindPole:
		zone, err := c.createZoneWithModes(fid, p, n.Tags, zoning.TransferZonePole, tagging.DefaultModes(n.Tags))
		if err != nil || zone == nil {
			return c.fail(fid, err)
		}
		c.connectOnNetwork(zone, p, c.zoneModes(zone))
	case tagging.KindTramStop:
		zone, err := c.createZoneWithModes(fid, p, n.Tags, zoning.TransferZonePlatform, tagging.DefaultModes(n.Tags))
		if err != nil || zone == nil {
			return c.fail(fid, err)
		}
		c.connectOnNetwork(zone, p, c.zoneModes(zone))
	case tagging.KindHalt:
		zone, err := c.createZoneWithModes(fid, p, n.Tags, zoning.TransferZoneSmallStation, tagging.DefaultModes(n.Tags))
		if err != nil || zone == nil {
			return c.fail(fid, err)
		}
		zone.StationName = zone.Name
		c.connectOnNetwork(zone, p, c.zoneModes(zone))
	case tagging.KindStation:
		c.store.AddStation(Deferred{Scheme: scheme, Node: n})
	case tagging.KindStopPosition:
		c.store.AddStopPosition(Deferred{Scheme: scheme, Node: n})
	case tagging.KindStopArea:
		return c.fail(fid, fmt.Errorf("%v on a node: %w", kind, ErrTaggingAmbiguity))
	}
	return nil
}

func (c *Converter) OnWay(w *osm.Way) error {
	c.stats.Ways++
	entityCount.WithLabelValues("way").Inc()
	fid := w.ID.FeatureID()
	if _, ok := c.expectedOuters[w.ID]; ok {
		c.store.AddOuterWay(w)
		delete(c.expectedOuters, w.ID)
	}
	scheme := c.classifier.Classify(w.Tags)
	if scheme == tagging.SchemeNone {
		if c.settings.Activated && tagging.HasPTKey(w.Tags) {
			return c.fail(fid, fmt.Errorf("%s=%s: %w", tagging.KeyPublicTransport,
				w.Tags.Find(tagging.KeyPublicTransport), ErrTaggingAmbiguity))
		}
		return nil
	}
	switch kind := tagging.Interpret(scheme, w.Tags); kind {
	case tagging.KindPlatform:
		geometry, err := c.wayGeometry(w)
		if err != nil {
			return c.fail(fid, err)
		}
		_, err = c.createZoneWithModes(fid, geometry, w.Tags, zoning.TransferZonePlatform, tagging.DefaultModes(w.Tags))
		return c.fail(fid, err)
	case tagging.KindStation:
		c.store.AddStation(Deferred{Scheme: scheme, Way: w})
	case tagging.KindNone:
	default:
		// 站杆、停车位置等只能是节点
		return c.fail(fid, fmt.Errorf("%v on a way: %w", kind, ErrTaggingAmbiguity))
	}
	return nil
}

func (c *Converter) OnRelation(r *osm.Relation) error {
	c.stats.Relations++
	entityCount.WithLabelValues("relation").Inc()
	if !c.settings.Activated {
		return nil
	}
	fid := r.ID.FeatureID()
	switch {
	case tagging.IsStopArea(r.Tags):
		return c.fail(fid, c.resolveStopArea(r))
	case tagging.IsMultipolygonPlatform(r.Tags):
		return c.fail(fid, c.resolveMultipolygonPlatform(r))
	}
	return nil
}

// zoneModes returns the internal modes serviced by zone, empty when unknown.
func (c *Converter) zoneModes(zone *zoning.TransferZone) modes.Set {
	return c.settings.Mapping.Map(zone.ServicedModes)
}

// connectOnNetwork connects zone at p on every layer carrying ms where p is
// a node or an interior link vertex. It returns the number of connectoids
// touched.
func (c *Converter) connectOnNetwork(zone *zoning.TransferZone, p orb.Point, ms modes.Set) int {
	if ms.Empty() {
		return 0
	}
	n := 0
	for _, layer := range c.network.LayersSupporting(ms) {
		node := c.ResolveAccessNode(p, layer)
		if node == nil {
			continue
		}
		n += len(c.BuildForAllEntries(zone, layer, node, ms))
	}
	return n
}
