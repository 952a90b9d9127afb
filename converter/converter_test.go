package converter_test

import (
	"testing"

	"git.fiblab.net/sim/ptaccess/converter"
	"git.fiblab.net/sim/ptaccess/modes"
	"git.fiblab.net/sim/ptaccess/network"
	"git.fiblab.net/sim/ptaccess/zoning"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nodeSet map[osm.NodeID]*osm.Node

func (s nodeSet) Node(id osm.NodeID) (*osm.Node, bool) {
	n, ok := s[id]
	return n, ok
}

func (s nodeSet) NodeAt(p orb.Point) (*osm.Node, bool) {
	for _, n := range s {
		if n.Point() == p {
			return n, true
		}
	}
	return nil, false
}

func (s nodeSet) add(n *osm.Node) *osm.Node {
	s[n.ID] = n
	return n
}

func tags(kv ...string) osm.Tags {
	t := make(osm.Tags, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		t = append(t, osm.Tag{Key: kv[i], Value: kv[i+1]})
	}
	return t
}

func node(id osm.NodeID, lon, lat float64, kv ...string) *osm.Node {
	return &osm.Node{ID: id, Lon: lon, Lat: lat, Tags: tags(kv...)}
}

var (
	railMid = orb.Point{0.001, 0}
	roadMid = orb.Point{0.001, 0.01}
)

// rail: (0,0) -- (0.001,0) -- (0.002,0), tram and train both ways
// road: (0,0.01) -- (0.001,0.01) -- (0.002,0.01), car and bus both ways
func testNetwork() (*network.Network, *network.Layer, *network.Layer) {
	railModes := modes.NewSet(modes.Tram, modes.Train)
	rail := network.NewLayer("rail", railModes)
	a := rail.AddNode(orb.Point{0, 0}, 1)
	b := rail.AddNode(orb.Point{0.002, 0}, 3)
	rail.AddLink(1000, a, b, orb.LineString{{0, 0}, railMid, {0.002, 0}}, railModes, railModes, 0)

	roadModes := modes.NewSet(modes.Car, modes.Bus)
	road := network.NewLayer("road", roadModes)
	c := road.AddNode(orb.Point{0, 0.01}, 4)
	d := road.AddNode(orb.Point{0.002, 0.01}, 6)
	road.AddLink(2000, c, d, orb.LineString{{0, 0.01}, roadMid, {0.002, 0.01}}, roadModes, roadModes, 0)

	net := network.New()
	net.AddLayer(rail)
	net.AddLayer(road)
	return net, rail, road
}

func newConverter(t *testing.T, nodes nodeSet, settings converter.Settings) (*converter.Converter, *network.Layer, *network.Layer) {
	net, rail, road := testNetwork()
	conv, err := converter.New(net, nodes, settings)
	require.NoError(t, err)
	return conv, rail, road
}

func TestPrecondition(t *testing.T) {
	_, err := converter.New(network.New(), nodeSet{}, converter.DefaultSettings())
	assert.ErrorIs(t, err, converter.ErrPreconditionViolation)

	empty := network.New()
	empty.AddLayer(network.NewLayer("rail", modes.NewSet(modes.Train)))
	_, err = converter.New(empty, nodeSet{}, converter.DefaultSettings())
	assert.ErrorIs(t, err, converter.ErrPreconditionViolation)
}

func TestTramStopOnLinkInterior(t *testing.T) {
	nodes := nodeSet{}
	stop := nodes.add(node(10, railMid.Lon(), railMid.Lat(), "railway", "tram_stop", "name", "Dam"))
	conv, rail, road := newConverter(t, nodes, converter.DefaultSettings())

	require.NoError(t, conv.OnNode(stop))

	assert.Equal(t, 3, rail.NumNodes())
	assert.Equal(t, 2, rail.NumLinks())
	assert.Equal(t, 2, road.NumNodes())
	n := rail.NodeAt(railMid)
	require.NotNil(t, n)
	assert.Equal(t, osm.NodeID(10), n.ExternalID)
	assert.Len(t, rail.LinksOfWay(1000), 2)

	zone := conv.Zoning().ZoneBySource(stop.FeatureID())
	require.NotNil(t, zone)
	assert.Equal(t, zoning.TransferZonePlatform, zone.Type)
	assert.Equal(t, "Dam", zone.Name)
	loc, ok := zone.Location()
	assert.True(t, ok)
	assert.Equal(t, n.Point, loc)

	conns := conv.Zoning().ConnectoidsAt("rail", railMid)
	require.Len(t, conns, 2)
	for _, c := range conns {
		assert.Same(t, n, c.AccessNode())
		assert.True(t, modes.NewSet(modes.Tram).Equal(c.AllowedModes(zone.ID)), c)
		// 允许的模式必须是路段模式的子集
		assert.True(t, c.AllowedModes(zone.ID).SubsetOf(c.AccessSegment.Modes))
	}
	assert.Len(t, conv.Zoning().Connectoids(), 2)
	assert.Empty(t, conv.DanglingZones())
}

func TestStopAreaPlaceholder(t *testing.T) {
	conv, _, _ := newConverter(t, nodeSet{}, converter.DefaultSettings())
	area := func(id osm.RelationID) *osm.Relation {
		return &osm.Relation{
			ID:      id,
			Tags:    tags("type", "public_transport", "public_transport", "stop_area"),
			Members: osm.Members{{Type: osm.TypeNode, Ref: 42, Role: "platform"}},
		}
	}
	require.NoError(t, conv.OnRelation(area(1)))
	require.NoError(t, conv.OnRelation(area(2)))

	z := conv.Zoning()
	require.Equal(t, 1, z.NumZones())
	placeholder := z.ZoneBySource(osm.NodeID(42).FeatureID())
	require.NotNil(t, placeholder)
	assert.True(t, placeholder.Placeholder())
	assert.Nil(t, placeholder.Geometry)
	assert.True(t, z.GroupBySource(1).HasZone(placeholder.ID))
	assert.True(t, z.GroupBySource(2).HasZone(placeholder.ID))

	stats := conv.Finalize()
	assert.Equal(t, 1, stats.Placeholders)
	assert.Equal(t, 2, stats.Groups)
}

func TestSplitKeepsConnectoidDestination(t *testing.T) {
	conv, rail, _ := newConverter(t, nodeSet{}, converter.DefaultSettings())
	zone, _ := conv.Zoning().AddZone(osm.NodeID(99).FeatureID(), zoning.TransferZonePole, orb.Point{0.002, 0.0001})
	b := rail.NodeAt(orb.Point{0.002, 0})
	train := modes.NewSet(modes.Train)

	before := conv.BuildForAllEntries(zone, rail, b, train)
	require.Len(t, before, 1)
	conn := before[0]
	oldSegment := conn.AccessSegment

	n := conv.ResolveAccessNode(railMid, rail)
	require.NotNil(t, n)
	assert.True(t, n.Anonymous())
	assert.NotSame(t, oldSegment, conn.AccessSegment)
	assert.Same(t, b, conn.AccessNode())
	assert.Same(t, n, conn.AccessSegment.Upstream)
	assert.Nil(t, rail.Link(oldSegment.Link.ID))
	assert.True(t, train.SubsetOf(conn.AccessSegment.Modes))
	assert.Len(t, conv.Zoning().ConnectoidsAt("rail", b.Point), 1)
	assert.Len(t, conv.Zoning().ConnectoidsOfLinks("rail", rail.Links()), 1)

	// 已存在的节点直接返回
	assert.Same(t, n, conv.ResolveAccessNode(railMid, rail))
	assert.Nil(t, conv.ResolveAccessNode(orb.Point{5, 5}, rail))
}

func TestBuildIsIdempotent(t *testing.T) {
	conv, rail, _ := newConverter(t, nodeSet{}, converter.DefaultSettings())
	zone, _ := conv.Zoning().AddZone(osm.NodeID(99).FeatureID(), zoning.TransferZonePlatform, railMid)
	n := conv.ResolveAccessNode(railMid, rail)
	tram := modes.NewSet(modes.Tram)

	first := conv.BuildForAllEntries(zone, rail, n, tram)
	second := conv.BuildForAllEntries(zone, rail, n, tram)
	require.Len(t, first, 2)
	assert.Equal(t, first, second)
	assert.Len(t, conv.Zoning().Connectoids(), 2)

	// 模式并集
	conv.BuildForAllEntries(zone, rail, n, modes.NewSet(modes.Train))
	assert.Len(t, conv.Zoning().Connectoids(), 2)
	for _, c := range first {
		assert.True(t, modes.NewSet(modes.Tram, modes.Train).Equal(c.AllowedModes(zone.ID)))
	}

	// 路段不允许的模式不建连接点
	assert.Nil(t, conv.BuildOrUpdate(zone, rail, first[0].AccessSegment, modes.NewSet(modes.Bus)))
	assert.Empty(t, conv.BuildForAllEntries(zone, rail, n, modes.NewSet(modes.Ferry)))
}

func TestGroupNameFirstStationWins(t *testing.T) {
	nodes := nodeSet{}
	north := nodes.add(node(101, 0.5, 0.5, "public_transport", "station", "name", "North Central"))
	conv, _, _ := newConverter(t, nodes, converter.DefaultSettings())

	central := &osm.Way{ID: 100, Tags: tags("public_transport", "station", "name", "Central")}
	require.NoError(t, conv.OnNode(north))
	require.NoError(t, conv.OnWay(central))
	assert.Len(t, conv.Store().Stations(), 2)

	require.NoError(t, conv.OnRelation(&osm.Relation{
		ID:   7,
		Tags: tags("public_transport", "stop_area"),
		Members: osm.Members{
			{Type: osm.TypeWay, Ref: 100},
			{Type: osm.TypeNode, Ref: 101},
		},
	}))
	group := conv.Zoning().GroupBySource(7)
	require.NotNil(t, group)
	assert.Equal(t, "Central", group.Name)
	assert.Empty(t, conv.Store().Stations())

	// 再次处理同一关系结果不变
	require.NoError(t, conv.OnRelation(&osm.Relation{
		ID:      7,
		Tags:    tags("public_transport", "stop_area"),
		Members: osm.Members{{Type: osm.TypeNode, Ref: 101}},
	}))
	assert.Equal(t, "Central", group.Name)
	assert.Equal(t, 0, conv.Finalize().Zones)
}

func stopAreaWithStop(conv *converter.Converter, t *testing.T, nodes nodeSet) {
	platform := nodes.add(node(20, 0.001, 0.011, "public_transport", "platform", "motorcar", "yes"))
	stop := nodes.add(node(21, roadMid.Lon(), roadMid.Lat(), "public_transport", "stop_position", "bus", "yes"))
	require.NoError(t, conv.OnNode(platform))
	require.NoError(t, conv.OnNode(stop))
	require.NoError(t, conv.OnRelation(&osm.Relation{
		ID:   8,
		Tags: tags("public_transport", "stop_area", "name", "Dam"),
		Members: osm.Members{
			{Type: osm.TypeNode, Ref: 20, Role: "platform"},
			{Type: osm.TypeNode, Ref: 21, Role: "stop"},
		},
	}))
}

func TestStopPositionPseudoModeMatch(t *testing.T) {
	nodes := nodeSet{}
	conv, _, road := newConverter(t, nodes, converter.DefaultSettings())
	stopAreaWithStop(conv, t, nodes)
	stats := conv.Finalize()

	platform := conv.Zoning().ZoneBySource(osm.NodeID(20).FeatureID())
	require.NotNil(t, platform)
	assert.Equal(t, zoning.TransferZonePole, platform.Type)
	assert.Nil(t, conv.Zoning().ZoneBySource(osm.NodeID(21).FeatureID()))

	conns := conv.Zoning().ConnectoidsOfZone(platform.ID)
	require.Len(t, conns, 2)
	for _, c := range conns {
		assert.Equal(t, "road", c.Layer)
		assert.True(t, modes.NewSet(modes.Bus).Equal(c.AllowedModes(platform.ID)))
	}
	assert.Equal(t, 2, road.NumLinks())
	assert.Equal(t, 1, stats.SplitLinks)
	assert.Equal(t, 0, stats.DanglingZones)
}

func TestStopPositionStrictModeMatch(t *testing.T) {
	nodes := nodeSet{}
	settings := converter.DefaultSettings()
	settings.AllowPseudoModeMatch = false
	conv, _, _ := newConverter(t, nodes, settings)
	stopAreaWithStop(conv, t, nodes)
	stats := conv.Finalize()

	// 严格匹配失败，停车位置自成站杆
	salvaged := conv.Zoning().ZoneBySource(osm.NodeID(21).FeatureID())
	require.NotNil(t, salvaged)
	assert.Equal(t, zoning.TransferZonePole, salvaged.Type)
	assert.Len(t, conv.Zoning().ConnectoidsOfZone(salvaged.ID), 2)

	platform := conv.Zoning().ZoneBySource(osm.NodeID(20).FeatureID())
	assert.Empty(t, conv.Zoning().ConnectoidsOfZone(platform.ID))
	assert.Equal(t, []zoning.ZoneID{platform.ID}, conv.DanglingZones())
	assert.Equal(t, 1, stats.DanglingZones)
}

func square(nodes nodeSet) *osm.Way {
	for i, p := range []orb.Point{{1, 1}, {1.001, 1}, {1.001, 1.001}, {1, 1.001}} {
		nodes.add(node(osm.NodeID(500+i), p.Lon(), p.Lat()))
	}
	return &osm.Way{ID: 200, Nodes: osm.WayNodes{{ID: 500}, {ID: 501}, {ID: 502}, {ID: 503}, {ID: 500}}}
}

func TestMultipolygonUpgradesPlaceholder(t *testing.T) {
	nodes := nodeSet{}
	outer := square(nodes)
	conv, _, _ := newConverter(t, nodes, converter.DefaultSettings())
	conv.ExpectMultipolygonOuter(200)
	require.NoError(t, conv.OnWay(outer))
	_, ok := conv.Store().OuterWay(200)
	require.True(t, ok)

	// the stop area is read before the multipolygon
	require.NoError(t, conv.OnRelation(&osm.Relation{
		ID:      400,
		Tags:    tags("public_transport", "stop_area"),
		Members: osm.Members{{Type: osm.TypeRelation, Ref: 300, Role: "platform"}},
	}))
	fid := osm.RelationID(300).FeatureID()
	placeholder := conv.Zoning().ZoneBySource(fid)
	require.NotNil(t, placeholder)
	require.True(t, placeholder.Placeholder())

	require.NoError(t, conv.OnRelation(&osm.Relation{
		ID:      300,
		Tags:    tags("type", "multipolygon", "public_transport", "platform", "tram", "yes", "name", "Spoor 1", "local_ref", "1"),
		Members: osm.Members{{Type: osm.TypeWay, Ref: 200, Role: "outer"}},
	}))
	zone := conv.Zoning().ZoneBySource(fid)
	assert.Same(t, placeholder, zone)
	assert.False(t, zone.Placeholder())
	assert.IsType(t, orb.Polygon{}, zone.Geometry)
	assert.Equal(t, "Spoor 1", zone.Name)
	assert.Equal(t, "1", zone.RefCode)
	assert.Equal(t, []string{"tram"}, zone.ServicedModes)
	assert.Equal(t, 1, conv.Zoning().NumZones())
	assert.True(t, conv.Zoning().GroupBySource(400).HasZone(zone.ID))
	_, ok = conv.Store().OuterWay(200)
	assert.False(t, ok)
}

func TestMultipolygonMissingOuter(t *testing.T) {
	conv, _, _ := newConverter(t, nodeSet{}, converter.DefaultSettings())
	err := conv.OnRelation(&osm.Relation{
		ID:      300,
		Tags:    tags("type", "multipolygon", "railway", "platform"),
		Members: osm.Members{{Type: osm.TypeWay, Ref: 200, Role: "outer"}},
	})
	assert.ErrorIs(t, err, converter.ErrMissingReference)
	assert.Equal(t, 0, conv.Zoning().NumZones())
}

func TestEntityErrors(t *testing.T) {
	conv, _, _ := newConverter(t, nodeSet{}, converter.DefaultSettings())

	assert.ErrorIs(t, conv.OnNode(node(1, 0, 0, "public_transport", "pole")), converter.ErrTaggingAmbiguity)
	assert.ErrorIs(t, conv.OnWay(&osm.Way{ID: 2, Tags: tags("public_transport", "stop_position")}), converter.ErrTaggingAmbiguity)
	// 路的节点未加载
	err := conv.OnWay(&osm.Way{
		ID:    3,
		Nodes: osm.WayNodes{{ID: 7}, {ID: 8}},
		Tags:  tags("railway", "platform"),
	})
	assert.ErrorIs(t, err, converter.ErrGeometryIncomplete)
	assert.Equal(t, 0, conv.Zoning().NumZones())
	assert.Equal(t, 3, conv.Finalize().Errors)
}

func TestZoneModes(t *testing.T) {
	nodes := nodeSet{}
	settings := converter.DefaultSettings()
	settings.Mapping = modes.NewMapping(map[string]modes.Mode{"bus": modes.Bus})
	conv, _, _ := newConverter(t, nodes, settings)

	// 模式未映射，不建区
	require.NoError(t, conv.OnNode(node(30, 3, 3, "public_transport", "platform", "ferry", "yes")))
	assert.Nil(t, conv.Zoning().ZoneBySource(osm.NodeID(30).FeatureID()))

	// 无模式标签，保留但无模式
	require.NoError(t, conv.OnNode(node(31, 3, 3.001, "public_transport", "platform")))
	kept := conv.Zoning().ZoneBySource(osm.NodeID(31).FeatureID())
	require.NotNil(t, kept)
	assert.Empty(t, kept.ServicedModes)

	stats := conv.Finalize()
	assert.Equal(t, 1, stats.UnmappedZones)
	assert.Equal(t, 1, stats.DanglingZones)
}

func TestStandaloneStation(t *testing.T) {
	nodes := nodeSet{}
	station := nodes.add(node(40, railMid.Lon(), railMid.Lat(), "railway", "station", "name", "Halte"))
	conv, rail, _ := newConverter(t, nodes, converter.DefaultSettings())
	require.NoError(t, conv.OnNode(station))
	assert.Equal(t, 0, conv.Zoning().NumZones())

	conv.Finalize()
	zone := conv.Zoning().ZoneBySource(station.FeatureID())
	require.NotNil(t, zone)
	assert.Equal(t, zoning.TransferZoneSmallStation, zone.Type)
	assert.Equal(t, "Halte", zone.StationName)
	conns := conv.Zoning().ConnectoidsOfZone(zone.ID)
	require.Len(t, conns, 2)
	assert.True(t, modes.NewSet(modes.Train).Equal(conns[0].AllowedModes(zone.ID)))
	assert.Equal(t, 2, rail.NumLinks())
}

func TestDeactivated(t *testing.T) {
	nodes := nodeSet{}
	stop := nodes.add(node(10, railMid.Lon(), railMid.Lat(), "railway", "tram_stop"))
	settings := converter.DefaultSettings()
	settings.Activated = false
	conv, rail, _ := newConverter(t, nodes, settings)
	require.NoError(t, conv.OnNode(stop))
	assert.Equal(t, 0, conv.Zoning().NumZones())
	assert.Equal(t, 1, rail.NumLinks())
}

func TestSharedStopPositionKeepsZoneModes(t *testing.T) {
	nodes := nodeSet{}
	bus := nodes.add(node(20, 0.001, 0.001, "public_transport", "platform", "bus", "yes"))
	tram := nodes.add(node(22, 0.001, -0.001, "public_transport", "platform", "tram", "yes"))
	stop := nodes.add(node(21, railMid.Lon(), railMid.Lat(), "public_transport", "stop_position", "bus", "yes", "tram", "yes"))
	conv, rail, _ := newConverter(t, nodes, converter.DefaultSettings())
	for _, n := range []*osm.Node{bus, tram, stop} {
		require.NoError(t, conv.OnNode(n))
	}
	require.NoError(t, conv.OnRelation(&osm.Relation{
		ID:   9,
		Tags: tags("public_transport", "stop_area"),
		Members: osm.Members{
			{Type: osm.TypeNode, Ref: 20, Role: "platform"},
			{Type: osm.TypeNode, Ref: 22, Role: "platform"},
			{Type: osm.TypeNode, Ref: 21, Role: "stop"},
		},
	}))
	conv.Finalize()

	z := conv.Zoning()
	busZone := z.ZoneBySource(bus.FeatureID())
	tramZone := z.ZoneBySource(tram.FeatureID())
	require.NotNil(t, busZone)
	require.NotNil(t, tramZone)
	assert.Nil(t, z.ZoneBySource(stop.FeatureID()))

	// 公交站台不经轨道连接
	assert.Empty(t, z.ConnectoidsOfZone(busZone.ID))
	assert.Equal(t, []zoning.ZoneID{busZone.ID}, conv.DanglingZones())
	conns := z.ConnectoidsOfZone(tramZone.ID)
	require.Len(t, conns, 2)
	for _, c := range conns {
		assert.Equal(t, "rail", c.Layer)
		assert.Equal(t, []zoning.ZoneID{tramZone.ID}, c.AccessZones())
		assert.True(t, modes.NewSet(modes.Tram).Equal(c.AllowedModes(tramZone.ID)), c)
	}
	assert.Equal(t, 2, rail.NumLinks())
}

func TestSplitCrossingLinks(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	tram := modes.NewSet(modes.Tram)
	rail := network.NewLayer("rail", tram)
	ends := []*network.Node{
		rail.AddNode(orb.Point{0, 0}, 1),
		rail.AddNode(orb.Point{0.002, 0}, 2),
		rail.AddNode(orb.Point{0.001, -0.001}, 3),
		rail.AddNode(orb.Point{0.001, 0.001}, 4),
	}
	rail.AddLink(1000, ends[0], ends[1], orb.LineString{{0, 0}, railMid, {0.002, 0}}, tram, tram, 0)
	rail.AddLink(1001, ends[2], ends[3], orb.LineString{{0.001, -0.001}, railMid, {0.001, 0.001}}, tram, tram, 0)
	net := network.New()
	net.AddLayer(rail)
	conv, err := converter.New(net, nodeSet{}, converter.DefaultSettings())
	require.NoError(t, err)

	zone, _ := conv.Zoning().AddZone(osm.NodeID(99).FeatureID(), zoning.TransferZonePlatform, orb.Point{0.003, 0.003})
	destination := make(map[*zoning.DirectedConnectoid]*network.Node)
	for _, end := range ends {
		built := conv.BuildForAllEntries(zone, rail, end, tram)
		require.Len(t, built, 1)
		destination[built[0]] = end
	}
	require.Len(t, conv.Zoning().Connectoids(), 4)

	n := conv.ResolveAccessNode(railMid, rail)
	require.NotNil(t, n)
	assert.Equal(t, 1, lo.CountBy(hook.AllEntries(), func(e *logrus.Entry) bool {
		return e.Level == logrus.WarnLevel
	}))
	assert.Equal(t, 4, rail.NumLinks())
	assert.Len(t, rail.LinksOfWay(1000), 2)
	assert.Len(t, rail.LinksOfWay(1001), 2)
	assert.Len(t, n.EnteringSegments(), 4)

	for c, end := range destination {
		assert.Same(t, end, c.AccessNode(), c)
		assert.Same(t, n, c.AccessSegment.Upstream, c)
		assert.Same(t, c.AccessSegment.Link, rail.Link(c.AccessSegment.Link.ID), c)
	}
	assert.Len(t, conv.Zoning().Connectoids(), 4)
}
