package main

import (
	"context"
	"path/filepath"
	"testing"

	"git.fiblab.net/sim/ptaccess/config"
	"git.fiblab.net/sim/ptaccess/converter"
	"git.fiblab.net/sim/ptaccess/storage"
	"git.fiblab.net/sim/ptaccess/zoning"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sliceScanner(objs ...osm.Object) scanFunc {
	return func(ctx context.Context, fn func(osm.Object) error) error {
		for _, o := range objs {
			if err := fn(o); err != nil {
				return err
			}
		}
		return nil
	}
}

func node(id osm.NodeID, lon, lat float64, kv ...string) *osm.Node {
	n := &osm.Node{ID: id, Lon: lon, Lat: lat}
	for i := 0; i+1 < len(kv); i += 2 {
		n.Tags = append(n.Tags, osm.Tag{Key: kv[i], Value: kv[i+1]})
	}
	return n
}

func way(id osm.WayID, tags osm.Tags, ids ...osm.NodeID) *osm.Way {
	w := &osm.Way{ID: id, Tags: tags}
	for _, nid := range ids {
		w.Nodes = append(w.Nodes, osm.WayNode{ID: nid})
	}
	return w
}

// a tram line and a road, each with a stop in the middle, grouped in one
// stop area together with a station and a platform outside the bounding box
func stopAreaInput() []osm.Object {
	return []osm.Object{
		node(1, 0, 0),
		node(2, 0.001, 0, "railway", "tram_stop", "name", "Dam"),
		node(3, 0.002, 0),
		node(4, 0, 0.01),
		node(5, 0.001, 0.01, "highway", "bus_stop", "name", "Dam"),
		node(6, 0.002, 0.01),
		node(7, 0.0015, 0.005, "public_transport", "station", "name", "Dam Station"),
		node(99, 5, 5, "public_transport", "platform"),
		way(10, osm.Tags{{Key: "railway", Value: "tram"}}, 1, 2, 3),
		way(11, osm.Tags{{Key: "highway", Value: "primary"}}, 4, 5, 6),
		&osm.Relation{
			ID:   20,
			Tags: osm.Tags{{Key: "public_transport", Value: "stop_area"}, {Key: "name", Value: "Dam"}},
			Members: osm.Members{
				{Type: osm.TypeNode, Ref: 2, Role: "platform"},
				{Type: osm.TypeNode, Ref: 5, Role: "platform"},
				{Type: osm.TypeNode, Ref: 7},
				{Type: osm.TypeNode, Ref: 99, Role: "platform"},
			},
		},
	}
}

func boundedSettings() config.Settings {
	s := config.Default()
	s.BoundingBox = &config.BoundingBox{MinLon: -1, MinLat: -1, MaxLon: 1, MaxLat: 1}
	return s
}

func TestNodeStore(t *testing.T) {
	s := newNodeStore(orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}}, true)
	assert.True(t, s.add(node(1, 0.5, 0.5)))
	assert.False(t, s.add(node(2, 2, 2)))
	assert.True(t, s.add(node(3, 0.5, 0.5)))

	_, ok := s.Node(2)
	assert.False(t, ok)
	n, ok := s.NodeAt(orb.Point{0.5, 0.5})
	require.True(t, ok)
	assert.Equal(t, osm.NodeID(1), n.ID)
	p, ok := s.Locate(3)
	assert.True(t, ok)
	assert.Equal(t, orb.Point{0.5, 0.5}, p)
	assert.True(t, s.touches(way(1, nil, 2, 3)))
	assert.False(t, s.touches(way(2, nil, 2, 4)))
	assert.Equal(t, 2, s.Len())
}

func TestRun(t *testing.T) {
	conv, stats, err := run(context.Background(), boundedSettings(), sliceScanner(stopAreaInput()...))
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Zones)
	assert.Equal(t, 1, stats.Placeholders)
	assert.Equal(t, 1, stats.Groups)
	assert.Equal(t, 4, stats.Connectoids)
	assert.Equal(t, 2, stats.SplitLinks)
	assert.Equal(t, 0, stats.Errors)

	z := conv.Zoning()
	group := z.GroupBySource(20)
	require.NotNil(t, group)
	assert.Equal(t, "Dam", group.Name)
	assert.Len(t, group.Zones(), 3)

	tram := z.ZoneBySource(osm.NodeID(2).FeatureID())
	require.NotNil(t, tram)
	assert.Equal(t, zoning.TransferZonePlatform, tram.Type)
	assert.Equal(t, "Dam Station", tram.StationName)
	bus := z.ZoneBySource(osm.NodeID(5).FeatureID())
	require.NotNil(t, bus)
	assert.Equal(t, zoning.TransferZonePole, bus.Type)
	assert.True(t, z.ZoneBySource(osm.NodeID(99).FeatureID()).Placeholder())
	// 车站已并入站区
	assert.Nil(t, z.ZoneBySource(osm.NodeID(7).FeatureID()))

	rail, ok := conv.Network().Layer("rail")
	require.True(t, ok)
	assert.Equal(t, 2, rail.NumLinks())
	for _, c := range z.ConnectoidsOfZone(bus.ID) {
		assert.Equal(t, "road", c.Layer)
		assert.Equal(t, osm.NodeID(5), c.AccessNode().ExternalID)
	}
}

func TestRunWithoutNetwork(t *testing.T) {
	_, _, err := run(context.Background(), config.Default(), sliceScanner(node(1, 0, 0, "highway", "bus_stop")))
	assert.ErrorIs(t, err, converter.ErrPreconditionViolation)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := run(ctx, config.Default(), sliceScanner(stopAreaInput()...))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunAndExport(t *testing.T) {
	ctx := context.Background()
	settings := boundedSettings()
	settings.FlagDanglingZones = true
	conv, _, err := run(ctx, settings, sliceScanner(stopAreaInput()...))
	require.NoError(t, err)

	output, err := storage.NewPath(filepath.Join(t.TempDir(), "access.db"))
	require.NoError(t, err)
	sink, err := storage.Open(ctx, output, "")
	require.NoError(t, err)
	defer sink.Close(ctx)
	export := storage.NewExport(conv.Zoning(), conv.DanglingZones(), settings.FlagDanglingZones)
	require.NoError(t, sink.Write(ctx, export))
	assert.Len(t, export.Connectoids, 4)
}
