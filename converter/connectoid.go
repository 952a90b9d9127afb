package converter

import (
	"git.fiblab.net/sim/ptaccess/modes"
	"git.fiblab.net/sim/ptaccess/network"
	"git.fiblab.net/sim/ptaccess/zoning"
	"github.com/samber/lo"
)

// BuildOrUpdate gives zone access from segment for the modes of ms the
// segment admits. The connectoid at the segment's downstream location is
// reused when it exists. Returns nil when no mode qualifies.
func (c *Converter) BuildOrUpdate(zone *zoning.TransferZone, layer *network.Layer, segment *network.LinkSegment, ms modes.Set) *zoning.DirectedConnectoid {
	allowed := segment.AllowedModes(ms)
	if allowed.Empty() {
		return nil
	}
	conn := c.zoning.ConnectoidFor(layer.ID, segment.Downstream.Point, segment)
	if conn == nil {
		conn = c.zoning.AddConnectoid(layer.ID, segment)
		connectoidCount.Inc()
	}
	conn.AddAllowedModes(zone.ID, allowed)
	c.store.RemoveUnconnectedZone(zone.Source)
	return conn
}

// BuildForAllEntries applies BuildOrUpdate to every segment entering node.
func (c *Converter) BuildForAllEntries(zone *zoning.TransferZone, layer *network.Layer, node *network.Node, ms modes.Set) []*zoning.DirectedConnectoid {
	built := lo.FilterMap(node.EnteringSegments(), func(s *network.LinkSegment, _ int) (*zoning.DirectedConnectoid, bool) {
		conn := c.BuildOrUpdate(zone, layer, s, ms)
		return conn, conn != nil
	})
	if len(built) == 0 {
		log.Debugf("%v: no segment entering %v admits %v", zone, node, ms)
	}
	return built
}
