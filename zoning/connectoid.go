package zoning

import (
	"fmt"

	"git.fiblab.net/sim/ptaccess/modes"
	"git.fiblab.net/sim/ptaccess/network"
	"github.com/paulmach/orb"
)

// DirectedConnectoid links the downstream vertex of a link segment to one or
// more transfer zones, each restricted to a set of modes.
type DirectedConnectoid struct {
	ID            int
	Layer         string
	Location      orb.Point
	AccessSegment *network.LinkSegment

	zones   []ZoneID
	allowed map[ZoneID]modes.Set
}

// AccessNode is the vertex the access segment leads to.
func (c *DirectedConnectoid) AccessNode() *network.Node {
	return c.AccessSegment.Downstream
}

func (c *DirectedConnectoid) AccessZones() []ZoneID {
	return append([]ZoneID(nil), c.zones...)
}

func (c *DirectedConnectoid) HasAccessZone(id ZoneID) bool {
	_, ok := c.allowed[id]
	return ok
}

// AllowedModes returns the modes allowed towards zone id, nil if the zone is not served.
func (c *DirectedConnectoid) AllowedModes(id ZoneID) modes.Set {
	return c.allowed[id]
}

// AddAllowedModes adds the zone if needed and unions ms into its allowed modes.
func (c *DirectedConnectoid) AddAllowedModes(id ZoneID, ms modes.Set) {
	if cur, ok := c.allowed[id]; ok {
		c.allowed[id] = cur.Union(ms)
		return
	}
	c.zones = append(c.zones, id)
	c.allowed[id] = ms.Clone()
}

// SetAccessSegment repoints the connectoid after its segment was replaced.
func (c *DirectedConnectoid) SetAccessSegment(s *network.LinkSegment) {
	c.AccessSegment = s
}

func (c *DirectedConnectoid) String() string {
	return fmt.Sprintf("connectoid#%d(%s %v)", c.ID, c.Layer, c.AccessSegment)
}
