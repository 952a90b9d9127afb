package network

import (
	"fmt"

	"git.fiblab.net/sim/ptaccess/modes"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/samber/lo"
)

type Node struct {
	ID int64
	// 0 when the node was created from a bare coordinate
	ExternalID osm.NodeID
	Point      orb.Point

	entering []*LinkSegment
	exiting  []*LinkSegment
}

func (n *Node) Anonymous() bool {
	return n.ExternalID == 0
}

// EnteringSegments returns the directed segments whose downstream vertex is n.
func (n *Node) EnteringSegments() []*LinkSegment {
	return append([]*LinkSegment(nil), n.entering...)
}

func (n *Node) ExitingSegments() []*LinkSegment {
	return append([]*LinkSegment(nil), n.exiting...)
}

func (n *Node) String() string {
	if n.Anonymous() {
		return fmt.Sprintf("node#%d(%.7f,%.7f)", n.ID, n.Point.Lon(), n.Point.Lat())
	}
	return fmt.Sprintf("node#%d(osm %d)", n.ID, n.ExternalID)
}

// LinkSegment is one traversable direction of a link.
type LinkSegment struct {
	ID         int64
	Link       *Link
	Upstream   *Node
	Downstream *Node
	Modes      modes.Set
	MaxSpeed   float64 // km/h, 0 when unknown
}

// AllowedModes returns the subset of ms this segment admits.
func (s *LinkSegment) AllowedModes(ms modes.Set) modes.Set {
	return s.Modes.Intersect(ms)
}

// DirectionAB reports whether the segment runs from Link.NodeA to Link.NodeB.
func (s *LinkSegment) DirectionAB() bool {
	return s.Link != nil && s.Link.AB == s
}

func (s *LinkSegment) String() string {
	return fmt.Sprintf("segment#%d(%d->%d)", s.ID, s.Upstream.ID, s.Downstream.ID)
}

// segmentAttr holds the per-direction attributes copied onto the halves of a split link.
type segmentAttr struct {
	modes    modes.Set
	maxSpeed float64
}

// Link is an undirected edge between two nodes with up to two directed segments.
type Link struct {
	ID       int64
	WayID    osm.WayID
	NodeA    *Node
	NodeB    *Node
	Geometry orb.LineString
	Length   float64 // metres
	AB       *LinkSegment
	BA       *LinkSegment
}

func (l *Link) Segments() []*LinkSegment {
	return lo.Filter([]*LinkSegment{l.AB, l.BA}, func(s *LinkSegment, _ int) bool {
		return s != nil
	})
}

// InteriorIndex returns the index of p among the interior vertices of the
// link geometry, or -1 if p is an end point or not on the link.
func (l *Link) InteriorIndex(p orb.Point) int {
	for i := 1; i < len(l.Geometry)-1; i++ {
		if l.Geometry[i] == p {
			return i
		}
	}
	return -1
}

func (l *Link) String() string {
	return fmt.Sprintf("link#%d(way %d)", l.ID, l.WayID)
}
