package network

import (
	"sort"

	"git.fiblab.net/sim/ptaccess/modes"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/osm"
	"github.com/samber/lo"
)

// Layer is the directed graph of one group of modes (e.g. road or rail).
// Nodes are indexed by location, links by the OSM way they were built from.
type Layer struct {
	ID    string
	Modes modes.Set

	nodes           map[int64]*Node
	nodesByLocation map[orb.Point]*Node
	links           map[int64]*Link
	linksByWay      map[osm.WayID][]*Link
	linksByInterior map[orb.Point][]*Link

	nextNodeID    int64
	nextLinkID    int64
	nextSegmentID int64
}

func NewLayer(id string, ms modes.Set) *Layer {
	return &Layer{
		ID:              id,
		Modes:           ms,
		nodes:           make(map[int64]*Node),
		nodesByLocation: make(map[orb.Point]*Node),
		links:           make(map[int64]*Link),
		linksByWay:      make(map[osm.WayID][]*Link),
		linksByInterior: make(map[orb.Point][]*Link),
	}
}

// AddNode returns the node at p, creating it when the location is not indexed yet.
func (l *Layer) AddNode(p orb.Point, externalID osm.NodeID) *Node {
	if n, ok := l.nodesByLocation[p]; ok {
		return n
	}
	n := &Node{ID: l.nextNodeID, ExternalID: externalID, Point: p}
	l.nextNodeID++
	l.nodes[n.ID] = n
	l.nodesByLocation[p] = n
	return n
}

// AddLink creates a link from a to b following geometry. A nil or empty mode
// set leaves that direction without a segment.
func (l *Layer) AddLink(wayID osm.WayID, a, b *Node, geometry orb.LineString, abModes, baModes modes.Set, maxSpeed float64) *Link {
	var ab, ba *segmentAttr
	if ms := abModes.Intersect(l.Modes); !ms.Empty() {
		ab = &segmentAttr{modes: ms, maxSpeed: maxSpeed}
	}
	if ms := baModes.Intersect(l.Modes); !ms.Empty() {
		ba = &segmentAttr{modes: ms, maxSpeed: maxSpeed}
	}
	link := l.newLink(wayID, a, b, geometry, ab, ba)
	l.linksByWay[wayID] = append(l.linksByWay[wayID], link)
	return link
}

func (l *Layer) newLink(wayID osm.WayID, a, b *Node, geometry orb.LineString, ab, ba *segmentAttr) *Link {
	link := &Link{
		ID:       l.nextLinkID,
		WayID:    wayID,
		NodeA:    a,
		NodeB:    b,
		Geometry: geometry,
		Length:   geo.LengthHaversine(geometry),
	}
	l.nextLinkID++
	if ab != nil {
		link.AB = l.newSegment(link, a, b, ab)
	}
	if ba != nil {
		link.BA = l.newSegment(link, b, a, ba)
	}
	l.links[link.ID] = link
	for _, p := range interior(geometry) {
		l.linksByInterior[p] = append(l.linksByInterior[p], link)
	}
	return link
}

func interior(geometry orb.LineString) []orb.Point {
	if len(geometry) < 3 {
		return nil
	}
	return geometry[1 : len(geometry)-1]
}

func (l *Layer) newSegment(link *Link, up, down *Node, attr *segmentAttr) *LinkSegment {
	s := &LinkSegment{
		ID:         l.nextSegmentID,
		Link:       link,
		Upstream:   up,
		Downstream: down,
		Modes:      attr.modes.Clone(),
		MaxSpeed:   attr.maxSpeed,
	}
	l.nextSegmentID++
	up.exiting = append(up.exiting, s)
	down.entering = append(down.entering, s)
	return s
}

func (l *Layer) removeLink(link *Link) {
	for _, s := range link.Segments() {
		s.Upstream.exiting = lo.Without(s.Upstream.exiting, s)
		s.Downstream.entering = lo.Without(s.Downstream.entering, s)
	}
	delete(l.links, link.ID)
	for _, p := range interior(link.Geometry) {
		if rest := lo.Without(l.linksByInterior[p], link); len(rest) > 0 {
			l.linksByInterior[p] = rest
		} else {
			delete(l.linksByInterior, p)
		}
	}
	l.linksByWay[link.WayID] = lo.Without(l.linksByWay[link.WayID], link)
}

// NodeAt returns the node indexed at p or nil.
func (l *Layer) NodeAt(p orb.Point) *Node {
	return l.nodesByLocation[p]
}

func (l *Layer) Node(id int64) *Node {
	return l.nodes[id]
}

func (l *Layer) Link(id int64) *Link {
	return l.links[id]
}

// LinksOfWay returns the links the OSM way currently maps to.
func (l *Layer) LinksOfWay(wayID osm.WayID) []*Link {
	return append([]*Link(nil), l.linksByWay[wayID]...)
}

// LinksWithInteriorLocation returns, ordered by id, the links having p as an
// interior vertex of their geometry.
func (l *Layer) LinksWithInteriorLocation(p orb.Point) []*Link {
	links := lo.Uniq(l.linksByInterior[p])
	sort.Slice(links, func(i, j int) bool { return links[i].ID < links[j].ID })
	return links
}

// Links returns all links ordered by id.
func (l *Layer) Links() []*Link {
	links := lo.Values(l.links)
	sort.Slice(links, func(i, j int) bool { return links[i].ID < links[j].ID })
	return links
}

// Nodes returns all nodes ordered by id.
func (l *Layer) Nodes() []*Node {
	nodes := lo.Values(l.nodes)
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

func (l *Layer) NumNodes() int {
	return len(l.nodes)
}

func (l *Layer) NumLinks() int {
	return len(l.links)
}

// Supports reports whether the layer carries any mode of ms.
func (l *Layer) Supports(ms modes.Set) bool {
	return !l.Modes.Intersect(ms).Empty()
}
