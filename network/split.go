package network

import (
	"fmt"

	"github.com/paulmach/orb"
)

// SplitLink breaks link at node, which must sit on an interior vertex of the
// link geometry. The link is replaced by two links, NodeA->node and
// node->NodeB, each carrying the per-direction attributes of the original.
// The way index of the layer maps the source way to both halves afterwards.
func (l *Layer) SplitLink(link *Link, node *Node) (first, second *Link, err error) {
	if l.links[link.ID] != link {
		return nil, nil, fmt.Errorf("%v in layer %s: %w", link, l.ID, ErrUnknownLink)
	}
	k := link.InteriorIndex(node.Point)
	if k < 0 {
		return nil, nil, fmt.Errorf("%v at %v: %w", link, node, ErrNotInteriorLocation)
	}
	var abAttr, baAttr *segmentAttr
	if link.AB != nil {
		abAttr = &segmentAttr{modes: link.AB.Modes, maxSpeed: link.AB.MaxSpeed}
	}
	if link.BA != nil {
		baAttr = &segmentAttr{modes: link.BA.Modes, maxSpeed: link.BA.MaxSpeed}
	}
	geomFirst := append(orb.LineString(nil), link.Geometry[:k+1]...)
	geomSecond := append(orb.LineString(nil), link.Geometry[k:]...)

	l.removeLink(link)
	first = l.newLink(link.WayID, link.NodeA, node, geomFirst, abAttr, baAttr)
	second = l.newLink(link.WayID, node, link.NodeB, geomSecond, abAttr, baAttr)
	l.linksByWay[link.WayID] = append(l.linksByWay[link.WayID], first, second)
	log.Debugf("split %v at %v into %v and %v", link, node, first, second)
	return first, second, nil
}
