package converter

import (
	"git.fiblab.net/sim/ptaccess/network"
	"git.fiblab.net/sim/ptaccess/zoning"
	"github.com/paulmach/orb"
	"github.com/samber/lo"
)

// ResolveAccessNode returns the node of layer at p. When p is an interior
// vertex of one or more links a node is created there and the links are
// split; connectoids on the split links keep their destination vertex.
// Returns nil if p is neither a node nor on a link.
func (c *Converter) ResolveAccessNode(p orb.Point, layer *network.Layer) *network.Node {
	if node := layer.NodeAt(p); node != nil {
		return node
	}
	links := layer.LinksWithInteriorLocation(p)
	if len(links) == 0 {
		return nil
	}
	if len(links) > 1 {
		log.Warnf("%v on the interior of %d links of layer %s (%v), splitting all",
			p, len(links), layer.ID, lo.Map(links, func(l *network.Link, _ int) int64 { return l.ID }))
	}

	// 先记录受影响的连接点及其目标节点，再修改网络
	affected := c.zoning.ConnectoidsOfLinks(layer.ID, links)
	destination := make(map[*zoning.DirectedConnectoid]*network.Node, len(affected))
	for _, conn := range affected {
		destination[conn] = conn.AccessSegment.Downstream
	}

	var node *network.Node
	if src, ok := c.nodes.NodeAt(p); ok {
		node = layer.AddNode(p, src.ID)
	} else {
		node = layer.AddNode(p, 0)
	}

	halves := make(map[*network.Link][]*network.Link, len(links))
	for _, link := range links {
		first, second, err := layer.SplitLink(link, node)
		if err != nil {
			log.Errorf("split: %v", err)
			continue
		}
		halves[link] = []*network.Link{first, second}
		c.stats.SplitLinks++
		splitCount.Inc()
	}

	for _, conn := range affected {
		parts, ok := halves[conn.AccessSegment.Link]
		if !ok {
			continue
		}
		dest := destination[conn]
		var replacement *network.LinkSegment
		for _, part := range parts {
			for _, seg := range part.Segments() {
				if seg.Downstream == dest {
					replacement = seg
				}
			}
		}
		if replacement == nil {
			log.Errorf("%v: no segment towards %v after split", conn, dest)
			continue
		}
		conn.SetAccessSegment(replacement)
	}
	return node
}
