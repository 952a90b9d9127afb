package main

import (
	"context"
	"fmt"

	"git.fiblab.net/sim/ptaccess/config"
	"git.fiblab.net/sim/ptaccess/converter"
	"git.fiblab.net/sim/ptaccess/converter/tagging"
	"git.fiblab.net/sim/ptaccess/network"
	"github.com/paulmach/osm"
)

// collected is what the first pass keeps for the network and converter.
type collected struct {
	nodes       *nodeStore
	networkWays []*osm.Way
	outers      []osm.WayID
}

func collect(ctx context.Context, settings config.Settings, scan scanFunc) (*collected, error) {
	bound, bounded := settings.Bound()
	c := &collected{nodes: newNodeStore(bound, bounded)}
	err := scan(ctx, func(o osm.Object) error {
		switch o := o.(type) {
		case *osm.Node:
			c.nodes.add(o)
		case *osm.Way:
			if ms, _ := network.WayModes(o.Tags); !ms.Empty() && len(o.Nodes) >= 2 {
				c.networkWays = append(c.networkWays, o)
			}
		case *osm.Relation:
			if tagging.IsMultipolygonPlatform(o.Tags) {
				for _, m := range o.Members {
					if m.Type == osm.TypeWay && m.Role == tagging.RoleOuter {
						c.outers = append(c.outers, osm.WayID(m.Ref))
					}
				}
			}
		}
		return ctx.Err()
	})
	if err != nil {
		return nil, err
	}
	log.Infof("collected %d nodes, %d network ways, %d multipolygon outers",
		c.nodes.Len(), len(c.networkWays), len(c.outers))
	return c, nil
}

// run builds the network from the input and converts its public transport
// entities. Entity errors are logged by the converter and do not stop the run.
func run(ctx context.Context, settings config.Settings, scan scanFunc) (*converter.Converter, converter.Stats, error) {
	c, err := collect(ctx, settings, scan)
	if err != nil {
		return nil, converter.Stats{}, fmt.Errorf("collect: %w", err)
	}
	net := network.Build(settings.LayerSpecs(), c.networkWays, c.nodes.Locate)
	conv, err := converter.New(net, c.nodes, settings.Converter())
	if err != nil {
		return nil, converter.Stats{}, err
	}
	for _, id := range c.outers {
		conv.ExpectMultipolygonOuter(id)
	}

	err = scan(ctx, func(o osm.Object) error {
		switch o := o.(type) {
		case *osm.Node:
			if n, ok := c.nodes.Node(o.ID); ok {
				_ = conv.OnNode(n)
			}
		case *osm.Way:
			if c.nodes.touches(o) {
				_ = conv.OnWay(o)
			}
		case *osm.Relation:
			_ = conv.OnRelation(o)
		}
		return ctx.Err()
	})
	if err != nil {
		return nil, converter.Stats{}, fmt.Errorf("convert: %w", err)
	}
	return conv, conv.Finalize(), nil
}
