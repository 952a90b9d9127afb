package network

import (
	"strconv"
	"strings"
	"sync"

	"git.fiblab.net/sim/ptaccess/modes"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

// LayerSpec describes one layer to build.
type LayerSpec struct {
	ID    string
	Modes modes.Set
}

// Locator resolves an OSM node id to its coordinate. Nodes outside the loaded
// area are reported as missing.
type Locator func(id osm.NodeID) (orb.Point, bool)

var (
	// highway值 -> 允许的模式
	highwayModes = map[string]modes.Set{
		"motorway":       modes.NewSet(modes.Car, modes.Bus),
		"motorway_link":  modes.NewSet(modes.Car, modes.Bus),
		"trunk":          modes.NewSet(modes.Car, modes.Bus),
		"trunk_link":     modes.NewSet(modes.Car, modes.Bus),
		"primary":        modes.NewSet(modes.Car, modes.Bus),
		"primary_link":   modes.NewSet(modes.Car, modes.Bus),
		"secondary":      modes.NewSet(modes.Car, modes.Bus),
		"secondary_link": modes.NewSet(modes.Car, modes.Bus),
		"tertiary":       modes.NewSet(modes.Car, modes.Bus),
		"tertiary_link":  modes.NewSet(modes.Car, modes.Bus),
		"unclassified":   modes.NewSet(modes.Car, modes.Bus),
		"residential":    modes.NewSet(modes.Car, modes.Bus),
		"living_street":  modes.NewSet(modes.Car, modes.Bus),
		"service":        modes.NewSet(modes.Car, modes.Bus),
		"busway":         modes.NewSet(modes.Bus),
		"bus_guideway":   modes.NewSet(modes.Bus),
	}
	// railway值 -> 允许的模式
	railwayModes = map[string]modes.Set{
		"rail":         modes.NewSet(modes.Train),
		"narrow_gauge": modes.NewSet(modes.Train),
		"funicular":    modes.NewSet(modes.Train),
		"light_rail":   modes.NewSet(modes.LightRail),
		"monorail":     modes.NewSet(modes.LightRail),
		"subway":       modes.NewSet(modes.Subway),
		"tram":         modes.NewSet(modes.Tram),
	}
)

// WayModes returns the modes a way admits from its highway, railway or
// route=ferry tag, plus whether the road is one-way (1 forward, -1 backward, 0 both).
func WayModes(tags osm.Tags) (ms modes.Set, oneway int) {
	ms = modes.NewSet()
	if s, ok := highwayModes[tags.Find("highway")]; ok {
		ms = ms.Union(s)
		switch tags.Find("oneway") {
		case "yes", "true", "1":
			oneway = 1
		case "-1", "reverse":
			oneway = -1
		}
		if tags.Find("highway") == "motorway" && tags.Find("oneway") != "no" {
			oneway = 1
		}
	}
	if s, ok := railwayModes[tags.Find("railway")]; ok {
		ms = ms.Union(s)
	}
	if tags.Find("route") == "ferry" {
		ms.Add(modes.Ferry)
	}
	return
}

func maxSpeed(tags osm.Tags) float64 {
	v := strings.TrimSpace(strings.TrimSuffix(tags.Find("maxspeed"), "km/h"))
	speed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return speed
}

// Build creates one layer per LayerSpec from ways. Ways are cut into links at the
// nodes shared with another way of the same layer; runs of nodes the locator
// cannot resolve are skipped. Layers are built concurrently.
func Build(specs []LayerSpec, ways []*osm.Way, locate Locator) *Network {
	n := New()
	var wg sync.WaitGroup
	wg.Add(len(specs))
	for _, spec := range specs {
		go func(spec LayerSpec) {
			defer wg.Done()
			layer := buildLayer(spec, ways, locate)
			log.Infof("layer %s: %d nodes and %d links", layer.ID, layer.NumNodes(), layer.NumLinks())
			n.AddLayer(layer)
		}(spec)
	}
	wg.Wait()
	return n
}

type wayPart struct {
	ids    []osm.NodeID
	points orb.LineString
}

func buildLayer(spec LayerSpec, ways []*osm.Way, locate Locator) *Layer {
	layer := NewLayer(spec.ID, spec.Modes)
	type candidate struct {
		way    *osm.Way
		modes  modes.Set
		oneway int
	}
	candidates := make([]candidate, 0)
	useCount := make(map[osm.NodeID]int)
	for _, w := range ways {
		ms, oneway := WayModes(w.Tags)
		if !layer.Supports(ms) || len(w.Nodes) < 2 {
			continue
		}
		candidates = append(candidates, candidate{way: w, modes: ms.Intersect(layer.Modes), oneway: oneway})
		for i, wn := range w.Nodes {
			useCount[wn.ID]++
			// 首尾节点总是切分点
			if i == 0 || i == len(w.Nodes)-1 {
				useCount[wn.ID]++
			}
		}
	}
	for _, c := range candidates {
		abModes, baModes := c.modes, c.modes
		switch c.oneway {
		case 1:
			baModes = nil
		case -1:
			abModes = nil
		}
		speed := maxSpeed(c.way.Tags)
		for _, part := range splitWay(c.way, locate, useCount) {
			a := layer.AddNode(part.points[0], part.ids[0])
			b := layer.AddNode(part.points[len(part.points)-1], part.ids[len(part.ids)-1])
			layer.AddLink(c.way.ID, a, b, part.points, abModes, baModes, speed)
		}
	}
	return layer
}

// splitWay cuts a way into parts at shared nodes. A closed part whose ends
// coincide is cut again in its middle so no link starts and ends at one node.
func splitWay(w *osm.Way, locate Locator, useCount map[osm.NodeID]int) []wayPart {
	parts := make([]wayPart, 0)
	cur := wayPart{}
	flush := func() {
		if len(cur.ids) >= 2 {
			if cur.ids[0] == cur.ids[len(cur.ids)-1] {
				if len(cur.ids) >= 3 {
					mid := len(cur.ids) / 2
					parts = append(parts,
						wayPart{ids: cur.ids[:mid+1], points: cur.points[:mid+1]},
						wayPart{ids: cur.ids[mid:], points: cur.points[mid:]},
					)
				}
			} else {
				parts = append(parts, cur)
			}
		}
		cur = wayPart{}
	}
	for i, wn := range w.Nodes {
		p, ok := locate(wn.ID)
		if !ok {
			// 区域外的节点，断开当前片段
			flush()
			continue
		}
		cur.ids = append(cur.ids, wn.ID)
		cur.points = append(cur.points, p)
		if i > 0 && i < len(w.Nodes)-1 && useCount[wn.ID] >= 2 && len(cur.ids) >= 2 {
			flush()
			cur.ids = append(cur.ids, wn.ID)
			cur.points = append(cur.points, p)
		}
	}
	flush()
	return parts
}
