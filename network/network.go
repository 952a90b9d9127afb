package network

import (
	"sort"

	"git.fiblab.net/sim/ptaccess/modes"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/samber/lo"
)

// Network is the set of mode layers. Layers are registered concurrently by the
// builder and read sequentially afterwards.
type Network struct {
	layers *xsync.MapOf[string, *Layer]
}

func New() *Network {
	return &Network{layers: xsync.NewMapOf[string, *Layer]()}
}

func (n *Network) AddLayer(layer *Layer) {
	n.layers.Store(layer.ID, layer)
}

func (n *Network) Layer(id string) (*Layer, bool) {
	return n.layers.Load(id)
}

// Layers returns the layers ordered by id.
func (n *Network) Layers() []*Layer {
	layers := make([]*Layer, 0, n.layers.Size())
	n.layers.Range(func(_ string, layer *Layer) bool {
		layers = append(layers, layer)
		return true
	})
	sort.Slice(layers, func(i, j int) bool { return layers[i].ID < layers[j].ID })
	return layers
}

// LayersSupporting returns the layers carrying at least one mode of ms.
func (n *Network) LayersSupporting(ms modes.Set) []*Layer {
	return lo.Filter(n.Layers(), func(layer *Layer, _ int) bool {
		return layer.Supports(ms)
	})
}

// Populated reports whether any layer has at least one link.
func (n *Network) Populated() bool {
	return lo.SomeBy(n.Layers(), func(layer *Layer) bool {
		return layer.NumLinks() > 0
	})
}
