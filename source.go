package main

import (
	"context"
	"os"
	"runtime"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/samber/lo"
)

// scanFunc feeds every object of the input to fn in file order: nodes, ways,
// then relations.
type scanFunc func(ctx context.Context, fn func(osm.Object) error) error

// pbfScanner reads a PBF file, reopened on every pass.
func pbfScanner(path string) scanFunc {
	return func(ctx context.Context, fn func(osm.Object) error) error {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		scanner := osmpbf.New(ctx, f, runtime.GOMAXPROCS(-1))
		defer scanner.Close()
		for scanner.Scan() {
			if err := fn(scanner.Object()); err != nil {
				return err
			}
		}
		return scanner.Err()
	}
}

// nodeStore keeps the materialized nodes. With a bound, nodes outside it
// are dropped and appear missing to everyone downstream.
type nodeStore struct {
	bound      orb.Bound
	bounded    bool
	byID       map[osm.NodeID]*osm.Node
	byLocation map[orb.Point]*osm.Node
}

func newNodeStore(bound orb.Bound, bounded bool) *nodeStore {
	return &nodeStore{
		bound:      bound,
		bounded:    bounded,
		byID:       make(map[osm.NodeID]*osm.Node),
		byLocation: make(map[orb.Point]*osm.Node),
	}
}

func (s *nodeStore) add(n *osm.Node) bool {
	p := n.Point()
	if s.bounded && !s.bound.Contains(p) {
		return false
	}
	s.byID[n.ID] = n
	// 同一位置保留第一个节点
	if _, ok := s.byLocation[p]; !ok {
		s.byLocation[p] = n
	}
	return true
}

func (s *nodeStore) Node(id osm.NodeID) (*osm.Node, bool) {
	n, ok := s.byID[id]
	return n, ok
}

func (s *nodeStore) NodeAt(p orb.Point) (*osm.Node, bool) {
	n, ok := s.byLocation[p]
	return n, ok
}

func (s *nodeStore) Locate(id osm.NodeID) (orb.Point, bool) {
	n, ok := s.byID[id]
	if !ok {
		return orb.Point{}, false
	}
	return n.Point(), true
}

// touches reports whether any node of w is materialized.
func (s *nodeStore) touches(w *osm.Way) bool {
	return lo.SomeBy(w.Nodes, func(wn osm.WayNode) bool {
		_, ok := s.byID[wn.ID]
		return ok
	})
}

func (s *nodeStore) Len() int {
	return len(s.byID)
}
