package converter

import (
	"sort"

	"git.fiblab.net/sim/ptaccess/converter/tagging"
	"git.fiblab.net/sim/ptaccess/zoning"
	"github.com/paulmach/osm"
	"github.com/samber/lo"
)

// Deferred is an entity whose interpretation waits for the relations, with
// the scheme it was classified under. Exactly one of Node and Way is set.
type Deferred struct {
	Scheme tagging.Scheme
	Node   *osm.Node
	Way    *osm.Way
}

func (d Deferred) FeatureID() osm.FeatureID {
	if d.Node != nil {
		return d.Node.ID.FeatureID()
	}
	return d.Way.ID.FeatureID()
}

func (d Deferred) Tags() osm.Tags {
	if d.Node != nil {
		return d.Node.Tags
	}
	return d.Way.Tags
}

// Store holds deferred entities and the zones still waiting for a
// connectoid. It has no business logic; every lookup reports absence instead
// of failing. Connectoids are indexed by location in zoning.Zoning.
type Store struct {
	stations      map[osm.FeatureID]Deferred
	stopPositions map[osm.FeatureID]Deferred
	outerWays     map[osm.WayID]Deferred

	// stop position -> groups of the stop areas listing it
	stopGroups  map[osm.FeatureID][]zoning.GroupID
	unconnected map[osm.FeatureID]zoning.ZoneID
}

func NewStore() *Store {
	return &Store{
		stations:      make(map[osm.FeatureID]Deferred),
		stopPositions: make(map[osm.FeatureID]Deferred),
		outerWays:     make(map[osm.WayID]Deferred),
		stopGroups:    make(map[osm.FeatureID][]zoning.GroupID),
		unconnected:   make(map[osm.FeatureID]zoning.ZoneID),
	}
}

func sortedKeys[V any](m map[osm.FeatureID]V) []osm.FeatureID {
	keys := lo.Keys(m)
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// stations

func (s *Store) AddStation(d Deferred) {
	s.stations[d.FeatureID()] = d
}

func (s *Store) Station(id osm.FeatureID) (Deferred, bool) {
	d, ok := s.stations[id]
	return d, ok
}

func (s *Store) RemoveStation(id osm.FeatureID) {
	delete(s.stations, id)
}

// Stations returns the remaining stations ordered by feature id.
func (s *Store) Stations() []Deferred {
	return lo.Map(sortedKeys(s.stations), func(id osm.FeatureID, _ int) Deferred {
		return s.stations[id]
	})
}

// stop positions

func (s *Store) AddStopPosition(d Deferred) {
	s.stopPositions[d.FeatureID()] = d
}

func (s *Store) StopPosition(id osm.FeatureID) (Deferred, bool) {
	d, ok := s.stopPositions[id]
	return d, ok
}

func (s *Store) RemoveStopPosition(id osm.FeatureID) {
	delete(s.stopPositions, id)
	delete(s.stopGroups, id)
}

func (s *Store) StopPositions() []Deferred {
	return lo.Map(sortedKeys(s.stopPositions), func(id osm.FeatureID, _ int) Deferred {
		return s.stopPositions[id]
	})
}

// ClaimStopPosition records that a stop area lists the stop position.
func (s *Store) ClaimStopPosition(id osm.FeatureID, group zoning.GroupID) {
	if !lo.Contains(s.stopGroups[id], group) {
		s.stopGroups[id] = append(s.stopGroups[id], group)
	}
}

// ClaimingGroups returns the groups that listed the stop position, nil if unclaimed.
func (s *Store) ClaimingGroups(id osm.FeatureID) []zoning.GroupID {
	return s.stopGroups[id]
}

// outer ways

func (s *Store) AddOuterWay(w *osm.Way) {
	s.outerWays[w.ID] = Deferred{Scheme: tagging.SchemeNone, Way: w}
}

func (s *Store) OuterWay(id osm.WayID) (*osm.Way, bool) {
	d, ok := s.outerWays[id]
	return d.Way, ok
}

func (s *Store) RemoveOuterWay(id osm.WayID) {
	delete(s.outerWays, id)
}

func (s *Store) NumOuterWays() int {
	return len(s.outerWays)
}

func (s *Store) ClearOuterWays() {
	s.outerWays = make(map[osm.WayID]Deferred)
}

// zones without connectoid

func (s *Store) AddUnconnectedZone(source osm.FeatureID, id zoning.ZoneID) {
	s.unconnected[source] = id
}

// UnconnectedZone returns the zone of source if it still has no connectoid.
func (s *Store) UnconnectedZone(source osm.FeatureID) (zoning.ZoneID, bool) {
	id, ok := s.unconnected[source]
	if !ok {
		return zoning.NoZone, false
	}
	return id, true
}

func (s *Store) RemoveUnconnectedZone(source osm.FeatureID) {
	delete(s.unconnected, source)
}

// UnconnectedZones returns the zones without connectoid ordered by source.
func (s *Store) UnconnectedZones() []zoning.ZoneID {
	return lo.Map(sortedKeys(s.unconnected), func(id osm.FeatureID, _ int) zoning.ZoneID {
		return s.unconnected[id]
	})
}
