package modes

import (
	"github.com/samber/lo"
)

// Mapping translates OSM mode values (the keys of tags like bus=yes, or the
// value of route=*) to internal modes. OSM modes missing from the table are
// not mapped and take no part in conversion.
type Mapping struct {
	osmToMode map[string]Mode
}

func NewMapping(table map[string]Mode) *Mapping {
	m := &Mapping{osmToMode: make(map[string]Mode, len(table))}
	for k, v := range table {
		m.osmToMode[k] = v
	}
	return m
}

// DefaultMapping activates the common public transport modes.
func DefaultMapping() *Mapping {
	return NewMapping(map[string]Mode{
		"motorcar":   Car,
		"bus":        Bus,
		"trolleybus": Bus,
		"share_taxi": Bus,
		"tram":       Tram,
		"light_rail": LightRail,
		"monorail":   LightRail,
		"train":      Train,
		"funicular":  Train,
		"subway":     Subway,
		"ferry":      Ferry,
	})
}

// Mode returns the internal mode for an OSM mode value.
func (m *Mapping) Mode(osmMode string) (Mode, bool) {
	mode, ok := m.osmToMode[osmMode]
	return mode, ok
}

// Map returns the internal modes reachable from osmModes.
func (m *Mapping) Map(osmModes []string) Set {
	s := NewSet()
	for _, om := range osmModes {
		if mode, ok := m.osmToMode[om]; ok {
			s.Add(mode)
		}
	}
	return s
}

// HasMapped reports whether at least one of osmModes is mapped.
func (m *Mapping) HasMapped(osmModes []string) bool {
	return lo.SomeBy(osmModes, func(om string) bool {
		_, ok := m.osmToMode[om]
		return ok
	})
}

// Compatible reports whether candidate OSM modes overlap the reference OSM
// modes after mapping. With allowPseudo the overlap is computed on categories
// (road, rail, water) so bus and car match, as do train and tram. An empty
// reference accepts any candidate that has at least one mapped mode.
func (m *Mapping) Compatible(candidate, reference []string, allowPseudo bool) bool {
	mapped := m.Map(candidate)
	if mapped.Empty() {
		return false
	}
	if len(reference) == 0 {
		return true
	}
	return SetsCompatible(mapped, m.Map(reference), allowPseudo)
}

// SetsCompatible is Compatible on already mapped sets.
func SetsCompatible(candidate, reference Set, allowPseudo bool) bool {
	if !allowPseudo {
		return !candidate.Intersect(reference).Empty()
	}
	return len(lo.Intersect(candidate.Categories(), reference.Categories())) > 0
}
