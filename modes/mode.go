package modes

import (
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Mode is an internal travel mode carried by network link segments.
type Mode string

const (
	Car       Mode = "car"
	Bus       Mode = "bus"
	Tram      Mode = "tram"
	LightRail Mode = "lightrail"
	Train     Mode = "train"
	Subway    Mode = "subway"
	Ferry     Mode = "ferry"
)

// Category groups modes that share the same kind of infrastructure.
type Category int

const (
	CategoryNone Category = iota
	CategoryRoad
	CategoryRail
	CategoryWater
)

func (c Category) String() string {
	return [...]string{"none", "road", "rail", "water"}[c]
}

var categories = map[Mode]Category{
	Car:       CategoryRoad,
	Bus:       CategoryRoad,
	Tram:      CategoryRail,
	LightRail: CategoryRail,
	Train:     CategoryRail,
	Subway:    CategoryRail,
	Ferry:     CategoryWater,
}

func (m Mode) Category() Category {
	return categories[m]
}

// Set is an unordered set of modes. The zero value is an empty, read-only set.
type Set map[Mode]struct{}

func NewSet(ms ...Mode) Set {
	s := make(Set, len(ms))
	for _, m := range ms {
		s[m] = struct{}{}
	}
	return s
}

func (s Set) Add(ms ...Mode) {
	for _, m := range ms {
		s[m] = struct{}{}
	}
}

func (s Set) Contains(m Mode) bool {
	_, ok := s[m]
	return ok
}

func (s Set) Empty() bool {
	return len(s) == 0
}

func (s Set) Clone() Set {
	return NewSet(s.Slice()...)
}

func (s Set) Union(o Set) Set {
	u := s.Clone()
	u.Add(o.Slice()...)
	return u
}

func (s Set) Intersect(o Set) Set {
	return NewSet(lo.Filter(s.Slice(), func(m Mode, _ int) bool {
		return o.Contains(m)
	})...)
}

func (s Set) SubsetOf(o Set) bool {
	return lo.EveryBy(s.Slice(), o.Contains)
}

func (s Set) Equal(o Set) bool {
	return len(s) == len(o) && s.SubsetOf(o)
}

// Categories returns the distinct categories of the modes in s.
func (s Set) Categories() []Category {
	cs := lo.Uniq(lo.Map(s.Slice(), func(m Mode, _ int) Category {
		return m.Category()
	}))
	sort.Slice(cs, func(i, j int) bool { return cs[i] < cs[j] })
	return cs
}

// Slice returns the modes sorted by name.
func (s Set) Slice() []Mode {
	ms := lo.Keys(s)
	sort.Slice(ms, func(i, j int) bool { return ms[i] < ms[j] })
	return ms
}

func (s Set) Strings() []string {
	return lo.Map(s.Slice(), func(m Mode, _ int) string { return string(m) })
}

func (s Set) String() string {
	return "{" + strings.Join(s.Strings(), ",") + "}"
}
