package tagging

import (
	"github.com/paulmach/osm"
	"github.com/samber/lo"
)

// Scheme is the public transport tagging convention an entity follows.
type Scheme int

const (
	SchemeNone Scheme = iota
	// highway=*/railway=* tagging
	SchemeV1
	// public_transport=* tagging
	SchemeV2
)

func (s Scheme) String() string {
	return [...]string{"none", "ptv1", "ptv2"}[s]
}

const (
	KeyPublicTransport = "public_transport"
	KeyHighway         = "highway"
	KeyRailway         = "railway"
	KeyType            = "type"
	KeyName            = "name"
	KeyStation         = "station"

	ValuePlatform     = "platform"
	ValueStopPosition = "stop_position"
	ValueStation      = "station"
	ValueStopArea     = "stop_area"
	ValueBusStop      = "bus_stop"
	ValueHalt         = "halt"
	ValueTramStop     = "tram_stop"
	ValueStop         = "stop"
	ValueMultipolygon = "multipolygon"

	RoleOuter = "outer"
)

var (
	v2Values      = []string{ValuePlatform, ValueStopPosition, ValueStation, ValueStopArea}
	v1HighwayVals = []string{ValueBusStop, ValuePlatform}
	v1RailwayVals = []string{ValuePlatform, ValueStation, ValueHalt, ValueTramStop, ValueStop}

	platformRoles = []string{"platform", "platform_entry_only", "platform_exit_only"}
	stopRoles     = []string{"stop", "stop_entry_only", "stop_exit_only"}

	// 按优先级排列的参考编号键
	RefKeys = []string{"ref", "loc_ref", "local_ref", "ref_name"}
)

// Classifier decides which tagging scheme an entity follows. When not
// activated every entity is SchemeNone.
type Classifier struct {
	Activated bool
}

func (c Classifier) Classify(tags osm.Tags) Scheme {
	if !c.Activated {
		return SchemeNone
	}
	if lo.Contains(v2Values, tags.Find(KeyPublicTransport)) {
		return SchemeV2
	}
	if tags.HasTag(KeyHighway) && lo.Contains(v1HighwayVals, tags.Find(KeyHighway)) {
		return SchemeV1
	}
	if tags.HasTag(KeyRailway) && lo.Contains(v1RailwayVals, tags.Find(KeyRailway)) {
		return SchemeV1
	}
	return SchemeNone
}

// HasPTKey reports whether tags carry a key that may hold public transport
// values, recognized or not.
func HasPTKey(tags osm.Tags) bool {
	return tags.HasTag(KeyPublicTransport)
}

func IsPlatformRole(role string) bool {
	return lo.Contains(platformRoles, role)
}

func IsStopRole(role string) bool {
	return lo.Contains(stopRoles, role)
}

// IsStopArea matches a public_transport=stop_area relation.
func IsStopArea(tags osm.Tags) bool {
	return tags.Find(KeyPublicTransport) == ValueStopArea
}

// IsMultipolygonPlatform matches a multipolygon relation tagged as platform.
func IsMultipolygonPlatform(tags osm.Tags) bool {
	if tags.Find(KeyType) != ValueMultipolygon {
		return false
	}
	return tags.Find(KeyPublicTransport) == ValuePlatform ||
		tags.Find(KeyHighway) == ValuePlatform ||
		tags.Find(KeyRailway) == ValuePlatform
}

// Ref returns the value of the first reference key present.
func Ref(tags osm.Tags) string {
	for _, k := range RefKeys {
		if v := tags.Find(k); v != "" {
			return v
		}
	}
	return ""
}

func Name(tags osm.Tags) string {
	return tags.Find(KeyName)
}
