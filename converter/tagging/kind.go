package tagging

import (
	"github.com/paulmach/osm"
	"github.com/samber/lo"
)

// Kind is the role an entity plays in the public transport model.
type Kind int

const (
	KindNone Kind = iota
	KindPlatform
	KindPole
	KindStopPosition
	KindStation
	KindHalt
	KindTramStop
	KindStopArea
)

func (k Kind) String() string {
	return [...]string{"none", "platform", "pole", "stop_position", "station", "halt", "tram_stop", "stop_area"}[k]
}

// Interpret maps the tags of an entity classified under scheme to its kind.
func Interpret(scheme Scheme, tags osm.Tags) Kind {
	switch scheme {
	case SchemeV2:
		switch tags.Find(KeyPublicTransport) {
		case ValuePlatform:
			return KindPlatform
		case ValueStopPosition:
			return KindStopPosition
		case ValueStation:
			return KindStation
		case ValueStopArea:
			return KindStopArea
		}
	case SchemeV1:
		switch tags.Find(KeyHighway) {
		case ValueBusStop:
			return KindPole
		case ValuePlatform:
			return KindPlatform
		}
		switch tags.Find(KeyRailway) {
		case ValuePlatform:
			return KindPlatform
		case ValueStation:
			return KindStation
		case ValueHalt:
			return KindHalt
		case ValueTramStop:
			return KindTramStop
		case ValueStop:
			return KindStopPosition
		}
	}
	return KindNone
}

// OSM mode keys recognised on stops, e.g. bus=yes.
var modeKeys = []string{
	"motorcar", "bus", "trolleybus", "share_taxi",
	"tram", "light_rail", "train", "subway", "monorail", "funicular", "ferry",
}

// ExplicitModes returns the OSM modes tagged with <mode>=yes or implied by
// station=<mode>. found is false when no such tag exists.
func ExplicitModes(tags osm.Tags) (osmModes []string, found bool) {
	osmModes = lo.Filter(modeKeys, func(k string, _ int) bool {
		return tags.Find(k) == "yes"
	})
	if v := tags.Find(KeyStation); lo.Contains(modeKeys, v) {
		osmModes = append(osmModes, v)
	}
	osmModes = lo.Uniq(osmModes)
	return osmModes, len(osmModes) > 0
}

// DefaultModes returns the OSM modes implied by V1 tags, e.g. bus for
// highway=bus_stop and tram for railway=tram_stop.
func DefaultModes(tags osm.Tags) []string {
	ms := make([]string, 0)
	switch tags.Find(KeyHighway) {
	case ValueBusStop, ValuePlatform:
		ms = append(ms, "bus")
	}
	switch tags.Find(KeyRailway) {
	case ValueTramStop:
		ms = append(ms, "tram")
	case ValueHalt, ValueStation, ValuePlatform, ValueStop:
		ms = append(ms, "train")
	}
	return ms
}
