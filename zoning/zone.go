package zoning

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/osm"
)

// ZoneID is the index of a transfer zone in the zoning arena.
type ZoneID int

const NoZone ZoneID = -1

type TransferZoneType int

const (
	TransferZoneNone TransferZoneType = iota
	TransferZonePlatform
	TransferZonePole
	TransferZoneSmallStation
)

func (t TransferZoneType) String() string {
	return [...]string{"none", "platform", "pole", "small_station"}[t]
}

// TransferZone is the waiting area of a platform, pole or station.
type TransferZone struct {
	ID     ZoneID
	Source osm.FeatureID
	Type   TransferZoneType
	// orb.Point or orb.Polygon, nil for placeholders
	Geometry orb.Geometry
	Name     string

	RefCode string
	// OSM mode values serviced by the zone, nil when unknown
	ServicedModes []string
	StationName   string
}

// Placeholder reports whether the zone stands in for an entity that was never materialized.
func (z *TransferZone) Placeholder() bool {
	return z.Geometry == nil
}

// Location returns a representative point of the zone geometry.
func (z *TransferZone) Location() (orb.Point, bool) {
	switch g := z.Geometry.(type) {
	case nil:
		return orb.Point{}, false
	case orb.Point:
		return g, true
	default:
		p, _ := planar.CentroidArea(g)
		return p, true
	}
}

func (z *TransferZone) String() string {
	return fmt.Sprintf("zone#%d(%v)", z.ID, z.Source)
}
