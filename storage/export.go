package storage

import (
	"context"

	"git.fiblab.net/sim/ptaccess/zoning"
	"github.com/google/uuid"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/samber/lo"
)

type ZoneRecord struct {
	RunID       string   `bson:"run_id"`
	ID          int      `bson:"id"`
	Source      string   `bson:"source"`
	Type        string   `bson:"type"`
	Name        string   `bson:"name,omitempty"`
	Ref         string   `bson:"ref,omitempty"`
	Modes       []string `bson:"modes,omitempty"`
	StationName string   `bson:"station_name,omitempty"`
	// WKT, empty for placeholders
	Geometry    string  `bson:"geometry,omitempty"`
	Lon         float64 `bson:"lon"`
	Lat         float64 `bson:"lat"`
	Placeholder bool    `bson:"placeholder"`
	Dangling    bool    `bson:"dangling"`
	// ids of the groups holding the zone
	Groups []int `bson:"groups,omitempty"`
}

type GroupRecord struct {
	RunID  string `bson:"run_id"`
	ID     int    `bson:"id"`
	Source int64  `bson:"source"`
	Name   string `bson:"name,omitempty"`
	Zones  []int  `bson:"zones"`
}

type ZoneAccess struct {
	Zone  int      `bson:"zone"`
	Modes []string `bson:"modes"`
}

type ConnectoidRecord struct {
	RunID     string  `bson:"run_id"`
	ID        int     `bson:"id"`
	Layer     string  `bson:"layer"`
	Direction string  `bson:"direction"` // ab or ba
	Lon       float64 `bson:"lon"`
	Lat       float64 `bson:"lat"`
	// network ids of the access segment
	Segment    int64        `bson:"segment"`
	Link       int64        `bson:"link"`
	Way        int64        `bson:"way"`
	AccessNode int64        `bson:"access_node"`
	OSMNode    int64        `bson:"osm_node,omitempty"`
	Zones      []ZoneAccess `bson:"zones"`
}

// Export is the zoning of one run flattened into records.
type Export struct {
	RunID       string
	Zones       []ZoneRecord
	Groups      []GroupRecord
	Connectoids []ConnectoidRecord
}

// NewExport flattens z. Zones listed in dangling are flagged when flag is set.
func NewExport(z *zoning.Zoning, dangling []zoning.ZoneID, flag bool) *Export {
	runID := uuid.New().String()
	isDangling := lo.SliceToMap(dangling, func(id zoning.ZoneID) (zoning.ZoneID, bool) { return id, flag })

	zones := lo.Map(z.Zones(), func(zone *zoning.TransferZone, _ int) ZoneRecord {
		groups := lo.Map(z.GroupsOfZone(zone.ID), func(g *zoning.TransferZoneGroup, _ int) int {
			return int(g.ID)
		})
		r := ZoneRecord{
			RunID:       runID,
			ID:          int(zone.ID),
			Source:      zone.Source.String(),
			Type:        zone.Type.String(),
			Name:        zone.Name,
			Ref:         zone.RefCode,
			Modes:       zone.ServicedModes,
			StationName: zone.StationName,
			Placeholder: zone.Placeholder(),
			Dangling:    isDangling[zone.ID],
			Groups:      groups,
		}
		if p, ok := zone.Location(); ok {
			r.Lon, r.Lat = p.Lon(), p.Lat()
			r.Geometry = wkt.MarshalString(zone.Geometry)
		}
		return r
	})
	groups := lo.Map(z.Groups(), func(g *zoning.TransferZoneGroup, _ int) GroupRecord {
		return GroupRecord{
			RunID:  runID,
			ID:     int(g.ID),
			Source: int64(g.Source),
			Name:   g.Name,
			Zones:  lo.Map(g.Zones(), func(id zoning.ZoneID, _ int) int { return int(id) }),
		}
	})
	connectoids := lo.Map(z.Connectoids(), func(c *zoning.DirectedConnectoid, _ int) ConnectoidRecord {
		seg := c.AccessSegment
		direction := "ba"
		if seg.DirectionAB() {
			direction = "ab"
		}
		return ConnectoidRecord{
			RunID:      runID,
			ID:         c.ID,
			Layer:      c.Layer,
			Direction:  direction,
			Lon:        c.Location.Lon(),
			Lat:        c.Location.Lat(),
			Segment:    seg.ID,
			Link:       seg.Link.ID,
			Way:        int64(seg.Link.WayID),
			AccessNode: c.AccessNode().ID,
			OSMNode:    int64(c.AccessNode().ExternalID),
			Zones: lo.Map(c.AccessZones(), func(id zoning.ZoneID, _ int) ZoneAccess {
				return ZoneAccess{Zone: int(id), Modes: c.AllowedModes(id).Strings()}
			}),
		}
	})
	return &Export{RunID: runID, Zones: zones, Groups: groups, Connectoids: connectoids}
}

// Sink writes an export to its destination, replacing what it held.
type Sink interface {
	Write(ctx context.Context, e *Export) error
	Close(ctx context.Context) error
}

// Open returns the sink of path: SQLite for a file, MongoDB otherwise.
func Open(ctx context.Context, path *Path, mongoURI string) (Sink, error) {
	if path.IsFile() {
		s, err := OpenSQLite(ctx, path.File)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	s, err := OpenMongo(ctx, mongoURI, path)
	if err != nil {
		return nil, err
	}
	return s, nil
}
