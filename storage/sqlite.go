package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteSink writes exports into a SQLite file. Runs accumulate, every
// record carries its run id.
type SQLiteSink struct {
	conn *sql.DB
}

func OpenSQLite(ctx context.Context, file string) (*SQLiteSink, error) {
	conn, err := sql.Open("sqlite", file+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", file, err)
	}
	conn.SetMaxOpenConns(1)
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s: %w", file, err)
	}
	if _, err := conn.ExecContext(ctx, schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	log.Infof("sqlite output: %s", file)
	return &SQLiteSink{conn: conn}, nil
}

// Conn gives read access to the database.
func (s *SQLiteSink) Conn() *sql.DB {
	return s.conn
}

func (s *SQLiteSink) Write(ctx context.Context, e *Export) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "INSERT INTO runs (run_id, created_utc) VALUES (?, ?)",
		e.RunID, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	if err := writeZones(ctx, tx, e.Zones); err != nil {
		return err
	}
	if err := writeGroups(ctx, tx, e.Groups); err != nil {
		return err
	}
	if err := writeConnectoids(ctx, tx, e.Connectoids); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	log.Infof("run %s: %d zones, %d groups, %d connectoids written",
		e.RunID, len(e.Zones), len(e.Groups), len(e.Connectoids))
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func writeZones(ctx context.Context, tx *sql.Tx, zones []ZoneRecord) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transfer_zones (
			run_id, id, source, type, name, ref, modes, station_name,
			geometry, lon, lat, placeholder, dangling
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare zones: %w", err)
	}
	defer stmt.Close()
	for _, z := range zones {
		var lon, lat sql.NullFloat64
		if !z.Placeholder {
			lon = sql.NullFloat64{Float64: z.Lon, Valid: true}
			lat = sql.NullFloat64{Float64: z.Lat, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			z.RunID, z.ID, z.Source, z.Type, nullable(z.Name), nullable(z.Ref),
			nullable(strings.Join(z.Modes, ",")), nullable(z.StationName),
			nullable(z.Geometry), lon, lat, z.Placeholder, z.Dangling,
		); err != nil {
			return fmt.Errorf("insert zone %d: %w", z.ID, err)
		}
	}
	return nil
}

func writeGroups(ctx context.Context, tx *sql.Tx, groups []GroupRecord) error {
	groupStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO transfer_zone_groups (run_id, id, source, name) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare groups: %w", err)
	}
	defer groupStmt.Close()
	memberStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO group_zones (run_id, group_id, zone_id) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare group members: %w", err)
	}
	defer memberStmt.Close()
	for _, g := range groups {
		if _, err := groupStmt.ExecContext(ctx, g.RunID, g.ID, g.Source, nullable(g.Name)); err != nil {
			return fmt.Errorf("insert group %d: %w", g.ID, err)
		}
		for _, zone := range g.Zones {
			if _, err := memberStmt.ExecContext(ctx, g.RunID, g.ID, zone); err != nil {
				return fmt.Errorf("insert group %d member %d: %w", g.ID, zone, err)
			}
		}
	}
	return nil
}

func writeConnectoids(ctx context.Context, tx *sql.Tx, connectoids []ConnectoidRecord) error {
	connStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO connectoids (
			run_id, id, layer, direction, lon, lat, segment, link, way, access_node, osm_node
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare connectoids: %w", err)
	}
	defer connStmt.Close()
	accessStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO connectoid_zones (run_id, connectoid_id, zone_id, modes) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare connectoid zones: %w", err)
	}
	defer accessStmt.Close()
	for _, c := range connectoids {
		osmNode := sql.NullInt64{Int64: c.OSMNode, Valid: c.OSMNode != 0}
		if _, err := connStmt.ExecContext(ctx,
			c.RunID, c.ID, c.Layer, c.Direction, c.Lon, c.Lat, c.Segment, c.Link, c.Way, c.AccessNode, osmNode,
		); err != nil {
			return fmt.Errorf("insert connectoid %d: %w", c.ID, err)
		}
		for _, a := range c.Zones {
			if _, err := accessStmt.ExecContext(ctx, c.RunID, c.ID, a.Zone, strings.Join(a.Modes, ",")); err != nil {
				return fmt.Errorf("insert connectoid %d zone %d: %w", c.ID, a.Zone, err)
			}
		}
	}
	return nil
}

func (s *SQLiteSink) Close(context.Context) error {
	return s.conn.Close()
}
