package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lawnchairsociety/levelforge/internal/geom"
	"github.com/lawnchairsociety/levelforge/internal/level"
	"github.com/lawnchairsociety/levelforge/internal/room"
)

var (
	ErrLayoutNotFound = errors.New("storage: layout not found")
	ErrLayoutExists   = errors.New("storage: layout already stored")
)

// LayoutSummary is one row of the layout listing.
type LayoutSummary struct {
	ID          int64
	Fingerprint string
	Seed        int64
	RoomAmount  int
	LevelShape  float64
	CreatedAt   time.Time
}

// SaveLayout stores a finished layout and returns its id. A layout whose
// fingerprint is already stored is not written again; its existing id is
// returned along with ErrLayoutExists.
func (s *Store) SaveLayout(l *level.Layout) (int64, error) {
	fingerprint := l.Fingerprint()

	if id, err := s.FindByFingerprint(fingerprint); err == nil {
		return id, ErrLayoutExists
	} else if !errors.Is(err, ErrLayoutNotFound) {
		return 0, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := s.qb.BuildWithReturning(`
		INSERT INTO layouts (fingerprint, seed, room_amount, level_shape, interconnectivity, unit_size,
			start_room, spawn_room, spawn_x, spawn_y, spawn_z, ticks, retry_waves, fallbacks, draws, wraps)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, "id")
	args := []any{
		fingerprint, l.Seed, len(l.Rooms), l.LevelShape, l.Interconnectivity, l.UnitSize,
		l.StartRoomID, l.Spawn.RoomID, l.Spawn.X, l.Spawn.Y, l.Spawn.Z,
		l.Ticks, l.RetryWaves, l.Fallbacks, l.Draws, l.Wraps,
	}

	var layoutID int64
	if s.dialect.SupportsLastInsertID() {
		result, err := tx.Exec(query, args...)
		if err != nil {
			return 0, s.insertError(err)
		}
		if layoutID, err = result.LastInsertId(); err != nil {
			return 0, fmt.Errorf("failed to get layout ID: %w", err)
		}
	} else if err := tx.QueryRow(query, args...).Scan(&layoutID); err != nil {
		return 0, s.insertError(err)
	}

	roomStmt := s.qb.Build(`
		INSERT INTO layout_rooms (layout_id, room_id, room_type, template, x, z, yaw, cells, lights)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	gateStmt := s.qb.Build(`
		INSERT INTO layout_gates (layout_id, room_id, gate_index, x, z, direction, state, peer)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)

	for _, r := range l.Rooms {
		cells, err := json.Marshal(r.Cells)
		if err != nil {
			return 0, fmt.Errorf("failed to encode cells of room %d: %w", r.ID, err)
		}
		lights, err := json.Marshal(r.Lights)
		if err != nil {
			return 0, fmt.Errorf("failed to encode lights of room %d: %w", r.ID, err)
		}
		if _, err := tx.Exec(roomStmt, layoutID, r.ID, r.Type.String(), r.Template,
			r.Position.X, r.Position.Z, r.Yaw, string(cells), string(lights)); err != nil {
			return 0, fmt.Errorf("failed to insert room %d: %w", r.ID, err)
		}

		for _, g := range r.Gates {
			if _, err := tx.Exec(gateStmt, layoutID, r.ID, g.Index, g.Position.X, g.Position.Z,
				g.Direction.String(), g.State.String(), g.Peer); err != nil {
				return 0, fmt.Errorf("failed to insert gate %d of room %d: %w", g.Index, r.ID, err)
			}
		}
	}

	edgeStmt := s.qb.Build(`INSERT INTO layout_edges (layout_id, room_a, room_b, weight) VALUES (?, ?, ?, ?)`)
	for _, e := range l.Graph.Edges() {
		if _, err := tx.Exec(edgeStmt, layoutID, e.A, e.B, e.Weight); err != nil {
			return 0, fmt.Errorf("failed to insert edge %d-%d: %w", e.A, e.B, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return layoutID, nil
}

func (s *Store) insertError(err error) error {
	if s.dialect.IsDuplicateKeyError(err) {
		return ErrLayoutExists
	}
	return fmt.Errorf("failed to insert layout: %w", err)
}

// FindByFingerprint returns the id of the stored layout with the given fingerprint.
func (s *Store) FindByFingerprint(fingerprint string) (int64, error) {
	var id int64
	err := s.db.QueryRow(s.qb.Build(`SELECT id FROM layouts WHERE fingerprint = ?`), fingerprint).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, ErrLayoutNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query layout: %w", err)
	}
	return id, nil
}

// LoadLayout rebuilds a stored layout.
func (s *Store) LoadLayout(id int64) (*level.Layout, error) {
	l := &level.Layout{}
	var roomAmount int
	err := s.db.QueryRow(s.qb.Build(`
		SELECT seed, room_amount, level_shape, interconnectivity, unit_size, start_room,
			spawn_room, spawn_x, spawn_y, spawn_z, ticks, retry_waves, fallbacks, draws, wraps
		FROM layouts WHERE id = ?`), id).Scan(
		&l.Seed, &roomAmount, &l.LevelShape, &l.Interconnectivity, &l.UnitSize, &l.StartRoomID,
		&l.Spawn.RoomID, &l.Spawn.X, &l.Spawn.Y, &l.Spawn.Z,
		&l.Ticks, &l.RetryWaves, &l.Fallbacks, &l.Draws, &l.Wraps)
	if err == sql.ErrNoRows {
		return nil, ErrLayoutNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query layout: %w", err)
	}

	if l.Rooms, err = s.loadRooms(id, roomAmount); err != nil {
		return nil, err
	}
	if err := s.loadGates(id, l.Rooms); err != nil {
		return nil, err
	}

	edges, err := s.loadEdges(id)
	if err != nil {
		return nil, err
	}
	l.Graph = level.GraphFromEdges(len(l.Rooms), edges)

	return l, nil
}

func (s *Store) loadRooms(layoutID int64, expected int) ([]level.RoomRecord, error) {
	rows, err := s.db.Query(s.qb.Build(`
		SELECT room_id, room_type, template, x, z, yaw, cells, lights
		FROM layout_rooms WHERE layout_id = ? ORDER BY room_id`), layoutID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rooms: %w", err)
	}
	defer rows.Close()

	rooms := make([]level.RoomRecord, 0, expected)
	for rows.Next() {
		var r level.RoomRecord
		var roomType, cells, lights string
		if err := rows.Scan(&r.ID, &roomType, &r.Template, &r.Position.X, &r.Position.Z, &r.Yaw, &cells, &lights); err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		if r.Type, err = room.ParseType(roomType); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(cells), &r.Cells); err != nil {
			return nil, fmt.Errorf("failed to decode cells of room %d: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(lights), &r.Lights); err != nil {
			return nil, fmt.Errorf("failed to decode lights of room %d: %w", r.ID, err)
		}
		if r.ID != len(rooms) {
			return nil, fmt.Errorf("room ids not contiguous: found %d at position %d", r.ID, len(rooms))
		}
		rooms = append(rooms, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(rooms) != expected {
		return nil, fmt.Errorf("layout %d has %d rooms, header says %d", layoutID, len(rooms), expected)
	}
	return rooms, nil
}

func (s *Store) loadGates(layoutID int64, rooms []level.RoomRecord) error {
	rows, err := s.db.Query(s.qb.Build(`
		SELECT room_id, gate_index, x, z, direction, state, peer
		FROM layout_gates WHERE layout_id = ? ORDER BY room_id, gate_index`), layoutID)
	if err != nil {
		return fmt.Errorf("failed to query gates: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var roomID int
		var g level.GateRecord
		var dir, state string
		if err := rows.Scan(&roomID, &g.Index, &g.Position.X, &g.Position.Z, &dir, &state, &g.Peer); err != nil {
			return fmt.Errorf("failed to scan gate: %w", err)
		}
		if roomID < 0 || roomID >= len(rooms) {
			return fmt.Errorf("gate references unknown room %d", roomID)
		}
		if g.Direction, err = geom.ParseDir(dir); err != nil {
			return err
		}
		if g.State, err = room.ParseGateState(state); err != nil {
			return err
		}
		rooms[roomID].Gates = append(rooms[roomID].Gates, g)
	}
	return rows.Err()
}

func (s *Store) loadEdges(layoutID int64) ([]level.Edge, error) {
	rows, err := s.db.Query(s.qb.Build(`
		SELECT room_a, room_b, weight FROM layout_edges WHERE layout_id = ? ORDER BY room_a, room_b`), layoutID)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	var edges []level.Edge
	for rows.Next() {
		var e level.Edge
		if err := rows.Scan(&e.A, &e.B, &e.Weight); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// ListLayouts returns the most recently stored layouts first. limit <= 0
// returns all of them.
func (s *Store) ListLayouts(limit int) ([]LayoutSummary, error) {
	query := `SELECT id, fingerprint, seed, room_amount, level_shape, created_at FROM layouts ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(s.qb.Build(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list layouts: %w", err)
	}
	defer rows.Close()

	var out []LayoutSummary
	for rows.Next() {
		var ls LayoutSummary
		var created sql.NullString
		if err := rows.Scan(&ls.ID, &ls.Fingerprint, &ls.Seed, &ls.RoomAmount, &ls.LevelShape, &created); err != nil {
			return nil, fmt.Errorf("failed to scan layout: %w", err)
		}
		ls.CreatedAt = parseTimestamp(created.String)
		out = append(out, ls)
	}
	return out, rows.Err()
}

// parseTimestamp reads CURRENT_TIMESTAMP as returned by either driver.
func parseTimestamp(v string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// DeleteLayout removes a layout and everything that belongs to it.
func (s *Store) DeleteLayout(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"layout_edges", "layout_gates", "layout_rooms"} {
		if _, err := tx.Exec(s.qb.Build(`DELETE FROM `+table+` WHERE layout_id = ?`), id); err != nil {
			return fmt.Errorf("failed to delete from %s: %w", table, err)
		}
	}

	result, err := tx.Exec(s.qb.Build(`DELETE FROM layouts WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete layout: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete: %w", err)
	}
	if n == 0 {
		return ErrLayoutNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// CountLayouts returns how many layouts are stored
func (s *Store) CountLayouts() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM layouts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count layouts: %w", err)
	}
	return n, nil
}
