package telemetry

import (
	"time"
)

// Session is one daemon run.
type Session struct {
	ID         string
	StartedAt  time.Time
	EndedAt    time.Time // zero while running
	LEDCount   int
	Version    string
	ConfigJSON string
}

// VariantSwitch is one recorded zone map change.
type VariantSwitch struct {
	At    time.Time
	From  string
	To    string
	Zones int
}

// FrameStats is one recorded counter snapshot.
type FrameStats struct {
	At              time.Time
	Processed       uint64
	Dropped         uint64
	Published       uint64
	PublishErrors   uint64
	Interpolated    uint64
	Skipped         uint64
	MeanLatencyUS   float64
	StdDevLatencyUS float64
	P95LatencyUS    float64
}

// Sessions returns the most recent sessions, newest first.
func (s *Store) Sessions(limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.Query(
		`SELECT session_id, started_at, COALESCE(ended_at, 0), led_count, version, config_json
		 FROM sessions ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		var started, ended int64
		if err := rows.Scan(&sess.ID, &started, &ended, &sess.LEDCount, &sess.Version, &sess.ConfigJSON); err != nil {
			return nil, err
		}
		sess.StartedAt = time.Unix(0, started)
		if ended != 0 {
			sess.EndedAt = time.Unix(0, ended)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// VariantSwitches returns a session's switches in order.
func (s *Store) VariantSwitches(sessionID string) ([]VariantSwitch, error) {
	rows, err := s.DB.Query(
		`SELECT at, from_variant, to_variant, zone_count FROM variant_switches
		 WHERE session_id = ? ORDER BY at, rowid`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []VariantSwitch
	for rows.Next() {
		var v VariantSwitch
		var at int64
		if err := rows.Scan(&at, &v.From, &v.To, &v.Zones); err != nil {
			return nil, err
		}
		v.At = time.Unix(0, at)
		out = append(out, v)
	}
	return out, rows.Err()
}

// FrameStatsFor returns a session's counter snapshots in order.
func (s *Store) FrameStatsFor(sessionID string) ([]FrameStats, error) {
	rows, err := s.DB.Query(
		`SELECT at, processed, dropped, published, publish_errors, interpolated, skipped,
		        mean_latency_us, stddev_latency_us, p95_latency_us
		 FROM frame_stats WHERE session_id = ? ORDER BY at, rowid`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FrameStats
	for rows.Next() {
		var f FrameStats
		var at int64
		if err := rows.Scan(&at, &f.Processed, &f.Dropped, &f.Published, &f.PublishErrors,
			&f.Interpolated, &f.Skipped, &f.MeanLatencyUS, &f.StdDevLatencyUS, &f.P95LatencyUS); err != nil {
			return nil, err
		}
		f.At = time.Unix(0, at)
		out = append(out, f)
	}
	return out, rows.Err()
}
