// Package telemetry records what the daemon did to a local SQLite file:
// one row per run, every zone map switch, and periodic pipeline counters.
// It is optional; the pipeline runs the same without it.
package telemetry

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/ambilight/internal/ambient/l2zones"
	"github.com/banshee-data/ambilight/internal/ambient/pipeline"
	"github.com/banshee-data/ambilight/internal/monitoring"
	"github.com/banshee-data/ambilight/internal/timeutil"
	"github.com/banshee-data/ambilight/internal/version"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNoSession is returned when a write needs a session that was never
// started.
var ErrNoSession = errors.New("telemetry: no active session")

// switchQueueSize bounds the variant switches waiting for the writer.
const switchQueueSize = 16

// switchEvent is one variant switch captured on the pipeline thread.
type switchEvent struct {
	session  string
	at       time.Time
	from, to l2zones.Variant
	zones    int

	// flushed, when set, marks a Flush request instead of a switch.
	flushed chan struct{}
}

// Store wraps the telemetry database.
type Store struct {
	DB    *sql.DB
	path  string
	clock timeutil.Clock

	mu      sync.Mutex
	session string

	qmu      sync.Mutex
	closed   bool
	switches chan switchEvent
	done     chan struct{}
	dropped  atomic.Uint64
}

// Open opens (creating if needed) the database at path and migrates it to
// the latest schema.
func Open(path string, clock timeutil.Clock) (*Store, error) {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// modernc sqlite serialises writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	s := &Store{DB: db, path: path, clock: clock}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	s.startWriter()
	return s, nil
}

func (s *Store) startWriter() {
	s.switches = make(chan switchEvent, switchQueueSize)
	s.done = make(chan struct{})
	go s.writeSwitches()
}

// writeSwitches drains queued variant switches into the database until the
// queue is closed.
func (s *Store) writeSwitches() {
	defer close(s.done)
	for ev := range s.switches {
		if ev.flushed != nil {
			close(ev.flushed)
			continue
		}
		if err := s.insertSwitch(ev.session, ev.at, ev.from, ev.to, ev.zones); err != nil {
			monitoring.Logf("telemetry: failed to record variant switch: %v", err)
		}
	}
}

func (s *Store) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(s.DB, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = migrateLogger{}
	return m, nil
}

// MigrateUp applies every pending migration. Already being at the latest
// version is not an error.
func (s *Store) MigrateUp() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	// m is not closed: that would close s.DB.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// MigrateVersion returns the applied schema version; 0 when none.
func (s *Store) MigrateVersion() (uint, bool, error) {
	m, err := s.newMigrate()
	if err != nil {
		return 0, false, err
	}
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) {
	monitoring.Logf("[migrate] "+format, v...)
}

func (migrateLogger) Verbose() bool { return false }

// StartSession inserts a session row and makes it the target of later
// writes. It returns the new session ID.
func (s *Store) StartSession(ledCount int, configJSON string) (string, error) {
	id := uuid.NewString()
	if configJSON == "" {
		configJSON = "{}"
	}
	_, err := s.DB.Exec(
		`INSERT INTO sessions (session_id, started_at, led_count, version, config_json) VALUES (?, ?, ?, ?, ?)`,
		id, s.clock.Now().UnixNano(), ledCount, version.Version, configJSON,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert session: %w", err)
	}
	s.mu.Lock()
	s.session = id
	s.mu.Unlock()
	return id, nil
}

// EndSession stamps the current session's end time.
func (s *Store) EndSession() error {
	id := s.Session()
	if id == "" {
		return ErrNoSession
	}
	_, err := s.DB.Exec(`UPDATE sessions SET ended_at = ? WHERE session_id = ?`, s.clock.Now().UnixNano(), id)
	return err
}

// Session returns the active session ID, or "".
func (s *Store) Session() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// RecordVariantSwitch stores one zone map switch.
func (s *Store) RecordVariantSwitch(from, to l2zones.Variant, zones int) error {
	id := s.Session()
	if id == "" {
		return ErrNoSession
	}
	return s.insertSwitch(id, s.clock.Now(), from, to, zones)
}

func (s *Store) insertSwitch(id string, at time.Time, from, to l2zones.Variant, zones int) error {
	_, err := s.DB.Exec(
		`INSERT INTO variant_switches (session_id, at, from_variant, to_variant, zone_count) VALUES (?, ?, ?, ?, ?)`,
		id, at.UnixNano(), from.String(), to.String(), zones,
	)
	return err
}

// VariantChanged lets the store listen to the orchestrator directly. It is
// called on the processing goroutine, so it only queues the switch for the
// writer goroutine and never touches the database. A full queue drops the
// switch and counts it.
func (s *Store) VariantChanged(from, to l2zones.Variant, zones int) {
	id := s.Session()
	if id == "" {
		monitoring.Logf("telemetry: variant switch %s -> %s with no session", from, to)
		return
	}
	ev := switchEvent{session: id, at: s.clock.Now(), from: from, to: to, zones: zones}

	s.qmu.Lock()
	defer s.qmu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.switches <- ev:
	default:
		s.dropped.Add(1)
		monitoring.Logf("telemetry: switch queue full, dropped %s -> %s", from, to)
	}
}

// DroppedSwitches returns how many variant switches were dropped because
// the writer fell behind.
func (s *Store) DroppedSwitches() uint64 {
	return s.dropped.Load()
}

// Flush blocks until every variant switch queued before the call has been
// written.
func (s *Store) Flush() {
	s.qmu.Lock()
	if s.closed {
		s.qmu.Unlock()
		return
	}
	flushed := make(chan struct{})
	s.switches <- switchEvent{flushed: flushed}
	s.qmu.Unlock()
	<-flushed
}

// RecordStats stores one counter snapshot.
func (s *Store) RecordStats(snap pipeline.Snapshot) error {
	id := s.Session()
	if id == "" {
		return ErrNoSession
	}
	_, err := s.DB.Exec(
		`INSERT INTO frame_stats (
			session_id, at, processed, dropped, published, publish_errors,
			interpolated, skipped, mean_latency_us, stddev_latency_us, p95_latency_us
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, s.clock.Now().UnixNano(),
		snap.Processed, snap.Dropped, snap.Published, snap.PublishErrors,
		snap.Interpolated, snap.Skipped,
		snap.MeanLatencyUS, snap.StdDevLatencyUS, snap.P95LatencyUS,
	)
	return err
}

// StatsSource is anything that can produce a pipeline snapshot.
type StatsSource interface {
	Snapshot() pipeline.Snapshot
}

// RunStatsRecorder writes a snapshot every interval until ctx is done, and
// one final snapshot on the way out.
func (s *Store) RunStatsRecorder(ctx context.Context, src StatsSource, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := s.RecordStats(src.Snapshot()); err != nil {
				monitoring.Logf("telemetry: final stats write failed: %v", err)
			}
			return
		case <-ticker.C():
			if err := s.RecordStats(src.Snapshot()); err != nil {
				monitoring.Logf("telemetry: stats write failed: %v", err)
			}
		}
	}
}

// Close writes any queued variant switches and closes the database.
func (s *Store) Close() error {
	s.qmu.Lock()
	if !s.closed {
		s.closed = true
		close(s.switches)
	}
	s.qmu.Unlock()
	<-s.done
	return s.DB.Close()
}
