package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/ambilight/internal/ambient/l2zones"
	"github.com/banshee-data/ambilight/internal/ambient/pipeline"
	"github.com/banshee-data/ambilight/internal/monitoring"
	"github.com/banshee-data/ambilight/internal/timeutil"
)

func openTestStore(t *testing.T, clock timeutil.Clock) *Store {
	t.Helper()
	monitoring.SetLogger(t.Logf)
	t.Cleanup(func() { monitoring.SetLogger(nil) })

	s, err := Open(filepath.Join(t.TempDir(), "telemetry.db"), clock)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

type fixedStats pipeline.Snapshot

func (f fixedStats) Snapshot() pipeline.Snapshot { return pipeline.Snapshot(f) }

func TestOpen_MigratesToLatest(t *testing.T) {
	s := openTestStore(t, nil)

	v, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), v)
	assert.False(t, dirty)

	// Re-running is a no-op.
	require.NoError(t, s.MigrateUp())

	for _, table := range []string{"sessions", "variant_switches", "frame_stats"} {
		var name string
		err := s.DB.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		assert.NoError(t, err, table)
	}
}

func TestSessionLifecycle(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(1700000000, 0))
	s := openTestStore(t, clock)

	assert.ErrorIs(t, s.RecordVariantSwitch(l2zones.Fullscreen, l2zones.Letterbox, 10), ErrNoSession)

	id, err := s.StartSession(100, `{"gamma":2.2}`)
	require.NoError(t, err)
	assert.Len(t, id, 36)
	assert.Equal(t, id, s.Session())

	clock.Advance(time.Minute)
	require.NoError(t, s.EndSession())

	sessions, err := s.Sessions(0)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, 100, sessions[0].LEDCount)
	assert.Equal(t, `{"gamma":2.2}`, sessions[0].ConfigJSON)
	assert.Equal(t, time.Minute, sessions[0].EndedAt.Sub(sessions[0].StartedAt))
}

func TestVariantChanged_Records(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(1700000000, 0))
	s := openTestStore(t, clock)
	id, err := s.StartSession(50, "")
	require.NoError(t, err)

	s.VariantChanged(l2zones.Fullscreen, l2zones.Letterbox, 50)
	clock.Advance(time.Second)
	s.VariantChanged(l2zones.Letterbox, l2zones.Fullscreen, 50)
	// The switch time is taken when the listener fires, not when the
	// writer gets to it.
	clock.Advance(time.Minute)
	s.Flush()

	switches, err := s.VariantSwitches(id)
	require.NoError(t, err)
	require.Len(t, switches, 2)
	assert.Equal(t, "fullscreen", switches[0].From)
	assert.Equal(t, "letterbox", switches[0].To)
	assert.Equal(t, "fullscreen", switches[1].To)
	assert.Equal(t, 50, switches[1].Zones)
	assert.Equal(t, time.Unix(1700000000, 0).UnixNano(), switches[0].At.UnixNano())
	assert.Equal(t, time.Unix(1700000001, 0).UnixNano(), switches[1].At.UnixNano())
}

func TestVariantChanged_NeverBlocks(t *testing.T) {
	monitoring.SetLogger(t.Logf)
	t.Cleanup(func() { monitoring.SetLogger(nil) })

	// No writer drains this queue, as when the database is stuck.
	s := &Store{clock: timeutil.NewMockClock(time.Unix(0, 0)), session: "stuck"}
	s.switches = make(chan switchEvent, 1)

	done := make(chan struct{})
	go func() {
		for range 5 {
			s.VariantChanged(l2zones.Fullscreen, l2zones.Letterbox, 8)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("VariantChanged blocked on a full queue")
	}
	assert.Equal(t, uint64(4), s.DroppedSwitches())
	assert.Len(t, s.switches, 1)
}

func TestClose_WritesQueuedSwitches(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.db")
	s, err := Open(path, nil)
	require.NoError(t, err)
	id, err := s.StartSession(4, "")
	require.NoError(t, err)
	s.VariantChanged(l2zones.Fullscreen, l2zones.Pillarbox, 4)
	require.NoError(t, s.Close())
	s.VariantChanged(l2zones.Pillarbox, l2zones.Fullscreen, 4) // after close: ignored

	s, err = Open(path, nil)
	require.NoError(t, err)
	defer s.Close()
	switches, err := s.VariantSwitches(id)
	require.NoError(t, err)
	require.Len(t, switches, 1)
	assert.Equal(t, "pillarbox", switches[0].To)
}

func TestRunStatsRecorder(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(1700000000, 0))
	s := openTestStore(t, clock)
	id, err := s.StartSession(10, "")
	require.NoError(t, err)

	src := fixedStats{Processed: 42, Dropped: 3, MeanLatencyUS: 120.5, P95LatencyUS: 300}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunStatsRecorder(ctx, src, time.Second)
		close(done)
	}()

	require.Eventually(t, func() bool {
		clock.Advance(time.Second)
		rows, err := s.FrameStatsFor(id)
		return err == nil && len(rows) >= 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done

	rows, err := s.FrameStatsFor(id)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 2, "a final snapshot is written on shutdown")
	assert.Equal(t, uint64(42), rows[0].Processed)
	assert.Equal(t, uint64(3), rows[0].Dropped)
	assert.InDelta(t, 120.5, rows[0].MeanLatencyUS, 1e-9)
	assert.InDelta(t, 300, rows[0].P95LatencyUS, 1e-9)
}

func TestAttachAdminRoutes(t *testing.T) {
	s := openTestStore(t, nil)
	_, err := s.StartSession(24, "")
	require.NoError(t, err)

	mux := http.NewServeMux()
	require.NoError(t, s.AttachAdminRoutes(mux))

	// tsweb only serves /debug/ to loopback or tailnet callers.
	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "127.0.0.1:12345"
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		return rec
	}

	rec := get("/debug/sessions")
	require.Equal(t, http.StatusOK, rec.Code)
	var sessions []Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sessions))
	require.Len(t, sessions, 1)
	assert.Equal(t, 24, sessions[0].LEDCount)

	rec = get("/debug/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tailsql")
}

func TestAdminSessionDetail(t *testing.T) {
	s := openTestStore(t, nil)
	mux := http.NewServeMux()
	require.NoError(t, s.AttachAdminRoutes(mux))

	do := func(method, path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		req.RemoteAddr = "127.0.0.1:12345"
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusBadRequest, do(http.MethodGet, "/debug/session").Code, "no current session")

	id, err := s.StartSession(10, "")
	require.NoError(t, err)
	require.NoError(t, s.RecordVariantSwitch(l2zones.Fullscreen, l2zones.Pillarbox, 10))

	rec := do(http.MethodGet, "/debug/session")
	require.Equal(t, http.StatusOK, rec.Code)
	var detail sessionDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, id, detail.ID)
	require.Len(t, detail.Switches, 1)
	assert.Equal(t, "pillarbox", detail.Switches[0].To)

	assert.Equal(t, http.StatusNotFound, do(http.MethodGet, "/debug/session?id=missing").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(http.MethodPost, "/debug/sessions").Code)
}
