package telemetry

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"

	"github.com/banshee-data/ambilight/internal/httputil"
	"github.com/banshee-data/ambilight/internal/version"
)

// sessionDetail is the body of /debug/session.
type sessionDetail struct {
	ID       string          `json:"id"`
	Switches []VariantSwitch `json:"switches"`
	Stats    []FrameStats    `json:"stats"`
}

// AttachAdminRoutes mounts the telemetry pages under /debug/: live SQL via
// tailsql, a session list and per-session history.
func (s *Store) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)
	debug.KV("Version", version.String())

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("failed to create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://"+filepath.Base(s.path), s.DB, &tailsql.DBOptions{
		Label: "Ambilight telemetry",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.HandleFunc("sessions", "Recent daemon sessions", httputil.GetOnly(func(w http.ResponseWriter, r *http.Request) {
		sessions, err := s.Sessions(20)
		if err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
		httputil.WriteJSONOK(w, sessions)
	}))
	debug.HandleFunc("session", "Variant switches and counters for ?id= (default: current)", httputil.GetOnly(s.handleSession))
	debug.KVFunc("Session", func() any { return s.Session() })
	return nil
}

func (s *Store) handleSession(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		id = s.Session()
	}
	if id == "" {
		httputil.BadRequest(w, ErrNoSession.Error())
		return
	}

	switches, err := s.VariantSwitches(id)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	stats, err := s.FrameStatsFor(id)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if switches == nil && stats == nil {
		httputil.NotFound(w, fmt.Sprintf("no history for session %s", id))
		return
	}
	httputil.WriteJSONOK(w, sessionDetail{ID: id, Switches: switches, Stats: stats})
}
