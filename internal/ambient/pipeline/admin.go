package pipeline

import (
	"fmt"
	"net/http"

	"tailscale.com/tsweb"

	"github.com/banshee-data/ambilight/internal/httputil"
)

// AttachAdminRoutes mounts /debug/pipeline, the live counters and latency,
// and a summary line on the debug index.
func (o *Orchestrator) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	debug.KVFunc("Pipeline", func() any {
		snap := o.stats.Snapshot()
		return fmt.Sprintf("zones=%d processed=%d dropped=%d published=%d",
			o.zones.Active().Len(), snap.Processed, snap.Dropped, snap.Published)
	})
	debug.HandleFunc("pipeline", "Pipeline counters and latency", httputil.GetOnly(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSONOK(w, o.stats.Snapshot())
	}))
}
