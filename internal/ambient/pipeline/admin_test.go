package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/ambilight/internal/ambient/l1frames"
	"github.com/banshee-data/ambilight/internal/ambient/l4color"
)

func TestAttachAdminRoutes(t *testing.T) {
	o := newTestOrchestrator(t, l4color.DefaultSettings(), nil, &capturePublisher{})
	require.NoError(t, o.Process(context.Background(), solid(100, 100, l1frames.ColorRGB{B: 50})))

	mux := http.NewServeMux()
	o.AttachAdminRoutes(mux)

	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "127.0.0.1:12345"
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		return rec
	}

	rec := get("/debug/pipeline")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, uint64(1), snap.Processed)
	assert.Equal(t, uint64(1), snap.Published)

	rec = get("/debug/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "zones=16 processed=1")
}
