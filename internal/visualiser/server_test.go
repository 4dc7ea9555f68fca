package visualiser

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/banshee-data/ambilight/internal/ambient/l1frames"
	"github.com/banshee-data/ambilight/internal/ambient/l2zones"
)

func startBufconn(t *testing.T, cfg Config) (*Server, *grpc.ClientConn) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := NewServer(cfg)
	s.Serve(lis)
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return s, conn
}

func TestPackColors(t *testing.T) {
	in := []l1frames.ColorRGB{{R: 1, G: 2, B: 3}, {R: 250, G: 0, B: 9}}
	packed := PackColors(nil, in)
	assert.Equal(t, []byte{1, 2, 3, 250, 0, 9}, packed)

	out, err := UnpackColors(packed)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = UnpackColors([]byte{1, 2})
	assert.Error(t, err)
}

func TestStreamColors(t *testing.T) {
	s, conn := startBufconn(t, DefaultConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stream, err := StreamColors(ctx, conn)
	require.NoError(t, err)

	// Wait for the server to register the client before publishing.
	require.Eventually(t, func() bool { return s.Stats().Clients == 1 }, 2*time.Second, 5*time.Millisecond)

	frame := []l1frames.ColorRGB{{R: 255}, {G: 128}, {B: 64}}
	require.NoError(t, s.Publish(frame))

	got, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, frame, got)
	assert.Equal(t, uint64(1), s.Stats().Frames)
}

func TestStreamColors_SlowClientDrops(t *testing.T) {
	s, conn := startBufconn(t, Config{ClientBuffer: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := StreamColors(ctx, conn)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return s.Stats().Clients == 1 }, 2*time.Second, 5*time.Millisecond)

	// The client never reads; flow control eventually backs up and the
	// per-client buffer overflows without blocking Publish.
	big := make([]l1frames.ColorRGB, 20000)
	done := make(chan struct{})
	go func() {
		for range 200 {
			_ = s.Publish(big)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Publish blocked on a slow client")
	}
	assert.Positive(t, s.Stats().Dropped)
}

func TestStreamColors_MaxClients(t *testing.T) {
	s, conn := startBufconn(t, Config{MaxClients: 1})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := StreamColors(ctx, conn)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return s.Stats().Clients == 1 }, 2*time.Second, 5*time.Millisecond)

	second, err := StreamColors(ctx, conn)
	require.NoError(t, err)
	_, err = second.Recv()
	assert.Error(t, err, "the second stream is refused")
}

func TestZonesChart(t *testing.T) {
	s := NewServer(DefaultConfig())
	require.NoError(t, s.Publish([]l1frames.ColorRGB{{R: 255, G: 16}, {B: 200}}))
	s.VariantChanged(l2zones.Fullscreen, l2zones.Letterbox, 2)

	mux := http.NewServeMux()
	s.AttachAdminRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/debug/zones", nil)
	req.RemoteAddr = "127.0.0.1:4000"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "#ff1000")
	assert.Contains(t, body, "#0000c8")
	assert.Contains(t, body, "variant=letterbox")

	req = httptest.NewRequest(http.MethodGet, "/debug/frame", nil)
	req.RemoteAddr = "127.0.0.1:4000"
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var frame framePayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &frame))
	assert.Equal(t, framePayload{Variant: "letterbox", Colors: []string{"#ff1000", "#0000c8"}}, frame)
}

func TestLastAndVariant(t *testing.T) {
	s := NewServer(Config{})
	colors, v := s.Last()
	assert.Empty(t, colors)
	assert.Equal(t, l2zones.Fullscreen, v)

	in := []l1frames.ColorRGB{{R: 9}}
	require.NoError(t, s.Publish(in))
	in[0].R = 10
	colors, _ = s.Last()
	assert.Equal(t, uint8(9), colors[0].R, "Last is a copy")
	assert.NoError(t, s.Close(), "closing an unstarted server is harmless")
}
