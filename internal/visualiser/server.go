// Package visualiser streams the published LED colours to preview clients
// over gRPC and renders the latest frame as a debug chart.
package visualiser

import (
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/banshee-data/ambilight/internal/ambient/l1frames"
	"github.com/banshee-data/ambilight/internal/ambient/l2zones"
)

// Config holds configuration for the preview server.
type Config struct {
	// ListenAddr is the gRPC listen address, e.g. "localhost:50061".
	ListenAddr string

	// MaxClients caps concurrent streams; zero means 5.
	MaxClients int

	// ClientBuffer is how many frames may queue per client before frames
	// are dropped for it.
	ClientBuffer int
}

// DefaultConfig returns a local-only preview server.
func DefaultConfig() Config {
	return Config{
		ListenAddr:   "localhost:50061",
		MaxClients:   5,
		ClientBuffer: 4,
	}
}

// Server fans published frames out to every connected preview stream.
// Publish never blocks: a client that falls behind loses frames.
type Server struct {
	config Config

	mu      sync.RWMutex
	clients map[uint64]chan []byte
	nextID  uint64
	last    []l1frames.ColorRGB
	variant l2zones.Variant

	frames  atomic.Uint64
	dropped atomic.Uint64

	grpcServer *grpc.Server
	listener   net.Listener
	running    atomic.Bool
	wg         sync.WaitGroup
}

// NewServer creates a Server. It does not listen until Start.
func NewServer(cfg Config) *Server {
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = 5
	}
	if cfg.ClientBuffer <= 0 {
		cfg.ClientBuffer = 4
	}
	return &Server{config: cfg, clients: make(map[uint64]chan []byte)}
}

// Start listens on ListenAddr and serves the preview service.
func (s *Server) Start() error {
	if s.running.Load() {
		return fmt.Errorf("preview server already running")
	}
	lis, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.Serve(lis)
	return nil
}

// Serve serves the preview service on lis in the background.
func (s *Server) Serve(lis net.Listener) {
	s.listener = lis
	s.grpcServer = grpc.NewServer()
	RegisterPreviewServer(s.grpcServer, s)
	s.running.Store(true)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		diagf("preview stream listening on %s", lis.Addr())
		if err := s.grpcServer.Serve(lis); err != nil && s.running.Load() {
			opsf("gRPC server error: %v", err)
		}
	}()
}

// Stop stops the gRPC server and ends every stream.
func (s *Server) Stop() {
	if !s.running.Swap(false) {
		return
	}
	s.mu.Lock()
	for id, ch := range s.clients {
		close(ch)
		delete(s.clients, id)
	}
	s.mu.Unlock()

	s.grpcServer.GracefulStop()
	s.wg.Wait()
	diagf("preview server stopped")
}

// StreamColors implements PreviewServer.
func (s *Server) StreamColors(_ *emptypb.Empty, stream grpc.ServerStream) error {
	id, ch, err := s.addClient()
	if err != nil {
		return err
	}
	defer s.removeClient(id)

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case packed, ok := <-ch:
			if !ok {
				return nil
			}
			if err := stream.SendMsg(wrapperspb.Bytes(packed)); err != nil {
				return err
			}
		}
	}
}

func (s *Server) addClient() (uint64, chan []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.clients) >= s.config.MaxClients {
		return 0, nil, fmt.Errorf("preview server: %d clients already connected", len(s.clients))
	}
	s.nextID++
	ch := make(chan []byte, s.config.ClientBuffer)
	s.clients[s.nextID] = ch
	diagf("client %d connected (total %d)", s.nextID, len(s.clients))
	return s.nextID, ch, nil
}

func (s *Server) removeClient(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.clients[id]; ok {
		close(ch)
		delete(s.clients, id)
		diagf("client %d disconnected (remaining %d)", id, len(s.clients))
	}
}

// Publish records colors as the latest frame and queues it for every
// client.
func (s *Server) Publish(colors []l1frames.ColorRGB) error {
	packed := PackColors(make([]byte, 0, 3*len(colors)), colors)

	s.mu.Lock()
	s.last = append(s.last[:0], colors...)
	s.mu.Unlock()
	s.frames.Add(1)

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.clients {
		select {
		case ch <- packed:
		default:
			s.dropped.Add(1)
		}
	}
	return nil
}

// VariantChanged remembers the active framing for the chart subtitle.
func (s *Server) VariantChanged(_, to l2zones.Variant, _ int) {
	s.mu.Lock()
	s.variant = to
	s.mu.Unlock()
}

// Close implements output.FrameSink.
func (s *Server) Close() error {
	s.Stop()
	return nil
}

// Last returns a copy of the latest frame and the active variant.
func (s *Server) Last() ([]l1frames.ColorRGB, l2zones.Variant) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]l1frames.ColorRGB(nil), s.last...), s.variant
}

// Stats contains preview server counters.
type Stats struct {
	Frames  uint64
	Dropped uint64
	Clients int
	Running bool
}

func (s *Server) Stats() Stats {
	s.mu.RLock()
	n := len(s.clients)
	s.mu.RUnlock()
	return Stats{
		Frames:  s.frames.Load(),
		Dropped: s.dropped.Load(),
		Clients: n,
		Running: s.running.Load(),
	}
}

func (st Stats) String() string {
	return "frames=" + strconv.FormatUint(st.Frames, 10) +
		" dropped=" + strconv.FormatUint(st.Dropped, 10) +
		" clients=" + strconv.Itoa(st.Clients)
}
