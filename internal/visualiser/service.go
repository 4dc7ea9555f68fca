package visualiser

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/banshee-data/ambilight/internal/ambient/l1frames"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "ambilight.preview.v1.Preview"

// StreamColorsMethod is the full method path of the colour stream.
const StreamColorsMethod = "/" + ServiceName + "/StreamColors"

// PreviewServer is the server side of the preview service. Each message on
// the stream is a BytesValue of packed RGB triples in strip order.
type PreviewServer interface {
	StreamColors(*emptypb.Empty, grpc.ServerStream) error
}

// The service only uses well-known types, so the descriptor is declared
// here rather than generated.
var previewServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PreviewServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamColors",
			Handler:       streamColorsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "ambilight/preview/v1/preview.proto",
}

func streamColorsHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(PreviewServer).StreamColors(in, stream)
}

// RegisterPreviewServer attaches srv to a gRPC server.
func RegisterPreviewServer(s grpc.ServiceRegistrar, srv PreviewServer) {
	s.RegisterService(&previewServiceDesc, srv)
}

// PackColors flattens colors into RGB bytes.
func PackColors(dst []byte, colors []l1frames.ColorRGB) []byte {
	dst = dst[:0]
	for _, c := range colors {
		dst = append(dst, c.R, c.G, c.B)
	}
	return dst
}

// UnpackColors is the inverse of PackColors.
func UnpackColors(b []byte) ([]l1frames.ColorRGB, error) {
	if len(b)%3 != 0 {
		return nil, fmt.Errorf("packed colours: %d bytes is not whole RGB triples", len(b))
	}
	out := make([]l1frames.ColorRGB, len(b)/3)
	for i := range out {
		out[i] = l1frames.ColorRGB{R: b[3*i], G: b[3*i+1], B: b[3*i+2]}
	}
	return out, nil
}

// ColorStream receives frames from a preview server.
type ColorStream struct {
	stream grpc.ClientStream
}

// Recv blocks for the next frame.
func (s *ColorStream) Recv() ([]l1frames.ColorRGB, error) {
	msg := new(wrapperspb.BytesValue)
	if err := s.stream.RecvMsg(msg); err != nil {
		return nil, err
	}
	return UnpackColors(msg.GetValue())
}

// StreamColors opens a colour stream on conn.
func StreamColors(ctx context.Context, conn grpc.ClientConnInterface, opts ...grpc.CallOption) (*ColorStream, error) {
	stream, err := conn.NewStream(ctx, &previewServiceDesc.Streams[0], StreamColorsMethod, opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &ColorStream{stream: stream}, nil
}
