package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"runtime"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
)

// jsonCodec lets gRPC carry JSON payloads instead of protobuf, so the
// service can be declared by hand below without a .proto/protoc step.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }
func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}
func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// TranscriptionServer is the hand-written counterpart of a protoc-generated
// server interface for the two RPCs of §6: one unary call over a whole
// file, one bidirectional stream over chunks.
type TranscriptionServer interface {
	TranscribeFile(context.Context, *TranscribeFileRequest) (*TranscribeFileResponse, error)
	TranscribeStream(Transcription_TranscribeStreamServer) error
}

type Transcription_TranscribeStreamServer interface {
	Send(*StreamResponse) error
	Recv() (*StreamRequest, error)
	grpc.ServerStream
}

type transcribeStreamServer struct {
	grpc.ServerStream
}

func (x *transcribeStreamServer) Send(m *StreamResponse) error {
	return x.ServerStream.SendMsg(m)
}

func (x *transcribeStreamServer) Recv() (*StreamRequest, error) {
	m := new(StreamRequest)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func _Transcription_TranscribeFile_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(TranscribeFileRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TranscriptionServer).TranscribeFile(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/murmure.Transcription/TranscribeFile"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TranscriptionServer).TranscribeFile(ctx, req.(*TranscribeFileRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Transcription_TranscribeStream_Handler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(TranscriptionServer).TranscribeStream(&transcribeStreamServer{stream})
}

var _Transcription_serviceDesc = grpc.ServiceDesc{
	ServiceName: "murmure.Transcription",
	HandlerType: (*TranscriptionServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "TranscribeFile",
			Handler:    _Transcription_TranscribeFile_Handler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "TranscribeStream",
			Handler:       _Transcription_TranscribeStream_Handler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "internal/api/transcription.proto",
}

func RegisterTranscriptionServer(s *grpc.Server, srv TranscriptionServer) {
	s.RegisterService(&_Transcription_serviceDesc, srv)
}

func (s *Server) startGRPCServer() {
	addr := s.Config.GRPCAddr
	if addr == "" {
		if runtime.GOOS == "windows" {
			addr = `npipe:\\.\pipe\murmure-stt-grpc`
		} else {
			addr = "unix:///tmp/murmure-stt-grpc.sock"
		}
	}

	lis, err := listenGRPC(addr)
	if err != nil {
		s.log.Errorf("failed to start gRPC listener (%s): %v", addr, err)
		return
	}

	server := grpc.NewServer(
		grpc.Creds(insecure.NewCredentials()),
		grpc.ForceServerCodec(jsonCodec{}),
	)
	RegisterTranscriptionServer(server, s)

	s.log.Infof("gRPC listening on %s", addr)
	if err := server.Serve(lis); err != nil {
		s.log.Errorf("gRPC server stopped: %v", err)
	}
}

func listenGRPC(addr string) (net.Listener, error) {
	switch {
	case strings.HasPrefix(addr, "unix:"):
		socketPath := strings.TrimPrefix(addr, "unix:")
		socketPath = strings.TrimPrefix(socketPath, "//")
		if err := removeIfExists(socketPath); err != nil {
			return nil, err
		}
		return net.Listen("unix", socketPath)
	case strings.HasPrefix(addr, "npipe:"):
		pipePath := strings.TrimPrefix(addr, "npipe:")
		return listenPipe(pipePath)
	default:
		// Plain TCP addresses, including the ":PORT" address config.Load
		// sets by default.
		return net.Listen("tcp", addr)
	}
}

func removeIfExists(path string) error {
	if path == "" {
		return errors.New("empty socket path")
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
