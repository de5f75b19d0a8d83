// Package api implements the RPC surface of SPEC_FULL.md §6: a hand-rolled
// gRPC service (JSON-codec, no protoc step, following the teacher's
// grpc_service.go pattern) exposing TranscribeFile (unary) and
// TranscribeStream (bidirectional).
package api

import (
	"context"
	"io"
	"sync"

	"github.com/Lsh0x/murmure-stt/audio"
	"github.com/Lsh0x/murmure-stt/dictionary"
	"github.com/Lsh0x/murmure-stt/internal/config"
	"github.com/Lsh0x/murmure-stt/internal/logging"
	"github.com/Lsh0x/murmure-stt/internal/service"
	"github.com/Lsh0x/murmure-stt/session"
)

// acousticEngine is the narrow surface Server depends on; a loaded
// *engine.Engine satisfies it. Kept local, like the matching interfaces in
// internal/service and session, so server_test.go can drive a real gRPC
// listener against a stub engine instead of a loaded ONNX model.
type acousticEngine interface {
	Infer(buf audio.Buffer) (string, error)
}

// Server is the process-wide RPC server: it owns no per-call state beyond
// what TranscribeFile/TranscribeStream allocate locally, since the Acoustic
// Engine and Phonetic Dictionary are themselves immutable and shared (§5).
type Server struct {
	Config *config.Config
	log    logging.Logger

	engine acousticEngine
	dict   *dictionary.Dictionary
	svc    *service.Transcription
}

// NewServer wires a loaded Acoustic Engine and optional Phonetic Dictionary
// into a Server ready to accept RPCs.
func NewServer(cfg *config.Config, log logging.Logger, eng acousticEngine, dict *dictionary.Dictionary) *Server {
	return &Server{
		Config: cfg,
		log:    log,
		engine: eng,
		dict:   dict,
		svc:    service.New(eng, dict),
	}
}

// Start runs the gRPC server until it exits (listener failure or Serve
// returning). It blocks the calling goroutine.
func (s *Server) Start() {
	s.startGRPCServer()
}

// TranscribeFile implements the unary RPC of §6: errors are surfaced
// in-band (success=false, error=message) rather than as a gRPC status, per
// "the RPC itself returns OK; errors are in-band."
func (s *Server) TranscribeFile(ctx context.Context, req *TranscribeFileRequest) (*TranscribeFileResponse, error) {
	text, err := s.svc.Transcribe(req.AudioData, req.UseDictionary)
	if err != nil {
		s.log.Warnf("TranscribeFile failed: %v", err)
		return &TranscribeFileResponse{Success: false, Error: err.Error()}, nil
	}
	return &TranscribeFileResponse{Text: text, Success: true}, nil
}

// TranscribeStream implements the bidirectional RPC of §6 by bridging the
// wire stream to a Streaming Session (§4.7): one goroutine forwards
// incoming StreamRequests into the session, the caller's goroutine drains
// the session's Responses() channel back onto the wire, preserving strict
// per-session response ordering (§5).
func (s *Server) TranscribeStream(stream Transcription_TranscribeStreamServer) error {
	useDictionary := s.dict != nil
	sess := session.New(s.engine, s.dict, useDictionary, s.log)

	ctx, cancel := context.WithCancel(stream.Context())
	defer cancel()

	go sess.Run(ctx)

	var recvErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			req, err := stream.Recv()
			if err != nil {
				if err != io.EOF {
					recvErr = err
				}
				return
			}
			if req.EndOfStream {
				if err := sess.SendEndOfStream(ctx); err != nil {
					return
				}
				continue
			}
			if len(req.AudioChunk) > 0 {
				if err := sess.SendChunk(ctx, req.AudioChunk); err != nil {
					return
				}
			}
		}
	}()

	for resp := range sess.Responses() {
		out := &StreamResponse{IsFinal: resp.IsFinal}
		if resp.Err != nil {
			out.Error = resp.Err.Error()
		} else {
			out.Text = resp.Text
		}
		if err := stream.Send(out); err != nil {
			cancel()
			break
		}
	}

	cancel()
	wg.Wait()
	return recvErr
}
