// Command debugcli posts a WAV file to a running murmure-stt instance over
// the TranscribeFile RPC and prints the resulting transcript, for manual
// smoke-testing of a deployed model directory.
//
// Usage: go run ./cmd/debugcli -addr localhost:50051 -file sample.wav
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"

	"github.com/Lsh0x/murmure-stt/internal/api"
)

type jsonCodec struct{}

func (jsonCodec) Name() string                      { return "json" }
func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

func main() {
	addr := flag.String("addr", "localhost:50051", "murmure-stt gRPC address (host:port or unix:///path)")
	file := flag.String("file", "", "path to a WAV file to transcribe")
	useDict := flag.Bool("dict", true, "apply phonetic dictionary correction if configured")
	timeout := flag.Duration("timeout", 30*time.Second, "call deadline")
	flag.Parse()

	if *file == "" {
		log.Fatal("-file is required")
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("reading %s: %v", *file, err)
	}

	conn, err := grpc.NewClient(*addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype("json")),
	)
	if err != nil {
		log.Fatalf("dialing %s: %v", *addr, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	req := &api.TranscribeFileRequest{AudioData: data, UseDictionary: *useDict}
	resp := &api.TranscribeFileResponse{}
	if err := conn.Invoke(ctx, "/murmure.Transcription/TranscribeFile", req, resp); err != nil {
		log.Fatalf("TranscribeFile RPC failed: %v", err)
	}

	if !resp.Success {
		log.Fatalf("transcription failed: %s", resp.Error)
	}
	log.Println(resp.Text)
}
