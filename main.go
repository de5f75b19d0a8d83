package main

import (
	"log"
	"os"

	"github.com/Lsh0x/murmure-stt/dictionary"
	"github.com/Lsh0x/murmure-stt/engine"
	"github.com/Lsh0x/murmure-stt/internal/api"
	"github.com/Lsh0x/murmure-stt/internal/config"
	"github.com/Lsh0x/murmure-stt/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	logger, closeLog := logging.NewDefault(cfg.LogLevel, os.Getenv("TRACE_LOG"))
	defer closeLog()

	eng, err := engine.Load(cfg.ModelPath, logger)
	if err != nil {
		// ModelNotFound/ModelLoadError are fatal at startup (§7): refuse to
		// serve rather than run with a broken engine.
		logger.Errorf("failed to load acoustic engine: %v", err)
		os.Exit(1)
	}
	defer eng.Unload()

	var dict *dictionary.Dictionary
	if len(cfg.Dictionary) > 0 {
		dict = dictionary.New(cfg.Dictionary, dictionary.WithFuzzyMatching(cfg.FuzzyMatchingEnabled()))
	}

	server := api.NewServer(cfg, logger, eng, dict)
	logger.Infof("murmure-stt starting, grpc_addr=%s", cfg.GRPCAddr)
	server.Start()
}
