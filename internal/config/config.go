// Package config loads the service's environment-variable configuration
// contract (see SPEC_FULL.md §6). The teacher parses flag.* against CLI
// arguments; that mechanism does not fit an env-var contract, so this is a
// from-scratch reader kept in the same flat-struct, Load()-constructor shape
// the teacher uses.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/Lsh0x/murmure-stt/internal/logging"
)

const defaultPort = "50051"

// Config holds the five enumerated environment variables the service
// consumes, plus the optional GRPC_ADDR listener override.
type Config struct {
	ModelPath           string
	DictionaryRulesPath string
	Dictionary          []string
	Port                string
	LogLevel            logging.Level
	GRPCAddr            string
}

// Load reads the configuration from the environment. It fails fast when
// MODEL_PATH is unset, matching §7's "refuses to start rather than serving
// broken requests" contract for model-related misconfiguration.
func Load() (*Config, error) {
	modelPath := os.Getenv("MODEL_PATH")
	if modelPath == "" {
		return nil, fmt.Errorf("MODEL_PATH is required")
	}

	cfg := &Config{
		ModelPath:           modelPath,
		DictionaryRulesPath: os.Getenv("DICTIONARY_RULES_PATH"),
		Port:                defaultPort,
		LogLevel:            logging.ParseLevel(os.Getenv("LOG_LEVEL")),
		GRPCAddr:            ":" + defaultPort,
	}

	if p := os.Getenv("PORT"); p != "" {
		if _, err := strconv.Atoi(p); err != nil {
			return nil, fmt.Errorf("PORT must be numeric: %w", err)
		}
		cfg.Port = p
		cfg.GRPCAddr = ":" + p
	}

	if raw := os.Getenv("DICTIONARY"); raw != "" {
		var terms []string
		if err := json.Unmarshal([]byte(raw), &terms); err != nil {
			return nil, fmt.Errorf("DICTIONARY must be a JSON array of strings: %w", err)
		}
		cfg.Dictionary = terms
	}

	// GRPC_ADDR is not part of §6's enumerated contract; it exists only so
	// operators can redirect the listener to a unix
	// socket or Windows named pipe instead of TCP, reusing the platform
	// shims in grpc_pipe_unix.go/grpc_pipe_windows.go.
	if addr := os.Getenv("GRPC_ADDR"); addr != "" {
		cfg.GRPCAddr = addr
	}

	return cfg, nil
}

// FuzzyMatchingEnabled reports whether the optional phonetic-rule resources
// directory was supplied. Its absence disables fuzzy (Levenshtein) matching
// but not exact phonetic-key matching, per §6.
func (c *Config) FuzzyMatchingEnabled() bool {
	return c.DictionaryRulesPath != ""
}
