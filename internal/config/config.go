// Package config resolves the engine's data directory, listen address,
// and log level from environment variables and CLI flags, per
// SPEC_FULL.md §4.H. Flags win over the matching env var; both are
// optional except DataDir.
package config

import (
	"errors"
	"os"
)

type Config struct {
	DataDir  string
	Addr     string
	LogLevel string
}

const (
	envDataDir  = "ENGINE_DATA_DIR"
	envAddr     = "ENGINE_ADDR"
	envLogLevel = "ENGINE_LOG_LEVEL"

	defaultAddr     = ":8080"
	defaultLogLevel = "info"
)

// Flags mirrors the subset of cmd/engine and cmd/httpd's go-flags
// options that feed into a Config, so both binaries resolve the same way.
type Flags struct {
	DataDir  string `short:"d" long:"data-dir" description:"engine data directory"`
	Addr     string `long:"addr" description:"HTTP listen address"`
	LogLevel string `long:"log-level" description:"zap log level (debug|info|warn|error)"`
}

// Resolve merges flags over environment variables over defaults. DataDir
// has no default: a data directory must be named explicitly, the same
// way sqldef takes its target as a required positional argument rather
// than guessing one.
func Resolve(f Flags) (Config, error) {
	cfg := Config{
		DataDir:  firstNonEmpty(f.DataDir, os.Getenv(envDataDir)),
		Addr:     firstNonEmpty(f.Addr, os.Getenv(envAddr), defaultAddr),
		LogLevel: firstNonEmpty(f.LogLevel, os.Getenv(envLogLevel), defaultLogLevel),
	}
	if cfg.DataDir == "" {
		return Config{}, errors.New("no data directory given: set " + envDataDir + " or pass --data-dir")
	}
	return cfg, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
