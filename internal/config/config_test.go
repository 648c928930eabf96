package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveFlagsWinOverEnv(t *testing.T) {
	t.Setenv(envDataDir, "/env/data")
	t.Setenv(envAddr, ":9999")
	t.Setenv(envLogLevel, "debug")

	cfg, err := Resolve(Flags{DataDir: "/flag/data"})
	require.NoError(t, err)
	require.Equal(t, "/flag/data", cfg.DataDir)
	require.Equal(t, ":9999", cfg.Addr)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestResolveDefaults(t *testing.T) {
	t.Setenv(envDataDir, "")
	t.Setenv(envAddr, "")
	t.Setenv(envLogLevel, "")

	cfg, err := Resolve(Flags{DataDir: "/data"})
	require.NoError(t, err)
	require.Equal(t, defaultAddr, cfg.Addr)
	require.Equal(t, defaultLogLevel, cfg.LogLevel)
}

func TestResolveRequiresDataDir(t *testing.T) {
	t.Setenv(envDataDir, "")
	_, err := Resolve(Flags{})
	require.Error(t, err)
}
