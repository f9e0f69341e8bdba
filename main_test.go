package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-i2p/go-walletkit/lib/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "walletkit "+version+"\n", out.String())
}

func TestConfigCommandPrintsEffectiveConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	defer func() { config.CfgFile = "" }()

	file := filepath.Join(t.TempDir(), "kit.yaml")
	require.NoError(t, os.WriteFile(file, []byte("network: regtest\nfile_prefix: demo\n"), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"config", "--config", file})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "network: regtest")
	assert.Contains(t, out.String(), "file_prefix: demo")
	assert.Contains(t, out.String(), "max_connections: 4")
}
