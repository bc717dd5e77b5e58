package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testContract = "0x1E965D8002C4dd60B900A8DA21533a8482acd164"

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DONATE_CONTRACT", testContract)
	t.Setenv("DONATE_INFURA_KEY", "abc123")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "sepolia", cfg.Chain)
	assert.Equal(t, 9.0, cfg.GoalEth)
	assert.Equal(t, uint64(0), cfg.DeploymentBlock)
	assert.Equal(t, uint64(2000), cfg.BatchSize)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "file:./data/donate-store.json", cfg.Store)
	assert.Equal(t, "2023-08-01", cfg.Cashfree.APIVersion)

	eps, err := cfg.Endpoints()
	require.NoError(t, err)
	assert.Equal(t, "https://sepolia.infura.io/v3/abc123", eps.Primary)
	assert.Equal(t, "https://rpc.sepolia.org", eps.Fallback)
}

func TestLoadLegacyEnvNames(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DONATE_CONTRACT", testContract)
	t.Setenv("INFURA_API_KEY", "legacy")
	t.Setenv("CASHFREE_CLIENT_ID", "client-id")
	t.Setenv("CF_ENV", "sandbox")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "legacy", cfg.InfuraKey)
	assert.Equal(t, "client-id", cfg.Cashfree.AppID)
	assert.Equal(t, "SANDBOX", cfg.Cashfree.Env)
}

func TestLoadDotEnvAndFlags(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DONATE_CONTRACT="+testContract+"\nDONATE_RPC_PRIMARY=http://localhost:8545\n"), 0o644))
	t.Cleanup(func() {
		os.Unsetenv("DONATE_CONTRACT")
		os.Unsetenv("DONATE_RPC_PRIMARY")
	})

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("chain", "sepolia", "")
	flags.Float64("goal-eth", 9, "")
	require.NoError(t, flags.Parse([]string{"--chain", "MAINNET", "--goal-eth", "12.5"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "mainnet", cfg.Chain)
	assert.Equal(t, 12.5, cfg.GoalEth)

	eps, err := cfg.Endpoints()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8545", eps.Primary)
	assert.Equal(t, "https://cloudflare-eth.com", eps.Fallback)
}

func TestValidate(t *testing.T) {
	base := Config{
		Chain:     "sepolia",
		Contract:  testContract,
		InfuraKey: "k",
		GoalEth:   9,
		BatchSize: 2000,
		CacheTTL:  5 * time.Minute,
		Store:     "memory",
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing contract", func(c *Config) { c.Contract = "" }},
		{"bad contract", func(c *Config) { c.Contract = "0x1234" }},
		{"unknown chain", func(c *Config) { c.Chain = "goerli" }},
		{"zero goal", func(c *Config) { c.GoalEth = 0 }},
		{"zero batch", func(c *Config) { c.BatchSize = 0 }},
		{"no endpoint", func(c *Config) { c.InfuraKey = "" }},
		{"no store", func(c *Config) { c.Store = " " }},
	}

	ok := base
	require.NoError(t, ok.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (stand-in for testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
