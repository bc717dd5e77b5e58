package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"donationScope/internal/chain"
)

const envPrefix = "DONATE"

// CashfreeConfig holds the payment gateway credentials. Values are secrets.
type CashfreeConfig struct {
	AppID         string
	Secret        string
	Env           string
	APIVersion    string
	WebhookSecret string
}

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	Chain           string
	Contract        string
	InfuraKey       string
	RPCPrimary      string
	RPCFallback     string
	GoalEth         float64
	DeploymentBlock uint64
	BatchSize       uint64
	MaxRetries      int
	RetryBackoff    time.Duration
	CacheTTL        time.Duration
	Store           string
	PrivateKey      string

	Archive           string
	Checkpoint        string
	CheckpointEnabled bool

	Listen          string
	RefreshInterval time.Duration
	LogLevel        string

	Cashfree CashfreeConfig
}

// legacyEnv lists unprefixed variable names accepted for a key, in priority order.
var legacyEnv = map[string][]string{
	"infura-key":              {"INFURA_API_KEY"},
	"private-key":             {"PRIVATE_KEY"},
	"cashfree-app-id":         {"CASHFREE_APP_ID", "CASHFREE_CLIENT_ID"},
	"cashfree-secret":         {"CASHFREE_SECRET_KEY", "CASHFREE_CLIENT_SECRET"},
	"cashfree-env":            {"CF_ENV"},
	"cashfree-api-version":    {"CF_API_VERSION"},
	"cashfree-webhook-secret": {"CASHFREE_WEBHOOK_SECRET"},
}

// Load merges the .env file, config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, names := range legacyEnv {
		prefixed := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
		if err := v.BindEnv(append([]string{key, prefixed}, names...)...); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	v.SetDefault("chain", chain.Sepolia)
	v.SetDefault("goal-eth", 9.0)
	v.SetDefault("deployment-block", uint64(0))
	v.SetDefault("batch-size", uint64(2000))
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("cache-ttl", 5*time.Minute)
	v.SetDefault("store", "file:./data/donate-store.json")
	v.SetDefault("archive", "jsonl:./data/donations.jsonl")
	v.SetDefault("checkpoint", "./data/donations-checkpoint.json")
	v.SetDefault("checkpoint-enabled", true)
	v.SetDefault("listen", ":8080")
	v.SetDefault("refresh-interval", time.Minute)
	v.SetDefault("log-level", "info")
	v.SetDefault("cashfree-api-version", "2023-08-01")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		Chain:             v.GetString("chain"),
		Contract:          strings.TrimSpace(v.GetString("contract")),
		InfuraKey:         strings.TrimSpace(v.GetString("infura-key")),
		RPCPrimary:        v.GetString("rpc-primary"),
		RPCFallback:       v.GetString("rpc-fallback"),
		GoalEth:           v.GetFloat64("goal-eth"),
		DeploymentBlock:   v.GetUint64("deployment-block"),
		BatchSize:         v.GetUint64("batch-size"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		CacheTTL:          v.GetDuration("cache-ttl"),
		Store:             v.GetString("store"),
		PrivateKey:        v.GetString("private-key"),
		Archive:           v.GetString("archive"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		Listen:            v.GetString("listen"),
		RefreshInterval:   v.GetDuration("refresh-interval"),
		LogLevel:          v.GetString("log-level"),
		Cashfree: CashfreeConfig{
			AppID:         v.GetString("cashfree-app-id"),
			Secret:        v.GetString("cashfree-secret"),
			Env:           strings.ToUpper(strings.TrimSpace(v.GetString("cashfree-env"))),
			APIVersion:    v.GetString("cashfree-api-version"),
			WebhookSecret: v.GetString("cashfree-webhook-secret"),
		},
	}

	return cfg, nil
}

// Validate normalizes the chain name and checks the fields every command relies on.
func (c *Config) Validate() error {
	name, err := chain.NormalizeName(c.Chain)
	if err != nil {
		return err
	}
	c.Chain = name

	if c.Contract == "" {
		return errors.New("contract address is required")
	}
	if !common.IsHexAddress(c.Contract) {
		return fmt.Errorf("invalid contract address: %s", c.Contract)
	}
	if math.IsNaN(c.GoalEth) || math.IsInf(c.GoalEth, 0) || c.GoalEth <= 0 {
		return fmt.Errorf("goal-eth must be a positive number, got %v", c.GoalEth)
	}
	if c.BatchSize == 0 {
		return errors.New("batch-size must be greater than zero")
	}
	if c.MaxRetries < 0 {
		return errors.New("max-retries must not be negative")
	}
	if c.CacheTTL <= 0 {
		return errors.New("cache-ttl must be positive")
	}
	if strings.TrimSpace(c.Store) == "" {
		return errors.New("store is required")
	}
	if _, err := c.Endpoints(); err != nil {
		return err
	}
	return nil
}

// Endpoints resolves the primary and fallback RPC URLs.
func (c Config) Endpoints() (chain.Endpoints, error) {
	return chain.ResolveEndpoints(c.Chain, c.InfuraKey, c.RPCPrimary, c.RPCFallback)
}

// ContractAddress returns the checksummed contract address.
func (c Config) ContractAddress() common.Address {
	return common.HexToAddress(c.Contract)
}

// loadDotEnv fills unset environment variables from path when it exists.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
