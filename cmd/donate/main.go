package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"donationScope/internal/chain"
	"donationScope/internal/config"
	"donationScope/internal/donate"
	"donationScope/internal/storage"
	"donationScope/internal/wallet"
)

func main() {
	root := &cobra.Command{
		Use:          "donate",
		Short:        "Ethereum donation vault progress, leaderboard and payments",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	addChainFlags(root.PersistentFlags())

	progressCmd := &cobra.Command{
		Use:   "progress",
		Short: "Show how much the vault has received against the goal",
		RunE:  runProgress,
	}
	root.AddCommand(progressCmd)

	leaderboardCmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the top donors",
		RunE:  runLeaderboard,
	}
	leaderboardCmd.Flags().Bool("refresh", false, "ignore the cached leaderboard")
	root.AddCommand(leaderboardCmd)

	connectCmd := &cobra.Command{
		Use:   "connect",
		Short: "Show the account that signs donations",
		RunE:  runConnect,
	}
	root.AddCommand(connectCmd)

	sendCmd := &cobra.Command{
		Use:   "send AMOUNT",
		Short: "Donate AMOUNT ETH to the vault",
		Args:  cobra.ExactArgs(1),
		RunE:  runSend,
	}
	root.AddCommand(sendCmd)

	goalCmd := &cobra.Command{
		Use:   "goal [ETH]",
		Short: "Show or set the donation goal",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runGoal,
	}
	root.AddCommand(goalCmd)

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Archive Donation logs to JSONL or Postgres",
		RunE:  runSync,
	}
	syncCmd.Flags().String("archive", "jsonl:./data/donations.jsonl", "archive target (jsonl:<path> or postgres DSN)")
	syncCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	syncCmd.Flags().String("checkpoint", "./data/donations-checkpoint.json", "checkpoint file path")
	syncCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	root.AddCommand(syncCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the donation HTTP API",
		RunE:  runServe,
	}
	serveCmd.Flags().String("listen", ":8080", "HTTP listen address")
	serveCmd.Flags().Duration("refresh-interval", time.Minute, "how often progress and leaderboard are refreshed")
	root.AddCommand(serveCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addChainFlags(fs *pflag.FlagSet) {
	fs.String("chain", "sepolia", "chain name (mainnet, sepolia)")
	fs.String("contract", "", "DonationVault contract address")
	fs.String("infura-key", "", "Infura project key for the primary RPC")
	fs.String("rpc-primary", "", "primary RPC URL (overrides the Infura URL)")
	fs.String("rpc-fallback", "", "fallback RPC URL (overrides the public endpoint)")
	fs.Float64("goal-eth", 9, "default donation goal in ETH")
	fs.Uint64("deployment-block", 0, "block the vault was deployed at")
	fs.Uint64("batch-size", 2000, "blocks per log query")
	fs.Int("max-retries", 3, "maximum retry attempts per log query")
	fs.Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	fs.Duration("cache-ttl", 5*time.Minute, "leaderboard cache lifetime")
	fs.String("store", "file:./data/donate-store.json", "local storage (memory, file:<path>, sqlite:<path>, postgres DSN)")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
}

// runtime is everything a command needs once configuration is loaded.
type runtime struct {
	cfg     config.Config
	logger  *zap.Logger
	pool    *chain.Pool
	kv      storage.KV
	session *donate.Session
	closeKV func()
}

func (rt *runtime) Close() {
	rt.pool.Close()
	rt.closeKV()
	_ = rt.logger.Sync()
}

func setup(cmd *cobra.Command) (*runtime, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	endpoints, err := cfg.Endpoints()
	if err != nil {
		return nil, err
	}
	pool := chain.NewPool(endpoints, chain.Dial, logger.Named("rpc"))

	kv, closeKV, err := storage.OpenKV(cmd.Context(), cfg.Store, logger.Named("store"))
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}

	session, err := donate.NewSession(cmd.Context(), donate.Settings{
		Chain:           cfg.Chain,
		Contract:        cfg.Contract,
		GoalEth:         cfg.GoalEth,
		DeploymentBlock: cfg.DeploymentBlock,
		BatchSize:       cfg.BatchSize,
		MaxRetries:      cfg.MaxRetries,
		RetryBackoff:    cfg.RetryBackoff,
		CacheTTL:        cfg.CacheTTL,
	}, pool, kv, wallet.ProviderFromKey(cfg.PrivateKey, logger), logger)
	if err != nil {
		closeKV()
		pool.Close()
		return nil, err
	}

	return &runtime{cfg: cfg, logger: logger, pool: pool, kv: kv, session: session, closeKV: closeKV}, nil
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
