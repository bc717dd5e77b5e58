package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"donationScope/internal/donate"
	"donationScope/internal/indexer"
	"donationScope/internal/storage"
	"donationScope/internal/vault"
	"donationScope/internal/view"
)

func runProgress(cmd *cobra.Command, _ []string) error {
	rt, err := setup(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signalContext(cmd)
	defer stop()

	state, err := rt.session.UpdateProgress(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), view.ProgressText(state.ReceivedEth, state.GoalEth, state.Percent))
	return nil
}

func runLeaderboard(cmd *cobra.Command, _ []string) error {
	rt, err := setup(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signalContext(cmd)
	defer stop()

	if refresh, _ := cmd.Flags().GetBool("refresh"); refresh {
		if err := rt.session.InvalidateLeaderboard(ctx); err != nil {
			return err
		}
	}
	if _, err := rt.session.RefreshLeaderboard(ctx); err != nil {
		return err
	}
	printLeaderboard(cmd.OutOrStdout(), rt.session.Board().Snapshot().Leaderboard)
	return nil
}

func printLeaderboard(w io.Writer, rows []view.LeaderboardRow) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "no donations yet")
		return
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%2d  %s  %s ETH\n", row.Rank, row.Address, row.Amount)
	}
}

func runConnect(cmd *cobra.Command, _ []string) error {
	rt, err := setup(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signalContext(cmd)
	defer stop()

	account, err := rt.session.Connect(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	info := rt.session.Describe(ctx)
	fmt.Fprintf(out, "%s on %s\n", account.Hex(), info.ChainName)
	fmt.Fprintf(out, "vault %s\n", info.ContractURL)
	if info.Beneficiary != "" {
		fmt.Fprintf(out, "beneficiary %s, hard cap %s ETH\n", info.Beneficiary, view.FormatGoal(info.HardCap))
	}
	return nil
}

func runSend(cmd *cobra.Command, args []string) error {
	rt, err := setup(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signalContext(cmd)
	defer stop()

	_, donateErr := rt.session.Donate(ctx, args[0])
	snap := rt.session.Board().Snapshot()
	out := cmd.OutOrStdout()
	if snap.Status != "" {
		fmt.Fprintln(out, snap.Status)
	}
	if donateErr != nil {
		return donateErr
	}
	if snap.TxLink != "" {
		fmt.Fprintln(out, snap.TxLink)
	}
	if snap.Progress != nil {
		fmt.Fprintln(out, snap.Progress.Text)
	}
	return nil
}

func runGoal(cmd *cobra.Command, args []string) error {
	rt, err := setup(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	out := cmd.OutOrStdout()
	if len(args) == 0 {
		fmt.Fprintf(out, "%s ETH\n", view.FormatGoal(rt.session.Goal()))
		return nil
	}

	goal, ok := donate.ParseGoal(args[0])
	if !ok || !rt.session.SetGoal(cmd.Context(), goal) {
		return fmt.Errorf("goal must be a positive number: %s", args[0])
	}
	fmt.Fprintf(out, "goal set to %s ETH\n", view.FormatGoal(rt.session.Goal()))
	if snap := rt.session.Board().Snapshot(); snap.Progress != nil {
		fmt.Fprintln(out, snap.Progress.Text)
	}
	return nil
}

func runSync(cmd *cobra.Command, _ []string) error {
	rt, err := setup(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signalContext(cmd)
	defer stop()

	toBlock, _ := cmd.Flags().GetUint64("to")
	archive := rt.cfg.Archive
	checkpoint := rt.cfg.Checkpoint
	checkpointEnabled := rt.cfg.CheckpointEnabled

	sink, closeSink, err := storage.OpenSink(ctx, archive)
	if err != nil {
		return err
	}
	defer closeSink()

	backend, err := rt.pool.Active(ctx)
	if err != nil {
		return err
	}
	chainID, err := backend.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}

	v, err := vault.New(rt.cfg.ContractAddress())
	if err != nil {
		return err
	}
	scanner := indexer.NewScanner(indexer.ScanConfig{
		BatchSize:    rt.cfg.BatchSize,
		MaxRetries:   rt.cfg.MaxRetries,
		RetryBackoff: rt.cfg.RetryBackoff,
	}, v, rt.logger.Named("scanner"))

	runner := indexer.NewRunner(indexer.RunConfig{
		Chain:             rt.cfg.Chain,
		ChainID:           chainID.Uint64(),
		DeploymentBlock:   rt.cfg.DeploymentBlock,
		ToBlock:           toBlock,
		BatchSize:         rt.cfg.BatchSize,
		CheckpointPath:    checkpoint,
		CheckpointEnabled: checkpointEnabled,
		MaxRetries:        rt.cfg.MaxRetries,
		RetryBackoff:      rt.cfg.RetryBackoff,
	}, backend, scanner, sink, rt.logger)

	rt.logger.Info("donation sync start",
		zap.String("chain", rt.cfg.Chain),
		zap.String("contract", rt.cfg.Contract),
		zap.Uint64("from", rt.cfg.DeploymentBlock),
		zap.Uint64("to", toBlock),
		zap.Uint64("batch_size", rt.cfg.BatchSize),
		zap.String("archive", archive),
		zap.Bool("checkpoint_enabled", checkpointEnabled),
		zap.String("checkpoint", checkpoint),
	)
	return runner.Run(ctx)
}
