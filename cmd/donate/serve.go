package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"donationScope/internal/cashfree"
	httpapi "donationScope/internal/http"
	"donationScope/internal/http/handlers"
)

func runServe(cmd *cobra.Command, _ []string) error {
	rt, err := setup(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signalContext(cmd)
	defer stop()

	cf := cashfree.NewClient(cashfree.Config{
		AppID:      rt.cfg.Cashfree.AppID,
		Secret:     rt.cfg.Cashfree.Secret,
		Env:        rt.cfg.Cashfree.Env,
		APIVersion: rt.cfg.Cashfree.APIVersion,
	}, nil, rt.logger.Named("cashfree"))
	if !cf.Configured() {
		rt.logger.Warn("cashfree credentials missing, payment routes will answer 500")
	}

	app := handlers.NewApp(rt.session, cf, rt.cfg.Cashfree.WebhookSecret, rt.logger.Named("http"))
	server := &http.Server{
		Addr:              rt.cfg.Listen,
		Handler:           httpapi.NewRouter(app, rt.logger.Named("http")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rt.logger.Info("http server listening", zap.String("addr", rt.cfg.Listen))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		refreshLoop(gctx, rt, rt.cfg.RefreshInterval)
		return nil
	})

	return g.Wait()
}

// refreshLoop keeps the board current until ctx is done. Each tick is a fresh
// pass that starts from the primary endpoint again.
func refreshLoop(ctx context.Context, rt *runtime, interval time.Duration) {
	rt.session.Init(ctx)
	if interval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rt.session.Refresh(ctx)
		}
	}
}
