package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"trade_go/internal/app"
	"trade_go/internal/web"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	// Pprof server (localhost only for security)
	go func() {
		slog.Info("pprof server started on localhost:6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("pprof server failed", slog.Any("error", err))
		}
	}()

	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootstrap.SeedQuotes(ctx)

	bootstrap.Worker.Start(ctx, bootstrap.Config.Queue.Workers)

	hub := web.NewTickerHub(bootstrap.Bus)
	go hub.Run(ctx)

	server := web.NewServer(bootstrap.Config, bootstrap.Storage, bootstrap.Trade, bootstrap.Summary, hub)
	go func() {
		if err := server.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", slog.Any("error", err))
		}
	}()

	slog.InfoContext(ctx, "TradeGo fully operational",
		slog.String("addr", bootstrap.Config.HTTP.Addr))

	<-ctx.Done()

	slog.InfoContext(ctx, "shutting down gracefully...")
	bootstrap.Worker.Wait()
	bootstrap.Bus.Close()
}
